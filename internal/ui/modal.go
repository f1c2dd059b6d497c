package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Modal is the interface for modal dialogs.
// The Update method returns the updated modal, a command, and a bool indicating if the modal should close.
type Modal interface {
	Update(msg tea.Msg, keys keyMap) (Modal, tea.Cmd, bool)
	View(theme Theme, width, height int) string
}

func emit(msg tea.Msg) tea.Cmd {
	return func() tea.Msg { return msg }
}

// placeModal centers a bordered box of the given width on the screen.
func placeModal(theme Theme, width, height, boxWidth int, content string) string {
	box := theme.Styles().Modal.Width(boxWidth).Render(content)
	return lipgloss.Place(
		width,
		height,
		lipgloss.Center,
		lipgloss.Center,
		box,
		lipgloss.WithWhitespaceChars(" "),
		lipgloss.WithWhitespaceForeground(lipgloss.Color(theme.Background)),
	)
}

func modalTitle(styles Styles, title string, rule int) string {
	return styles.Text.Bold(true).Render(title) + "\n" +
		styles.FaintText.Render(strings.Repeat("─", rule)) + "\n\n"
}

// form is a vertical list of labelled text inputs with one focused field.
type form struct {
	labels []string
	inputs []textinput.Model
	focus  int
	err    string
}

func newForm(labels, placeholders []string, width int) form {
	f := form{labels: labels, inputs: make([]textinput.Model, len(labels))}
	for i := range labels {
		in := textinput.New()
		in.Placeholder = placeholders[i]
		in.CharLimit = 200
		in.Width = width
		f.inputs[i] = in
	}
	f.inputs[0].Focus()
	return f
}

func (f *form) move(delta int) {
	f.inputs[f.focus].Blur()
	f.focus = (f.focus + delta + len(f.inputs)) % len(f.inputs)
	f.inputs[f.focus].Focus()
}

func (f *form) clear() {
	for i := range f.inputs {
		f.inputs[i].SetValue("")
	}
	f.err = ""
}

func (f *form) value(i int) string {
	return strings.TrimSpace(f.inputs[i].Value())
}

// update handles navigation keys shared by all forms. It reports whether
// the key was consumed.
func (f *form) update(msg tea.Msg, keys keyMap) (tea.Cmd, bool) {
	if km, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(km, keys.Tab), km.Type == tea.KeyDown:
			f.move(1)
			return nil, true
		case key.Matches(km, keys.ShiftTab), km.Type == tea.KeyUp:
			f.move(-1)
			return nil, true
		case km.String() == "ctrl+c":
			// Clears the form instead of quitting.
			f.clear()
			return nil, true
		}
	}
	var cmd tea.Cmd
	f.inputs[f.focus], cmd = f.inputs[f.focus].Update(msg)
	return cmd, false
}

func (f form) view(styles Styles, labelWidth int) string {
	var b strings.Builder
	for i, in := range f.inputs {
		label := lipgloss.NewStyle().Width(labelWidth).Render(f.labels[i] + ":")
		if i == f.focus {
			b.WriteString(styles.AccentText.Render(label))
		} else {
			b.WriteString(styles.MutedText.Render(label))
		}
		b.WriteString(in.View())
		b.WriteString("\n")
	}
	if f.err != "" {
		b.WriteString("\n")
		b.WriteString(styles.DangerText.Render(f.err))
		b.WriteString("\n")
	}
	return b.String()
}
