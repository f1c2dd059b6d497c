package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/vitrine/internal/logtail"
)

const logTailLines = 200

type logLoadedMsg struct {
	entries []logtail.Entry
	err     error
}

func loadLogCmd(path string) tea.Cmd {
	return func() tea.Msg {
		entries, err := logtail.Read(path, logTailLines)
		return logLoadedMsg{entries: entries, err: err}
	}
}

// logDialog shows the tail of the application log, newest line at the bottom.
type logDialog struct {
	path     string
	entries  []logtail.Entry
	viewport viewport.Model
	ready    bool
}

func newLogDialog(path string, entries []logtail.Entry, theme Theme, width, height int) *logDialog {
	d := &logDialog{
		path:     path,
		entries:  entries,
		viewport: viewport.New(max(width-12, 20), max(height-10, 5)),
	}
	d.viewport.SetContent(d.render(theme))
	d.viewport.GotoBottom()
	return d
}

func (d *logDialog) render(theme Theme) string {
	styles := theme.Styles()
	if len(d.entries) == 0 {
		return styles.MutedText.Render("No log lines yet.")
	}
	lines := make([]string, 0, len(d.entries))
	for _, e := range d.entries {
		style := styles.Text
		switch e.Level {
		case "debug":
			style = styles.FaintText
		case "warn":
			style = styles.WarningText
		case "error", "dpanic", "panic", "fatal":
			style = styles.DangerText
		}
		lines = append(lines, style.Render(truncate(e.String(), d.viewport.Width)))
	}
	return strings.Join(lines, "\n")
}

func (d *logDialog) Update(msg tea.Msg, keys keyMap) (Modal, tea.Cmd, bool) {
	if km, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(km, keys.Escape), key.Matches(km, keys.Logs):
			return d, nil, true
		case key.Matches(km, keys.Top):
			d.viewport.GotoTop()
			return d, nil, false
		case key.Matches(km, keys.Bottom):
			d.viewport.GotoBottom()
			return d, nil, false
		}
	}
	var cmd tea.Cmd
	d.viewport, cmd = d.viewport.Update(msg)
	return d, cmd, false
}

func (d *logDialog) View(theme Theme, width, height int) string {
	styles := theme.Styles()
	var b strings.Builder
	b.WriteString(modalTitle(styles, "Log  "+truncate(d.path, 60), d.viewport.Width))
	b.WriteString(d.viewport.View())
	b.WriteString("\n\n")
	b.WriteString(styles.FaintText.Render("j/k: Scroll  •  g/G: Top/Bottom  •  Esc: Close"))
	return placeModal(theme, width, height, d.viewport.Width+6, b.String())
}
