package ui

import (
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/vitrine/internal/mutation"
)

const (
	toastTTL  = 3 * time.Second
	maxToasts = 3
)

type toast struct {
	id   int
	note mutation.Notification
}

type toastExpiredMsg struct{ id int }

// notificationMsg carries one coordinator outcome into the update loop.
type notificationMsg mutation.Notification

func waitForNotification(ch <-chan mutation.Notification) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		n, ok := <-ch
		if !ok {
			return nil
		}
		return notificationMsg(n)
	}
}

func (m *Model) pushToast(n mutation.Notification) tea.Cmd {
	m.toastSeq++
	id := m.toastSeq
	m.toasts = append(m.toasts, toast{id: id, note: n})
	if len(m.toasts) > maxToasts {
		m.toasts = m.toasts[len(m.toasts)-maxToasts:]
	}
	return tea.Tick(toastTTL, func(time.Time) tea.Msg { return toastExpiredMsg{id: id} })
}

// localError shows a failure that never reached the coordinator.
func (m *Model) localError(msg string) tea.Cmd {
	return m.pushToast(mutation.Notification{Kind: mutation.KindError, Message: msg, At: time.Now()})
}

func (m *Model) dropToast(id int) {
	for i, t := range m.toasts {
		if t.id == id {
			m.toasts = append(m.toasts[:i], m.toasts[i+1:]...)
			return
		}
	}
}

// renderToasts shows the newest notification, with a count of older ones.
func (m Model) renderToasts() string {
	styles := m.theme.Styles().WithBackground(m.theme.Background)
	bg := NewBgStyle(m.theme.Background)
	if len(m.toasts) == 0 {
		return bg.FillLine("", m.width)
	}
	latest := m.toasts[len(m.toasts)-1].note
	style := styles.SuccessText
	icon := "✓"
	if latest.Kind == mutation.KindError {
		style = styles.DangerText
		icon = "✗"
	}
	line := bg.Render(icon+" "+latest.Message, style)
	if older := len(m.toasts) - 1; older > 0 {
		line += bg.Spaces(2) + bg.Render("+"+strings.Repeat("•", older), styles.FaintText)
	}
	return bg.FillLine(bg.Space()+line, m.width)
}
