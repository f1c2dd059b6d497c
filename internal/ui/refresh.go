package ui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

const (
	maxBackoff      = 30 * time.Second
	minRetryBackoff = 2 * time.Second
)

type refreshMsg struct{ seq int }

// calculateBackoff doubles base for every consecutive failure, capped at
// maxBackoff.
func calculateBackoff(failures int, base time.Duration) time.Duration {
	if failures <= 0 {
		return base
	}
	backoff := base
	for i := 0; i < failures; i++ {
		backoff *= 2
		if backoff >= maxBackoff {
			return maxBackoff
		}
	}
	return backoff
}

// nextRefresh schedules the next automatic re-sync. Failed syncs are retried
// with backoff even when periodic refresh is off.
func (m *Model) nextRefresh() tea.Cmd {
	var delay time.Duration
	switch {
	case m.failures > 0:
		base := m.refreshEvery
		if base <= 0 {
			base = minRetryBackoff
		}
		delay = calculateBackoff(m.failures-1, base)
	case m.refreshEvery > 0:
		delay = m.refreshEvery
	default:
		return nil
	}
	seq := m.refreshSeq
	return tea.Tick(delay, func(time.Time) tea.Msg { return refreshMsg{seq: seq} })
}
