package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/five82/vitrine/internal/listing"
	"github.com/five82/vitrine/internal/query"
)

// chromeHeight is the number of lines around the table: header, command bar
// and the toast line.
const chromeHeight = 3

func (m Model) renderHeader() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)
	compact := m.width < 100

	parts := []string{bg.Render("vitrine", styles.Logo)}
	if !compact {
		parts = append(parts, bg.Render(truncate(hostOf(m.apiURL), 30), styles.MutedText))
	}

	parts = append(parts, m.statusSegment(styles, bg))

	snap := m.snapshot
	if snap.Status == listing.StatusLoaded {
		m.pager.TotalPages = snap.TotalPages()
		m.pager.Page = snap.Query.Page() - 1
		parts = append(parts,
			bg.Render("Page", styles.MutedText)+bg.Space()+bg.Render(m.pager.View(), styles.Text),
			bg.Render("Total:", styles.MutedText)+bg.Space()+bg.Render(fmt.Sprintf("%d", snap.TotalCount), styles.Text),
		)
	}

	if n := m.coord.InFlight(); n > 0 {
		parts = append(parts, bg.Render(fmt.Sprintf("Deleting: %d", n), styles.WarningText))
	}

	if summary := filterSummary(snap.Query); summary != "" {
		limit := 60
		if compact {
			limit = 24
		}
		parts = append(parts, bg.Render("/"+truncate(summary, limit), styles.AccentText))
	}

	if !compact && !snap.UpdatedAt.IsZero() {
		parts = append(parts, bg.Render(snap.UpdatedAt.Local().Format("15:04:05"), styles.FaintText))
	}

	return styles.Header.Width(m.width).Render(bg.Join(parts, "  "))
}

func (m Model) statusSegment(styles Styles, bg BgStyle) string {
	switch m.snapshot.Status {
	case listing.StatusLoading:
		return bg.Render(m.spinner.View(), styles.WarningText) + bg.Space() +
			bg.Render("Loading...", styles.WarningText.Bold(true))
	case listing.StatusError:
		return bg.Render("● ERROR", styles.DangerText) + bg.Space() +
			bg.Render(truncate(m.snapshot.ErrorDetail(), 48), styles.DangerText)
	case listing.StatusLoaded:
		return bg.Render("● OK", styles.SuccessText)
	default:
		return bg.Render("Connecting...", styles.WarningText.Bold(true))
	}
}

// filterSummary renders active filters as key=value pairs.
func filterSummary(q query.State) string {
	active := q.Active()
	if len(active) == 0 {
		return ""
	}
	parts := make([]string, 0, len(active))
	for _, k := range active {
		parts = append(parts, string(k)+"="+q.Filter(k))
	}
	return strings.Join(parts, " ")
}

// renderCommandBar renders the command hints bar.
func (m Model) renderCommandBar() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)
	colon := bg.Render(":", styles.FaintText)

	bindings := m.keys.ShortHelp()
	segments := make([]string, 0, len(bindings)+1)
	for _, b := range bindings {
		h := b.Help()
		segments = append(segments,
			bg.Render(h.Key, styles.AccentText)+colon+bg.Render(h.Desc, styles.MutedText))
	}
	segments = append(segments,
		bg.Render("T", styles.AccentText)+colon+bg.Render(m.theme.Name, styles.FaintText))

	return styles.Header.Width(m.width).Render(bg.Join(segments, "  "))
}

// renderBody shows the table, or a placeholder when there is nothing to list.
func (m Model) renderBody() string {
	height := max(m.height-chromeHeight, 1)
	styles := m.theme.Styles()

	var message string
	switch m.snapshot.Status {
	case listing.StatusIdle:
		message = styles.MutedText.Render("Waiting for first sync...")
	case listing.StatusLoading:
		message = styles.MutedText.Render(m.spinner.View() + " Loading products...")
	case listing.StatusError:
		message = styles.DangerText.Render(m.snapshot.ErrorDetail()) + "\n\n" +
			styles.FaintText.Render("Press r to retry")
	default:
		if len(m.snapshot.Records) == 0 {
			message = styles.MutedText.Render("No products found")
			if !m.snapshot.Query.Filters().IsZero() {
				message += "\n\n" + styles.FaintText.Render("Press x to clear filters")
			}
		}
	}
	if message != "" {
		return lipgloss.Place(m.width, height, lipgloss.Center, lipgloss.Center, message)
	}
	return lipgloss.NewStyle().Height(height).MaxHeight(height).Render(m.table.View())
}
