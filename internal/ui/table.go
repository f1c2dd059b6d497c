package ui

import (
	"strconv"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/vitrine/internal/catalog"
)

const (
	idColumnWidth    = 7
	priceColumnWidth = 12
	dateColumnWidth  = 16
	minFlexWidth     = 20
	// Each cell is padded by one column on both sides.
	cellPadding = 2
)

func newProductTable(theme Theme) table.Model {
	t := table.New(
		table.WithColumns(productColumns(100)),
		table.WithFocused(true),
	)
	t.SetStyles(tableStyles(theme))
	return t
}

// productColumns splits the space left after the fixed columns between title
// and url, favouring the title.
func productColumns(width int) []table.Column {
	fixed := idColumnWidth + priceColumnWidth + 2*dateColumnWidth + 6*cellPadding
	flex := max(width-fixed, minFlexWidth)
	titleWidth := flex * 3 / 5
	return []table.Column{
		{Title: "ID", Width: idColumnWidth},
		{Title: "Title", Width: titleWidth},
		{Title: "Price", Width: priceColumnWidth},
		{Title: "Created", Width: dateColumnWidth},
		{Title: "Updated", Width: dateColumnWidth},
		{Title: "URL", Width: flex - titleWidth},
	}
}

func productRows(records []catalog.Product) []table.Row {
	rows := make([]table.Row, 0, len(records))
	for _, p := range records {
		rows = append(rows, table.Row{
			strconv.FormatInt(p.ID, 10),
			displayTitle(p.Title),
			formatPrice(p.Price),
			formatTimestamp(p.ParsedCreatedAt()),
			formatTimestamp(p.ParsedUpdatedAt()),
			p.URL,
		})
	}
	return rows
}

func tableStyles(theme Theme) table.Styles {
	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color(theme.Border)).
		BorderBottom(true).
		Foreground(lipgloss.Color(theme.Accent)).
		Bold(true)
	s.Cell = s.Cell.Foreground(lipgloss.Color(theme.Text))
	s.Selected = s.Selected.
		Foreground(lipgloss.Color(theme.SelectionText)).
		Background(lipgloss.Color(theme.SelectionBg)).
		Bold(false)
	return s
}

// refreshTable pushes the current snapshot into the table, keeping the cursor
// inside the new row range.
func (m *Model) refreshTable() {
	m.table.SetRows(productRows(m.snapshot.Records))
	n := len(m.snapshot.Records)
	if cur := m.table.Cursor(); n > 0 && (cur < 0 || cur >= n) {
		m.table.SetCursor(min(max(cur, 0), n-1))
	}
}

// selectedProduct returns the product under the cursor.
func (m Model) selectedProduct() (catalog.Product, bool) {
	idx := m.table.Cursor()
	if idx < 0 || idx >= len(m.snapshot.Records) {
		return catalog.Product{}, false
	}
	return m.snapshot.Records[idx], true
}

// resize fits the table below the header and command bar and above the
// toast line.
func (m *Model) resize() {
	m.table.SetWidth(m.width)
	m.table.SetColumns(productColumns(m.width))
	m.table.SetHeight(max(m.height-chromeHeight, 3))
}
