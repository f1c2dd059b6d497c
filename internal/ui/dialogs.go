package ui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/vitrine/internal/catalog"
	"github.com/five82/vitrine/internal/query"
)

// Messages emitted by dialogs.
type (
	deleteConfirmedMsg struct{ id int64 }
	filtersAppliedMsg  struct{ query query.State }
	createSubmittedMsg struct{ input catalog.ProductInput }
)

// --- Delete confirmation ---

type confirmDelete struct {
	product catalog.Product
}

func (c confirmDelete) Update(msg tea.Msg, keys keyMap) (Modal, tea.Cmd, bool) {
	km, ok := msg.(tea.KeyMsg)
	if !ok {
		return c, nil, false
	}
	switch {
	case key.Matches(km, keys.Yes):
		return c, emit(deleteConfirmedMsg{id: c.product.ID}), true
	case key.Matches(km, keys.No):
		return c, nil, true
	}
	return c, nil, false
}

func (c confirmDelete) View(theme Theme, width, height int) string {
	styles := theme.Styles()
	var b strings.Builder
	b.WriteString(modalTitle(styles, "Delete product", 36))
	b.WriteString(styles.Text.Render(fmt.Sprintf("#%d %s", c.product.ID, truncate(displayTitle(c.product.Title), 34))))
	b.WriteString("\n")
	b.WriteString(styles.MutedText.Render("Price " + formatPrice(c.product.Price)))
	b.WriteString("\n\n")
	b.WriteString(styles.WarningText.Render("This cannot be undone."))
	b.WriteString("\n\n")
	b.WriteString(styles.FaintText.Render("y: Delete  •  n/Esc: Cancel"))
	return placeModal(theme, width, height, 44, b.String())
}

// --- Filter form ---

type filterDialog struct {
	base query.State
	form form
}

func newFilterDialog(current query.State) *filterDialog {
	keys := query.Keys()
	labels := make([]string, len(keys))
	placeholders := make([]string, len(keys))
	for i, k := range keys {
		labels[i] = k.Label()
		switch {
		case query.IsPrice(k):
			placeholders[i] = "e.g. 100.00"
		case query.IsDate(k):
			placeholders[i] = "YYYY-MM-DD"
		default:
			placeholders[i] = "substring"
		}
	}
	d := &filterDialog{base: current, form: newForm(labels, placeholders, 28)}
	for i, k := range keys {
		d.form.inputs[i].SetValue(current.Filter(k))
	}
	return d
}

func (d *filterDialog) Update(msg tea.Msg, keys keyMap) (Modal, tea.Cmd, bool) {
	if km, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(km, keys.Escape):
			return d, nil, true
		case key.Matches(km, keys.Confirm):
			next := d.base
			for i, k := range query.Keys() {
				next = next.SetFilter(k, d.form.value(i))
			}
			if err := next.Validate(); err != nil {
				d.form.err = err.Error()
				return d, nil, false
			}
			return d, emit(filtersAppliedMsg{query: next}), true
		}
	}
	cmd, _ := d.form.update(msg, keys)
	return d, cmd, false
}

func (d *filterDialog) View(theme Theme, width, height int) string {
	styles := theme.Styles()
	var b strings.Builder
	b.WriteString(modalTitle(styles, "Filters", 46))
	b.WriteString(styles.MutedText.Render("Leave blank to disable a filter."))
	b.WriteString("\n\n")
	b.WriteString(d.form.view(styles, 17))
	b.WriteString("\n")
	b.WriteString(styles.FaintText.Render("Enter: Apply  •  Esc: Cancel  •  Ctrl+C: Clear"))
	return placeModal(theme, width, height, 56, b.String())
}

// --- Create form ---

const (
	createTitle = iota
	createURL
	createPrice
	createCity
	createState
	createSource
)

type createDialog struct {
	form form
}

func newCreateDialog() *createDialog {
	return &createDialog{form: newForm(
		[]string{"Title", "URL", "Price", "City", "State", "Source site ID"},
		[]string{"required", "https://...", "0.00", "optional", "optional", "optional"},
		32,
	)}
}

func (d *createDialog) input() (catalog.ProductInput, error) {
	in := catalog.ProductInput{
		Title: d.form.value(createTitle),
		URL:   d.form.value(createURL),
		City:  d.form.value(createCity),
		State: d.form.value(createState),
	}
	if raw := d.form.value(createPrice); raw != "" {
		price, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return in, fmt.Errorf("price %q is not a number", raw)
		}
		in.Price = price
	}
	if raw := d.form.value(createSource); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return in, fmt.Errorf("source site id %q is not a number", raw)
		}
		in.SourceWebsiteID = id
	}
	return in, in.Validate()
}

func (d *createDialog) Update(msg tea.Msg, keys keyMap) (Modal, tea.Cmd, bool) {
	if km, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(km, keys.Escape):
			return d, nil, true
		case key.Matches(km, keys.Confirm):
			in, err := d.input()
			if err != nil {
				d.form.err = err.Error()
				return d, nil, false
			}
			return d, emit(createSubmittedMsg{input: in}), true
		}
	}
	cmd, _ := d.form.update(msg, keys)
	return d, cmd, false
}

func (d *createDialog) View(theme Theme, width, height int) string {
	styles := theme.Styles()
	var b strings.Builder
	b.WriteString(modalTitle(styles, "New product", 46))
	b.WriteString(d.form.view(styles, 16))
	b.WriteString("\n")
	b.WriteString(styles.FaintText.Render("Enter: Create  •  Esc: Cancel  •  Ctrl+C: Clear"))
	return placeModal(theme, width, height, 56, b.String())
}

// --- Title search ---

type searchDialog struct {
	base query.State
	form form
}

func newSearchDialog(current query.State) *searchDialog {
	d := &searchDialog{base: current, form: newForm([]string{query.KeyTitle.Label()}, []string{"substring"}, 30)}
	d.form.inputs[0].SetValue(current.Filter(query.KeyTitle))
	d.form.inputs[0].CursorEnd()
	return d
}

func (d *searchDialog) Update(msg tea.Msg, keys keyMap) (Modal, tea.Cmd, bool) {
	if km, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(km, keys.Escape):
			return d, nil, true
		case key.Matches(km, keys.Confirm):
			return d, emit(filtersAppliedMsg{query: d.base.SetFilter(query.KeyTitle, d.form.value(0))}), true
		}
	}
	cmd, _ := d.form.update(msg, keys)
	return d, cmd, false
}

func (d *searchDialog) View(theme Theme, width, height int) string {
	styles := theme.Styles()
	var b strings.Builder
	b.WriteString(modalTitle(styles, "Search", 40))
	b.WriteString(d.form.view(styles, 8))
	b.WriteString("\n")
	b.WriteString(styles.FaintText.Render("Enter: Search  •  Esc: Cancel"))
	return placeModal(theme, width, height, 50, b.String())
}
