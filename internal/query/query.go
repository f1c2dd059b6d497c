package query

import (
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// DefaultPageSize is the number of products requested per page.
const DefaultPageSize = 50

// MaxPageSize bounds configurable page sizes.
const MaxPageSize = 500

// Key names one filter of the fixed product filter schema. The string value is
// the query parameter sent to the backend.
type Key string

const (
	KeyTitle         Key = "title"
	KeyURL           Key = "url"
	KeyMinPrice      Key = "min_price"
	KeyMaxPrice      Key = "max_price"
	KeyCreatedAfter  Key = "created_after"
	KeyCreatedBefore Key = "created_before"
	KeyUpdatedAfter  Key = "updated_after"
	KeyUpdatedBefore Key = "updated_before"
)

var keyOrder = []Key{
	KeyTitle,
	KeyURL,
	KeyMinPrice,
	KeyMaxPrice,
	KeyCreatedAfter,
	KeyCreatedBefore,
	KeyUpdatedAfter,
	KeyUpdatedBefore,
}

var keyLabels = map[Key]string{
	KeyTitle:         "Title",
	KeyURL:           "URL",
	KeyMinPrice:      "Min price",
	KeyMaxPrice:      "Max price",
	KeyCreatedAfter:  "Created after",
	KeyCreatedBefore: "Created before",
	KeyUpdatedAfter:  "Updated after",
	KeyUpdatedBefore: "Updated before",
}

// Keys returns every filter key in display order.
func Keys() []Key {
	out := make([]Key, len(keyOrder))
	copy(out, keyOrder)
	return out
}

// ParseKey resolves a query parameter name to a filter key.
func ParseKey(name string) (Key, error) {
	k := Key(strings.ToLower(strings.TrimSpace(name)))
	if _, ok := keyLabels[k]; !ok {
		return "", fmt.Errorf("unknown filter %q", name)
	}
	return k, nil
}

// Label returns a human-readable name for the key.
func (k Key) Label() string {
	if label, ok := keyLabels[k]; ok {
		return label
	}
	return string(k)
}

func (k Key) isPrice() bool {
	return k == KeyMinPrice || k == KeyMaxPrice
}

func (k Key) isDate() bool {
	switch k {
	case KeyCreatedAfter, KeyCreatedBefore, KeyUpdatedAfter, KeyUpdatedBefore:
		return true
	}
	return false
}

// Filters holds the raw text of every filter. An empty field means the filter
// is absent.
type Filters struct {
	Title         string
	URL           string
	MinPrice      string
	MaxPrice      string
	CreatedAfter  string
	CreatedBefore string
	UpdatedAfter  string
	UpdatedBefore string
}

// Get returns the trimmed value for key.
func (f Filters) Get(k Key) string {
	var v string
	switch k {
	case KeyTitle:
		v = f.Title
	case KeyURL:
		v = f.URL
	case KeyMinPrice:
		v = f.MinPrice
	case KeyMaxPrice:
		v = f.MaxPrice
	case KeyCreatedAfter:
		v = f.CreatedAfter
	case KeyCreatedBefore:
		v = f.CreatedBefore
	case KeyUpdatedAfter:
		v = f.UpdatedAfter
	case KeyUpdatedBefore:
		v = f.UpdatedBefore
	}
	return strings.TrimSpace(v)
}

func (f Filters) with(k Key, value string) Filters {
	value = strings.TrimSpace(value)
	switch k {
	case KeyTitle:
		f.Title = value
	case KeyURL:
		f.URL = value
	case KeyMinPrice:
		f.MinPrice = value
	case KeyMaxPrice:
		f.MaxPrice = value
	case KeyCreatedAfter:
		f.CreatedAfter = value
	case KeyCreatedBefore:
		f.CreatedBefore = value
	case KeyUpdatedAfter:
		f.UpdatedAfter = value
	case KeyUpdatedBefore:
		f.UpdatedBefore = value
	}
	return f
}

// IsZero reports whether no filter is set.
func (f Filters) IsZero() bool {
	for _, k := range keyOrder {
		if f.Get(k) != "" {
			return false
		}
	}
	return true
}

// Values encodes the non-empty filters as query parameters.
func (f Filters) Values() url.Values {
	values := url.Values{}
	for _, k := range keyOrder {
		if v := f.Get(k); v != "" {
			values.Set(string(k), v)
		}
	}
	return values
}

// State is the canonical input to a list fetch: filters plus pagination.
// It is a value; every transition returns a new State.
type State struct {
	filters  Filters
	page     int
	pageSize int
}

// New returns an unfiltered state on page 1.
func New(pageSize int) State {
	return State{page: 1, pageSize: clampPageSize(pageSize)}
}

func clampPageSize(n int) int {
	switch {
	case n <= 0:
		return DefaultPageSize
	case n > MaxPageSize:
		return MaxPageSize
	}
	return n
}

// Page returns the 1-based page number.
func (s State) Page() int {
	if s.page < 1 {
		return 1
	}
	return s.page
}

// PageSize returns the number of records per page.
func (s State) PageSize() int {
	return clampPageSize(s.pageSize)
}

// Limit is the page size sent to the backend.
func (s State) Limit() int {
	return s.PageSize()
}

// Offset is the number of records skipped before the current page.
func (s State) Offset() int {
	page := min(s.Page(), s.maxPage())
	return (page - 1) * s.PageSize()
}

// maxPage is the largest page whose offset still fits in an int.
func (s State) maxPage() int {
	pages := math.MaxInt / s.PageSize()
	if pages == math.MaxInt {
		return pages
	}
	return pages + 1
}

// Filters returns a copy of the current filters.
func (s State) Filters() Filters {
	return s.filters
}

// Filter returns the trimmed value of a single filter.
func (s State) Filter(k Key) string {
	return s.filters.Get(k)
}

// SetFilter updates one filter and always moves back to page 1, since the
// current page may not exist under the new filter.
func (s State) SetFilter(k Key, value string) State {
	s.filters = s.filters.with(k, value)
	s.page = 1
	s.pageSize = s.PageSize()
	return s
}

// WithFilters replaces every filter at once and resets to page 1.
func (s State) WithFilters(f Filters) State {
	for _, k := range keyOrder {
		f = f.with(k, f.Get(k))
	}
	s.filters = f
	s.page = 1
	s.pageSize = s.PageSize()
	return s
}

// ClearFilters drops every filter and resets to page 1.
func (s State) ClearFilters() State {
	return s.WithFilters(Filters{})
}

// SetPage moves to page max(1, n), capped so Offset cannot overflow.
func (s State) SetPage(n int) State {
	if n < 1 {
		n = 1
	}
	s.page = min(n, s.maxPage())
	s.pageSize = s.PageSize()
	return s
}

// NextPage advances one page without passing the last page for total records.
func (s State) NextPage(total int) State {
	next := s.Page() + 1
	if next > s.TotalPages(total) {
		return s.SetPage(s.Page())
	}
	return s.SetPage(next)
}

// PrevPage steps back one page, stopping at page 1.
func (s State) PrevPage() State {
	return s.SetPage(s.Page() - 1)
}

// TotalPages returns how many pages total records span, never less than 1.
func (s State) TotalPages(total int) int {
	if total <= 0 {
		return 1
	}
	size := s.PageSize()
	pages := total / size
	if total%size != 0 {
		pages++
	}
	return pages
}

// FilterValues encodes only the filters, as used by the stats endpoint.
func (s State) FilterValues() url.Values {
	return s.filters.Values()
}

// Values encodes the filters together with limit and offset.
func (s State) Values() url.Values {
	values := s.filters.Values()
	values.Set("limit", strconv.Itoa(s.Limit()))
	values.Set("offset", strconv.Itoa(s.Offset()))
	return values
}

// Active lists the set filters in display order.
func (s State) Active() []Key {
	var keys []Key
	for _, k := range keyOrder {
		if s.filters.Get(k) != "" {
			keys = append(keys, k)
		}
	}
	return keys
}

// Validate checks that numeric and date filters parse and that the price range
// is not inverted.
func (s State) Validate() error {
	_, err := s.Criteria()
	return err
}

// FromValues rebuilds a state on page 1 from query parameters. Unknown keys and
// pagination parameters are ignored. The returned state is valid when err is nil.
func FromValues(values url.Values, pageSize int) (State, error) {
	s := New(pageSize)
	for _, k := range keyOrder {
		if v := strings.TrimSpace(values.Get(string(k))); v != "" {
			s.filters = s.filters.with(k, v)
		}
	}
	if err := s.Validate(); err != nil {
		return s, err
	}
	return s, nil
}

// Criteria is the parsed form of a State's filters. Nil bounds are absent.
type Criteria struct {
	Title         string
	URL           string
	MinPrice      *float64
	MaxPrice      *float64
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
	UpdatedAfter  *time.Time
	UpdatedBefore *time.Time
}

// Criteria parses the filters into typed bounds.
func (s State) Criteria() (Criteria, error) {
	c := Criteria{
		Title: s.filters.Get(KeyTitle),
		URL:   s.filters.Get(KeyURL),
	}
	var err error
	if c.MinPrice, err = parsePrice(KeyMinPrice, s.filters.Get(KeyMinPrice)); err != nil {
		return Criteria{}, err
	}
	if c.MaxPrice, err = parsePrice(KeyMaxPrice, s.filters.Get(KeyMaxPrice)); err != nil {
		return Criteria{}, err
	}
	if c.MinPrice != nil && c.MaxPrice != nil && *c.MinPrice > *c.MaxPrice {
		return Criteria{}, fmt.Errorf("%s must not exceed %s", KeyMinPrice, KeyMaxPrice)
	}
	dates := []struct {
		key  Key
		dest **time.Time
	}{
		{KeyCreatedAfter, &c.CreatedAfter},
		{KeyCreatedBefore, &c.CreatedBefore},
		{KeyUpdatedAfter, &c.UpdatedAfter},
		{KeyUpdatedBefore, &c.UpdatedBefore},
	}
	for _, d := range dates {
		if *d.dest, err = parseDate(d.key, s.filters.Get(d.key)); err != nil {
			return Criteria{}, err
		}
	}
	return c, nil
}

// Match reports whether a product with the given attributes passes every bound.
// Zero timestamps never satisfy a date bound.
func (c Criteria) Match(title, link string, price float64, created, updated time.Time) bool {
	if c.Title != "" && !strings.Contains(strings.ToLower(title), strings.ToLower(c.Title)) {
		return false
	}
	if c.URL != "" && !strings.Contains(strings.ToLower(link), strings.ToLower(c.URL)) {
		return false
	}
	if c.MinPrice != nil && price < *c.MinPrice {
		return false
	}
	if c.MaxPrice != nil && price > *c.MaxPrice {
		return false
	}
	if !inRange(created, c.CreatedAfter, c.CreatedBefore) {
		return false
	}
	return inRange(updated, c.UpdatedAfter, c.UpdatedBefore)
}

func inRange(t time.Time, after, before *time.Time) bool {
	if after == nil && before == nil {
		return true
	}
	if t.IsZero() {
		return false
	}
	if after != nil && t.Before(*after) {
		return false
	}
	if before != nil && t.After(*before) {
		return false
	}
	return true
}

func parsePrice(k Key, value string) (*float64, error) {
	if value == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("%s: %q is not a number", k, value)
	}
	if f < 0 {
		return nil, fmt.Errorf("%s: must not be negative", k)
	}
	return &f, nil
}

// dateLayouts are accepted for date filters, most specific first.
var dateLayouts = []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"}

func parseDate(k Key, value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("%s: %q is not a date (use YYYY-MM-DD)", k, value)
}

// IsPrice reports whether k holds a price bound.
func IsPrice(k Key) bool { return k.isPrice() }

// IsDate reports whether k holds a date bound.
func IsDate(k Key) bool { return k.isDate() }
