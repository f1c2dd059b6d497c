package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const backendTimestampLayout = "2006-01-02 15:04:05"

// Product mirrors a record returned by /products/.
type Product struct {
	ID        int64   `json:"id"`
	Title     string  `json:"title"`
	Price     float64 `json:"price"`
	URL       string  `json:"url,omitempty"`
	CreatedAt string  `json:"created_at,omitempty"`
	UpdatedAt string  `json:"updated_at,omitempty"`
}

// UnmarshalJSON accepts prices encoded as numbers or decimal strings, and falls
// back to current_price when price is absent.
func (p *Product) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID           json.Number     `json:"id"`
		Title        string          `json:"title"`
		Price        json.RawMessage `json:"price"`
		CurrentPrice json.RawMessage `json:"current_price"`
		URL          string          `json:"url"`
		CreatedAt    string          `json:"created_at"`
		UpdatedAt    string          `json:"updated_at"`
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return err
	}

	id, err := raw.ID.Int64()
	if err != nil {
		return fmt.Errorf("product id %q: %w", raw.ID, err)
	}

	priceField := raw.Price
	if isNullOrEmpty(priceField) {
		priceField = raw.CurrentPrice
	}
	price, err := parseFlexibleNumber(priceField)
	if err != nil {
		return fmt.Errorf("product %d price: %w", id, err)
	}

	*p = Product{
		ID:        id,
		Title:     raw.Title,
		Price:     price,
		URL:       raw.URL,
		CreatedAt: raw.CreatedAt,
		UpdatedAt: raw.UpdatedAt,
	}
	return nil
}

func isNullOrEmpty(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

func parseFlexibleNumber(raw json.RawMessage) (float64, error) {
	if isNullOrEmpty(raw) {
		return 0, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.Float64()
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, fmt.Errorf("unsupported value %s", raw)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	return strconv.ParseFloat(s, 64)
}

// ParsedCreatedAt returns the parsed CreatedAt timestamp.
func (p Product) ParsedCreatedAt() time.Time {
	return parseTime(p.CreatedAt)
}

// ParsedUpdatedAt returns the parsed UpdatedAt timestamp.
func (p Product) ParsedUpdatedAt() time.Time {
	return parseTime(p.UpdatedAt)
}

// Stats mirrors /products/stats/.
type Stats struct {
	TotalProducts int64 `json:"total_products"`
}

// ProductInput is the body of POST /products/.
type ProductInput struct {
	Title           string  `json:"title"`
	URL             string  `json:"url"`
	Price           float64 `json:"price"`
	Description     string  `json:"description,omitempty"`
	City            string  `json:"city,omitempty"`
	State           string  `json:"state,omitempty"`
	Condition       string  `json:"condition,omitempty"`
	SourceWebsiteID int64   `json:"source_website_id,omitempty"`
}

// Validate reports the first missing or invalid field.
func (in ProductInput) Validate() error {
	if strings.TrimSpace(in.Title) == "" {
		return fmt.Errorf("title is required")
	}
	if strings.TrimSpace(in.URL) == "" {
		return fmt.Errorf("url is required")
	}
	if in.Price < 0 {
		return fmt.Errorf("price must not be negative")
	}
	if in.SourceWebsiteID < 0 {
		return fmt.Errorf("source website id must not be negative")
	}
	return nil
}

func parseTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05.999999", "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	if t, err := time.ParseInLocation(backendTimestampLayout, value, time.Local); err == nil {
		return t
	}
	return time.Time{}
}
