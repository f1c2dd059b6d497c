package catalog

import (
	"encoding/json"
	"testing"
	"time"
)

func TestProductUnmarshal_PriceVariants(t *testing.T) {
	cases := []struct {
		name string
		body string
		want float64
	}{
		{"number", `{"id":1,"price":19.9}`, 19.9},
		{"decimal string", `{"id":1,"price":"19.90"}`, 19.9},
		{"null price uses current_price", `{"id":1,"price":null,"current_price":7.5}`, 7.5},
		{"missing price uses current_price", `{"id":1,"current_price":"3"}`, 3},
		{"no price at all", `{"id":1}`, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var p Product
			if err := json.Unmarshal([]byte(tc.body), &p); err != nil {
				t.Fatalf("Unmarshal(%s) returned error: %v", tc.body, err)
			}
			if p.Price != tc.want {
				t.Fatalf("Price = %v, want %v", p.Price, tc.want)
			}
		})
	}
}

func TestProductUnmarshal_RejectsBadValues(t *testing.T) {
	for _, body := range []string{`{"title":"no id"}`, `{"id":1,"price":"cheap"}`, `{"id":1,"price":true}`} {
		var p Product
		if err := json.Unmarshal([]byte(body), &p); err == nil {
			t.Fatalf("Unmarshal(%s) returned nil error, want error", body)
		}
	}
}

func TestProductTimestamps(t *testing.T) {
	p := Product{
		CreatedAt: "2024-05-01T10:30:00Z",
		UpdatedAt: "2024-05-02T08:00:00.123456",
	}
	if got := p.ParsedCreatedAt(); !got.Equal(time.Date(2024, 5, 1, 10, 30, 0, 0, time.UTC)) {
		t.Fatalf("ParsedCreatedAt = %v", got)
	}
	if got := p.ParsedUpdatedAt(); got.IsZero() {
		t.Fatalf("ParsedUpdatedAt returned zero for FastAPI timestamp")
	}
	if got := (Product{CreatedAt: "soon"}).ParsedCreatedAt(); !got.IsZero() {
		t.Fatalf("ParsedCreatedAt(garbage) = %v, want zero", got)
	}
}

func TestProductInputValidate(t *testing.T) {
	valid := ProductInput{Title: "Desk", URL: "https://shop/desk", Price: 10}
	if err := valid.Validate(); err != nil {
		t.Fatalf("Validate returned error: %v", err)
	}
	invalid := []ProductInput{
		{URL: "u", Price: 1},
		{Title: "t", Price: 1},
		{Title: "t", URL: "u", Price: -1},
		{Title: "t", URL: "u", SourceWebsiteID: -2},
	}
	for _, in := range invalid {
		if err := in.Validate(); err == nil {
			t.Fatalf("Validate(%#v) returned nil error", in)
		}
	}
}
