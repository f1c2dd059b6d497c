package ui

import (
	"math"
	"strconv"
	"strings"
	"time"
)

const (
	notAvailable = "N/A"
	noTitle      = "No Title"
	dateLayout   = "2006-01-02 15:04"
)

// formatPrice renders a price with two decimals and thousands separators.
// Zero means the backend had no price.
func formatPrice(price float64) string {
	if price == 0 || math.IsNaN(price) || math.IsInf(price, 0) {
		return notAvailable
	}
	neg := price < 0
	cents := int64(math.Round(math.Abs(price) * 100))
	whole := strconv.FormatInt(cents/100, 10)
	frac := cents % 100

	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	b.WriteByte('.')
	if frac < 10 {
		b.WriteByte('0')
	}
	b.WriteString(strconv.FormatInt(frac, 10))
	return b.String()
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return notAvailable
	}
	return t.Local().Format(dateLayout)
}

func displayTitle(title string) string {
	if strings.TrimSpace(title) == "" {
		return noTitle
	}
	return strings.TrimSpace(title)
}

// truncate shortens a string to the given limit, adding ellipsis if needed.
func truncate(value string, limit int) string {
	value = strings.TrimSpace(value)
	if limit <= 0 {
		return value
	}
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	if limit <= 3 {
		return string(runes[:limit])
	}
	return string(runes[:limit-3]) + "..."
}

// hostOf strips the scheme from a base URL for the header.
func hostOf(raw string) string {
	raw = strings.TrimPrefix(raw, "http://")
	raw = strings.TrimPrefix(raw, "https://")
	return strings.TrimSuffix(raw, "/")
}
