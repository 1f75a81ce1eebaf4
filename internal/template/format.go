package template

import (
	"fmt"
	"math"
	"strings"
	"time"
)

const dateLayout = "02/01/2006"

// FormatCurrency renders a value as Brazilian currency: "R$ 1.234,56".
func FormatCurrency(value float64) string {
	cents := int64(math.Round(math.Abs(value) * 100))
	whole := cents / 100
	frac := cents % 100

	digits := fmt.Sprintf("%d", whole)
	var b strings.Builder
	for i, d := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(d)
	}

	sign := ""
	if value < 0 && cents > 0 {
		sign = "-"
	}
	return fmt.Sprintf("%sR$ %s,%02d", sign, b.String(), frac)
}

// FormatDate renders a stored date as dd/MM/yyyy. Raw values that do not
// parse are returned unchanged so legal prose never shows a zero date.
func FormatDate(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	layouts := []string{"2006-01-02", time.RFC3339, dateLayout}
	for _, layout := range layouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			return parsed.Format(dateLayout)
		}
	}
	return raw
}

// FormatTime renders a timestamp as dd/MM/yyyy.
func FormatTime(t time.Time) string {
	return t.Format(dateLayout)
}
