package normalize

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var zeroDecimal = decimal.Zero

// Date layouts accepted by safeDate, tried in order.
var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006/01/02",
	"02-01-2006",
	"01/02/2006",
	"Jan 2, 2006",
	"2 Jan 2006",
}

// safeInt parses an integer, truncating float strings the way parseInt-style
// readers do. Empty or unparsable input yields 0.
func safeInt(s string) int64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return int64(f)
	}
	return 0
}

// safeDecimal parses a decimal amount, falling back to zero.
func safeDecimal(s string) decimal.Decimal {
	s = strings.TrimSpace(s)
	if s == "" {
		return zeroDecimal
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return zeroDecimal
	}
	return d
}

// safeDate parses a date, returning nil on anything unparsable. The actual
// failure signal is deferred to the validator's invalid-date reason.
func safeDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}

// Value-typed variants for API objects, where JSON decoding hands us
// strings, float64s or nils.

func safeString(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case int:
		return strconv.Itoa(s)
	case int64:
		return strconv.FormatInt(s, 10)
	case bool:
		return strconv.FormatBool(s)
	default:
		return ""
	}
}

func safeIntValue(v any) int64 {
	switch n := v.(type) {
	case nil:
		return 0
	case float64:
		return int64(n)
	case int:
		return int64(n)
	case int64:
		return n
	case string:
		return safeInt(n)
	default:
		return 0
	}
}

func safeDecimalValue(v any) decimal.Decimal {
	switch n := v.(type) {
	case nil:
		return zeroDecimal
	case float64:
		return decimal.NewFromFloat(n)
	case int:
		return decimal.NewFromInt(int64(n))
	case int64:
		return decimal.NewFromInt(n)
	case string:
		return safeDecimal(n)
	default:
		return zeroDecimal
	}
}

func safeDateValue(v any) *time.Time {
	switch d := v.(type) {
	case nil:
		return nil
	case string:
		return safeDate(d)
	case time.Time:
		u := d.UTC()
		return &u
	default:
		return nil
	}
}
