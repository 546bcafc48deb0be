package cleaner

import (
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// The raw store mixes strings, numbers and booleans for the same logical
// field. Every conversion below is total: any input yields a value.

// coerceInt maps a number to its integer part and an all-digit string to its
// value. Everything else, including negative or fractional strings, is 0.
func coerceInt(r gjson.Result) int {
	switch r.Type {
	case gjson.Number:
		return int(r.Int())
	case gjson.String:
		return digitsOr(r.Str, 0)
	default:
		return 0
	}
}

// coerceCount is coerceInt with a default of 1 for missing or non-numeric
// values. Counts below 1 are raised to 1.
func coerceCount(r gjson.Result) int {
	n := 1
	switch r.Type {
	case gjson.Number:
		n = int(r.Int())
	case gjson.String:
		n = digitsOr(r.Str, 1)
	}
	if n < 1 {
		return 1
	}
	return n
}

// coerceBool is true for a native true, a non-zero number or a string equal
// to "true" ignoring case. Strings such as "1" and "yes" are false.
func coerceBool(r gjson.Result) bool {
	switch r.Type {
	case gjson.True:
		return true
	case gjson.Number:
		return r.Num != 0
	case gjson.String:
		return strings.EqualFold(r.Str, "true")
	default:
		return false
	}
}

func digitsOr(s string, def int) int {
	if s == "" {
		return def
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return def
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
