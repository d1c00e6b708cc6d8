package core

import (
	"math"
	"strings"
)

// CleanString trims all leading and trailing whitespace in `s` and optionally lowers it.
func CleanString(s string, lower ...bool) string {
	s = strings.TrimSpace(s)
	if len(lower) > 0 && lower[0] {
		return strings.ToLower(s)
	}
	return s
}

// RoundCents rounds an amount to 2 decimal places, half away from zero.
func RoundCents(amount float64) float64 {
	return math.Round(amount*100) / 100
}
