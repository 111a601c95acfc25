// Package validation collects per-field violations as translation codes.
package validation

import (
	"math"
	"net/mail"
	"strconv"
	"strings"
)

type Violations map[string]string

func (v Violations) Empty() bool { return len(v) == 0 }

// Add records code for field unless the field already has a violation.
func (v Violations) Add(field, code string) {
	if _, exists := v[field]; !exists {
		v[field] = code
	}
}

func Required(field, value string, v Violations) {
	if strings.TrimSpace(value) == "" {
		v.Add(field, "required")
	}
}

// RequireAll marks every listed field missing from values.
func RequireAll(values map[string]string, fields []string, v Violations) {
	for _, f := range fields {
		Required(f, values[f], v)
	}
}

func PositiveFloat(field string, val float64, v Violations) {
	if val <= 0 {
		v.Add(field, "must_be_positive")
	}
}

func NonNegativeFloat(field string, val float64, v Violations) {
	if val < 0 {
		v.Add(field, "must_not_be_negative")
	}
}

// Email accepts an empty value; combine with Required when mandatory.
func Email(field, value string, v Violations) {
	if value == "" {
		return
	}
	if _, err := mail.ParseAddress(value); err != nil {
		v.Add(field, "invalid_email")
	}
}

// Int parses value, recording not_a_number on failure.
func Int(field, value string, v Violations) int {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		v.Add(field, "not_a_number")
		return 0
	}
	return n
}

// Float parses value, recording not_a_number on failure. NaN and the
// infinities are not numbers here.
func Float(field, value string, v Violations) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		v.Add(field, "not_a_number")
		return 0
	}
	return f
}
