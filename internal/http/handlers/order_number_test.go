package handlers

import (
	"strings"
	"testing"
	"time"
)

func TestGenerateOrderNumber(t *testing.T) {
	got := generateOrderNumber("ORD")

	parts := strings.Split(got, "-")
	if len(parts) != 3 {
		t.Fatalf("expected PREFIX-DATE-SUFFIX, got %s", got)
	}
	if parts[0] != "ORD" {
		t.Fatalf("expected ORD prefix, got %s", parts[0])
	}
	if _, err := time.Parse("20060102", parts[1]); err != nil {
		t.Fatalf("expected date segment, got %s", parts[1])
	}
	if len(parts[2]) != 6 || parts[2] != strings.ToUpper(parts[2]) {
		t.Fatalf("expected 6 uppercase suffix chars, got %s", parts[2])
	}

	if generateOrderNumber("ORD") == got {
		t.Fatal("expected distinct suffixes across calls")
	}
}

func TestSanitizeFilename(t *testing.T) {
	cases := []struct {
		name     string
		in       string
		expected string
	}{
		{name: "clean value untouched", in: "ORD-20260831-A1B2C3", expected: "ORD-20260831-A1B2C3"},
		{name: "spaces and symbols collapse", in: "ORD #12 (copy)", expected: "ORD_12_copy"},
		{name: "edges trimmed", in: "!!receipt!!", expected: "receipt"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := sanitizeFilename(tc.in); got != tc.expected {
				t.Fatalf("expected %s, got %s", tc.expected, got)
			}
		})
	}
}

func TestValidateStepBounds(t *testing.T) {
	cases := []struct {
		name     string
		min, max int32
		ok       bool
	}{
		{name: "exact pick", min: 2, max: 2, ok: true},
		{name: "optional range", min: 0, max: 3, ok: true},
		{name: "min above max", min: 4, max: 2, ok: false},
		{name: "negative min", min: -1, max: 2, ok: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := validateStepBounds(tc.min, tc.max); got != tc.ok {
				t.Fatalf("expected %v, got %v", tc.ok, got)
			}
		})
	}
}
