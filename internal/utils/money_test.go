package utils

import "testing"

func TestFormatRupees(t *testing.T) {
	cases := []struct {
		paise int64
		want  string
	}{
		{0, "Rs 0.00"},
		{50, "Rs 0.50"},
		{100000, "Rs 1,000.00"},
		{123450, "Rs 1,234.50"},
		{100000000, "Rs 1,000,000.00"},
		{-250075, "-Rs 2,500.75"},
	}
	for _, tc := range cases {
		if got := FormatRupees(tc.paise); got != tc.want {
			t.Fatalf("FormatRupees(%d) = %q want %q", tc.paise, got, tc.want)
		}
	}
}

func TestPercentOf(t *testing.T) {
	if got := PercentOf(100000, 50); got != 50000 {
		t.Fatalf("50%% of 100000 = %d", got)
	}
	if got := PercentOf(100000, 100); got != 100000 {
		t.Fatalf("100%% should return the full amount, got %d", got)
	}
	if got := PercentOf(100000, 150); got != 100000 {
		t.Fatalf("over 100%% caps at the full amount, got %d", got)
	}
	if got := PercentOf(100000, 0); got != 0 {
		t.Fatalf("0%% should be zero, got %d", got)
	}
	if got := PercentOf(-5, 50); got != 0 {
		t.Fatalf("negative amounts never refund, got %d", got)
	}
	// Truncation, never rounding up.
	if got := PercentOf(99, 50); got != 49 {
		t.Fatalf("expected truncation to 49, got %d", got)
	}
}
