package pricing

import (
	"math"
	"testing"
)

func TestFormatCurrency(t *testing.T) {
	cases := []struct {
		amount   float64
		decimals bool
		want     string
	}{
		{0, false, "₹0"},
		{math.NaN(), false, "₹0"},
		{-12, false, "₹0"},
		{99.5, true, "₹99.50"},
		{99.5, false, "₹100"},
		{1250, false, "₹1250"},
	}
	for _, c := range cases {
		if got := FormatCurrency(c.amount, c.decimals); got != c.want {
			t.Fatalf("FormatCurrency(%v, %v) = %q, want %q", c.amount, c.decimals, got, c.want)
		}
	}
}
