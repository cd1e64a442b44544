package pricing

import (
	"math"
	"strconv"
)

// CurrencySymbol is the symbol prefixed to formatted amounts.
const CurrencySymbol = "₹"

// FormatCurrency renders a non-negative amount as "₹<integer>" or, with
// decimals enabled, "₹<amount>.<2dp>". Invalid or negative amounts render as
// "₹0" so display code never sees a broken figure.
func FormatCurrency(amount float64, showDecimals bool) string {
	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount < 0 {
		amount = 0
	}
	if showDecimals {
		return CurrencySymbol + strconv.FormatFloat(amount, 'f', 2, 64)
	}
	return CurrencySymbol + strconv.FormatInt(int64(math.Round(amount)), 10)
}
