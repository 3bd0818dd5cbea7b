package catalog

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// PriceLocale is the locale used for every rendered price.
var PriceLocale = language.Indonesian

const (
	currencyPrefix = "Rp "
	monthlySuffix  = "/bulan"
)

// FormatPrice renders an amount with thousands grouping and no decimals,
// e.g. 200000 -> "Rp 200.000".
func FormatPrice(amount int64) string {
	// message.Printer keeps a scratch buffer, so one per call.
	p := message.NewPrinter(PriceLocale)
	return currencyPrefix + p.Sprintf("%d", amount)
}

// FormatMonthlyPrice renders an amount as a monthly fee, e.g. "Rp 200.000/bulan".
func FormatMonthlyPrice(amount int64) string {
	return FormatPrice(amount) + monthlySuffix
}
