package shared

import (
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var vndPrinter = message.NewPrinter(language.Vietnamese)

// FormatVND renders an amount in Vietnamese Dong with no decimals,
// e.g. 15000000 -> "15.000.000 ₫".
func FormatVND(amount decimal.Decimal) string {
	return vndPrinter.Sprintf("%d ₫", amount.Round(0).IntPart())
}

// RoundDong rounds to whole đồng, half away from zero.
func RoundDong(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(0)
}
