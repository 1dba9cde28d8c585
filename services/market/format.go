package market

import (
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// FormatBRL renders a price in Brazilian reais, e.g. "R$38,45"
func FormatBRL(v float64) string {
	cents := decimal.NewFromFloat(v).Shift(2).Round(0).IntPart()
	return money.New(cents, money.BRL).Display()
}

// FormatPercent renders a percentage with two decimals and a comma separator
func FormatPercent(v float64) string {
	s := decimal.NewFromFloat(v).StringFixed(2)
	return strings.Replace(s, ".", ",", 1) + "%"
}

// FormatSignedPercent is FormatPercent with an explicit plus sign for gains
func FormatSignedPercent(v float64) string {
	if v >= 0 {
		return "+" + FormatPercent(v)
	}
	return FormatPercent(v)
}

var compactUnits = []struct {
	threshold decimal.Decimal
	suffix    string
}{
	{decimal.New(1, 12), " tri"},
	{decimal.New(1, 9), " bi"},
	{decimal.New(1, 6), " mi"},
	{decimal.New(1, 3), " mil"},
}

// FormatCompact renders large numbers in pt-BR short form, e.g. "520 bi", "2,5 bi"
func FormatCompact(v float64) string {
	d := decimal.NewFromFloat(v)
	for _, u := range compactUnits {
		if d.Abs().GreaterThanOrEqual(u.threshold) {
			return compactDigits(d.Div(u.threshold)) + u.suffix
		}
	}
	return compactDigits(d)
}

func compactDigits(d decimal.Decimal) string {
	return strings.Replace(d.Round(1).String(), ".", ",", 1)
}
