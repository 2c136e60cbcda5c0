package utils

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// RoundMoney keeps two decimal places, rounding half away from zero.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// FormatMoney renders amount with the currency code, e.g. "BRL 1.234,50".
func FormatMoney(amount decimal.Decimal, currency string) string {
	sign := ""
	if amount.IsNegative() {
		sign = "-"
		amount = amount.Neg()
	}
	str := amount.StringFixed(2)
	intPart, frac, _ := strings.Cut(str, ".")
	return fmt.Sprintf("%s %s%s,%s", strings.ToUpper(currency), sign, formatThousand(intPart), frac)
}

// ParseMoney accepts "1.234,50", "1234.50" or "R$ 10" style input.
func ParseMoney(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimLeft(s, "R$Rp ")
	s = strings.ReplaceAll(s, " ", "")
	if strings.Contains(s, ",") {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	}
	if s == "" {
		return decimal.Zero, fmt.Errorf("invalid amount")
	}
	return decimal.NewFromString(s)
}

// SplitEvenly divides total into n parts of whole cents; the last part absorbs the remainder.
func SplitEvenly(total decimal.Decimal, n int) []decimal.Decimal {
	if n <= 1 {
		return []decimal.Decimal{RoundMoney(total)}
	}
	cents := total.Mul(hundred).Round(0)
	part := cents.Div(decimal.NewFromInt(int64(n))).Floor()
	out := make([]decimal.Decimal, n)
	acc := decimal.Zero
	for i := 0; i < n-1; i++ {
		out[i] = part.Div(hundred)
		acc = acc.Add(part)
	}
	out[n-1] = cents.Sub(acc).Div(hundred)
	return out
}

func formatThousand(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	var out strings.Builder
	for i, c := range digits {
		if i != 0 && (len(digits)-i)%3 == 0 {
			out.WriteByte('.')
		}
		out.WriteRune(c)
	}
	return out.String()
}
