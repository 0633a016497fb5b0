package report

import (
	"strings"

	"github.com/shopspring/decimal"
)

// FormatBRL renders an amount as "R$ 1.234.567,80".
func FormatBRL(v decimal.Decimal) string {
	fixed := v.StringFixed(2)

	sign := ""
	if strings.HasPrefix(fixed, "-") {
		sign = "-"
		fixed = fixed[1:]
	}
	intPart, frac, _ := strings.Cut(fixed, ".")

	var b strings.Builder
	b.WriteString("R$ ")
	b.WriteString(sign)
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	b.WriteByte(',')
	b.WriteString(frac)
	return b.String()
}

// FormatNullBRL formats a possibly missing amount; missing renders as "".
func FormatNullBRL(v decimal.NullDecimal) string {
	if !v.Valid {
		return ""
	}
	return FormatBRL(v.Decimal)
}
