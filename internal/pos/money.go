package pos

import "github.com/shopspring/decimal"

// Money is stored as integer cents; decimals only appear at the
// parse/format boundary.

var centsFactor = decimal.NewFromInt(100)

func CentsFromDecimal(d decimal.Decimal) int64 {
	return d.Mul(centsFactor).Round(0).IntPart()
}

func FormatCents(cents int64) string {
	return decimal.New(cents, -2).StringFixed(2)
}

// ParseAmount parses a decimal money string ("12.50") into cents.
func ParseAmount(s string) (int64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, err
	}
	return CentsFromDecimal(d), nil
}

// ParseTip coerces malformed or negative tip input to zero instead of
// failing; the till UI sends whatever the waiter typed.
func ParseTip(s string) int64 {
	if s == "" {
		return 0
	}
	d, err := decimal.NewFromString(s)
	if err != nil || d.IsNegative() {
		return 0
	}
	return CentsFromDecimal(d)
}
