package cli

import (
	"fmt"
	"math"
	"math/big"

	"github.com/shopspring/decimal"
)

// decimals is the number of base-unit digits in one native unit.
const decimals = 9

var maxAmount = decimal.NewFromBigInt(new(big.Int).SetUint64(math.MaxInt64), -decimals)

// ParseAmount converts a native-unit decimal such as "1.5" to base units.
func ParseAmount(s string) (uint64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q", s)
	}
	if !d.IsPositive() {
		return 0, fmt.Errorf("amount must be positive")
	}
	if d.Exponent() < -decimals && !d.Equal(d.Truncate(decimals)) {
		return 0, fmt.Errorf("amount %q has more than %d decimals", s, decimals)
	}
	if d.GreaterThan(maxAmount) {
		return 0, fmt.Errorf("amount %q is too large", s)
	}
	return d.Shift(decimals).BigInt().Uint64(), nil
}

// FormatAmount renders base units as a native-unit decimal.
func FormatAmount(units uint64) string {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(units), -decimals).String()
}
