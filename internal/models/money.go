package models

import (
	"errors"

	"github.com/shopspring/decimal"
)

// Amounts travel the wire as decimals ("30.00") and live in the ledger as
// int64 minor units. The conversion is exact; anything finer than a cent
// is rejected rather than rounded.

var ErrAmountPrecision = errors.New("amount has more than two decimal places")

var minorFactor = decimal.NewFromInt(100)

// ToMinorUnits converts a decimal currency amount to minor units.
func ToMinorUnits(d decimal.Decimal) (int64, error) {
	scaled := d.Mul(minorFactor)
	if !scaled.IsInteger() {
		return 0, ErrAmountPrecision
	}
	return scaled.IntPart(), nil
}

// FromMinorUnits converts minor units back to a decimal amount.
func FromMinorUnits(v int64) decimal.Decimal {
	return decimal.New(v, -2)
}

// FormatMinor renders minor units as a fixed two-decimal string.
func FormatMinor(v int64) string {
	return FromMinorUnits(v).StringFixed(2)
}
