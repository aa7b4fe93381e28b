package util

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/dan13ram/squads-treasury/common"
)

var maxUint64 = decimal.NewFromUint64(math.MaxUint64)

// maxUint64Digits is the number of decimal digits in math.MaxUint64.
const maxUint64Digits = 20

// ToBaseUnits converts a human readable amount into the asset's smallest
// unit. The amount must be positive and exactly representable.
func ToBaseUnits(amount string, decimals uint8) (uint64, error) {
	value, err := decimal.NewFromString(amount)
	if err != nil {
		return 0, common.NewValidationError("amount", "%q is not a number", amount)
	}
	if !value.IsPositive() {
		return 0, common.NewValidationError("amount", "must be greater than zero")
	}

	// Rejected from the exponent alone so huge exponents are never expanded.
	if int64(value.NumDigits())+int64(value.Exponent())+int64(decimals) > maxUint64Digits {
		return 0, common.NewValidationError("amount", "too large")
	}
	units := value.Shift(int32(decimals))
	if !units.IsInteger() {
		return 0, common.NewValidationError("amount", "more than %d decimal places", decimals)
	}
	if units.GreaterThan(maxUint64) {
		return 0, common.NewValidationError("amount", "too large")
	}
	return units.BigInt().Uint64(), nil
}

func FromBaseUnits(units uint64, decimals uint8) string {
	return decimal.NewFromUint64(units).Shift(-int32(decimals)).String()
}
