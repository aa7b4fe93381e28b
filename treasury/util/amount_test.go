package util

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/dan13ram/squads-treasury/common"
)

func TestToBaseUnits(t *testing.T) {
	testCases := []struct {
		name     string
		amount   string
		decimals uint8
		expected uint64
		valid    bool
	}{
		{"Whole Sol", "1", 9, 1_000_000_000, true},
		{"Fractional Sol", "0.000000001", 9, 1, true},
		{"Token", "12.5", 6, 12_500_000, true},
		{"No Decimals", "42", 0, 42, true},
		{"Zero", "0", 9, 0, false},
		{"Negative", "-1", 9, 0, false},
		{"Too Precise", "0.0000000001", 9, 0, false},
		{"Not A Number", "abc", 9, 0, false},
		{"NaN", "NaN", 9, 0, false},
		{"Infinity", "Inf", 9, 0, false},
		{"Overflow", "18446744073709551616", 0, 0, false},
		{"Max", "18446744073709551615", 0, 18446744073709551615, true},
		{"Scientific", "1.5e3", 0, 1500, true},
		{"Scientific Overflow", "1e11", 9, 0, false},
		{"Huge Exponent", "1e20000000", 9, 0, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			units, err := ToBaseUnits(tc.amount, tc.decimals)
			if tc.valid {
				assert.NoError(t, err)
				assert.Equal(t, tc.expected, units)
			} else {
				var validationErr *common.ValidationError
				assert.True(t, errors.As(err, &validationErr))
			}
		})
	}
}

func TestToBaseUnits_HugeExponent(t *testing.T) {
	start := time.Now()

	_, err := ToBaseUnits("1e2000000000", 9)

	assert.ErrorContains(t, err, "too large")
	assert.Less(t, time.Since(start), time.Second)
}

func TestFromBaseUnits(t *testing.T) {
	assert.Equal(t, "1.5", FromBaseUnits(1_500_000_000, 9))
	assert.Equal(t, "0", FromBaseUnits(0, 6))
	assert.Equal(t, "42", FromBaseUnits(42, 0))
}
