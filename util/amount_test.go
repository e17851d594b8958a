package util

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
)

func TestParseAmount(t *testing.T) {
	testCases := []struct {
		input    string
		denom    uint8
		expected uint64
		errStr   string
	}{
		{input: "10", denom: 6, expected: 10_000_000},
		{input: "1.5", denom: 6, expected: 1_500_000},
		{input: "0.000001", denom: 6, expected: 1},
		{input: " 3 ", denom: 0, expected: 3},
		{input: "0", denom: 6, expected: 0},
		{input: "", denom: 6, errStr: "amount is empty"},
		{input: "-1", denom: 6, errStr: "amount must not be negative"},
		{input: "0.0000001", denom: 6, errStr: "more than 6 decimal places"},
		{input: "1.1", denom: 0, errStr: "more than 0 decimal places"},
		{input: "ten", denom: 6, errStr: `invalid amount "ten"`},
	}
	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			v, err := ParseAmount(tc.input, tc.denom)
			if tc.errStr != "" {
				require.ErrorIs(t, err, ErrInvalidAmount)
				require.ErrorContains(t, err, tc.errStr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.expected, v.Uint64())
		})
	}
}

func TestParseAmount_Overflow(t *testing.T) {
	// 2^256 does not fit
	_, err := ParseAmount("115792089237316195423570985008687907853269984665640564039457584007913129639936", 0)
	require.ErrorContains(t, err, "amount is too large")
}

func TestFormatAmount(t *testing.T) {
	require.Equal(t, "0", FormatAmount(nil, 6))
	require.Equal(t, "10", FormatAmount(uint256.NewInt(10_000_000), 6))
	require.Equal(t, "1.5", FormatAmount(uint256.NewInt(1_500_000), 6))
	require.Equal(t, "0.000001", FormatAmount(uint256.NewInt(1), 6))
	require.Equal(t, "42", FormatAmount(uint256.NewInt(42), 0))

	s, err := FormatRawAmount("2500000", 6)
	require.NoError(t, err)
	require.Equal(t, "2.5", s)

	_, err = FormatRawAmount("x", 6)
	require.ErrorIs(t, err, ErrInvalidAmount)
}
