package utils

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitEvenlyKeepsTotal(t *testing.T) {
	parts := SplitEvenly(decimal.NewFromInt(100), 3)
	require.Len(t, parts, 3)
	assert.Equal(t, "33.33", parts[0].StringFixed(2))
	assert.Equal(t, "33.33", parts[1].StringFixed(2))
	assert.Equal(t, "33.34", parts[2].StringFixed(2))

	sum := decimal.Zero
	for _, p := range parts {
		sum = sum.Add(p)
	}
	assert.True(t, sum.Equal(decimal.NewFromInt(100)))
}

func TestSplitEvenlySinglePart(t *testing.T) {
	parts := SplitEvenly(decimal.RequireFromString("49.999"), 1)
	require.Len(t, parts, 1)
	assert.Equal(t, "50.00", parts[0].StringFixed(2))
}

func TestParseMoney(t *testing.T) {
	cases := map[string]string{
		"1.234,50":  "1234.5",
		"1234.50":   "1234.5",
		"R$ 10":     "10",
		"Rp 15.000": "15.000",
	}
	for in, want := range cases {
		got, err := ParseMoney(in)
		require.NoError(t, err, in)
		assert.True(t, got.Equal(decimal.RequireFromString(want)), "%s => %s", in, got)
	}

	_, err := ParseMoney("  ")
	assert.Error(t, err)
}

func TestFormatMoney(t *testing.T) {
	assert.Equal(t, "BRL 1.234,50", FormatMoney(decimal.RequireFromString("1234.5"), "brl"))
	assert.Equal(t, "BRL -7,00", FormatMoney(decimal.NewFromInt(-7), "BRL"))
}
