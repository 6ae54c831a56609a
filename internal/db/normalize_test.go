package db

import (
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestCoerceAmount(t *testing.T) {
	tests := []struct {
		name string
		in   interface{}
		want decimal.Decimal
	}{
		{name: "double", in: 159.0, want: decimal.NewFromInt(159)},
		{name: "integer", in: int64(1500), want: decimal.NewFromInt(1500)},
		{name: "numeric string", in: "42.50", want: decimal.RequireFromString("42.50")},
		{name: "NaN coerces to zero", in: math.NaN(), want: decimal.Zero},
		{name: "infinity coerces to zero", in: math.Inf(1), want: decimal.Zero},
		{name: "garbage string coerces to zero", in: "one hundred", want: decimal.Zero},
		{name: "nil coerces to zero", in: nil, want: decimal.Zero},
		{name: "wrong type coerces to zero", in: true, want: decimal.Zero},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			require.True(t, tc.want.Equal(coerceAmount(tc.in)),
				"got %s, want %s", coerceAmount(tc.in), tc.want)
		})
	}
}

func TestCoerceTime(t *testing.T) {
	ts := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	require.Equal(t, ts, coerceTime(ts))
	require.Equal(t, ts, coerceTime("2026-03-15T12:00:00Z"))
	require.True(t, coerceTime("15/03/2026").IsZero())
	require.True(t, coerceTime(nil).IsZero())
	require.True(t, coerceTime(1742040000).IsZero())
}
