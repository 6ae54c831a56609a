package db

import (
	"time"

	"github.com/shopspring/decimal"
)

// coerceAmount converts a raw Firestore field value into a decimal amount.
// Documents written by older seeders carry integers, doubles or numeric
// strings; anything unparseable (including NaN/Inf doubles) coerces to zero
// so a bad row never poisons a revenue sum.
func coerceAmount(v interface{}) decimal.Decimal {
	switch val := v.(type) {
	case float64:
		if val != val || val > 1e15 || val < -1e15 { // NaN or absurd magnitude
			return decimal.Zero
		}
		return decimal.NewFromFloat(val)
	case float32:
		return coerceAmount(float64(val))
	case int:
		return decimal.NewFromInt(int64(val))
	case int64:
		return decimal.NewFromInt(val)
	case int32:
		return decimal.NewFromInt(int64(val))
	case string:
		if d, err := decimal.NewFromString(val); err == nil {
			return d
		}
	}
	return decimal.Zero
}

// coerceTime converts a raw Firestore field value into a time.Time. Firestore
// timestamps decode to time.Time; legacy rows occasionally hold RFC 3339
// strings. Anything else yields the zero time.
func coerceTime(v interface{}) time.Time {
	switch val := v.(type) {
	case time.Time:
		return val
	case string:
		if t, err := time.Parse(time.RFC3339, val); err == nil {
			return t
		}
	}
	return time.Time{}
}
