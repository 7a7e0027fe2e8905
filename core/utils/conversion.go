package utils

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// ToInt64 converts various types to int64 using explicit type switching.
// It handles standard integer types, floats, strings, and byte slices.
// Values that cannot be converted yield 0.
func ToInt64(val any) int64 {
	switch v := val.(type) {
	case int:
		return int64(v)
	case int64:
		return v
	case int32:
		return int64(v)
	case int16:
		return int64(v)
	case int8:
		return int64(v)
	case uint:
		return int64(v)
	case uint64:
		return int64(v)
	case uint32:
		return int64(v)
	case uint16:
		return int64(v)
	case uint8:
		return int64(v)
	case float64:
		return int64(v)
	case float32:
		return int64(v)
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			f, ferr := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if ferr != nil {
				return 0
			}
			return int64(f)
		}
		return i
	case []byte:
		return ToInt64(string(v))
	default:
		return 0
	}
}

// ToString converts various types to string.
// Integral floats are rendered without a fractional part so that JSON numbers
// decoded as float64 produce the same key as their integer form ("7", not "7.000000").
func ToString(val any) string {
	switch v := val.(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	case float64:
		if v == math.Trunc(v) && !math.IsInf(v, 0) {
			return strconv.FormatInt(int64(v), 10)
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return ToString(float64(v))
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}

// IsScalar reports whether val is a string or number, i.e. something usable as an id.
func IsScalar(val any) bool {
	switch val.(type) {
	case string, int, int64, int32, int16, int8, uint, uint64, uint32, uint16, uint8, float64, float32:
		return true
	default:
		return false
	}
}

// ToTime converts a timestamp value to time.Time.
// It accepts time.Time, RFC3339 strings and numeric epoch values
// (milliseconds when the magnitude suggests it, seconds otherwise).
func ToTime(val any) (time.Time, bool) {
	switch v := val.(type) {
	case time.Time:
		return v, true
	case *time.Time:
		if v == nil {
			return time.Time{}, false
		}
		return *v, true
	case string:
		if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
			return t, true
		}
		if n := ToInt64(v); n != 0 {
			return epoch(n), true
		}
		return time.Time{}, false
	case nil:
		return time.Time{}, false
	default:
		if !IsScalar(v) {
			return time.Time{}, false
		}
		return epoch(ToInt64(v)), true
	}
}

func epoch(n int64) time.Time {
	// Magnitudes beyond 1e12 are treated as milliseconds.
	if n > 1e12 || n < -1e12 {
		return time.UnixMilli(n).UTC()
	}
	return time.Unix(n, 0).UTC()
}
