package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestToString(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"string", "abc", "abc"},
		{"int", 7, "7"},
		{"integral float", float64(7), "7"},
		{"fractional float", 1.5, "1.5"},
		{"bytes", []byte("x"), "x"},
		{"nil", nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ToString(tt.in))
		})
	}
}

func TestToInt64(t *testing.T) {
	assert.Equal(t, int64(3), ToInt64(3))
	assert.Equal(t, int64(3), ToInt64(float64(3)))
	assert.Equal(t, int64(42), ToInt64("42"))
	assert.Equal(t, int64(4), ToInt64("4.9"))
	assert.Equal(t, int64(0), ToInt64("nope"))
	assert.Equal(t, int64(0), ToInt64(map[string]any{}))
}

func TestToTime(t *testing.T) {
	ts, ok := ToTime("2024-05-01T10:00:00Z")
	assert.True(t, ok)
	assert.Equal(t, 2024, ts.Year())

	ts, ok = ToTime(float64(1700000000))
	assert.True(t, ok)
	assert.Equal(t, time.Unix(1700000000, 0).UTC(), ts)

	ts, ok = ToTime(int64(1700000000000))
	assert.True(t, ok)
	assert.Equal(t, time.UnixMilli(1700000000000).UTC(), ts)

	_, ok = ToTime("yesterday")
	assert.False(t, ok)
	_, ok = ToTime(nil)
	assert.False(t, ok)
}

func TestIsScalar(t *testing.T) {
	assert.True(t, IsScalar("1"))
	assert.True(t, IsScalar(1.0))
	assert.False(t, IsScalar(map[string]any{}))
	assert.False(t, IsScalar(nil))
}
