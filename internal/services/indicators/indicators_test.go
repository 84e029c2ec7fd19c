package indicators

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ramp(n int, start, step float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	return out
}

func TestShortInputReturnsNil(t *testing.T) {
	assert.Nil(t, RSI(ramp(14, 1, 1), 14))
	assert.Nil(t, SMA(ramp(4, 1, 1), 5))
	u, m, l := Bollinger(ramp(10, 1, 1), 20, 2)
	assert.Nil(t, u)
	assert.Nil(t, m)
	assert.Nil(t, l)
}

func TestSMA(t *testing.T) {
	got := SMA([]float64{1, 2, 3, 4, 5}, 5)
	require.Len(t, got, 5)
	last, ok := Last(got)
	require.True(t, ok)
	assert.InDelta(t, 3.0, last, 1e-9)
}

func TestRSIExtremes(t *testing.T) {
	up := RSI(ramp(40, 100, 1), 14)
	last, _ := Last(up)
	assert.InDelta(t, 100.0, last, 1e-6)

	down := RSI(ramp(40, 100, -1), 14)
	last, _ = Last(down)
	assert.InDelta(t, 0.0, last, 1e-6)
}

func TestBollingerOrdering(t *testing.T) {
	closes := make([]float64, 40)
	for i := range closes {
		closes[i] = 100 + 3*math.Sin(float64(i))
	}
	u, m, l := Bollinger(closes, 20, 2)
	require.Len(t, u, 40)
	assert.Greater(t, u[39], m[39])
	assert.Greater(t, m[39], l[39])
	assert.InDelta(t, Mean(closes[20:]), m[39], 1e-9)
}

func TestPercentB(t *testing.T) {
	assert.InDelta(t, 0.5, PercentB(100, 110, 90), 1e-9)
	assert.InDelta(t, 0.0, PercentB(90, 110, 90), 1e-9)
	assert.Less(t, PercentB(80, 110, 90), 0.0)
	assert.Equal(t, 0.0, PercentB(90, 90, 90))
	assert.Equal(t, 1.0, PercentB(95, 90, 90))
}

func TestCrossedAbove(t *testing.T) {
	tests := []struct {
		name   string
		series []float64
		want   bool
	}{
		{"fresh cross on last bar", []float64{40, 45, 48, 52}, true},
		{"cross two bars ago", []float64{40, 48, 53, 55}, true},
		{"cross outside window", []float64{48, 53, 55, 57, 60}, false},
		{"sustained above", []float64{55, 56, 58, 60}, false},
		{"crossed then fell back", []float64{45, 52, 49}, false},
		{"touching level is not a cross", []float64{45, 50, 51}, false},
		{"too short", []float64{60}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CrossedAbove(tt.series, 50, 3))
		})
	}
}

func TestMeanAndChange(t *testing.T) {
	assert.Equal(t, 0.0, Mean(nil))
	assert.InDelta(t, 2.5, Mean([]float64{1, 2, 3, 4}), 1e-9)
	assert.InDelta(t, -6.0, PercentChange(100, 94), 1e-9)
	assert.Equal(t, 0.0, PercentChange(0, 10))
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 0.0, Clamp(-5, 0, 100))
	assert.Equal(t, 100.0, Clamp(140, 0, 100))
	assert.Equal(t, 42.0, Clamp(42, 0, 100))
	assert.Equal(t, 0.0, Clamp(math.NaN(), 0, 100))
}

func TestRange(t *testing.T) {
	hi, lo, ok := Range([]float64{10, 12, 11}, []float64{9, 8.5, 10})
	require.True(t, ok)
	assert.Equal(t, 12.0, hi)
	assert.Equal(t, 8.5, lo)

	_, _, ok = Range([]float64{10}, []float64{9})
	assert.False(t, ok)
	_, _, ok = Range([]float64{10, 11}, []float64{9})
	assert.False(t, ok)
}
