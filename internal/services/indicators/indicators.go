// Package indicators wraps go-talib with the length guards the engine relies on.
// talib panics or emits leading zeros on short input; callers here get nil instead.
package indicators

import (
	"math"

	talib "github.com/markcheno/go-talib"
)

// RSI returns Wilder's RSI aligned with closes, or nil if there are not enough bars.
// Values before index period are zero.
func RSI(closes []float64, period int) []float64 {
	if period < 2 || len(closes) <= period {
		return nil
	}
	return talib.Rsi(closes, period)
}

// SMA returns the simple moving average aligned with values, or nil if too short.
func SMA(values []float64, period int) []float64 {
	if period < 1 || len(values) < period {
		return nil
	}
	return talib.Sma(values, period)
}

// Bollinger returns upper, middle and lower bands using an SMA basis.
func Bollinger(closes []float64, period int, k float64) (upper, middle, lower []float64) {
	if period < 2 || len(closes) < period {
		return nil, nil, nil
	}
	return talib.BBands(closes, period, k, k, talib.SMA)
}

// Range returns the highest high and lowest low over the whole input.
func Range(highs, lows []float64) (hi, lo float64, ok bool) {
	if len(highs) < 2 || len(highs) != len(lows) {
		return 0, 0, false
	}
	hi, _ = Last(talib.Max(highs, len(highs)))
	lo, _ = Last(talib.Min(lows, len(lows)))
	return hi, lo, true
}

// Last returns the final element.
func Last(xs []float64) (float64, bool) {
	if len(xs) == 0 {
		return 0, false
	}
	return xs[len(xs)-1], true
}

// Mean of xs; zero for an empty slice.
func Mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// PercentB is the close's position inside the bands: 0 at the lower band, 1 at the upper.
func PercentB(close, upper, lower float64) float64 {
	width := upper - lower
	if width <= 0 {
		if close <= lower {
			return 0
		}
		return 1
	}
	return (close - lower) / width
}

// PercentChange from a to b, in percent.
func PercentChange(a, b float64) float64 {
	if a == 0 {
		return 0
	}
	return (b - a) / a * 100
}

// CrossedAbove reports whether series moved from below level to above it
// between any adjacent pair inside the trailing window, and is still above.
func CrossedAbove(series []float64, level float64, window int) bool {
	n := len(series)
	if n < 2 || window < 1 || series[n-1] <= level {
		return false
	}
	from := n - window
	if from < 1 {
		from = 1
	}
	for i := from; i < n; i++ {
		if series[i-1] < level && series[i] > level {
			return true
		}
	}
	return false
}

// Clamp bounds v to [lo, hi]; NaN maps to lo.
func Clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) || v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
