package rebound

import (
	"errors"
	"math"
)

// ErrInsufficientData marks inputs too thin to evaluate. It is folded into the
// decision as a note and never escapes Evaluate.
var ErrInsufficientData = errors.New("insufficient data")

// round6 snaps a value to 1e-6 so configured boundaries compare exactly.
func round6(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}
