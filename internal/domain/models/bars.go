package models

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrEmptyWindow   = errors.New("price window is empty")
	ErrUnorderedBars = errors.New("price bars are not strictly ascending by date")
	ErrInvalidBar    = errors.New("price bar is malformed")
)

// PriceBar is one daily OHLCV record.
type PriceBar struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// PriceWindow is an ordered run of daily bars, oldest first.
type PriceWindow []PriceBar

// Validate rejects windows that would make indicator math meaningless.
func (w PriceWindow) Validate() error {
	if len(w) == 0 {
		return ErrEmptyWindow
	}
	for i, b := range w {
		if b.Close <= 0 || b.High < b.Low || b.Volume < 0 {
			return fmt.Errorf("%w: bar %d (%s)", ErrInvalidBar, i, b.Date.Format("2006-01-02"))
		}
		if i > 0 && !b.Date.After(w[i-1].Date) {
			return fmt.Errorf("%w: bar %d (%s)", ErrUnorderedBars, i, b.Date.Format("2006-01-02"))
		}
	}
	return nil
}

// Tail returns the last n bars, or the whole window when it is shorter.
func (w PriceWindow) Tail(n int) PriceWindow {
	if n >= len(w) {
		return w
	}
	if n <= 0 {
		return nil
	}
	return w[len(w)-n:]
}

func (w PriceWindow) Last() PriceBar {
	if len(w) == 0 {
		return PriceBar{}
	}
	return w[len(w)-1]
}

func (w PriceWindow) Closes() []float64 {
	out := make([]float64, len(w))
	for i, b := range w {
		out[i] = b.Close
	}
	return out
}

func (w PriceWindow) Highs() []float64 {
	out := make([]float64, len(w))
	for i, b := range w {
		out[i] = b.High
	}
	return out
}

func (w PriceWindow) Lows() []float64 {
	out := make([]float64, len(w))
	for i, b := range w {
		out[i] = b.Low
	}
	return out
}

func (w PriceWindow) Volumes() []float64 {
	out := make([]float64, len(w))
	for i, b := range w {
		out[i] = b.Volume
	}
	return out
}
