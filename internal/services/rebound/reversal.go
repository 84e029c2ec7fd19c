package rebound

import (
	"github.com/gurubamal/iimcat-sub002/internal/domain/models"
	"github.com/gurubamal/iimcat-sub002/internal/services/indicators"
	"github.com/gurubamal/iimcat-sub002/pkg/config"
)

// ReversalConfirmer decides whether a pullback is turning rather than still falling.
type ReversalConfirmer struct {
	cfg config.ReversalConfig
}

func NewReversalConfirmer(cfg config.ReversalConfig) *ReversalConfirmer {
	return &ReversalConfirmer{cfg: cfg}
}

func (r *ReversalConfirmer) Confirm(w models.PriceWindow) models.ReversalSignal {
	var sig models.ReversalSignal
	if len(w) == 0 {
		return sig
	}
	closes := w.Closes()
	last := w.Last()

	if ma, ok := indicators.Last(indicators.SMA(closes, r.cfg.MAPeriod)); ok {
		sig.PriceAboveMA20 = last.Close > ma
	}

	if rsi := indicators.RSI(closes, r.cfg.RSIPeriod); rsi != nil {
		// talib leaves the first period values at zero.
		sig.RSIMomentumCross = indicators.CrossedAbove(rsi[r.cfg.RSIPeriod:], r.cfg.RSICrossLevel, r.cfg.RSICrossWindow)
	}

	if len(w) >= 2 {
		sig.Pattern, sig.BullishPattern = bullishPattern(w[len(w)-2], last)
	}

	if len(w) >= r.cfg.ConsolidationBars {
		tail := w.Tail(r.cfg.ConsolidationBars)
		if hi, lo, ok := indicators.Range(tail.Highs(), tail.Lows()); ok {
			// RangePct is a ratio; the threshold is configured in percent.
			sig.RangePct = round6((hi - lo) / last.Close)
			sig.ConsolidationConfirmed = sig.RangePct < r.cfg.ConsolidationRangePct/100
		}
	}

	others := sig.MomentumSignals()
	sig.Confirmed = (sig.ConsolidationConfirmed && others >= r.cfg.ConsolidationMinOthers) ||
		others >= r.cfg.MinMomentumSignals
	return sig
}

// bullishPattern recognises a bullish engulfing or a hammer on the last bar.
func bullishPattern(prev, cur models.PriceBar) (string, bool) {
	if prev.Close < prev.Open && cur.Close > cur.Open &&
		cur.Open <= prev.Close && cur.Close >= prev.Open {
		return "bullish_engulfing", true
	}

	body := cur.Close - cur.Open
	rng := cur.High - cur.Low
	if body <= 0 || rng <= 0 {
		return "", false
	}
	lower := cur.Open - cur.Low
	upper := cur.High - cur.Close
	if lower >= 2*body && upper <= 0.25*rng {
		return "hammer", true
	}
	return "", false
}
