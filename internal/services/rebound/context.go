package rebound

import (
	"fmt"

	"github.com/gurubamal/iimcat-sub002/internal/domain/models"
	"github.com/gurubamal/iimcat-sub002/internal/services/indicators"
	"github.com/gurubamal/iimcat-sub002/pkg/config"
)

// Adjustment is what the regime does to a single ticker's gates.
type Adjustment struct {
	Regime        models.Regime
	MinConfidence float64
	MaxBoost      float64
	SectorPenalty float64
	Note          string
}

// ContextClassifier labels the market regime and sector strength.
type ContextClassifier struct {
	cfg config.MarketConfig
}

func NewContextClassifier(cfg config.MarketConfig) *ContextClassifier {
	return &ContextClassifier{cfg: cfg}
}

func (c *ContextClassifier) Classify(in models.MarketInputs) models.MarketContext {
	ctx := models.MarketContext{
		Regime:   models.RegimeUncertain,
		VIXLevel: in.VIX,
		AsOf:     in.AsOf,
	}
	if ctx.AsOf.IsZero() && len(in.Index) > 0 {
		ctx.AsOf = in.Index.Last().Date
	}

	closes := in.Index.Closes()
	if n := len(closes); n >= 2 {
		ctx.IndexChangePctToday = round6(indicators.PercentChange(closes[n-2], closes[n-1]))
	}
	if in.LiveIndexChangePct != nil {
		ctx.IndexChangePctToday = *in.LiveIndexChangePct
	}

	up, down := c.trend(closes)
	switch {
	case in.VIX > c.cfg.VIXBear || down:
		ctx.Regime = models.RegimeBear
	case up:
		ctx.Regime = models.RegimeBull
	}

	if len(in.Sectors) > 0 {
		ctx.SectorChangePctWeek = make(map[string]float64, len(in.Sectors))
		for name, w := range in.Sectors {
			n := len(w)
			if n <= c.cfg.SectorLookbackBars {
				continue
			}
			ctx.SectorChangePctWeek[name] = round6(indicators.PercentChange(w[n-1-c.cfg.SectorLookbackBars].Close, w[n-1].Close))
		}
	}
	return ctx
}

// trend compares the last close and the short average against the long average.
func (c *ContextClassifier) trend(closes []float64) (up, down bool) {
	long, ok := indicators.Last(indicators.SMA(closes, c.cfg.TrendLong))
	if !ok {
		return false, false
	}
	short, _ := indicators.Last(indicators.SMA(closes, c.cfg.TrendShort))
	last := closes[len(closes)-1]
	return last > long && short > long, last < long && short < long
}

// Adjust returns the regime threshold and cap, plus any sector penalty for sector.
func (c *ContextClassifier) Adjust(ctx models.MarketContext, sector string) Adjustment {
	var ra config.RegimeAdjustment
	switch ctx.Regime {
	case models.RegimeBull:
		ra = c.cfg.Bull
	case models.RegimeBear:
		ra = c.cfg.Bear
	default:
		ra = c.cfg.Uncertain
	}
	adj := Adjustment{
		Regime:        ctx.Regime,
		MinConfidence: ra.MinConfidence,
		MaxBoost:      ra.MaxBoost,
		Note:          fmt.Sprintf("regime %s: threshold %.2f, cap %g", ctx.Regime, ra.MinConfidence, ra.MaxBoost),
	}
	if chg, ok := ctx.SectorChange(sector); ok && chg < c.cfg.SectorWeakPct {
		adj.SectorPenalty = c.cfg.SectorPenalty
		adj.Note += fmt.Sprintf("; sector %s weak (%.1f%% week): -%.2f confidence", sector, chg, c.cfg.SectorPenalty)
	}
	return adj
}
