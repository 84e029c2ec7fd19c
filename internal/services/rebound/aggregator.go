package rebound

import (
	"github.com/gurubamal/iimcat-sub002/internal/services/indicators"
	"github.com/gurubamal/iimcat-sub002/pkg/config"
)

// Aggregator blends the three 0-100 sub-scores into a 0-1 confidence.
type Aggregator struct {
	cfg config.ConfidenceConfig
}

func NewAggregator(cfg config.ConfidenceConfig) *Aggregator {
	return &Aggregator{cfg: cfg}
}

func (a *Aggregator) Confidence(oversold, fundamental, catalyst float64) float64 {
	blend := a.cfg.WeightOversold*oversold + a.cfg.WeightFundamental*fundamental + a.cfg.WeightCatalyst*catalyst
	return round6(indicators.Clamp(blend/100, 0, 1))
}
