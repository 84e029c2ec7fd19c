package rebound

import (
	"fmt"

	"github.com/gurubamal/iimcat-sub002/internal/domain/models"
	"github.com/gurubamal/iimcat-sub002/internal/services/indicators"
	"github.com/gurubamal/iimcat-sub002/pkg/config"
)

// OversoldScorer scores technical exhaustion from RSI, band position and relative volume.
type OversoldScorer struct {
	cfg config.OversoldConfig
}

func NewOversoldScorer(cfg config.OversoldConfig) *OversoldScorer {
	return &OversoldScorer{cfg: cfg}
}

func (s *OversoldScorer) Score(w models.PriceWindow) (models.OversoldScore, error) {
	need := max(s.cfg.RSIPeriod+1, s.cfg.BBPeriod, s.cfg.VolumeBaseline+1)
	if len(w) < need {
		return models.OversoldScore{}, fmt.Errorf("oversold: %d bars, need %d: %w", len(w), need, ErrInsufficientData)
	}

	closes := w.Closes()
	last := w.Last()
	var out models.OversoldScore

	out.RSI, _ = indicators.Last(indicators.RSI(closes, s.cfg.RSIPeriod))
	out.RSIScore = indicators.Clamp((s.cfg.RSIOversold-out.RSI)/s.cfg.RSIOversold*100, 0, 100)

	upper, _, lower := indicators.Bollinger(closes, s.cfg.BBPeriod, s.cfg.BBStdDev)
	out.PercentB = indicators.PercentB(last.Close, upper[len(upper)-1], lower[len(lower)-1])
	out.BBScore = indicators.Clamp((1-out.PercentB)*100, 0, 100)

	vols := w.Volumes()
	baseline := indicators.Mean(vols[len(vols)-1-s.cfg.VolumeBaseline : len(vols)-1])
	if baseline > 0 {
		out.RelativeVolume = last.Volume / baseline
	}
	out.VolumeScore = indicators.Clamp((out.RelativeVolume-1)/(s.cfg.VolumeCap-1)*100, 0, 100)

	out.Score = round6(s.cfg.WeightRSI*out.RSIScore + s.cfg.WeightBB*out.BBScore + s.cfg.WeightVolume*out.VolumeScore)
	return out, nil
}
