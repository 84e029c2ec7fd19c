package rebound

import (
	"math"

	"github.com/gurubamal/iimcat-sub002/internal/domain/models"
	"github.com/gurubamal/iimcat-sub002/internal/services/indicators"
	"github.com/gurubamal/iimcat-sub002/pkg/config"
)

// CatalystScorer maps score x certainty onto 0-100: linear up to Knee, then
// exponentially approaching Ceiling so one extreme headline cannot dominate.
type CatalystScorer struct {
	cfg config.CatalystConfig
}

func NewCatalystScorer(cfg config.CatalystConfig) *CatalystScorer {
	return &CatalystScorer{cfg: cfg}
}

func (s *CatalystScorer) Score(in *models.CatalystInput) float64 {
	if in == nil {
		return 0
	}
	raw := indicators.Clamp(in.AIScore, 0, 100) * indicators.Clamp(in.AICertainty, 0, 1)
	if raw <= s.cfg.Knee {
		return round6(raw)
	}
	head := s.cfg.Ceiling - s.cfg.Knee
	return round6(s.cfg.Knee + head*(1-math.Exp(-(raw-s.cfg.Knee)/s.cfg.Scale)))
}
