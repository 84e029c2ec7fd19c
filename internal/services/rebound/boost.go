package rebound

import (
	"fmt"
	"math"

	"github.com/gurubamal/iimcat-sub002/internal/services/indicators"
	"github.com/gurubamal/iimcat-sub002/pkg/config"
)

type BoostResult struct {
	Boost float64
	Final float64
	Tier  string
	Note  string
}

// BoostApplier converts surviving confidence to bounded score points.
type BoostApplier struct {
	cfg config.BoostConfig
}

func NewBoostApplier(cfg config.BoostConfig) *BoostApplier {
	return &BoostApplier{cfg: cfg}
}

// Apply treats every boundary as passing (>=).
func (b *BoostApplier) Apply(confidence float64, adj Adjustment, base float64) BoostResult {
	base = indicators.Clamp(base, 0, 100)
	if confidence < adj.MinConfidence {
		return BoostResult{
			Final: base,
			Note:  fmt.Sprintf("confidence %.3f below %.2f threshold: no boost", confidence, adj.MinConfidence),
		}
	}

	points, tier := b.cfg.EntryPoints, "entry"
	for _, t := range b.cfg.Tiers {
		if confidence >= t.MinConfidence {
			points, tier = t.Points, fmt.Sprintf(">=%.2f", t.MinConfidence)
			break
		}
	}
	boost := math.Min(points, adj.MaxBoost)
	res := BoostResult{
		Boost: boost,
		Final: math.Min(100, base+boost),
		Tier:  tier,
		Note:  fmt.Sprintf("boost +%g (tier %s)", boost, tier),
	}
	if boost < points {
		res.Note += fmt.Sprintf(", capped at %g", adj.MaxBoost)
	}
	return res
}
