package models

import "time"

type Regime string

const (
	RegimeBull      Regime = "bull"
	RegimeBear      Regime = "bear"
	RegimeUncertain Regime = "uncertain"
)

// MarketContext is computed once per run and shared read-only by every evaluation.
type MarketContext struct {
	Regime              Regime             `json:"regime"`
	IndexChangePctToday float64            `json:"index_change_pct_today"`
	VIXLevel            float64            `json:"vix_level"`
	SectorChangePctWeek map[string]float64 `json:"sector_change_pct_week,omitempty"`
	AsOf                time.Time          `json:"as_of"`
}

// SectorChange reports the trailing-week change for a sector, if known.
func (m MarketContext) SectorChange(sector string) (float64, bool) {
	if sector == "" || m.SectorChangePctWeek == nil {
		return 0, false
	}
	v, ok := m.SectorChangePctWeek[sector]
	return v, ok
}

// MarketInputs are the raw series the regime classifier works from.
// LiveIndexChangePct, when set, replaces the close-to-close change of Index.
type MarketInputs struct {
	Index              PriceWindow            `json:"index"`
	VIX                float64                `json:"vix"`
	Sectors            map[string]PriceWindow `json:"sectors,omitempty"`
	LiveIndexChangePct *float64               `json:"live_index_change_pct,omitempty"`
	AsOf               time.Time              `json:"as_of"`
}
