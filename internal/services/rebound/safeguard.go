package rebound

import (
	"fmt"

	"github.com/gurubamal/iimcat-sub002/internal/domain/models"
	"github.com/gurubamal/iimcat-sub002/pkg/config"
)

type Scope string

const (
	ScopeMarket  Scope = "market"
	ScopeSector  Scope = "sector"
	ScopeCompany Scope = "company"
)

const (
	NoteMarketCrash   = "market crash safeguard"
	NoteSectorCrash   = "sector crash safeguard"
	NoteCompanyCrisis = "company crisis safeguard"
)

// Trigger explains which kill-switch fired.
type Trigger struct {
	Scope  Scope  `json:"scope"`
	Reason string `json:"reason"`
}

// SafeguardSnapshot holds the run-wide triggers. It is built once and never mutated.
type SafeguardSnapshot struct {
	MarketCrash    bool               `json:"market_crash"`
	IndexChangePct float64            `json:"index_change_pct"`
	CrashedSectors map[string]float64 `json:"crashed_sectors,omitempty"`
}

// Safeguard suppresses boosts during market, sector or company crises.
type Safeguard struct {
	cfg config.SafeguardConfig
}

func NewSafeguard(cfg config.SafeguardConfig) *Safeguard {
	return &Safeguard{cfg: cfg}
}

func (s *Safeguard) Snapshot(ctx models.MarketContext) SafeguardSnapshot {
	snap := SafeguardSnapshot{
		IndexChangePct: ctx.IndexChangePctToday,
		MarketCrash:    ctx.IndexChangePctToday < s.cfg.MarketCrashPct,
	}
	for sector, chg := range ctx.SectorChangePctWeek {
		if chg < s.cfg.SectorCrashPct {
			if snap.CrashedSectors == nil {
				snap.CrashedSectors = make(map[string]float64)
			}
			snap.CrashedSectors[sector] = chg
		}
	}
	return snap
}

// Check returns the widest trigger affecting this ticker, or nil.
func (s *Safeguard) Check(snap SafeguardSnapshot, sector string, crisis *models.CompanyCrisis) *Trigger {
	if snap.MarketCrash {
		return &Trigger{Scope: ScopeMarket, Reason: fmt.Sprintf("%s: index %.2f%% today", NoteMarketCrash, snap.IndexChangePct)}
	}
	if chg, ok := snap.CrashedSectors[sector]; ok && sector != "" {
		return &Trigger{Scope: ScopeSector, Reason: fmt.Sprintf("%s: %s %.2f%% over the week", NoteSectorCrash, sector, chg)}
	}
	if crisis == nil {
		return nil
	}
	if crisis.Scandal {
		return &Trigger{Scope: ScopeCompany, Reason: NoteCompanyCrisis + ": scandal flagged"}
	}
	if es := crisis.EarningsSurprisePct; es != nil && *es < s.cfg.EarningsSurprisePct {
		return &Trigger{Scope: ScopeCompany, Reason: fmt.Sprintf("%s: earnings surprise %.1f%%", NoteCompanyCrisis, *es)}
	}
	return nil
}
