package rebound

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gurubamal/iimcat-sub002/internal/domain/models"
	"github.com/gurubamal/iimcat-sub002/pkg/config"
)

func TestRiskFilter(t *testing.T) {
	r := NewRiskFilter(config.DefaultEngine().Risk)

	tests := []struct {
		name       string
		mutate     func(f *models.FundamentalSnapshot)
		confidence float64
		failed     []string
	}{
		{"all pass", func(f *models.FundamentalSnapshot) {}, 0.4, nil},
		{"levered", func(f *models.FundamentalSnapshot) { f.DebtToEquity = models.Float(2.5) }, 0.4, []string{CheckDebtToEquity}},
		{"illiquid balance sheet", func(f *models.FundamentalSnapshot) { f.CurrentRatio = models.Float(0.5) }, 0.4, []string{CheckCurrentRatio}},
		{"small cap", func(f *models.FundamentalSnapshot) { f.MarketCap = models.Float(1e9) }, 0.4, []string{CheckMarketCap}},
		{"thin volume", func(f *models.FundamentalSnapshot) { f.AvgDailyVolume = models.Float(5000) }, 0.4, []string{CheckAvgVolume}},
		{"recent listing", func(f *models.FundamentalSnapshot) { f.ListingAgeMonths = models.Float(3) }, 0.4, []string{CheckListingAge}},
		{"missing market cap", func(f *models.FundamentalSnapshot) { f.MarketCap = nil }, 0.4, []string{CheckMarketCap}},
		{"high beta low conviction", func(f *models.FundamentalSnapshot) { f.Beta = models.Float(1.8) }, 0.45, []string{CheckBetaConviction}},
		{"high beta high conviction", func(f *models.FundamentalSnapshot) { f.Beta = models.Float(1.8) }, 0.5, nil},
		{"unknown beta", func(f *models.FundamentalSnapshot) { f.Beta = nil }, 0.45, []string{CheckBetaConviction}},
		{"boundary debt", func(f *models.FundamentalSnapshot) { f.DebtToEquity = models.Float(2) }, 0.4, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := healthy()
			tt.mutate(f)
			p := r.Evaluate(f, tt.confidence)
			assert.Equal(t, tt.failed, p.Failed())
			assert.Equal(t, len(tt.failed) == 0, p.Passed)
			assert.Len(t, p.Checks, 6)
		})
	}

	empty := r.Evaluate(nil, 0.9)
	assert.False(t, empty.Passed)
	for _, c := range empty.Checks {
		if c.Name != CheckBetaConviction {
			assert.Equal(t, "missing", c.Reason)
		}
	}
}

func TestContextClassifier(t *testing.T) {
	c := NewContextClassifier(config.DefaultEngine().Market)

	rising := make([]float64, 60)
	falling := make([]float64, 60)
	vols := make([]float64, 60)
	for i := range rising {
		rising[i] = 100 + float64(i)
		falling[i] = 200 - float64(i)
		vols[i] = 1
	}

	tests := []struct {
		name   string
		in     models.MarketInputs
		regime models.Regime
	}{
		{"uptrend", models.MarketInputs{Index: series(rising, vols), VIX: 14}, models.RegimeBull},
		{"downtrend", models.MarketInputs{Index: series(falling, vols), VIX: 14}, models.RegimeBear},
		{"fear overrides trend", models.MarketInputs{Index: series(rising, vols), VIX: 32}, models.RegimeBear},
		{"sideways", models.MarketInputs{Index: flat(60, 100), VIX: 14}, models.RegimeUncertain},
		{"short history", models.MarketInputs{Index: series(rising[:30], vols[:30]), VIX: 14}, models.RegimeUncertain},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.regime, c.Classify(tt.in).Regime)
		})
	}

	ctx := c.Classify(models.MarketInputs{Index: series(rising, vols)})
	assert.InDelta(t, (159.0-158.0)/158.0*100, ctx.IndexChangePctToday, 1e-6)
	assert.Equal(t, day0.AddDate(0, 0, 59), ctx.AsOf)

	live := c.Classify(models.MarketInputs{Index: series(rising, vols), LiveIndexChangePct: models.Float(-2.5)})
	assert.Equal(t, -2.5, live.IndexChangePctToday)
}

func TestContextSectorPenalty(t *testing.T) {
	c := NewContextClassifier(config.DefaultEngine().Market)

	weak := []float64{100, 100, 99, 98, 97, 96}
	strong := []float64{100, 100, 101, 101, 102, 102}
	vols := []float64{1, 1, 1, 1, 1, 1}
	ctx := c.Classify(models.MarketInputs{
		Index:   flat(60, 100),
		Sectors: map[string]models.PriceWindow{"IT": series(weak, vols), "BANK": series(strong, vols), "TINY": flat(3, 10)},
	})
	assert.InDelta(t, -4.0, ctx.SectorChangePctWeek["IT"], 1e-6)
	assert.InDelta(t, 2.0, ctx.SectorChangePctWeek["BANK"], 1e-6)
	assert.NotContains(t, ctx.SectorChangePctWeek, "TINY")

	it := c.Adjust(ctx, "IT")
	assert.Equal(t, 0.10, it.SectorPenalty)
	assert.Contains(t, it.Note, "sector IT weak")

	bank := c.Adjust(ctx, "BANK")
	assert.Zero(t, bank.SectorPenalty)
	assert.Equal(t, 0.30, bank.MinConfidence)
	assert.Equal(t, 20.0, bank.MaxBoost)

	bear := c.Adjust(models.MarketContext{Regime: models.RegimeBear}, "")
	assert.Equal(t, 0.35, bear.MinConfidence)
	assert.Equal(t, 10.0, bear.MaxBoost)
}

func TestSafeguard(t *testing.T) {
	s := NewSafeguard(config.DefaultEngine().Safeguard)

	calm := s.Snapshot(models.MarketContext{IndexChangePctToday: -1, SectorChangePctWeek: map[string]float64{"IT": -12, "BANK": -2}})
	assert.False(t, calm.MarketCrash)
	assert.Equal(t, map[string]float64{"IT": -12}, calm.CrashedSectors)

	tests := []struct {
		name   string
		snap   SafeguardSnapshot
		sector string
		crisis *models.CompanyCrisis
		scope  Scope
		note   string
	}{
		{"market", s.Snapshot(models.MarketContext{IndexChangePctToday: -6}), "BANK", nil, ScopeMarket, NoteMarketCrash},
		{"sector", calm, "IT", nil, ScopeSector, NoteSectorCrash},
		{"scandal", calm, "BANK", &models.CompanyCrisis{Scandal: true}, ScopeCompany, NoteCompanyCrisis},
		{"earnings miss", calm, "BANK", &models.CompanyCrisis{EarningsSurprisePct: models.Float(-25)}, ScopeCompany, NoteCompanyCrisis},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			trig := s.Check(tt.snap, tt.sector, tt.crisis)
			require.NotNil(t, trig)
			assert.Equal(t, tt.scope, trig.Scope)
			assert.Contains(t, trig.Reason, tt.note)
		})
	}

	assert.Nil(t, s.Check(calm, "BANK", nil))
	assert.Nil(t, s.Check(calm, "BANK", &models.CompanyCrisis{EarningsSurprisePct: models.Float(-20)}))
	assert.Nil(t, s.Check(s.Snapshot(models.MarketContext{IndexChangePctToday: -5}), "", nil))
}

func TestBoostApplier(t *testing.T) {
	b := NewBoostApplier(config.DefaultEngine().Boost)
	uncertain := Adjustment{MinConfidence: 0.30, MaxBoost: 20}
	bear := Adjustment{MinConfidence: 0.35, MaxBoost: 10}

	tests := []struct {
		name  string
		conf  float64
		adj   Adjustment
		base  float64
		boost float64
		final float64
	}{
		{"top tier", 0.90, uncertain, 50, 20, 70},
		{"tier boundary passes", 0.85, uncertain, 50, 20, 70},
		{"just under boundary", 0.849999, uncertain, 50, 15, 65},
		{"middle tier", 0.60, uncertain, 50, 10, 60},
		{"lowest tier", 0.40, uncertain, 50, 5, 55},
		{"entry tier at threshold", 0.30, uncertain, 50, 3, 53},
		{"below threshold", 0.299999, uncertain, 50, 0, 50},
		{"bear cap", 0.90, bear, 50, 10, 60},
		{"final capped at 100", 0.90, uncertain, 95, 20, 100},
		{"base clamped", 0.90, uncertain, 140, 20, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := b.Apply(tt.conf, tt.adj, tt.base)
			assert.Equal(t, tt.boost, res.Boost)
			assert.Equal(t, tt.final, res.Final)
			assert.NotEmpty(t, res.Note)
		})
	}

	capped := b.Apply(0.9, bear, 10)
	assert.Contains(t, capped.Note, "capped at 10")
}
