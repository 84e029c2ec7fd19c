package rebound

import (
	"github.com/gurubamal/iimcat-sub002/internal/domain/models"
	"github.com/gurubamal/iimcat-sub002/pkg/config"
)

// FundamentalEvaluator awards fixed points per healthy trait. A missing trait
// earns half its points, the neutral 50% for that component.
type FundamentalEvaluator struct {
	cfg config.FundamentalConfig
}

func NewFundamentalEvaluator(cfg config.FundamentalConfig) *FundamentalEvaluator {
	return &FundamentalEvaluator{cfg: cfg}
}

func (e *FundamentalEvaluator) Score(f *models.FundamentalSnapshot) models.FundamentalScore {
	if f == nil {
		f = &models.FundamentalSnapshot{}
	}
	var out models.FundamentalScore

	award := func(name string, points float64, known, healthy bool) {
		switch {
		case !known:
			out.Score += points / 2
			out.Missing = append(out.Missing, name)
		case healthy:
			out.Score += points
		}
	}
	flag := func(name string, v *bool, points float64) {
		award(name, points, v != nil, v != nil && *v)
	}
	positive := func(name string, v *float64, points float64) {
		award(name, points, v != nil, v != nil && *v > 0)
	}

	flag("is_profitable", f.IsProfitable, e.cfg.PointsProfitable)
	flag("net_worth_positive", f.NetWorthPositive, e.cfg.PointsNetWorth)
	award("debt_to_equity", e.cfg.PointsLeverage, f.DebtToEquity != nil,
		f.DebtToEquity != nil && *f.DebtToEquity <= e.cfg.HealthyDebtToEquity)
	positive("quarterly_earnings_growth_yoy", f.QuarterlyEarningsGrowthYoY, e.cfg.PointsQuarterlyGrowth)
	positive("annual_earnings_growth_yoy", f.AnnualEarningsGrowthYoY, e.cfg.PointsAnnualGrowth)

	out.Score = round6(out.Score)
	return out
}
