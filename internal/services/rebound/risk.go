package rebound

import (
	"fmt"

	"github.com/gurubamal/iimcat-sub002/internal/domain/models"
	"github.com/gurubamal/iimcat-sub002/pkg/config"
)

const (
	CheckDebtToEquity   = "debt_to_equity"
	CheckCurrentRatio   = "current_ratio"
	CheckMarketCap      = "market_cap"
	CheckAvgVolume      = "avg_daily_volume"
	CheckListingAge     = "listing_age_months"
	CheckBetaConviction = "beta_conviction"
)

// RiskFilter is a hard veto: every check must pass. A missing field fails its check.
type RiskFilter struct {
	cfg config.RiskConfig
}

func NewRiskFilter(cfg config.RiskConfig) *RiskFilter {
	return &RiskFilter{cfg: cfg}
}

func (r *RiskFilter) Evaluate(f *models.FundamentalSnapshot, confidence float64) models.RiskProfile {
	if f == nil {
		f = &models.FundamentalSnapshot{}
	}
	checks := []models.RiskCheck{
		atMost(CheckDebtToEquity, f.DebtToEquity, r.cfg.MaxDebtToEquity),
		atLeast(CheckCurrentRatio, f.CurrentRatio, r.cfg.MinCurrentRatio),
		atLeast(CheckMarketCap, f.MarketCap, r.cfg.MinMarketCap),
		atLeast(CheckAvgVolume, f.AvgDailyVolume, r.cfg.MinAvgDailyVolume),
		atLeast(CheckListingAge, f.ListingAgeMonths, r.cfg.MinListingAgeMonths),
		r.betaConviction(f.Beta, confidence),
	}

	p := models.RiskProfile{Checks: checks, Passed: true}
	for _, c := range checks {
		if !c.Passed {
			p.Passed = false
		}
	}
	return p
}

// betaConviction passes unless beta is high and confidence is below the
// high-beta bar. Unknown beta is treated as high.
func (r *RiskFilter) betaConviction(beta *float64, confidence float64) models.RiskCheck {
	c := models.RiskCheck{Name: CheckBetaConviction, Value: beta, Threshold: r.cfg.HighBetaMinConfidence, Passed: true}
	high := beta == nil || *beta > r.cfg.HighBeta
	if high && confidence < r.cfg.HighBetaMinConfidence {
		c.Passed = false
		if beta == nil {
			c.Reason = fmt.Sprintf("beta unknown and confidence %.3f below %.2f", confidence, r.cfg.HighBetaMinConfidence)
		} else {
			c.Reason = fmt.Sprintf("beta %.2f needs confidence %.2f, have %.3f", *beta, r.cfg.HighBetaMinConfidence, confidence)
		}
	}
	return c
}

func atMost(name string, v *float64, limit float64) models.RiskCheck {
	c := models.RiskCheck{Name: name, Value: v, Threshold: limit}
	switch {
	case v == nil:
		c.Reason = "missing"
	case *v > limit:
		c.Reason = fmt.Sprintf("%.2f above %.2f", *v, limit)
	default:
		c.Passed = true
	}
	return c
}

func atLeast(name string, v *float64, limit float64) models.RiskCheck {
	c := models.RiskCheck{Name: name, Value: v, Threshold: limit}
	switch {
	case v == nil:
		c.Reason = "missing"
	case *v < limit:
		c.Reason = fmt.Sprintf("%.2f below %.2f", *v, limit)
	default:
		c.Passed = true
	}
	return c
}
