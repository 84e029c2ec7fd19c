package config

import (
	"fmt"
	"math"

	"github.com/creasty/defaults"
)

// Engine holds every tunable of the correction-to-rebound decision pipeline.
type Engine struct {
	Correction  CorrectionConfig  `yaml:"correction" json:"correction"`
	Reversal    ReversalConfig    `yaml:"reversal" json:"reversal"`
	Oversold    OversoldConfig    `yaml:"oversold" json:"oversold"`
	Fundamental FundamentalConfig `yaml:"fundamental" json:"fundamental"`
	Catalyst    CatalystConfig    `yaml:"catalyst" json:"catalyst"`
	Confidence  ConfidenceConfig  `yaml:"confidence" json:"confidence"`
	Risk        RiskConfig        `yaml:"risk" json:"risk"`
	Market      MarketConfig      `yaml:"market" json:"market"`
	Safeguard   SafeguardConfig   `yaml:"safeguard" json:"safeguard"`
	Boost       BoostConfig       `yaml:"boost" json:"boost"`
}

type CorrectionConfig struct {
	Lookback            int     `yaml:"lookback" json:"lookback" default:"60" validate:"gte=10"`
	MinDeclinePct       float64 `yaml:"min_decline_pct" json:"min_decline_pct" default:"10" validate:"gt=0,lte=100"`
	MaxDeclinePct       float64 `yaml:"max_decline_pct" json:"max_decline_pct" default:"35" validate:"gt=0,lte=100"`
	MinBarsPeakToTrough int     `yaml:"min_bars_peak_to_trough" json:"min_bars_peak_to_trough" default:"5" validate:"gte=1"`
	VolumeSpikeMultiple float64 `yaml:"volume_spike_multiple" json:"volume_spike_multiple" default:"1.2" validate:"gt=0"`
	BaselineBars        int     `yaml:"baseline_bars" json:"baseline_bars" default:"20" validate:"gte=1"`
}

// ReversalConfig controls the confirmation rule:
// confirmed = (consolidation AND others >= ConsolidationMinOthers) OR others >= MinMomentumSignals.
type ReversalConfig struct {
	MAPeriod               int     `yaml:"ma_period" json:"ma_period" default:"20" validate:"gte=2"`
	RSIPeriod              int     `yaml:"rsi_period" json:"rsi_period" default:"14" validate:"gte=2"`
	RSICrossLevel          float64 `yaml:"rsi_cross_level" json:"rsi_cross_level" default:"50" validate:"gt=0,lt=100"`
	RSICrossWindow         int     `yaml:"rsi_cross_window" json:"rsi_cross_window" default:"3" validate:"gte=1"`
	ConsolidationBars      int     `yaml:"consolidation_bars" json:"consolidation_bars" default:"10" validate:"gte=2"`
	ConsolidationRangePct  float64 `yaml:"consolidation_range_pct" json:"consolidation_range_pct" default:"10" validate:"gt=0"`
	ConsolidationMinOthers int     `yaml:"consolidation_min_others" json:"consolidation_min_others" default:"1" validate:"gte=0,lte=3"`
	MinMomentumSignals     int     `yaml:"min_momentum_signals" json:"min_momentum_signals" default:"2" validate:"gte=1,lte=3"`
}

type OversoldConfig struct {
	RSIPeriod      int     `yaml:"rsi_period" json:"rsi_period" default:"14" validate:"gte=2"`
	RSIOversold    float64 `yaml:"rsi_oversold" json:"rsi_oversold" default:"30" validate:"gt=0,lt=100"`
	BBPeriod       int     `yaml:"bb_period" json:"bb_period" default:"20" validate:"gte=2"`
	BBStdDev       float64 `yaml:"bb_stddev" json:"bb_stddev" default:"2" validate:"gt=0"`
	VolumeBaseline int     `yaml:"volume_baseline" json:"volume_baseline" default:"20" validate:"gte=1"`
	VolumeCap      float64 `yaml:"volume_cap" json:"volume_cap" default:"3" validate:"gt=1"`
	WeightRSI      float64 `yaml:"weight_rsi" json:"weight_rsi" default:"0.4" validate:"gte=0,lte=1"`
	WeightBB       float64 `yaml:"weight_bb" json:"weight_bb" default:"0.4" validate:"gte=0,lte=1"`
	WeightVolume   float64 `yaml:"weight_volume" json:"weight_volume" default:"0.2" validate:"gte=0,lte=1"`
}

type FundamentalConfig struct {
	HealthyDebtToEquity   float64 `yaml:"healthy_debt_to_equity" json:"healthy_debt_to_equity" default:"1" validate:"gt=0"`
	PointsProfitable      float64 `yaml:"points_profitable" json:"points_profitable" default:"25" validate:"gte=0"`
	PointsNetWorth        float64 `yaml:"points_net_worth" json:"points_net_worth" default:"25" validate:"gte=0"`
	PointsLeverage        float64 `yaml:"points_leverage" json:"points_leverage" default:"25" validate:"gte=0"`
	PointsQuarterlyGrowth float64 `yaml:"points_quarterly_growth" json:"points_quarterly_growth" default:"12.5" validate:"gte=0"`
	PointsAnnualGrowth    float64 `yaml:"points_annual_growth" json:"points_annual_growth" default:"12.5" validate:"gte=0"`
}

// CatalystConfig shapes the saturating transform applied above Knee.
type CatalystConfig struct {
	Knee    float64 `yaml:"knee" json:"knee" default:"70" validate:"gt=0,lt=100"`
	Ceiling float64 `yaml:"ceiling" json:"ceiling" default:"95" validate:"gt=0,lte=100"`
	Scale   float64 `yaml:"scale" json:"scale" default:"30" validate:"gt=0"`
}

type ConfidenceConfig struct {
	WeightOversold    float64 `yaml:"weight_oversold" json:"weight_oversold" default:"0.3" validate:"gte=0,lte=1"`
	WeightFundamental float64 `yaml:"weight_fundamental" json:"weight_fundamental" default:"0.3" validate:"gte=0,lte=1"`
	WeightCatalyst    float64 `yaml:"weight_catalyst" json:"weight_catalyst" default:"0.4" validate:"gte=0,lte=1"`
	MinConfidence     float64 `yaml:"min_confidence" json:"min_confidence" default:"0.30" validate:"gte=0,lte=1"`
}

type RiskConfig struct {
	MaxDebtToEquity       float64 `yaml:"max_debt_to_equity" json:"max_debt_to_equity" default:"2" validate:"gt=0"`
	MinCurrentRatio       float64 `yaml:"min_current_ratio" json:"min_current_ratio" default:"0.8" validate:"gte=0"`
	MinMarketCap          float64 `yaml:"min_market_cap" json:"min_market_cap" default:"5000000000" validate:"gte=0"`
	MinAvgDailyVolume     float64 `yaml:"min_avg_daily_volume" json:"min_avg_daily_volume" default:"100000" validate:"gte=0"`
	MinListingAgeMonths   float64 `yaml:"min_listing_age_months" json:"min_listing_age_months" default:"6" validate:"gte=0"`
	HighBeta              float64 `yaml:"high_beta" json:"high_beta" default:"1.5" validate:"gt=0"`
	HighBetaMinConfidence float64 `yaml:"high_beta_min_confidence" json:"high_beta_min_confidence" default:"0.5" validate:"gte=0,lte=1"`
}

type RegimeAdjustment struct {
	MinConfidence float64 `yaml:"min_confidence" json:"min_confidence" validate:"gte=0,lte=1"`
	MaxBoost      float64 `yaml:"max_boost" json:"max_boost" validate:"gte=0,lte=100"`
}

type MarketConfig struct {
	VIXBear            float64          `yaml:"vix_bear" json:"vix_bear" default:"30" validate:"gt=0"`
	TrendShort         int              `yaml:"trend_short" json:"trend_short" default:"20" validate:"gte=2"`
	TrendLong          int              `yaml:"trend_long" json:"trend_long" default:"50" validate:"gte=3"`
	SectorLookbackBars int              `yaml:"sector_lookback_bars" json:"sector_lookback_bars" default:"5" validate:"gte=1"`
	SectorWeakPct      float64          `yaml:"sector_weak_pct" json:"sector_weak_pct" default:"-3" validate:"lt=0"`
	SectorPenalty      float64          `yaml:"sector_penalty" json:"sector_penalty" default:"0.10" validate:"gte=0,lte=1"`
	Bull               RegimeAdjustment `yaml:"bull" json:"bull"`
	Bear               RegimeAdjustment `yaml:"bear" json:"bear"`
	Uncertain          RegimeAdjustment `yaml:"uncertain" json:"uncertain"`
}

type SafeguardConfig struct {
	MarketCrashPct      float64 `yaml:"market_crash_pct" json:"market_crash_pct" default:"-5" validate:"lt=0"`
	SectorCrashPct      float64 `yaml:"sector_crash_pct" json:"sector_crash_pct" default:"-10" validate:"lt=0"`
	EarningsSurprisePct float64 `yaml:"earnings_surprise_pct" json:"earnings_surprise_pct" default:"-20" validate:"lt=0"`
}

type BoostTier struct {
	MinConfidence float64 `yaml:"min_confidence" json:"min_confidence" validate:"gte=0,lte=1"`
	Points        float64 `yaml:"points" json:"points" validate:"gt=0,lte=100"`
}

// BoostConfig lists tiers in descending MinConfidence. EntryPoints is granted
// for confidence between the regime threshold and the lowest tier; 0 disables it.
type BoostConfig struct {
	Tiers       []BoostTier `yaml:"tiers" json:"tiers" validate:"required,min=1,dive"`
	EntryPoints float64     `yaml:"entry_points" json:"entry_points" default:"3" validate:"gte=0,lte=100"`
}

// SetDefaults implements defaults.Setter for values that struct tags cannot express.
func (e *Engine) SetDefaults() {
	if len(e.Boost.Tiers) == 0 {
		e.Boost.Tiers = []BoostTier{
			{MinConfidence: 0.85, Points: 20},
			{MinConfidence: 0.70, Points: 15},
			{MinConfidence: 0.55, Points: 10},
			{MinConfidence: 0.40, Points: 5},
		}
	}
	if e.Market.Bull == (RegimeAdjustment{}) {
		e.Market.Bull = RegimeAdjustment{MinConfidence: 0.25, MaxBoost: 25}
	}
	if e.Market.Bear == (RegimeAdjustment{}) {
		e.Market.Bear = RegimeAdjustment{MinConfidence: 0.35, MaxBoost: 10}
	}
	if e.Market.Uncertain == (RegimeAdjustment{}) {
		e.Market.Uncertain = RegimeAdjustment{MinConfidence: e.Confidence.MinConfidence, MaxBoost: 20}
	}
}

// DefaultEngine returns the engine defaults. It panics only if the tags themselves are broken.
func DefaultEngine() Engine {
	var e Engine
	if err := defaults.Set(&e); err != nil {
		panic(fmt.Sprintf("engine defaults: %v", err))
	}
	return e
}

// MaxPossibleBoost is the largest boost any regime may grant.
func (e Engine) MaxPossibleBoost() float64 {
	top := e.Boost.EntryPoints
	for _, t := range e.Boost.Tiers {
		top = math.Max(top, t.Points)
	}
	ceiling := math.Max(e.Market.Bull.MaxBoost, math.Max(e.Market.Bear.MaxBoost, e.Market.Uncertain.MaxBoost))
	return math.Min(top, ceiling)
}

const weightTolerance = 0.01

// Validate runs tag rules and the cross-field rules tags cannot express.
func (e Engine) Validate() error {
	if err := validate.Struct(e); err != nil {
		return fmt.Errorf("%w: engine: %v", ErrInvalidConfiguration, err)
	}

	fail := func(format string, args ...any) error {
		return fmt.Errorf("%w: engine: %s", ErrInvalidConfiguration, fmt.Sprintf(format, args...))
	}

	c := e.Correction
	if c.MinDeclinePct >= c.MaxDeclinePct {
		return fail("correction.min_decline_pct (%.2f) must be below max_decline_pct (%.2f)", c.MinDeclinePct, c.MaxDeclinePct)
	}
	if c.MinBarsPeakToTrough >= c.Lookback {
		return fail("correction.min_bars_peak_to_trough must be smaller than lookback")
	}

	w := e.Confidence
	if sum := w.WeightOversold + w.WeightFundamental + w.WeightCatalyst; math.Abs(sum-1) > weightTolerance {
		return fail("confidence weights must sum to 1, got %.4f", sum)
	}
	o := e.Oversold
	if sum := o.WeightRSI + o.WeightBB + o.WeightVolume; math.Abs(sum-1) > weightTolerance {
		return fail("oversold weights must sum to 1, got %.4f", sum)
	}
	f := e.Fundamental
	if sum := f.PointsProfitable + f.PointsNetWorth + f.PointsLeverage + f.PointsQuarterlyGrowth + f.PointsAnnualGrowth; math.Abs(sum-100) > weightTolerance*100 {
		return fail("fundamental points must sum to 100, got %.2f", sum)
	}
	if e.Catalyst.Knee >= e.Catalyst.Ceiling {
		return fail("catalyst.knee must be below catalyst.ceiling")
	}
	if e.Market.TrendShort >= e.Market.TrendLong {
		return fail("market.trend_short must be shorter than market.trend_long")
	}

	tiers := e.Boost.Tiers
	for i := 1; i < len(tiers); i++ {
		if tiers[i].MinConfidence >= tiers[i-1].MinConfidence {
			return fail("boost.tiers must be strictly descending by min_confidence (tier %d)", i)
		}
		if tiers[i].Points > tiers[i-1].Points {
			return fail("boost.tiers points must not increase as confidence falls (tier %d)", i)
		}
	}
	if lowest := tiers[len(tiers)-1]; e.Boost.EntryPoints > lowest.Points {
		return fail("boost.entry_points (%.2f) must not exceed the lowest tier (%.2f)", e.Boost.EntryPoints, lowest.Points)
	}
	return nil
}
