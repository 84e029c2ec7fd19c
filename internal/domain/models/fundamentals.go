package models

// FundamentalSnapshot is supplied by the market-data collaborator.
// Nil fields are missing data, not zero.
type FundamentalSnapshot struct {
	DebtToEquity               *float64 `json:"debt_to_equity,omitempty"`
	CurrentRatio               *float64 `json:"current_ratio,omitempty"`
	MarketCap                  *float64 `json:"market_cap,omitempty"`
	AvgDailyVolume             *float64 `json:"avg_daily_volume,omitempty"`
	Beta                       *float64 `json:"beta,omitempty"`
	ListingAgeMonths           *float64 `json:"listing_age_months,omitempty"`
	QuarterlyEarningsGrowthYoY *float64 `json:"quarterly_earnings_growth_yoy,omitempty"`
	AnnualEarningsGrowthYoY    *float64 `json:"annual_earnings_growth_yoy,omitempty"`
	IsProfitable               *bool    `json:"is_profitable,omitempty"`
	NetWorthPositive           *bool    `json:"net_worth_positive,omitempty"`
}

// CatalystInput is the AI collaborator's view of the news flow for one ticker.
type CatalystInput struct {
	AIScore     float64 `json:"ai_score"`
	AICertainty float64 `json:"ai_certainty"`
}

// CompanyCrisis carries optional company-level tail-risk indicators.
type CompanyCrisis struct {
	EarningsSurprisePct *float64 `json:"earnings_surprise_pct,omitempty"`
	Scandal             bool     `json:"scandal"`
}

// TickerInput is everything one evaluation needs, already fetched.
type TickerInput struct {
	Ticker       string               `json:"ticker" validate:"required"`
	Sector       string               `json:"sector,omitempty"`
	BaseScore    float64              `json:"base_score"`
	Bars         PriceWindow          `json:"bars"`
	Fundamentals *FundamentalSnapshot `json:"fundamentals,omitempty"`
	Catalyst     *CatalystInput       `json:"catalyst,omitempty"`
	Crisis       *CompanyCrisis       `json:"crisis,omitempty"`
}

// Float returns a pointer to v, for building snapshots in code.
func Float(v float64) *float64 { return &v }

// Bool returns a pointer to v.
func Bool(v bool) *bool { return &v }
