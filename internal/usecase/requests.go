package usecase

import (
	"github.com/gurubamal/iimcat-sub002/internal/domain/models"
	"github.com/gurubamal/iimcat-sub002/internal/services/rebound"
)

// EvaluateRequest carries fully prefetched inputs.
type EvaluateRequest struct {
	RunID   string               `json:"run_id"`
	Market  models.MarketInputs  `json:"market"`
	Tickers []models.TickerInput `json:"tickers" validate:"required,min=1,max=500,dive"`
}

type RunTicker struct {
	Ticker    string  `json:"ticker" validate:"required"`
	Sector    string  `json:"sector,omitempty"`
	BaseScore float64 `json:"base_score" validate:"gte=0,lte=100"`
}

// RunRequest names tickers whose inputs are fetched from the collaborators.
type RunRequest struct {
	Tickers []RunTicker `json:"tickers" validate:"required,min=1,max=500,dive"`
}

type OutcomesRequest struct {
	Outcomes []models.Outcome `json:"outcomes" validate:"required,min=1,dive"`
}

type RunResult struct {
	RunID     string                    `json:"run_id"`
	Context   models.MarketContext      `json:"market_context"`
	Safeguard rebound.SafeguardSnapshot `json:"safeguard"`
	Decisions []models.BoostDecision    `json:"decisions"`
	Published bool                      `json:"published"`
}
