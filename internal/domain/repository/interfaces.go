package repository

import (
	"context"

	"github.com/gurubamal/iimcat-sub002/internal/domain/models"
)

// MarketDataStore serves daily history and fundamentals.
type MarketDataStore interface {
	DailyBars(ctx context.Context, symbol string, n int) (models.PriceWindow, error)
	Fundamentals(ctx context.Context, symbol string) (*models.FundamentalSnapshot, error)
	LatestValue(ctx context.Context, symbol string) (float64, error)
}

// DecisionSink receives finished decisions for a run.
type DecisionSink interface {
	Append(ctx context.Context, runID string, decisions []models.BoostDecision) error
	Close() error
}

// OutcomeStore appends realized outcomes for later threshold recalibration.
type OutcomeStore interface {
	RecordOutcome(ctx context.Context, outcomes []models.Outcome) error
}

// QuoteStream exposes the most recent intraday index change observed on a live feed.
// SetPreviousClose must be called before IndexChangePct can report a change.
type QuoteStream interface {
	Start(ctx context.Context) error
	SetPreviousClose(symbol string, close float64)
	IndexChangePct(symbol string) (float64, bool)
	Close() error
}

type Metrics interface {
	RecordDecision(regime models.Regime, outcome string)
	RecordVeto(reason string)
	RecordBoost(points float64)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
}
