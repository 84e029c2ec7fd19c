package service

import (
	"context"

	"github.com/gurubamal/iimcat-sub002/internal/domain/models"
)

// DecisionValidator is a post-hoc second opinion on a finished decision.
type DecisionValidator interface {
	Validate(ctx context.Context, decision models.BoostDecision, signals models.Signals) (models.Verdict, error)
}

// CatalystProvider returns the AI-assessed catalyst for a ticker.
type CatalystProvider interface {
	Catalyst(ctx context.Context, ticker string) (*models.CatalystInput, error)
}

// CrisisProvider returns optional company-level crisis indicators.
type CrisisProvider interface {
	Crisis(ctx context.Context, ticker string) (*models.CompanyCrisis, error)
}
