package rebound

import (
	"context"
	"strings"

	"github.com/gurubamal/iimcat-sub002/internal/domain/models"
	"github.com/gurubamal/iimcat-sub002/internal/domain/service"
)

var _ service.DecisionValidator = (*RuleSupervisor)(nil)

// RuleSupervisor is a deterministic second opinion on finished decisions.
type RuleSupervisor struct {
	weakCatalyst float64
	weakOversold float64
	maxMissing   int
}

type SupervisorOption func(*RuleSupervisor)

// WithWeakSignals sets the catalyst and oversold scores below which a boost
// rests on thin evidence.
func WithWeakSignals(catalyst, oversold float64) SupervisorOption {
	return func(s *RuleSupervisor) {
		s.weakCatalyst = catalyst
		s.weakOversold = oversold
	}
}

// WithMaxMissingFundamentals sets how many missing fundamentals are tolerated
// before a boost is flagged.
func WithMaxMissingFundamentals(n int) SupervisorOption {
	return func(s *RuleSupervisor) { s.maxMissing = n }
}

func NewRuleSupervisor(opts ...SupervisorOption) *RuleSupervisor {
	s := &RuleSupervisor{weakCatalyst: 20, weakOversold: 30, maxMissing: 2}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RuleSupervisor) Validate(_ context.Context, d models.BoostDecision, sig models.Signals) (models.Verdict, error) {
	if d.BoostApplied <= 0 {
		return models.VerdictApprove, nil
	}
	if !d.ReversalConfirmed || !d.RiskFiltersPassed || d.SafeguardTriggered {
		return models.VerdictReject, nil
	}
	if sig.CatalystScore != nil && sig.Oversold != nil &&
		*sig.CatalystScore < s.weakCatalyst && sig.Oversold.Score < s.weakOversold {
		return models.VerdictCaution, nil
	}
	if sig.Fundamental != nil && len(sig.Fundamental.Missing) > s.maxMissing {
		return models.VerdictCaution, nil
	}
	return models.VerdictApprove, nil
}

// ApplyVerdict records a supervisor verdict on d. REJECT withdraws the boost.
func ApplyVerdict(d *models.BoostDecision, v models.Verdict, reason string) {
	d.Verdict = v
	note := "supervisor " + strings.ToLower(string(v))
	if reason != "" {
		note += ": " + reason
	}
	switch v {
	case models.VerdictReject:
		d.BoostApplied = 0
		d.FinalScore = d.BaseScore
		d.Notes += "; " + note
	case models.VerdictCaution:
		d.Notes += "; " + note
	}
}
