package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/gurubamal/iimcat-sub002/internal/domain/models"
	domrepo "github.com/gurubamal/iimcat-sub002/internal/domain/repository"
	domsvc "github.com/gurubamal/iimcat-sub002/internal/domain/service"
	"github.com/gurubamal/iimcat-sub002/internal/services/rebound"
	"github.com/gurubamal/iimcat-sub002/pkg/logger"
)

// Decision outcomes reported to metrics.
const (
	OutcomeBoosted        = "boosted"
	OutcomeVetoed         = "vetoed"
	OutcomeBelowThreshold = "below_threshold"
	OutcomeNoCorrection   = "no_correction"
)

// BatchEvaluator evaluates tickers in parallel against one run snapshot.
type BatchEvaluator struct {
	engine     *rebound.Engine
	supervisor domsvc.DecisionValidator
	metrics    domrepo.Metrics
	l          *logger.Logger
	workers    int
}

// NewBatchEvaluator accepts a nil supervisor.
func NewBatchEvaluator(engine *rebound.Engine, supervisor domsvc.DecisionValidator, metrics domrepo.Metrics, l *logger.Logger, workers int) *BatchEvaluator {
	if workers < 1 {
		workers = 1
	}
	if l == nil {
		l = logger.Nop()
	}
	return &BatchEvaluator{engine: engine, supervisor: supervisor, metrics: metrics, l: l, workers: workers}
}

// Evaluate returns one decision per input, in input order.
func (b *BatchEvaluator) Evaluate(ctx context.Context, run rebound.RunSnapshot, inputs []models.TickerInput) []models.BoostDecision {
	start := time.Now()
	out := make([]models.BoostDecision, len(inputs))

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < b.workers && w < len(inputs); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				out[i] = b.evaluateOne(ctx, run, inputs[i])
			}
		}()
	}
	for i := range inputs {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	b.metrics.RecordLatency("evaluate_batch", time.Since(start).Seconds())
	return out
}

func (b *BatchEvaluator) evaluateOne(ctx context.Context, run rebound.RunSnapshot, in models.TickerInput) models.BoostDecision {
	d := b.engine.Evaluate(in, run)
	b.supervise(ctx, &d)
	b.record(d)
	return d
}

// supervise only reviews decisions that carry a boost.
func (b *BatchEvaluator) supervise(ctx context.Context, d *models.BoostDecision) {
	if b.supervisor == nil || d.BoostApplied <= 0 {
		return
	}
	v, err := b.supervisor.Validate(ctx, *d, d.Signals)
	if err != nil {
		b.metrics.RecordError("supervisor")
		b.l.Warn("supervisor unavailable", logger.Ticker(d.Ticker), logger.Error(err))
		d.Notes += "; supervisor unavailable"
		return
	}
	reason := ""
	if v == models.VerdictReject {
		reason = "boost withdrawn"
		b.metrics.RecordVeto("supervisor")
	}
	rebound.ApplyVerdict(d, v, reason)
}

func (b *BatchEvaluator) record(d models.BoostDecision) {
	outcome := Outcome(d)
	b.metrics.RecordDecision(d.MarketContext, outcome)
	if d.BoostApplied > 0 {
		b.metrics.RecordBoost(d.BoostApplied)
	}
	if outcome != OutcomeVetoed || d.Verdict == models.VerdictReject {
		return
	}
	switch {
	case d.SafeguardTriggered:
		b.metrics.RecordVeto("safeguard")
	case !d.RiskFiltersPassed:
		b.metrics.RecordVeto("risk")
	case !d.ReversalConfirmed:
		b.metrics.RecordVeto("reversal")
	}
}

// Outcome classifies a decision for reporting.
func Outcome(d models.BoostDecision) string {
	switch {
	case d.SafeguardTriggered:
		return OutcomeVetoed
	case !d.CorrectionDetected:
		return OutcomeNoCorrection
	case d.BoostApplied > 0:
		return OutcomeBoosted
	case !d.RiskFiltersPassed || !d.ReversalConfirmed || d.Verdict == models.VerdictReject:
		return OutcomeVetoed
	default:
		return OutcomeBelowThreshold
	}
}
