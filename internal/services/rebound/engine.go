// Package rebound implements the correction-to-rebound confidence engine.
// Everything here is a pure function of its inputs; the only run-wide state is
// the RunSnapshot, built once and handed to every evaluation by value.
package rebound

import (
	"fmt"
	"strings"

	"github.com/gurubamal/iimcat-sub002/internal/domain/models"
	"github.com/gurubamal/iimcat-sub002/internal/services/indicators"
	"github.com/gurubamal/iimcat-sub002/pkg/config"
)

// RunSnapshot is the market state shared by all evaluations of one run.
// It is not refreshed mid-run.
type RunSnapshot struct {
	ID        string               `json:"id"`
	Context   models.MarketContext `json:"context"`
	Safeguard SafeguardSnapshot    `json:"safeguard"`
}

// Assessment collects the per-ticker stage outputs that feed the decision.
type Assessment struct {
	Correction  models.CorrectionEvent
	Reversal    models.ReversalSignal
	Oversold    models.OversoldScore
	Fundamental models.FundamentalScore
	Catalyst    float64
}

type Engine struct {
	cfg         config.Engine
	detector    *Detector
	reversal    *ReversalConfirmer
	oversold    *OversoldScorer
	fundamental *FundamentalEvaluator
	catalyst    *CatalystScorer
	aggregator  *Aggregator
	risk        *RiskFilter
	market      *ContextClassifier
	safeguard   *Safeguard
	boost       *BoostApplier
}

// NewEngine expects a validated configuration.
func NewEngine(cfg config.Engine) *Engine {
	return &Engine{
		cfg:         cfg,
		detector:    NewDetector(cfg.Correction),
		reversal:    NewReversalConfirmer(cfg.Reversal),
		oversold:    NewOversoldScorer(cfg.Oversold),
		fundamental: NewFundamentalEvaluator(cfg.Fundamental),
		catalyst:    NewCatalystScorer(cfg.Catalyst),
		aggregator:  NewAggregator(cfg.Confidence),
		risk:        NewRiskFilter(cfg.Risk),
		market:      NewContextClassifier(cfg.Market),
		safeguard:   NewSafeguard(cfg.Safeguard),
		boost:       NewBoostApplier(cfg.Boost),
	}
}

func (e *Engine) Config() config.Engine { return e.cfg }

// NewRun classifies the market and computes run-wide safeguards.
func (e *Engine) NewRun(id string, in models.MarketInputs) RunSnapshot {
	ctx := e.market.Classify(in)
	return RunSnapshot{ID: id, Context: ctx, Safeguard: e.safeguard.Snapshot(ctx)}
}

// Evaluate never fails: missing or malformed input yields a no-boost decision
// whose notes explain why. A triggered safeguard is reported on every decision,
// including tickers that never reach the gates.
func (e *Engine) Evaluate(in models.TickerInput, run RunSnapshot) models.BoostDecision {
	return e.guard(e.evaluate(in, run), in, run)
}

func (e *Engine) evaluate(in models.TickerInput, run RunSnapshot) models.BoostDecision {
	d := e.blank(in, run)

	if err := in.Bars.Validate(); err != nil {
		return insufficient(d, err.Error())
	}
	if in.Fundamentals == nil {
		return insufficient(d, "missing fundamentals")
	}

	det := e.detector.Detect(in.Bars)
	d.Signals.DeclinePct = det.DeclinePct
	if !det.Detected {
		d.Notes = det.Reason
		return d
	}

	over, err := e.oversold.Score(in.Bars)
	if err != nil {
		return insufficient(d, err.Error())
	}

	return e.Decide(in, run, Assessment{
		Correction:  *det.Event,
		Reversal:    e.reversal.Confirm(in.Bars),
		Oversold:    over,
		Fundamental: e.fundamental.Score(in.Fundamentals),
		Catalyst:    e.catalyst.Score(in.Catalyst),
	})
}

// Decide applies blending, regime adjustment, vetoes and the tier schedule to
// an assessed correction. Every gate leaves a note.
func (e *Engine) Decide(in models.TickerInput, run RunSnapshot, a Assessment) models.BoostDecision {
	d := e.blank(in, run)
	notes := []string{fmt.Sprintf("correction %.1f%% over %d bars (volume %.2fx)",
		a.Correction.DeclinePct, a.Correction.DeclineBars, a.Correction.VolumeSpikeRatio)}

	event, rev, over, fund, cat := a.Correction, a.Reversal, a.Oversold, a.Fundamental, a.Catalyst
	d.CorrectionDetected = true
	d.CorrectionPct = &event.DeclinePct
	d.ReversalConfirmed = rev.Confirmed
	d.Signals.Correction = &event
	d.Signals.DeclinePct = &event.DeclinePct
	d.Signals.Reversal = &rev
	d.Signals.Oversold = &over
	d.Signals.Fundamental = &fund
	d.Signals.CatalystScore = &cat
	notes = append(notes, reversalNote(rev))

	d.RawConfidence = e.aggregator.Confidence(over.Score, fund.Score, cat)
	adj := e.market.Adjust(run.Context, in.Sector)
	d.CorrectionConfidence = round6(indicators.Clamp(d.RawConfidence-adj.SectorPenalty, 0, 1))
	d.Signals.MinConfidence = adj.MinConfidence
	d.Signals.MaxBoost = adj.MaxBoost
	d.Signals.SectorPenalty = adj.SectorPenalty
	notes = append(notes,
		fmt.Sprintf("confidence %.3f (oversold %.1f, fundamental %.1f, catalyst %.1f)",
			d.CorrectionConfidence, over.Score, fund.Score, cat),
		adj.Note,
	)

	risk := e.risk.Evaluate(in.Fundamentals, d.CorrectionConfidence)
	d.RiskFiltersPassed = risk.Passed
	d.Signals.Risk = &risk

	vetoed := false
	if trig := e.safeguard.Check(run.Safeguard, in.Sector, in.Crisis); trig != nil {
		d.SafeguardTriggered = true
		d.Signals.SafeguardTrigger = trig.Reason
		notes = append(notes, trig.Reason)
		vetoed = true
	}
	if !risk.Passed {
		notes = append(notes, "risk veto: "+strings.Join(risk.Failed(), ", "))
		vetoed = true
	}
	if !rev.Confirmed {
		notes = append(notes, "reversal not confirmed: no boost (falling knife guard)")
		vetoed = true
	}

	if vetoed {
		d.FinalScore = d.BaseScore
	} else {
		res := e.boost.Apply(d.CorrectionConfidence, adj, d.BaseScore)
		d.BoostApplied = res.Boost
		d.FinalScore = res.Final
		notes = append(notes, res.Note)
	}

	d.Notes = strings.Join(notes, "; ")
	return d
}

// Unavailable is the no-boost decision for a ticker whose inputs could not be fetched.
func (e *Engine) Unavailable(in models.TickerInput, run RunSnapshot, reason string) models.BoostDecision {
	return e.guard(insufficient(e.blank(in, run), reason), in, run)
}

// guard marks d with the run or sector safeguard when Decide did not already.
func (e *Engine) guard(d models.BoostDecision, in models.TickerInput, run RunSnapshot) models.BoostDecision {
	if d.SafeguardTriggered {
		return d
	}
	trig := e.safeguard.Check(run.Safeguard, in.Sector, in.Crisis)
	if trig == nil {
		return d
	}
	d.SafeguardTriggered = true
	d.Signals.SafeguardTrigger = trig.Reason
	d.BoostApplied = 0
	d.FinalScore = d.BaseScore
	d.Notes = appendNote(d.Notes, trig.Reason)
	return d
}

func (e *Engine) blank(in models.TickerInput, run RunSnapshot) models.BoostDecision {
	base := indicators.Clamp(in.BaseScore, 0, 100)
	return models.BoostDecision{
		Ticker:        in.Ticker,
		BaseScore:     base,
		FinalScore:    base,
		MarketContext: run.Context.Regime,
	}
}

func insufficient(d models.BoostDecision, reason string) models.BoostDecision {
	d.Notes = appendNote(d.Notes, ErrInsufficientData.Error()+": "+reason)
	return d
}

func appendNote(notes, note string) string {
	if notes == "" {
		return note
	}
	return notes + "; " + note
}

func reversalNote(r models.ReversalSignal) string {
	var fired []string
	if r.PriceAboveMA20 {
		fired = append(fired, "price>MA20")
	}
	if r.RSIMomentumCross {
		fired = append(fired, "RSI cross")
	}
	if r.BullishPattern {
		fired = append(fired, r.Pattern)
	}
	if r.ConsolidationConfirmed {
		fired = append(fired, fmt.Sprintf("consolidation (range %.1f%%)", r.RangePct*100))
	}
	state := "reversal not confirmed"
	if r.Confirmed {
		state = "reversal confirmed"
	}
	if len(fired) == 0 {
		return state + ": no signals"
	}
	return state + ": " + strings.Join(fired, ", ")
}
