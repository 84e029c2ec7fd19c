package models

import "time"

type Verdict string

const (
	VerdictApprove Verdict = "APPROVE"
	VerdictCaution Verdict = "CAUTION"
	VerdictReject  Verdict = "REJECT"
)

// CorrectionEvent describes a qualifying peak-to-trough pullback.
type CorrectionEvent struct {
	PeakPrice           float64   `json:"peak_price"`
	PeakDate            time.Time `json:"peak_date"`
	TroughPrice         float64   `json:"trough_price"`
	TroughDate          time.Time `json:"trough_date"`
	DeclinePct          float64   `json:"decline_pct"`
	DeclineDurationDays int       `json:"decline_duration_days"`
	DeclineBars         int       `json:"decline_bars"`
	VolumeSpikeRatio    float64   `json:"volume_spike_ratio"`
}

// ReversalSignal is the audit set behind reversal confirmation.
type ReversalSignal struct {
	PriceAboveMA20         bool    `json:"price_above_ma20"`
	RSIMomentumCross       bool    `json:"rsi_momentum_cross"`
	BullishPattern         bool    `json:"bullish_pattern"`
	Pattern                string  `json:"pattern,omitempty"`
	ConsolidationConfirmed bool    `json:"consolidation_confirmed"`
	RangePct               float64 `json:"range_pct"` // high-low spread / last close
	Confirmed              bool    `json:"confirmed"`
}

// MomentumSignals counts the non-consolidation signals that fired.
func (r ReversalSignal) MomentumSignals() int {
	n := 0
	for _, ok := range []bool{r.PriceAboveMA20, r.RSIMomentumCross, r.BullishPattern} {
		if ok {
			n++
		}
	}
	return n
}

type OversoldScore struct {
	RSI            float64 `json:"rsi"`
	PercentB       float64 `json:"percent_b"`
	RelativeVolume float64 `json:"relative_volume"`
	RSIScore       float64 `json:"rsi_score"`
	BBScore        float64 `json:"bb_score"`
	VolumeScore    float64 `json:"volume_score"`
	Score          float64 `json:"score"`
}

type FundamentalScore struct {
	Score   float64  `json:"score"`
	Missing []string `json:"missing,omitempty"`
}

type RiskCheck struct {
	Name      string   `json:"name"`
	Passed    bool     `json:"passed"`
	Value     *float64 `json:"value,omitempty"`
	Threshold float64  `json:"threshold"`
	Reason    string   `json:"reason,omitempty"`
}

// RiskProfile is transient: it is only kept in the decision's audit signals.
type RiskProfile struct {
	Checks []RiskCheck `json:"checks"`
	Passed bool        `json:"passed"`
}

// Failed lists the names of failed checks.
func (p RiskProfile) Failed() []string {
	var out []string
	for _, c := range p.Checks {
		if !c.Passed {
			out = append(out, c.Name)
		}
	}
	return out
}

// Signals is the raw material a supervisor reviews alongside the decision.
type Signals struct {
	Correction       *CorrectionEvent  `json:"correction,omitempty"`
	DeclinePct       *float64          `json:"decline_pct,omitempty"`
	Reversal         *ReversalSignal   `json:"reversal,omitempty"`
	Oversold         *OversoldScore    `json:"oversold,omitempty"`
	Fundamental      *FundamentalScore `json:"fundamental,omitempty"`
	CatalystScore    *float64          `json:"catalyst_score,omitempty"`
	Risk             *RiskProfile      `json:"risk,omitempty"`
	MinConfidence    float64           `json:"min_confidence"`
	MaxBoost         float64           `json:"max_boost"`
	SectorPenalty    float64           `json:"sector_penalty"`
	SafeguardTrigger string            `json:"safeguard_trigger,omitempty"`
}

// BoostDecision is the engine's only output. Field names are a stable contract.
type BoostDecision struct {
	Ticker               string   `json:"ticker"`
	CorrectionDetected   bool     `json:"correction_detected"`
	CorrectionPct        *float64 `json:"correction_pct"`
	ReversalConfirmed    bool     `json:"reversal_confirmed"`
	CorrectionConfidence float64  `json:"correction_confidence"`
	RawConfidence        float64  `json:"raw_confidence"`
	BoostApplied         float64  `json:"boost_applied"`
	BaseScore            float64  `json:"base_score"`
	FinalScore           float64  `json:"final_score"`
	RiskFiltersPassed    bool     `json:"risk_filters_passed"`
	MarketContext        Regime   `json:"market_context"`
	SafeguardTriggered   bool     `json:"safeguard_triggered"`
	Verdict              Verdict  `json:"verdict,omitempty"`
	Notes                string   `json:"notes"`
	Signals              Signals  `json:"signals"`
}

// Outcome is the realized price move recorded against an earlier decision.
type Outcome struct {
	RunID        string    `json:"run_id" validate:"required"`
	Ticker       string    `json:"ticker" validate:"required"`
	EntryPrice   float64   `json:"entry_price" validate:"gt=0"`
	ExitPrice    float64   `json:"exit_price" validate:"gt=0"`
	HoldingDays  int       `json:"holding_days" validate:"gte=0"`
	BoostApplied float64   `json:"boost_applied"`
	RecordedAt   time.Time `json:"recorded_at"`
}

// ReturnPct is the realized percentage move.
func (o Outcome) ReturnPct() float64 {
	if o.EntryPrice == 0 {
		return 0
	}
	return (o.ExitPrice - o.EntryPrice) / o.EntryPrice * 100
}
