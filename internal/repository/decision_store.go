package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/gurubamal/iimcat-sub002/internal/domain/models"
	domrepo "github.com/gurubamal/iimcat-sub002/internal/domain/repository"
)

// chunkSize bounds rows per multi-row INSERT.
const chunkSize = 2000

var (
	_ domrepo.DecisionSink = (*CHDecisionStore)(nil)
	_ domrepo.OutcomeStore = (*CHDecisionStore)(nil)
)

type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// CHDecisionStore is the append-only learning store for decisions and outcomes.
type CHDecisionStore struct {
	db       execer
	database string
	now      func() time.Time
}

func NewCHDecisionStore(db *sql.DB, database string) *CHDecisionStore {
	return &CHDecisionStore{db: db, database: database, now: time.Now}
}

func (s *CHDecisionStore) Append(ctx context.Context, runID string, decisions []models.BoostDecision) error {
	if len(decisions) == 0 {
		return nil
	}
	at := s.now().UTC()
	const cols = "(run_id, ticker, evaluated_at, correction_detected, correction_pct, reversal_confirmed, correction_confidence, raw_confidence, boost_applied, base_score, final_score, risk_filters_passed, market_context, safeguard_triggered, verdict, notes, signals)"
	const row = "(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)"

	for start := 0; start < len(decisions); start += chunkSize {
		end := start + chunkSize
		if end > len(decisions) {
			end = len(decisions)
		}
		values := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*17)
		for _, d := range decisions[start:end] {
			signals, err := json.Marshal(d.Signals)
			if err != nil {
				return fmt.Errorf("marshal signals %s: %w", d.Ticker, err)
			}
			values = append(values, row)
			args = append(args,
				runID, d.Ticker, at,
				d.CorrectionDetected, d.CorrectionPct, d.ReversalConfirmed,
				d.CorrectionConfidence, d.RawConfidence, d.BoostApplied,
				d.BaseScore, d.FinalScore, d.RiskFiltersPassed,
				string(d.MarketContext), d.SafeguardTriggered, string(d.Verdict),
				d.Notes, string(signals),
			)
		}
		q := fmt.Sprintf("INSERT INTO %s.boost_decisions %s VALUES %s", s.database, cols, strings.Join(values, ","))
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			return fmt.Errorf("insert decisions: %w", err)
		}
	}
	return nil
}

func (s *CHDecisionStore) RecordOutcome(ctx context.Context, outcomes []models.Outcome) error {
	if len(outcomes) == 0 {
		return nil
	}
	for start := 0; start < len(outcomes); start += chunkSize {
		end := start + chunkSize
		if end > len(outcomes) {
			end = len(outcomes)
		}
		values := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*8)
		for _, o := range outcomes[start:end] {
			at := o.RecordedAt
			if at.IsZero() {
				at = s.now()
			}
			values = append(values, "(?, ?, ?, ?, ?, ?, ?, ?)")
			args = append(args, o.RunID, o.Ticker, o.EntryPrice, o.ExitPrice, o.ReturnPct(), int32(o.HoldingDays), o.BoostApplied, at.UTC())
		}
		q := fmt.Sprintf("INSERT INTO %s.rebound_outcomes (run_id, ticker, entry_price, exit_price, return_pct, holding_days, boost_applied, recorded_at) VALUES %s", s.database, strings.Join(values, ","))
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			return fmt.Errorf("insert outcomes: %w", err)
		}
	}
	return nil
}

// Close is a no-op; the connection belongs to pkg/clickhouse.
func (s *CHDecisionStore) Close() error { return nil }
