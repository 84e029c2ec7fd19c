package repository

import "fmt"

// Schema returns the DDL for the market history and learning tables.
func Schema(database string) []string {
	return []string{
		fmt.Sprintf(`CREATE DATABASE IF NOT EXISTS %s`, database),
		fmt.Sprintf(`
        CREATE TABLE IF NOT EXISTS %s.daily_bars (
            symbol LowCardinality(String),
            date   Date,
            open   Float64,
            high   Float64,
            low    Float64,
            close  Float64,
            volume Float64
        ) ENGINE = ReplacingMergeTree
        ORDER BY (symbol, date)`, database),
		fmt.Sprintf(`
        CREATE TABLE IF NOT EXISTS %s.fundamentals (
            symbol                        LowCardinality(String),
            as_of                         DateTime,
            debt_to_equity                Nullable(Float64),
            current_ratio                 Nullable(Float64),
            market_cap                    Nullable(Float64),
            avg_daily_volume              Nullable(Float64),
            beta                          Nullable(Float64),
            listing_age_months            Nullable(Float64),
            quarterly_earnings_growth_yoy Nullable(Float64),
            annual_earnings_growth_yoy    Nullable(Float64),
            is_profitable                 Nullable(Bool),
            net_worth_positive            Nullable(Bool)
        ) ENGINE = ReplacingMergeTree(as_of)
        ORDER BY symbol`, database),
		// Redelivered requests rewrite the same (run_id, ticker) rows.
		fmt.Sprintf(`
        CREATE TABLE IF NOT EXISTS %s.boost_decisions (
            run_id                String,
            ticker                LowCardinality(String),
            evaluated_at          DateTime64(3),
            correction_detected   Bool,
            correction_pct        Nullable(Float64),
            reversal_confirmed    Bool,
            correction_confidence Float64,
            raw_confidence        Float64,
            boost_applied         Float64,
            base_score            Float64,
            final_score           Float64,
            risk_filters_passed   Bool,
            market_context        LowCardinality(String),
            safeguard_triggered   Bool,
            verdict               LowCardinality(String),
            notes                 String,
            signals               String
        ) ENGINE = ReplacingMergeTree(evaluated_at)
        ORDER BY (run_id, ticker)`, database),
		fmt.Sprintf(`
        CREATE TABLE IF NOT EXISTS %s.rebound_outcomes (
            run_id        String,
            ticker        LowCardinality(String),
            entry_price   Float64,
            exit_price    Float64,
            return_pct    Float64,
            holding_days  Int32,
            boost_applied Float64,
            recorded_at   DateTime64(3)
        ) ENGINE = MergeTree
        ORDER BY (run_id, ticker)`, database),
	}
}
