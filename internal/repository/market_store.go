package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/gurubamal/iimcat-sub002/internal/domain/models"
	domrepo "github.com/gurubamal/iimcat-sub002/internal/domain/repository"
	applogger "github.com/gurubamal/iimcat-sub002/pkg/logger"
)

// ErrNoData is returned when a symbol has no rows at all.
var ErrNoData = errors.New("no market data")

var _ domrepo.MarketDataStore = (*CHMarketStore)(nil)

// CHMarketStore implements MarketDataStore backed by ClickHouse.
type CHMarketStore struct {
	db       *sql.DB
	database string
	l        *applogger.Logger
}

func NewCHMarketStore(db *sql.DB, database string, l *applogger.Logger) *CHMarketStore {
	if l == nil {
		l = applogger.Nop()
	}
	return &CHMarketStore{db: db, database: database, l: l}
}

// DailyBars returns the latest n bars, oldest first.
func (s *CHMarketStore) DailyBars(ctx context.Context, symbol string, n int) (models.PriceWindow, error) {
	start := time.Now()
	q := fmt.Sprintf(`
        SELECT date, open, high, low, close, volume
        FROM %s.daily_bars FINAL
        WHERE symbol = ?
        ORDER BY date DESC
        LIMIT ?`, s.database)
	rows, err := s.db.QueryContext(ctx, q, symbol, n)
	if err != nil {
		s.fail("daily_bars query", symbol, err)
		return nil, fmt.Errorf("daily bars %s: %w", symbol, err)
	}
	defer rows.Close()

	out := make(models.PriceWindow, 0, n)
	for rows.Next() {
		var b models.PriceBar
		if err := rows.Scan(&b.Date, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			s.fail("daily_bars scan", symbol, err)
			return nil, fmt.Errorf("scan bar: %w", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		s.fail("daily_bars rows", symbol, err)
		return nil, fmt.Errorf("rows: %w", err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("daily bars %s: %w", symbol, ErrNoData)
	}
	// reverse to ASC
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	s.l.Debug("clickhouse daily_bars ok",
		applogger.String("symbol", symbol),
		applogger.Int("rows", len(out)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return out, nil
}

// Fundamentals returns the latest snapshot, or nil when the symbol has none.
func (s *CHMarketStore) Fundamentals(ctx context.Context, symbol string) (*models.FundamentalSnapshot, error) {
	q := fmt.Sprintf(`
        SELECT debt_to_equity, current_ratio, market_cap, avg_daily_volume, beta,
               listing_age_months, quarterly_earnings_growth_yoy, annual_earnings_growth_yoy,
               is_profitable, net_worth_positive
        FROM %s.fundamentals FINAL
        WHERE symbol = ?
        ORDER BY as_of DESC
        LIMIT 1`, s.database)

	var (
		de, cr, mcap, adv, beta, age, qg, ag sql.NullFloat64
		profitable, netWorth                 sql.NullBool
	)
	err := s.db.QueryRowContext(ctx, q, symbol).Scan(&de, &cr, &mcap, &adv, &beta, &age, &qg, &ag, &profitable, &netWorth)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		s.fail("fundamentals query", symbol, err)
		return nil, fmt.Errorf("fundamentals %s: %w", symbol, err)
	}
	return &models.FundamentalSnapshot{
		DebtToEquity:               nullFloat(de),
		CurrentRatio:               nullFloat(cr),
		MarketCap:                  nullFloat(mcap),
		AvgDailyVolume:             nullFloat(adv),
		Beta:                       nullFloat(beta),
		ListingAgeMonths:           nullFloat(age),
		QuarterlyEarningsGrowthYoY: nullFloat(qg),
		AnnualEarningsGrowthYoY:    nullFloat(ag),
		IsProfitable:               nullBool(profitable),
		NetWorthPositive:           nullBool(netWorth),
	}, nil
}

// LatestValue is the most recent close, used for gauges like VIX.
func (s *CHMarketStore) LatestValue(ctx context.Context, symbol string) (float64, error) {
	q := fmt.Sprintf(`SELECT close FROM %s.daily_bars FINAL WHERE symbol = ? ORDER BY date DESC LIMIT 1`, s.database)
	var v float64
	err := s.db.QueryRowContext(ctx, q, symbol).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("latest %s: %w", symbol, ErrNoData)
	}
	if err != nil {
		s.fail("latest query", symbol, err)
		return 0, fmt.Errorf("latest %s: %w", symbol, err)
	}
	return v, nil
}

func (s *CHMarketStore) fail(op, symbol string, err error) {
	s.l.Error("clickhouse "+op+" error",
		applogger.String("symbol", symbol),
		applogger.Error(err),
	)
}

func nullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	return models.Float(v.Float64)
}

func nullBool(v sql.NullBool) *bool {
	if !v.Valid {
		return nil
	}
	return models.Bool(v.Bool)
}
