package usecase

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"github.com/gurubamal/iimcat-sub002/internal/domain/models"
	"github.com/gurubamal/iimcat-sub002/internal/services/rebound"
	"github.com/gurubamal/iimcat-sub002/pkg/config"
)

var day0 = time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)

func window(closes, volumes []float64) models.PriceWindow {
	w := make(models.PriceWindow, len(closes))
	prev := closes[0]
	for i, c := range closes {
		w[i] = models.PriceBar{
			Date:   day0.AddDate(0, 0, i),
			Open:   prev,
			High:   math.Max(prev, c) * 1.005,
			Low:    math.Min(prev, c) * 0.995,
			Close:  c,
			Volume: volumes[i],
		}
		prev = c
	}
	return w
}

// recovering: rise to 100, an 18.5% heavy-volume decline, then a slow grind higher.
func recovering() models.PriceWindow {
	trough := 81.5
	closes := make([]float64, 80)
	vols := make([]float64, 80)
	for i := range closes {
		switch {
		case i <= 30:
			closes[i] = 90 + 10*float64(i)/30
			vols[i] = 1000
		case i <= 40:
			closes[i] = 100 - (100-trough)*float64(i-30)/10
			vols[i] = 2000
		default:
			closes[i] = trough * (1 + 0.0015*float64(i-40))
			vols[i] = 1000
		}
	}
	return window(closes, vols)
}

// trending moves linearly by step per bar.
func trending(n int, start, step float64) models.PriceWindow {
	closes := make([]float64, n)
	vols := make([]float64, n)
	for i := range closes {
		closes[i] = start + step*float64(i)
		vols[i] = 1000
	}
	return window(closes, vols)
}

func healthy() *models.FundamentalSnapshot {
	return &models.FundamentalSnapshot{
		DebtToEquity:               models.Float(0.5),
		CurrentRatio:               models.Float(1.5),
		MarketCap:                  models.Float(5e10),
		AvgDailyVolume:             models.Float(500000),
		Beta:                       models.Float(1.0),
		ListingAgeMonths:           models.Float(120),
		QuarterlyEarningsGrowthYoY: models.Float(8),
		AnnualEarningsGrowthYoY:    models.Float(12),
		IsProfitable:               models.Bool(true),
		NetWorthPositive:           models.Bool(true),
	}
}

func testEngine() *rebound.Engine { return rebound.NewEngine(config.DefaultEngine()) }

func bullMarket() models.MarketInputs {
	return models.MarketInputs{Index: trending(60, 100, 0.5), VIX: 14}
}

func input(ticker string) models.TickerInput {
	return models.TickerInput{
		Ticker:       ticker,
		Sector:       "IT",
		BaseScore:    60,
		Bars:         recovering(),
		Fundamentals: healthy(),
		Catalyst:     &models.CatalystInput{AIScore: 60, AICertainty: 0.8},
	}
}

type fakeStore struct {
	mu           sync.Mutex
	bars         map[string]models.PriceWindow
	fundamentals map[string]*models.FundamentalSnapshot
	values       map[string]float64
	barCalls     map[string]int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		bars: map[string]models.PriceWindow{
			"NIFTY":   trending(120, 100, 0.5),
			"NIFTYIT": trending(10, 100, 0.1),
			"INFY":    recovering(),
			"TCS":     recovering(),
		},
		fundamentals: map[string]*models.FundamentalSnapshot{"INFY": healthy(), "TCS": healthy()},
		values:       map[string]float64{"INDIAVIX": 14},
		barCalls:     map[string]int{},
	}
}

var errNotFound = errors.New("not found")

func (s *fakeStore) DailyBars(_ context.Context, symbol string, n int) (models.PriceWindow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.barCalls[symbol]++
	w, ok := s.bars[symbol]
	if !ok {
		return nil, errNotFound
	}
	return w.Tail(n), nil
}

func (s *fakeStore) Fundamentals(_ context.Context, symbol string) (*models.FundamentalSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fundamentals[symbol], nil
}

func (s *fakeStore) LatestValue(_ context.Context, symbol string) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[symbol]
	if !ok {
		return 0, errNotFound
	}
	return v, nil
}

func (s *fakeStore) calls(symbol string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.barCalls[symbol]
}

type fakeSink struct {
	mu     sync.Mutex
	runs   map[string][]models.BoostDecision
	err    error
	closed bool
}

func (s *fakeSink) Append(_ context.Context, runID string, d []models.BoostDecision) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	if s.runs == nil {
		s.runs = map[string][]models.BoostDecision{}
	}
	s.runs[runID] = append(s.runs[runID], d...)
	return nil
}

func (s *fakeSink) Close() error { s.closed = true; return nil }

type fakeOutcomes struct{ got []models.Outcome }

func (f *fakeOutcomes) RecordOutcome(_ context.Context, o []models.Outcome) error {
	f.got = append(f.got, o...)
	return nil
}

type fakeMetrics struct {
	mu        sync.Mutex
	decisions map[string]int
	vetoes    map[string]int
	errors    map[string]int
	boosts    []float64
}

func newFakeMetrics() *fakeMetrics {
	return &fakeMetrics{decisions: map[string]int{}, vetoes: map[string]int{}, errors: map[string]int{}}
}

func (m *fakeMetrics) RecordDecision(r models.Regime, outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.decisions[string(r)+"/"+outcome]++
}

func (m *fakeMetrics) RecordVeto(reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.vetoes[reason]++
}

func (m *fakeMetrics) RecordBoost(p float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.boosts = append(m.boosts, p)
}

func (m *fakeMetrics) RecordError(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors[kind]++
}

func (m *fakeMetrics) RecordLatency(string, float64) {}

type fixedSupervisor struct {
	verdict models.Verdict
	err     error
	calls   int
	mu      sync.Mutex
}

func (s *fixedSupervisor) Validate(context.Context, models.BoostDecision, models.Signals) (models.Verdict, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.verdict, s.err
}

type fakeCatalysts struct{ err error }

func (f fakeCatalysts) Catalyst(context.Context, string) (*models.CatalystInput, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.CatalystInput{AIScore: 60, AICertainty: 0.8}, nil
}

type fakeQuotes struct {
	prev map[string]float64
	pct  float64
	ok   bool
}

func (q *fakeQuotes) Start(context.Context) error { return nil }
func (q *fakeQuotes) SetPreviousClose(symbol string, c float64) {
	if q.prev == nil {
		q.prev = map[string]float64{}
	}
	q.prev[symbol] = c
}
func (q *fakeQuotes) IndexChangePct(string) (float64, bool) { return q.pct, q.ok }
func (q *fakeQuotes) Close() error                          { return nil }
