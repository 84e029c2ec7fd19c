package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/gurubamal/iimcat-sub002/internal/domain/models"
	domrepo "github.com/gurubamal/iimcat-sub002/internal/domain/repository"
	domsvc "github.com/gurubamal/iimcat-sub002/internal/domain/service"
	"github.com/gurubamal/iimcat-sub002/internal/service/cache"
	"github.com/gurubamal/iimcat-sub002/internal/services/rebound"
	"github.com/gurubamal/iimcat-sub002/pkg/logger"
	"github.com/gurubamal/iimcat-sub002/pkg/util"
)

var (
	ErrNoMarketStore    = errors.New("market data store is not configured")
	ErrOutcomesDisabled = errors.New("outcome store is not configured")
)

type RunConfig struct {
	Bars          int
	Workers       int
	IndexSymbol   string
	VIXSymbol     string
	SectorIndices map[string]string
	SnapshotTTL   time.Duration
	FetchTimeout  time.Duration
	Location      *time.Location
}

type RunOption func(*RunUseCase)

func WithCatalysts(p domsvc.CatalystProvider) RunOption {
	return func(u *RunUseCase) { u.catalysts = p }
}

func WithCrises(p domsvc.CrisisProvider) RunOption {
	return func(u *RunUseCase) { u.crises = p }
}

func WithQuotes(q domrepo.QuoteStream) RunOption {
	return func(u *RunUseCase) { u.quotes = q }
}

func WithSink(s domrepo.DecisionSink) RunOption {
	return func(u *RunUseCase) { u.sink = s }
}

func WithOutcomes(o domrepo.OutcomeStore) RunOption {
	return func(u *RunUseCase) { u.outcomes = o }
}

// WithSnapshotCache shares the market snapshot across runs of one trading day.
func WithSnapshotCache(c cache.BytesCache) RunOption {
	return func(u *RunUseCase) { u.cache = c }
}

func WithRunLogger(l *logger.Logger) RunOption {
	return func(u *RunUseCase) { u.l = l }
}

func withClock(now func() time.Time) RunOption {
	return func(u *RunUseCase) { u.now = now }
}

func withIDs(newID func() string) RunOption {
	return func(u *RunUseCase) { u.newID = newID }
}

// RunUseCase resolves inputs through the collaborators, evaluates them and
// hands the decisions to the sinks.
type RunUseCase struct {
	engine    *rebound.Engine
	evaluator *BatchEvaluator
	store     domrepo.MarketDataStore
	metrics   domrepo.Metrics
	cfg       RunConfig

	catalysts domsvc.CatalystProvider
	crises    domsvc.CrisisProvider
	quotes    domrepo.QuoteStream
	sink      domrepo.DecisionSink
	outcomes  domrepo.OutcomeStore
	cache     cache.BytesCache
	l         *logger.Logger
	now       func() time.Time
	newID     func() string
}

// NewRunUseCase accepts a nil store; only inline evaluation works then.
func NewRunUseCase(engine *rebound.Engine, evaluator *BatchEvaluator, store domrepo.MarketDataStore, metrics domrepo.Metrics, cfg RunConfig, opts ...RunOption) *RunUseCase {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 20 * time.Second
	}
	u := &RunUseCase{
		engine:    engine,
		evaluator: evaluator,
		store:     store,
		metrics:   metrics,
		cfg:       cfg,
		l:         logger.Nop(),
		now:       time.Now,
		newID:     uuid.NewString,
	}
	for _, o := range opts {
		o(u)
	}
	return u
}

// Run evaluates tickers whose inputs come from the market store and providers.
func (u *RunUseCase) Run(ctx context.Context, req RunRequest) (*RunResult, error) {
	if u.store == nil {
		return nil, ErrNoMarketStore
	}
	start := time.Now()
	snap, err := u.Snapshot(ctx)
	if err != nil {
		u.metrics.RecordError("snapshot")
		return nil, err
	}

	inputs := make([]models.TickerInput, len(req.Tickers))
	failed := make([]error, len(req.Tickers))
	sem := make(chan struct{}, u.cfg.Workers)
	var wg sync.WaitGroup
	for i, t := range req.Tickers {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, t RunTicker) {
			defer wg.Done()
			defer func() { <-sem }()
			inputs[i], failed[i] = u.fetch(ctx, t)
		}(i, t)
	}
	wg.Wait()

	// fetched and unavailable tickers are evaluated separately, then merged back in order
	var ok []models.TickerInput
	var okIdx []int
	decisions := make([]models.BoostDecision, len(inputs))
	for i, in := range inputs {
		if failed[i] != nil {
			u.metrics.RecordError("fetch")
			u.l.Warn("ticker inputs unavailable", logger.Ticker(in.Ticker), logger.Error(failed[i]))
			decisions[i] = u.engine.Unavailable(in, snap, failed[i].Error())
			u.metrics.RecordDecision(snap.Context.Regime, OutcomeNoCorrection)
			continue
		}
		ok = append(ok, in)
		okIdx = append(okIdx, i)
	}
	for j, d := range u.evaluator.Evaluate(ctx, snap, ok) {
		decisions[okIdx[j]] = d
	}

	res := u.finish(ctx, snap, decisions)
	u.metrics.RecordLatency("run", time.Since(start).Seconds())
	u.l.Info("run complete",
		logger.RunID(snap.ID),
		logger.String("regime", string(snap.Context.Regime)),
		logger.Int("tickers", len(decisions)),
		logger.Duration("duration_ms", time.Since(start)),
	)
	return res, nil
}

// EvaluateInline evaluates prefetched inputs against the supplied market series.
func (u *RunUseCase) EvaluateInline(ctx context.Context, req EvaluateRequest) *RunResult {
	id := req.RunID
	if id == "" {
		id = u.newID()
	}
	snap := u.engine.NewRun(id, req.Market)
	return u.finish(ctx, snap, u.evaluator.Evaluate(ctx, snap, req.Tickers))
}

func (u *RunUseCase) finish(ctx context.Context, snap rebound.RunSnapshot, decisions []models.BoostDecision) *RunResult {
	res := &RunResult{RunID: snap.ID, Context: snap.Context, Safeguard: snap.Safeguard, Decisions: decisions}
	if u.sink == nil {
		return res
	}
	if err := u.sink.Append(ctx, snap.ID, decisions); err != nil {
		u.metrics.RecordError("sink")
		u.l.Error("publish decisions failed", logger.RunID(snap.ID), logger.Error(err))
		return res
	}
	res.Published = true
	return res
}

// RecordOutcomes appends realized outcomes to the learning store.
func (u *RunUseCase) RecordOutcomes(ctx context.Context, outcomes []models.Outcome) error {
	if u.outcomes == nil {
		return ErrOutcomesDisabled
	}
	now := u.now()
	for i := range outcomes {
		if outcomes[i].RecordedAt.IsZero() {
			outcomes[i].RecordedAt = now
		}
	}
	if err := u.outcomes.RecordOutcome(ctx, outcomes); err != nil {
		u.metrics.RecordError("outcomes")
		return fmt.Errorf("record outcomes: %w", err)
	}
	return nil
}

// Snapshot returns the market snapshot for the current trading day, reusing
// a cached one when available. Every call gets a fresh run ID.
func (u *RunUseCase) Snapshot(ctx context.Context) (rebound.RunSnapshot, error) {
	key := "rebound:snapshot:" + util.TradingDay(u.now(), u.cfg.Location)
	var snap rebound.RunSnapshot
	if u.cache != nil {
		hit, err := cache.GetJSON(ctx, u.cache, key, &snap)
		if err != nil {
			u.l.Warn("snapshot cache read failed", logger.Error(err))
		}
		if hit {
			snap.ID = u.newID()
			return snap, nil
		}
	}

	in, err := u.marketInputs(ctx)
	if err != nil {
		return rebound.RunSnapshot{}, err
	}
	snap = u.engine.NewRun(u.newID(), in)
	if u.cache != nil {
		if err := cache.SetJSON(ctx, u.cache, key, snap, u.cfg.SnapshotTTL); err != nil {
			u.l.Warn("snapshot cache write failed", logger.Error(err))
		}
	}
	return snap, nil
}

func (u *RunUseCase) marketInputs(ctx context.Context) (models.MarketInputs, error) {
	ctx, cancel := context.WithTimeout(ctx, u.cfg.FetchTimeout)
	defer cancel()

	index, err := u.store.DailyBars(ctx, u.cfg.IndexSymbol, u.cfg.Bars)
	if err != nil {
		return models.MarketInputs{}, fmt.Errorf("market context: %w", err)
	}
	vix, err := u.store.LatestValue(ctx, u.cfg.VIXSymbol)
	if err != nil {
		return models.MarketInputs{}, fmt.Errorf("market context: %w", err)
	}
	in := models.MarketInputs{Index: index, VIX: vix, AsOf: u.now()}

	if u.quotes != nil && len(index) > 0 {
		u.quotes.SetPreviousClose(u.cfg.IndexSymbol, index.Last().Close)
		if pct, ok := u.quotes.IndexChangePct(u.cfg.IndexSymbol); ok {
			in.LiveIndexChangePct = &pct
		}
	}

	sectorBars := u.engine.Config().Market.SectorLookbackBars + 1
	for sector, symbol := range u.cfg.SectorIndices {
		w, err := u.store.DailyBars(ctx, symbol, sectorBars)
		if err != nil {
			u.l.Warn("sector index unavailable", logger.String("sector", sector), logger.Error(err))
			continue
		}
		if in.Sectors == nil {
			in.Sectors = make(map[string]models.PriceWindow)
		}
		in.Sectors[sector] = w
	}
	return in, nil
}

// fetch returns the input even on error so the caller can report the ticker.
func (u *RunUseCase) fetch(ctx context.Context, t RunTicker) (models.TickerInput, error) {
	in := models.TickerInput{Ticker: t.Ticker, Sector: t.Sector, BaseScore: t.BaseScore}
	ctx, cancel := context.WithTimeout(ctx, u.cfg.FetchTimeout)
	defer cancel()

	bars, err := u.store.DailyBars(ctx, t.Ticker, u.cfg.Bars)
	if err != nil {
		return in, fmt.Errorf("fetch bars: %w", err)
	}
	in.Bars = bars
	f, err := u.store.Fundamentals(ctx, t.Ticker)
	if err != nil {
		return in, fmt.Errorf("fetch fundamentals: %w", err)
	}
	in.Fundamentals = f

	// catalyst and crisis are optional; a failed call scores as absent
	if u.catalysts != nil {
		c, err := u.catalysts.Catalyst(ctx, t.Ticker)
		if err != nil {
			u.metrics.RecordError("catalyst")
			u.l.Warn("catalyst unavailable", logger.Ticker(t.Ticker), logger.Error(err))
		}
		in.Catalyst = c
	}
	if u.crises != nil {
		c, err := u.crises.Crisis(ctx, t.Ticker)
		if err != nil {
			u.metrics.RecordError("crisis")
			u.l.Warn("crisis check unavailable", logger.Ticker(t.Ticker), logger.Error(err))
		}
		in.Crisis = c
	}
	return in, nil
}
