package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gurubamal/iimcat-sub002/internal/domain/repository"
	"github.com/gurubamal/iimcat-sub002/internal/service/ratelimit"
	"github.com/gurubamal/iimcat-sub002/internal/usecase"
	"github.com/gurubamal/iimcat-sub002/pkg/config"
	xhttp "github.com/gurubamal/iimcat-sub002/pkg/http"
	"github.com/gurubamal/iimcat-sub002/pkg/http/middleware"
	pkgkafka "github.com/gurubamal/iimcat-sub002/pkg/kafka"
	applogger "github.com/gurubamal/iimcat-sub002/pkg/logger"
)

type Option func(*App)

type closer struct {
	name string
	fn   func() error
}

// App encapsulates the entire application lifecycle.
type App struct {
	cfg *config.Config
	l   *applogger.Logger
	reg prometheus.Registerer

	httpHandler xhttp.Handler
	httpServer  *xhttp.Server
	consumer    *pkgkafka.Consumer
	requests    pkgkafka.MessageHandler
	scheduler   *usecase.Scheduler
	quotes      repository.QuoteStream
	sink        repository.DecisionSink
	closers     []closer
}

func WithHandler(h xhttp.Handler) Option {
	return func(a *App) { a.httpHandler = h }
}

func WithRegisterer(reg prometheus.Registerer) Option {
	return func(a *App) { a.reg = reg }
}

// WithConsumer subscribes h before the consumer starts.
func WithConsumer(c *pkgkafka.Consumer, h pkgkafka.MessageHandler) Option {
	return func(a *App) {
		a.consumer = c
		a.requests = h
	}
}

func WithScheduler(s *usecase.Scheduler) Option {
	return func(a *App) { a.scheduler = s }
}

func WithQuotes(q repository.QuoteStream) Option {
	return func(a *App) { a.quotes = q }
}

// WithSink closes s on shutdown, flushing pending publishes.
func WithSink(s repository.DecisionSink) Option {
	return func(a *App) { a.sink = s }
}

// WithCloser registers fn to run last during shutdown.
func WithCloser(name string, fn func() error) Option {
	return func(a *App) { a.closers = append(a.closers, closer{name: name, fn: fn}) }
}

func New(cfg *config.Config, l *applogger.Logger, opts ...Option) *App {
	if l == nil {
		l = applogger.Nop()
	}
	a := &App{cfg: cfg, l: l, reg: prometheus.DefaultRegisterer}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Run starts every component and blocks until ctx is done or a signal arrives.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if a.quotes != nil {
		if err := a.quotes.Start(ctx); err != nil {
			// Runs fall back to the stored daily close.
			a.l.Warn("quote stream unavailable", applogger.Error(err))
		} else {
			a.l.Info("quote stream started", applogger.String("symbol", a.cfg.Run.IndexSymbol))
		}
	}

	if a.consumer != nil && a.requests != nil {
		a.consumer.RegisterHandler(a.requests)
		if err := a.consumer.Start(); err != nil {
			a.shutdown()
			return err
		}
		a.l.Info("kafka consumer started", applogger.String("topic", a.requests.Topic()))
	}

	if a.scheduler != nil {
		if err := a.scheduler.Start(a.cfg.Run.Schedule); err != nil {
			a.shutdown()
			return err
		}
	}

	a.httpServer = xhttp.NewServer(a.httpHandler, a.l, a.serverOptions()...)
	if err := a.httpServer.Start(); err != nil {
		a.l.Error("http server start error", applogger.Error(err))
		a.shutdown()
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	select {
	case <-sigCh:
		a.l.Info("shutdown signal received")
	case <-ctx.Done():
	}
	a.shutdown()
	return nil
}

func (a *App) serverOptions() []xhttp.ServerOption {
	s := a.cfg.Server
	opts := []xhttp.ServerOption{
		xhttp.WithPort(s.Port),
		xhttp.WithTimeouts(s.ReadTimeout, s.WriteTimeout, s.ShutdownTimeout),
		xhttp.WithCORS(s.CORS),
		xhttp.WithMiddleware(ratelimit.New(s.RateLimit.RPS, s.RateLimit.Burst).Middleware()),
	}
	if a.cfg.Metrics.Enabled {
		opts = append(opts, xhttp.WithMiddleware(middleware.NewHTTPMetrics(a.reg).Middleware()))
		h := promhttp.Handler()
		if g, ok := a.reg.(prometheus.Gatherer); ok {
			h = promhttp.HandlerFor(g, promhttp.HandlerOpts{})
		}
		opts = append(opts, xhttp.WithMetrics(a.cfg.Metrics.Path, h))
	}
	return opts
}

// shutdown stops intake first, then flushes sinks and closes clients.
func (a *App) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	if a.httpServer != nil {
		if err := a.httpServer.Stop(ctx); err != nil {
			a.l.Error("http shutdown error", applogger.Error(err))
		}
	}
	if a.scheduler != nil {
		a.scheduler.Stop()
	}
	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			a.l.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}
	if a.quotes != nil {
		if err := a.quotes.Close(); err != nil {
			a.l.Warn("quote stream close error", applogger.Error(err))
		}
	}
	if a.sink != nil {
		if err := a.sink.Close(); err != nil {
			a.l.Warn("decision sink close error", applogger.Error(err))
		}
	}
	for _, c := range a.closers {
		if err := c.fn(); err != nil {
			a.l.Warn("close error", applogger.String("component", c.name), applogger.Error(err))
		}
	}
	a.l.Info("shutdown complete")
}
