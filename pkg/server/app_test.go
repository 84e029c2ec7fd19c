package server

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gurubamal/iimcat-sub002/internal/domain/models"
	"github.com/gurubamal/iimcat-sub002/pkg/config"
)

type downQuotes struct{ closed bool }

func (q *downQuotes) Start(context.Context) error           { return errors.New("feed down") }
func (q *downQuotes) SetPreviousClose(string, float64)      {}
func (q *downQuotes) IndexChangePct(string) (float64, bool) { return 0, false }
func (q *downQuotes) Close() error                          { q.closed = true; return nil }

type countingSink struct{ closed int }

func (s *countingSink) Append(context.Context, string, []models.BoostDecision) error { return nil }
func (s *countingSink) Close() error                                                 { s.closed++; return nil }

func TestRunStopsOnContextAndClosesEverything(t *testing.T) {
	cfg := config.Default()
	cfg.Server.Port = 0
	cfg.Server.ShutdownTimeout = time.Second

	q := &downQuotes{}
	sink := &countingSink{}
	var closed []string
	app := New(cfg, nil,
		WithRegisterer(prometheus.NewRegistry()),
		WithQuotes(q),
		WithSink(sink),
		WithCloser("a", func() error { closed = append(closed, "a"); return nil }),
		WithCloser("b", func() error { closed = append(closed, "b"); return errors.New("ignored") }),
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("app did not stop")
	}
	assert.True(t, q.closed, "a failed quote stream is still closed")
	assert.Equal(t, 1, sink.closed)
	assert.Equal(t, []string{"a", "b"}, closed)
}
