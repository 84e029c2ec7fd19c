package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gurubamal/iimcat-sub002/internal/domain/models"
	xhttp "github.com/gurubamal/iimcat-sub002/pkg/http"
)

func bridge(t *testing.T, h http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv
}

func newBase(url string, opts ...BaseOption) *HTTPServiceBase {
	opts = append([]BaseOption{WithRetries(3, time.Millisecond)}, opts...)
	return NewHTTPServiceBase("test", url, opts...)
}

func TestCatalystProvider(t *testing.T) {
	srv := bridge(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/catalyst/score", r.URL.Path)
		var req map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if req["ticker"] == "NONE" {
			_, _ = w.Write([]byte(`{}`))
			return
		}
		_, _ = w.Write([]byte(`{"ai_score":80,"ai_certainty":0.9}`))
	})
	p := NewHTTPCatalystProvider(newBase(srv.URL))

	c, err := p.Catalyst(context.Background(), "INFY")
	require.NoError(t, err)
	assert.Equal(t, &models.CatalystInput{AIScore: 80, AICertainty: 0.9}, c)

	c, err = p.Catalyst(context.Background(), "NONE")
	require.NoError(t, err)
	assert.Nil(t, c)
}

func TestRetriesTemporaryFailures(t *testing.T) {
	var calls atomic.Int32
	srv := bridge(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"scandal":true}`))
	})
	p := NewHTTPCrisisProvider(newBase(srv.URL))

	c, err := p.Crisis(context.Background(), "INFY")
	require.NoError(t, err)
	assert.True(t, c.Scandal)
	assert.Equal(t, int32(3), calls.Load())
}

func TestDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := bridge(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	})
	p := NewHTTPCatalystProvider(newBase(srv.URL))

	_, err := p.Catalyst(context.Background(), "INFY")
	require.Error(t, err)
	var se *xhttp.StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusBadRequest, se.Code)
	assert.Equal(t, int32(1), calls.Load())
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	var calls atomic.Int32
	srv := bridge(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	})
	base := newBase(srv.URL,
		WithRetries(1, time.Millisecond),
		WithBreaker(BreakerSettings{MaxRequests: 1, Interval: time.Minute, OpenTimeout: time.Minute, FailureThreshold: 2}),
	)
	p := NewHTTPCatalystProvider(base)

	for i := 0; i < 2; i++ {
		_, err := p.Catalyst(context.Background(), "INFY")
		require.Error(t, err)
	}
	assert.Equal(t, gobreaker.StateOpen, base.State())

	_, err := p.Catalyst(context.Background(), "INFY")
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, int32(2), calls.Load())
}

func TestSupervisorVerdicts(t *testing.T) {
	srv := bridge(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/supervisor/review", r.URL.Path)
		var req reviewReq
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		verdict := "REJECT"
		if req.Decision.Ticker == "ODD" {
			verdict = "MAYBE"
		}
		_, _ = w.Write([]byte(`{"verdict":"` + verdict + `"}`))
	})
	s := NewHTTPSupervisor(newBase(srv.URL))

	v, err := s.Validate(context.Background(), models.BoostDecision{Ticker: "INFY"}, models.Signals{})
	require.NoError(t, err)
	assert.Equal(t, models.VerdictReject, v)

	_, err = s.Validate(context.Background(), models.BoostDecision{Ticker: "ODD"}, models.Signals{})
	assert.Error(t, err)
}

func TestUnconfiguredBase(t *testing.T) {
	p := NewHTTPCatalystProvider(NewHTTPServiceBase("none", ""))
	_, err := p.Catalyst(context.Background(), "INFY")
	assert.ErrorIs(t, err, ErrNotConfigured)
}
