package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gurubamal/iimcat-sub002/internal/services/rebound"
	"github.com/gurubamal/iimcat-sub002/internal/usecase"
	"github.com/gurubamal/iimcat-sub002/pkg/config"
	"github.com/gurubamal/iimcat-sub002/pkg/logger"
	"github.com/gurubamal/iimcat-sub002/pkg/metrics"
)

func newTestServer(checks map[string]HealthCheck) *echo.Echo {
	cfg := config.DefaultEngine()
	engine := rebound.NewEngine(cfg)
	eval := usecase.NewBatchEvaluator(engine, nil, metrics.Nop{}, nil, 2)
	uc := usecase.NewRunUseCase(engine, eval, nil, metrics.Nop{}, usecase.RunConfig{Bars: 120})

	e := echo.New()
	NewReboundEchoHandler(logger.Nop(), uc, cfg, checks).RegisterRoutes(e)
	return e
}

func do(e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestEvaluateEndpoint(t *testing.T) {
	e := newTestServer(nil)
	rec := do(e, http.MethodPost, "/api/v1/evaluate", `{
        "run_id": "api-1",
        "market": {"vix": 12},
        "tickers": [{"ticker": "INFY", "base_score": 55}]
    }`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body struct {
		Data usecase.RunResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "api-1", body.Data.RunID)
	require.Len(t, body.Data.Decisions, 1)
	d := body.Data.Decisions[0]
	assert.Equal(t, 55.0, d.FinalScore)
	assert.Contains(t, d.Notes, "insufficient data")
}

func TestEvaluateRejectsInvalidRequest(t *testing.T) {
	e := newTestServer(nil)
	rec := do(e, http.MethodPost, "/api/v1/evaluate", `{"tickers": []}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(e, http.MethodPost, "/api/v1/runs", `{"tickers": [{"ticker": "INFY", "base_score": 140}]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "base_score")
}

func TestRunsWithoutStoreIsUnavailable(t *testing.T) {
	e := newTestServer(nil)
	rec := do(e, http.MethodPost, "/api/v1/runs", `{"tickers": [{"ticker": "INFY", "base_score": 50}]}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "ERR_UNAVAILABLE")
}

func TestOutcomesWithoutStoreIsUnavailable(t *testing.T) {
	e := newTestServer(nil)
	rec := do(e, http.MethodPost, "/api/v1/outcomes", `{"outcomes": [{"run_id": "r", "ticker": "INFY", "entry_price": 100, "exit_price": 104}]}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = do(e, http.MethodPost, "/api/v1/outcomes", `{"outcomes": [{"run_id": "r", "ticker": "INFY", "entry_price": 0, "exit_price": 104}]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestConfigEndpoint(t *testing.T) {
	e := newTestServer(nil)
	rec := do(e, http.MethodGet, "/api/v1/config", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"min_confidence":0.3`)
}

func TestHealthEndpoint(t *testing.T) {
	e := newTestServer(map[string]HealthCheck{
		"clickhouse": func(context.Context) error { return nil },
	})
	assert.Equal(t, http.StatusOK, do(e, http.MethodGet, "/healthz", "").Code)

	e = newTestServer(map[string]HealthCheck{
		"clickhouse": func(context.Context) error { return nil },
		"redis":      func(context.Context) error { return errors.New("dial tcp: refused") },
	})
	rec := do(e, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "refused")
}
