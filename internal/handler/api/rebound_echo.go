package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/gurubamal/iimcat-sub002/internal/usecase"
	"github.com/gurubamal/iimcat-sub002/pkg/config"
	xhttp "github.com/gurubamal/iimcat-sub002/pkg/http"
	xlogger "github.com/gurubamal/iimcat-sub002/pkg/logger"
)

// HealthCheck probes one dependency.
type HealthCheck func(ctx context.Context) error

// ReboundEchoHandler serves the evaluation API under /api/v1.
type ReboundEchoHandler struct {
	logger *xlogger.Logger
	uc     *usecase.RunUseCase
	engine config.Engine
	checks map[string]HealthCheck
}

func NewReboundEchoHandler(logger *xlogger.Logger, uc *usecase.RunUseCase, engine config.Engine, checks map[string]HealthCheck) *ReboundEchoHandler {
	return &ReboundEchoHandler{logger: logger, uc: uc, engine: engine, checks: checks}
}

func (h *ReboundEchoHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Health)
	g := e.Group("/api/v1")
	g.POST("/evaluate", h.Evaluate)
	g.POST("/runs", h.Run)
	g.POST("/outcomes", h.Outcomes)
	g.GET("/config", h.Config)
}

func (h *ReboundEchoHandler) Evaluate(c echo.Context) error {
	req := &usecase.EvaluateRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	return xhttp.SuccessResponse(c, h.uc.EvaluateInline(c.Request().Context(), *req))
}

func (h *ReboundEchoHandler) Run(c echo.Context) error {
	req := &usecase.RunRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	res, err := h.uc.Run(c.Request().Context(), *req)
	if err != nil {
		h.logger.Error("run usecase error", xlogger.Error(err))
		if errors.Is(err, usecase.ErrNoMarketStore) {
			return xhttp.AppErrorResponse(c, xhttp.UnavailableErrorf("market data store is not configured").WithError(err))
		}
		return xhttp.AppErrorResponse(c, xhttp.UnavailableErrorf("market context unavailable").WithError(err))
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *ReboundEchoHandler) Outcomes(c echo.Context) error {
	req := &usecase.OutcomesRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if err := h.uc.RecordOutcomes(c.Request().Context(), req.Outcomes); err != nil {
		h.logger.Error("outcomes usecase error", xlogger.Error(err))
		if errors.Is(err, usecase.ErrOutcomesDisabled) {
			return xhttp.AppErrorResponse(c, xhttp.UnavailableErrorf("outcome store is not configured"))
		}
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.CreatedResponse(c, map[string]int{"recorded": len(req.Outcomes)})
}

func (h *ReboundEchoHandler) Config(c echo.Context) error {
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=60")
	return xhttp.SuccessResponse(c, h.engine)
}

// Health reports 503 when any dependency fails its probe.
func (h *ReboundEchoHandler) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()
	status := make(map[string]string, len(h.checks))
	code := http.StatusOK
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			status[name] = err.Error()
			code = http.StatusServiceUnavailable
			continue
		}
		status[name] = "ok"
	}
	return xhttp.DataResponse(c, code, status)
}
