package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	domrepo "github.com/gurubamal/iimcat-sub002/internal/domain/repository"
	xhttp "github.com/gurubamal/iimcat-sub002/pkg/http"
	pkgkafka "github.com/gurubamal/iimcat-sub002/pkg/kafka"
	"github.com/gurubamal/iimcat-sub002/pkg/logger"
)

var _ pkgkafka.MessageHandler = (*RequestsHandler)(nil)

// RequestsHandler consumes inline evaluation requests from Kafka.
// Decisions leave through the run use case's sinks.
type RequestsHandler struct {
	topic   string
	uc      *RunUseCase
	metrics domrepo.Metrics
	l       *logger.Logger
}

func NewRequestsHandler(topic string, uc *RunUseCase, metrics domrepo.Metrics, l *logger.Logger) *RequestsHandler {
	if l == nil {
		l = logger.Nop()
	}
	return &RequestsHandler{topic: topic, uc: uc, metrics: metrics, l: l}
}

func (h *RequestsHandler) Topic() string { return h.topic }

func (h *RequestsHandler) Handle(ctx context.Context, b []byte) error {
	var req EvaluateRequest
	if err := json.Unmarshal(b, &req); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return fmt.Errorf("decode request: %w", err)
	}
	if verrs := xhttp.ValidateStruct(ctx, &req); len(verrs) > 0 {
		h.metrics.RecordError("consumer_invalid")
		fields := make([]string, len(verrs))
		for i, v := range verrs {
			fields[i] = v.Field
		}
		return fmt.Errorf("invalid request: %s", strings.Join(fields, ", "))
	}
	if req.RunID == "" {
		req.RunID = pkgkafka.TraceIDFrom(ctx)
	}

	res := h.uc.EvaluateInline(ctx, req)
	if !res.Published && h.uc.sink != nil {
		return fmt.Errorf("run %s: decisions not published", res.RunID)
	}
	h.l.Info("request evaluated",
		logger.RunID(res.RunID),
		logger.Int("tickers", len(res.Decisions)),
	)
	return nil
}
