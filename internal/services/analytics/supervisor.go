package analytics

import (
	"context"
	"fmt"

	"github.com/gurubamal/iimcat-sub002/internal/domain/models"
	domsvc "github.com/gurubamal/iimcat-sub002/internal/domain/service"
)

// HTTPSupervisor asks the AI bridge to review a finished decision.
type HTTPSupervisor struct{ base *HTTPServiceBase }

func NewHTTPSupervisor(base *HTTPServiceBase) *HTTPSupervisor {
	return &HTTPSupervisor{base: base}
}

type reviewReq struct {
	Decision models.BoostDecision `json:"decision"`
	Signals  models.Signals       `json:"signals"`
}

type reviewResp struct {
	Verdict models.Verdict `json:"verdict"`
}

func (s *HTTPSupervisor) Validate(ctx context.Context, d models.BoostDecision, sig models.Signals) (models.Verdict, error) {
	var r reviewResp
	if err := s.base.PostJSONWithRetry(ctx, "/supervisor/review", reviewReq{Decision: d, Signals: sig}, &r); err != nil {
		return "", fmt.Errorf("review %s: %w", d.Ticker, err)
	}
	switch r.Verdict {
	case models.VerdictApprove, models.VerdictCaution, models.VerdictReject:
		return r.Verdict, nil
	default:
		return "", fmt.Errorf("review %s: unknown verdict %q", d.Ticker, r.Verdict)
	}
}

var _ domsvc.DecisionValidator = (*HTTPSupervisor)(nil)
