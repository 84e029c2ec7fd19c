package analytics

import (
	"context"
	"fmt"

	"github.com/gurubamal/iimcat-sub002/internal/domain/models"
	domsvc "github.com/gurubamal/iimcat-sub002/internal/domain/service"
)

type HTTPCatalystProvider struct{ base *HTTPServiceBase }

func NewHTTPCatalystProvider(base *HTTPServiceBase) *HTTPCatalystProvider {
	return &HTTPCatalystProvider{base: base}
}

type catalystReq struct {
	Ticker string `json:"ticker"`
}

type catalystResp struct {
	AIScore     *float64 `json:"ai_score"`
	AICertainty *float64 `json:"ai_certainty"`
}

// Catalyst returns nil without error when the bridge has no view on the ticker.
func (p *HTTPCatalystProvider) Catalyst(ctx context.Context, ticker string) (*models.CatalystInput, error) {
	var r catalystResp
	if err := p.base.PostJSONWithRetry(ctx, "/catalyst/score", catalystReq{Ticker: ticker}, &r); err != nil {
		return nil, fmt.Errorf("catalyst %s: %w", ticker, err)
	}
	if r.AIScore == nil || r.AICertainty == nil {
		return nil, nil
	}
	return &models.CatalystInput{AIScore: *r.AIScore, AICertainty: *r.AICertainty}, nil
}

var _ domsvc.CatalystProvider = (*HTTPCatalystProvider)(nil)

type HTTPCrisisProvider struct{ base *HTTPServiceBase }

func NewHTTPCrisisProvider(base *HTTPServiceBase) *HTTPCrisisProvider {
	return &HTTPCrisisProvider{base: base}
}

func (p *HTTPCrisisProvider) Crisis(ctx context.Context, ticker string) (*models.CompanyCrisis, error) {
	var r models.CompanyCrisis
	if err := p.base.PostJSONWithRetry(ctx, "/crisis/assess", catalystReq{Ticker: ticker}, &r); err != nil {
		return nil, fmt.Errorf("crisis %s: %w", ticker, err)
	}
	return &r, nil
}

var _ domsvc.CrisisProvider = (*HTTPCrisisProvider)(nil)
