package rebound

import (
	"fmt"

	"github.com/gurubamal/iimcat-sub002/internal/domain/models"
	"github.com/gurubamal/iimcat-sub002/internal/services/indicators"
	"github.com/gurubamal/iimcat-sub002/pkg/config"
	"github.com/gurubamal/iimcat-sub002/pkg/util"
)

// Detection is the detector's verdict. DeclinePct is set whenever a peak and a
// later trough were found, even if the pullback was rejected.
type Detection struct {
	Detected   bool
	Event      *models.CorrectionEvent
	DeclinePct *float64
	Reason     string
	Err        error
}

// Detector finds a qualifying pullback from a recent high.
type Detector struct {
	cfg config.CorrectionConfig
}

func NewDetector(cfg config.CorrectionConfig) *Detector {
	return &Detector{cfg: cfg}
}

func (d *Detector) Detect(w models.PriceWindow) Detection {
	if len(w) < d.cfg.Lookback {
		return Detection{
			Reason: fmt.Sprintf("insufficient data: %d bars, need %d", len(w), d.cfg.Lookback),
			Err:    ErrInsufficientData,
		}
	}

	offset := len(w) - d.cfg.Lookback
	win := w[offset:]

	peak := 0
	for i, b := range win {
		if b.Close >= win[peak].Close {
			peak = i
		}
	}
	if peak == len(win)-1 {
		return Detection{Reason: "no pullback: trading at lookback high"}
	}

	trough := peak + 1
	for i := peak + 1; i < len(win); i++ {
		if win[i].Close < win[trough].Close {
			trough = i
		}
	}

	peakBar, troughBar := win[peak], win[trough]
	decline := round6((peakBar.Close - troughBar.Close) / peakBar.Close * 100)
	det := Detection{DeclinePct: &decline}

	switch {
	case decline < d.cfg.MinDeclinePct:
		det.Reason = fmt.Sprintf("decline %.1f%% below %.1f%% minimum", decline, d.cfg.MinDeclinePct)
		return det
	case decline > d.cfg.MaxDeclinePct:
		det.Reason = fmt.Sprintf("decline %.1f%% above %.1f%% maximum (crash, not correction)", decline, d.cfg.MaxDeclinePct)
		return det
	}

	bars := trough - peak
	if bars < d.cfg.MinBarsPeakToTrough {
		det.Reason = fmt.Sprintf("decline over %d bars, need %d", bars, d.cfg.MinBarsPeakToTrough)
		return det
	}

	// Baseline may reach before the lookback window.
	absPeak, absTrough := offset+peak, offset+trough
	from := absPeak - d.cfg.BaselineBars
	if from < 0 {
		from = 0
	}
	baseline := indicators.Mean(w[from:absPeak].Volumes())
	if baseline <= 0 {
		det.Reason = "no pre-decline volume baseline"
		return det
	}
	ratio := round6(indicators.Mean(w[absPeak+1:absTrough+1].Volumes()) / baseline)
	if ratio < d.cfg.VolumeSpikeMultiple {
		det.Reason = fmt.Sprintf("decline volume %.2fx baseline, need %.2fx", ratio, d.cfg.VolumeSpikeMultiple)
		return det
	}

	det.Detected = true
	det.Event = &models.CorrectionEvent{
		PeakPrice:           peakBar.Close,
		PeakDate:            peakBar.Date,
		TroughPrice:         troughBar.Close,
		TroughDate:          troughBar.Date,
		DeclinePct:          decline,
		DeclineDurationDays: util.CalendarDays(peakBar.Date, troughBar.Date),
		DeclineBars:         bars,
		VolumeSpikeRatio:    ratio,
	}
	det.Reason = fmt.Sprintf("correction %.1f%% over %d bars (volume %.2fx)", decline, bars, ratio)
	return det
}
