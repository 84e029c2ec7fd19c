package rebound

import (
	"math"
	"time"

	"github.com/gurubamal/iimcat-sub002/internal/domain/models"
	"github.com/gurubamal/iimcat-sub002/pkg/config"
)

var day0 = time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)

func bar(i int, open, close, volume float64) models.PriceBar {
	return models.PriceBar{
		Date:   day0.AddDate(0, 0, i),
		Open:   open,
		High:   math.Max(open, close) * 1.005,
		Low:    math.Min(open, close) * 0.995,
		Close:  close,
		Volume: volume,
	}
}

// series builds bars from closes; each bar opens at the previous close.
func series(closes, volumes []float64) models.PriceWindow {
	w := make(models.PriceWindow, len(closes))
	prev := closes[0]
	for i, c := range closes {
		w[i] = bar(i, prev, c, volumes[i])
		prev = c
	}
	return w
}

// recovering is an 80-bar window: a rise to 100 at bar 30, a heavy-volume
// decline of declinePct over ten bars, then a slow grind higher.
func recovering(declinePct float64) models.PriceWindow {
	trough := 100 * (1 - declinePct/100)
	closes := make([]float64, 80)
	vols := make([]float64, 80)
	for i := range closes {
		switch {
		case i <= 30:
			closes[i] = 90 + 10*float64(i)/30
			vols[i] = 1000
		case i <= 40:
			closes[i] = 100 - (100-trough)*float64(i-30)/10
			vols[i] = 2000
		default:
			closes[i] = trough * (1 + 0.0015*float64(i-40))
			vols[i] = 1000
		}
	}
	return series(closes, vols)
}

// fallingKnife declines from bar 30 until the last bar.
func fallingKnife(declinePct float64) models.PriceWindow {
	trough := 100 * (1 - declinePct/100)
	closes := make([]float64, 80)
	vols := make([]float64, 80)
	for i := range closes {
		if i <= 30 {
			closes[i] = 90 + 10*float64(i)/30
			vols[i] = 1000
			continue
		}
		closes[i] = 100 - (100-trough)*float64(i-30)/49
		vols[i] = 2000
	}
	return series(closes, vols)
}

func flat(n int, price float64) models.PriceWindow {
	closes := make([]float64, n)
	vols := make([]float64, n)
	for i := range closes {
		closes[i] = price
		vols[i] = 1000
	}
	return series(closes, vols)
}

func healthy() *models.FundamentalSnapshot {
	return &models.FundamentalSnapshot{
		DebtToEquity:               models.Float(0.5),
		CurrentRatio:               models.Float(1.5),
		MarketCap:                  models.Float(5e10),
		AvgDailyVolume:             models.Float(500000),
		Beta:                       models.Float(1.0),
		ListingAgeMonths:           models.Float(120),
		QuarterlyEarningsGrowthYoY: models.Float(8),
		AnnualEarningsGrowthYoY:    models.Float(12),
		IsProfitable:               models.Bool(true),
		NetWorthPositive:           models.Bool(true),
	}
}

func run(regime models.Regime) RunSnapshot {
	return RunSnapshot{ID: "test", Context: models.MarketContext{Regime: regime}}
}

func newTestEngine() *Engine {
	return NewEngine(config.DefaultEngine())
}

func confirmed() models.ReversalSignal {
	return models.ReversalSignal{PriceAboveMA20: true, ConsolidationConfirmed: true, RangePct: 0.03, Confirmed: true}
}

func assessed(decline, oversold, fundamental, catalyst float64, rev models.ReversalSignal) Assessment {
	return Assessment{
		Correction:  models.CorrectionEvent{PeakPrice: 100, TroughPrice: 100 - decline, DeclinePct: decline, DeclineBars: 10, VolumeSpikeRatio: 2},
		Reversal:    rev,
		Oversold:    models.OversoldScore{Score: oversold},
		Fundamental: models.FundamentalScore{Score: fundamental},
		Catalyst:    catalyst,
	}
}
