package util

import (
	"testing"
	"time"
)

func TestTradingDay(t *testing.T) {
	ist := time.FixedZone("IST", 5*3600+1800)
	ts := time.Date(2024, 5, 6, 20, 0, 0, 0, time.UTC)
	if got := TradingDay(ts, ist); got != "2024-05-07" {
		t.Fatalf("unexpected trading day %s", got)
	}
	if got := TradingDay(ts, nil); got != "2024-05-06" {
		t.Fatalf("unexpected utc trading day %s", got)
	}
}

func TestCalendarDays(t *testing.T) {
	from := time.Date(2024, 1, 5, 15, 30, 0, 0, time.UTC)
	to := time.Date(2024, 1, 12, 9, 15, 0, 0, time.UTC)
	if got := CalendarDays(from, to); got != 7 {
		t.Fatalf("expected 7 days, got %d", got)
	}
}
