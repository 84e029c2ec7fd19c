package util

import "time"

// DateLayout is the calendar-day layout used for daily bars.
const DateLayout = "2006-01-02"

// TradingDay truncates t to its calendar day in loc and formats it as YYYY-MM-DD.
func TradingDay(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(DateLayout)
}

// CalendarDays returns whole days between two dates, ignoring the clock.
func CalendarDays(from, to time.Time) int {
	f := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	t := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)
	return int(t.Sub(f).Hours() / 24)
}
