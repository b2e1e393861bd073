// Package calendar answers trading-day and trading-hours questions for the
// exchange. All checks are pure functions of the supplied time; only the
// convenience helpers that look at "now" read the clock.
package calendar

import (
	"fmt"
	"time"
)

// Trading session bounds, exchange local time.
const (
	openHour    = 9
	openMinute  = 15
	closeHour   = 15
	closeMinute = 30
)

// holidays is the fixed exchange holiday set, keyed by local date.
// Maintained yearly alongside the exchange circular.
var holidays = map[string]string{
	"2025-02-26": "Mahashivratri",
	"2025-03-14": "Holi",
	"2025-03-31": "Id-Ul-Fitr",
	"2025-04-10": "Shri Mahavir Jayanti",
	"2025-04-14": "Dr. Baba Saheb Ambedkar Jayanti",
	"2025-04-18": "Good Friday",
	"2025-05-01": "Maharashtra Day",
	"2025-08-15": "Independence Day",
	"2025-08-27": "Ganesh Chaturthi",
	"2025-10-02": "Mahatma Gandhi Jayanti / Dussehra",
	"2025-10-21": "Diwali Laxmi Pujan",
	"2025-10-22": "Balipratipada",
	"2025-11-05": "Gurunanak Jayanti",
	"2025-12-25": "Christmas",
	"2026-01-26": "Republic Day",
	"2026-03-04": "Holi",
	"2026-04-03": "Good Friday",
	"2026-04-14": "Dr. Baba Saheb Ambedkar Jayanti",
	"2026-05-01": "Maharashtra Day",
	"2026-10-02": "Mahatma Gandhi Jayanti",
	"2026-11-10": "Diwali Laxmi Pujan",
	"2026-12-25": "Christmas",
}

// Calendar answers market-timing questions in the exchange timezone
type Calendar struct {
	loc *time.Location

	// Now is the clock used by IsMarketOpen, IsEndOfDay, TimeToOpen and
	// TimeToClose. Overridable in tests.
	Now func() time.Time
}

// New creates a Calendar for the given timezone, eg "Asia/Kolkata".
// An unrecognized timezone is a configuration error.
func New(timezone string) (*Calendar, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("unrecognized timezone %q: %v", timezone, err)
	}
	return &Calendar{loc: loc, Now: time.Now}, nil
}

// Location returns the exchange timezone
func (c *Calendar) Location() *time.Location {
	return c.loc
}

// TradingDate formats t as the local trading date, YYYY-MM-DD
func (c *Calendar) TradingDate(t time.Time) string {
	return t.In(c.loc).Format("2006-01-02")
}

// IsTradingDay reports whether the date of t is a trading day.
// Weekends and the fixed holiday set are not trading days.
func (c *Calendar) IsTradingDay(t time.Time) bool {
	t = t.In(c.loc)
	switch t.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	_, holiday := holidays[t.Format("2006-01-02")]
	return !holiday
}

// IsWithinTradingHours reports whether the clock time of t falls inside
// the trading session, open and close inclusive.
func (c *Calendar) IsWithinTradingHours(t time.Time) bool {
	t = t.In(c.loc)
	minutes := t.Hour()*60 + t.Minute()
	return minutes >= openHour*60+openMinute && minutes <= closeHour*60+closeMinute
}

// IsMarketOpen reports whether the market is open right now
func (c *Calendar) IsMarketOpen() bool {
	now := c.Now()
	return c.IsTradingDay(now) && c.IsWithinTradingHours(now)
}

// IsEndOfDay reports whether now is on a trading day at or past the close
func (c *Calendar) IsEndOfDay() bool {
	now := c.Now().In(c.loc)
	if !c.IsTradingDay(now) {
		return false
	}
	minutes := now.Hour()*60 + now.Minute()
	return minutes >= closeHour*60+closeMinute
}

// OpenAt returns the session open timestamp on the date of t
func (c *Calendar) OpenAt(t time.Time) time.Time {
	t = t.In(c.loc)
	return time.Date(t.Year(), t.Month(), t.Day(), openHour, openMinute, 0, 0, c.loc)
}

// CloseAt returns the session close timestamp on the date of t
func (c *Calendar) CloseAt(t time.Time) time.Time {
	t = t.In(c.loc)
	return time.Date(t.Year(), t.Month(), t.Day(), closeHour, closeMinute, 0, 0, c.loc)
}

// TimeToOpen returns the duration until the next session open.
// Returns zero while the market is open.
func (c *Calendar) TimeToOpen() time.Duration {
	now := c.Now().In(c.loc)
	if c.IsMarketOpen() {
		return 0
	}
	day := now
	if !c.IsTradingDay(day) || !now.Before(c.OpenAt(day)) {
		day = c.nextTradingDay(day)
	}
	return c.OpenAt(day).Sub(now)
}

// TimeToClose returns the duration until the session close.
// Returns zero when the market is closed.
func (c *Calendar) TimeToClose() time.Duration {
	now := c.Now().In(c.loc)
	if !c.IsMarketOpen() {
		return 0
	}
	return c.CloseAt(now).Sub(now)
}

func (c *Calendar) nextTradingDay(t time.Time) time.Time {
	day := t.AddDate(0, 0, 1)
	for !c.IsTradingDay(day) {
		day = day.AddDate(0, 0, 1)
	}
	return day
}
