package market

import "time"

// Phase is the trading session phase of a moment in IST.
type Phase string

const (
	PhasePreMarket  Phase = "PRE_MARKET"
	PhaseRegular    Phase = "REGULAR"
	PhasePostMarket Phase = "POST_MARKET"
	PhaseClosed     Phase = "CLOSED"
)

// IST is the exchange time zone. The fixed offset is used when tzdata is unavailable.
var IST = loadIST()

func loadIST() *time.Location {
	if loc, err := time.LoadLocation("Asia/Kolkata"); err == nil {
		return loc
	}
	return time.FixedZone("IST", 5*3600+1800)
}

// Session boundaries in minutes after midnight IST.
const (
	preOpenMinute   = 8*60 + 30
	openMinute      = 9*60 + 15
	closeMinute     = 15*60 + 30
	postCloseMinute = 15*60 + 45
)

// PhaseAt returns the session phase at t. Weekends are always closed.
func PhaseAt(t time.Time) Phase {
	t = t.In(IST)
	if wd := t.Weekday(); wd == time.Saturday || wd == time.Sunday {
		return PhaseClosed
	}
	m := t.Hour()*60 + t.Minute()
	switch {
	case m >= preOpenMinute && m < openMinute:
		return PhasePreMarket
	case m >= openMinute && m < closeMinute:
		return PhaseRegular
	case m >= closeMinute && m < postCloseMinute:
		return PhasePostMarket
	}
	return PhaseClosed
}

// IsOpen reports whether t falls in the regular session.
func IsOpen(t time.Time) bool { return PhaseAt(t) == PhaseRegular }

// IsActive reports whether t falls anywhere between pre-open and post-close.
func IsActive(t time.Time) bool { return PhaseAt(t) != PhaseClosed }

// RefreshInterval returns how often data should be refreshed in phase p.
func RefreshInterval(p Phase) time.Duration {
	switch p {
	case PhasePreMarket, PhaseRegular:
		return 90 * time.Second
	case PhasePostMarket:
		return 180 * time.Second
	}
	return 300 * time.Second
}

// TradingDay returns the IST calendar date of t as YYYY-MM-DD.
func TradingDay(t time.Time) string {
	return t.In(IST).Format("2006-01-02")
}
