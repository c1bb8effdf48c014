package resample

import (
	"strconv"
	"strings"
	"time"

	"IndexSentinel/internal/model"
)

type unit int

const (
	unitIntraday unit = iota
	unitDay
	unitWeek
)

// Timeframe is a parsed bucket size.
type Timeframe struct {
	Label string
	Every time.Duration
	unit  unit
}

// aliases maps legacy labels onto canonical ones.
var aliases = map[string]string{
	"240": "4H",
	"720": "12H",
	"1D":  "D",
	"1W":  "W",
}

// ParseTimeframe accepts "<n>T" / "<n>min" minutes, "<n>H" hours, a bare minute count,
// "D" and "W". Intraday sizes bucket from local midnight.
func ParseTimeframe(s string) (Timeframe, error) {
	raw := strings.ToUpper(strings.TrimSpace(s))
	if a, ok := aliases[raw]; ok {
		raw = a
	}
	switch raw {
	case "D":
		return Timeframe{Label: "D", Every: 24 * time.Hour, unit: unitDay}, nil
	case "W":
		return Timeframe{Label: "W", Every: 7 * 24 * time.Hour, unit: unitWeek}, nil
	}

	var num string
	var per time.Duration
	switch {
	case strings.HasSuffix(raw, "MIN"):
		num, per = strings.TrimSuffix(raw, "MIN"), time.Minute
	case strings.HasSuffix(raw, "T"):
		num, per = strings.TrimSuffix(raw, "T"), time.Minute
	case strings.HasSuffix(raw, "H"):
		num, per = strings.TrimSuffix(raw, "H"), time.Hour
	default:
		num, per = raw, time.Minute
	}
	n, err := strconv.Atoi(num)
	if err != nil || n <= 0 {
		return Timeframe{}, model.NewConfigError("timeframe", s, "expected e.g. 5T, 1H, 240, D or W")
	}
	d := time.Duration(n) * per
	if d >= 24*time.Hour {
		return Timeframe{}, model.NewConfigError("timeframe", s, "intraday timeframe must be under a day; use D or W")
	}
	label := strconv.Itoa(n) + "T"
	if per == time.Hour {
		label = strconv.Itoa(n) + "H"
	}
	return Timeframe{Label: label, Every: d, unit: unitIntraday}, nil
}

// MustParse is ParseTimeframe for compile-time constants.
func MustParse(s string) Timeframe {
	tf, err := ParseTimeframe(s)
	if err != nil {
		panic(err)
	}
	return tf
}

// Floor returns the start of the bucket containing t, in t's location.
func (tf Timeframe) Floor(t time.Time) time.Time {
	y, m, d := t.Date()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, t.Location())
	switch tf.unit {
	case unitDay:
		return midnight
	case unitWeek:
		offset := (int(midnight.Weekday()) + 6) % 7 // days since Monday
		return midnight.AddDate(0, 0, -offset)
	default:
		since := t.Sub(midnight)
		return midnight.Add(since - since%tf.Every)
	}
}

// End returns the exclusive end of the bucket starting at start.
func (tf Timeframe) End(start time.Time) time.Time {
	switch tf.unit {
	case unitDay:
		return start.AddDate(0, 0, 1)
	case unitWeek:
		return start.AddDate(0, 0, 7)
	default:
		return start.Add(tf.Every)
	}
}

func (tf Timeframe) String() string { return tf.Label }
