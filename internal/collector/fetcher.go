package collector

import (
	"context"
	"fmt"
	"strings"
	"time"

	"IndexSentinel/internal/model"
	"IndexSentinel/internal/resample"
)

// Fetcher defines the interface for fetching market data. Implementations return
// bars oldest first and model.ErrNoData when the source has nothing for the request.
type Fetcher interface {
	FetchBars(ctx context.Context, symbol, interval string, count int) ([]model.OHLCV, error)
	FetchQuote(ctx context.Context, symbol string) (model.Quote, error)
	Name() string
}

// intervals maps the supported bar intervals to their duration.
var intervals = map[string]time.Duration{
	"1m":  time.Minute,
	"5m":  5 * time.Minute,
	"15m": 15 * time.Minute,
	"60m": time.Hour,
	"1d":  24 * time.Hour,
}

// ParseInterval normalises an interval name; "1h" is accepted for "60m".
func ParseInterval(interval string) (string, time.Duration, error) {
	iv := strings.ToLower(strings.TrimSpace(interval))
	if iv == "1h" {
		iv = "60m"
	}
	d, ok := intervals[iv]
	if !ok {
		return "", 0, model.NewConfigError("interval", interval, "expected 1m, 5m, 15m, 60m or 1d")
	}
	return iv, d, nil
}

// timeframe is the resample timeframe matching an interval.
func timeframe(interval string) resample.Timeframe {
	if interval == "1d" {
		return resample.MustParse("D")
	}
	return resample.MustParse(strings.TrimSuffix(interval, "m") + "T")
}

// trimBars keeps the last count bars.
func trimBars(bars []model.OHLCV, count int) []model.OHLCV {
	if count > 0 && len(bars) > count {
		return bars[len(bars)-count:]
	}
	return bars
}

func noData(source, symbol string) error {
	return fmt.Errorf("%s %s: %w", source, symbol, model.ErrNoData)
}
