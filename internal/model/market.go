package model

import (
	"fmt"
	"time"
)

// OHLCV represents a single candlestick bar.
type OHLCV struct {
	Time   time.Time `json:"time"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// Typical returns (high + low + close) / 3.
func (b OHLCV) Typical() float64 {
	return (b.High + b.Low + b.Close) / 3
}

// Quote is a last-price snapshot for one instrument.
type Quote struct {
	Symbol    string    `json:"symbol"`
	Price     float64   `json:"price"`
	PrevClose float64   `json:"prev_close"`
	Time      time.Time `json:"time"`
}

// StockChange is one breadth constituent's weighted percentage moves.
type StockChange struct {
	Symbol   string  `json:"symbol"`
	Weight   float64 `json:"weight"`
	DailyPct float64 `json:"daily_pct"`
	TF1Pct   float64 `json:"tf1_pct"`
	TF2Pct   float64 `json:"tf2_pct"`
}

// MarketSnapshot is the validated input handed to the analysis pipeline.
type MarketSnapshot struct {
	Index     string        `json:"index"`
	Interval  string        `json:"interval"`
	Bars      []OHLCV       `json:"bars"`
	Spot      float64       `json:"spot"`
	Breadth   []StockChange `json:"breadth,omitempty"`
	FetchedAt time.Time     `json:"fetched_at"`
}

// ValidateBars checks the bar invariants: low <= min(open, close) <= max(open, close) <= high,
// non-negative volume and strictly increasing timestamps.
func ValidateBars(bars []OHLCV) error {
	for i, b := range bars {
		lo, hi := b.Open, b.Close
		if lo > hi {
			lo, hi = hi, lo
		}
		if b.Low > lo || hi > b.High {
			return fmt.Errorf("%w: bar %d (%s) has low=%.2f high=%.2f outside open/close",
				ErrMalformedSeries, i, b.Time.Format(time.RFC3339), b.Low, b.High)
		}
		if b.Volume < 0 {
			return fmt.Errorf("%w: bar %d has negative volume %.0f", ErrMalformedSeries, i, b.Volume)
		}
		if i > 0 && !b.Time.After(bars[i-1].Time) {
			return fmt.Errorf("%w: bar %d timestamp %s not after %s", ErrMalformedSeries, i,
				b.Time.Format(time.RFC3339), bars[i-1].Time.Format(time.RFC3339))
		}
	}
	return nil
}
