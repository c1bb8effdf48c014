// Package recorder persists analysis runs, signals and alerts for later review.
package recorder

import (
	"context"
	"time"

	"IndexSentinel/internal/model"
)

// AnalysisRecord is the persisted summary of one analysis run.
type AnalysisRecord struct {
	Index      string
	Time       time.Time
	Spot       float64
	Phase      string
	Bias       model.BiasLabel
	Score      float64
	Confidence float64
	Mode       model.BiasMode
	Condition  model.MarketCondition
	Blocks     int
	Signals    int
	Alerts     int
	// Payload is the full result as JSON.
	Payload []byte
}

// Recorder persists historical data for analysis.
type Recorder interface {
	RecordAnalysis(ctx context.Context, rec *AnalysisRecord) error
	// RecordSignal inserts a signal or updates the status of a known ID.
	RecordSignal(ctx context.Context, sig *model.TradingSignal) error
	RecordAlert(ctx context.Context, alert *model.ProximityAlert) error
	// RecentSignals returns the latest signals of index, newest first; "" matches every index.
	RecentSignals(ctx context.Context, index string, limit int) ([]model.TradingSignal, error)
	Close() error
}
