package recorder

import (
	"context"

	"IndexSentinel/internal/model"
)

// NoopRecorder is a no-op implementation used when no database is configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordAnalysis(context.Context, *AnalysisRecord) error    { return nil }
func (n *NoopRecorder) RecordSignal(context.Context, *model.TradingSignal) error { return nil }
func (n *NoopRecorder) RecordAlert(context.Context, *model.ProximityAlert) error { return nil }
func (n *NoopRecorder) Close() error                                             { return nil }

func (n *NoopRecorder) RecentSignals(context.Context, string, int) ([]model.TradingSignal, error) {
	return nil, nil
}
