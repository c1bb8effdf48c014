package recorder

import (
	"context"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"IndexSentinel/internal/model"
)

func openSQLite(t *testing.T) *SQLiteRecorder {
	t.Helper()
	l := logrus.New()
	l.SetOutput(io.Discard)
	r, err := NewSQLiteRecorder(filepath.Join(t.TempDir(), "sentinel.db"), l)
	if err != nil {
		t.Fatalf("NewSQLiteRecorder: %v", err)
	}
	t.Cleanup(func() { r.Close() })
	return r
}

func TestSQLiteRecorder_Signals(t *testing.T) {
	ctx := context.Background()
	r := openSQLite(t)
	base := time.Date(2025, 1, 15, 4, 30, 0, 0, time.UTC)

	sigs := []model.TradingSignal{
		{ID: "a", Index: "NIFTY", Direction: model.Call, SignalType: "VOB", EntryPrice: 100, StopLoss: 87, Target: 119.5, RiskReward: 1.5, MarketSentiment: model.Bullish, Status: model.SignalActive, Timestamp: base},
		{ID: "b", Index: "SENSEX", Direction: model.Put, SignalType: "HTF_SR", EntryPrice: 105, StopLoss: 113, Target: 93, RiskReward: 1.5, MarketSentiment: model.Bearish, Status: model.SignalActive, Timestamp: base.Add(time.Minute)},
		{ID: "c", Index: "NIFTY", Direction: model.Put, SignalType: "VOB", EntryPrice: 120, StopLoss: 128, Target: 108, RiskReward: 1.5, MarketSentiment: model.Bearish, Status: model.SignalActive, Timestamp: base.Add(2 * time.Minute)},
	}
	for i := range sigs {
		if err := r.RecordSignal(ctx, &sigs[i]); err != nil {
			t.Fatalf("RecordSignal %s: %v", sigs[i].ID, err)
		}
	}
	expired := sigs[0]
	expired.Status = model.SignalExpired
	if err := r.RecordSignal(ctx, &expired); err != nil {
		t.Fatalf("RecordSignal update: %v", err)
	}

	got, err := r.RecentSignals(ctx, "NIFTY", 10)
	if err != nil {
		t.Fatalf("RecentSignals: %v", err)
	}
	if len(got) != 2 || got[0].ID != "c" || got[1].ID != "a" {
		t.Fatalf("expected [c a], got %+v", got)
	}
	if got[1].Status != model.SignalExpired || got[1].Target != 119.5 || !got[1].Timestamp.Equal(base) {
		t.Errorf("unexpected stored signal %+v", got[1])
	}

	all, err := r.RecentSignals(ctx, "", 2)
	if err != nil {
		t.Fatalf("RecentSignals all: %v", err)
	}
	if len(all) != 2 || all[0].ID != "c" || all[1].ID != "b" {
		t.Errorf("expected the two newest signals, got %+v", all)
	}
}

func TestSQLiteRecorder_AnalysisAndAlerts(t *testing.T) {
	ctx := context.Background()
	r := openSQLite(t)
	now := time.Now()

	rec := &AnalysisRecord{Index: "NIFTY", Time: now, Spot: 23500, Phase: "REGULAR", Bias: model.Bullish, Score: 42, Confidence: 42, Mode: model.ModeNormal, Payload: []byte(`{"index":"NIFTY"}`)}
	if err := r.RecordAnalysis(ctx, rec); err != nil {
		t.Fatalf("RecordAnalysis: %v", err)
	}
	alert := &model.ProximityAlert{ID: "x", Symbol: "NIFTY", Type: model.AlertVOB, Level: 23495, LevelType: "Bull (upper)", Price: 23500, Distance: 5, Timestamp: now}
	for i := 0; i < 2; i++ {
		if err := r.RecordAlert(ctx, alert); err != nil {
			t.Fatalf("RecordAlert: %v", err)
		}
	}

	for table, want := range map[string]int{"analysis_runs": 1, "alerts": 1} {
		var n int
		if err := r.db.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&n); err != nil {
			t.Fatalf("count %s: %v", table, err)
		}
		if n != want {
			t.Errorf("%s: expected %d rows, got %d", table, want, n)
		}
	}
}

func TestNoopRecorder(t *testing.T) {
	var r Recorder = NewNoopRecorder()
	if err := r.RecordSignal(context.Background(), &model.TradingSignal{}); err != nil {
		t.Errorf("expected nil, got %v", err)
	}
	if got, err := r.RecentSignals(context.Background(), "", 5); err != nil || got != nil {
		t.Errorf("expected no signals, got %v %v", got, err)
	}
}
