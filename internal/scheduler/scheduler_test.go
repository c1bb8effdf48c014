package scheduler

import (
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"IndexSentinel/internal/analyzer"
	"IndexSentinel/internal/collector"
	"IndexSentinel/internal/market"
	"IndexSentinel/internal/model"
	"IndexSentinel/internal/recorder"
)

type fakeRecorder struct {
	recorder.NoopRecorder
	mu       sync.Mutex
	analyses []*recorder.AnalysisRecord
	signals  []model.TradingSignal
	alerts   int
}

func (f *fakeRecorder) RecordAnalysis(_ context.Context, rec *recorder.AnalysisRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.analyses = append(f.analyses, rec)
	return nil
}

func (f *fakeRecorder) RecordSignal(_ context.Context, sig *model.TradingSignal) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signals = append(f.signals, *sig)
	return nil
}

func (f *fakeRecorder) RecordAlert(context.Context, *model.ProximityAlert) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.alerts++
	return nil
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []string
}

func (f *fakeNotifier) Send(_ context.Context, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, text)
	return nil
}

type fixture struct {
	sched *Scheduler
	rec   *fakeRecorder
	note  *fakeNotifier
	now   time.Time
}

func newFixture(t *testing.T, now time.Time) *fixture {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	f := &fixture{rec: &fakeRecorder{}, note: &fakeNotifier{}, now: now}
	clock := func() time.Time { return f.now }

	opts := collector.DefaultOptions()
	opts.Constituents = nil
	opts.RatePerSec, opts.Burst = 1000, 100
	col, err := collector.NewCollector(&collector.MockFetcher{Price: 23500, Seed: 3, End: now}, opts, logger)
	if err != nil {
		t.Fatalf("NewCollector: %v", err)
	}
	an, err := analyzer.New(analyzer.DefaultConfig(), analyzer.Deps{Logger: logger, Now: clock})
	if err != nil {
		t.Fatalf("analyzer.New: %v", err)
	}
	f.sched = NewScheduler(context.Background(), col, an, f.note, f.rec, Options{Now: clock}, logger)
	return f
}

// Wednesday 11:00 IST.
var session = time.Date(2025, 1, 15, 11, 0, 0, 0, market.IST)

func TestRefreshNow(t *testing.T) {
	f := newFixture(t, session)
	results := f.sched.RefreshNow()
	if len(results) != 2 {
		t.Fatalf("expected both indices analysed, got %d", len(results))
	}
	for _, index := range market.Names() {
		if f.sched.Analyzer.Last(index) == nil {
			t.Errorf("%s: expected a stored result", index)
		}
	}
	if len(f.rec.analyses) != 2 || f.rec.analyses[0].Index != "NIFTY" || len(f.rec.analyses[0].Payload) == 0 {
		t.Errorf("expected two recorded analyses, got %+v", f.rec.analyses)
	}
	var events int
	for _, r := range results {
		events += len(r.Signals) + len(r.Alerts)
	}
	if len(f.note.sent) != events {
		t.Errorf("expected one message per signal and alert (%d), got %d", events, len(f.note.sent))
	}
}

func TestRefreshTask_FollowsSession(t *testing.T) {
	saturday := time.Date(2025, 1, 18, 11, 0, 0, 0, market.IST)
	f := newFixture(t, saturday)
	f.sched.refreshTask()
	if len(f.rec.analyses) != 0 {
		t.Fatalf("expected no refresh while closed, got %d", len(f.rec.analyses))
	}

	f.now = session
	f.sched.refreshTask()
	f.now = session.Add(30 * time.Second)
	f.sched.refreshTask()
	if len(f.rec.analyses) != 2 {
		t.Fatalf("expected one refresh inside the 90s interval, got %d analyses", len(f.rec.analyses))
	}
	f.now = session.Add(90 * time.Second)
	f.sched.refreshTask()
	if len(f.rec.analyses) != 4 {
		t.Errorf("expected a second refresh after 90s, got %d analyses", len(f.rec.analyses))
	}
}

func TestExpirySweepAndReset(t *testing.T) {
	f := newFixture(t, session)
	tr := f.sched.Analyzer.Tracker()
	sig := &model.TradingSignal{ID: "s1", Index: "NIFTY", Direction: model.Call, EntryPrice: 100, StopLoss: 90, Target: 115, Timestamp: session, Status: model.SignalActive}
	if err := tr.Add(sig); err != nil {
		t.Fatalf("Add: %v", err)
	}

	f.now = session.Add(31 * time.Minute)
	f.sched.expirySweep()
	if len(f.rec.signals) != 1 || f.rec.signals[0].Status != model.SignalExpired {
		t.Fatalf("expected the expired signal recorded, got %+v", f.rec.signals)
	}
	if len(tr.Active()) != 0 {
		t.Errorf("expected no active signals, got %d", len(tr.Active()))
	}

	f.sched.dailyReset()
	if st := tr.State(); st.SignalsToday != 0 {
		t.Errorf("expected daily counter reset, got %d", st.SignalsToday)
	}
}

func TestHandleCommand(t *testing.T) {
	f := newFixture(t, session)
	if got := f.sched.HandleCommand("/bias"); !strings.Contains(got, "No analysis for NIFTY") {
		t.Errorf("expected no-data reply, got %q", got)
	}
	f.sched.RefreshNow()

	tests := []struct {
		command string
		want    string
	}{
		{"/bias", "NIFTY Bias"},
		{"/bias@IndexSentinelBot sensex", "SENSEX Bias"},
		{"/levels", "NIFTY Levels"},
		{"/status", "Data source: mock"},
		{"/history", "No recorded signals"},
		{"hello", "Available commands"},
		{"", "Available commands"},
	}
	for _, tt := range tests {
		t.Run(tt.command, func(t *testing.T) {
			if got := f.sched.HandleCommand(tt.command); !strings.Contains(got, tt.want) {
				t.Errorf("expected %q in reply, got:\n%s", tt.want, got)
			}
		})
	}
}

func TestRegisterAll(t *testing.T) {
	f := newFixture(t, session)
	if err := f.sched.RegisterAll("@every 30s", "0 0 8 * * 1-5", "0 * * * * *"); err != nil {
		t.Fatalf("RegisterAll: %v", err)
	}
	if n := len(f.sched.Cron.Entries()); n != 3 {
		t.Errorf("expected 3 entries, got %d", n)
	}
	if err := f.sched.RegisterAll("bogus", "0 0 8 * * 1-5", "0 * * * * *"); err == nil {
		t.Error("expected an invalid spec to fail")
	}
}
