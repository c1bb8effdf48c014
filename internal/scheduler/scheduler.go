// Package scheduler drives collection and analysis on cron and answers chat commands.
package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"IndexSentinel/internal/analyzer"
	"IndexSentinel/internal/collector"
	"IndexSentinel/internal/market"
	"IndexSentinel/internal/notifier"
	"IndexSentinel/internal/recorder"
)

// Options selects the indices a refresh covers.
type Options struct {
	Indices []string
	Now     func() time.Time
}

// Scheduler manages all cron tasks.
type Scheduler struct {
	Cron      *cron.Cron
	Collector *collector.Collector
	Analyzer  *analyzer.Analyzer
	Notifier  notifier.Notifier
	Recorder  recorder.Recorder
	Ctx       context.Context

	opts   Options
	logger logrus.FieldLogger

	mu         sync.Mutex
	lastRun    time.Time
	refreshing bool
}

// NewScheduler creates a new Scheduler running its jobs in IST.
func NewScheduler(ctx context.Context, col *collector.Collector, an *analyzer.Analyzer, n notifier.Notifier, rec recorder.Recorder, opts Options, logger logrus.FieldLogger) *Scheduler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if len(opts.Indices) == 0 {
		opts.Indices = market.Names()
	}
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}
	return &Scheduler{
		Cron:      cron.New(cron.WithSeconds(), cron.WithLocation(market.IST)),
		Collector: col,
		Analyzer:  an,
		Notifier:  n,
		Recorder:  rec,
		Ctx:       ctx,
		opts:      opts,
		logger:    logger.WithField("component", "scheduler"),
	}
}

// RegisterAll registers the refresh, daily reset and expiry sweep tasks.
func (s *Scheduler) RegisterAll(refreshCron, resetCron, expiryCron string) error {
	if _, err := s.Cron.AddFunc(refreshCron, s.refreshTask); err != nil {
		return fmt.Errorf("register refresh task: %w", err)
	}
	if _, err := s.Cron.AddFunc(resetCron, s.dailyReset); err != nil {
		return fmt.Errorf("register daily reset: %w", err)
	}
	if _, err := s.Cron.AddFunc(expiryCron, s.expirySweep); err != nil {
		return fmt.Errorf("register expiry sweep: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.logger.Info("scheduler started")
}

// Stop stops the cron scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.logger.Info("scheduler stopped")
}

// refreshTask runs on every tick and refreshes once the phase interval has elapsed.
// Nothing is fetched while the market is closed.
func (s *Scheduler) refreshTask() {
	now := s.opts.Now()
	if !market.IsActive(now) {
		return
	}
	s.mu.Lock()
	due := s.lastRun.IsZero() || now.Sub(s.lastRun) >= market.RefreshInterval(market.PhaseAt(now))
	s.mu.Unlock()
	if due {
		s.RefreshNow()
	}
}

// RefreshNow collects and analyses every index immediately. Overlapping calls are skipped.
func (s *Scheduler) RefreshNow() []*analyzer.Result {
	s.mu.Lock()
	if s.refreshing {
		s.mu.Unlock()
		s.logger.Debug("refresh already running")
		return nil
	}
	s.refreshing = true
	s.lastRun = s.opts.Now()
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.refreshing = false
		s.mu.Unlock()
	}()

	var results []*analyzer.Result
	for _, index := range s.opts.Indices {
		res, err := s.refreshIndex(index)
		if err != nil {
			s.logger.WithError(err).WithField("index", index).Error("refresh failed")
			continue
		}
		results = append(results, res)
	}
	return results
}

func (s *Scheduler) refreshIndex(index string) (*analyzer.Result, error) {
	snap, err := s.Collector.Collect(s.Ctx, index)
	if err != nil {
		return nil, fmt.Errorf("collect: %w", err)
	}
	res, err := s.Analyzer.Analyze(s.Ctx, snap)
	if err != nil {
		return nil, fmt.Errorf("analyze: %w", err)
	}
	s.logger.WithFields(logrus.Fields{
		"index":   index,
		"spot":    res.Spot,
		"bias":    res.Bias.Overall.Bias,
		"score":   fmt.Sprintf("%.1f", res.Bias.Overall.Score),
		"signals": len(res.Signals),
		"alerts":  len(res.Alerts),
	}).Info("analysis complete")

	if err := s.Recorder.RecordAnalysis(s.Ctx, analysisRecord(res)); err != nil {
		s.logger.WithError(err).Error("record analysis")
	}
	for i := range res.Signals {
		sig := &res.Signals[i]
		if err := s.Recorder.RecordSignal(s.Ctx, sig); err != nil {
			s.logger.WithError(err).Error("record signal")
		}
		s.trySend(notifier.FormatSignal(sig))
	}
	for i := range res.Alerts {
		a := &res.Alerts[i]
		if err := s.Recorder.RecordAlert(s.Ctx, a); err != nil {
			s.logger.WithError(err).Error("record alert")
		}
		s.trySend(notifier.FormatAlert(*a))
	}
	return res, nil
}

func analysisRecord(res *analyzer.Result) *recorder.AnalysisRecord {
	rec := &recorder.AnalysisRecord{
		Index:   res.Index,
		Time:    res.Time,
		Spot:    res.Spot,
		Phase:   string(res.Phase),
		Blocks:  len(res.Blocks),
		Signals: len(res.Signals),
		Alerts:  len(res.Alerts),
	}
	if res.Bias != nil {
		o := res.Bias.Overall
		rec.Bias, rec.Score, rec.Confidence, rec.Mode, rec.Condition = o.Bias, o.Score, o.Confidence, o.Mode, o.Condition
	}
	if payload, err := json.Marshal(res); err == nil {
		rec.Payload = payload
	}
	return rec
}

// dailyReset starts a fresh trading day for signals and alerts.
func (s *Scheduler) dailyReset() {
	s.Analyzer.Tracker().ResetDay()
	s.Analyzer.AlertBook().Prune(s.opts.Now())
	s.logger.Info("daily counters reset")
}

// expirySweep retires stale signals and records their final status.
func (s *Scheduler) expirySweep() {
	for _, sig := range s.Analyzer.Tracker().Expire() {
		sig := sig
		if err := s.Recorder.RecordSignal(s.Ctx, &sig); err != nil {
			s.logger.WithError(err).Error("record expired signal")
		}
		s.logger.WithFields(logrus.Fields{"index": sig.Index, "id": sig.ID}).Info("signal expired")
	}
}

const help = "Available commands:\n" +
	"• /bias [NIFTY|SENSEX]\n" +
	"• /signals\n" +
	"• /levels [NIFTY|SENSEX]\n" +
	"• /history [NIFTY|SENSEX]\n" +
	"• /refresh\n" +
	"• /status"

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return help
	}
	// Group chats append the bot name: /bias@IndexSentinelBot.
	cmd, _, _ := strings.Cut(strings.ToLower(fields[0]), "@")
	index := s.opts.Indices[0]
	if len(fields) > 1 {
		index = strings.ToUpper(fields[1])
	}

	switch cmd {
	case "/bias":
		res := s.Analyzer.Last(index)
		if res == nil {
			return fmt.Sprintf("No analysis for %s yet", index)
		}
		text := notifier.FormatBias(res.Index, res.Spot, res.Bias, res.Time)
		if of := res.OrderFlow; of != nil && of.Fresh {
			text += "\n" + notifier.FormatTrap(res.Index, of.Trap)
		}
		return text
	case "/signals":
		return notifier.FormatSignals(s.Analyzer.Tracker().Active())
	case "/levels":
		res := s.Analyzer.Last(index)
		if res == nil {
			return fmt.Sprintf("No analysis for %s yet", index)
		}
		return notifier.FormatLevels(res.Index, res.Spot, res.Blocks, res.HTF, res.Strength)
	case "/history":
		sigs, err := s.Recorder.RecentSignals(s.Ctx, index, 10)
		if err != nil {
			s.logger.WithError(err).Error("load signal history")
			return "History unavailable"
		}
		if len(sigs) == 0 {
			return fmt.Sprintf("No recorded signals for %s", index)
		}
		return notifier.FormatSignals(sigs)
	case "/refresh":
		results := s.RefreshNow()
		return fmt.Sprintf("Refreshed %d of %d indices", len(results), len(s.opts.Indices))
	case "/status":
		return notifier.FormatStatus(s.status())
	default:
		return help
	}
}

func (s *Scheduler) status() notifier.Status {
	now := s.opts.Now()
	st := s.Analyzer.Tracker().State()
	out := notifier.Status{
		Time:          now,
		Phase:         market.PhaseAt(now),
		Source:        s.Collector.Fetcher.Name(),
		ActiveSignals: len(st.Active),
		SignalsToday:  st.SignalsToday,
		TrackedAlerts: s.Analyzer.AlertBook().Len(),
	}
	for _, index := range s.opts.Indices {
		ix := notifier.IndexStatus{Index: index}
		if res := s.Analyzer.Last(index); res != nil {
			ix.Spot, ix.Updated = res.Spot, res.Time
			ix.Bias, ix.Score = res.Bias.Overall.Bias, res.Bias.Overall.Score
		}
		out.Indices = append(out.Indices, ix)
	}
	return out
}

type retrySender interface {
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
}

func (s *Scheduler) trySend(text string) {
	if s.Notifier == nil {
		return
	}
	var err error
	if r, ok := s.Notifier.(retrySender); ok {
		err = r.SendWithRetry(s.Ctx, text, 3)
	} else {
		err = s.Notifier.Send(s.Ctx, text)
	}
	if err != nil {
		s.logger.WithError(err).Error("send notification")
	}
}
