// Package tracker is the caller-side book of emitted trading signals.
package tracker

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"IndexSentinel/internal/market"
	"IndexSentinel/internal/model"
)

var (
	// ErrDuplicate means an active signal already covers the same setup.
	ErrDuplicate = errors.New("duplicate signal")
	// ErrCooldown means the index and direction signalled too recently.
	ErrCooldown = errors.New("signal cooldown")
	// ErrDailyLimit means the day's signal budget is spent.
	ErrDailyLimit = errors.New("daily signal limit reached")
)

// Config controls de-duplication, expiry and throttling.
type Config struct {
	StatePath      string        `yaml:"state_path"`
	DedupTolerance float64       `yaml:"dedup_tolerance"`
	Expiry         time.Duration `yaml:"expiry"`
	HistorySize    int           `yaml:"history_size"`
	Cooldown       time.Duration `yaml:"cooldown"`
	MaxPerDay      int           `yaml:"max_per_day"`
}

// DefaultConfig dedups within 5 points, expires after 30 minutes and keeps 50 signals.
func DefaultConfig() Config {
	return Config{
		DedupTolerance: 5,
		Expiry:         30 * time.Minute,
		HistorySize:    50,
		Cooldown:       15 * time.Minute,
		MaxPerDay:      10,
	}
}

// Validate rejects negative limits; MaxPerDay 0 means unlimited.
func (c Config) Validate() error {
	if c.DedupTolerance < 0 {
		return model.NewConfigError("tracker.dedup_tolerance", c.DedupTolerance, "must be non-negative")
	}
	if c.Expiry <= 0 {
		return model.NewConfigError("tracker.expiry", c.Expiry, "must be positive")
	}
	if c.HistorySize <= 0 {
		return model.NewConfigError("tracker.history_size", c.HistorySize, "must be positive")
	}
	if c.Cooldown < 0 {
		return model.NewConfigError("tracker.cooldown", c.Cooldown, "must be non-negative")
	}
	if c.MaxPerDay < 0 {
		return model.NewConfigError("tracker.max_per_day", c.MaxPerDay, "must be non-negative")
	}
	return nil
}

// Tracker records signals with concurrency safety and persists them after every change.
type Tracker struct {
	mu     sync.Mutex
	cfg    Config
	state  *model.TrackerState
	logger logrus.FieldLogger
	now    func() time.Time
}

// New creates a Tracker, loading state from cfg.StatePath when it exists.
func New(cfg Config, logger logrus.FieldLogger, now func() time.Time) (*Tracker, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	state, err := LoadState(cfg.StatePath)
	if err != nil {
		return nil, fmt.Errorf("load tracker state: %w", err)
	}
	if state.LastSignalAt == nil {
		state.LastSignalAt = make(map[string]time.Time)
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if now == nil {
		now = time.Now
	}
	t := &Tracker{cfg: cfg, state: state, logger: logger, now: now}
	t.rollDay(now())
	if err := t.save(); err != nil {
		return nil, err
	}
	return t, nil
}

func cooldownKey(sig *model.TradingSignal) string {
	return sig.Index + "|" + string(sig.Direction)
}

// Add records sig unless it duplicates an active signal, falls inside the
// index+direction cooldown or exceeds the daily limit.
func (t *Tracker) Add(sig *model.TradingSignal) error {
	if sig == nil {
		return errors.New("nil signal")
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	t.rollDay(now)
	t.state.Unreported = append(t.state.Unreported, t.expire(now)...)

	// Step a: duplicate check against live signals
	for _, a := range t.state.Active {
		if a.Index == sig.Index && a.Direction == sig.Direction && math.Abs(a.EntryPrice-sig.EntryPrice) <= t.cfg.DedupTolerance {
			return fmt.Errorf("%w: %s %s near %.2f", ErrDuplicate, sig.Index, sig.Direction, a.EntryPrice)
		}
	}

	// Step b: throttles
	key := cooldownKey(sig)
	if last, ok := t.state.LastSignalAt[key]; ok && now.Sub(last) < t.cfg.Cooldown {
		return fmt.Errorf("%w: %s until %s", ErrCooldown, key, last.Add(t.cfg.Cooldown).Format("15:04"))
	}
	if t.cfg.MaxPerDay > 0 && t.state.SignalsToday >= t.cfg.MaxPerDay {
		return fmt.Errorf("%w: %d", ErrDailyLimit, t.cfg.MaxPerDay)
	}

	// Step c: record
	rec := *sig
	if rec.Status == "" {
		rec.Status = model.SignalActive
	}
	t.state.Active = append(t.state.Active, rec)
	t.state.History = append(t.state.History, rec)
	if len(t.state.History) > t.cfg.HistorySize {
		t.state.History = t.state.History[len(t.state.History)-t.cfg.HistorySize:]
	}
	t.state.LastSignalAt[key] = now
	t.state.SignalsToday++

	if err := t.save(); err != nil {
		t.logger.WithError(err).Error("failed to save tracker state")
	}
	return nil
}

// Expire moves signals older than the expiry out of the active set and returns
// them, together with any that Add expired since the previous call.
func (t *Tracker) Expire() []model.TradingSignal {
	t.mu.Lock()
	defer t.mu.Unlock()
	expired := append(t.state.Unreported, t.expire(t.now())...)
	t.state.Unreported = nil
	if len(expired) > 0 {
		if err := t.save(); err != nil {
			t.logger.WithError(err).Error("failed to save tracker state after expiry")
		}
	}
	return expired
}

func (t *Tracker) expire(now time.Time) []model.TradingSignal {
	var expired []model.TradingSignal
	kept := t.state.Active[:0]
	for _, s := range t.state.Active {
		if now.Sub(s.Timestamp) >= t.cfg.Expiry {
			s.Status = model.SignalExpired
			expired = append(expired, s)
			continue
		}
		kept = append(kept, s)
	}
	t.state.Active = kept
	if len(expired) == 0 {
		return nil
	}
	gone := make(map[string]bool, len(expired))
	for _, s := range expired {
		gone[s.ID] = true
	}
	for i := range t.state.History {
		if gone[t.state.History[i].ID] {
			t.state.History[i].Status = model.SignalExpired
		}
	}
	return expired
}

// rollDay resets per-day counters when the IST trading day changes.
func (t *Tracker) rollDay(now time.Time) {
	day := market.TradingDay(now)
	if t.state.TradingDay == day {
		return
	}
	t.state.TradingDay = day
	t.state.SignalsToday = 0
	t.state.LastSignalAt = make(map[string]time.Time)
}

// ResetDay clears the daily counters and cooldowns.
func (t *Tracker) ResetDay() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state.TradingDay = ""
	t.rollDay(t.now())
	if err := t.save(); err != nil {
		t.logger.WithError(err).Error("failed to save tracker state after daily reset")
	}
}

// Active returns a copy of the live signals.
func (t *Tracker) Active() []model.TradingSignal {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]model.TradingSignal(nil), t.state.Active...)
}

// Last returns the newest recorded signal, or nil.
func (t *Tracker) Last() *model.TradingSignal {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.state.History) == 0 {
		return nil
	}
	s := t.state.History[len(t.state.History)-1]
	return &s
}

// History returns up to n most recent signals, newest last. n <= 0 returns all.
func (t *Tracker) History(n int) []model.TradingSignal {
	t.mu.Lock()
	defer t.mu.Unlock()
	h := t.state.History
	if n > 0 && n < len(h) {
		h = h[len(h)-n:]
	}
	return append([]model.TradingSignal(nil), h...)
}

// Clear drops every signal but keeps the daily counters.
func (t *Tracker) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state.Active = nil
	t.state.History = nil
	if err := t.save(); err != nil {
		t.logger.WithError(err).Error("failed to save tracker state after clear")
	}
}

// State returns a copy of the current state.
func (t *Tracker) State() model.TrackerState {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := *t.state
	s.Active = append([]model.TradingSignal(nil), s.Active...)
	s.History = append([]model.TradingSignal(nil), s.History...)
	s.Unreported = append([]model.TradingSignal(nil), s.Unreported...)
	s.LastSignalAt = make(map[string]time.Time, len(t.state.LastSignalAt))
	for k, v := range t.state.LastSignalAt {
		s.LastSignalAt[k] = v
	}
	return s
}

func (t *Tracker) save() error {
	return SaveState(t.cfg.StatePath, t.state, t.now())
}
