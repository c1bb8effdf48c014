package signal

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"IndexSentinel/internal/indicator"
	"IndexSentinel/internal/model"
	"IndexSentinel/internal/resample"
)

// AlertConfig configures proximity alerts.
type AlertConfig struct {
	VOBThreshold  float64       `yaml:"vob_threshold"`
	HTFThreshold  float64       `yaml:"htf_threshold"`
	HTFTimeframes []string      `yaml:"htf_timeframes"`
	Cooldown      time.Duration `yaml:"cooldown"`
}

// DefaultAlertConfig alerts within 7 points of a block and 5 points of a 10/15 minute pivot.
func DefaultAlertConfig() AlertConfig {
	return AlertConfig{VOBThreshold: 7, HTFThreshold: 5, HTFTimeframes: []string{"10T", "15T"}, Cooldown: 10 * time.Minute}
}

func (c AlertConfig) Validate() error {
	if c.VOBThreshold < 0 {
		return model.NewConfigError("alerts.vob_threshold", c.VOBThreshold, "must be non-negative")
	}
	if c.HTFThreshold < 0 {
		return model.NewConfigError("alerts.htf_threshold", c.HTFThreshold, "must be non-negative")
	}
	if c.Cooldown < 0 {
		return model.NewConfigError("alerts.cooldown", c.Cooldown, "must be non-negative")
	}
	for _, tf := range c.HTFTimeframes {
		if _, err := resample.ParseTimeframe(tf); err != nil {
			return err
		}
	}
	return nil
}

// AlertBook remembers when each alert key last fired. It is safe for concurrent use.
type AlertBook struct {
	mu   sync.Mutex
	sent map[string]time.Time
}

// NewAlertBook returns an empty book.
func NewAlertBook() *AlertBook {
	return &AlertBook{sent: make(map[string]time.Time)}
}

// allow records key at now unless it fired within cooldown.
func (b *AlertBook) allow(key string, now time.Time, cooldown time.Duration) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if last, ok := b.sent[key]; ok && now.Sub(last) < cooldown {
		return false
	}
	b.sent[key] = now
	return true
}

// Prune drops keys older than before.
func (b *AlertBook) Prune(before time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for k, t := range b.sent {
		if t.Before(before) {
			delete(b.sent, k)
		}
	}
}

// Len is the number of remembered keys.
func (b *AlertBook) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.sent)
}

// AlertMonitor turns price proximity to tracked levels into alerts.
type AlertMonitor struct {
	cfg   AlertConfig
	watch map[string]bool
	book  *AlertBook
	now   func() time.Time
}

// NewAlertMonitor validates cfg. A nil book gets a fresh one; a nil now uses time.Now.
func NewAlertMonitor(cfg AlertConfig, book *AlertBook, now func() time.Time) (*AlertMonitor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if book == nil {
		book = NewAlertBook()
	}
	if now == nil {
		now = time.Now
	}
	watch := make(map[string]bool, len(cfg.HTFTimeframes))
	for _, tf := range cfg.HTFTimeframes {
		watch[resample.MustParse(tf).Label] = true
	}
	return &AlertMonitor{cfg: cfg, watch: watch, book: book, now: now}, nil
}

// Book returns the cooldown book.
func (m *AlertMonitor) Book() *AlertBook { return m.book }

// CheckVOB alerts on the upper, mid and lower line of every active block within VOBThreshold.
func (m *AlertMonitor) CheckVOB(symbol string, price float64, vob *indicator.VOBResult) []model.ProximityAlert {
	if vob == nil {
		return nil
	}
	var out []model.ProximityAlert
	for _, b := range vob.Active() {
		side := "Bull"
		if b.Direction == model.DirectionBear {
			side = "Bear"
		}
		for _, line := range []struct {
			name  string
			value float64
		}{{"upper", b.Upper}, {"mid", b.Mid}, {"lower", b.Lower}} {
			if a, ok := m.check(model.AlertVOB, symbol, price, line.value, fmt.Sprintf("%s (%s)", side, line.name), "", m.cfg.VOBThreshold); ok {
				a.Volume = b.Volume
				out = append(out, a)
			}
		}
	}
	return out
}

// CheckHTF alerts on watched pivot highs ("Resistance") and lows ("Support") within HTFThreshold.
func (m *AlertMonitor) CheckHTF(symbol string, price float64, levels []model.HTFLevel) []model.ProximityAlert {
	var out []model.ProximityAlert
	for _, l := range levels {
		if !m.watch[l.Timeframe] {
			continue
		}
		if p, ok := l.Resistance(); ok {
			if a, ok := m.check(model.AlertHTF, symbol, price, p, "Resistance", l.Timeframe, m.cfg.HTFThreshold); ok {
				out = append(out, a)
			}
		}
		if p, ok := l.Support(); ok {
			if a, ok := m.check(model.AlertHTF, symbol, price, p, "Support", l.Timeframe, m.cfg.HTFThreshold); ok {
				out = append(out, a)
			}
		}
	}
	return out
}

func (m *AlertMonitor) check(kind model.AlertType, symbol string, price, level float64, levelType, tf string, threshold float64) (model.ProximityAlert, bool) {
	dist := math.Abs(price - level)
	if dist > threshold+1e-9 {
		return model.ProximityAlert{}, false
	}
	now := m.now()
	key := fmt.Sprintf("%s|%s|%s|%s|%.2f", kind, symbol, tf, levelType, level)
	if !m.book.allow(key, now, m.cfg.Cooldown) {
		return model.ProximityAlert{}, false
	}
	return model.ProximityAlert{
		ID:        uuid.NewString(),
		Symbol:    symbol,
		Type:      kind,
		Level:     level,
		LevelType: levelType,
		Price:     price,
		Distance:  math.Round(dist*100) / 100,
		Timeframe: tf,
		Timestamp: now,
	}, true
}
