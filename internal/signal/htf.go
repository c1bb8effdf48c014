package signal

import (
	"time"

	"github.com/shopspring/decimal"

	"IndexSentinel/internal/model"
	"IndexSentinel/internal/resample"
)

// HTFConfig configures the HTF support/resistance generator.
type HTFConfig struct {
	ProximityThreshold float64  `yaml:"proximity_threshold"`
	RewardRisk         float64  `yaml:"reward_risk"`
	Timeframes         []string `yaml:"timeframes"`
}

// DefaultHTFConfig watches 5/10/15 minute pivots within 8 points at 1:1.5.
func DefaultHTFConfig() HTFConfig {
	return HTFConfig{ProximityThreshold: 8, RewardRisk: 1.5, Timeframes: []string{"5T", "10T", "15T"}}
}

func (c HTFConfig) Validate() error {
	if err := validRule("signal.htf", c.ProximityThreshold, c.RewardRisk); err != nil {
		return err
	}
	for _, tf := range c.Timeframes {
		if _, err := resample.ParseTimeframe(tf); err != nil {
			return err
		}
	}
	return nil
}

func validRule(prefix string, threshold, rr float64) error {
	if threshold < 0 {
		return model.NewConfigError(prefix+".proximity_threshold", threshold, "must be non-negative")
	}
	if rr <= 0 {
		return model.NewConfigError(prefix+".reward_risk", rr, "must be positive")
	}
	return nil
}

// HTFGenerator emits signals off pivot levels of the watched timeframes.
// It keeps no state between calls.
type HTFGenerator struct {
	rule
	watch map[string]bool
}

// NewHTFGenerator validates cfg. A nil now uses time.Now.
func NewHTFGenerator(cfg HTFConfig, now func() time.Time) (*HTFGenerator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if now == nil {
		now = time.Now
	}
	watch := make(map[string]bool, len(cfg.Timeframes))
	for _, tf := range cfg.Timeframes {
		watch[resample.MustParse(tf).Label] = true
	}
	return &HTFGenerator{
		rule: rule{
			threshold:  decimal.NewFromFloat(cfg.ProximityThreshold),
			rewardRisk: decimal.NewFromFloat(cfg.RewardRisk),
			signalType: "HTF_SR",
			now:        now,
		},
		watch: watch,
	}, nil
}

// CheckForSignal returns a signal when spot sits at or just beyond a watched pivot
// in the sentiment's direction. Later entries of levels are checked first.
func (g *HTFGenerator) CheckForSignal(spot float64, sentiment model.BiasLabel, levels []model.HTFLevel, index string) *model.TradingSignal {
	return g.check(spot, sentiment, g.Levels(levels), index)
}

// Levels flattens the watched timeframes into support and resistance levels.
func (g *HTFGenerator) Levels(levels []model.HTFLevel) []Level {
	var out []Level
	for _, l := range levels {
		if !g.watch[l.Timeframe] {
			continue
		}
		if p, ok := l.Resistance(); ok {
			out = append(out, Level{Price: p, Kind: model.ZoneResistance, Source: "HTF " + l.Timeframe + " pivot high", Timeframe: l.Timeframe})
		}
		if p, ok := l.Support(); ok {
			out = append(out, Level{Price: p, Kind: model.ZoneSupport, Source: "HTF " + l.Timeframe + " pivot low", Timeframe: l.Timeframe})
		}
	}
	return out
}
