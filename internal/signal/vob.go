package signal

import (
	"time"

	"github.com/shopspring/decimal"

	"IndexSentinel/internal/indicator"
	"IndexSentinel/internal/model"
)

// VOBConfig configures the order block generator.
type VOBConfig struct {
	ProximityThreshold float64 `yaml:"proximity_threshold"`
	RewardRisk         float64 `yaml:"reward_risk"`
}

// DefaultVOBConfig mirrors the HTF rule: 8 points at 1:1.5.
func DefaultVOBConfig() VOBConfig {
	return VOBConfig{ProximityThreshold: 8, RewardRisk: 1.5}
}

func (c VOBConfig) Validate() error {
	return validRule("signal.vob", c.ProximityThreshold, c.RewardRisk)
}

// VOBGenerator emits signals off active order blocks. A bullish block's upper edge
// is support and a bearish block's lower edge is resistance.
type VOBGenerator struct {
	rule
}

// NewVOBGenerator validates cfg. A nil now uses time.Now.
func NewVOBGenerator(cfg VOBConfig, now func() time.Time) (*VOBGenerator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if now == nil {
		now = time.Now
	}
	return &VOBGenerator{rule: rule{
		threshold:  decimal.NewFromFloat(cfg.ProximityThreshold),
		rewardRisk: decimal.NewFromFloat(cfg.RewardRisk),
		signalType: "VOB",
		now:        now,
	}}, nil
}

// CheckForSignal scans active blocks newest first.
func (g *VOBGenerator) CheckForSignal(spot float64, sentiment model.BiasLabel, vob *indicator.VOBResult, index string) *model.TradingSignal {
	if vob == nil {
		return nil
	}
	return g.check(spot, sentiment, Levels(vob), index)
}

// Levels converts active blocks to levels ordered by cross index.
func Levels(vob *indicator.VOBResult) []Level {
	var out []Level
	for _, b := range vob.Active() {
		if b.Direction == model.DirectionBull {
			out = append(out, Level{Price: b.Upper, Kind: model.ZoneSupport, Source: "bullish VOB"})
		} else {
			out = append(out, Level{Price: b.Lower, Kind: model.ZoneResistance, Source: "bearish VOB"})
		}
	}
	return out
}
