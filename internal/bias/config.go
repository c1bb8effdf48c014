package bias

import (
	"errors"
	"fmt"

	"IndexSentinel/internal/indicator"
	"IndexSentinel/internal/model"
)

// TierWeights are the per-tier multipliers of one mode.
type TierWeights struct {
	Fast   float64 `yaml:"fast"`
	Medium float64 `yaml:"medium"`
	Slow   float64 `yaml:"slow"`
}

// For returns the multiplier of tier.
func (w TierWeights) For(t model.Tier) float64 {
	switch t {
	case model.TierFast:
		return w.Fast
	case model.TierMedium:
		return w.Medium
	case model.TierSlow:
		return w.Slow
	}
	return 0
}

func (w TierWeights) validate(prefix string) error {
	for name, v := range map[string]float64{"fast": w.Fast, "medium": w.Medium, "slow": w.Slow} {
		if v < 0 {
			return model.NewConfigError(prefix+"."+name, v, "must be non-negative")
		}
	}
	return nil
}

// Config controls scoring and aggregation.
type Config struct {
	Normal              TierWeights        `yaml:"normal_weights"`
	Reversal            TierWeights        `yaml:"reversal_weights"`
	DivergenceThreshold float64            `yaml:"divergence_threshold"`
	BullishThreshold    float64            `yaml:"bullish_threshold"`
	BearishThreshold    float64            `yaml:"bearish_threshold"`
	RangeBoundWiden     float64            `yaml:"range_bound_widen"`
	ReversalHoldRuns    int                `yaml:"reversal_hold_runs"`
	LabelBand           float64            `yaml:"label_band"`
	Weights             map[string]float64 `yaml:"weights"`

	RSIPeriod    int                       `yaml:"rsi_period"`
	MFIPeriod    int                       `yaml:"mfi_period"`
	DMIPeriod    int                       `yaml:"dmi_period"`
	ADXSmoothing int                       `yaml:"adx_smoothing"`
	FastEMA      int                       `yaml:"fast_ema"`
	SlowEMA      int                       `yaml:"slow_ema"`
	OM           indicator.OMConfig        `yaml:"om"`
	URSI         indicator.URSIConfig      `yaml:"ursi"`
	Condition    indicator.ConditionConfig `yaml:"condition"`
}

// DefaultConfig returns 2/3/5 normal and 5/3/2 reversal weights with ±30 label thresholds.
func DefaultConfig() Config {
	return Config{
		Normal:              TierWeights{Fast: 2, Medium: 3, Slow: 5},
		Reversal:            TierWeights{Fast: 5, Medium: 3, Slow: 2},
		DivergenceThreshold: 60,
		BullishThreshold:    30,
		BearishThreshold:    -30,
		RangeBoundWiden:     10,
		LabelBand:           10,
		RSIPeriod:           14,
		MFIPeriod:           10,
		DMIPeriod:           13,
		ADXSmoothing:        8,
		FastEMA:             5,
		SlowEMA:             18,
		OM:                  indicator.DefaultOMConfig(),
		URSI:                indicator.DefaultURSIConfig(),
		Condition:           indicator.DefaultConditionConfig(),
	}
}

// Validate rejects negative weights, inverted thresholds and bad indicator configs.
func (c Config) Validate() error {
	if err := c.Normal.validate("bias.normal_weights"); err != nil {
		return err
	}
	if err := c.Reversal.validate("bias.reversal_weights"); err != nil {
		return err
	}
	if c.DivergenceThreshold < 0 || c.DivergenceThreshold > 100 {
		return model.NewConfigError("bias.divergence_threshold", c.DivergenceThreshold, "must be in [0, 100]")
	}
	if c.BearishThreshold >= c.BullishThreshold {
		return model.NewConfigError("bias.bearish_threshold", c.BearishThreshold, fmt.Sprintf("must be below bullish_threshold %.1f", c.BullishThreshold))
	}
	if c.RangeBoundWiden < 0 {
		return model.NewConfigError("bias.range_bound_widen", c.RangeBoundWiden, "must be non-negative")
	}
	if c.ReversalHoldRuns < 0 {
		return model.NewConfigError("bias.reversal_hold_runs", c.ReversalHoldRuns, "must be non-negative")
	}
	if c.LabelBand < 0 || c.LabelBand >= 100 {
		return model.NewConfigError("bias.label_band", c.LabelBand, "must be in [0, 100)")
	}
	for name, w := range c.Weights {
		if !knownIndicator(name) {
			return model.NewConfigError("bias.weights", name, "unknown indicator")
		}
		if w < 0 {
			return model.NewConfigError("bias.weights."+name, w, "must be non-negative")
		}
	}
	for name, v := range map[string]int{
		"bias.rsi_period":    c.RSIPeriod,
		"bias.mfi_period":    c.MFIPeriod,
		"bias.dmi_period":    c.DMIPeriod,
		"bias.adx_smoothing": c.ADXSmoothing,
		"bias.fast_ema":      c.FastEMA,
		"bias.slow_ema":      c.SlowEMA,
	} {
		if v <= 0 {
			return model.NewConfigError(name, v, "must be positive")
		}
	}
	return errors.Join(c.OM.Validate(), c.URSI.Validate(), c.Condition.Validate())
}

// weight returns the configured weight of an indicator, 1 when unset.
func (c Config) weight(name string) float64 {
	if w, ok := c.Weights[name]; ok {
		return w
	}
	return 1
}
