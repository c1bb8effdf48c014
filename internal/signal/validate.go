package signal

import (
	"errors"
	"fmt"
	"math"

	"IndexSentinel/internal/model"
)

// ErrRejected wraps every reason a validator turns a signal down.
var ErrRejected = errors.New("signal rejected")

// ValidatorConfig holds the stateless acceptance rules.
type ValidatorConfig struct {
	MinRiskReward    float64 `yaml:"min_risk_reward"`
	RequireSentiment bool    `yaml:"require_sentiment"`
}

// DefaultValidatorConfig requires 1:1.5 and a matching overall bias.
func DefaultValidatorConfig() ValidatorConfig {
	return ValidatorConfig{MinRiskReward: 1.5, RequireSentiment: true}
}

// Validator checks a signal's geometry and its agreement with the market bias.
type Validator struct {
	cfg ValidatorConfig
}

// NewValidator returns a validator for cfg.
func NewValidator(cfg ValidatorConfig) (*Validator, error) {
	if cfg.MinRiskReward < 0 {
		return nil, model.NewConfigError("signal.validator.min_risk_reward", cfg.MinRiskReward, "must be non-negative")
	}
	return &Validator{cfg: cfg}, nil
}

// Validate returns nil when sig is acceptable under the current bias.
func (v *Validator) Validate(sig *model.TradingSignal, bias model.BiasLabel) error {
	if sig == nil {
		return fmt.Errorf("%w: nil signal", ErrRejected)
	}
	risk := math.Abs(sig.EntryPrice - sig.StopLoss)
	reward := math.Abs(sig.Target - sig.EntryPrice)
	if risk == 0 {
		return fmt.Errorf("%w: zero risk", ErrRejected)
	}
	switch sig.Direction {
	case model.Call:
		if sig.StopLoss >= sig.EntryPrice || sig.Target <= sig.EntryPrice {
			return fmt.Errorf("%w: call levels out of order", ErrRejected)
		}
	case model.Put:
		if sig.StopLoss <= sig.EntryPrice || sig.Target >= sig.EntryPrice {
			return fmt.Errorf("%w: put levels out of order", ErrRejected)
		}
	default:
		return fmt.Errorf("%w: unknown direction %q", ErrRejected, sig.Direction)
	}
	// 1e-9 absorbs rounding of the stored 2dp prices.
	if rr := reward / risk; rr+1e-9 < v.cfg.MinRiskReward {
		return fmt.Errorf("%w: risk/reward 1:%.2f below 1:%.2f", ErrRejected, rr, v.cfg.MinRiskReward)
	}
	if v.cfg.RequireSentiment {
		want := model.Bullish
		if sig.Direction == model.Put {
			want = model.Bearish
		}
		if bias != want {
			return fmt.Errorf("%w: %s signal against %s bias", ErrRejected, sig.Direction, bias)
		}
	}
	return nil
}
