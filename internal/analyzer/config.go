package analyzer

import (
	"errors"
	"time"

	"IndexSentinel/internal/bias"
	"IndexSentinel/internal/indicator"
	"IndexSentinel/internal/model"
	"IndexSentinel/internal/signal"
)

// Config wires every analysis stage.
type Config struct {
	Bias      bias.Config               `yaml:"bias"`
	HTF       []indicator.HTFConfig     `yaml:"htf"`
	Footprint indicator.FootprintConfig `yaml:"footprint"`
	Profile   indicator.ProfileConfig   `yaml:"profile"`
	HTFSignal signal.HTFConfig          `yaml:"htf_signal"`
	VOBSignal signal.VOBConfig          `yaml:"vob_signal"`
	Validator signal.ValidatorConfig    `yaml:"validator"`
	Alerts    signal.AlertConfig        `yaml:"alerts"`
	// StrengthLookback bounds zone strength scoring; 0 uses every bar.
	StrengthLookback int `yaml:"strength_lookback"`
	// LevelHalfWidth turns an HTF pivot price into a zone of +-LevelHalfWidth points.
	LevelHalfWidth float64       `yaml:"level_half_width"`
	VOBCacheTTL    time.Duration `yaml:"vob_cache_ttl"`
}

// DefaultConfig recomputes VOB every 120s and scores zones over the last 375 bars.
func DefaultConfig() Config {
	return Config{
		Bias:             bias.DefaultConfig(),
		HTF:              indicator.DefaultHTFConfigs(),
		Footprint:        indicator.DefaultFootprintConfig(),
		Profile:          indicator.DefaultProfileConfig(),
		HTFSignal:        signal.DefaultHTFConfig(),
		VOBSignal:        signal.DefaultVOBConfig(),
		Validator:        signal.DefaultValidatorConfig(),
		Alerts:           signal.DefaultAlertConfig(),
		StrengthLookback: 375,
		LevelHalfWidth:   5,
		VOBCacheTTL:      120 * time.Second,
	}
}

func (c Config) Validate() error {
	errs := []error{
		c.Bias.Validate(),
		c.Footprint.Validate(),
		c.Profile.Validate(),
		c.HTFSignal.Validate(),
		c.VOBSignal.Validate(),
		c.Alerts.Validate(),
	}
	for _, h := range c.HTF {
		errs = append(errs, h.Validate())
	}
	if c.StrengthLookback < 0 {
		errs = append(errs, model.NewConfigError("analyzer.strength_lookback", c.StrengthLookback, "must be non-negative"))
	}
	if c.LevelHalfWidth < 0 {
		errs = append(errs, model.NewConfigError("analyzer.level_half_width", c.LevelHalfWidth, "must be non-negative"))
	}
	if c.VOBCacheTTL < 0 {
		errs = append(errs, model.NewConfigError("analyzer.vob_cache_ttl", c.VOBCacheTTL, "must be non-negative"))
	}
	return errors.Join(errs...)
}
