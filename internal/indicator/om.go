package indicator

import (
	"errors"

	"IndexSentinel/internal/model"
)

// OMConfig bundles the order-flow indicator configs.
type OMConfig struct {
	VOB         VOBConfig     `yaml:"vob"`
	HVP         HVPConfig     `yaml:"hvp"`
	Delta       DeltaConfig   `yaml:"delta"`
	VIDYA       VIDYAConfig   `yaml:"vidya"`
	LTPTrap     LTPTrapConfig `yaml:"ltp_trap"`
	SessionVWAP bool          `yaml:"session_vwap"`
}

// DefaultOMConfig returns every sub-indicator's defaults with a session VWAP.
func DefaultOMConfig() OMConfig {
	return OMConfig{
		VOB:         DefaultVOBConfig(),
		HVP:         DefaultHVPConfig(),
		Delta:       DefaultDeltaConfig(),
		VIDYA:       DefaultVIDYAConfig(),
		LTPTrap:     DefaultLTPTrapConfig(),
		SessionVWAP: true,
	}
}

func (c OMConfig) Validate() error {
	return errors.Join(c.VOB.Validate(), c.HVP.Validate(), c.Delta.Validate(), c.VIDYA.Validate(), c.LTPTrap.Validate())
}

// OMResult holds each sub-indicator's output. A nil field is listed in Missing.
type OMResult struct {
	VOB     *VOBResult     `json:"vob"`
	HVP     *HVPResult     `json:"hvp,omitempty"`
	Delta   *DeltaResult   `json:"delta,omitempty"`
	VIDYA   *VIDYAResult   `json:"vidya,omitempty"`
	LTPTrap *LTPTrapResult `json:"ltp_trap,omitempty"`
	VWAP    []float64      `json:"vwap"`
	Missing []string       `json:"missing,omitempty"`
}

// CalculateOM runs every order-flow indicator over the same bars. Insufficient
// data leaves that field nil; any other error aborts.
func CalculateOM(bars []model.OHLCV, cfg OMConfig) (*OMResult, error) {
	return CalculateOMWithVOB(bars, cfg, nil)
}

// CalculateOMWithVOB is CalculateOM reusing vob when it is non-nil.
func CalculateOMWithVOB(bars []model.OHLCV, cfg OMConfig, vob *VOBResult) (*OMResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	res := &OMResult{VWAP: VWAP(bars, cfg.SessionVWAP), VOB: vob}

	var err error
	if res.VOB == nil {
		if res.VOB, err = CalculateVOB(bars, cfg.VOB); err != nil {
			return nil, err
		}
	}
	soft := func(name string, err error) error {
		if errors.Is(err, model.ErrInsufficientData) {
			res.Missing = append(res.Missing, name)
			return nil
		}
		return err
	}
	if res.HVP, err = CalculateHVP(bars, cfg.HVP); soft("hvp", err) != nil {
		return nil, err
	}
	if res.Delta, err = CalculateDelta(bars, cfg.Delta); soft("delta", err) != nil {
		return nil, err
	}
	if res.VIDYA, err = CalculateVIDYA(bars, cfg.VIDYA); soft("vidya", err) != nil {
		return nil, err
	}
	if res.LTPTrap, err = CalculateLTPTrap(bars, cfg.LTPTrap); soft("ltp_trap", err) != nil {
		return nil, err
	}
	return res, nil
}
