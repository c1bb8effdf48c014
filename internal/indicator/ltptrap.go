package indicator

import (
	"math"

	"IndexSentinel/internal/model"
)

// TrapKind names a failed breakout.
type TrapKind string

const (
	// BullTrap is a push above the range that closes back inside; it reads bearish.
	BullTrap TrapKind = "BULL_TRAP"
	// BearTrap is a flush below the range that closes back inside; it reads bullish.
	BearTrap TrapKind = "BEAR_TRAP"
)

// LTPTrapConfig configures the push-and-reject detector.
type LTPTrapConfig struct {
	Lookback       int     `yaml:"lookback"`
	MinPenetration float64 `yaml:"min_penetration"`
}

// DefaultLTPTrapConfig uses the prior 10 bars as the range.
func DefaultLTPTrapConfig() LTPTrapConfig {
	return LTPTrapConfig{Lookback: 10}
}

func (c LTPTrapConfig) Validate() error {
	if err := positive("ltp_trap.lookback", c.Lookback); err != nil {
		return err
	}
	return nonNegative("ltp_trap.min_penetration", c.MinPenetration)
}

// Trap is one detected rejection.
type Trap struct {
	Index     int             `json:"index"`
	Kind      TrapKind        `json:"kind"`
	Level     float64         `json:"level"`
	Extreme   float64         `json:"extreme"`
	Direction model.Direction `json:"signal"`
}

// LTPTrapResult lists traps oldest first.
type LTPTrapResult struct {
	Traps []Trap `json:"traps"`
	Last  *Trap  `json:"last,omitempty"`
}

// CalculateLTPTrap flags bars whose price pierced the prior Lookback-bar range by at
// least MinPenetration and closed back inside it, either on the same bar or on the
// next one. A trap is contrarian: a bull trap signals BEAR.
func CalculateLTPTrap(bars []model.OHLCV, cfg LTPTrapConfig) (*LTPTrapResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(bars) < cfg.Lookback+1 {
		return nil, insufficient("ltp_trap", cfg.Lookback+1, len(bars))
	}
	res := &LTPTrapResult{}
	for i := cfg.Lookback; i < len(bars); i++ {
		hi, lo := math.Inf(-1), math.Inf(1)
		for _, b := range bars[i-cfg.Lookback : i] {
			hi = math.Max(hi, b.High)
			lo = math.Min(lo, b.Low)
		}
		b := bars[i]
		var next *model.OHLCV
		if i+1 < len(bars) {
			next = &bars[i+1]
		}

		var trap *Trap
		switch {
		case b.High > hi+cfg.MinPenetration:
			trap = &Trap{Index: i, Kind: BullTrap, Level: hi, Extreme: b.High, Direction: model.DirectionBear}
		case b.Low < lo-cfg.MinPenetration:
			trap = &Trap{Index: i, Kind: BearTrap, Level: lo, Extreme: b.Low, Direction: model.DirectionBull}
		default:
			continue
		}
		if trap.back(b.Close) {
			res.Traps = append(res.Traps, *trap)
		} else if next != nil && trap.back(next.Close) {
			res.Traps = append(res.Traps, *trap)
			// The rejecting bar belongs to this trap.
			i++
		}
	}
	if n := len(res.Traps); n > 0 {
		res.Last = &res.Traps[n-1]
	}
	return res, nil
}

// back reports whether close c is back inside the range on the trapped side.
func (t Trap) back(c float64) bool {
	if t.Kind == BullTrap {
		return c < t.Level
	}
	return c > t.Level
}
