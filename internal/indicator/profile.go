package indicator

import (
	"fmt"

	"IndexSentinel/internal/model"
)

// NodeKind classifies a profile row against the POC volume.
type NodeKind string

const (
	NodeHigh   NodeKind = "HVN"
	NodeLow    NodeKind = "LVN"
	NodeNormal NodeKind = "NORMAL"
)

// ProfileConfig configures the session volume profile.
type ProfileConfig struct {
	Rows         int       `yaml:"rows"`
	Lookback     int       `yaml:"lookback"`
	HVNRatio     float64   `yaml:"hvn_ratio"`
	LVNRatio     float64   `yaml:"lvn_ratio"`
	ValueAreaPct float64   `yaml:"value_area_pct"`
	Policy       BinPolicy `yaml:"bin_policy"`
}

// DefaultProfileConfig returns 24 range-weighted rows over all bars.
func DefaultProfileConfig() ProfileConfig {
	return ProfileConfig{Rows: 24, HVNRatio: 0.7, LVNRatio: 0.3, ValueAreaPct: 0.7, Policy: BinByRange}
}

// Validate checks rows, ratios and policy. Lookback 0 means every bar.
func (c ProfileConfig) Validate() error {
	if err := positive("profile.rows", c.Rows); err != nil {
		return err
	}
	if c.Lookback < 0 {
		return model.NewConfigError("profile.lookback", c.Lookback, "must be non-negative")
	}
	if !(c.LVNRatio >= 0 && c.LVNRatio < c.HVNRatio && c.HVNRatio <= 1) {
		return model.NewConfigError("profile.hvn_ratio", c.HVNRatio, "ratios must satisfy 0 <= lvn < hvn <= 1")
	}
	if err := validValueArea("profile.value_area_pct", c.ValueAreaPct); err != nil {
		return err
	}
	return validPolicy("profile.bin_policy", c.Policy)
}

// ProfileRow is one price row of the profile.
type ProfileRow struct {
	Lower      float64         `json:"lower"`
	Upper      float64         `json:"upper"`
	Volume     float64         `json:"volume"`
	BuyVolume  float64         `json:"buy_volume"`
	SellVolume float64         `json:"sell_volume"`
	Node       NodeKind        `json:"node"`
	Sentiment  model.Direction `json:"sentiment"`
}

// Profile is the volume-at-price histogram of a window.
type Profile struct {
	Rows          []ProfileRow `json:"rows"`
	POC           float64      `json:"poc"`
	POCIndex      int          `json:"poc_index"`
	ValueAreaHigh float64      `json:"value_area_high"`
	ValueAreaLow  float64      `json:"value_area_low"`
	TotalVolume   float64      `json:"total_volume"`
}

// HVNs returns the high-volume rows.
func (p *Profile) HVNs() []ProfileRow {
	var out []ProfileRow
	for _, r := range p.Rows {
		if r.Node == NodeHigh {
			out = append(out, r)
		}
	}
	return out
}

// CalculateProfile builds a volume profile over the last Lookback bars. Buy volume is
// taken from up bars and sell volume from down bars; flat bars split evenly.
func CalculateProfile(bars []model.OHLCV, cfg ProfileConfig) (*Profile, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Lookback > 0 && len(bars) > cfg.Lookback {
		bars = bars[len(bars)-cfg.Lookback:]
	}
	if len(bars) == 0 {
		return nil, insufficient("profile", 1, 0)
	}
	low, high := priceRange(bars)
	edges := binEdges(low, high, cfg.Rows)
	buy := distribute(bars, edges, cfg.Policy, func(b model.OHLCV) float64 {
		switch {
		case b.Close > b.Open:
			return b.Volume
		case b.Close == b.Open:
			return b.Volume / 2
		}
		return 0
	})
	sell := distribute(bars, edges, cfg.Policy, func(b model.OHLCV) float64 {
		switch {
		case b.Close < b.Open:
			return b.Volume
		case b.Close == b.Open:
			return b.Volume / 2
		}
		return 0
	})

	vols := make([]float64, len(buy))
	for k := range vols {
		vols[k] = buy[k] + sell[k]
	}
	poc, lo, hi, ok := ValueArea(vols, cfg.ValueAreaPct)
	if !ok {
		return nil, fmt.Errorf("profile has no volume: %w", model.ErrDegenerateInput)
	}

	p := &Profile{POCIndex: poc, Rows: make([]ProfileRow, len(vols))}
	peak := vols[poc]
	for k, v := range vols {
		row := ProfileRow{Lower: edges[k], Upper: edges[k+1], Volume: v, BuyVolume: buy[k], SellVolume: sell[k], Node: NodeNormal}
		switch {
		case v >= cfg.HVNRatio*peak:
			row.Node = NodeHigh
		case v <= cfg.LVNRatio*peak:
			row.Node = NodeLow
		}
		switch {
		case buy[k] > sell[k]:
			row.Sentiment = model.DirectionBull
		case sell[k] > buy[k]:
			row.Sentiment = model.DirectionBear
		}
		p.Rows[k] = row
		p.TotalVolume += v
	}
	p.POC = (edges[poc] + edges[poc+1]) / 2
	p.ValueAreaLow = edges[lo]
	p.ValueAreaHigh = edges[hi+1]
	return p, nil
}
