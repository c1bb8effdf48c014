package indicator

import (
	"math"

	"IndexSentinel/internal/model"
	"IndexSentinel/internal/resample"
)

// BinPolicy decides how a bar's volume lands in price bins.
type BinPolicy string

const (
	// BinByClose assigns the whole bar volume to the bin holding its close.
	BinByClose BinPolicy = "close"
	// BinByRange spreads the bar volume over the bins its high-low range overlaps.
	BinByRange BinPolicy = "range"
)

// FootprintConfig configures the volume footprint.
type FootprintConfig struct {
	Bins         int       `yaml:"bins"`
	Timeframe    string    `yaml:"timeframe"`
	DynamicPOC   bool      `yaml:"dynamic_poc"`
	ValueAreaPct float64   `yaml:"value_area_pct"`
	Policy       BinPolicy `yaml:"bin_policy"`
}

// DefaultFootprintConfig returns daily buckets of 20 close-assigned bins.
func DefaultFootprintConfig() FootprintConfig {
	return FootprintConfig{Bins: 20, Timeframe: "D", DynamicPOC: true, ValueAreaPct: 0.70, Policy: BinByClose}
}

// Validate checks bins, timeframe, value area share and policy.
func (c FootprintConfig) Validate() error {
	if err := positive("footprint.bins", c.Bins); err != nil {
		return err
	}
	if _, err := resample.ParseTimeframe(c.Timeframe); err != nil {
		return err
	}
	if err := validValueArea("footprint.value_area_pct", c.ValueAreaPct); err != nil {
		return err
	}
	return validPolicy("footprint.bin_policy", c.Policy)
}

func validValueArea(param string, v float64) error {
	if !(v > 0 && v <= 1) {
		return model.NewConfigError(param, v, "must be in (0, 1]")
	}
	return nil
}

func validPolicy(param string, p BinPolicy) error {
	if p != BinByClose && p != BinByRange {
		return model.NewConfigError(param, p, "must be close or range")
	}
	return nil
}

// FootprintResult holds every bucket plus the live one.
type FootprintResult struct {
	Current        *model.FootprintPeriod  `json:"current_footprint"`
	Periods        []model.FootprintPeriod `json:"periods"`
	HistoricalPOCs []model.POCLine         `json:"historical_pocs"`
}

// CalculateFootprint bins each timeframe bucket over its own [low, high] range.
// The last bucket is the current, incomplete period.
func CalculateFootprint(bars []model.OHLCV, cfg FootprintConfig) (*FootprintResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	tf, _ := resample.ParseTimeframe(cfg.Timeframe)
	groups := resample.Buckets(bars, tf)

	res := &FootprintResult{}
	for gi, g := range groups {
		p := footprintPeriod(g.Bars(bars), cfg)
		p.Start, p.End = g.Start, g.End
		p.Complete = gi < len(groups)-1
		res.Periods = append(res.Periods, p)
		if p.Complete && !cfg.DynamicPOC && p.POC != nil {
			res.HistoricalPOCs = append(res.HistoricalPOCs, model.POCLine{Start: p.Start, End: p.End, Price: *p.POC})
		}
	}
	if n := len(res.Periods); n > 0 {
		res.Current = &res.Periods[n-1]
	}
	return res, nil
}

func footprintPeriod(bars []model.OHLCV, cfg FootprintConfig) model.FootprintPeriod {
	low, high := priceRange(bars)
	edges := binEdges(low, high, cfg.Bins)
	vols := distribute(bars, edges, cfg.Policy, func(b model.OHLCV) float64 { return b.Volume })

	p := model.FootprintPeriod{POCIndex: -1, Bins: make([]model.FootprintBin, len(vols))}
	for k, v := range vols {
		p.Bins[k] = model.FootprintBin{Lower: edges[k], Upper: edges[k+1], Volume: v}
		p.TotalVolume += v
	}
	poc, lo, hi, ok := ValueArea(vols, cfg.ValueAreaPct)
	if !ok {
		return p
	}
	p.Bins[poc].IsPOC = true
	p.POCIndex = poc
	mid := (p.Bins[poc].Lower + p.Bins[poc].Upper) / 2
	p.POC = &mid
	p.ValueAreaLow = p.Bins[lo].Lower
	p.ValueAreaHigh = p.Bins[hi].Upper
	return p
}

func priceRange(bars []model.OHLCV) (low, high float64) {
	low, high = math.Inf(1), math.Inf(-1)
	for _, b := range bars {
		low = math.Min(low, b.Low)
		high = math.Max(high, b.High)
	}
	return low, high
}

// binEdges splits [low, high] into n equal bins. A zero-width range yields a single bin.
func binEdges(low, high float64, n int) []float64 {
	if high <= low {
		return []float64{low, high}
	}
	w := (high - low) / float64(n)
	edges := make([]float64, n+1)
	for k := 0; k < n; k++ {
		edges[k] = low + float64(k)*w
	}
	edges[n] = high
	return edges
}

func binIndex(edges []float64, price float64) int {
	n := len(edges) - 1
	w := edges[n] - edges[0]
	if w <= 0 {
		return 0
	}
	k := int((price - edges[0]) / w * float64(n))
	if k < 0 {
		k = 0
	}
	if k >= n {
		k = n - 1
	}
	return k
}

// distribute accumulates weight(bar) into bins according to policy. The sum of the
// output equals the sum of weights.
func distribute(bars []model.OHLCV, edges []float64, policy BinPolicy, weight func(model.OHLCV) float64) []float64 {
	n := len(edges) - 1
	out := make([]float64, n)
	for _, b := range bars {
		w := weight(b)
		if w == 0 {
			continue
		}
		span := b.High - b.Low
		if policy != BinByRange || span <= 0 || n == 1 {
			out[binIndex(edges, b.Close)] += w
			continue
		}
		for k := 0; k < n; k++ {
			overlap := math.Min(edges[k+1], b.High) - math.Max(edges[k], b.Low)
			if overlap > 0 {
				out[k] += w * overlap / span
			}
		}
	}
	return out
}

// ValueArea finds the point of control and expands outward one bin at a time,
// toward the heavier neighbour, until pct of total volume is enclosed.
// ok is false when the profile holds no volume.
func ValueArea(vols []float64, pct float64) (poc, lo, hi int, ok bool) {
	var total float64
	poc = -1
	for k, v := range vols {
		total += v
		if poc < 0 || v > vols[poc] {
			poc = k
		}
	}
	if total <= 0 {
		return -1, -1, -1, false
	}
	lo, hi = poc, poc
	acc := vols[poc]
	target := pct * total
	for acc < target && (lo > 0 || hi < len(vols)-1) {
		up, down := -1.0, -1.0
		if hi < len(vols)-1 {
			up = vols[hi+1]
		}
		if lo > 0 {
			down = vols[lo-1]
		}
		if up >= down {
			hi++
			acc += vols[hi]
		} else {
			lo--
			acc += vols[lo]
		}
	}
	return poc, lo, hi, true
}
