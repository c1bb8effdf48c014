package bias

import (
	"errors"
	"math"
	"math/rand"
	"testing"
	"time"

	"IndexSentinel/internal/model"
)

var start = time.Date(2025, 1, 15, 9, 15, 0, 0, time.FixedZone("IST", 5*3600+1800))

func stamp(bars []model.OHLCV) []model.OHLCV {
	for i := range bars {
		bars[i].Time = start.Add(time.Duration(i) * time.Minute)
	}
	return bars
}

func flat(n int) []model.OHLCV {
	bars := make([]model.OHLCV, n)
	for i := range bars {
		bars[i] = model.OHLCV{Open: 100, High: 100, Low: 100, Close: 100, Volume: 1000}
	}
	return stamp(bars)
}

func rising(n int) []model.OHLCV {
	bars := make([]model.OHLCV, n)
	for i := range bars {
		c := 100 + 0.5*float64(i)
		bars[i] = model.OHLCV{Open: c - 0.3, High: c + 0.2, Low: c - 0.5, Close: c, Volume: 1000}
	}
	return stamp(bars)
}

func newEngine(t *testing.T, cfg Config) *Engine {
	t.Helper()
	e, err := NewEngine(cfg)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return e
}

func TestAnalyze_FlatSeriesIsNeutral(t *testing.T) {
	e := newEngine(t, DefaultConfig())
	rep, err := e.Analyze(Input{Bars: flat(200)}, nil)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if rep.Overall.Bias != model.Neutral || rep.Overall.Score != 0 {
		t.Errorf("expected NEUTRAL/0, got %s/%.4f", rep.Overall.Bias, rep.Overall.Score)
	}
	if rep.Overall.Mode != model.ModeNormal {
		t.Errorf("expected normal mode, got %s", rep.Overall.Mode)
	}
	if rep.Overall.Condition != model.ConditionRangeBound {
		t.Errorf("expected RANGE_BOUND, got %s", rep.Overall.Condition)
	}
	if len(rep.PerIndicator) != len(factors) {
		t.Fatalf("expected %d results, got %d", len(factors), len(rep.PerIndicator))
	}
	for _, r := range rep.PerIndicator {
		if r.Score != 0 || r.Label != model.Neutral {
			t.Errorf("%s: expected NEUTRAL/0, got %s/%.4f", r.Name, r.Label, r.Score)
		}
	}
}

func TestAnalyze_UptrendIsBullish(t *testing.T) {
	breadth := []model.StockChange{
		{Symbol: "RELIANCE.NS", Weight: 9.6, DailyPct: 1.2, TF1Pct: 0.3, TF2Pct: 0.5},
		{Symbol: "HDFCBANK.NS", Weight: 13.2, DailyPct: 0.8, TF1Pct: 0.2, TF2Pct: 0.4},
	}
	e := newEngine(t, DefaultConfig())
	rep, err := e.Analyze(Input{Bars: rising(200), Breadth: breadth}, nil)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if rep.Overall.Bias != model.Bullish || rep.Overall.Score <= 30 {
		t.Errorf("expected BULLISH above 30, got %s/%.2f", rep.Overall.Bias, rep.Overall.Score)
	}
	if rep.Overall.Confidence != math.Min(100, rep.Overall.Score) {
		t.Errorf("directional confidence must equal |score|, got %.2f", rep.Overall.Confidence)
	}
	if rep.Overall.Tiers[model.TierSlow].BullPct != 100 {
		t.Errorf("expected slow tier fully bullish, got %+v", rep.Overall.Tiers[model.TierSlow])
	}
}

// Too few bars must degrade each indicator to NEUTRAL rather than fail.
func TestAnalyze_ShortSeriesAbsorbed(t *testing.T) {
	e := newEngine(t, DefaultConfig())
	rep, err := e.Analyze(Input{Bars: rising(5)}, nil)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	for _, r := range rep.PerIndicator {
		if r.Name == "VWAP" {
			continue
		}
		if !r.Insufficient || r.Label != model.Neutral || r.Score != 0 {
			t.Errorf("%s: expected insufficient NEUTRAL/0, got %+v", r.Name, r)
		}
	}
}

func TestAnalyze_MalformedSeries(t *testing.T) {
	bars := flat(30)
	bars[10].Low = 101
	e := newEngine(t, DefaultConfig())
	if _, err := e.Analyze(Input{Bars: bars}, nil); !errors.Is(err, model.ErrMalformedSeries) {
		t.Errorf("expected ErrMalformedSeries, got %v", err)
	}
}

func TestScore_Clamped(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	e := newEngine(t, DefaultConfig())
	for run := 0; run < 20; run++ {
		bars := make([]model.OHLCV, 120)
		p := 100.0
		for i := range bars {
			p *= 1 + (rng.Float64()-0.5)*0.2
			o := p * (1 + (rng.Float64()-0.5)*0.05)
			bars[i] = model.OHLCV{Open: o, High: math.Max(o, p) * 1.01, Low: math.Min(o, p) * 0.99, Close: p, Volume: rng.Float64() * 1e6}
		}
		results, _, err := e.Score(Input{Bars: stamp(bars)})
		if err != nil {
			t.Fatalf("Score: %v", err)
		}
		for _, r := range results {
			if r.Score < -100 || r.Score > 100 {
				t.Errorf("%s: score %.2f out of range", r.Name, r.Score)
			}
		}
	}
}

func TestAggregate_ZeroWeightsIsNeutral(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Weights = map[string]float64{}
	for _, f := range factors {
		cfg.Weights[f.key] = 0
	}
	e := newEngine(t, cfg)
	rep, err := e.Analyze(Input{Bars: rising(200)}, nil)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if rep.Overall.Score != 0 || rep.Overall.Bias != model.Neutral {
		t.Errorf("expected 0/NEUTRAL with zero weights, got %.2f/%s", rep.Overall.Score, rep.Overall.Bias)
	}
}

func result(tier model.Tier, score float64, label model.BiasLabel) model.BiasResult {
	return model.BiasResult{Name: string(tier), Tier: tier, Score: score, Weight: 1, Label: label}
}

// Fast tier fully bearish against a two-thirds bullish slow tier.
func divergent() []model.BiasResult {
	return []model.BiasResult{
		result(model.TierFast, -50, model.Bearish),
		result(model.TierFast, -50, model.Bearish),
		result(model.TierFast, -50, model.Bearish),
		result(model.TierSlow, 50, model.Bullish),
		result(model.TierSlow, 50, model.Bullish),
		result(model.TierSlow, 0, model.Neutral),
	}
}

func aligned() []model.BiasResult {
	return []model.BiasResult{
		result(model.TierFast, 50, model.Bullish),
		result(model.TierSlow, 50, model.Bullish),
	}
}

func TestAggregate_DivergenceSwitchesWeights(t *testing.T) {
	e := newEngine(t, DefaultConfig())
	out := e.Aggregate(divergent(), "", nil)
	if out.Mode != model.ModeReversal || out.Divergence != model.Bullish {
		t.Fatalf("expected reversal on bullish divergence, got %s/%q", out.Mode, out.Divergence)
	}
	want := (-150.0*5 + 100*2) / (3*5 + 3*2)
	if math.Abs(out.Score-want) > 1e-9 {
		t.Errorf("expected reversal-weighted score %.4f, got %.4f", want, out.Score)
	}

	cfg := DefaultConfig()
	cfg.DivergenceThreshold = 70
	out = newEngine(t, cfg).Aggregate(divergent(), "", nil)
	if out.Mode != model.ModeNormal {
		t.Errorf("66%% slow agreement must not trip a 70%% threshold")
	}
	want = (-150.0*2 + 100*5) / (3*2 + 3*5)
	if math.Abs(out.Score-want) > 1e-9 {
		t.Errorf("expected normal-weighted score %.4f, got %.4f", want, out.Score)
	}
}

func TestAggregate_ReversalHold(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ReversalHoldRuns = 2
	e := newEngine(t, cfg)

	if out := e.Aggregate(aligned(), "", nil); out.Mode != model.ModeNormal {
		t.Fatalf("expected normal mode without divergence")
	}
	state := &ReversalState{}
	modes := []model.BiasMode{
		e.Aggregate(divergent(), "", state).Mode,
		e.Aggregate(aligned(), "", state).Mode,
		e.Aggregate(aligned(), "", state).Mode,
		e.Aggregate(aligned(), "", state).Mode,
	}
	want := []model.BiasMode{model.ModeReversal, model.ModeReversal, model.ModeReversal, model.ModeNormal}
	for i := range want {
		if modes[i] != want[i] {
			t.Errorf("run %d: expected %s, got %s", i, want[i], modes[i])
		}
	}

	e.Aggregate(divergent(), "", nil)
	if out := e.Aggregate(aligned(), "", nil); out.Mode != model.ModeNormal {
		t.Error("a nil state must keep runs independent")
	}
}

func TestAggregate_RangeBoundWidensThresholds(t *testing.T) {
	e := newEngine(t, DefaultConfig())
	rs := []model.BiasResult{result(model.TierFast, 35, model.Bullish)}
	if out := e.Aggregate(rs, model.ConditionTrendingUp, nil); out.Bias != model.Bullish {
		t.Errorf("expected BULLISH at 35, got %s", out.Bias)
	}
	if out := e.Aggregate(rs, model.ConditionRangeBound, nil); out.Bias != model.Neutral {
		t.Errorf("expected NEUTRAL at 35 in a range, got %s", out.Bias)
	}
}

func TestConfidence(t *testing.T) {
	tests := []struct {
		label model.BiasLabel
		score float64
		want  float64
	}{
		{model.Neutral, 10, 90},
		{model.Neutral, -25, 75},
		{model.Bullish, 45, 45},
		{model.Bearish, -60, 60},
		{model.Bullish, 150, 100},
	}
	for _, tt := range tests {
		if got := Confidence(tt.label, tt.score); got != tt.want {
			t.Errorf("Confidence(%s, %.0f): expected %.0f, got %.0f", tt.label, tt.score, tt.want, got)
		}
	}
}

func TestNewEngine_InvalidConfig(t *testing.T) {
	tests := []struct {
		name  string
		mut   func(*Config)
		param string
	}{
		{"unknown weight", func(c *Config) { c.Weights = map[string]float64{"bogus": 1} }, "bias.weights"},
		{"negative weight", func(c *Config) { c.Weights = map[string]float64{"rsi": -1} }, "bias.weights.rsi"},
		{"negative tier", func(c *Config) { c.Reversal.Fast = -1 }, "bias.reversal_weights.fast"},
		{"inverted thresholds", func(c *Config) { c.BearishThreshold = 40 }, "bias.bearish_threshold"},
		{"bad rsi", func(c *Config) { c.RSIPeriod = 0 }, "bias.rsi_period"},
		{"bad vob", func(c *Config) { c.OM.VOB.ATRLength = 0 }, "vob.atr_length"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mut(&cfg)
			_, err := NewEngine(cfg)
			var ce *model.ConfigError
			if !errors.As(err, &ce) || ce.Param != tt.param {
				t.Errorf("expected ConfigError on %s, got %v", tt.param, err)
			}
		})
	}
}
