package bias

import (
	"errors"
	"fmt"
	"math"

	"IndexSentinel/internal/calculator"
	"IndexSentinel/internal/indicator"
	"IndexSentinel/internal/model"
)

// ReversalState carries reversal mode across runs when ReversalHoldRuns > 0.
// The caller owns it; a nil state keeps every run independent.
type ReversalState struct {
	Remaining int `json:"remaining"`
}

// Input is one analysis run's data. OM may carry a precomputed order-flow bundle
// for the same bars.
type Input struct {
	Bars    []model.OHLCV
	Breadth []model.StockChange
	OM      *indicator.OMResult
}

// Engine scores indicators and aggregates them into an overall bias.
type Engine struct {
	cfg Config
}

// NewEngine validates cfg and returns an engine.
func NewEngine(cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Engine{cfg: cfg}, nil
}

// Config returns the engine configuration.
func (e *Engine) Config() Config { return e.cfg }

// Analyze scores every indicator and aggregates the results.
func (e *Engine) Analyze(in Input, state *ReversalState) (*model.BiasReport, error) {
	results, condition, err := e.Score(in)
	if err != nil {
		return nil, err
	}
	return &model.BiasReport{
		PerIndicator: results,
		Overall:      e.Aggregate(results, condition, state),
	}, nil
}

// Score runs every scorer. Insufficient or degenerate inputs yield a NEUTRAL/0
// result flagged Insufficient; a malformed series or any other error is returned.
func (e *Engine) Score(in Input) ([]model.BiasResult, model.MarketCondition, error) {
	if err := model.ValidateBars(in.Bars); err != nil {
		return nil, "", err
	}
	s := &series{bars: in.Bars, closes: calculator.Closes(in.Bars), breadth: in.Breadth, om: in.OM}
	if n := len(in.Bars); n > 0 {
		s.last = in.Bars[n-1].Close
	}
	if s.om == nil {
		om, err := indicator.CalculateOM(in.Bars, e.cfg.OM)
		if err != nil {
			return nil, "", err
		}
		s.om = om
	}

	var condition model.MarketCondition
	cond, err := indicator.DetectMarketCondition(in.Bars, e.cfg.Condition)
	switch {
	case err == nil:
		condition = cond.Condition
	case !errors.Is(err, model.ErrInsufficientData):
		return nil, "", err
	}

	results := make([]model.BiasResult, 0, len(factors))
	for _, f := range factors {
		r := model.BiasResult{Name: f.name, Tier: f.tier, Weight: e.cfg.weight(f.key), Label: model.Neutral}
		raw, score, note, err := f.score(e.cfg, s)
		switch {
		case errors.Is(err, model.ErrInsufficientData), errors.Is(err, model.ErrDegenerateInput):
			r.Insufficient = true
			r.Note = err.Error()
		case err != nil:
			return nil, "", fmt.Errorf("%s: %w", f.name, err)
		default:
			r.RawValue = raw
			r.Score = calculator.Clamp(score, -100, 100)
			r.Note = note
			r.Label = e.label(r.Score)
		}
		results = append(results, r)
	}
	return results, condition, nil
}

func (e *Engine) label(score float64) model.BiasLabel {
	switch {
	case score > e.cfg.LabelBand:
		return model.Bullish
	case score < -e.cfg.LabelBand:
		return model.Bearish
	}
	return model.Neutral
}

// Aggregate combines per-indicator results. The overall score is
// Σ(score·weight·tier) / Σ(weight·tier) over results that computed, and 0 when
// that denominator is 0. Reversal mode applies when the slow tier and the fast
// tier disagree at or above DivergenceThreshold percent.
func (e *Engine) Aggregate(results []model.BiasResult, condition model.MarketCondition, state *ReversalState) model.OverallBias {
	out := model.OverallBias{
		Mode:      model.ModeNormal,
		Tiers:     tierStats(results),
		Condition: condition,
	}

	// Step a: label counts
	for _, r := range results {
		switch r.Label {
		case model.Bullish:
			out.Counts.Bullish++
		case model.Bearish:
			out.Counts.Bearish++
		default:
			out.Counts.Neutral++
		}
	}
	out.Counts.Total = len(results)

	// Step b: divergence and mode
	fast, slow := out.Tiers[model.TierFast], out.Tiers[model.TierSlow]
	thr := e.cfg.DivergenceThreshold
	if fast.Count > 0 && slow.Count > 0 {
		switch {
		case slow.BullPct >= thr && fast.BearPct >= thr:
			out.Divergence = model.Bullish
		case slow.BearPct >= thr && fast.BullPct >= thr:
			out.Divergence = model.Bearish
		}
	}
	reversal := out.Divergence != ""
	if state != nil {
		if reversal {
			state.Remaining = e.cfg.ReversalHoldRuns
		} else if state.Remaining > 0 {
			state.Remaining--
			reversal = true
		}
	}
	weights := e.cfg.Normal
	if reversal {
		out.Mode = model.ModeReversal
		weights = e.cfg.Reversal
	}

	// Step c: weighted mean
	var num, den float64
	for _, r := range results {
		if r.Insufficient {
			continue
		}
		w := r.Weight * weights.For(r.Tier)
		num += calculator.Clamp(r.Score, -100, 100) * w
		den += w
	}
	if den > 0 {
		out.Score = num / den
	}

	// Step d: label, widened in a range-bound market
	bull, bear := e.cfg.BullishThreshold, e.cfg.BearishThreshold
	if condition == model.ConditionRangeBound {
		bull += e.cfg.RangeBoundWiden
		bear -= e.cfg.RangeBoundWiden
	}
	switch {
	case out.Score > bull:
		out.Bias = model.Bullish
	case out.Score < bear:
		out.Bias = model.Bearish
	default:
		out.Bias = model.Neutral
	}
	out.Confidence = Confidence(out.Bias, out.Score)
	return out
}

// Confidence is 100-|score| for a NEUTRAL verdict and min(100, |score|) otherwise.
func Confidence(label model.BiasLabel, score float64) float64 {
	mag := math.Min(100, math.Abs(score))
	if label == model.Neutral {
		return 100 - mag
	}
	return mag
}

func tierStats(results []model.BiasResult) map[model.Tier]model.TierStats {
	type tally struct{ bull, bear, n int }
	counts := map[model.Tier]*tally{model.TierFast: {}, model.TierMedium: {}, model.TierSlow: {}}
	for _, r := range results {
		t, ok := counts[r.Tier]
		if !ok || r.Insufficient {
			continue
		}
		t.n++
		switch r.Label {
		case model.Bullish:
			t.bull++
		case model.Bearish:
			t.bear++
		}
	}
	out := make(map[model.Tier]model.TierStats, len(counts))
	for tier, t := range counts {
		st := model.TierStats{Count: t.n}
		if t.n > 0 {
			st.BullPct = float64(t.bull) / float64(t.n) * 100
			st.BearPct = float64(t.bear) / float64(t.n) * 100
		}
		out[tier] = st
	}
	return out
}
