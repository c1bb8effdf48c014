package bias

import (
	"fmt"
	"math"

	"IndexSentinel/internal/calculator"
	"IndexSentinel/internal/indicator"
	"IndexSentinel/internal/model"
)

// series is the shared input of every scorer.
type series struct {
	bars    []model.OHLCV
	closes  []float64
	last    float64
	om      *indicator.OMResult
	breadth []model.StockChange
}

type scorer func(c Config, s *series) (raw, score float64, note string, err error)

type factor struct {
	key   string
	name  string
	tier  model.Tier
	score scorer
}

// factors lists every contributing indicator in report order.
var factors = []factor{
	{"volume_delta", "Volume Delta", model.TierFast, scoreVolumeDelta},
	{"hvp", "High Volume Pivots", model.TierFast, scoreHVP},
	{"vob", "Volume Order Blocks", model.TierFast, scoreVOB},
	{"order_blocks", "Order Blocks (EMA 5/18)", model.TierFast, scoreEMACross},
	{"rsi", "RSI", model.TierFast, scoreRSI},
	{"dmi", "DMI", model.TierFast, scoreDMI},
	{"vidya", "VIDYA", model.TierFast, scoreVIDYA},
	{"mfi", "MFI", model.TierFast, scoreMFI},
	{"vwap", "VWAP", model.TierMedium, scoreVWAP},
	{"ultimate_rsi", "Ultimate RSI", model.TierMedium, scoreURSI},
	{"breadth_daily", "Breadth Daily", model.TierSlow, breadthScorer(func(s model.StockChange) float64 { return s.DailyPct })},
	{"breadth_tf1", "Breadth TF1", model.TierSlow, breadthScorer(func(s model.StockChange) float64 { return s.TF1Pct })},
	{"breadth_tf2", "Breadth TF2", model.TierSlow, breadthScorer(func(s model.StockChange) float64 { return s.TF2Pct })},
}

func knownIndicator(key string) bool {
	for _, f := range factors {
		if f.key == key {
			return true
		}
	}
	return false
}

func missing(what string) error {
	return fmt.Errorf("%s: %w", what, model.ErrInsufficientData)
}

func degenerate(what string) error {
	return fmt.Errorf("%s: %w", what, model.ErrDegenerateInput)
}

// scoreVolumeDelta scales the last smoothed delta by its own average magnitude.
func scoreVolumeDelta(c Config, s *series) (float64, float64, string, error) {
	d := s.om.Delta
	if d == nil {
		return 0, 0, "", missing("delta")
	}
	lookback := c.OM.Delta.Lookback
	var avg float64
	for _, v := range d.Smoothed[len(d.Smoothed)-lookback:] {
		avg += math.Abs(v)
	}
	avg /= float64(lookback)
	if avg == 0 {
		return 0, 0, "", degenerate("delta has no directional volume")
	}
	note := fmt.Sprintf("delta=%.0f", d.Last)
	if d.LastSpike {
		note += " spike"
	}
	return d.Last, d.Last / avg * 50, note, nil
}

// scoreHVP reads the most recent live high-volume pivot: a swing low below is support, a swing high resistance.
func scoreHVP(_ Config, s *series) (float64, float64, string, error) {
	h := s.om.HVP
	if h == nil {
		return 0, 0, "", missing("hvp")
	}
	hi, lo := h.LastActive(model.PivotHigh), h.LastActive(model.PivotLow)
	switch {
	case lo != nil && (hi == nil || lo.Index > hi.Index):
		return lo.Price, 60, fmt.Sprintf("support pivot %.2f", lo.Price), nil
	case hi != nil:
		return hi.Price, -60, fmt.Sprintf("resistance pivot %.2f", hi.Price), nil
	}
	return 0, 0, "no active pivot", nil
}

// scoreVOB compares the number of active bullish and bearish blocks.
func scoreVOB(c Config, s *series) (float64, float64, string, error) {
	if len(s.bars) < c.OM.VOB.Sensitivity+13 {
		return 0, 0, "", missing("vob")
	}
	var bull, bear float64
	for _, b := range s.om.VOB.Active() {
		if b.Direction == model.DirectionBull {
			bull++
		} else {
			bear++
		}
	}
	if bull+bear == 0 {
		return 0, 0, "no active blocks", nil
	}
	return bull - bear, (bull - bear) / (bull + bear) * 100, fmt.Sprintf("%.0f bull / %.0f bear", bull, bear), nil
}

// scoreEMACross scores the fast/slow EMA spread; 1% spread saturates at +-50.
func scoreEMACross(c Config, s *series) (float64, float64, string, error) {
	if len(s.closes) < c.SlowEMA {
		return 0, 0, "", missing("ema cross")
	}
	fast := calculator.Last(calculator.EMA(s.closes, c.FastEMA))
	slow := calculator.Last(calculator.EMA(s.closes, c.SlowEMA))
	if slow == 0 {
		return 0, 0, "", degenerate("slow ema is zero")
	}
	spread := (fast - slow) / slow * 100
	return spread, spread * 50, fmt.Sprintf("EMA%d %.2f / EMA%d %.2f", c.FastEMA, fast, c.SlowEMA, slow), nil
}

func scoreRSI(c Config, s *series) (float64, float64, string, error) {
	rsi, err := calculator.CalculateRSI(s.bars, c.RSIPeriod)
	if err != nil {
		return 0, 0, "", err
	}
	return rsi, (rsi - 50) * 2, fmt.Sprintf("RSI=%.1f", rsi), nil
}

func scoreMFI(c Config, s *series) (float64, float64, string, error) {
	mfi := calculator.Last(calculator.MFI(s.bars, c.MFIPeriod))
	if math.IsNaN(mfi) {
		return 0, 0, "", missing("mfi")
	}
	return mfi, (mfi - 50) * 2, fmt.Sprintf("MFI=%.1f", mfi), nil
}

// scoreDMI is the normalised +DI/-DI difference.
func scoreDMI(c Config, s *series) (float64, float64, string, error) {
	if len(s.bars) < c.DMIPeriod+1 {
		return 0, 0, "", missing("dmi")
	}
	d := calculator.DMI(s.bars, c.DMIPeriod, c.ADXSmoothing)
	plus, minus := calculator.Last(d.PlusDI), calculator.Last(d.MinusDI)
	if math.IsNaN(plus) || math.IsNaN(minus) {
		return 0, 0, "", missing("dmi")
	}
	note := fmt.Sprintf("+DI %.1f / -DI %.1f ADX %.1f", plus, minus, calculator.Last(d.ADX))
	if plus+minus == 0 {
		return 0, 0, note, nil
	}
	return plus - minus, (plus - minus) / (plus + minus) * 100, note, nil
}

// scoreVIDYA gives the trend side a base of 50 plus a quarter of the volume delta since the flip.
func scoreVIDYA(_ Config, s *series) (float64, float64, string, error) {
	v := s.om.VIDYA
	if v == nil {
		return 0, 0, "", missing("vidya")
	}
	strength := 50 + math.Abs(v.DeltaPct)/4
	switch v.Trend {
	case model.DirectionBull:
		return v.DeltaPct, strength, fmt.Sprintf("uptrend, delta %.0f%%", v.DeltaPct), nil
	case model.DirectionBear:
		return v.DeltaPct, -strength, fmt.Sprintf("downtrend, delta %.0f%%", v.DeltaPct), nil
	}
	return 0, 0, "no trend", nil
}

// scoreVWAP measures price distance from VWAP; 1% above saturates at +50.
func scoreVWAP(_ Config, s *series) (float64, float64, string, error) {
	vwap := calculator.Last(s.om.VWAP)
	if math.IsNaN(vwap) {
		return 0, 0, "", missing("vwap")
	}
	if vwap == 0 {
		return 0, 0, "", degenerate("vwap is zero")
	}
	dist := (s.last - vwap) / vwap * 100
	return vwap, dist * 50, fmt.Sprintf("VWAP=%.2f (%+.2f%%)", vwap, dist), nil
}

func scoreURSI(c Config, s *series) (float64, float64, string, error) {
	res, err := indicator.CalculateURSI(s.bars, c.URSI)
	if err != nil {
		return 0, 0, "", err
	}
	if math.IsNaN(res.Last) {
		return 0, 0, "", missing("ursi")
	}
	return res.Last, (res.Last - 50) * 2, fmt.Sprintf("URSI=%.1f %s", res.Last, res.Zone), nil
}

// breadthScorer weights constituent changes and adds net breadth: score = avg%*25 + net*50.
func breadthScorer(pick func(model.StockChange) float64) scorer {
	return func(_ Config, s *series) (float64, float64, string, error) {
		if len(s.breadth) == 0 {
			return 0, 0, "", missing("breadth")
		}
		var sum, weight, net float64
		for _, st := range s.breadth {
			pct := pick(st)
			sum += pct * st.Weight
			weight += st.Weight
			net += sign(pct)
		}
		if weight <= 0 {
			return 0, 0, "", degenerate("breadth weights sum to zero")
		}
		avg := sum / weight
		net /= float64(len(s.breadth))
		return avg, avg*25 + net*50, fmt.Sprintf("avg %+.2f%%, net %+.0f%%", avg, net*100), nil
	}
}

func sign(v float64) float64 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}
