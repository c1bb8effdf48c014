package signal

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"IndexSentinel/internal/market"
	"IndexSentinel/internal/model"
)

// Level is one support or resistance price a generator can trade off.
type Level struct {
	Price     float64
	Kind      model.ZoneKind
	Source    string
	Timeframe string
}

// rule is the shared proximity rule of every generator.
type rule struct {
	threshold  decimal.Decimal
	rewardRisk decimal.Decimal
	signalType string
	now        func() time.Time
}

// check scans levels most recent first and returns the first that qualifies.
// BULLISH needs 0 <= spot-support <= threshold; BEARISH needs 0 <= resistance-spot <= threshold.
func (r rule) check(spot float64, sentiment model.BiasLabel, levels []Level, index string) *model.TradingSignal {
	var want model.ZoneKind
	switch sentiment {
	case model.Bullish:
		want = model.ZoneSupport
	case model.Bearish:
		want = model.ZoneResistance
	default:
		return nil
	}
	price := decimal.NewFromFloat(spot)
	for i := len(levels) - 1; i >= 0; i-- {
		lv := levels[i]
		if lv.Kind != want || lv.Price <= 0 {
			continue
		}
		level := decimal.NewFromFloat(lv.Price)
		dist := price.Sub(level)
		if want == model.ZoneResistance {
			dist = level.Sub(price)
		}
		if dist.IsNegative() || dist.GreaterThan(r.threshold) {
			continue
		}
		return r.build(price, level, dist, lv, sentiment, index)
	}
	return nil
}

func (r rule) build(entry, level, dist decimal.Decimal, lv Level, sentiment model.BiasLabel, index string) *model.TradingSignal {
	var stop, target decimal.Decimal
	side := model.Call
	if lv.Kind == model.ZoneSupport {
		stop = level.Sub(r.threshold)
		target = entry.Add(entry.Sub(stop).Mul(r.rewardRisk))
	} else {
		side = model.Put
		stop = level.Add(r.threshold)
		target = entry.Sub(stop.Sub(entry).Mul(r.rewardRisk))
	}

	sig := &model.TradingSignal{
		ID:              uuid.NewString(),
		Index:           index,
		Direction:       side,
		SignalType:      r.signalType,
		EntryPrice:      round2(entry),
		StopLoss:        round2(stop),
		Target:          round2(target),
		RiskReward:      r.rewardRisk.InexactFloat64(),
		SourceLevel:     round2(level),
		Source:          lv.Source,
		Timeframe:       lv.Timeframe,
		Distance:        round2(dist),
		MarketSentiment: sentiment,
		OptionType:      market.OptionType(side),
		Timestamp:       r.now(),
		Status:          model.SignalActive,
	}
	if inst, err := market.Lookup(index); err == nil {
		sig.Strike = inst.ATMStrike(entry.InexactFloat64())
	}
	return sig
}

func round2(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}
