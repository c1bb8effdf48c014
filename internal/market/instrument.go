package market

import (
	"fmt"
	"math"
	"strings"

	"IndexSentinel/internal/model"
)

// Instrument is a tradable index with its option contract metadata.
type Instrument struct {
	Name           string
	Symbol         string
	LotSize        int
	StrikeInterval float64
}

var instruments = map[string]Instrument{
	"NIFTY":  {Name: "NIFTY", Symbol: "^NSEI", LotSize: 75, StrikeInterval: 50},
	"SENSEX": {Name: "SENSEX", Symbol: "^BSESN", LotSize: 30, StrikeInterval: 100},
}

// Lookup finds an instrument by name, case-insensitively.
func Lookup(name string) (Instrument, error) {
	inst, ok := instruments[strings.ToUpper(strings.TrimSpace(name))]
	if !ok {
		return Instrument{}, fmt.Errorf("unknown instrument %q", name)
	}
	return inst, nil
}

// Names lists the supported instruments in a stable order.
func Names() []string { return []string{"NIFTY", "SENSEX"} }

// ATMStrike rounds spot to the nearest strike.
func (i Instrument) ATMStrike(spot float64) float64 {
	if i.StrikeInterval <= 0 {
		return spot
	}
	return math.Round(spot/i.StrikeInterval) * i.StrikeInterval
}

// OptionType maps a signal side to the exchange option code.
func OptionType(side model.OptionSide) string {
	if side == model.Put {
		return "PE"
	}
	return "CE"
}
