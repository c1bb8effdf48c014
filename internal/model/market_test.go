package model

import (
	"errors"
	"testing"
	"time"
)

func TestValidateBars(t *testing.T) {
	base := time.Date(2025, 1, 10, 9, 15, 0, 0, time.UTC)
	good := OHLCV{Time: base, Open: 100, High: 102, Low: 99, Close: 101, Volume: 10}

	tests := []struct {
		name string
		bars []OHLCV
		ok   bool
	}{
		{"empty", nil, true},
		{"single", []OHLCV{good}, true},
		{"high below close", []OHLCV{{Time: base, Open: 100, High: 100.5, Low: 99, Close: 101}}, false},
		{"low above open", []OHLCV{{Time: base, Open: 100, High: 102, Low: 100.5, Close: 101}}, false},
		{"negative volume", []OHLCV{{Time: base, Open: 100, High: 102, Low: 99, Close: 101, Volume: -1}}, false},
		{"duplicate timestamp", []OHLCV{good, good}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateBars(tt.bars)
			if tt.ok && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tt.ok && !errors.Is(err, ErrMalformedSeries) {
				t.Fatalf("expected ErrMalformedSeries, got %v", err)
			}
		})
	}
}

func TestConfigErrorNamesParam(t *testing.T) {
	err := NewConfigError("footprint.bins", 0, "must be positive")
	var ce *ConfigError
	if !errors.As(err, &ce) {
		t.Fatalf("expected *ConfigError, got %T", err)
	}
	if ce.Param != "footprint.bins" {
		t.Errorf("expected param footprint.bins, got %q", ce.Param)
	}
}

func TestHTFLevelAccessors(t *testing.T) {
	l := HTFLevel{Timeframe: "5T", PivotLow: &Pivot{Price: 95}}
	if v, ok := l.Support(); !ok || v != 95 {
		t.Errorf("expected support 95, got %v %v", v, ok)
	}
	if _, ok := l.Resistance(); ok {
		t.Error("expected no resistance")
	}
	zero := HTFLevel{PivotHigh: &Pivot{Price: 0}}
	if _, ok := zero.Resistance(); ok {
		t.Error("zero price pivot must be skipped")
	}
}
