package indicator

import (
	"errors"
	"testing"

	"IndexSentinel/internal/model"
)

func oneMinuteLevel(bars []model.OHLCV, length int) model.HTFLevel {
	levels, err := CalculateMultiTimeframe(bars, []HTFConfig{{Timeframe: "1T", PivotLength: length}})
	if err != nil {
		panic(err)
	}
	return levels[0]
}

func TestHTF_FlatSeriesHasNoPivots(t *testing.T) {
	levels, err := CalculateMultiTimeframe(flatSeries(200, 100, 1000), DefaultHTFConfigs())
	if err != nil {
		t.Fatalf("CalculateMultiTimeframe: %v", err)
	}
	if len(levels) != len(DefaultHTFConfigs()) {
		t.Fatalf("expected one level per config, got %d", len(levels))
	}
	for _, l := range levels {
		if l.PivotHigh != nil || l.PivotLow != nil {
			t.Errorf("%s: expected no pivots on a flat series, got %+v / %+v", l.Timeframe, l.PivotHigh, l.PivotLow)
		}
	}
}

func TestHTF_TentPivotConfirmedAfterLengthBars(t *testing.T) {
	bars := tentSeries(100)

	if l := oneMinuteLevel(bars[:65], 15); l.PivotHigh != nil {
		t.Errorf("pivot must not be reported before bar 65 exists, got %+v", l.PivotHigh)
	}
	l := oneMinuteLevel(bars[:66], 15)
	if l.PivotHigh == nil {
		t.Fatal("expected pivot high once bar 65 exists")
	}
	if l.PivotHigh.Index != 50 || l.PivotHigh.Price != 120 {
		t.Errorf("expected pivot at bar 50 = 120, got %d = %.2f", l.PivotHigh.Index, l.PivotHigh.Price)
	}
	if l.PivotLow != nil {
		t.Errorf("flat lows are not pivots, got %+v", l.PivotLow)
	}
}

// A confirmed pivot keeps its value as more bars are appended.
func TestHTF_PivotDoesNotRepaint(t *testing.T) {
	bars := tentSeries(120)
	first := oneMinuteLevel(bars[:66], 15).PivotHigh
	for n := 67; n <= len(bars); n++ {
		got := oneMinuteLevel(bars[:n], 15).PivotHigh
		if got == nil || got.Index != first.Index || got.Price != first.Price || !got.Time.Equal(first.Time) {
			t.Fatalf("pivot changed at n=%d: %+v vs %+v", n, got, first)
		}
	}
}

func TestPivotHighs_StrictInequality(t *testing.T) {
	values := []float64{1, 2, 3, 3, 2, 1, 0, 1, 5, 1, 0}
	got := PivotHighs(values, 2)
	if len(got) != 1 || got[0] != 8 {
		t.Errorf("expected only the strict peak at 8, got %v", got)
	}
	if got := PivotLows(values, 2); len(got) != 1 || got[0] != 6 {
		t.Errorf("expected trough at 6, got %v", got)
	}
}

func TestHTF_InvalidConfig(t *testing.T) {
	for _, cfg := range []HTFConfig{{Timeframe: "7X", PivotLength: 5}, {Timeframe: "5T", PivotLength: 0}} {
		_, err := CalculateMultiTimeframe(tentSeries(80), []HTFConfig{cfg})
		var ce *model.ConfigError
		if !errors.As(err, &ce) {
			t.Errorf("%+v: expected ConfigError, got %v", cfg, err)
		}
	}
}
