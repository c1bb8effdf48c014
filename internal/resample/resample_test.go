package resample

import (
	"errors"
	"math"
	"testing"
	"time"

	"IndexSentinel/internal/model"
)

var ist = time.FixedZone("IST", 5*3600+1800)

func makeBar(ts string, open, high, low, close, volume float64) model.OHLCV {
	t, err := time.ParseInLocation("2006-01-02T15:04", ts, ist)
	if err != nil {
		panic(err)
	}
	return model.OHLCV{Time: t, Open: open, High: high, Low: low, Close: close, Volume: volume}
}

func TestParseTimeframe(t *testing.T) {
	tests := []struct {
		in    string
		label string
		every time.Duration
	}{
		{"5T", "5T", 5 * time.Minute},
		{"15min", "15T", 15 * time.Minute},
		{"1H", "1H", time.Hour},
		{"240", "4H", 4 * time.Hour},
		{"720", "12H", 12 * time.Hour},
		{"3", "3T", 3 * time.Minute},
		{"D", "D", 24 * time.Hour},
		{"w", "W", 7 * 24 * time.Hour},
	}
	for _, tt := range tests {
		tf, err := ParseTimeframe(tt.in)
		if err != nil {
			t.Fatalf("ParseTimeframe(%q): %v", tt.in, err)
		}
		if tf.Label != tt.label || tf.Every != tt.every {
			t.Errorf("ParseTimeframe(%q) = %s/%v, expected %s/%v", tt.in, tf.Label, tf.Every, tt.label, tt.every)
		}
	}
}

func TestParseTimeframe_Invalid(t *testing.T) {
	for _, in := range []string{"", "0T", "-5T", "abc", "48H"} {
		_, err := ParseTimeframe(in)
		var ce *model.ConfigError
		if !errors.As(err, &ce) {
			t.Errorf("ParseTimeframe(%q): expected ConfigError, got %v", in, err)
		}
	}
}

func TestFloor(t *testing.T) {
	ts := time.Date(2025, 1, 15, 10, 7, 30, 0, ist) // Wednesday
	tests := []struct {
		tf   string
		want time.Time
	}{
		{"5T", time.Date(2025, 1, 15, 10, 5, 0, 0, ist)},
		{"15T", time.Date(2025, 1, 15, 10, 0, 0, 0, ist)},
		{"4H", time.Date(2025, 1, 15, 8, 0, 0, 0, ist)},
		{"D", time.Date(2025, 1, 15, 0, 0, 0, 0, ist)},
		{"W", time.Date(2025, 1, 13, 0, 0, 0, 0, ist)},
	}
	for _, tt := range tests {
		got := MustParse(tt.tf).Floor(ts)
		if !got.Equal(tt.want) {
			t.Errorf("%s floor: expected %v, got %v", tt.tf, tt.want, got)
		}
	}
}

func TestResample_5Min(t *testing.T) {
	bars := []model.OHLCV{
		makeBar("2025-01-10T09:30", 100, 102, 99, 101, 1000),
		makeBar("2025-01-10T09:31", 101, 103, 100, 102, 1100),
		makeBar("2025-01-10T09:32", 102, 105, 101, 104, 1200),
		makeBar("2025-01-10T09:33", 104, 104, 98, 99, 900),
		makeBar("2025-01-10T09:34", 99, 101, 97, 100, 800),
		makeBar("2025-01-10T09:35", 100, 100, 99, 99.5, 500),
	}
	out := Resample(bars, MustParse("5T"))
	if len(out) != 2 {
		t.Fatalf("expected 2 bars (trailing bucket kept), got %d", len(out))
	}
	b := out[0]
	if b.Open != 100 || b.High != 105 || b.Low != 97 || b.Close != 100 || b.Volume != 5000 {
		t.Errorf("unexpected aggregate %+v", b)
	}
	if !b.Time.Equal(bars[0].Time) {
		t.Errorf("expected bucket start %v, got %v", bars[0].Time, b.Time)
	}
	if out[1].Volume != 500 {
		t.Errorf("expected trailing bucket volume 500, got %.0f", out[1].Volume)
	}
}

func TestResample_SkipsGaps(t *testing.T) {
	bars := []model.OHLCV{
		makeBar("2025-01-10T09:30", 100, 101, 99, 100, 1),
		makeBar("2025-01-10T10:30", 100, 101, 99, 100, 1),
	}
	if out := Resample(bars, MustParse("15T")); len(out) != 2 {
		t.Errorf("empty buckets must not be emitted, got %d bars", len(out))
	}
}

// Coarse buckets conserve volume and carry the extremes of their constituents.
func TestResample_PreservesVolumeAndExtremes(t *testing.T) {
	var bars []model.OHLCV
	start := time.Date(2025, 1, 10, 9, 15, 0, 0, ist)
	for i := 0; i < 375; i++ {
		p := 100 + 5*math.Sin(float64(i)/7)
		bars = append(bars, model.OHLCV{
			Time: start.Add(time.Duration(i) * time.Minute),
			Open: p, High: p + 1 + float64(i%3), Low: p - 1 - float64(i%5), Close: p + 0.2,
			Volume: float64(100 + i%17),
		})
	}
	for _, label := range []string{"3T", "10T", "15T", "1H", "D"} {
		tf := MustParse(label)
		groups := Buckets(bars, tf)
		out := Resample(bars, tf)
		if len(groups) != len(out) {
			t.Fatalf("%s: groups/bars mismatch", label)
		}
		for gi, g := range groups {
			var vol float64
			hi, lo := math.Inf(-1), math.Inf(1)
			for _, b := range g.Bars(bars) {
				vol += b.Volume
				hi = math.Max(hi, b.High)
				lo = math.Min(lo, b.Low)
			}
			if out[gi].Volume != vol || out[gi].High != hi || out[gi].Low != lo {
				t.Errorf("%s bucket %d: got %+v, expected vol=%.0f high=%.2f low=%.2f", label, gi, out[gi], vol, hi, lo)
			}
		}
	}
}

func TestResampleLabel_Invalid(t *testing.T) {
	if _, err := ResampleLabel(nil, "bogus"); err == nil {
		t.Error("expected error")
	}
}
