package signal

import (
	"errors"
	"testing"
	"time"

	"IndexSentinel/internal/indicator"
	"IndexSentinel/internal/model"
)

var fixed = time.Date(2025, 1, 15, 10, 0, 0, 0, time.FixedZone("IST", 5*3600+1800))

func clock(t *time.Time) func() time.Time { return func() time.Time { return *t } }

func level(tf string, high, low float64) model.HTFLevel {
	l := model.HTFLevel{Timeframe: tf}
	if high > 0 {
		l.PivotHigh = &model.Pivot{Price: high}
	}
	if low > 0 {
		l.PivotLow = &model.Pivot{Price: low}
	}
	return l
}

func newHTF(t *testing.T) *HTFGenerator {
	t.Helper()
	g, err := NewHTFGenerator(DefaultHTFConfig(), clock(&fixed))
	if err != nil {
		t.Fatalf("NewHTFGenerator: %v", err)
	}
	return g
}

func TestHTF_BullishSetup(t *testing.T) {
	g := newHTF(t)
	sig := g.CheckForSignal(100, model.Bullish, []model.HTFLevel{level("5T", 0, 95)}, "NIFTY")
	if sig == nil {
		t.Fatal("expected a signal")
	}
	if sig.Direction != model.Call || sig.OptionType != "CE" {
		t.Errorf("expected CALL/CE, got %s/%s", sig.Direction, sig.OptionType)
	}
	if sig.EntryPrice != 100 || sig.StopLoss != 87 || sig.Target != 119.5 {
		t.Errorf("expected 100/87/119.5, got %.2f/%.2f/%.2f", sig.EntryPrice, sig.StopLoss, sig.Target)
	}
	if sig.Distance != 5 || sig.SourceLevel != 95 || sig.Timeframe != "5T" {
		t.Errorf("unexpected source fields: %+v", sig)
	}
	if sig.Strike != 100 || sig.ID == "" || !sig.Timestamp.Equal(fixed) || sig.Status != model.SignalActive {
		t.Errorf("unexpected metadata: %+v", sig)
	}
}

func TestHTF_BearishSetup(t *testing.T) {
	g := newHTF(t)
	sig := g.CheckForSignal(100, model.Bearish, []model.HTFLevel{level("10T", 105, 0)}, "SENSEX")
	if sig == nil {
		t.Fatal("expected a signal")
	}
	if sig.Direction != model.Put || sig.OptionType != "PE" {
		t.Errorf("expected PUT/PE, got %s/%s", sig.Direction, sig.OptionType)
	}
	if sig.StopLoss != 113 || sig.Target != 80.5 {
		t.Errorf("expected stop 113 target 80.5, got %.2f/%.2f", sig.StopLoss, sig.Target)
	}
}

func TestHTF_ProximityBoundaries(t *testing.T) {
	g := newHTF(t)
	levels := []model.HTFLevel{level("15T", 0, 95)}
	tests := []struct {
		spot float64
		want bool
	}{
		{95, true},
		{103, true},
		{94.99, false},
		{103.01, false},
	}
	for _, tt := range tests {
		got := g.CheckForSignal(tt.spot, model.Bullish, levels, "NIFTY") != nil
		if got != tt.want {
			t.Errorf("spot %.2f: expected fire=%v, got %v", tt.spot, tt.want, got)
		}
	}
}

func TestHTF_FiltersAndOrder(t *testing.T) {
	g := newHTF(t)
	if sig := g.CheckForSignal(100, model.Neutral, []model.HTFLevel{level("5T", 0, 95)}, "NIFTY"); sig != nil {
		t.Error("neutral sentiment must not signal")
	}
	if sig := g.CheckForSignal(100, model.Bullish, []model.HTFLevel{level("4H", 0, 95)}, "NIFTY"); sig != nil {
		t.Error("unwatched timeframe must not signal")
	}
	if sig := g.CheckForSignal(100, model.Bullish, []model.HTFLevel{level("5T", 95, 0)}, "NIFTY"); sig != nil {
		t.Error("bullish sentiment must ignore resistance")
	}
	sig := g.CheckForSignal(100, model.Bullish, []model.HTFLevel{level("5T", 0, 96), level("15T", 0, 94)}, "NIFTY")
	if sig == nil || sig.Timeframe != "15T" {
		t.Errorf("expected the later 15T level to win, got %+v", sig)
	}
}

func TestVOB_Signals(t *testing.T) {
	g, err := NewVOBGenerator(DefaultVOBConfig(), clock(&fixed))
	if err != nil {
		t.Fatalf("NewVOBGenerator: %v", err)
	}
	vob := &indicator.VOBResult{
		Bullish: []model.OrderBlock{
			{CrossIndex: 10, Upper: 97, Mid: 95, Lower: 93, Direction: model.DirectionBull, State: model.StateActive},
			{CrossIndex: 20, Upper: 99, Mid: 98, Lower: 97, Direction: model.DirectionBull, State: model.StateInvalidated},
		},
		Bearish: []model.OrderBlock{
			{CrossIndex: 15, Upper: 110, Mid: 107, Lower: 104, Direction: model.DirectionBear, State: model.StateActive},
		},
	}
	sig := g.CheckForSignal(100, model.Bullish, vob, "NIFTY")
	if sig == nil || sig.SourceLevel != 97 || sig.StopLoss != 89 || sig.SignalType != "VOB" {
		t.Errorf("expected a VOB call off 97, got %+v", sig)
	}
	sig = g.CheckForSignal(100, model.Bearish, vob, "NIFTY")
	if sig == nil || sig.SourceLevel != 104 || sig.StopLoss != 112 {
		t.Errorf("expected a VOB put off 104, got %+v", sig)
	}
	if g.CheckForSignal(100, model.Bullish, nil, "NIFTY") != nil {
		t.Error("nil result must not signal")
	}
}

func TestValidator(t *testing.T) {
	v, err := NewValidator(DefaultValidatorConfig())
	if err != nil {
		t.Fatalf("NewValidator: %v", err)
	}
	good := &model.TradingSignal{Direction: model.Call, EntryPrice: 100, StopLoss: 87, Target: 119.5}
	tests := []struct {
		name string
		sig  *model.TradingSignal
		bias model.BiasLabel
		ok   bool
	}{
		{"accepted", good, model.Bullish, true},
		{"against bias", good, model.Bearish, false},
		{"poor reward", &model.TradingSignal{Direction: model.Call, EntryPrice: 100, StopLoss: 90, Target: 110}, model.Bullish, false},
		{"inverted put", &model.TradingSignal{Direction: model.Put, EntryPrice: 100, StopLoss: 90, Target: 115}, model.Bearish, false},
		{"zero risk", &model.TradingSignal{Direction: model.Call, EntryPrice: 100, StopLoss: 100, Target: 110}, model.Bullish, false},
		{"nil", nil, model.Bullish, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.sig, tt.bias)
			if tt.ok && err != nil {
				t.Errorf("expected acceptance, got %v", err)
			}
			if !tt.ok && !errors.Is(err, ErrRejected) {
				t.Errorf("expected ErrRejected, got %v", err)
			}
		})
	}
}

func TestAlerts_VOBAndCooldown(t *testing.T) {
	now := fixed
	m, err := NewAlertMonitor(DefaultAlertConfig(), nil, clock(&now))
	if err != nil {
		t.Fatalf("NewAlertMonitor: %v", err)
	}
	vob := &indicator.VOBResult{Bullish: []model.OrderBlock{
		{CrossIndex: 1, Upper: 105, Mid: 99, Lower: 93, Direction: model.DirectionBull, State: model.StateActive, Volume: 5000},
	}}

	alerts := m.CheckVOB("NIFTY", 101, vob)
	if len(alerts) != 2 {
		t.Fatalf("expected upper and mid alerts, got %d", len(alerts))
	}
	if alerts[0].LevelType != "Bull (upper)" || alerts[1].LevelType != "Bull (mid)" {
		t.Errorf("unexpected level types %q, %q", alerts[0].LevelType, alerts[1].LevelType)
	}
	if alerts[0].Distance != 4 || alerts[0].Volume != 5000 {
		t.Errorf("unexpected alert %+v", alerts[0])
	}

	now = now.Add(5 * time.Minute)
	if got := m.CheckVOB("NIFTY", 101, vob); len(got) != 0 {
		t.Errorf("expected cooldown to suppress, got %d", len(got))
	}
	now = now.Add(5 * time.Minute)
	if got := m.CheckVOB("NIFTY", 101, vob); len(got) != 2 {
		t.Errorf("expected realert after 10 minutes, got %d", len(got))
	}
	m.Book().Prune(now.Add(time.Second))
	if m.Book().Len() != 0 {
		t.Errorf("expected empty book after prune, got %d", m.Book().Len())
	}
}

func TestAlerts_HTF(t *testing.T) {
	m, err := NewAlertMonitor(DefaultAlertConfig(), nil, clock(&fixed))
	if err != nil {
		t.Fatalf("NewAlertMonitor: %v", err)
	}
	levels := []model.HTFLevel{
		level("5T", 103, 97),
		level("10T", 104, 90),
		level("15T", 110, 96),
	}
	alerts := m.CheckHTF("SENSEX", 100, levels)
	if len(alerts) != 2 {
		t.Fatalf("expected 2 alerts, got %+v", alerts)
	}
	if alerts[0].LevelType != "Resistance" || alerts[0].Timeframe != "10T" {
		t.Errorf("unexpected first alert %+v", alerts[0])
	}
	if alerts[1].LevelType != "Support" || alerts[1].Timeframe != "15T" || alerts[1].Distance != 4 {
		t.Errorf("unexpected second alert %+v", alerts[1])
	}
}

func TestConfigValidation(t *testing.T) {
	if _, err := NewHTFGenerator(HTFConfig{ProximityThreshold: -1, RewardRisk: 1.5}, nil); err == nil {
		t.Error("expected error for negative threshold")
	}
	if _, err := NewHTFGenerator(HTFConfig{ProximityThreshold: 8, RewardRisk: 1.5, Timeframes: []string{"bogus"}}, nil); err == nil {
		t.Error("expected error for bad timeframe")
	}
	if _, err := NewVOBGenerator(VOBConfig{ProximityThreshold: 8}, nil); err == nil {
		t.Error("expected error for zero reward/risk")
	}
	if _, err := NewAlertMonitor(AlertConfig{Cooldown: -time.Second}, nil, nil); err == nil {
		t.Error("expected error for negative cooldown")
	}
}
