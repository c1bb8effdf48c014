package notifier

import (
	"fmt"
	"html"
	"math"
	"strings"
	"time"

	"IndexSentinel/internal/indicator"
	"IndexSentinel/internal/market"
	"IndexSentinel/internal/model"
)

const stamp = "2006-01-02 15:04 IST"

// FormatVolume renders a volume in Indian units: crore, lakh and thousand.
func FormatVolume(v float64) string {
	abs := math.Abs(v)
	switch {
	case abs >= 1e7:
		return fmt.Sprintf("%.2fCr", v/1e7)
	case abs >= 1e5:
		return fmt.Sprintf("%.2fL", v/1e5)
	case abs >= 1e3:
		return fmt.Sprintf("%.2fK", v/1e3)
	}
	return fmt.Sprintf("%.0f", v)
}

func biasIcon(b model.BiasLabel) string {
	switch b {
	case model.Bullish:
		return "🟢"
	case model.Bearish:
		return "🔴"
	}
	return "⚪"
}

// FormatBias formats an overall verdict with its per-indicator breakdown.
func FormatBias(index string, spot float64, rep *model.BiasReport, at time.Time) string {
	var b strings.Builder
	o := rep.Overall
	b.WriteString(fmt.Sprintf("📊 <b>%s Bias</b> | %s\n\n", html.EscapeString(index), at.In(market.IST).Format(stamp)))
	b.WriteString(fmt.Sprintf("Spot: %.2f\n", spot))
	b.WriteString(fmt.Sprintf("%s <b>%s</b> score %+.1f, confidence %.0f%%\n", biasIcon(o.Bias), o.Bias, o.Score, o.Confidence))
	b.WriteString(fmt.Sprintf("Mode: %s", o.Mode))
	if o.Divergence != "" {
		b.WriteString(fmt.Sprintf(" (%s divergence)", o.Divergence))
	}
	if o.Condition != "" {
		b.WriteString(fmt.Sprintf(" | %s", o.Condition))
	}
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("Bull %d / Bear %d / Neutral %d\n\n", o.Counts.Bullish, o.Counts.Bearish, o.Counts.Neutral))

	b.WriteString("📈 <b>Indicators:</b>\n")
	for _, r := range rep.PerIndicator {
		if r.Insufficient {
			b.WriteString(fmt.Sprintf("  %s %s: n/a\n", biasIcon(r.Label), html.EscapeString(r.Name)))
			continue
		}
		line := fmt.Sprintf("  %s %s: %+.0f", biasIcon(r.Label), html.EscapeString(r.Name), r.Score)
		if r.Note != "" {
			line += " (" + html.EscapeString(r.Note) + ")"
		}
		b.WriteString(line + "\n")
	}
	return b.String()
}

// FormatSignal formats a trading signal with its option leg.
func FormatSignal(sig *model.TradingSignal) string {
	var b strings.Builder
	icon := "🚀"
	if sig.Direction == model.Put {
		icon = "🔻"
	}
	b.WriteString(fmt.Sprintf("%s <b>%s %s</b> | %s\n\n", icon, html.EscapeString(sig.Index), sig.Direction, html.EscapeString(sig.SignalType)))
	if sig.Strike > 0 {
		b.WriteString(fmt.Sprintf("Option: %.0f %s\n", sig.Strike, sig.OptionType))
	}
	b.WriteString(fmt.Sprintf("Entry: %.2f\n", sig.EntryPrice))
	b.WriteString(fmt.Sprintf("Stop: %.2f | Target: %.2f\n", sig.StopLoss, sig.Target))
	b.WriteString(fmt.Sprintf("R:R 1:%.2f\n", sig.RiskReward))
	source := html.EscapeString(sig.Source)
	if sig.Timeframe != "" {
		source += " " + sig.Timeframe
	}
	b.WriteString(fmt.Sprintf("Level: %.2f (%s), %.2f pts away\n", sig.SourceLevel, source, sig.Distance))
	b.WriteString(fmt.Sprintf("Sentiment: %s\n", sig.MarketSentiment))
	b.WriteString(fmt.Sprintf("Time: %s\n", sig.Timestamp.In(market.IST).Format(stamp)))
	return b.String()
}

// FormatSignals lists active signals, newest last.
func FormatSignals(active []model.TradingSignal) string {
	if len(active) == 0 {
		return "📭 No active signals"
	}
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📋 <b>Active signals</b> (%d)\n\n", len(active)))
	for _, s := range active {
		b.WriteString(fmt.Sprintf("• %s %s @ %.2f SL %.2f TG %.2f [%s] %s\n",
			html.EscapeString(s.Index), s.Direction, s.EntryPrice, s.StopLoss, s.Target,
			html.EscapeString(s.SignalType), s.Timestamp.In(market.IST).Format("15:04")))
	}
	return b.String()
}

// FormatAlert formats a proximity alert.
func FormatAlert(a model.ProximityAlert) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("⚠️ <b>%s near %s level</b>\n\n", html.EscapeString(a.Symbol), a.Type))
	level := html.EscapeString(a.LevelType)
	if a.Timeframe != "" {
		level += " " + a.Timeframe
	}
	b.WriteString(fmt.Sprintf("%s: %.2f\n", level, a.Level))
	b.WriteString(fmt.Sprintf("Price: %.2f (%.2f pts)\n", a.Price, a.Distance))
	if a.Volume > 0 {
		b.WriteString(fmt.Sprintf("Volume: %s\n", FormatVolume(a.Volume)))
	}
	return b.String()
}

// FormatTrap formats a failed breakout and the side it favours.
func FormatTrap(index string, t *indicator.Trap) string {
	verb := "above"
	if t.Kind == indicator.BearTrap {
		verb = "below"
	}
	return fmt.Sprintf("🪤 <b>%s %s</b>: rejected %s %.2f (extreme %.2f), favours %s\n",
		html.EscapeString(index), t.Kind, verb, t.Level, t.Extreme, t.Direction)
}

// FormatLevels lists active order blocks, HTF pivots and zone strength.
func FormatLevels(index string, spot float64, blocks []model.OrderBlock, htf []model.HTFLevel, strength []model.ZoneStrength) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("🎯 <b>%s Levels</b> | Spot %.2f\n\n", html.EscapeString(index), spot))

	b.WriteString("<b>Order blocks:</b>\n")
	if len(blocks) == 0 {
		b.WriteString("  none\n")
	}
	for _, ob := range blocks {
		b.WriteString(fmt.Sprintf("  %s %.2f - %.2f (vol %s)\n", ob.Direction, ob.Lower, ob.Upper, FormatVolume(ob.Volume)))
	}

	b.WriteString("<b>HTF pivots:</b>\n")
	for _, l := range htf {
		hi, lo := "-", "-"
		if p, ok := l.Resistance(); ok {
			hi = fmt.Sprintf("%.2f", p)
		}
		if p, ok := l.Support(); ok {
			lo = fmt.Sprintf("%.2f", p)
		}
		b.WriteString(fmt.Sprintf("  %s R %s S %s\n", l.Timeframe, hi, lo))
	}

	if len(strength) > 0 {
		b.WriteString("<b>Zone strength:</b>\n")
		for _, s := range strength {
			b.WriteString(fmt.Sprintf("  %s %.2f - %.2f: %.0f %s (%d tests, %d held)\n",
				html.EscapeString(s.Zone.Source), s.Zone.Lower, s.Zone.Upper, s.Score, s.Trend, s.TimesTested, s.Holds))
		}
	}
	return b.String()
}

// IndexStatus is one index line of the status report.
type IndexStatus struct {
	Index   string
	Spot    float64
	Bias    model.BiasLabel
	Score   float64
	Updated time.Time
}

// Status summarises the running service.
type Status struct {
	Time          time.Time
	Phase         market.Phase
	Source        string
	Indices       []IndexStatus
	ActiveSignals int
	SignalsToday  int
	TrackedAlerts int
}

// FormatStatus formats the service status.
func FormatStatus(s Status) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📦 <b>IndexSentinel status</b> | %s\n\n", s.Time.In(market.IST).Format(stamp)))
	b.WriteString(fmt.Sprintf("Session: %s\n", s.Phase))
	b.WriteString(fmt.Sprintf("Data source: %s\n", html.EscapeString(s.Source)))
	for _, ix := range s.Indices {
		if ix.Updated.IsZero() {
			b.WriteString(fmt.Sprintf("%s: no data yet\n", ix.Index))
			continue
		}
		b.WriteString(fmt.Sprintf("%s %s: %.2f %s %+.1f (%s)\n", biasIcon(ix.Bias), ix.Index, ix.Spot, ix.Bias, ix.Score,
			ix.Updated.In(market.IST).Format("15:04:05")))
	}
	b.WriteString(fmt.Sprintf("Active signals: %d | today: %d\n", s.ActiveSignals, s.SignalsToday))
	b.WriteString(fmt.Sprintf("Alert keys on cooldown: %d\n", s.TrackedAlerts))
	return b.String()
}
