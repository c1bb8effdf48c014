package notifier

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"IndexSentinel/internal/indicator"
	"IndexSentinel/internal/model"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func testNotifier(url string) *TelegramNotifier {
	n := NewTelegramNotifier("TOKEN", "42", "", quietLogger())
	n.BaseURL = url
	n.Limiter = nil
	n.Backoff = time.Millisecond
	n.PollTimeout = time.Second
	return n
}

func TestFormatVolume(t *testing.T) {
	tests := []struct {
		v    float64
		want string
	}{
		{950, "950"},
		{1500, "1.50K"},
		{250000, "2.50L"},
		{32500000, "3.25Cr"},
		{-150000, "-1.50L"},
	}
	for _, tt := range tests {
		if got := FormatVolume(tt.v); got != tt.want {
			t.Errorf("FormatVolume(%.0f): expected %s, got %s", tt.v, tt.want, got)
		}
	}
}

func TestFormatSignal(t *testing.T) {
	sig := &model.TradingSignal{
		Index: "NIFTY", Direction: model.Call, SignalType: "HTF_SR",
		EntryPrice: 100, StopLoss: 87, Target: 119.5, RiskReward: 1.5,
		SourceLevel: 95, Source: "HTF 15T pivot low", Timeframe: "15T", Distance: 5,
		MarketSentiment: model.Bullish, Strike: 100, OptionType: "CE",
		Timestamp: time.Date(2025, 1, 15, 4, 30, 0, 0, time.UTC),
	}
	msg := FormatSignal(sig)
	for _, want := range []string{"NIFTY CALL", "100 CE", "Entry: 100.00", "Stop: 87.00 | Target: 119.50", "R:R 1:1.50", "10:00 IST"} {
		if !strings.Contains(msg, want) {
			t.Errorf("expected %q in message:\n%s", want, msg)
		}
	}
}

func TestFormatBias_EscapesNotes(t *testing.T) {
	rep := &model.BiasReport{
		PerIndicator: []model.BiasResult{
			{Name: "RSI", Label: model.Bullish, Score: 40, Note: "RSI<70"},
			{Name: "MFI", Label: model.Neutral, Insufficient: true},
		},
		Overall: model.OverallBias{Bias: model.Bullish, Score: 35, Confidence: 35, Mode: model.ModeNormal},
	}
	msg := FormatBias("NIFTY", 23500, rep, time.Now())
	if !strings.Contains(msg, "RSI&lt;70") {
		t.Errorf("expected escaped note, got:\n%s", msg)
	}
	if !strings.Contains(msg, "MFI: n/a") {
		t.Errorf("expected insufficient indicator marked n/a, got:\n%s", msg)
	}
}

func TestFormatTrap(t *testing.T) {
	got := FormatTrap("NIFTY", &indicator.Trap{Kind: indicator.BearTrap, Level: 23400, Extreme: 23380.5, Direction: model.DirectionBull})
	for _, want := range []string{"NIFTY BEAR_TRAP", "rejected below 23400.00", "extreme 23380.50", "favours BULL"} {
		if !strings.Contains(got, want) {
			t.Errorf("expected %q in %q", want, got)
		}
	}
}

func TestSend(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/botTOKEN/sendMessage" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&got)
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	if err := testNotifier(srv.URL).Send(context.Background(), "<b>hi</b>"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if got["chat_id"] != "42" || got["text"] != "<b>hi</b>" || got["parse_mode"] != "HTML" {
		t.Errorf("unexpected payload %v", got)
	}
}

func TestSendWithRetry(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "busy", http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	n := testNotifier(srv.URL)
	if err := n.SendWithRetry(context.Background(), "x", 3); err != nil {
		t.Fatalf("SendWithRetry: %v", err)
	}
	if calls.Load() != 3 {
		t.Errorf("expected 3 attempts, got %d", calls.Load())
	}

	calls.Store(-10)
	err := n.SendWithRetry(context.Background(), "x", 1)
	if err == nil || !strings.Contains(err.Error(), "all 2 retries exhausted") {
		t.Errorf("expected exhausted error, got %v", err)
	}
}

func TestStartPolling(t *testing.T) {
	replies := make(chan string, 4)
	var polls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/botTOKEN/getUpdates":
			if polls.Add(1) == 1 {
				w.Write([]byte(`{"ok":true,"result":[
					{"update_id":7,"message":{"text":" /status ","chat":{"id":42}}},
					{"update_id":8,"message":{"text":"/bias","chat":{"id":99}}}]}`))
				return
			}
			if r.URL.Query().Get("offset") != "9" {
				t.Errorf("expected offset 9, got %s", r.URL.Query().Get("offset"))
			}
			select {
			case <-r.Context().Done():
			case <-time.After(20 * time.Millisecond):
			}
			w.Write([]byte(`{"ok":true,"result":[]}`))
		case "/botTOKEN/sendMessage":
			var p map[string]any
			json.NewDecoder(r.Body).Decode(&p)
			replies <- p["text"].(string)
			w.Write([]byte(`{"ok":true}`))
		}
	}))
	defer srv.Close()

	var commands []string
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		testNotifier(srv.URL).StartPolling(ctx, func(cmd string) string {
			commands = append(commands, cmd)
			return "reply to " + cmd
		})
	}()

	select {
	case r := <-replies:
		if r != "reply to /status" {
			t.Errorf("expected reply to /status, got %q", r)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for reply")
	}
	cancel()
	<-done
	if len(commands) != 1 {
		t.Errorf("expected only the configured chat's command, got %v", commands)
	}
}
