package collector

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"IndexSentinel/internal/market"
	"IndexSentinel/internal/model"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// 2025-01-15 09:15 IST
const sessionOpen = 1736912700

const chartJSON = `{"chart":{"result":[{"meta":{"regularMarketPrice":23105.5,"chartPreviousClose":23000,"regularMarketTime":1736912880},
"timestamp":[1736912700,1736912760,1736912820,1736912880],
"indicators":{"quote":[{"open":[23000,null,23050,23080],"high":[23060,null,23090,23110],"low":[22990,null,23040,23070],"close":[23050,null,23080,23100],"volume":[1000,null,1500,null]}]}}],"error":null}}`

func TestYahoo_FetchBars(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.String()
		fmt.Fprint(w, chartJSON)
	}))
	defer srv.Close()

	f := NewYahooFetcher("")
	f.BaseURL = srv.URL
	bars, err := f.FetchBars(context.Background(), "NIFTY", "1m", 10)
	if err != nil {
		t.Fatalf("FetchBars: %v", err)
	}
	if !strings.Contains(gotPath, "%5ENSEI") || !strings.Contains(gotPath, "interval=1m&range=1d") {
		t.Errorf("unexpected request %s", gotPath)
	}
	if len(bars) != 3 {
		t.Fatalf("expected null bar skipped, got %d bars", len(bars))
	}
	if bars[0].Time.Location() != market.IST || bars[0].Time.Hour() != 9 || bars[0].Time.Minute() != 15 {
		t.Errorf("expected 09:15 IST, got %s", bars[0].Time)
	}
	if bars[2].Volume != 0 {
		t.Errorf("expected null volume as 0, got %.0f", bars[2].Volume)
	}
	if err := model.ValidateBars(bars); err != nil {
		t.Errorf("expected valid bars: %v", err)
	}

	q, err := f.FetchQuote(context.Background(), "NIFTY")
	if err != nil {
		t.Fatalf("FetchQuote: %v", err)
	}
	if q.Price != 23105.5 || q.PrevClose != 23000 {
		t.Errorf("unexpected quote %+v", q)
	}
}

func TestYahoo_NoData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"chart":{"result":[],"error":null}}`)
	}))
	defer srv.Close()
	f := NewYahooFetcher("")
	f.BaseURL = srv.URL
	if _, err := f.FetchBars(context.Background(), "SENSEX", "5m", 10); !errors.Is(err, model.ErrNoData) {
		t.Errorf("expected ErrNoData, got %v", err)
	}
	if _, err := f.FetchBars(context.Background(), "SENSEX", "2m", 10); err == nil {
		t.Error("expected error for unsupported interval")
	}
}

func TestYahooRange(t *testing.T) {
	tests := []struct {
		interval string
		count    int
		want     string
	}{
		{"1m", 375, "1d"},
		{"1m", 376, "5d"},
		{"5m", 300, "5d"},
		{"15m", 2, "1d"},
		{"60m", 100, "1mo"},
		{"1d", 200, "1y"},
		{"1d", 600, "2y"},
	}
	for _, tt := range tests {
		if got := yahooRange(tt.interval, tt.count); got != tt.want {
			t.Errorf("yahooRange(%s, %d): expected %s, got %s", tt.interval, tt.count, tt.want, got)
		}
	}
}

func TestBridge_ResamplesOnFallback(t *testing.T) {
	var calls []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer secret" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		iv := r.URL.Query().Get("interval")
		calls = append(calls, iv)
		if iv != "1m" {
			http.Error(w, "unsupported", http.StatusBadRequest)
			return
		}
		var parts []string
		for i := 0; i < 10; i++ {
			c := 100.0 + float64(i)
			parts = append(parts, fmt.Sprintf(`{"timestamp":%d,"open":%.0f,"high":%.0f,"low":%.0f,"close":%.0f,"volume":10}`,
				sessionOpen+60*i, c, c+1, c-1, c))
		}
		fmt.Fprint(w, "["+strings.Join(parts, ",")+"]")
	}))
	defer srv.Close()

	f := NewBridgeFetcher(srv.URL, "secret", "")
	bars, err := f.FetchBars(context.Background(), "^NSEI", "5m", 2)
	if err != nil {
		t.Fatalf("FetchBars: %v", err)
	}
	if len(calls) != 2 || calls[0] != "5m" || calls[1] != "1m" {
		t.Errorf("expected 5m then 1m, got %v", calls)
	}
	if len(bars) != 2 {
		t.Fatalf("expected 2 five-minute bars, got %d", len(bars))
	}
	if bars[0].Open != 100 || bars[0].Close != 104 || bars[0].Volume != 50 || bars[1].High != 110 {
		t.Errorf("unexpected resampled bars %+v", bars)
	}
}

func TestCollector_Collect(t *testing.T) {
	end := time.Date(2025, 1, 15, 15, 30, 0, 0, market.IST)
	mock := &MockFetcher{
		Price: 23000,
		Seed:  1,
		End:   end,
		Quotes: map[string]model.Quote{
			"^NSEI":       {Price: 23010},
			"RELIANCE.NS": {Price: 1010, PrevClose: 1000},
		},
	}
	opts := DefaultOptions()
	opts.Constituents = []Constituent{{"RELIANCE.NS", 9.98}}
	opts.RatePerSec = 1000
	c, err := NewCollector(mock, opts, quietLogger())
	if err != nil {
		t.Fatalf("NewCollector: %v", err)
	}
	snap, err := c.Collect(context.Background(), "nifty")
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if snap.Index != "NIFTY" || len(snap.Bars) != 375 || snap.Spot != 23010 {
		t.Errorf("unexpected snapshot %s/%d/%.2f", snap.Index, len(snap.Bars), snap.Spot)
	}
	if !snap.Bars[len(snap.Bars)-1].Time.Equal(end.Add(-time.Minute)) {
		t.Errorf("expected last bar at 15:29, got %s", snap.Bars[len(snap.Bars)-1].Time)
	}
	if len(snap.Breadth) != 1 || math.Abs(snap.Breadth[0].DailyPct-1) > 1e-9 {
		t.Errorf("expected RELIANCE +1%%, got %+v", snap.Breadth)
	}
}

func TestCollector_Errors(t *testing.T) {
	opts := DefaultOptions()
	opts.Constituents = nil
	c, err := NewCollector(&MockFetcher{Err: model.ErrNoData}, opts, quietLogger())
	if err != nil {
		t.Fatalf("NewCollector: %v", err)
	}
	if _, err := c.Collect(context.Background(), "NIFTY"); !errors.Is(err, model.ErrNoData) {
		t.Errorf("expected ErrNoData, got %v", err)
	}
	if _, err := c.Collect(context.Background(), "BANKNIFTY"); err == nil {
		t.Error("expected error for unknown index")
	}

	bad := []model.OHLCV{{Time: time.Unix(sessionOpen, 0), Open: 10, High: 9, Low: 8, Close: 10}}
	c, _ = NewCollector(&MockFetcher{Bars: bad}, opts, quietLogger())
	if _, err := c.Collect(context.Background(), "NIFTY"); !errors.Is(err, model.ErrMalformedSeries) {
		t.Errorf("expected ErrMalformedSeries, got %v", err)
	}

	opts.Interval = "3m"
	if _, err := NewCollector(&MockFetcher{}, opts, nil); err == nil {
		t.Error("expected error for unsupported interval")
	}
}
