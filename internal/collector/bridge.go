package collector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"time"

	"IndexSentinel/internal/market"
	"IndexSentinel/internal/model"
	"IndexSentinel/internal/resample"
)

// BridgeFetcher implements Fetcher against a broker bridge REST API.
type BridgeFetcher struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
}

// NewBridgeFetcher creates a new fetcher with optional proxy support.
func NewBridgeFetcher(baseURL, apiKey, proxyURL string) *BridgeFetcher {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &BridgeFetcher{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Client: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
		},
	}
}

func (f *BridgeFetcher) Name() string { return "bridge" }

// bridgeBar is the expected JSON shape from the bridge API.
type bridgeBar struct {
	Timestamp int64   `json:"timestamp"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
}

// FetchBars asks for interval bars directly. When the bridge rejects a coarse
// interval it fetches one-minute bars and resamples them.
func (f *BridgeFetcher) FetchBars(ctx context.Context, symbol, interval string, count int) ([]model.OHLCV, error) {
	iv, every, err := ParseInterval(interval)
	if err != nil {
		return nil, err
	}
	v := url.Values{"symbol": {symbol}, "interval": {iv}, "limit": {fmt.Sprint(count)}}
	bars, err := f.fetchBars(ctx, f.BaseURL+"/api/v1/bars?"+v.Encode())
	if err == nil || iv == "1m" || errors.Is(err, context.Canceled) {
		return bars, err
	}

	// Fallback: aggregate one-minute bars
	factor := int(every / time.Minute)
	if iv == "1d" {
		factor = 375
	}
	minute, minuteErr := f.FetchBars(ctx, symbol, "1m", count*factor)
	if minuteErr != nil {
		return nil, fmt.Errorf("%s fetch failed: %w; 1m fallback also failed: %w", iv, err, minuteErr)
	}
	return trimBars(resample.Resample(minute, timeframe(iv)), count), nil
}

func (f *BridgeFetcher) FetchQuote(ctx context.Context, symbol string) (model.Quote, error) {
	endpoint := f.BaseURL + "/api/v1/quote?" + url.Values{"symbol": {symbol}}.Encode()
	resp, err := f.get(ctx, endpoint)
	if err != nil {
		return model.Quote{}, fmt.Errorf("fetch quote: %w", err)
	}
	defer resp.Body.Close()
	var result struct {
		Price     float64 `json:"price"`
		PrevClose float64 `json:"prev_close"`
		Timestamp int64   `json:"timestamp"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return model.Quote{}, fmt.Errorf("decode quote: %w", err)
	}
	if result.Price == 0 {
		return model.Quote{}, noData("bridge", symbol)
	}
	return model.Quote{
		Symbol:    symbol,
		Price:     result.Price,
		PrevClose: result.PrevClose,
		Time:      time.Unix(result.Timestamp, 0).In(market.IST),
	}, nil
}

func (f *BridgeFetcher) get(ctx context.Context, endpoint string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	if f.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+f.APIKey)
	}
	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		if resp.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("status 404: %w", model.ErrNoData)
		}
		return nil, fmt.Errorf("status %d, body: %s", resp.StatusCode, string(body))
	}
	return resp, nil
}

func (f *BridgeFetcher) fetchBars(ctx context.Context, endpoint string) ([]model.OHLCV, error) {
	resp, err := f.get(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("fetch bars: %w", err)
	}
	defer resp.Body.Close()
	var raw []bridgeBar
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode bars: %w", err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("fetch bars: %w", model.ErrNoData)
	}
	bars := make([]model.OHLCV, len(raw))
	for i, b := range raw {
		bars[i] = model.OHLCV{
			Time:   time.Unix(b.Timestamp, 0).In(market.IST),
			Open:   b.Open,
			High:   b.High,
			Low:    b.Low,
			Close:  b.Close,
			Volume: b.Volume,
		}
	}
	// Ensure chronological order
	sort.Slice(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })
	return bars, nil
}
