package collector

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"IndexSentinel/internal/market"
	"IndexSentinel/internal/model"
)

// MockFetcher returns controllable fixed data for development and testing.
type MockFetcher struct {
	Price  float64
	Seed   int64
	Bars   []model.OHLCV
	Quotes map[string]model.Quote
	Err    error
	// End is the close time of the last generated bar; zero means the last 15:30 IST close.
	End time.Time
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchBars(_ context.Context, _ string, interval string, count int) ([]model.OHLCV, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	if m.Bars != nil {
		return trimBars(m.Bars, count), nil
	}
	_, every, err := ParseInterval(interval)
	if err != nil {
		return nil, err
	}
	return generateMockBars(m.Price, count, every, m.end(), m.Seed), nil
}

func (m *MockFetcher) FetchQuote(_ context.Context, symbol string) (model.Quote, error) {
	if m.Err != nil {
		return model.Quote{}, m.Err
	}
	if q, ok := m.Quotes[symbol]; ok {
		return q, nil
	}
	return model.Quote{Symbol: symbol, Price: m.Price, PrevClose: m.Price, Time: m.end()}, nil
}

func (m *MockFetcher) end() time.Time {
	if !m.End.IsZero() {
		return m.End
	}
	now := time.Now().In(market.IST)
	closeAt := time.Date(now.Year(), now.Month(), now.Day(), 15, 30, 0, 0, market.IST)
	if now.Before(closeAt) {
		closeAt = closeAt.AddDate(0, 0, -1)
	}
	return closeAt
}

// generateMockBars is a seeded random walk ending at end.
func generateMockBars(basePrice float64, count int, every time.Duration, end time.Time, seed int64) []model.OHLCV {
	rng := rand.New(rand.NewSource(seed))
	bars := make([]model.OHLCV, count)
	p := basePrice
	for i := 0; i < count; i++ {
		o := p
		p *= 1 + (rng.Float64()-0.5)*0.002
		bars[i] = model.OHLCV{
			Time:   end.Add(-time.Duration(count-i) * every),
			Open:   o,
			High:   math.Max(o, p) * (1 + rng.Float64()*0.0005),
			Low:    math.Min(o, p) * (1 - rng.Float64()*0.0005),
			Close:  p,
			Volume: 50000 + rng.Float64()*100000,
		}
	}
	return bars
}

// Constituent is one breadth stock with its index weight in percent.
type Constituent struct {
	Symbol string  `yaml:"symbol"`
	Weight float64 `yaml:"weight"`
}

// DefaultConstituents are the NIFTY heavyweights.
func DefaultConstituents() []Constituent {
	return []Constituent{
		{"RELIANCE.NS", 9.98},
		{"BHARTIARTL.NS", 9.97},
		{"HDFCBANK.NS", 9.67},
		{"INFY.NS", 8.55},
		{"TCS.NS", 8.54},
		{"ICICIBANK.NS", 8.01},
		{"ITC.NS", 2.44},
		{"HINDUNILVR.NS", 1.98},
	}
}

// Options tunes a Collector.
type Options struct {
	Interval     string
	Bars         int
	Constituents []Constituent
	// RatePerSec and Burst throttle calls to the fetcher.
	RatePerSec float64
	Burst      int
}

// DefaultOptions fetches 375 one-minute bars at up to 5 calls a second.
func DefaultOptions() Options {
	return Options{Interval: "1m", Bars: 375, Constituents: DefaultConstituents(), RatePerSec: 5, Burst: 5}
}

// Collector turns fetcher output into validated market snapshots.
type Collector struct {
	Fetcher Fetcher
	opts    Options
	limiter *rate.Limiter
	logger  logrus.FieldLogger
	now     func() time.Time
}

// NewCollector creates a new Collector.
func NewCollector(fetcher Fetcher, opts Options, logger logrus.FieldLogger) (*Collector, error) {
	iv, _, err := ParseInterval(opts.Interval)
	if err != nil {
		return nil, err
	}
	opts.Interval = iv
	if opts.Bars <= 0 {
		return nil, model.NewConfigError("collector.bars", opts.Bars, "must be positive")
	}
	if opts.RatePerSec <= 0 {
		return nil, model.NewConfigError("collector.rate_per_sec", opts.RatePerSec, "must be positive")
	}
	if opts.Burst <= 0 {
		opts.Burst = 1
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Collector{
		Fetcher: fetcher,
		opts:    opts,
		limiter: rate.NewLimiter(rate.Limit(opts.RatePerSec), opts.Burst),
		logger:  logger.WithField("source", fetcher.Name()),
		now:     time.Now,
	}, nil
}

// Collect fetches index bars, spot and breadth for one instrument.
func (c *Collector) Collect(ctx context.Context, index string) (*model.MarketSnapshot, error) {
	inst, err := market.Lookup(index)
	if err != nil {
		return nil, err
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	bars, err := c.Fetcher.FetchBars(ctx, inst.Symbol, c.opts.Interval, c.opts.Bars)
	if err != nil {
		return nil, fmt.Errorf("fetch %s bars: %w", inst.Name, err)
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("fetch %s bars: %w", inst.Name, model.ErrNoData)
	}
	if err := model.ValidateBars(bars); err != nil {
		return nil, fmt.Errorf("%s: %w", inst.Name, err)
	}

	snap := &model.MarketSnapshot{
		Index:     inst.Name,
		Interval:  c.opts.Interval,
		Bars:      bars,
		Spot:      bars[len(bars)-1].Close,
		FetchedAt: c.now(),
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	if q, err := c.Fetcher.FetchQuote(ctx, inst.Symbol); err != nil {
		c.logger.WithError(err).WithField("index", inst.Name).Warn("quote failed, using last close as spot")
	} else {
		snap.Spot = q.Price
	}

	snap.Breadth, err = c.Breadth(ctx)
	if err != nil {
		return nil, err
	}
	return snap, nil
}

// Breadth measures each constituent's daily, 15-minute and 1-hour change. Stocks
// that fail to fetch are skipped; only a cancelled context is an error.
func (c *Collector) Breadth(ctx context.Context) ([]model.StockChange, error) {
	var out []model.StockChange
	for _, st := range c.opts.Constituents {
		ch, err := c.stockChange(ctx, st)
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		if err != nil {
			c.logger.WithError(err).WithField("symbol", st.Symbol).Warn("breadth fetch failed")
			continue
		}
		out = append(out, ch)
	}
	return out, nil
}

func (c *Collector) stockChange(ctx context.Context, st Constituent) (model.StockChange, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return model.StockChange{}, err
	}
	q, err := c.Fetcher.FetchQuote(ctx, st.Symbol)
	if err != nil {
		return model.StockChange{}, err
	}
	out := model.StockChange{Symbol: st.Symbol, Weight: st.Weight, DailyPct: pctChange(q.Price, q.PrevClose)}
	for _, tf := range []struct {
		interval string
		dst      *float64
	}{{"15m", &out.TF1Pct}, {"60m", &out.TF2Pct}} {
		if err := c.limiter.Wait(ctx); err != nil {
			return model.StockChange{}, err
		}
		bars, err := c.Fetcher.FetchBars(ctx, st.Symbol, tf.interval, 2)
		if err != nil {
			return model.StockChange{}, err
		}
		if len(bars) > 1 {
			*tf.dst = pctChange(q.Price, bars[len(bars)-2].Close)
		}
	}
	return out, nil
}

func pctChange(price, prev float64) float64 {
	if prev == 0 {
		return 0
	}
	return (price - prev) / prev * 100
}
