// Package analyzer runs the per-index pipeline from a market snapshot to
// bias, signals, alerts and zone strength.
package analyzer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"IndexSentinel/internal/bias"
	"IndexSentinel/internal/cache"
	"IndexSentinel/internal/indicator"
	"IndexSentinel/internal/market"
	"IndexSentinel/internal/model"
	"IndexSentinel/internal/signal"
	"IndexSentinel/internal/strength"
	"IndexSentinel/internal/tracker"
)

// Result is one analysis run for one index.
type Result struct {
	Index     string                     `json:"index"`
	Spot      float64                    `json:"spot"`
	Time      time.Time                  `json:"time"`
	Phase     market.Phase               `json:"phase"`
	Bias      *model.BiasReport          `json:"bias"`
	Condition *indicator.ConditionResult `json:"condition,omitempty"`
	Blocks    []model.OrderBlock         `json:"blocks"`
	HTF       []model.HTFLevel           `json:"htf_levels"`
	Footprint *model.FootprintPeriod     `json:"footprint,omitempty"`
	Profile   *indicator.Profile         `json:"profile,omitempty"`
	OrderFlow *OrderFlow                 `json:"order_flow,omitempty"`
	Signals   []model.TradingSignal      `json:"signals,omitempty"`
	Rejected  []string                   `json:"rejected,omitempty"`
	Alerts    []model.ProximityAlert     `json:"alerts,omitempty"`
	Strength  []model.ZoneStrength       `json:"strength,omitempty"`
	Missing   []string                   `json:"missing,omitempty"`
}

// OrderFlow summarises the order-flow bundle of a run. A trap is Fresh when it
// formed on the last two bars, which is the latest a rejection can confirm.
type OrderFlow struct {
	Pressure   model.Direction `json:"delta_pressure,omitempty"`
	DeltaSpike bool            `json:"delta_spike"`
	Spikes     []int           `json:"delta_spikes,omitempty"`
	Trend      model.Direction `json:"vidya_trend,omitempty"`
	BullFlips  []int           `json:"vidya_bull_flips,omitempty"`
	BearFlips  []int           `json:"vidya_bear_flips,omitempty"`
	Trap       *indicator.Trap `json:"ltp_trap,omitempty"`
	Fresh      bool            `json:"fresh_trap"`
}

func orderFlow(om *indicator.OMResult, n int) *OrderFlow {
	of := &OrderFlow{}
	if d := om.Delta; d != nil {
		of.Pressure, of.DeltaSpike, of.Spikes = d.Pressure, d.LastSpike, d.Spikes
	}
	if v := om.VIDYA; v != nil {
		of.Trend, of.BullFlips, of.BearFlips = v.Trend, v.BullFlips, v.BearFlips
	}
	if t := om.LTPTrap; t != nil && t.Last != nil {
		trap := *t.Last
		of.Trap = &trap
		of.Fresh = trap.Index >= n-2
	}
	return of
}

// Deps are the collaborators an Analyzer writes to. Nil fields get in-memory defaults.
type Deps struct {
	Tracker   *tracker.Tracker
	Cache     cache.Store
	Publisher cache.Publisher
	AlertBook *signal.AlertBook
	Logger    logrus.FieldLogger
	Now       func() time.Time
}

// Analyzer is safe for concurrent use across indices.
type Analyzer struct {
	cfg       Config
	engine    *bias.Engine
	htfGen    *signal.HTFGenerator
	vobGen    *signal.VOBGenerator
	validator *signal.Validator
	alerts    *signal.AlertMonitor
	tracker   *tracker.Tracker
	cache     cache.Store
	pub       cache.Publisher
	logger    logrus.FieldLogger
	now       func() time.Time

	mu     sync.Mutex
	states map[string]*bias.ReversalState
	last   map[string]*Result
}

// New validates cfg and builds every stage.
func New(cfg Config, deps Deps) (*Analyzer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if deps.Logger == nil {
		deps.Logger = logrus.StandardLogger()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Cache == nil {
		deps.Cache = cache.NewMemory(deps.Now)
	}
	if deps.Publisher == nil {
		deps.Publisher = cache.NopPublisher{}
	}
	if deps.Tracker == nil {
		t, err := tracker.New(tracker.DefaultConfig(), deps.Logger, deps.Now)
		if err != nil {
			return nil, err
		}
		deps.Tracker = t
	}

	a := &Analyzer{
		cfg:     cfg,
		tracker: deps.Tracker,
		cache:   deps.Cache,
		pub:     deps.Publisher,
		logger:  deps.Logger,
		now:     deps.Now,
		states:  make(map[string]*bias.ReversalState),
		last:    make(map[string]*Result),
	}
	var err error
	if a.engine, err = bias.NewEngine(cfg.Bias); err != nil {
		return nil, err
	}
	if a.htfGen, err = signal.NewHTFGenerator(cfg.HTFSignal, deps.Now); err != nil {
		return nil, err
	}
	if a.vobGen, err = signal.NewVOBGenerator(cfg.VOBSignal, deps.Now); err != nil {
		return nil, err
	}
	if a.validator, err = signal.NewValidator(cfg.Validator); err != nil {
		return nil, err
	}
	if a.alerts, err = signal.NewAlertMonitor(cfg.Alerts, deps.AlertBook, deps.Now); err != nil {
		return nil, err
	}
	return a, nil
}

// Tracker returns the signal book.
func (a *Analyzer) Tracker() *tracker.Tracker { return a.tracker }

// AlertBook returns the alert cooldown book.
func (a *Analyzer) AlertBook() *signal.AlertBook { return a.alerts.Book() }

// Last returns the latest result for index, or nil.
func (a *Analyzer) Last(index string) *Result {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.last[index]
}

func (a *Analyzer) reversalState(index string) *bias.ReversalState {
	a.mu.Lock()
	defer a.mu.Unlock()
	st, ok := a.states[index]
	if !ok {
		st = &bias.ReversalState{}
		a.states[index] = st
	}
	return st
}

// soft reports whether err is an absorbed data-quality error.
func soft(err error) bool {
	return errors.Is(err, model.ErrInsufficientData) || errors.Is(err, model.ErrDegenerateInput)
}

// Analyze runs the whole pipeline on snap. Malformed series and configuration
// errors are returned; thin data only leaves parts of the result empty.
func (a *Analyzer) Analyze(ctx context.Context, snap *model.MarketSnapshot) (*Result, error) {
	if snap == nil || len(snap.Bars) == 0 {
		return nil, fmt.Errorf("analyze: %w", model.ErrNoData)
	}
	if err := model.ValidateBars(snap.Bars); err != nil {
		return nil, err
	}
	logger := a.logger.WithField("index", snap.Index)
	now := a.now()
	res := &Result{Index: snap.Index, Spot: snap.Spot, Time: now, Phase: market.PhaseAt(now)}
	bars := snap.Bars

	// Step a: order-flow bundle reusing a recent VOB
	vob := a.cachedVOB(ctx, snap.Index, logger)
	if vob != nil {
		vob.Revalidate(bars)
	}
	om, err := indicator.CalculateOMWithVOB(bars, a.cfg.Bias.OM, vob)
	if err != nil {
		return nil, fmt.Errorf("order flow: %w", err)
	}
	if vob == nil {
		a.storeVOB(ctx, snap.Index, om.VOB, logger)
	}
	res.Blocks = om.VOB.Active()
	res.OrderFlow = orderFlow(om, len(bars))
	res.Missing = append(res.Missing, om.Missing...)

	// Step b: bias
	report, err := a.engine.Analyze(bias.Input{Bars: bars, Breadth: snap.Breadth, OM: om}, a.reversalState(snap.Index))
	if err != nil {
		return nil, fmt.Errorf("bias: %w", err)
	}
	res.Bias = report
	if cond, err := indicator.DetectMarketCondition(bars, a.cfg.Bias.Condition); err == nil {
		res.Condition = cond
	} else if !soft(err) {
		return nil, fmt.Errorf("condition: %w", err)
	}

	// Step c: levels
	if res.HTF, err = indicator.CalculateMultiTimeframe(bars, a.cfg.HTF); err != nil {
		return nil, fmt.Errorf("htf: %w", err)
	}
	fp, err := indicator.CalculateFootprint(bars, a.cfg.Footprint)
	if err != nil {
		return nil, fmt.Errorf("footprint: %w", err)
	}
	res.Footprint = fp.Current
	if p, err := indicator.CalculateProfile(bars, a.cfg.Profile); err == nil {
		res.Profile = p
	} else if soft(err) {
		res.Missing = append(res.Missing, "profile")
	} else {
		return nil, fmt.Errorf("profile: %w", err)
	}

	// Step d: signals
	sentiment := report.Overall.Bias
	for _, sig := range []*model.TradingSignal{
		a.htfGen.CheckForSignal(snap.Spot, sentiment, res.HTF, snap.Index),
		a.vobGen.CheckForSignal(snap.Spot, sentiment, om.VOB, snap.Index),
	} {
		if sig == nil {
			continue
		}
		if err := a.validator.Validate(sig, sentiment); err != nil {
			res.Rejected = append(res.Rejected, err.Error())
			continue
		}
		if err := a.tracker.Add(sig); err != nil {
			res.Rejected = append(res.Rejected, err.Error())
			continue
		}
		logger.WithFields(logrus.Fields{"type": sig.SignalType, "direction": sig.Direction, "entry": sig.EntryPrice}).Info("signal recorded")
		res.Signals = append(res.Signals, *sig)
	}

	// Step e: proximity alerts
	res.Alerts = append(a.alerts.CheckVOB(snap.Index, snap.Spot, om.VOB), a.alerts.CheckHTF(snap.Index, snap.Spot, res.HTF)...)

	// Step f: zone strength
	res.Strength, err = a.zoneStrength(res, bars)
	if err != nil {
		return nil, err
	}

	a.mu.Lock()
	a.last[snap.Index] = res
	a.mu.Unlock()

	if err := a.pub.Publish(ctx, "analysis:"+snap.Index, res); err != nil {
		logger.WithError(err).Warn("publish analysis failed")
	}
	for _, sig := range res.Signals {
		if err := a.pub.Publish(ctx, "signal:"+snap.Index, sig); err != nil {
			logger.WithError(err).Warn("publish signal failed")
		}
	}
	if of := res.OrderFlow; of.Fresh {
		logger.WithFields(logrus.Fields{"kind": of.Trap.Kind, "level": of.Trap.Level}).Info("ltp trap")
		if err := a.pub.Publish(ctx, "trap:"+snap.Index, of.Trap); err != nil {
			logger.WithError(err).Warn("publish trap failed")
		}
	}
	return res, nil
}

// Zones lists the tracked zones of a result: active blocks and every HTF pivot.
func (a *Analyzer) Zones(res *Result) []model.Zone {
	var zones []model.Zone
	for _, b := range res.Blocks {
		kind := model.ZoneSupport
		if b.Direction == model.DirectionBear {
			kind = model.ZoneResistance
		}
		zones = append(zones, model.Zone{Lower: b.Lower, Upper: b.Upper, Kind: kind, Source: "VOB " + string(b.Direction)})
	}
	w := a.cfg.LevelHalfWidth
	for _, l := range res.HTF {
		if p, ok := l.Resistance(); ok {
			zones = append(zones, model.Zone{Lower: p - w, Upper: p + w, Kind: model.ZoneResistance, Source: "HTF " + l.Timeframe})
		}
		if p, ok := l.Support(); ok {
			zones = append(zones, model.Zone{Lower: p - w, Upper: p + w, Kind: model.ZoneSupport, Source: "HTF " + l.Timeframe})
		}
	}
	return zones
}

func (a *Analyzer) zoneStrength(res *Result, bars []model.OHLCV) ([]model.ZoneStrength, error) {
	var out []model.ZoneStrength
	for _, z := range a.Zones(res) {
		s, err := strength.CalculateStrength(z, bars, a.cfg.StrengthLookback)
		if err != nil {
			return nil, fmt.Errorf("strength %s: %w", z.Source, err)
		}
		out = append(out, *s)
	}
	return out, nil
}

func vobKey(index string) string { return "vob:" + index }

func (a *Analyzer) cachedVOB(ctx context.Context, index string, logger logrus.FieldLogger) *indicator.VOBResult {
	if a.cfg.VOBCacheTTL == 0 {
		return nil
	}
	var vob indicator.VOBResult
	ok, err := cache.GetJSON(ctx, a.cache, vobKey(index), &vob)
	if err != nil {
		logger.WithError(err).Warn("vob cache read failed")
		return nil
	}
	if !ok {
		return nil
	}
	return &vob
}

func (a *Analyzer) storeVOB(ctx context.Context, index string, vob *indicator.VOBResult, logger logrus.FieldLogger) {
	if a.cfg.VOBCacheTTL == 0 || vob == nil {
		return
	}
	if err := cache.SetJSON(ctx, a.cache, vobKey(index), vob, a.cfg.VOBCacheTTL); err != nil {
		logger.WithError(err).Warn("vob cache write failed")
	}
}
