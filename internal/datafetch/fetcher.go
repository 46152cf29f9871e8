// Package datafetch implements the data fetcher: for one symbol and a
// configured list of timeframes, it pulls the most recent bars from the
// data source and detects when a new bar has closed.
package datafetch

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/atlas-desktop/pulsecore/internal/datasource"
	"github.com/atlas-desktop/pulsecore/internal/engineerr"
	"github.com/atlas-desktop/pulsecore/internal/events"
	"github.com/atlas-desktop/pulsecore/internal/service"
	"github.com/atlas-desktop/pulsecore/pkg/types"
)

// ErrorThreshold is the consecutive fetch-error streak at which this
// service reports unhealthy.
const ErrorThreshold = 10

// Config configures one symbol's fetcher.
type Config struct {
	Symbol      string
	Timeframes  []types.Timeframe
	CandleIndex int // 1-based index from the end of the returned bars
	NbrBars     int
}

// Fetcher polls the data source and emits DataFetched/NewCandle events.
type Fetcher struct {
	*service.Base
	cfg    Config
	source datasource.Source

	mu        sync.Mutex
	lastKnown map[types.Timeframe]types.Candle
}

// NewFetcher constructs a Fetcher for one symbol.
func NewFetcher(bus *events.Bus, logger *zap.Logger, cfg Config, source datasource.Source) *Fetcher {
	if cfg.CandleIndex < 1 {
		cfg.CandleIndex = 1
	}
	if cfg.NbrBars < cfg.CandleIndex {
		cfg.NbrBars = cfg.CandleIndex
	}
	return &Fetcher{
		Base:      service.NewBase("data_fetcher_"+cfg.Symbol, bus, logger),
		cfg:       cfg,
		source:    source,
		lastKnown: make(map[types.Timeframe]types.Candle),
	}
}

// Start transitions to running. The Data Fetcher has no subscriptions
// of its own — it is driven by the orchestrator's tick loop calling
// Fetch.
func (f *Fetcher) Start() {
	f.SetStatus(service.StatusRunning)
}

// Stop transitions to stopped.
func (f *Fetcher) Stop() {
	f.UnsubscribeAll()
	f.SetStatus(service.StatusStopped)
}

// Fetch runs one fetch cycle across every configured timeframe, in
// configured order. Each timeframe's failure is isolated; it does not
// prevent the remaining timeframes from running.
func (f *Fetcher) Fetch(ctx context.Context) {
	for _, tf := range f.cfg.Timeframes {
		f.fetchOne(ctx, tf)
	}
}

func (f *Fetcher) fetchOne(ctx context.Context, tf types.Timeframe) {
	bars, err := f.source.GetStreamData(ctx, f.cfg.Symbol, tf, f.cfg.NbrBars)
	if err != nil || len(bars) == 0 {
		reason := "empty result"
		if err != nil {
			reason = err.Error()
		}
		f.IncMetric("fetch_errors")
		f.HandleError("fetch "+string(tf), engineerr.New(engineerr.ErrDataFetch, f.cfg.Symbol, reason, err))
		f.PublishEvent(events.DataFetchError{
			BaseEvent: events.NewBaseEvent(""),
			Symbol:    f.cfg.Symbol,
			Timeframe: tf,
			Reason:    reason,
		})
		return
	}

	f.IncMetric("data_fetches")
	f.ClearErrorStreak()
	f.PublishEvent(events.DataFetched{
		BaseEvent: events.NewBaseEvent(""),
		Symbol:    f.cfg.Symbol,
		Timeframe: tf,
		Bars:      bars,
		NumBars:   len(bars),
	})

	idx := len(bars) - f.cfg.CandleIndex
	if idx < 0 {
		return
	}
	candidate := bars[idx]

	f.mu.Lock()
	known, ok := f.lastKnown[tf]
	isNew := !ok || candidate.Time.After(known.Time)
	if isNew {
		f.lastKnown[tf] = candidate
	}
	f.mu.Unlock()

	if isNew {
		f.IncMetric("new_candles_detected")
		f.PublishEvent(events.NewCandle{
			BaseEvent: events.NewBaseEvent(""),
			Symbol:    f.cfg.Symbol,
			Timeframe: tf,
			Candle:    candidate,
		})
	}
}

// ResetLastKnownBars forces the next fetch to emit NewCandle for the
// given timeframe, or every configured timeframe when tf is empty.
func (f *Fetcher) ResetLastKnownBars(tf types.Timeframe) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if tf == "" {
		f.lastKnown = make(map[types.Timeframe]types.Candle)
		return
	}
	delete(f.lastKnown, tf)
}

// Health reports this service's health using the shared threshold.
func (f *Fetcher) Health() service.Health {
	return f.HealthFromThreshold(ErrorThreshold)
}
