package datasource

import (
	"context"
	"sync"

	"github.com/atlas-desktop/pulsecore/pkg/types"
)

// Fake is a deterministic in-memory Source: tests push bars onto a
// per-(symbol,timeframe) series and GetStreamData returns the trailing
// window, exactly mirroring how a real feed accumulates closed bars.
type Fake struct {
	mu     sync.Mutex
	series map[string][]types.Candle
	errs   map[string]error
}

// NewFake builds an empty Fake.
func NewFake() *Fake {
	return &Fake{series: make(map[string][]types.Candle), errs: make(map[string]error)}
}

func seriesKey(symbol string, tf types.Timeframe) string {
	return symbol + "|" + string(tf)
}

// Push appends one more closed bar to the series.
func (f *Fake) Push(symbol string, tf types.Timeframe, candle types.Candle) {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := seriesKey(symbol, tf)
	f.series[k] = append(f.series[k], candle)
}

// SetError forces the next GetStreamData call for (symbol,tf) to fail.
func (f *Fake) SetError(symbol string, tf types.Timeframe, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[seriesKey(symbol, tf)] = err
}

func (f *Fake) GetHistoricalData(ctx context.Context, symbol string, tf types.Timeframe) ([]types.Candle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	bars := f.series[seriesKey(symbol, tf)]
	out := make([]types.Candle, len(bars))
	copy(out, bars)
	return out, nil
}

func (f *Fake) GetStreamData(ctx context.Context, symbol string, tf types.Timeframe, nbrBars int) ([]types.Candle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := seriesKey(symbol, tf)
	if err := f.errs[k]; err != nil {
		delete(f.errs, k)
		return nil, err
	}
	bars := f.series[k]
	if len(bars) > nbrBars {
		bars = bars[len(bars)-nbrBars:]
	}
	out := make([]types.Candle, len(bars))
	copy(out, bars)
	return out, nil
}
