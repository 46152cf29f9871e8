// Package datasource defines the market-data boundary the data fetcher
// pulls from, plus a deterministic in-memory Fake for tests.
package datasource

import (
	"context"

	"github.com/atlas-desktop/pulsecore/pkg/types"
)

// Source is the external market-data boundary.
type Source interface {
	// GetHistoricalData returns every stored closed bar for
	// symbol/timeframe, oldest first. Used once at startup to seed
	// indicator and regime state before live polling begins.
	GetHistoricalData(ctx context.Context, symbol string, timeframe types.Timeframe) ([]types.Candle, error)

	// GetStreamData returns the most recent nbrBars bars for
	// symbol/timeframe, oldest first, including the currently forming
	// one. An empty, non-error result is a valid "no data yet" response;
	// the fetcher treats it as a DataFetchError.
	GetStreamData(ctx context.Context, symbol string, timeframe types.Timeframe, nbrBars int) ([]types.Candle, error)
}
