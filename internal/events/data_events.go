package events

import "github.com/atlas-desktop/pulsecore/pkg/types"

// DataFetched is emitted once per timeframe per fetch call, whether or
// not a new closed candle was detected.
type DataFetched struct {
	BaseEvent
	Symbol    string
	Timeframe types.Timeframe
	Bars      []types.Candle
	NumBars   int
}

func (DataFetched) Kind() Kind { return KindDataFetched }

// NewCandle fires when the nth-from-end bar's timestamp has advanced
// past the last known bar for this timeframe.
type NewCandle struct {
	BaseEvent
	Symbol    string
	Timeframe types.Timeframe
	Candle    types.Candle
}

func (NewCandle) Kind() Kind { return KindNewCandle }

// DataFetchError is emitted when the data source returns empty bars or
// raises for a given timeframe; other timeframes still run.
type DataFetchError struct {
	BaseEvent
	Symbol    string
	Timeframe types.Timeframe
	Reason    string
}

func (DataFetchError) Kind() Kind { return KindDataFetchError }
