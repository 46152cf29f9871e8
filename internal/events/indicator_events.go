package events

import "github.com/atlas-desktop/pulsecore/pkg/types"

// IndicatorsCalculated carries the freshly enriched row plus a snapshot
// of the bounded recent-rows buffer for this (symbol, timeframe).
type IndicatorsCalculated struct {
	BaseEvent
	Symbol             string
	Timeframe          types.Timeframe
	EnrichedData       types.EnrichedRow
	RecentRowsSnapshot []types.EnrichedRow
}

func (IndicatorsCalculated) Kind() Kind { return KindIndicatorsCalculated }

// RegimeChanged fires when a pending regime commits and differs from the
// last committed regime on this timeframe.
type RegimeChanged struct {
	BaseEvent
	Symbol       string
	Timeframe    types.Timeframe
	Old          types.RegimeLabel
	New          types.RegimeLabel
	Confidence   float64
	IsTransition bool
}

func (RegimeChanged) Kind() Kind { return KindRegimeChanged }

// IndicatorCalculationError is emitted when processing one candle fails;
// subsequent candles continue to be processed.
type IndicatorCalculationError struct {
	BaseEvent
	Symbol    string
	Timeframe types.Timeframe
	Reason    string
}

func (IndicatorCalculationError) Kind() Kind { return KindIndicatorCalculationError }
