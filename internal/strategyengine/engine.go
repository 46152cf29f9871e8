// Package strategyengine defines the opaque strategy-signal boundary
// the strategy evaluator drives. Concrete strategy rules live behind
// the Engine interface; its only contract is turning enriched rows
// into per-strategy signals.
package strategyengine

import "github.com/atlas-desktop/pulsecore/pkg/types"

// Signal is one strategy's raw opinion for the current bar.
type Signal struct {
	StrategyName string
	Direction    types.Direction
	Want         bool // true if this strategy wants a new position
}

// Results is the per-strategy output of one Evaluate call.
type Results struct {
	Signals []Signal
}

// Engine evaluates configured strategies against the recent-rows
// snapshot for every timeframe of one symbol.
type Engine interface {
	Evaluate(recentRows map[types.Timeframe][]types.EnrichedRow) (Results, error)
}
