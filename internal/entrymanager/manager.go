// Package entrymanager defines the opaque position-sizing/risk-filter
// boundary the strategy evaluator drives to turn strategy signals plus
// account balance into concrete entry/exit decisions.
package entrymanager

import (
	"github.com/atlas-desktop/pulsecore/internal/strategyengine"
	"github.com/shopspring/decimal"

	"github.com/atlas-desktop/pulsecore/pkg/types"
)

// Manager turns strategy results plus recent rows and account balance
// into an atomic entries+exits batch.
type Manager interface {
	ManageTrades(
		symbol string,
		results strategyengine.Results,
		recentRows map[types.Timeframe][]types.EnrichedRow,
		accountBalance decimal.Decimal,
	) (types.TradesBatch, error)
}
