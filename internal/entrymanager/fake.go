package entrymanager

import (
	"github.com/shopspring/decimal"

	"github.com/atlas-desktop/pulsecore/internal/strategyengine"
	"github.com/atlas-desktop/pulsecore/pkg/types"
)

// Fake is a deterministic Manager for tests.
type Fake struct {
	Next types.TradesBatch
	Err  error
}

func (f *Fake) ManageTrades(symbol string, results strategyengine.Results, recentRows map[types.Timeframe][]types.EnrichedRow, accountBalance decimal.Decimal) (types.TradesBatch, error) {
	if f.Err != nil {
		return types.TradesBatch{}, f.Err
	}
	return f.Next, nil
}
