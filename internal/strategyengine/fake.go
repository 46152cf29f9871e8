package strategyengine

import "github.com/atlas-desktop/pulsecore/pkg/types"

// Fake is a deterministic Engine for tests: it returns a scripted
// Results value regardless of input.
type Fake struct {
	Next Results
	Err  error
}

func (f *Fake) Evaluate(recentRows map[types.Timeframe][]types.EnrichedRow) (Results, error) {
	if f.Err != nil {
		return Results{}, f.Err
	}
	return f.Next, nil
}
