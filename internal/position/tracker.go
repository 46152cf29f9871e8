// Package position implements the position monitor: multi-target
// take-profit tracking, partial closes, and breakeven stop-loss moves
// over the broker's open positions.
package position

import (
	"github.com/shopspring/decimal"

	"github.com/atlas-desktop/pulsecore/pkg/types"
)

// Tracker follows one open position's TP ladder progress.
type Tracker struct {
	Ticket          string
	Symbol          string
	Direction       types.Direction
	InitialVolume   decimal.Decimal
	RemainingVolume decimal.Decimal
	OpenPrice       decimal.Decimal
	StopLoss        decimal.Decimal
	Targets         []types.TPTarget
	HitIndices      []int
	Closed          bool
}

// NewTracker starts a tracker at full initial volume with no hits.
func NewTracker(ticket, symbol string, direction types.Direction, volume, openPrice, stopLoss decimal.Decimal, targets []types.TPTarget) *Tracker {
	return &Tracker{
		Ticket:          ticket,
		Symbol:          symbol,
		Direction:       direction,
		InitialVolume:   volume,
		RemainingVolume: volume,
		OpenPrice:       openPrice,
		StopLoss:        stopLoss,
		Targets:         targets,
	}
}

// nextUnhitIndex returns the index of the next TP level not yet marked
// hit, or -1 if every level has been hit. Levels are always evaluated
// strictly in configured order: a later index can never be returned
// before every earlier index has been marked hit.
func (t *Tracker) nextUnhitIndex() int {
	for i := range t.Targets {
		if !t.hasHit(i) {
			return i
		}
	}
	return -1
}

func (t *Tracker) hasHit(i int) bool {
	for _, h := range t.HitIndices {
		if h == i {
			return true
		}
	}
	return false
}

func (t *Tracker) markHit(i int) {
	if !t.hasHit(i) {
		t.HitIndices = append(t.HitIndices, i)
	}
}

// isLevelHit reports whether price has crossed level L in the trade's
// favorable direction.
func isLevelHit(direction types.Direction, price, level decimal.Decimal) bool {
	if direction == types.DirectionLong {
		return price.GreaterThanOrEqual(level)
	}
	return price.LessThanOrEqual(level)
}
