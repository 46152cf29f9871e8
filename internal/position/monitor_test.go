package position

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/atlas-desktop/pulsecore/internal/broker"
	"github.com/atlas-desktop/pulsecore/internal/events"
	"github.com/atlas-desktop/pulsecore/pkg/types"
)

func ladder() []types.TPTarget {
	return []types.TPTarget{
		{Level: decimal.NewFromInt(110), Percent: decimal.NewFromInt(50), MoveStop: true},
		{Level: decimal.NewFromInt(120), Percent: decimal.NewFromInt(50), MoveStop: false},
	}
}

func newTestMonitor(t *testing.T) (*Monitor, *broker.Fake, *events.Bus) {
	t.Helper()
	bus := events.New(nil, events.DefaultConfig())
	fake := broker.NewFake(decimal.NewFromInt(10000))
	fake.Positions["T1"] = broker.OpenPosition{
		Ticket:    "T1",
		Symbol:    "EURUSD",
		Direction: types.DirectionLong,
		Volume:    decimal.NewFromFloat(1.0),
		OpenPrice: decimal.NewFromInt(100),
	}
	m := NewMonitor(bus, nil, DefaultConfig("EURUSD"), fake)
	m.Start()

	bus.Publish(events.TradesExecuted{
		BaseEvent: events.NewBaseEvent(""),
		Symbol:    "EURUSD",
		Metadata:  events.TradesExecutedMetadata{Tickets: []string{"T1"}, TPTargets: ladder()},
	})
	return m, fake, bus
}

// TestTPLadderFullSequence drives a long position at 100 through the
// price path 95 -> 112 -> 115 -> 122, asserting the tick-2 and tick-4
// hit sequence against a 110/120 half-and-half ladder.
func TestTPLadderFullSequence(t *testing.T) {
	m, fake, bus := newTestMonitor(t)
	ctx := context.Background()

	var hits []decimal.Decimal
	var partials []events.PositionPartiallyClosed
	var stopMoves []events.StopLossMoved
	bus.Subscribe(events.KindTPLevelHit, func(ev events.Event) error {
		hits = append(hits, ev.(events.TPLevelHit).Level)
		return nil
	})
	bus.Subscribe(events.KindPositionPartiallyClosed, func(ev events.Event) error {
		partials = append(partials, ev.(events.PositionPartiallyClosed))
		return nil
	})
	bus.Subscribe(events.KindStopLossMoved, func(ev events.Event) error {
		stopMoves = append(stopMoves, ev.(events.StopLossMoved))
		return nil
	})

	prices := []float64{95, 112, 115, 122}
	for _, p := range prices {
		fake.Prices["EURUSD"] = decimal.NewFromFloat(p)
		m.CheckPositions(ctx)
	}

	if len(hits) != 2 {
		t.Fatalf("expected 2 TPLevelHit, got %d (%v)", len(hits), hits)
	}
	if !hits[0].Equal(decimal.NewFromInt(110)) || !hits[1].Equal(decimal.NewFromInt(120)) {
		t.Fatalf("expected hits at 110 then 120, got %v", hits)
	}
	if len(partials) != 2 {
		t.Fatalf("expected 2 PositionPartiallyClosed, got %d", len(partials))
	}
	if !partials[0].ClosedVolume.Equal(decimal.NewFromFloat(0.5)) || !partials[0].RemainingVolume.Equal(decimal.NewFromFloat(0.5)) {
		t.Fatalf("tick 2: expected closed=0.5 remaining=0.5, got %+v", partials[0])
	}
	if !partials[1].ClosedVolume.Equal(decimal.NewFromFloat(0.5)) || !partials[1].RemainingVolume.IsZero() {
		t.Fatalf("tick 4: expected closed=0.5 remaining=0, got %+v", partials[1])
	}
	if len(stopMoves) != 1 || !stopMoves[0].New.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("expected one StopLossMoved to 100, got %v", stopMoves)
	}
	if m.ActiveTrackerCount() != 0 {
		t.Fatalf("expected tracker closed and removed, got %d active", m.ActiveTrackerCount())
	}
}

// TestLevelsNeverRevisited asserts a level marked hit is never re-evaluated
// even if price oscillates back below it on a later tick.
func TestLevelsNeverRevisited(t *testing.T) {
	m, fake, bus := newTestMonitor(t)
	ctx := context.Background()

	hitCount := 0
	bus.Subscribe(events.KindTPLevelHit, func(events.Event) error { hitCount++; return nil })

	fake.Prices["EURUSD"] = decimal.NewFromInt(112)
	m.CheckPositions(ctx)
	fake.Prices["EURUSD"] = decimal.NewFromInt(105) // drop back below 110
	m.CheckPositions(ctx)
	fake.Prices["EURUSD"] = decimal.NewFromInt(112)
	m.CheckPositions(ctx)

	if hitCount != 1 {
		t.Fatalf("expected exactly 1 TPLevelHit despite oscillation, got %d", hitCount)
	}
}

// TestBrokerCloseFailureRetriesNextTick asserts a failed close leaves the
// tracker's level unhit for a subsequent tick to retry.
func TestBrokerCloseFailureRetriesNextTick(t *testing.T) {
	m, fake, bus := newTestMonitor(t)
	ctx := context.Background()

	fake.FailNextClose = true
	hitCount := 0
	partialCount := 0
	bus.Subscribe(events.KindTPLevelHit, func(events.Event) error { hitCount++; return nil })
	bus.Subscribe(events.KindPositionPartiallyClosed, func(events.Event) error { partialCount++; return nil })

	fake.Prices["EURUSD"] = decimal.NewFromInt(112)
	m.CheckPositions(ctx)
	if partialCount != 0 {
		t.Fatalf("expected no partial close on broker failure, got %d", partialCount)
	}

	m.CheckPositions(ctx)
	if partialCount != 1 {
		t.Fatalf("expected retry to succeed on next tick, got %d partial closes", partialCount)
	}
}
