package execution

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/atlas-desktop/pulsecore/internal/broker"
	"github.com/atlas-desktop/pulsecore/internal/events"
	"github.com/atlas-desktop/pulsecore/pkg/types"
)

type fixedAutomation struct{ enabled bool }

func (f fixedAutomation) IsEnabled() bool { return f.enabled }

func TestAutomationDisabledRejectsEntriesExecutesExits(t *testing.T) {
	bus := events.New(nil, events.DefaultConfig())
	fake := broker.NewFake(decimal.NewFromInt(10000))
	fake.NextContext = broker.TradingContext{TradeAuthorized: true}

	x := NewExecutor(bus, nil, DefaultConfig("EURUSD"), fake, fixedAutomation{enabled: false})
	x.Start()

	var rejected events.OrderRejected
	bus.Subscribe(events.KindOrderRejected, func(ev events.Event) error {
		rejected = ev.(events.OrderRejected)
		return nil
	})
	authorized := false
	bus.Subscribe(events.KindTradingAuthorized, func(ev events.Event) error { authorized = true; return nil })

	trades := types.TradesBatch{
		Entries: []types.EntryDecision{{Symbol: "EURUSD", PositionSize: decimal.NewFromInt(1)}},
		Exits:   []types.ExitDecision{{Symbol: "EURUSD", Direction: types.DirectionShort}},
	}
	bus.Publish(events.TradesReady{BaseEvent: events.NewBaseEvent(""), Symbol: "EURUSD", Trades: trades, NumEntries: 1, NumExits: 1})

	if rejected.Reason != "automation_disabled" {
		t.Fatalf("expected OrderRejected(automation_disabled), got %+v", rejected)
	}
	if !authorized {
		t.Fatal("expected the exit to still run through the broker's trading cycle")
	}
}

func TestTradingBlockedWhenNotAuthorized(t *testing.T) {
	bus := events.New(nil, events.DefaultConfig())
	fake := broker.NewFake(decimal.NewFromInt(10000))
	fake.NextContext = broker.TradingContext{TradeAuthorized: false, RiskBreached: true}

	x := NewExecutor(bus, nil, DefaultConfig("EURUSD"), fake, fixedAutomation{enabled: true})
	x.Start()

	var blocked events.TradingBlocked
	var breached bool
	bus.Subscribe(events.KindTradingBlocked, func(ev events.Event) error { blocked = ev.(events.TradingBlocked); return nil })
	bus.Subscribe(events.KindRiskLimitBreached, func(ev events.Event) error { breached = true; return nil })

	trades := types.TradesBatch{Entries: []types.EntryDecision{{Symbol: "EURUSD", PositionSize: decimal.NewFromInt(1)}}}
	bus.Publish(events.TradesReady{BaseEvent: events.NewBaseEvent(""), Symbol: "EURUSD", Trades: trades, NumEntries: 1})

	if len(blocked.Reasons) == 0 || !breached {
		t.Fatalf("expected TradingBlocked with risk_breached reason, got %+v breached=%v", blocked, breached)
	}
}

func TestSuccessfulExecutionPublishesTradesExecuted(t *testing.T) {
	bus := events.New(nil, events.DefaultConfig())
	fake := broker.NewFake(decimal.NewFromInt(10000))
	fake.NextContext = broker.TradingContext{TradeAuthorized: true}

	x := NewExecutor(bus, nil, DefaultConfig("EURUSD"), fake, fixedAutomation{enabled: true})
	x.Start()

	var executed events.TradesExecuted
	var placed int
	bus.Subscribe(events.KindTradesExecuted, func(ev events.Event) error { executed = ev.(events.TradesExecuted); return nil })
	bus.Subscribe(events.KindOrderPlaced, func(ev events.Event) error { placed++; return nil })

	trades := types.TradesBatch{
		Entries: []types.EntryDecision{{Symbol: "EURUSD", Direction: types.DirectionLong, PositionSize: decimal.NewFromInt(1), EntryPrice: decimal.NewFromFloat(1.1)}},
	}
	bus.Publish(events.TradesReady{BaseEvent: events.NewBaseEvent(""), Symbol: "EURUSD", Trades: trades, NumEntries: 1})

	if placed != 1 {
		t.Fatalf("expected 1 OrderPlaced, got %d", placed)
	}
	if executed.OrderCount != 1 || len(executed.Metadata.Tickets) != 1 {
		t.Fatalf("got TradesExecuted %+v", executed)
	}
}
