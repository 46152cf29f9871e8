package risk

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/atlas-desktop/pulsecore/internal/broker"
	"github.com/atlas-desktop/pulsecore/internal/events"
)

func newTestGuard(t *testing.T) (*Guard, *broker.Fake) {
	t.Helper()
	bus := events.New(nil, events.DefaultConfig())
	fake := broker.NewFake(decimal.NewFromInt(10000))
	cfg := DefaultConfig()
	g, err := NewGuard(bus, nil, cfg, fake, nil)
	if err != nil {
		t.Fatalf("NewGuard: %v", err)
	}
	return g, fake
}

func TestPeakBalanceNeverDecreases(t *testing.T) {
	g, _ := newTestGuard(t)
	ctx := context.Background()
	g.UpdateAccountMetrics(ctx, decimal.NewFromInt(10000), 0, decimal.Zero)
	g.UpdateAccountMetrics(ctx, decimal.NewFromInt(11000), 0, decimal.Zero)
	g.UpdateAccountMetrics(ctx, decimal.NewFromInt(10500), 0, decimal.Zero)

	snap := g.GetSnapshot()
	if !snap.PeakBalance.Equal(decimal.NewFromInt(11000)) {
		t.Fatalf("peak balance = %v, want 11000", snap.PeakBalance)
	}
}

func TestDrawdownPctNonNegative(t *testing.T) {
	g, _ := newTestGuard(t)
	ctx := context.Background()
	g.UpdateAccountMetrics(ctx, decimal.NewFromInt(10000), 0, decimal.Zero)
	g.UpdateAccountMetrics(ctx, decimal.NewFromInt(12000), 0, decimal.Zero)

	snap := g.GetSnapshot()
	if snap.DrawdownPct.Sign() < 0 {
		t.Fatalf("drawdown_pct must be non-negative, got %v", snap.DrawdownPct)
	}
}

func TestDailyLossBreachStopsTrading(t *testing.T) {
	g, _ := newTestGuard(t)
	ctx := context.Background()
	g.UpdateAccountMetrics(ctx, decimal.NewFromInt(10000), 0, decimal.Zero)
	// 10000 -> 8999 crosses the 1000 daily loss limit.
	g.UpdateAccountMetrics(ctx, decimal.NewFromInt(8999), 0, decimal.Zero)

	if g.IsTradingAllowed() {
		t.Fatal("expected trading to be disallowed after a daily loss breach")
	}
	snap := g.GetSnapshot()
	if snap.Status != StatusDailyLossBreached {
		t.Fatalf("status = %v, want daily_loss_breached", snap.Status)
	}
}

func TestBreachClosesAllOpenPositionsOnce(t *testing.T) {
	g, fake := newTestGuard(t)
	ctx := context.Background()
	fake.Positions["T1"] = broker.OpenPosition{Ticket: "T1", Symbol: "EURUSD", Volume: decimal.NewFromFloat(1.0)}
	fake.Positions["T2"] = broker.OpenPosition{Ticket: "T2", Symbol: "GBPUSD", Volume: decimal.NewFromFloat(0.5)}

	g.UpdateAccountMetrics(ctx, decimal.NewFromInt(10000), 2, decimal.Zero)
	g.UpdateAccountMetrics(ctx, decimal.NewFromInt(8500), 2, decimal.Zero)

	if fake.CloseCalls != 2 {
		t.Fatalf("expected one close call per open position, got %d", fake.CloseCalls)
	}

	// Further updates while breached must not re-trigger the close-all.
	g.UpdateAccountMetrics(ctx, decimal.NewFromInt(8400), 0, decimal.Zero)
	if fake.CloseCalls != 2 {
		t.Fatalf("expected no additional close calls while already breached, got %d", fake.CloseCalls)
	}
}

func TestStopTradingOnBreachInvokesCallback(t *testing.T) {
	bus := events.New(nil, events.DefaultConfig())
	fake := broker.NewFake(decimal.NewFromInt(10000))
	halted := 0
	g, err := NewGuard(bus, nil, DefaultConfig(), fake, func() { halted++ })
	if err != nil {
		t.Fatalf("NewGuard: %v", err)
	}

	ctx := context.Background()
	g.UpdateAccountMetrics(ctx, decimal.NewFromInt(10000), 0, decimal.Zero)
	g.UpdateAccountMetrics(ctx, decimal.NewFromInt(8000), 0, decimal.Zero)

	if halted != 1 {
		t.Fatalf("expected the stop callback to run exactly once, got %d", halted)
	}
}

func TestManualStopAndResume(t *testing.T) {
	g, _ := newTestGuard(t)
	g.ManualStop(context.Background(), "test")
	if g.IsTradingAllowed() {
		t.Fatal("expected manual stop to disallow trading")
	}
	if !g.ManualResume() {
		t.Fatal("expected resume to succeed from manually_stopped")
	}
	if !g.IsTradingAllowed() {
		t.Fatal("expected trading allowed after resume")
	}
}

func TestManualResumeNoOpFromActive(t *testing.T) {
	g, _ := newTestGuard(t)
	if g.ManualResume() {
		t.Fatal("resume from active should be a no-op returning false")
	}
}
