package orchestrator

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/atlas-desktop/pulsecore/internal/broker"
	"github.com/atlas-desktop/pulsecore/internal/config"
	"github.com/atlas-desktop/pulsecore/internal/datasource"
	"github.com/atlas-desktop/pulsecore/internal/entrymanager"
	"github.com/atlas-desktop/pulsecore/internal/events"
	"github.com/atlas-desktop/pulsecore/internal/regime"
	"github.com/atlas-desktop/pulsecore/internal/risk"
	"github.com/atlas-desktop/pulsecore/internal/strategyengine"
	"github.com/atlas-desktop/pulsecore/pkg/types"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Trading.Symbols = []string{"EURUSD"}
	cfg.Trading.Timeframes = []string{"1"}
	cfg.Services.Regime = regime.DefaultConfig()
	cfg.Orchestrator.TickInterval = 20 * time.Millisecond
	cfg.Orchestrator.HealthCheckInterval = time.Hour // keep health-check out of the way for this test
	cfg.Orchestrator.EnableAutoRestart = false
	cfg.Automation.FileWatcherEnabled = false
	cfg.Risk.AccountStopLoss = risk.DefaultConfig()
	return cfg
}

func TestOrchestratorDrivesOneSymbolPipelineEndToEnd(t *testing.T) {
	cfg := testConfig(t)
	bus := events.New(nil, events.DefaultConfig())
	source := datasource.NewFake()
	source.Push("EURUSD", types.Timeframe("1"), types.Candle{
		Time: time.Now(), Open: decimal.NewFromInt(1), High: decimal.NewFromInt(1),
		Low: decimal.NewFromInt(1), Close: decimal.NewFromInt(1), Volume: decimal.NewFromInt(1),
	})
	brkr := broker.NewFake(decimal.NewFromInt(10000))

	o := New(cfg, nil, bus, brkr, source, &strategyengine.Fake{}, &entrymanager.Fake{})

	if err := o.Start(context.Background()); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if len(bus.GetHistory(events.KindDataFetched, 0)) > 0 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	fetched := bus.GetHistory(events.KindDataFetched, 0)
	if len(fetched) == 0 {
		t.Fatal("expected the driver loop to have produced at least one DataFetched event")
	}
	candles := bus.GetHistory(events.KindNewCandle, 0)
	if len(candles) == 0 {
		t.Fatal("expected a NewCandle event for the first seeded bar")
	}

	stopped := make(chan struct{})
	go func() {
		o.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(5 * time.Second):
		t.Fatal("Stop did not return in time")
	}
}

func TestOrchestratorSymbolIsolationOnHealthSnapshot(t *testing.T) {
	cfg := testConfig(t)
	cfg.Trading.Symbols = []string{"EURUSD", "GBPUSD"}
	bus := events.New(nil, events.DefaultConfig())
	source := datasource.NewFake()
	brkr := broker.NewFake(decimal.NewFromInt(10000))

	o := New(cfg, nil, bus, brkr, source, &strategyengine.Fake{}, &entrymanager.Fake{})
	if err := o.Start(context.Background()); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	defer o.Stop()

	snap := o.HealthSnapshot()
	if len(snap) != 2 {
		t.Fatalf("expected a health snapshot entry per configured symbol, got %d", len(snap))
	}
	for _, symbol := range cfg.Trading.Symbols {
		if _, ok := snap[symbol]; !ok {
			t.Fatalf("expected health snapshot for symbol %s", symbol)
		}
	}
}
