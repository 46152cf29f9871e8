package datafetch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/atlas-desktop/pulsecore/internal/datasource"
	"github.com/atlas-desktop/pulsecore/internal/events"
	"github.com/atlas-desktop/pulsecore/pkg/types"
)

func candle(t time.Time, close float64) types.Candle {
	c := decimal.NewFromFloat(close)
	return types.Candle{Time: t, Open: c, High: c, Low: c, Close: c, Volume: decimal.NewFromInt(1)}
}

func TestFetchEmitsDataFetchErrorOnEmpty(t *testing.T) {
	bus := events.New(nil, events.DefaultConfig())
	src := datasource.NewFake()
	f := NewFetcher(bus, nil, Config{Symbol: "EURUSD", Timeframes: []types.Timeframe{"5"}, CandleIndex: 1, NbrBars: 3}, src)

	var gotErr events.DataFetchError
	bus.Subscribe(events.KindDataFetchError, func(ev events.Event) error {
		gotErr = ev.(events.DataFetchError)
		return nil
	})

	f.Fetch(context.Background())
	if gotErr.Symbol != "EURUSD" {
		t.Fatalf("expected DataFetchError, got %+v", gotErr)
	}
}

func TestFetchDetectsNewCandleOnAdvance(t *testing.T) {
	bus := events.New(nil, events.DefaultConfig())
	src := datasource.NewFake()
	now := time.Now()
	src.Push("EURUSD", "5", candle(now, 1.1))

	f := NewFetcher(bus, nil, Config{Symbol: "EURUSD", Timeframes: []types.Timeframe{"5"}, CandleIndex: 1, NbrBars: 3}, src)

	var newCandles int
	bus.Subscribe(events.KindNewCandle, func(ev events.Event) error {
		newCandles++
		return nil
	})

	f.Fetch(context.Background())
	if newCandles != 1 {
		t.Fatalf("expected 1 NewCandle on first fetch, got %d", newCandles)
	}

	// same bar again: no new candle.
	f.Fetch(context.Background())
	if newCandles != 1 {
		t.Fatalf("expected no additional NewCandle for an unchanged bar, got %d", newCandles)
	}

	// a later bar: detected.
	src.Push("EURUSD", "5", candle(now.Add(5*time.Minute), 1.2))
	f.Fetch(context.Background())
	if newCandles != 2 {
		t.Fatalf("expected 2nd NewCandle after advancing, got %d", newCandles)
	}
}

func TestResetLastKnownForcesReEmit(t *testing.T) {
	bus := events.New(nil, events.DefaultConfig())
	src := datasource.NewFake()
	now := time.Now()
	src.Push("EURUSD", "5", candle(now, 1.1))

	f := NewFetcher(bus, nil, Config{Symbol: "EURUSD", Timeframes: []types.Timeframe{"5"}, CandleIndex: 1, NbrBars: 3}, src)

	count := 0
	bus.Subscribe(events.KindNewCandle, func(ev events.Event) error {
		count++
		return nil
	})

	f.Fetch(context.Background())
	f.ResetLastKnownBars("5")
	f.Fetch(context.Background())
	if count != 2 {
		t.Fatalf("expected reset to force a second NewCandle, got %d", count)
	}
}

func TestOtherTimeframesContinueAfterOneFails(t *testing.T) {
	bus := events.New(nil, events.DefaultConfig())
	src := datasource.NewFake()
	now := time.Now()
	src.Push("EURUSD", "15", candle(now, 1.1))
	src.SetError("EURUSD", "5", errors.New("boom"))

	f := NewFetcher(bus, nil, Config{Symbol: "EURUSD", Timeframes: []types.Timeframe{"5", "15"}, CandleIndex: 1, NbrBars: 3}, src)

	var sawError, sawNewCandle bool
	bus.Subscribe(events.KindDataFetchError, func(ev events.Event) error { sawError = true; return nil })
	bus.Subscribe(events.KindNewCandle, func(ev events.Event) error { sawNewCandle = true; return nil })

	f.Fetch(context.Background())
	if !sawError || !sawNewCandle {
		t.Fatalf("expected both the failing and succeeding timeframe to be processed: err=%v newCandle=%v", sawError, sawNewCandle)
	}
}
