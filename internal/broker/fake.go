package broker

import (
	"context"
	"sync"

	"github.com/atlas-desktop/pulsecore/pkg/types"
	"github.com/shopspring/decimal"
)

// Fake is a deterministic in-memory Adapter for tests: it never touches
// the network, tracks open positions in a map, and lets tests script
// the TradingContext returned from ExecuteTradingCycle.
type Fake struct {
	mu sync.Mutex

	Balance   decimal.Decimal
	Positions map[string]OpenPosition
	Prices    map[string]decimal.Decimal // symbol -> bid (ask = bid for simplicity)

	NextContext TradingContext
	NextTicket  int

	// FailNextClose forces the next ClosePosition call to report failure
	// without mutating the position book, then resets itself.
	FailNextClose bool

	// CloseCalls counts every ClosePosition invocation, including
	// failed ones.
	CloseCalls int
}

// NewFake builds a Fake with an empty position book.
func NewFake(balance decimal.Decimal) *Fake {
	return &Fake{
		Balance:   balance,
		Positions: make(map[string]OpenPosition),
		Prices:    make(map[string]decimal.Decimal),
	}
}

func (f *Fake) GetBalance(ctx context.Context) (decimal.Decimal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Balance, nil
}

func (f *Fake) GetOpenPositions(ctx context.Context, symbol string) ([]OpenPosition, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []OpenPosition
	for _, p := range f.Positions {
		if p.Symbol == symbol {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *Fake) GetAllPositions(ctx context.Context) ([]OpenPosition, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]OpenPosition, 0, len(f.Positions))
	for _, p := range f.Positions {
		out = append(out, p)
	}
	return out, nil
}

func (f *Fake) ClosePosition(ctx context.Context, ticket string, volume decimal.Decimal) (CloseResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.CloseCalls++
	if f.FailNextClose {
		f.FailNextClose = false
		return CloseResult{Success: false, Error: "simulated broker failure"}, nil
	}
	pos, ok := f.Positions[ticket]
	if !ok {
		return CloseResult{Success: false, Error: "position not found"}, nil
	}
	remaining := pos.Volume.Sub(volume)
	if remaining.Sign() <= 0 {
		delete(f.Positions, ticket)
	} else {
		pos.Volume = remaining
		f.Positions[ticket] = pos
	}
	return CloseResult{Success: true, Retcode: SuccessRetcode}, nil
}

func (f *Fake) ModifyPosition(ctx context.Context, ticket string, newStopLoss decimal.Decimal) (CloseResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	pos, ok := f.Positions[ticket]
	if !ok {
		return CloseResult{Success: false, Error: "position not found"}, nil
	}
	pos.StopLoss = newStopLoss
	f.Positions[ticket] = pos
	return CloseResult{Success: true, Retcode: SuccessRetcode}, nil
}

func (f *Fake) GetSymbolPrice(ctx context.Context, symbol string) (decimal.Decimal, decimal.Decimal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.Prices[symbol]
	if !ok {
		return decimal.Zero, decimal.Zero, nil
	}
	return p, p, nil
}

func (f *Fake) ExecuteTradingCycle(ctx context.Context, trades types.TradesBatch) (TradingContext, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	tc := f.NextContext
	if !tc.TradeAuthorized {
		return tc, nil
	}
	for _, entry := range trades.Entries {
		f.NextTicket++
		ticket := ticketFor(f.NextTicket)
		f.Positions[ticket] = OpenPosition{
			Ticket:     ticket,
			Symbol:     entry.Symbol,
			Direction:  entry.Direction,
			Volume:     entry.PositionSize,
			OpenPrice:  entry.EntryPrice,
			StopLoss:   entry.StopLoss.Level,
			TakeProfit: entry.TakeProfit.Level,
		}
		tc.PlacedOrders = append(tc.PlacedOrders, PlacedOrder{
			Ticket:     ticket,
			Symbol:     entry.Symbol,
			Direction:  entry.Direction,
			Volume:     entry.PositionSize,
			Price:      entry.EntryPrice,
			StopLoss:   entry.StopLoss.Level,
			TakeProfit: entry.TakeProfit.Level,
		})
	}
	return tc, nil
}

func ticketFor(n int) string {
	const digits = "0123456789"
	if n == 0 {
		return "T0"
	}
	buf := make([]byte, 0, 8)
	for n > 0 {
		buf = append([]byte{digits[n%10]}, buf...)
		n /= 10
	}
	return "T" + string(buf)
}
