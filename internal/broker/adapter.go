// Package broker defines the external trading-venue boundary: account
// balance, open positions, symbol prices, and the higher-level
// trading-cycle call the executor drives.
package broker

import (
	"context"

	"github.com/atlas-desktop/pulsecore/pkg/types"
	"github.com/shopspring/decimal"
)

// SuccessRetcode is the broker success return code (MT5 convention).
const SuccessRetcode = 10009

// OpenPosition is one broker-reported open position.
type OpenPosition struct {
	Ticket     string
	Symbol     string
	Direction  types.Direction
	Volume     decimal.Decimal
	OpenPrice  decimal.Decimal
	StopLoss   decimal.Decimal
	TakeProfit decimal.Decimal
}

// CloseResult reports the outcome of a close/modify call.
type CloseResult struct {
	Success bool
	Retcode int
	Profit  decimal.Decimal
	Error   string
}

// TradingContext is returned by ExecuteTradingCycle and carries the
// gating flags the Trade Executor must react to.
type TradingContext struct {
	TradeAuthorized   bool
	NewsBlockActive   bool
	MarketClosingSoon bool
	RiskBreached      bool
	TotalPnL          decimal.Decimal
	PlacedOrders      []PlacedOrder
	ClosedPositions   []ClosedPosition
}

// PlacedOrder is one order the broker actually placed during a trading
// cycle.
type PlacedOrder struct {
	Ticket     string
	Symbol     string
	Direction  types.Direction
	Volume     decimal.Decimal
	Price      decimal.Decimal
	StopLoss   decimal.Decimal
	TakeProfit decimal.Decimal
}

// ClosedPosition is one position the broker closed during a trading
// cycle (e.g. an opposing-direction exit).
type ClosedPosition struct {
	Ticket string
	Profit decimal.Decimal
}

// Account exposes account-level queries.
type Account interface {
	GetBalance(ctx context.Context) (decimal.Decimal, error)
}

// Positions exposes position management.
type Positions interface {
	GetOpenPositions(ctx context.Context, symbol string) ([]OpenPosition, error)
	GetAllPositions(ctx context.Context) ([]OpenPosition, error)
	ClosePosition(ctx context.Context, ticket string, volume decimal.Decimal) (CloseResult, error)
	ModifyPosition(ctx context.Context, ticket string, newStopLoss decimal.Decimal) (CloseResult, error)
}

// Symbols exposes live pricing.
type Symbols interface {
	GetSymbolPrice(ctx context.Context, symbol string) (bid, ask decimal.Decimal, err error)
}

// Adapter is the full broker boundary: the executor drives
// ExecuteTradingCycle, the position monitor drives Positions+Symbols,
// and the risk guard drives Account+Positions.
type Adapter interface {
	Account
	Positions
	Symbols
	ExecuteTradingCycle(ctx context.Context, trades types.TradesBatch) (TradingContext, error)
}
