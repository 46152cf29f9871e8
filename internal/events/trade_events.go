package events

import (
	"github.com/atlas-desktop/pulsecore/pkg/types"
	"github.com/shopspring/decimal"
)

// OrderPlaced is published once per order actually dispatched to the
// broker, one event per child ticket. TradesExecuted.Metadata.Tickets
// remains the authoritative list the Position Monitor consumes.
type OrderPlaced struct {
	BaseEvent
	Symbol     string
	Ticket     string
	Direction  types.Direction
	Volume     decimal.Decimal
	Price      decimal.Decimal
	StopLoss   decimal.Decimal
	TakeProfit decimal.Decimal
}

func (OrderPlaced) Kind() Kind { return KindOrderPlaced }

// OrderRejected is published when an entry is blocked, by automation
// gating (reason="automation_disabled") or by a broker error from the
// trading cycle (reason="broker_error").
type OrderRejected struct {
	BaseEvent
	Symbol string
	Reason string
}

func (OrderRejected) Kind() Kind { return KindOrderRejected }

// PositionClosed is published for a full position close driven by the
// executor (as distinct from the partial closes the Position Monitor
// drives off a TP ladder).
type PositionClosed struct {
	BaseEvent
	Symbol string
	Ticket string
	Profit decimal.Decimal
}

func (PositionClosed) Kind() Kind { return KindPositionClosed }

// TradesExecutedMetadata is the authoritative payload the Position
// Monitor restores trackers from.
type TradesExecutedMetadata struct {
	TPTargets []types.TPTarget
	Tickets   []string
	GroupID   string
}

// TradesExecuted feeds the Position Monitor after a successful
// execution cycle.
type TradesExecuted struct {
	BaseEvent
	Symbol      string
	Direction   types.Direction
	TotalVolume decimal.Decimal
	OrderCount  int
	Metadata    TradesExecutedMetadata
}

func (TradesExecuted) Kind() Kind { return KindTradesExecuted }

// TradingAuthorized is published when the broker's trading-cycle check
// authorizes execution.
type TradingAuthorized struct {
	BaseEvent
	Symbol string
}

func (TradingAuthorized) Kind() Kind { return KindTradingAuthorized }

// TradingBlocked enumerates the reasons trading was not authorized for
// this batch (news block, market closing soon, risk breached, ...).
type TradingBlocked struct {
	BaseEvent
	Symbol  string
	Reasons []string
}

func (TradingBlocked) Kind() Kind { return KindTradingBlocked }

// RiskLimitBreached is published alongside TradingBlocked when the
// broker's trading cycle itself reports a risk breach, and by the
// account risk guard when it trips its own loss or drawdown limit.
type RiskLimitBreached struct {
	BaseEvent
	Symbol string
	Reason string
}

func (RiskLimitBreached) Kind() Kind { return KindRiskLimitBreached }
