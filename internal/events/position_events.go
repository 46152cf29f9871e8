package events

import "github.com/shopspring/decimal"

// TPLevelHit fires when price crosses the next unhit TP level for a
// tracked position, before the partial close is attempted.
type TPLevelHit struct {
	BaseEvent
	Symbol string
	Ticket string
	Index  int
	Level  decimal.Decimal
}

func (TPLevelHit) Kind() Kind { return KindTPLevelHit }

// PositionPartiallyClosed fires after a successful partial close driven
// by a TP ladder hit.
type PositionPartiallyClosed struct {
	BaseEvent
	Symbol          string
	Ticket          string
	ClosedVolume    decimal.Decimal
	RemainingVolume decimal.Decimal
	ClosePrice      decimal.Decimal
	Profit          decimal.Decimal
	TPLevel         decimal.Decimal
}

func (PositionPartiallyClosed) Kind() Kind { return KindPositionPartiallyClosed }

// StopLossMoved fires when the Position Monitor moves a stop-loss, most
// commonly to breakeven after a TP hit flagged move_stop.
type StopLossMoved struct {
	BaseEvent
	Symbol string
	Ticket string
	Old    decimal.Decimal
	New    decimal.Decimal
	Reason string
}

func (StopLossMoved) Kind() Kind { return KindStopLossMoved }
