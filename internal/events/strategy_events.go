package events

import "github.com/atlas-desktop/pulsecore/pkg/types"

// EntrySignal is published for observers whenever the entry manager
// produces an entry decision that survives automation gating.
type EntrySignal struct {
	BaseEvent
	Symbol   string
	Decision types.EntryDecision
}

func (EntrySignal) Kind() Kind { return KindEntrySignal }

// ExitSignal is published for every exit decision; exits always pass
// through automation gating.
type ExitSignal struct {
	BaseEvent
	Symbol   string
	Decision types.ExitDecision
}

func (ExitSignal) Kind() Kind { return KindExitSignal }

// TradesReady is the atomic batch handed to the trade executor.
type TradesReady struct {
	BaseEvent
	Symbol     string
	Trades     types.TradesBatch
	NumEntries int
	NumExits   int
}

func (TradesReady) Kind() Kind { return KindTradesReady }

// StrategyEvaluationError is emitted when the evaluator's pipeline raises
// for a tick; the evaluator continues on subsequent ticks.
type StrategyEvaluationError struct {
	BaseEvent
	Symbol string
	Reason string
}

func (StrategyEvaluationError) Kind() Kind { return KindStrategyEvaluationError }
