// Package types holds the shared domain vocabulary used across the
// engine: candles, enriched indicator rows, regime snapshots and the
// decision/trade shapes that flow between services.
package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// Direction is the trade/position direction.
type Direction string

const (
	DirectionLong  Direction = "long"
	DirectionShort Direction = "short"
)

// Timeframe is a minute-granularity label such as "1", "5", "15".
type Timeframe string

// Candle is an OHLCV record for one timeframe. Immutable once produced.
type Candle struct {
	Time   time.Time       `json:"time"`
	Open   decimal.Decimal `json:"open"`
	High   decimal.Decimal `json:"high"`
	Low    decimal.Decimal `json:"low"`
	Close  decimal.Decimal `json:"close"`
	Volume decimal.Decimal `json:"volume"`
}

// RegimeLabel is the closed set of market regime classifications.
type RegimeLabel string

const (
	RegimeWarmingUp          RegimeLabel = "warming_up"
	RegimeBullExpansion      RegimeLabel = "bull_expansion"
	RegimeBullContraction    RegimeLabel = "bull_contraction"
	RegimeBearExpansion      RegimeLabel = "bear_expansion"
	RegimeBearContraction    RegimeLabel = "bear_contraction"
	RegimeNeutralExpansion   RegimeLabel = "neutral_expansion"
	RegimeNeutralContraction RegimeLabel = "neutral_contraction"
)

// EnrichedRow is a candle plus every configured indicator value and the
// regime classification in effect for that bar. PreviousRow, when non-nil,
// carries a shallow copy of selected fields from the prior row on the same
// (symbol, timeframe), so consumers can compute bar-over-bar slopes
// without re-reading the full ring buffer.
type EnrichedRow struct {
	Candle Candle `json:"candle"`

	EMA20          decimal.Decimal  `json:"ema20"`
	EMA50          decimal.Decimal  `json:"ema50"`
	EMA200         decimal.Decimal  `json:"ema200"`
	ATR14          decimal.Decimal  `json:"atr14"`
	ATR50          decimal.Decimal  `json:"atr50"`
	RSI14          decimal.Decimal  `json:"rsi14"`
	BollingerWidth decimal.Decimal  `json:"bollingerWidth"`
	MACDLine       decimal.Decimal  `json:"macdLine"`
	MACDSignal     decimal.Decimal  `json:"macdSignal"`
	MACDHist       *decimal.Decimal `json:"macdHist,omitempty"`

	Regime           RegimeLabel `json:"regime"`
	RegimeConfidence float64     `json:"regimeConfidence"`
	IsTransition     bool        `json:"isTransition"`

	PreviousRow *PreviousFields `json:"previousRow,omitempty"`
}

// PreviousFields is the subset of EnrichedRow carried forward for
// bar-over-bar comparisons (e.g. EMA20 slope).
type PreviousFields struct {
	Close  decimal.Decimal `json:"close"`
	EMA20  decimal.Decimal `json:"ema20"`
	Regime RegimeLabel     `json:"regime"`
}

// RegimeSnapshot is the current, point-in-time regime state for one
// (symbol, timeframe) pair.
type RegimeSnapshot struct {
	Regime       RegimeLabel `json:"regime"`
	Confidence   float64     `json:"confidence"`
	IsTransition bool        `json:"isTransition"`
}

// TPTarget is one rung of a take-profit ladder.
type TPTarget struct {
	Level    decimal.Decimal `json:"level"`
	Percent  decimal.Decimal `json:"percent"`
	MoveStop bool            `json:"moveStop"`
}

// StopLoss describes the stop-loss attached to an entry decision.
type StopLoss struct {
	Type  string          `json:"type"`
	Level decimal.Decimal `json:"level"`
}

// TakeProfit describes the take-profit attached to an entry decision,
// optionally carrying a full ladder for partial closes.
type TakeProfit struct {
	Type   string          `json:"type"`
	Level  decimal.Decimal `json:"level"`
	Ladder []TPTarget      `json:"ladder,omitempty"`
}

// EntryDecision is produced by the strategy evaluator for a new position.
type EntryDecision struct {
	Symbol       string          `json:"symbol"`
	StrategyName string          `json:"strategyName"`
	Magic        int             `json:"magic"`
	Direction    Direction       `json:"direction"`
	EntryPrice   decimal.Decimal `json:"entryPrice"`
	PositionSize decimal.Decimal `json:"positionSize"`
	StopLoss     StopLoss        `json:"stopLoss"`
	TakeProfit   TakeProfit      `json:"takeProfit"`
	DecisionTime time.Time       `json:"decisionTime"`
}

// ExitDecision is produced by the strategy evaluator to close a position.
type ExitDecision struct {
	Symbol       string    `json:"symbol"`
	StrategyName string    `json:"strategyName"`
	Magic        int       `json:"magic"`
	Direction    Direction `json:"direction"`
	DecisionTime time.Time `json:"decisionTime"`
}

// TradesBatch is the atomic output of one evaluator tick: two ordered
// sequences, produced together.
type TradesBatch struct {
	Entries []EntryDecision `json:"entries"`
	Exits   []ExitDecision  `json:"exits"`
}
