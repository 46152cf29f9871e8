// Package events implements the engine's closed event family and the
// synchronous in-process publish/subscribe bus that fans them out.
// Delivery is subscription-ordered with per-handler error isolation and
// a bounded history ring; no event is ever dropped.
package events

import (
	"time"

	"github.com/google/uuid"
)

// Kind is the discriminant used for dispatch, one per concrete event
// struct. The bus keys its subscription table by Kind rather than by
// reflect.Type.
type Kind string

const (
	KindDataFetched               Kind = "data_fetched"
	KindNewCandle                 Kind = "new_candle"
	KindDataFetchError            Kind = "data_fetch_error"
	KindIndicatorsCalculated      Kind = "indicators_calculated"
	KindRegimeChanged             Kind = "regime_changed"
	KindIndicatorCalculationError Kind = "indicator_calculation_error"
	KindEntrySignal               Kind = "entry_signal"
	KindExitSignal                Kind = "exit_signal"
	KindTradesReady               Kind = "trades_ready"
	KindStrategyEvaluationError   Kind = "strategy_evaluation_error"
	KindOrderPlaced               Kind = "order_placed"
	KindOrderRejected             Kind = "order_rejected"
	KindPositionClosed            Kind = "position_closed"
	KindTradesExecuted            Kind = "trades_executed"
	KindTradingAuthorized         Kind = "trading_authorized"
	KindTradingBlocked            Kind = "trading_blocked"
	KindRiskLimitBreached         Kind = "risk_limit_breached"
	KindTPLevelHit                Kind = "tp_level_hit"
	KindPositionPartiallyClosed   Kind = "position_partially_closed"
	KindStopLossMoved             Kind = "stop_loss_moved"
	KindToggleAutomation          Kind = "toggle_automation"
	KindAutomationStateChanged    Kind = "automation_state_changed"
)

// Event is implemented by every concrete event struct. Events are
// immutable once published; handlers must not mutate them.
type Event interface {
	Kind() Kind
	EventID() string
	Timestamp() time.Time
	CorrelationID() string
}

// BaseEvent supplies the common fields (event_id, timestamp,
// correlation_id) every concrete event embeds.
type BaseEvent struct {
	ID          string
	At          time.Time
	Correlation string
}

// NewBaseEvent stamps a fresh event ID and timestamp. correlationID may be
// empty when the event does not continue a causal chain.
func NewBaseEvent(correlationID string) BaseEvent {
	return BaseEvent{ID: uuid.NewString(), At: time.Now(), Correlation: correlationID}
}

func (b BaseEvent) EventID() string       { return b.ID }
func (b BaseEvent) Timestamp() time.Time  { return b.At }
func (b BaseEvent) CorrelationID() string { return b.Correlation }

// Handler processes one event and may report failure by returning an
// error; the bus also recovers a panicking handler and treats it the
// same as a returned error, so neither form can escape publish.
type Handler func(Event) error
