// Package strategyeval implements the strategy evaluator: it turns
// enriched indicator rows into entry/exit decisions, gated on the
// automation flag.
package strategyeval

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/atlas-desktop/pulsecore/internal/broker"
	"github.com/atlas-desktop/pulsecore/internal/engineerr"
	"github.com/atlas-desktop/pulsecore/internal/entrymanager"
	"github.com/atlas-desktop/pulsecore/internal/events"
	"github.com/atlas-desktop/pulsecore/internal/service"
	"github.com/atlas-desktop/pulsecore/internal/strategyengine"
	"github.com/atlas-desktop/pulsecore/pkg/types"
)

// ErrorThreshold is the consecutive-error streak at which this service
// reports unhealthy.
const ErrorThreshold = 10

// AutomationState is the minimal query surface the evaluator needs from
// the automation manager; kept as an interface so strategyeval does not
// depend on automation's persistence concerns.
type AutomationState interface {
	IsEnabled() bool
}

// Config tunes one symbol's evaluator.
type Config struct {
	Symbol          string
	MinRowsRequired int
}

// DefaultConfig requires three rows before the first evaluation.
func DefaultConfig(symbol string) Config {
	return Config{Symbol: symbol, MinRowsRequired: 3}
}

// Evaluator turns enriched rows into an atomic entries+exits batch.
type Evaluator struct {
	*service.Base
	cfg        Config
	engine     strategyengine.Engine
	entryMgr   entrymanager.Manager
	brkr       broker.Account
	automation AutomationState

	mu   sync.Mutex
	rows map[types.Timeframe][]types.EnrichedRow
}

// NewEvaluator wires the evaluator's collaborators.
func NewEvaluator(
	bus *events.Bus,
	logger *zap.Logger,
	cfg Config,
	engine strategyengine.Engine,
	entryMgr entrymanager.Manager,
	brkr broker.Account,
	automation AutomationState,
) *Evaluator {
	if cfg.MinRowsRequired <= 0 {
		cfg.MinRowsRequired = 3
	}
	return &Evaluator{
		Base:       service.NewBase("strategy_evaluator_"+cfg.Symbol, bus, logger),
		cfg:        cfg,
		engine:     engine,
		entryMgr:   entryMgr,
		brkr:       brkr,
		automation: automation,
		rows:       make(map[types.Timeframe][]types.EnrichedRow),
	}
}

// Start subscribes to IndicatorsCalculated for this symbol.
func (e *Evaluator) Start() {
	e.SubscribeTo(events.KindIndicatorsCalculated, e.handleIndicators)
	e.SetStatus(service.StatusRunning)
}

// Stop releases subscriptions.
func (e *Evaluator) Stop() {
	e.UnsubscribeAll()
	e.SetStatus(service.StatusStopped)
}

func (e *Evaluator) handleIndicators(ev events.Event) error {
	ic, ok := ev.(events.IndicatorsCalculated)
	if !ok || ic.Symbol != e.cfg.Symbol {
		return nil
	}

	e.mu.Lock()
	e.rows[ic.Timeframe] = ic.RecentRowsSnapshot
	snapshot := make(map[types.Timeframe][]types.EnrichedRow, len(e.rows))
	for tf, rows := range e.rows {
		snapshot[tf] = rows
	}
	e.mu.Unlock()

	if !hasEnoughRows(snapshot, e.cfg.MinRowsRequired) {
		return nil
	}

	results, err := e.engine.Evaluate(snapshot)
	if err != nil {
		e.fail("strategy engine evaluate", err)
		return nil
	}

	balance := decimal.Zero
	if e.brkr != nil {
		if b, err := e.brkr.GetBalance(context.Background()); err == nil {
			balance = b
		}
	}

	trades, err := e.entryMgr.ManageTrades(e.cfg.Symbol, results, snapshot, balance)
	if err != nil {
		e.fail("entry manager manageTrades", err)
		return nil
	}
	e.ClearErrorStreak()

	automationEnabled := e.automation == nil || e.automation.IsEnabled()
	if !automationEnabled {
		suppressed := len(trades.Entries)
		e.AddMetric("entry_signals_suppressed", uint64(suppressed))
		trades.Entries = nil
	}

	for _, entry := range trades.Entries {
		e.IncMetric("entry_signals_generated")
		e.PublishEvent(events.EntrySignal{BaseEvent: events.NewBaseEvent(ic.EventID()), Symbol: e.cfg.Symbol, Decision: entry})
	}
	for _, exit := range trades.Exits {
		e.PublishEvent(events.ExitSignal{BaseEvent: events.NewBaseEvent(ic.EventID()), Symbol: e.cfg.Symbol, Decision: exit})
	}

	if len(trades.Entries) > 0 || len(trades.Exits) > 0 {
		e.PublishEvent(events.TradesReady{
			BaseEvent:  events.NewBaseEvent(ic.EventID()),
			Symbol:     e.cfg.Symbol,
			Trades:     trades,
			NumEntries: len(trades.Entries),
			NumExits:   len(trades.Exits),
		})
	}

	return nil
}

func (e *Evaluator) fail(context string, err error) {
	e.HandleError(context, engineerr.New(engineerr.ErrStrategyEvaluation, e.cfg.Symbol, context, err))
	e.PublishEvent(events.StrategyEvaluationError{
		BaseEvent: events.NewBaseEvent(""),
		Symbol:    e.cfg.Symbol,
		Reason:    err.Error(),
	})
}

func hasEnoughRows(rows map[types.Timeframe][]types.EnrichedRow, min int) bool {
	for _, r := range rows {
		if len(r) >= min {
			return true
		}
	}
	return false
}

// Health reports this service's health using the shared threshold.
func (e *Evaluator) Health() service.Health {
	return e.HealthFromThreshold(ErrorThreshold)
}
