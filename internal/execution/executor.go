// Package execution implements the trade executor: it consumes
// TradesReady batches, applies automation gating, drives the broker's
// trading cycle, and publishes the resulting order/position events that
// feed the position monitor.
package execution

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/atlas-desktop/pulsecore/internal/broker"
	"github.com/atlas-desktop/pulsecore/internal/engineerr"
	"github.com/atlas-desktop/pulsecore/internal/events"
	"github.com/atlas-desktop/pulsecore/internal/service"
	"github.com/atlas-desktop/pulsecore/pkg/types"
)

// Mode selects immediate-vs-batched execution.
type Mode string

const (
	ModeImmediate Mode = "immediate"
	ModeBatch     Mode = "batch"
)

// AutomationState is the minimal query surface the executor needs.
type AutomationState interface {
	IsEnabled() bool
}

// Config tunes one symbol's executor.
type Config struct {
	Symbol    string
	Mode      Mode
	BatchSize int
}

// DefaultConfig returns immediate-mode execution.
func DefaultConfig(symbol string) Config {
	return Config{Symbol: symbol, Mode: ModeImmediate, BatchSize: 1}
}

// Executor dispatches decision batches to the broker.
type Executor struct {
	*service.Base
	cfg        Config
	brkr       broker.Adapter
	automation AutomationState

	mu      sync.Mutex
	pending types.TradesBatch
}

// NewExecutor wires the executor's collaborators.
func NewExecutor(bus *events.Bus, logger *zap.Logger, cfg Config, brkr broker.Adapter, automation AutomationState) *Executor {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 1
	}
	return &Executor{
		Base:       service.NewBase("trade_executor_"+cfg.Symbol, bus, logger),
		cfg:        cfg,
		brkr:       brkr,
		automation: automation,
	}
}

// Start subscribes to TradesReady (primary) and EntrySignal/ExitSignal
// (logging/metrics only).
func (x *Executor) Start() {
	x.SubscribeTo(events.KindTradesReady, x.handleTradesReady)
	x.SubscribeTo(events.KindEntrySignal, x.logEntrySignal)
	x.SubscribeTo(events.KindExitSignal, x.logExitSignal)
	x.SetStatus(service.StatusRunning)
}

// Stop flushes any pending batch before unsubscribing.
func (x *Executor) Stop() {
	x.flushPending(context.Background())
	x.UnsubscribeAll()
	x.SetStatus(service.StatusStopped)
}

func (x *Executor) logEntrySignal(ev events.Event) error {
	x.IncMetric("entry_signals_seen")
	return nil
}

func (x *Executor) logExitSignal(ev events.Event) error {
	x.IncMetric("exit_signals_seen")
	return nil
}

func (x *Executor) handleTradesReady(ev events.Event) error {
	tr, ok := ev.(events.TradesReady)
	if !ok || tr.Symbol != x.cfg.Symbol {
		return nil
	}

	if x.cfg.Mode == ModeBatch {
		x.mu.Lock()
		x.pending.Entries = append(x.pending.Entries, tr.Trades.Entries...)
		x.pending.Exits = append(x.pending.Exits, tr.Trades.Exits...)
		shouldFlush := len(x.pending.Entries)+len(x.pending.Exits) >= x.cfg.BatchSize
		x.mu.Unlock()
		if !shouldFlush {
			return nil
		}
		x.flushPending(context.Background())
		return nil
	}

	x.execute(context.Background(), tr.Trades)
	return nil
}

func (x *Executor) flushPending(ctx context.Context) {
	x.mu.Lock()
	batch := x.pending
	x.pending = types.TradesBatch{}
	x.mu.Unlock()
	if len(batch.Entries) == 0 && len(batch.Exits) == 0 {
		return
	}
	x.execute(ctx, batch)
}

func (x *Executor) execute(ctx context.Context, trades types.TradesBatch) {
	if x.automation != nil && !x.automation.IsEnabled() {
		for range trades.Entries {
			x.IncMetric("trades_rejected_automation")
			x.PublishEvent(events.OrderRejected{
				BaseEvent: events.NewBaseEvent(""),
				Symbol:    x.cfg.Symbol,
				Reason:    "automation_disabled",
			})
		}
		trades.Entries = nil
		if len(trades.Exits) == 0 {
			return
		}
	}

	tradingCtx, err := x.brkr.ExecuteTradingCycle(ctx, trades)
	if err != nil {
		x.IncMetric("execution_errors")
		x.HandleError("execute trading cycle", engineerr.New(engineerr.ErrBroker, x.cfg.Symbol, "execute trading cycle", err))
		for range trades.Entries {
			x.PublishEvent(events.OrderRejected{
				BaseEvent: events.NewBaseEvent(""),
				Symbol:    x.cfg.Symbol,
				Reason:    "broker_error",
			})
		}
		return
	}
	x.ClearErrorStreak()

	if !tradingCtx.TradeAuthorized {
		var reasons []string
		if tradingCtx.NewsBlockActive {
			reasons = append(reasons, "news_block_active")
		}
		if tradingCtx.MarketClosingSoon {
			reasons = append(reasons, "market_closing_soon")
		}
		if tradingCtx.RiskBreached {
			reasons = append(reasons, "risk_breached")
		}
		x.PublishEvent(events.TradingBlocked{BaseEvent: events.NewBaseEvent(""), Symbol: x.cfg.Symbol, Reasons: reasons})
		if tradingCtx.RiskBreached {
			x.IncMetric("risk_breaches")
			x.PublishEvent(events.RiskLimitBreached{BaseEvent: events.NewBaseEvent(""), Symbol: x.cfg.Symbol, Reason: "broker_reported_breach"})
		}
		return
	}

	x.PublishEvent(events.TradingAuthorized{BaseEvent: events.NewBaseEvent(""), Symbol: x.cfg.Symbol})

	var tickets []string
	var tpTargets []types.TPTarget
	totalVolume := decimal.Zero
	var direction types.Direction

	for _, order := range tradingCtx.PlacedOrders {
		x.IncMetric("orders_placed")
		x.PublishEvent(events.OrderPlaced{
			BaseEvent:  events.NewBaseEvent(""),
			Symbol:     x.cfg.Symbol,
			Ticket:     order.Ticket,
			Direction:  order.Direction,
			Volume:     order.Volume,
			Price:      order.Price,
			StopLoss:   order.StopLoss,
			TakeProfit: order.TakeProfit,
		})
		tickets = append(tickets, order.Ticket)
		totalVolume = totalVolume.Add(order.Volume)
		direction = order.Direction
	}
	for _, closed := range tradingCtx.ClosedPositions {
		x.IncMetric("positions_closed")
		x.PublishEvent(events.PositionClosed{BaseEvent: events.NewBaseEvent(""), Symbol: x.cfg.Symbol, Ticket: closed.Ticket, Profit: closed.Profit})
	}
	for _, entry := range trades.Entries {
		tpTargets = append(tpTargets, entry.TakeProfit.Ladder...)
	}

	if len(tickets) > 0 {
		x.IncMetric("trades_executed")
		x.PublishEvent(events.TradesExecuted{
			BaseEvent:   events.NewBaseEvent(""),
			Symbol:      x.cfg.Symbol,
			Direction:   direction,
			TotalVolume: totalVolume,
			OrderCount:  len(tickets),
			Metadata: events.TradesExecutedMetadata{
				TPTargets: tpTargets,
				Tickets:   tickets,
				GroupID:   x.cfg.Symbol,
			},
		})
	}
}

// Health reports this service's health using a fixed error threshold.
func (x *Executor) Health() service.Health {
	return x.HealthFromThreshold(10)
}
