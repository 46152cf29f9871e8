package position

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/atlas-desktop/pulsecore/internal/broker"
	"github.com/atlas-desktop/pulsecore/internal/events"
	"github.com/atlas-desktop/pulsecore/internal/service"
	"github.com/atlas-desktop/pulsecore/pkg/utils"
)

// Config tunes the monitor's broker-volume rounding and minimum close
// threshold below which a tracker is considered fully closed.
type Config struct {
	Symbol          string
	LotStep         decimal.Decimal
	MinLot          decimal.Decimal
	BrokerMinVolume decimal.Decimal
}

// DefaultConfig returns the common 0.01 lot-step/min-lot pair.
func DefaultConfig(symbol string) Config {
	return Config{
		Symbol:          symbol,
		LotStep:         decimal.NewFromFloat(0.01),
		MinLot:          decimal.NewFromFloat(0.01),
		BrokerMinVolume: decimal.NewFromFloat(0.01),
	}
}

// Monitor tracks every open position's TP ladder and drives partial
// closes off the orchestrator's tick.
type Monitor struct {
	*service.Base
	cfg  Config
	brkr broker.Adapter

	mu       sync.Mutex
	trackers map[string]*Tracker // ticket -> tracker
}

// NewMonitor wires the monitor's collaborators.
func NewMonitor(bus *events.Bus, logger *zap.Logger, cfg Config, brkr broker.Adapter) *Monitor {
	return &Monitor{
		Base:     service.NewBase("position_monitor_"+cfg.Symbol, bus, logger),
		cfg:      cfg,
		brkr:     brkr,
		trackers: make(map[string]*Tracker),
	}
}

// Start subscribes to TradesExecuted and attempts to restore trackers
// for any already-open positions on this symbol.
func (m *Monitor) Start() {
	m.SubscribeTo(events.KindTradesExecuted, m.handleTradesExecuted)
	m.restoreOpenPositions(context.Background())
	m.SetStatus(service.StatusRunning)
}

// Stop releases subscriptions.
func (m *Monitor) Stop() {
	m.UnsubscribeAll()
	m.SetStatus(service.StatusStopped)
}

// restoreOpenPositions lists currently open positions for this symbol.
// Default persistence is stateless: a restart loses the TP ladder
// unless an external target store is wired in, so restored positions
// are logged but not TP-managed.
func (m *Monitor) restoreOpenPositions(ctx context.Context) {
	positions, err := m.brkr.GetOpenPositions(ctx, m.cfg.Symbol)
	if err != nil {
		m.Logger().Warn("failed to list open positions on restart", zap.Error(err))
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range positions {
		if _, ok := m.trackers[p.Ticket]; ok {
			continue
		}
		m.Logger().Info("restored position without TP ladder (no persisted targets)", zap.String("ticket", p.Ticket))
	}
}

func (m *Monitor) handleTradesExecuted(ev events.Event) error {
	te, ok := ev.(events.TradesExecuted)
	if !ok || te.Symbol != m.cfg.Symbol {
		return nil
	}
	if len(te.Metadata.TPTargets) == 0 {
		return nil
	}

	ctx := context.Background()
	for _, ticket := range te.Metadata.Tickets {
		positions, err := m.brkr.GetOpenPositions(ctx, m.cfg.Symbol)
		if err != nil {
			continue
		}
		for _, p := range positions {
			if p.Ticket != ticket {
				continue
			}
			m.mu.Lock()
			m.trackers[ticket] = NewTracker(ticket, m.cfg.Symbol, p.Direction, p.Volume, p.OpenPrice, p.StopLoss, te.Metadata.TPTargets)
			m.mu.Unlock()
		}
	}
	return nil
}

// CheckPositions evaluates, for every active tracker, only the next
// unhit TP level against the current bid. Driven by the orchestrator's
// tick.
func (m *Monitor) CheckPositions(ctx context.Context) {
	bid, _, err := m.brkr.GetSymbolPrice(ctx, m.cfg.Symbol)
	if err != nil {
		m.Logger().Warn("failed to fetch price, retrying next tick", zap.Error(err))
		return
	}

	m.mu.Lock()
	tickets := make([]string, 0, len(m.trackers))
	for ticket, tr := range m.trackers {
		if !tr.Closed {
			tickets = append(tickets, ticket)
		}
	}
	m.mu.Unlock()

	for _, ticket := range tickets {
		m.checkOne(ctx, ticket, bid)
	}
}

func (m *Monitor) checkOne(ctx context.Context, ticket string, price decimal.Decimal) {
	m.mu.Lock()
	tr := m.trackers[ticket]
	m.mu.Unlock()
	if tr == nil || tr.Closed {
		return
	}

	idx := tr.nextUnhitIndex()
	if idx < 0 {
		return
	}
	target := tr.Targets[idx]
	if !isLevelHit(tr.Direction, price, target.Level) {
		return
	}

	m.PublishEvent(events.TPLevelHit{
		BaseEvent: events.NewBaseEvent(""),
		Symbol:    m.cfg.Symbol,
		Ticket:    ticket,
		Index:     idx,
		Level:     target.Level,
	})

	volumeToClose := utils.NormalizeVolume(
		target.Percent.Div(decimal.NewFromInt(100)).Mul(tr.InitialVolume),
		m.cfg.LotStep,
		m.cfg.MinLot,
	)

	result, err := m.brkr.ClosePosition(ctx, ticket, volumeToClose)
	if err != nil || !result.Success {
		m.Logger().Warn("broker close failed, retrying on next tick", zap.String("ticket", ticket))
		return
	}

	m.mu.Lock()
	tr.RemainingVolume = tr.RemainingVolume.Sub(volumeToClose)
	remaining := tr.RemainingVolume
	tr.markHit(idx)
	m.mu.Unlock()

	m.IncMetric("tp_levels_hit")
	m.IncMetric("partial_closes_executed")
	m.PublishEvent(events.PositionPartiallyClosed{
		BaseEvent:       events.NewBaseEvent(""),
		Symbol:          m.cfg.Symbol,
		Ticket:          ticket,
		ClosedVolume:    volumeToClose,
		RemainingVolume: remaining,
		ClosePrice:      price,
		Profit:          result.Profit,
		TPLevel:         target.Level,
	})

	if target.MoveStop {
		old := tr.StopLoss
		if _, err := m.brkr.ModifyPosition(ctx, ticket, tr.OpenPrice); err == nil {
			m.mu.Lock()
			tr.StopLoss = tr.OpenPrice
			m.mu.Unlock()
			m.IncMetric("stop_losses_moved")
			m.PublishEvent(events.StopLossMoved{
				BaseEvent: events.NewBaseEvent(""),
				Symbol:    m.cfg.Symbol,
				Ticket:    ticket,
				Old:       old,
				New:       tr.OpenPrice,
				Reason:    "tp_hit",
			})
		}
	}

	if remaining.LessThanOrEqual(m.cfg.BrokerMinVolume) {
		m.mu.Lock()
		tr.Closed = true
		delete(m.trackers, ticket)
		m.mu.Unlock()
	}
}

// ActiveTrackerCount reports how many trackers are currently active;
// useful for health/status reporting.
func (m *Monitor) ActiveTrackerCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, tr := range m.trackers {
		if !tr.Closed {
			n++
		}
	}
	return n
}

// Health reports this service's health using a fixed error threshold.
func (m *Monitor) Health() service.Health {
	return m.HealthFromThreshold(10)
}
