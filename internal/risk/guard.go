// Package risk implements the account-level risk guard: daily P&L and
// drawdown monitoring, breach actions (close-all, trading halt), and a
// timezone-aware scheduled daily reset.
package risk

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/atlas-desktop/pulsecore/internal/broker"
	"github.com/atlas-desktop/pulsecore/internal/events"
	"github.com/atlas-desktop/pulsecore/internal/service"
)

// Status is the guard's trading-permission state.
type Status string

const (
	StatusActive            Status = "active"
	StatusDailyLossBreached Status = "daily_loss_breached"
	StatusDrawdownBreached  Status = "drawdown_breached"
	StatusManuallyStopped   Status = "manually_stopped"
)

// Config tunes the guard's limits and breach actions.
type Config struct {
	DailyLossLimit      decimal.Decimal
	MaxDrawdownPct      decimal.Decimal
	CloseOnBreach       bool
	StopTradingOnBreach bool
	DailyResetTime      string // "HH:MM:SS"
	TimezoneOffset      string // e.g. "+00:00"
}

// DefaultConfig returns conservative account-stop-loss defaults.
func DefaultConfig() Config {
	return Config{
		DailyLossLimit:      decimal.NewFromInt(1000),
		MaxDrawdownPct:      decimal.NewFromInt(10),
		CloseOnBreach:       true,
		StopTradingOnBreach: true,
		DailyResetTime:      "00:00:00",
		TimezoneOffset:      "+00:00",
	}
}

// StopCallback is invoked on breach when StopTradingOnBreach is set; the
// orchestrator supplies it to stop execution+evaluation services without
// the guard needing to know about them directly.
type StopCallback func()

// Guard tracks daily P&L and drawdown against the configured limits and
// halts trading on breach.
type Guard struct {
	*service.Base
	cfg      Config
	brkr     broker.Adapter
	onBreach StopCallback
	loc      *time.Location

	mu              sync.Mutex
	status          Status
	startingBalance decimal.Decimal
	peakBalance     decimal.Decimal
	currentBalance  decimal.Decimal
	dailyPnL        decimal.Decimal
	drawdownPct     decimal.Decimal
	haveBalance     bool
	lastResetDate   string
	breachReason    string

	cronJob *cron.Cron
}

// NewGuard constructs a Guard. onBreach may be nil.
func NewGuard(bus *events.Bus, logger *zap.Logger, cfg Config, brkr broker.Adapter, onBreach StopCallback) (*Guard, error) {
	loc, err := parseOffsetLocation(cfg.TimezoneOffset)
	if err != nil {
		return nil, fmt.Errorf("risk: invalid timezone_offset %q: %w", cfg.TimezoneOffset, err)
	}
	return &Guard{
		Base:     service.NewBase("account_risk_guard", bus, logger),
		cfg:      cfg,
		brkr:     brkr,
		onBreach: onBreach,
		loc:      loc,
		status:   StatusActive,
	}, nil
}

// Start schedules the daily reset via cron and transitions to running.
func (g *Guard) Start() error {
	spec, err := cronSpecFor(g.cfg.DailyResetTime)
	if err != nil {
		return err
	}
	g.cronJob = cron.New(cron.WithLocation(g.loc))
	if _, err := g.cronJob.AddFunc(spec, g.dailyReset); err != nil {
		return fmt.Errorf("risk: schedule daily reset: %w", err)
	}
	g.cronJob.Start()
	g.SetStatus(service.StatusRunning)
	return nil
}

// Stop cancels the cron schedule.
func (g *Guard) Stop() {
	if g.cronJob != nil {
		ctx := g.cronJob.Stop()
		<-ctx.Done()
	}
	g.SetStatus(service.StatusStopped)
}

// UpdateAccountMetrics recomputes balance/peak/drawdown and checks for
// a breach; it is the guard's only inbound driver, called periodically
// by the orchestrator's tick loop.
func (g *Guard) UpdateAccountMetrics(ctx context.Context, currentBalance decimal.Decimal, openPositions int, totalExposure decimal.Decimal) {
	g.mu.Lock()

	if !g.haveBalance {
		g.startingBalance = currentBalance
		g.peakBalance = currentBalance
		g.haveBalance = true
		g.lastResetDate = time.Now().In(g.loc).Format("2006-01-02")
	}

	g.currentBalance = currentBalance
	if currentBalance.GreaterThan(g.peakBalance) {
		g.peakBalance = currentBalance
	}
	g.dailyPnL = currentBalance.Sub(g.startingBalance)
	if g.peakBalance.Sign() != 0 {
		g.drawdownPct = g.peakBalance.Sub(currentBalance).Div(g.peakBalance).Mul(decimal.NewFromInt(100))
	}
	if g.drawdownPct.Sign() < 0 {
		g.drawdownPct = decimal.Zero
	}

	g.checkBreach(ctx)

	g.mu.Unlock()
}

// dailyReset fires from the cron schedule at the configured reset time:
// the day's P&L baseline moves to the current balance, and a
// daily-loss breach (only) returns to active.
func (g *Guard) dailyReset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.haveBalance {
		return
	}
	g.startingBalance = g.currentBalance
	g.dailyPnL = decimal.Zero
	g.lastResetDate = time.Now().In(g.loc).Format("2006-01-02")
	if g.status == StatusDailyLossBreached {
		g.status = StatusActive
		g.breachReason = ""
		g.Logger().Info("daily reset: returning to active from daily_loss_breached")
	}
}

func (g *Guard) checkBreach(ctx context.Context) {
	if g.status == StatusManuallyStopped {
		return
	}
	if g.status != StatusActive {
		return
	}

	if g.dailyPnL.LessThan(g.cfg.DailyLossLimit.Neg()) {
		g.triggerBreach(ctx, StatusDailyLossBreached, fmt.Sprintf("daily loss limit breached: %s < -%s", g.dailyPnL, g.cfg.DailyLossLimit))
		return
	}
	if g.drawdownPct.GreaterThan(g.cfg.MaxDrawdownPct) {
		g.triggerBreach(ctx, StatusDrawdownBreached, fmt.Sprintf("max drawdown breached: %s%% > %s%%", g.drawdownPct, g.cfg.MaxDrawdownPct))
		return
	}
}

func (g *Guard) triggerBreach(ctx context.Context, status Status, reason string) {
	g.status = status
	g.breachReason = reason
	g.IncMetric("risk_breaches")
	g.Logger().Error("account risk limit breached", zap.String("reason", reason))

	g.PublishEvent(events.RiskLimitBreached{
		BaseEvent: events.NewBaseEvent(""),
		Symbol:    "",
		Reason:    reason,
	})

	if g.cfg.CloseOnBreach && g.brkr != nil {
		g.closeAllPositions(ctx)
	}
	if g.cfg.StopTradingOnBreach && g.onBreach != nil {
		g.onBreach()
	}
}

func (g *Guard) closeAllPositions(ctx context.Context) {
	positions, err := g.brkr.GetAllPositions(ctx)
	if err != nil {
		g.Logger().Error("failed to list positions for breach close", zap.Error(err))
		return
	}
	for _, p := range positions {
		if _, err := g.brkr.ClosePosition(ctx, p.Ticket, p.Volume); err != nil {
			g.Logger().Error("failed to close position on breach", zap.String("ticket", p.Ticket), zap.Error(err))
		}
	}
}

// ManualStop transitions to manually_stopped regardless of current state.
func (g *Guard) ManualStop(ctx context.Context, reason string) {
	g.mu.Lock()
	g.status = StatusManuallyStopped
	g.breachReason = reason
	g.mu.Unlock()
	if g.cfg.CloseOnBreach && g.brkr != nil {
		g.closeAllPositions(ctx)
	}
}

// ManualResume returns to active only from manually_stopped.
func (g *Guard) ManualResume() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.status != StatusManuallyStopped {
		return false
	}
	g.status = StatusActive
	g.breachReason = ""
	return true
}

// Snapshot is a point-in-time view for external callers.
type Snapshot struct {
	Status          Status
	StartingBalance decimal.Decimal
	PeakBalance     decimal.Decimal
	CurrentBalance  decimal.Decimal
	DailyPnL        decimal.Decimal
	DrawdownPct     decimal.Decimal
	BreachReason    string
	LastResetDate   string
}

// IsTradingAllowed reports whether the guard's status is active.
func (g *Guard) IsTradingAllowed() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.status == StatusActive
}

// GetSnapshot returns a consistent snapshot under lock.
func (g *Guard) GetSnapshot() Snapshot {
	g.mu.Lock()
	defer g.mu.Unlock()
	return Snapshot{
		Status:          g.status,
		StartingBalance: g.startingBalance,
		PeakBalance:     g.peakBalance,
		CurrentBalance:  g.currentBalance,
		DailyPnL:        g.dailyPnL,
		DrawdownPct:     g.drawdownPct,
		BreachReason:    g.breachReason,
		LastResetDate:   g.lastResetDate,
	}
}
