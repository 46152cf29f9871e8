// Package orchestrator wires the shared event bus, the automation
// manager, the file watcher, the account risk guard, and one pipeline
// of data/regime/strategy/execution/monitor services per configured
// symbol, then drives the tick loop that pulls them all forward.
package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/atlas-desktop/pulsecore/internal/automation"
	"github.com/atlas-desktop/pulsecore/internal/broker"
	"github.com/atlas-desktop/pulsecore/internal/config"
	"github.com/atlas-desktop/pulsecore/internal/datafetch"
	"github.com/atlas-desktop/pulsecore/internal/datasource"
	"github.com/atlas-desktop/pulsecore/internal/entrymanager"
	"github.com/atlas-desktop/pulsecore/internal/events"
	"github.com/atlas-desktop/pulsecore/internal/execution"
	"github.com/atlas-desktop/pulsecore/internal/filewatcher"
	"github.com/atlas-desktop/pulsecore/internal/position"
	"github.com/atlas-desktop/pulsecore/internal/regime"
	"github.com/atlas-desktop/pulsecore/internal/risk"
	"github.com/atlas-desktop/pulsecore/internal/service"
	"github.com/atlas-desktop/pulsecore/internal/strategyengine"
	"github.com/atlas-desktop/pulsecore/internal/strategyeval"
)

// pipelineService is the lifecycle surface every per-symbol service
// exposes to the orchestrator.
type pipelineService interface {
	Start()
	Stop()
	Health() service.Health
}

// pipeline bundles one symbol's services in start order.
type pipeline struct {
	symbol    string
	fetcher   *datafetch.Fetcher
	regimeSvc *regime.Service
	evaluator *strategyeval.Evaluator
	executor  *execution.Executor
	monitor   *position.Monitor
}

// services returns name->service in start order; stop order is the
// reverse (monitor first, fetcher last).
func (p *pipeline) services() []namedService {
	return []namedService{
		{"data_fetcher", p.fetcher},
		{"regime_engine", p.regimeSvc},
		{"strategy_evaluator", p.evaluator},
		{"trade_executor", p.executor},
		{"position_monitor", p.monitor},
	}
}

type namedService struct {
	name string
	svc  pipelineService
}

// Orchestrator owns every service, the bus, the guards and the watcher,
// and drives the per-tick pipeline.
type Orchestrator struct {
	cfg    config.Config
	logger *zap.Logger
	bus    *events.Bus

	automationMgr *automation.Manager
	watcher       *filewatcher.Watcher
	riskGuard     *risk.Guard
	brkr          broker.Adapter
	source        datasource.Source
	engine        strategyengine.Engine
	entryMgr      entrymanager.Manager

	mu        sync.Mutex
	pipelines map[string]*pipeline
	halted    bool

	stopCh chan struct{}
	doneCh chan struct{}
}

// New wires every shared collaborator; the per-symbol pipelines are
// built in Start.
func New(
	cfg config.Config,
	logger *zap.Logger,
	bus *events.Bus,
	brkr broker.Adapter,
	source datasource.Source,
	engine strategyengine.Engine,
	entryMgr entrymanager.Manager,
) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	o := &Orchestrator{
		cfg:       cfg,
		logger:    logger.Named("orchestrator"),
		bus:       bus,
		brkr:      brkr,
		source:    source,
		engine:    engine,
		entryMgr:  entryMgr,
		pipelines: make(map[string]*pipeline),
	}
	o.automationMgr = automation.NewManager(bus, logger, cfg.AutomationManagerConfig())
	if cfg.Automation.FileWatcherEnabled {
		o.watcher = filewatcher.NewWatcher(bus, logger, cfg.FileWatcherConfig())
	}
	return o
}

// Start builds, seeds and starts every symbol's pipeline, then launches
// the driver loop on its own goroutine. A failure while starting one
// symbol does not tear down symbols already started.
func (o *Orchestrator) Start(ctx context.Context) error {
	o.automationMgr.Start()
	if o.watcher != nil {
		o.watcher.Start()
	}

	guard, err := risk.NewGuard(o.bus, o.logger, o.cfg.Risk.AccountStopLoss, o.brkr, o.haltTrading)
	if err != nil {
		return err
	}
	o.riskGuard = guard
	if err := o.riskGuard.Start(); err != nil {
		return err
	}

	for _, symbol := range o.cfg.Trading.Symbols {
		p := o.buildPipeline(symbol)
		p.regimeSvc.Seed(ctx, o.source, o.cfg.TypedTimeframes())
		o.mu.Lock()
		o.pipelines[symbol] = p
		o.mu.Unlock()
		o.startPipeline(p)
	}

	o.stopCh = make(chan struct{})
	o.doneCh = make(chan struct{})
	go o.driverLoop()
	return nil
}

func (o *Orchestrator) buildPipeline(symbol string) *pipeline {
	return &pipeline{
		symbol:    symbol,
		fetcher:   datafetch.NewFetcher(o.bus, o.logger, o.cfg.DataFetchConfig(symbol), o.source),
		regimeSvc: regime.NewService(o.bus, o.logger, symbol, o.cfg.Services.Regime),
		evaluator: strategyeval.NewEvaluator(o.bus, o.logger, o.cfg.StrategyEvalConfig(symbol), o.engine, o.entryMgr, o.brkr, o.automationMgr),
		executor:  execution.NewExecutor(o.bus, o.logger, o.cfg.ExecutionConfig(symbol), o.brkr, o.automationMgr),
		monitor:   position.NewMonitor(o.bus, o.logger, o.cfg.PositionConfig(symbol), o.brkr),
	}
}

func (o *Orchestrator) startPipeline(p *pipeline) {
	for _, ns := range p.services() {
		ns.svc.Start()
	}
}

// stopPipeline stops services in reverse dependency order:
// position_monitor -> execution -> evaluation -> indicators -> data.
func (o *Orchestrator) stopPipeline(p *pipeline) {
	services := p.services()
	for i := len(services) - 1; i >= 0; i-- {
		services[i].svc.Stop()
	}
}

// haltTrading stops the execution and evaluation services of every
// symbol, leaving data and indicator services running. It is the risk
// guard's breach callback and is also invoked by the driver loop when
// the guard disallows trading.
func (o *Orchestrator) haltTrading() {
	o.mu.Lock()
	if o.halted {
		o.mu.Unlock()
		return
	}
	o.halted = true
	pipelines := o.orderedPipelinesLocked()
	o.mu.Unlock()

	o.logger.Warn("risk guard requested trading halt, stopping execution and evaluation services")
	for _, p := range pipelines {
		p.executor.Stop()
		p.evaluator.Stop()
	}
}

func (o *Orchestrator) orderedPipelinesLocked() []*pipeline {
	out := make([]*pipeline, 0, len(o.pipelines))
	for _, symbol := range o.cfg.Trading.Symbols {
		if p, ok := o.pipelines[symbol]; ok {
			out = append(out, p)
		}
	}
	return out
}

// driverLoop is the single-threaded tick loop: update risk metrics,
// fetch and check positions per symbol in configured order, health-check
// on its own cadence, then sleep out the remainder of the interval.
func (o *Orchestrator) driverLoop() {
	defer close(o.doneCh)
	ctx := context.Background()
	lastHealthCheck := time.Now()

	for {
		t0 := time.Now()

		o.updateRiskMetrics(ctx)
		if !o.riskGuard.IsTradingAllowed() {
			o.haltTrading()
			return
		}

		o.mu.Lock()
		pipelines := o.orderedPipelinesLocked()
		o.mu.Unlock()

		for _, p := range pipelines {
			o.tickOneSymbol(ctx, p)
		}

		if time.Since(lastHealthCheck) >= o.cfg.Orchestrator.HealthCheckInterval {
			o.healthCheckAll()
			lastHealthCheck = time.Now()
		}

		remaining := o.cfg.Orchestrator.TickInterval - time.Since(t0)
		if remaining < 0 {
			remaining = 0
		}
		select {
		case <-o.stopCh:
			return
		case <-time.After(remaining):
		}
	}
}

// updateRiskMetrics feeds the guard a fresh balance/exposure snapshot.
// Broker failures are logged and skipped; the guard keeps its last
// known state.
func (o *Orchestrator) updateRiskMetrics(ctx context.Context) {
	balance, err := o.brkr.GetBalance(ctx)
	if err != nil {
		o.logger.Warn("balance lookup failed, skipping risk update", zap.Error(err))
		return
	}
	positions, err := o.brkr.GetAllPositions(ctx)
	if err != nil {
		o.logger.Warn("position lookup failed, skipping risk update", zap.Error(err))
		return
	}
	exposure := totalExposure(positions)
	o.riskGuard.UpdateAccountMetrics(ctx, balance, len(positions), exposure)
}

// tickOneSymbol fetches and checks positions for one symbol. A panic
// here must not abort other symbols' work within the same tick, so it
// is recovered and logged.
func (o *Orchestrator) tickOneSymbol(ctx context.Context, p *pipeline) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("symbol tick panicked", zap.String("symbol", p.symbol), zap.Any("recover", r))
		}
	}()

	p.fetcher.Fetch(ctx)
	if p.monitor.Status() == service.StatusRunning {
		p.monitor.CheckPositions(ctx)
	}
}

// healthCheckAll health-checks every service and, when auto-restart is
// on, restarts each unhealthy service individually (stop, short pause,
// start).
func (o *Orchestrator) healthCheckAll() {
	o.mu.Lock()
	pipelines := o.orderedPipelinesLocked()
	o.mu.Unlock()

	for _, p := range pipelines {
		for _, ns := range p.services() {
			if ns.svc.Health().Healthy {
				continue
			}
			o.logger.Warn("unhealthy service detected",
				zap.String("symbol", p.symbol), zap.String("service", ns.name))
			if !o.cfg.Orchestrator.EnableAutoRestart {
				continue
			}
			ns.svc.Stop()
			time.Sleep(time.Second)
			ns.svc.Start()
			o.logger.Info("service restarted",
				zap.String("symbol", p.symbol), zap.String("service", ns.name))
		}
	}
}

// Stop shuts down the driver loop, every symbol's pipeline in reverse
// dependency order, then the watcher, the risk guard and the automation
// manager.
func (o *Orchestrator) Stop() {
	if o.stopCh != nil {
		close(o.stopCh)
		<-o.doneCh
	}

	o.mu.Lock()
	pipelines := o.orderedPipelinesLocked()
	o.mu.Unlock()

	for _, p := range pipelines {
		o.stopPipeline(p)
	}

	if o.watcher != nil {
		o.watcher.Stop()
	}
	if o.riskGuard != nil {
		o.riskGuard.Stop()
	}
	o.automationMgr.Stop()
}

// HealthSnapshot reports every symbol's per-service health.
func (o *Orchestrator) HealthSnapshot() map[string]map[string]service.Health {
	o.mu.Lock()
	pipelines := o.orderedPipelinesLocked()
	o.mu.Unlock()

	out := make(map[string]map[string]service.Health, len(pipelines))
	for _, p := range pipelines {
		m := make(map[string]service.Health)
		for _, ns := range p.services() {
			m[ns.name] = ns.svc.Health()
		}
		out[p.symbol] = m
	}
	return out
}

// AutomationManager exposes the automation manager for the API layer.
func (o *Orchestrator) AutomationManager() *automation.Manager { return o.automationMgr }

// RiskGuard exposes the risk guard for the API layer.
func (o *Orchestrator) RiskGuard() *risk.Guard { return o.riskGuard }

// Bus exposes the shared event bus for the API layer.
func (o *Orchestrator) Bus() *events.Bus { return o.bus }

// totalExposure sums volume*open_price over every open position.
func totalExposure(positions []broker.OpenPosition) decimal.Decimal {
	total := decimal.Zero
	for _, p := range positions {
		total = total.Add(p.Volume.Mul(p.OpenPrice))
	}
	return total
}
