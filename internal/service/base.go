// Package service provides the lifecycle, subscription bookkeeping,
// metrics and health-check scaffolding shared by every pipeline
// service.
package service

import (
	"sync"
	"time"

	"github.com/atlas-desktop/pulsecore/internal/events"
	"go.uber.org/zap"
)

// Status is the lifecycle state of a service.
type Status string

const (
	StatusInitializing Status = "initializing"
	StatusRunning      Status = "running"
	StatusStopped      Status = "stopped"
	StatusError        Status = "error"
)

// Health is the result of a health_check() call.
type Health struct {
	ServiceName   string
	Status        Status
	Healthy       bool
	UptimeSeconds float64
	LastError     string
	Metrics       map[string]uint64
}

// Base is embedded by every pipeline service. It is not itself a Bus
// subscriber; embedders call SubscribeTo/PublishEvent through it so
// every subscription is tracked for Stop's unsubscribe-all.
type Base struct {
	mu   sync.RWMutex
	name string
	bus  *events.Bus
	log  *zap.Logger

	status          Status
	startedAt       time.Time
	lastError       string
	errorStreak     uint64
	subscriptionIDs []string
	metrics         map[string]uint64
}

// NewBase constructs a Base in the initializing state.
func NewBase(name string, bus *events.Bus, logger *zap.Logger) *Base {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Base{
		name:    name,
		bus:     bus,
		log:     logger.Named(name),
		status:  StatusInitializing,
		metrics: make(map[string]uint64),
	}
}

// Name returns the service name this Base was constructed with.
func (b *Base) Name() string { return b.name }

// Logger returns the named child logger for this service.
func (b *Base) Logger() *zap.Logger { return b.log }

// Bus returns the shared event bus.
func (b *Base) Bus() *events.Bus { return b.bus }

// SetStatus transitions the service's lifecycle status, recording the
// start time the first time it enters running.
func (b *Base) SetStatus(s Status) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if s == StatusRunning {
		if b.startedAt.IsZero() {
			b.startedAt = time.Now()
		}
		b.errorStreak = 0
	}
	prev := b.status
	b.status = s
	if prev != s {
		b.log.Info("status transition", zap.String("from", string(prev)), zap.String("to", string(s)))
	}
}

// Status returns the current lifecycle status.
func (b *Base) Status() Status {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.status
}

// HandleError records a recoverable processing error: increments the
// "errors" counter and the consecutive-error streak, and stores the
// message. The service stays in its current lifecycle status so
// subsequent inputs keep being processed; health turns unhealthy once
// the streak reaches the service's threshold.
func (b *Base) HandleError(context string, err error) {
	b.mu.Lock()
	b.metrics["errors"]++
	b.errorStreak++
	b.lastError = context + ": " + err.Error()
	b.mu.Unlock()
	b.log.Error("service error", zap.String("context", context), zap.Error(err))
}

// ClearErrorStreak resets the consecutive-error streak. Services call
// it after successfully processing an input; the cumulative "errors"
// counter is unaffected.
func (b *Base) ClearErrorStreak() {
	b.mu.Lock()
	b.errorStreak = 0
	b.mu.Unlock()
}

// SetFatal records an unrecoverable failure (start/stop) and moves the
// service to the error status.
func (b *Base) SetFatal(context string, err error) {
	b.mu.Lock()
	b.lastError = context + ": " + err.Error()
	b.status = StatusError
	b.mu.Unlock()
	b.log.Error("fatal service error", zap.String("context", context), zap.Error(err))
}

// IncMetric increments a named counter by one.
func (b *Base) IncMetric(name string) {
	b.mu.Lock()
	b.metrics[name]++
	b.mu.Unlock()
}

// AddMetric adds delta to a named counter.
func (b *Base) AddMetric(name string, delta uint64) {
	b.mu.Lock()
	b.metrics[name] += delta
	b.mu.Unlock()
}

// SubscribeTo wraps bus.Subscribe and records the subscription ID so
// Stop's UnsubscribeAll can release it.
func (b *Base) SubscribeTo(kind events.Kind, handler events.Handler) string {
	id := b.bus.Subscribe(kind, handler)
	b.mu.Lock()
	b.subscriptionIDs = append(b.subscriptionIDs, id)
	b.mu.Unlock()
	return id
}

// UnsubscribeAll releases every subscription this service has recorded.
// Called from Stop.
func (b *Base) UnsubscribeAll() {
	b.mu.Lock()
	ids := b.subscriptionIDs
	b.subscriptionIDs = nil
	b.mu.Unlock()

	for _, id := range ids {
		b.bus.Unsubscribe(id)
	}
}

// PublishEvent publishes ev and increments events_published.
func (b *Base) PublishEvent(ev events.Event) {
	b.bus.Publish(ev)
	b.IncMetric("events_published")
}

// UptimeSeconds returns 0 before the first transition to running.
func (b *Base) UptimeSeconds() float64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.startedAt.IsZero() {
		return 0
	}
	return time.Since(b.startedAt).Seconds()
}

// MetricsSnapshot returns a copy of the service's counters.
func (b *Base) MetricsSnapshot() map[string]uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make(map[string]uint64, len(b.metrics))
	for k, v := range b.metrics {
		out[k] = v
	}
	return out
}

// HealthFromThreshold builds a Health snapshot; the service is
// unhealthy if it is not running or its consecutive-error streak has
// reached threshold.
func (b *Base) HealthFromThreshold(threshold uint64) Health {
	b.mu.RLock()
	status := b.status
	lastErr := b.lastError
	streak := b.errorStreak
	b.mu.RUnlock()

	healthy := status == StatusRunning && streak < threshold
	return Health{
		ServiceName:   b.name,
		Status:        status,
		Healthy:       healthy,
		UptimeSeconds: b.UptimeSeconds(),
		LastError:     lastErr,
		Metrics:       b.MetricsSnapshot(),
	}
}
