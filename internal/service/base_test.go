package service

import (
	"errors"
	"testing"

	"github.com/atlas-desktop/pulsecore/internal/events"
)

func TestSetStatusRecordsUptimeOnFirstRunningTransition(t *testing.T) {
	b := NewBase("svc", events.New(nil, events.DefaultConfig()), nil)
	if b.Status() != StatusInitializing {
		t.Fatalf("expected initializing, got %s", b.Status())
	}
	if b.UptimeSeconds() != 0 {
		t.Fatal("expected zero uptime before running")
	}
	b.SetStatus(StatusRunning)
	if b.Status() != StatusRunning {
		t.Fatalf("expected running, got %s", b.Status())
	}
	if b.UptimeSeconds() < 0 {
		t.Fatal("expected non-negative uptime once running")
	}
}

func TestHandleErrorCountsButKeepsServiceRunning(t *testing.T) {
	b := NewBase("svc", events.New(nil, events.DefaultConfig()), nil)
	b.SetStatus(StatusRunning)
	b.HandleError("processing candle", errors.New("boom"))

	if b.Status() != StatusRunning {
		t.Fatalf("expected service to stay running after a processing error, got %s", b.Status())
	}
	metrics := b.MetricsSnapshot()
	if metrics["errors"] != 1 {
		t.Fatalf("expected errors counter to be 1, got %d", metrics["errors"])
	}
}

func TestSetFatalMovesServiceToErrorStatus(t *testing.T) {
	b := NewBase("svc", events.New(nil, events.DefaultConfig()), nil)
	b.SetStatus(StatusRunning)
	b.SetFatal("start", errors.New("bind failed"))

	if b.Status() != StatusError {
		t.Fatalf("expected error status after SetFatal, got %s", b.Status())
	}
	if b.HealthFromThreshold(10).Healthy {
		t.Fatal("expected unhealthy in the error status")
	}
}

func TestHealthFromThresholdUnhealthyBelowThresholdButNotRunning(t *testing.T) {
	b := NewBase("svc", events.New(nil, events.DefaultConfig()), nil)
	h := b.HealthFromThreshold(10)
	if h.Healthy {
		t.Fatal("expected unhealthy before the service ever started running")
	}

	b.SetStatus(StatusRunning)
	h = b.HealthFromThreshold(10)
	if !h.Healthy {
		t.Fatal("expected healthy while running and below the error threshold")
	}

	for i := 0; i < 10; i++ {
		b.HandleError("tick", errors.New("x"))
	}
	h = b.HealthFromThreshold(10)
	if h.Healthy {
		t.Fatal("expected unhealthy once errors reach the threshold")
	}
}

func TestClearErrorStreakRestoresHealthButKeepsCounter(t *testing.T) {
	b := NewBase("svc", events.New(nil, events.DefaultConfig()), nil)
	b.SetStatus(StatusRunning)
	for i := 0; i < 10; i++ {
		b.HandleError("tick", errors.New("x"))
	}
	if b.HealthFromThreshold(10).Healthy {
		t.Fatal("expected unhealthy at a streak of 10")
	}

	b.ClearErrorStreak()
	if !b.HealthFromThreshold(10).Healthy {
		t.Fatal("expected healthy again after a successful input cleared the streak")
	}
	if got := b.MetricsSnapshot()["errors"]; got != 10 {
		t.Fatalf("expected the cumulative errors counter to survive a streak reset, got %d", got)
	}
}

func TestSubscribeToTracksSubscriptionsForUnsubscribeAll(t *testing.T) {
	bus := events.New(nil, events.DefaultConfig())
	b := NewBase("svc", bus, nil)

	calls := 0
	b.SubscribeTo(events.KindNewCandle, func(e events.Event) error {
		calls++
		return nil
	})

	bus.Publish(events.NewCandle{BaseEvent: events.NewBaseEvent("")})
	if calls != 1 {
		t.Fatalf("expected 1 call before UnsubscribeAll, got %d", calls)
	}

	b.UnsubscribeAll()
	bus.Publish(events.NewCandle{BaseEvent: events.NewBaseEvent("")})
	if calls != 1 {
		t.Fatalf("expected no further calls after UnsubscribeAll, got %d total", calls)
	}
}

func TestPublishEventIncrementsEventsPublishedMetric(t *testing.T) {
	bus := events.New(nil, events.DefaultConfig())
	b := NewBase("svc", bus, nil)

	b.PublishEvent(events.NewCandle{BaseEvent: events.NewBaseEvent("")})

	metrics := b.MetricsSnapshot()
	if metrics["events_published"] != 1 {
		t.Fatalf("expected events_published=1, got %d", metrics["events_published"])
	}
}

func TestMetricsSnapshotIsACopy(t *testing.T) {
	b := NewBase("svc", events.New(nil, events.DefaultConfig()), nil)
	b.IncMetric("foo")

	snap := b.MetricsSnapshot()
	snap["foo"] = 999

	if got := b.MetricsSnapshot()["foo"]; got != 1 {
		t.Fatalf("expected mutating the returned snapshot to not affect internal state, got %d", got)
	}
}
