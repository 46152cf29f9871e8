package events

import (
	"sync"

	"go.uber.org/zap"
)

// Config configures a Bus.
type Config struct {
	// HistoryLimit bounds the ring buffer of past events kept for
	// getHistory(). Zero disables history retention entirely.
	HistoryLimit int
	// LogAllEvents logs every publish at debug level; expensive, off by
	// default.
	LogAllEvents bool
}

// DefaultConfig returns the bus defaults used when none are supplied.
func DefaultConfig() Config {
	return Config{HistoryLimit: 1000, LogAllEvents: false}
}

type subscriptionEntry struct {
	id      string
	handler Handler
}

// Metrics are the bus-wide delivery counters plus derived subscription
// stats.
type Metrics struct {
	EventsPublished      uint64
	EventsDelivered      uint64
	HandlerErrors        uint64
	EventHistorySize     int
	SubscriptionCount    int
	EventTypesSubscribed int
}

// Bus is the in-process, synchronous, typed publish/subscribe event
// bus. Publish calls handlers for the event's concrete Kind in
// subscription order, on the caller's goroutine; a handler's error (or
// panic) is isolated, counted, logged, and never escapes Publish.
type Bus struct {
	mu     sync.Mutex
	logger *zap.Logger
	cfg    Config

	subscriptions map[Kind][]subscriptionEntry
	history       []Event // ring buffer, oldest first
	historyHead   int
	historyFull   bool

	subCounter int
	metrics    Metrics
}

// New builds a Bus. logger may be nil, in which case a no-op logger is
// used.
func New(logger *zap.Logger, cfg Config) *Bus {
	if logger == nil {
		logger = zap.NewNop()
	}
	b := &Bus{
		logger:        logger.Named("eventbus"),
		cfg:           cfg,
		subscriptions: make(map[Kind][]subscriptionEntry),
	}
	if cfg.HistoryLimit > 0 {
		b.history = make([]Event, cfg.HistoryLimit)
	}
	return b
}

// Subscribe registers handler for events of the given kind and returns a
// subscription ID usable with Unsubscribe.
func (b *Bus) Subscribe(kind Kind, handler Handler) string {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.subCounter++
	subID := subscriptionID(b.subCounter, kind)
	b.subscriptions[kind] = append(b.subscriptions[kind], subscriptionEntry{id: subID, handler: handler})

	b.logger.Debug("subscribed",
		zap.String("subscription_id", subID),
		zap.String("kind", string(kind)),
		zap.Int("total_subscribers", len(b.subscriptions[kind])),
	)
	return subID
}

func subscriptionID(counter int, kind Kind) string {
	return "sub_" + itoa(counter) + "_" + string(kind)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// Unsubscribe removes a previously registered subscription. Returns
// false if the ID is not found.
func (b *Bus) Unsubscribe(subscriptionID string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	for kind, entries := range b.subscriptions {
		for i, e := range entries {
			if e.id == subscriptionID {
				b.subscriptions[kind] = append(entries[:i], entries[i+1:]...)
				b.logger.Debug("unsubscribed", zap.String("subscription_id", subscriptionID))
				return true
			}
		}
	}
	b.logger.Warn("subscription not found", zap.String("subscription_id", subscriptionID))
	return false
}

// Publish delivers event synchronously to every subscriber of its Kind,
// in subscription order, on the caller's goroutine. A stable snapshot of
// the subscriber list is taken before dispatch so a handler that
// subscribes/unsubscribes mid-delivery cannot corrupt the in-flight
// fan-out.
func (b *Bus) Publish(event Event) {
	b.mu.Lock()
	if b.cfg.LogAllEvents {
		b.logger.Debug("publishing", zap.String("kind", string(event.Kind())), zap.String("event_id", event.EventID()))
	}
	b.appendHistory(event)
	b.metrics.EventsPublished++

	snapshot := make([]subscriptionEntry, len(b.subscriptions[event.Kind()]))
	copy(snapshot, b.subscriptions[event.Kind()])
	b.mu.Unlock()

	if len(snapshot) == 0 {
		b.logger.Debug("no subscribers", zap.String("kind", string(event.Kind())))
		return
	}

	for _, entry := range snapshot {
		b.dispatchOne(entry, event)
	}
}

func (b *Bus) dispatchOne(entry subscriptionEntry, event Event) {
	defer func() {
		if r := recover(); r != nil {
			b.mu.Lock()
			b.metrics.HandlerErrors++
			b.mu.Unlock()
			b.logger.Error("handler panicked",
				zap.String("subscription_id", entry.id),
				zap.String("kind", string(event.Kind())),
				zap.Any("panic", r),
			)
		}
	}()

	if err := entry.handler(event); err != nil {
		b.mu.Lock()
		b.metrics.HandlerErrors++
		b.mu.Unlock()
		b.logger.Error("handler error",
			zap.String("subscription_id", entry.id),
			zap.String("kind", string(event.Kind())),
			zap.Error(err),
		)
		return
	}

	b.mu.Lock()
	b.metrics.EventsDelivered++
	b.mu.Unlock()
}

func (b *Bus) appendHistory(event Event) {
	if b.cfg.HistoryLimit <= 0 {
		return
	}
	b.history[b.historyHead] = event
	b.historyHead = (b.historyHead + 1) % b.cfg.HistoryLimit
	if b.historyHead == 0 {
		b.historyFull = true
	}
}

// GetHistory returns events from the ring buffer in publication order,
// optionally filtered by kind and tail-limited. limit<=0 means no limit.
func (b *Bus) GetHistory(kind Kind, limit int) []Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	ordered := b.orderedHistoryLocked()
	if kind != "" {
		filtered := ordered[:0:0]
		for _, e := range ordered {
			if e.Kind() == kind {
				filtered = append(filtered, e)
			}
		}
		ordered = filtered
	}
	if limit > 0 && len(ordered) > limit {
		ordered = ordered[len(ordered)-limit:]
	}
	out := make([]Event, len(ordered))
	copy(out, ordered)
	return out
}

func (b *Bus) orderedHistoryLocked() []Event {
	if b.cfg.HistoryLimit <= 0 {
		return nil
	}
	if !b.historyFull {
		return b.history[:b.historyHead]
	}
	out := make([]Event, 0, b.cfg.HistoryLimit)
	out = append(out, b.history[b.historyHead:]...)
	out = append(out, b.history[:b.historyHead]...)
	return out
}

// ClearHistory empties the ring buffer. Useful for tests.
func (b *Bus) ClearHistory() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cfg.HistoryLimit > 0 {
		b.history = make([]Event, b.cfg.HistoryLimit)
	}
	b.historyHead = 0
	b.historyFull = false
}

// GetMetrics returns a snapshot of the bus's counters plus derived
// subscription stats.
func (b *Bus) GetMetrics() Metrics {
	b.mu.Lock()
	defer b.mu.Unlock()

	m := b.metrics
	m.EventHistorySize = len(b.orderedHistoryLocked())
	subCount := 0
	for _, entries := range b.subscriptions {
		subCount += len(entries)
	}
	m.SubscriptionCount = subCount
	m.EventTypesSubscribed = len(b.subscriptions)
	return m
}

// SubscriberCount returns the number of active subscribers for kind.
func (b *Bus) SubscriberCount(kind Kind) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subscriptions[kind])
}
