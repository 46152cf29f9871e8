package api

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	serviceCounterDesc = prometheus.NewDesc(
		"pulsecore_service_counter",
		"Per-service counters (events, errors, trades) keyed by symbol, service and counter name.",
		[]string{"symbol", "service", "counter"}, nil,
	)
	serviceUpDesc = prometheus.NewDesc(
		"pulsecore_service_healthy",
		"1 if the service reports healthy, 0 otherwise.",
		[]string{"symbol", "service"}, nil,
	)
	serviceUptimeDesc = prometheus.NewDesc(
		"pulsecore_service_uptime_seconds",
		"Seconds since the service first transitioned to running.",
		[]string{"symbol", "service"}, nil,
	)
	busCounterDesc = prometheus.NewDesc(
		"pulsecore_bus_counter",
		"Event bus counters: published, delivered, handler errors, history size, subscriptions.",
		[]string{"counter"}, nil,
	)
)

// engineCollector exposes every service's counter map and the bus
// metrics as Prometheus gauges, collected on scrape so no mirroring
// bookkeeping runs in the hot path.
type engineCollector struct {
	orch Orchestrator
}

func newEngineCollector(orch Orchestrator) *engineCollector {
	return &engineCollector{orch: orch}
}

func (c *engineCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- serviceCounterDesc
	ch <- serviceUpDesc
	ch <- serviceUptimeDesc
	ch <- busCounterDesc
}

func (c *engineCollector) Collect(ch chan<- prometheus.Metric) {
	for symbol, services := range c.orch.HealthSnapshot() {
		for name, h := range services {
			healthy := 0.0
			if h.Healthy {
				healthy = 1.0
			}
			ch <- prometheus.MustNewConstMetric(serviceUpDesc, prometheus.GaugeValue, healthy, symbol, name)
			ch <- prometheus.MustNewConstMetric(serviceUptimeDesc, prometheus.GaugeValue, h.UptimeSeconds, symbol, name)
			for counter, v := range h.Metrics {
				ch <- prometheus.MustNewConstMetric(serviceCounterDesc, prometheus.GaugeValue, float64(v), symbol, name, counter)
			}
		}
	}

	bm := c.orch.Bus().GetMetrics()
	ch <- prometheus.MustNewConstMetric(busCounterDesc, prometheus.GaugeValue, float64(bm.EventsPublished), "events_published")
	ch <- prometheus.MustNewConstMetric(busCounterDesc, prometheus.GaugeValue, float64(bm.EventsDelivered), "events_delivered")
	ch <- prometheus.MustNewConstMetric(busCounterDesc, prometheus.GaugeValue, float64(bm.HandlerErrors), "handler_errors")
	ch <- prometheus.MustNewConstMetric(busCounterDesc, prometheus.GaugeValue, float64(bm.EventHistorySize), "event_history_size")
	ch <- prometheus.MustNewConstMetric(busCounterDesc, prometheus.GaugeValue, float64(bm.SubscriptionCount), "subscription_count")
	ch <- prometheus.MustNewConstMetric(busCounterDesc, prometheus.GaugeValue, float64(bm.EventTypesSubscribed), "event_types_subscribed")
}
