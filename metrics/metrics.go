// Package metrics collects and exposes Prometheus metrics for the
// authentication handoff.
package metrics

import (
	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tmhaka/handoff"
)

// Collector records auth-flow outcomes as Prometheus counters.
type Collector struct {
	registry  *prometheus.Registry
	logins    *prometheus.CounterVec
	callbacks *prometheus.CounterVec
	logouts   prometheus.Counter
}

var _ handoff.MetricsRecorder = (*Collector)(nil)

// NewCollector creates a Collector and registers its metrics on a
// fresh registry.
func NewCollector() *Collector {
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "handoff_logins_total",
			Help: "Login attempts by provider and outcome.",
		}, []string{"provider", "outcome"}),
		callbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "handoff_callbacks_total",
			Help: "Federated callback attempts by provider and outcome.",
		}, []string{"provider", "outcome"}),
		logouts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "handoff_logouts_total",
			Help: "Logout requests.",
		}),
	}

	registry.MustRegister(c.logins, c.callbacks, c.logouts)
	registry.MustRegister(collectors.NewGoCollector())

	return c
}

// RecordLogin implements handoff.MetricsRecorder.
func (c *Collector) RecordLogin(provider string, success bool) {
	c.logins.WithLabelValues(provider, outcome(success)).Inc()
}

// RecordCallback implements handoff.MetricsRecorder.
func (c *Collector) RecordCallback(provider string, success bool) {
	c.callbacks.WithLabelValues(provider, outcome(success)).Inc()
}

// RecordLogout implements handoff.MetricsRecorder.
func (c *Collector) RecordLogout() {
	c.logouts.Inc()
}

// Handler returns a fiber handler serving the registry in the
// Prometheus exposition format.
func (c *Collector) Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{}))
}

func outcome(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}
