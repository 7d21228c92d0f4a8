// Package metrics exposes Prometheus metrics for both relay endpoints.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Session error kinds.
const (
	KindRead    = "read"
	KindHandler = "handler"
	KindPanic   = "panic"
)

// Metrics contains all Prometheus metrics of the relay. Every metric is
// labelled with the endpoint name.
type Metrics struct {
	BindFailures        *prometheus.CounterVec
	ConnectionsAccepted *prometheus.CounterVec
	AcceptErrors        *prometheus.CounterVec
	ActiveSessions      *prometheus.GaugeVec
	SessionErrors       *prometheus.CounterVec
	MessagesProcessed   *prometheus.CounterVec
}

// New creates all metrics and registers them with reg.
// Pass prometheus.DefaultRegisterer to expose them on the default registry.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		BindFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "tabletrelay_bind_failures_total",
			Help: "Total number of endpoints that failed to bind",
		}, []string{"endpoint"}),
		ConnectionsAccepted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "tabletrelay_connections_accepted_total",
			Help: "Total number of WebSocket connections that completed the handshake",
		}, []string{"endpoint"}),
		AcceptErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "tabletrelay_accept_errors_total",
			Help: "Total number of failed accepts and handshakes",
		}, []string{"endpoint"}),
		ActiveSessions: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "tabletrelay_active_sessions",
			Help: "Current number of running sessions",
		}, []string{"endpoint"}),
		SessionErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "tabletrelay_session_errors_total",
			Help: "Total number of sessions that ended with an error, by kind",
		}, []string{"endpoint", "kind"}),
		MessagesProcessed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "tabletrelay_messages_processed_total",
			Help: "Total number of inbound messages handed to stream handlers, by type",
		}, []string{"endpoint", "type"}),
	}
}

// Handler serves the metrics gathered by g in the Prometheus text format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
