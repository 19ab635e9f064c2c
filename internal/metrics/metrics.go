// Package metrics wires the fabric's Prometheus instrumentation.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ConnectedClients = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "presenced_connected_clients",
		Help: "Currently connected WebSocket clients.",
	})

	EventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "presenced_events_total",
			Help: "Inbound client events by type.",
		},
		[]string{"event"},
	)

	NotificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "presenced_notifications_total",
			Help: "Notifications dispatched by category.",
		},
		[]string{"category"},
	)

	ErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "presenced_errors_total",
			Help: "Errors surfaced to clients by taxonomy code.",
		},
		[]string{"code"},
	)

	SearchDegradedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "presenced_search_degraded_total",
		Help: "Suggestion calls where at least one sub-search failed.",
	})

	HealthStatus = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "presenced_health_status",
			Help: "Last health classification (1 for the active status).",
		},
		[]string{"status"},
	)
)

// Init registers the fabric collectors on the default registry.
func Init() {
	prometheus.MustRegister(
		ConnectedClients,
		EventsTotal,
		NotificationsTotal,
		ErrorsTotal,
		SearchDegradedTotal,
		HealthStatus,
	)
}

// Handler serves the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// SetHealthStatus flips the status gauge so exactly one label is hot.
func SetHealthStatus(status string) {
	for _, s := range []string{"healthy", "degraded", "unhealthy"} {
		v := 0.0
		if s == status {
			v = 1.0
		}
		HealthStatus.WithLabelValues(s).Set(v)
	}
}
