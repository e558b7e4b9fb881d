// Package metrics holds the Prometheus collectors.  Collectors are
// usable before registration; MustRegister exposes them under the
// default registry with a constant service label.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	AuthRegistrationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_registrations_total",
			Help: "Total number of registration attempts.",
		},
		[]string{"result"},
	)

	AuthLoginsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_logins_total",
			Help: "Total number of login attempts.",
		},
		[]string{"result"},
	)

	ReservationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reservations_total",
			Help: "Reservation submissions by outcome (created, updated, rejected).",
		},
		[]string{"result"},
	)

	CheckInsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkins_total",
			Help: "Check-in attempts by outcome.",
		},
		[]string{"result"},
	)

	EmailsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "emails_total",
			Help: "Outbound email deliveries by kind and result.",
		},
		[]string{"kind", "result"},
	)

	AuditFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "audit_write_failures_total",
			Help: "Audit log entries that could not be stored.",
		},
	)
)

// Collectors lists every collector of the package.
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		HTTPRequestsTotal,
		HTTPRequestDurationSeconds,
		AuthRegistrationsTotal,
		AuthLoginsTotal,
		ReservationsTotal,
		CheckInsTotal,
		EmailsTotal,
		AuditFailuresTotal,
	}
}

// MustRegister registers every collector with the default registry,
// labelled with serviceName.
func MustRegister(serviceName string) {
	reg := prometheus.WrapRegistererWith(prometheus.Labels{"service": serviceName}, prometheus.DefaultRegisterer)
	reg.MustRegister(Collectors()...)
}

// Result is the label value for an outcome.
func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
