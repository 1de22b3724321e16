package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	registry            *prometheus.Registry
	SessionActive       prometheus.Gauge
	EntriesTotal        prometheus.Counter
	BodyBytesTotal      *prometheus.CounterVec
	RotationsTotal      *prometheus.CounterVec
	WorkerFailuresTotal *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	r := prometheus.NewRegistry()
	m := &Metrics{
		registry: r,
		SessionActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "http_recorder",
			Name:      "session_active",
			Help:      "1 while a capture session is open",
		}),
		EntriesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "http_recorder",
			Name:      "entries_total",
			Help:      "Total entries accepted by the recorder",
		}),
		BodyBytesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "http_recorder",
			Name:      "body_bytes_total",
			Help:      "Total captured body bytes by direction",
		}, []string{"direction"}),
		RotationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "http_recorder",
			Name:      "rotations_total",
			Help:      "Total output rotations by stage",
		}, []string{"stage"}),
		WorkerFailuresTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "http_recorder",
			Name:      "worker_failures_total",
			Help:      "Total terminal sink worker failures",
		}, []string{"worker"}),
	}
	r.MustRegister(m.SessionActive, m.EntriesTotal, m.BodyBytesTotal, m.RotationsTotal, m.WorkerFailuresTotal)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }
