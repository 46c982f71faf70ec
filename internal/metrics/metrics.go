// Package metrics exports parser outcomes and publish activity in the
// Prometheus exposition format.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"marin-gps/internal/gps"
)

// Metrics owns a private registry so tests and multiple instances never
// collide on the global default registry.
type Metrics struct {
	reg *prometheus.Registry

	sentences *prometheus.CounterVec
	publishes *prometheus.CounterVec
	hasFix    prometheus.Gauge
	sats      prometheus.Gauge
	hdop      prometheus.Gauge
}

func New() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		sentences: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "marin_gps",
			Name:      "sentences_total",
			Help:      "NMEA lines by sentence kind and parse outcome.",
		}, []string{"kind", "outcome"}),
		publishes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "marin_gps",
			Name:      "fix_publishes_total",
			Help:      "Fix snapshots handed to each consumer.",
		}, []string{"sink"}),
		hasFix: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "marin_gps",
			Name:      "has_fix",
			Help:      "1 while the receiver reports a fix.",
		}),
		sats: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "marin_gps",
			Name:      "satellites",
			Help:      "Satellites used in the last GGA.",
		}),
		hdop: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "marin_gps",
			Name:      "hdop",
			Help:      "Last reported horizontal dilution of precision.",
		}),
	}
	m.reg.MustRegister(m.sentences, m.publishes, m.hasFix, m.sats, m.hdop)
	return m
}

// ObserveSentence implements gps.Observer.
func (m *Metrics) ObserveSentence(kind gps.Kind, out gps.Outcome) {
	m.sentences.WithLabelValues(kind.String(), out.String()).Inc()
}

// ObservePublish counts one snapshot delivered to sink (for example "ws" or
// "mqtt").
func (m *Metrics) ObservePublish(sink string) {
	m.publishes.WithLabelValues(sink).Inc()
}

// ObserveFix refreshes the fix gauges from a snapshot.
func (m *Metrics) ObserveFix(s gps.Snapshot) {
	if s.HasFix {
		m.hasFix.Set(1)
	} else {
		m.hasFix.Set(0)
	}
	if s.Satellites != nil {
		m.sats.Set(float64(*s.Satellites))
	}
	if s.HDOP != nil {
		m.hdop.Set(*s.HDOP)
	}
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}
