package rpcserver

import "github.com/prometheus/client_golang/prometheus"

// metrics is the registry of counters/gauges/histograms tracking call
// volume, latency, active streams, tracked sessions and mapping
// expirations.
type metrics struct {
	registry           *prometheus.Registry
	callsTotal         *prometheus.CounterVec
	callLatencySeconds *prometheus.HistogramVec
	activeStreams      prometheus.Gauge
	sessionsGauge      prometheus.Gauge
	mappingExpirations *prometheus.CounterVec
}

func newMetrics() *metrics {
	reg := prometheus.NewRegistry()
	m := &metrics{
		registry: reg,
		callsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "erebus_calls_total",
			Help: "Total Generic calls by request name and result.",
		}, []string{"request", "result"}),
		callLatencySeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name: "erebus_call_latency_seconds",
			Help: "Generic call latency in seconds by request name.",
		}, []string{"request"}),
		activeStreams: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "erebus_active_streams",
			Help: "Number of currently open GenericStream calls.",
		}),
		sessionsGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "erebus_sessions",
			Help: "Number of tracked client sessions.",
		}),
		mappingExpirations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "erebus_mapping_expirations_total",
			Help: "Total PROPERTY_MAPPING_EXPIRED replies by direction.",
		}, []string{"direction"}),
	}
	reg.MustRegister(m.callsTotal, m.callLatencySeconds, m.activeStreams, m.sessionsGauge, m.mappingExpirations)
	return m
}

// Registry exposes the prometheus registry for an http.Handler
// (promhttp.HandlerFor), served on a separate debug port from the grpc
// service.
func (s *Server) Registry() *prometheus.Registry { return s.metrics.registry }
