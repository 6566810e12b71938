package metrics

import (
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds application counters exposed through Prometheus.
type Metrics struct {
	FramesReceived   atomic.Uint64
	DetectionsRun    atomic.Uint64
	DetectionErrors  atomic.Uint64
	AssessmentsSaved atomic.Uint64
	SaveErrors       atomic.Uint64
	StreamClients    atomic.Uint64
	TotalClients     atomic.Uint64

	registry *prometheus.Registry
}

// New creates a Metrics instance with its collectors registered.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
	}

	m.registerPrometheusMetrics()

	return m
}

func (m *Metrics) registerPrometheusMetrics() {
	gauges := []struct {
		name string
		help string
		load func() float64
	}{
		{"scanner_frames_received_total", "Total video frames received on the stream", func() float64 { return float64(m.FramesReceived.Load()) }},
		{"scanner_detections_run_total", "Total detection passes executed", func() float64 { return float64(m.DetectionsRun.Load()) }},
		{"scanner_detection_errors_total", "Total detection failures", func() float64 { return float64(m.DetectionErrors.Load()) }},
		{"scanner_assessments_saved_total", "Total assessment records persisted", func() float64 { return float64(m.AssessmentsSaved.Load()) }},
		{"scanner_save_errors_total", "Total failed assessment saves", func() float64 { return float64(m.SaveErrors.Load()) }},
		{"scanner_stream_clients", "Currently connected stream clients", func() float64 { return float64(m.StreamClients.Load()) }},
		{"scanner_stream_clients_total", "Stream clients connected since start", func() float64 { return float64(m.TotalClients.Load()) }},
	}

	for _, g := range gauges {
		m.registry.MustRegister(prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{Name: g.name, Help: g.help},
			g.load,
		))
	}
}

// Handler returns the HTTP handler serving the Prometheus endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
