// Package metrics exposes pipeline counters on an independent Prometheus
// registry. A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "ethoimager"

// Skip reasons.
const (
	SkipExists  = "exists"
	SkipInvalid = "invalid"
)

type Metrics struct {
	registry *prometheus.Registry

	framesExtracted    prometheus.Counter
	framesSkipped      *prometheus.CounterVec
	framesAnnotated    prometheus.Counter
	annotationFailures prometheus.Counter
	toolDuration       *prometheus.HistogramVec
	videosBuilt        prometheus.Counter
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		framesExtracted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_extracted_total",
			Help:      "Frames returned by archive queries.",
		}),
		framesSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_skipped_total",
			Help:      "Frames skipped by the annotation stage.",
		}, []string{"reason"}),
		framesAnnotated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_annotated_total",
			Help:      "Frames labeled successfully.",
		}),
		annotationFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "annotation_failures_total",
			Help:      "Frames left raw because the labeling tool failed.",
		}),
		toolDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tool_duration_seconds",
			Help:      "Wall time of external tool invocations.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		}, []string{"tool", "outcome"}),
		videosBuilt: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "videos_built_total",
			Help:      "Encoder runs that exited successfully.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		m.framesExtracted,
		m.framesSkipped,
		m.framesAnnotated,
		m.annotationFailures,
		m.toolDuration,
		m.videosBuilt,
	)

	return m
}

// Handler serves the /metrics scrape endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) FrameExtracted() {
	if m != nil {
		m.framesExtracted.Inc()
	}
}

func (m *Metrics) FrameSkipped(reason string) {
	if m != nil {
		m.framesSkipped.WithLabelValues(reason).Inc()
	}
}

func (m *Metrics) FrameAnnotated() {
	if m != nil {
		m.framesAnnotated.Inc()
	}
}

func (m *Metrics) AnnotationFailed() {
	if m != nil {
		m.annotationFailures.Inc()
	}
}

func (m *Metrics) VideoBuilt() {
	if m != nil {
		m.videosBuilt.Inc()
	}
}

// ObserveTool records one external tool run; ok is false for non-zero exits
// and start failures.
func (m *Metrics) ObserveTool(tool string, d time.Duration, ok bool) {
	if m == nil {
		return
	}
	outcome := "ok"
	if !ok {
		outcome = "failed"
	}
	m.toolDuration.WithLabelValues(tool, outcome).Observe(d.Seconds())
}
