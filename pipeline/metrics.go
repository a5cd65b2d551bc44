package pipeline

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics encapsulates Prometheus metrics for pipeline stages.
type Metrics struct {
	registry       *prometheus.Registry
	ItemsTotal     *prometheus.CounterVec
	ErrorsTotal    *prometheus.CounterVec
	InvokeDuration *prometheus.HistogramVec
	ActiveStreams  *prometheus.GaugeVec
}

// NewMetrics creates a Metrics instance with its own registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	m := &Metrics{
		registry: registry,
		ItemsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "textflow_stage_items_total",
				Help: "Total number of stream items processed by stage",
			},
			[]string{"stage"},
		),
		ErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "textflow_stage_errors_total",
				Help: "Total number of item and invoke errors by stage",
			},
			[]string{"stage"},
		),
		InvokeDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "textflow_stage_invoke_duration_seconds",
				Help:    "Duration of single-value invocations by stage",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"stage"},
		),
		ActiveStreams: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "textflow_stage_active_streams",
				Help: "Number of streams currently flowing through each stage",
			},
			[]string{"stage"},
		),
	}

	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	return m
}

// Handler returns a handler for the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: false,
	})
}

// instrumented decorates a stage with metrics. The wrapped stage's behavior
// is unchanged; counts and durations are recorded around it.
type instrumented[In, Out any] struct {
	name    string
	inner   Stage[In, Out]
	metrics *Metrics
}

// Instrument wraps a stage so its item throughput, errors and invoke
// latency are recorded under the given stage name.
func Instrument[In, Out any](name string, inner Stage[In, Out], m *Metrics) Stage[In, Out] {
	return instrumented[In, Out]{name: name, inner: inner, metrics: m}
}

func (s instrumented[In, Out]) Invoke(ctx context.Context, input In) (Out, error) {
	start := time.Now()
	out, err := s.inner.Invoke(ctx, input)
	s.metrics.InvokeDuration.WithLabelValues(s.name).Observe(time.Since(start).Seconds())
	if err != nil {
		s.metrics.ErrorsTotal.WithLabelValues(s.name).Inc()
	}
	return out, err
}

func (s instrumented[In, Out]) Transform(ctx context.Context, in <-chan Item[In]) <-chan Item[Out] {
	inner := s.inner.Transform(ctx, in)
	out := make(chan Item[Out])
	s.metrics.ActiveStreams.WithLabelValues(s.name).Inc()
	go func() {
		defer close(out)
		defer s.metrics.ActiveStreams.WithLabelValues(s.name).Dec()
		for {
			select {
			case <-ctx.Done():
				return
			case item, ok := <-inner:
				if !ok {
					return
				}
				s.metrics.ItemsTotal.WithLabelValues(s.name).Inc()
				if item.Err != nil {
					s.metrics.ErrorsTotal.WithLabelValues(s.name).Inc()
				}
				select {
				case <-ctx.Done():
					return
				case out <- item:
				}
			}
		}
	}()
	return out
}
