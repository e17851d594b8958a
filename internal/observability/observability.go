package observability

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

/*
Observe holds the metrics registry and tracer provider of a command run.
Metrics are collected in memory and written to a Prometheus textfile on
Shutdown when a file name was given. Tracing is no-op unless a provider is
set with WithTracerProvider.
*/
type Observe struct {
	registry    *prometheus.Registry
	tracer      trace.TracerProvider
	metricsFile string
}

type Option func(*Observe)

func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *Observe) {
		o.tracer = tp
	}
}

func New(metricsFile string, opts ...Option) *Observe {
	o := &Observe{
		registry:    prometheus.NewRegistry(),
		tracer:      noop.NewTracerProvider(),
		metricsFile: metricsFile,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// NOP returns observability which collects metrics in memory only.
func NOP() *Observe {
	return New("")
}

func (o *Observe) Tracer(name string, options ...trace.TracerOption) trace.Tracer {
	return o.tracer.Tracer(name, options...)
}

func (o *Observe) TracerProvider() trace.TracerProvider {
	return o.tracer
}

func (o *Observe) PrometheusRegisterer() prometheus.Registerer {
	return o.registry
}

func (o *Observe) Gatherer() prometheus.Gatherer {
	return o.registry
}

// Shutdown writes the collected metrics to the metrics file, if configured.
func (o *Observe) Shutdown() error {
	if o.metricsFile == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(o.metricsFile, o.registry); err != nil {
		return fmt.Errorf("writing metrics to %s: %w", o.metricsFile, err)
	}
	return nil
}
