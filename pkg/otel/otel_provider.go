// SPDX-License-Identifier: Apache-2.0

package otel

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/multierr"
)

// Provider exports metrics and traces over OTLP gRPC. The signals missing
// from the config get noop providers.
type Provider struct {
	meterProvider  metric.MeterProvider
	tracerProvider trace.TracerProvider
	resource       *resource.Resource
	shutdownFns    []func(context.Context) error
}

const shutdownTimeout = 5 * time.Second

func NewProvider(ctx context.Context, cfg *Config) (*Provider, error) {
	o := &Provider{
		resource: newResource(cfg.serviceName()),
	}
	if err := o.initMeterProvider(ctx, cfg.Metrics); err != nil {
		return nil, fmt.Errorf("initialising meter provider: %w", err)
	}

	if err := o.initTracerProvider(ctx, cfg.Traces); err != nil {
		// the meter provider might already be running
		return nil, multierr.Append(fmt.Errorf("initialising tracer provider: %w", err), o.Close())
	}

	return o, nil
}

func (o *Provider) Meter(name string) metric.Meter {
	return o.meterProvider.Meter(name)
}

func (o *Provider) Tracer(name string) trace.Tracer {
	return o.tracerProvider.Tracer(name)
}

func (o *Provider) NewInstrumentation(name string) *Instrumentation {
	return &Instrumentation{
		Meter:  o.Meter(name),
		Tracer: o.Tracer(name),
	}
}

// Close flushes and shuts down the configured providers. All of them are
// shut down even if some fail.
func (o *Provider) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var err error
	for _, shutdownFn := range o.shutdownFns {
		err = multierr.Append(err, shutdownFn(ctx))
	}
	return err
}

func (o *Provider) initMeterProvider(ctx context.Context, metricsConfig *MetricsConfig) error {
	if metricsConfig == nil {
		o.meterProvider = metricnoop.NewMeterProvider()
		otel.SetMeterProvider(o.meterProvider)
		return nil
	}

	metricsExporter, err := otlpmetricgrpc.New(ctx,
		otlpmetricgrpc.WithTemporalitySelector(deltaSelector),
		otlpmetricgrpc.WithInsecure(),
		otlpmetricgrpc.WithEndpoint(metricsConfig.Endpoint))
	if err != nil {
		return err
	}

	reader := sdkmetric.NewPeriodicReader(metricsExporter, sdkmetric.WithInterval(metricsConfig.collectionInterval()))
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(o.resource),
		sdkmetric.WithReader(reader))
	o.shutdownFns = append(o.shutdownFns, mp.Shutdown)

	o.meterProvider = mp
	otel.SetMeterProvider(o.meterProvider)

	return nil
}

func (o *Provider) initTracerProvider(ctx context.Context, tracesConfig *TracesConfig) error {
	if tracesConfig == nil {
		o.tracerProvider = tracenoop.NewTracerProvider()
		otel.SetTracerProvider(o.tracerProvider)
		return nil
	}

	traceExporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithInsecure(),
		otlptracegrpc.WithEndpoint(tracesConfig.Endpoint),
	)
	if err != nil {
		return err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(o.resource),
		sdktrace.WithBatcher(traceExporter),
		sdktrace.WithSampler(newSampler(tracesConfig.SampleRatio)))
	o.shutdownFns = append(o.shutdownFns, tp.Shutdown)

	o.tracerProvider = tp
	otel.SetTracerProvider(o.tracerProvider)

	return nil
}

func newResource(serviceName string) *resource.Resource {
	return resource.NewSchemaless(
		semconv.ServiceNameKey.String(serviceName),
		semconv.ServiceVersionKey.String(Version()),
	)
}

// newSampler samples the root spans with the given ratio. Child spans follow
// the decision of their parent, so a query span is kept along with the batch
// or request that issued it.
func newSampler(ratio float64) sdktrace.Sampler {
	switch {
	case ratio >= 1:
		return sdktrace.ParentBased(sdktrace.AlwaysSample())
	case ratio <= 0:
		return sdktrace.ParentBased(sdktrace.NeverSample())
	default:
		return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))
	}
}

// deltaSelector exports counters and histograms as deltas, so restarts of the
// process or the collector don't lose data points. Up/down counters stay
// cumulative.
func deltaSelector(kind sdkmetric.InstrumentKind) metricdata.Temporality {
	switch kind {
	case sdkmetric.InstrumentKindCounter,
		sdkmetric.InstrumentKindHistogram,
		sdkmetric.InstrumentKindObservableGauge,
		sdkmetric.InstrumentKindObservableCounter:
		return metricdata.DeltaTemporality
	case sdkmetric.InstrumentKindUpDownCounter,
		sdkmetric.InstrumentKindObservableUpDownCounter:
		return metricdata.CumulativeTemporality
	default:
		panic("unknown instrument kind")
	}
}
