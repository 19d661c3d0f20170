// SPDX-License-Identifier: Apache-2.0

package otel

import (
	"context"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// InstrumentationProvider hands out the meter and tracer used by each
// instrumented component.
type InstrumentationProvider interface {
	NewInstrumentation(name string) *Instrumentation
	Close() error
}

// Instrumentation is the meter and tracer of one component. A nil
// instrumentation, or one without meter and tracer, is disabled and the
// component is used without wrapping.
type Instrumentation struct {
	Meter  metric.Meter
	Tracer trace.Tracer
}

func (i *Instrumentation) IsEnabled() bool {
	return i != nil && (i.Meter != nil || i.Tracer != nil)
}

type noopProvider struct{}

func (p *noopProvider) NewInstrumentation(string) *Instrumentation {
	return nil
}

func (p *noopProvider) Close() error {
	return nil
}

// NewInstrumentationProvider returns a provider exporting the signals
// enabled in the config, or a noop provider when none is.
func NewInstrumentationProvider(ctx context.Context, cfg *Config) (InstrumentationProvider, error) {
	if !cfg.IsEnabled() {
		return &noopProvider{}, nil
	}
	return NewProvider(ctx, cfg)
}
