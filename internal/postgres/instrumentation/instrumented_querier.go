// SPDX-License-Identifier: Apache-2.0

package instrumentation

import (
	"context"
	"fmt"
	"strings"

	"github.com/jonboulle/clockwork"
	pglib "github.com/xataio/pgbind/internal/postgres"
	"github.com/xataio/pgbind/pkg/otel"
	"github.com/xataio/pgbind/pkg/query"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

type Querier struct {
	inner   pglib.Querier
	tracer  trace.Tracer
	meter   metric.Meter
	metrics *metrics
	clock   clockwork.Clock
}

type metrics struct {
	queryLatency metric.Int64Histogram
}

const (
	queryTypeAttributeKey = "query_type"
	queryAttributeKey     = "query"
	batchSizeAttributeKey = "batch_size"
	unknownQueryType      = "unknown"
	composedQueryType     = "composed"
)

func NewQuerier(q pglib.Querier, instrumentation *otel.Instrumentation) (pglib.Querier, error) {
	if !instrumentation.IsEnabled() {
		return q, nil
	}

	querier := &Querier{
		inner:   q,
		tracer:  instrumentation.Tracer,
		meter:   instrumentation.Meter,
		metrics: &metrics{},
		clock:   clockwork.NewRealClock(),
	}

	if err := querier.initMetrics(); err != nil {
		return nil, fmt.Errorf("initialising postgres querier metrics: %w", err)
	}

	return querier, nil
}

func (i *Querier) Query(ctx context.Context, q any, params any) (res *pglib.Result, err error) {
	queryAttrs := queryAttributes(q)
	ctx, span := otel.StartSpan(ctx, i.tracer, "querier.Query", trace.WithAttributes(queryAttrs...))
	defer func() { otel.CloseSpan(span, err) }()
	defer i.recordLatency(ctx, queryAttrs)()

	return i.inner.Query(ctx, q, params)
}

func (i *Querier) Exec(ctx context.Context, q any, params any) (tag pglib.CommandTag, err error) {
	queryAttrs := queryAttributes(q)
	ctx, span := otel.StartSpan(ctx, i.tracer, "querier.Exec", trace.WithAttributes(queryAttrs...))
	defer func() { otel.CloseSpan(span, err) }()
	defer i.recordLatency(ctx, queryAttrs)()

	return i.inner.Exec(ctx, q, params)
}

func (i *Querier) ExecMany(ctx context.Context, q any, paramSets []any) (rowsAffected int64, err error) {
	queryAttrs := queryAttributes(q)
	spanAttrs := append(queryAttrs, attribute.Int(batchSizeAttributeKey, len(paramSets)))
	ctx, span := otel.StartSpan(ctx, i.tracer, "querier.ExecMany", trace.WithAttributes(spanAttrs...))
	defer func() { otel.CloseSpan(span, err) }()
	defer i.recordLatency(ctx, queryAttrs)()

	return i.inner.ExecMany(ctx, q, paramSets)
}

func (i *Querier) Ping(ctx context.Context) (err error) {
	ctx, span := otel.StartSpan(ctx, i.tracer, "querier.Ping")
	defer func() { otel.CloseSpan(span, err) }()
	return i.inner.Ping(ctx)
}

func (i *Querier) Close(ctx context.Context) error {
	return i.inner.Close(ctx)
}

// recordLatency returns the function recording the time elapsed since it
// was called. It's a noop when metrics are disabled.
func (i *Querier) recordLatency(ctx context.Context, attrs []attribute.KeyValue) func() {
	if i.meter == nil {
		return func() {}
	}
	startTime := i.clock.Now()
	return func() {
		i.metrics.queryLatency.Record(ctx, i.clock.Since(startTime).Milliseconds(), metric.WithAttributes(attrs...))
	}
}

func (i *Querier) initMetrics() error {
	if i.meter == nil {
		return nil
	}

	var err error
	i.metrics.queryLatency, err = i.meter.Int64Histogram("pgbind.postgres.querier.latency",
		metric.WithUnit("ms"),
		metric.WithDescription("Distribution of the time taken to perform a query"))
	if err != nil {
		return err
	}

	return nil
}

func queryAttributes(q any) []attribute.KeyValue {
	var text string
	switch v := q.(type) {
	case string:
		text = v
	case []byte:
		text = string(v)
	case query.Composable:
		return []attribute.KeyValue{attribute.String(queryTypeAttributeKey, composedQueryType)}
	}

	fields := strings.Fields(text)
	if len(fields) == 0 {
		return []attribute.KeyValue{attribute.String(queryTypeAttributeKey, unknownQueryType)}
	}

	return []attribute.KeyValue{
		attribute.String(queryTypeAttributeKey, strings.ToUpper(fields[0])),
		attribute.String(queryAttributeKey, text),
	}
}
