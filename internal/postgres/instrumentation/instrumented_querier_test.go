// SPDX-License-Identifier: Apache-2.0

package instrumentation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
	pglib "github.com/xataio/pgbind/internal/postgres"
	"github.com/xataio/pgbind/internal/postgres/mocks"
	"github.com/xataio/pgbind/pkg/otel"
	"github.com/xataio/pgbind/pkg/query"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestNewQuerier_disabled(t *testing.T) {
	t.Parallel()

	inner := &mocks.Querier{}
	q, err := NewQuerier(inner, nil)
	require.NoError(t, err)
	require.Equal(t, inner, q)
}

func TestQuerier_Query(t *testing.T) {
	t.Parallel()

	errTest := errors.New("oh noes")

	tests := []struct {
		name    string
		queryFn func(clock *clockwork.FakeClock) func(context.Context, uint, any, any) (*pglib.Result, error)

		wantErr     error
		wantStatus  codes.Code
		wantLatency int64
	}{
		{
			name: "ok",
			queryFn: func(clock *clockwork.FakeClock) func(context.Context, uint, any, any) (*pglib.Result, error) {
				return func(context.Context, uint, any, any) (*pglib.Result, error) {
					clock.Advance(50 * time.Millisecond)
					return &pglib.Result{}, nil
				}
			},
			wantStatus:  codes.Unset,
			wantLatency: 50,
		},
		{
			name: "error",
			queryFn: func(clock *clockwork.FakeClock) func(context.Context, uint, any, any) (*pglib.Result, error) {
				return func(context.Context, uint, any, any) (*pglib.Result, error) {
					clock.Advance(5 * time.Millisecond)
					return nil, errTest
				}
			},
			wantErr:     errTest,
			wantStatus:  codes.Error,
			wantLatency: 5,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			spanRecorder := tracetest.NewSpanRecorder()
			tracerProvider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spanRecorder))
			reader := sdkmetric.NewManualReader()
			meterProvider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

			clock := clockwork.NewFakeClock()
			q, err := NewQuerier(&mocks.Querier{QueryFn: tc.queryFn(clock)}, &otel.Instrumentation{
				Tracer: tracerProvider.Tracer("test"),
				Meter:  meterProvider.Meter("test"),
			})
			require.NoError(t, err)
			q.(*Querier).clock = clock

			_, err = q.Query(context.Background(), "select * from users where id = %s", []any{1})
			require.ErrorIs(t, err, tc.wantErr)

			spans := spanRecorder.Ended()
			require.Len(t, spans, 1)
			require.Equal(t, "querier.Query", spans[0].Name())
			require.Equal(t, tc.wantStatus, spans[0].Status().Code)
			require.ElementsMatch(t, []attribute.KeyValue{
				attribute.String(queryTypeAttributeKey, "SELECT"),
				attribute.String(queryAttributeKey, "select * from users where id = %s"),
			}, spans[0].Attributes())

			rm := metricdata.ResourceMetrics{}
			require.NoError(t, reader.Collect(context.Background(), &rm))
			require.Len(t, rm.ScopeMetrics, 1)
			require.Len(t, rm.ScopeMetrics[0].Metrics, 1)
			histogram, ok := rm.ScopeMetrics[0].Metrics[0].Data.(metricdata.Histogram[int64])
			require.True(t, ok)
			require.Len(t, histogram.DataPoints, 1)
			require.Equal(t, uint64(1), histogram.DataPoints[0].Count)
			require.Equal(t, tc.wantLatency, histogram.DataPoints[0].Sum)
		})
	}
}

func TestQuerier_ExecMany(t *testing.T) {
	t.Parallel()

	spanRecorder := tracetest.NewSpanRecorder()
	tracerProvider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spanRecorder))

	q, err := NewQuerier(&mocks.Querier{
		ExecManyFn: func(_ context.Context, _ uint, _ any, paramSets []any) (int64, error) {
			return int64(len(paramSets)), nil
		},
	}, &otel.Instrumentation{Tracer: tracerProvider.Tracer("test")})
	require.NoError(t, err)

	rows, err := q.ExecMany(context.Background(), "insert into t values (%s)", []any{[]any{1}, []any{2}})
	require.NoError(t, err)
	require.Equal(t, int64(2), rows)

	spans := spanRecorder.Ended()
	require.Len(t, spans, 1)
	require.Equal(t, "querier.ExecMany", spans[0].Name())
	require.Contains(t, spans[0].Attributes(), attribute.Int(batchSizeAttributeKey, 2))
}

type composedQuery struct{}

func (composedQuery) AsString(query.Transformer) (string, error) { return "select 1", nil }

func TestQueryAttributes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		query any

		wantAttrs []attribute.KeyValue
	}{
		{
			name:  "string query",
			query: "  insert into t values (%s)",
			wantAttrs: []attribute.KeyValue{
				attribute.String(queryTypeAttributeKey, "INSERT"),
				attribute.String(queryAttributeKey, "  insert into t values (%s)"),
			},
		},
		{
			name:  "bytes query",
			query: []byte("delete from t"),
			wantAttrs: []attribute.KeyValue{
				attribute.String(queryTypeAttributeKey, "DELETE"),
				attribute.String(queryAttributeKey, "delete from t"),
			},
		},
		{
			name:      "composed query",
			query:     composedQuery{},
			wantAttrs: []attribute.KeyValue{attribute.String(queryTypeAttributeKey, composedQueryType)},
		},
		{
			name:      "empty query",
			query:     "",
			wantAttrs: []attribute.KeyValue{attribute.String(queryTypeAttributeKey, unknownQueryType)},
		},
		{
			name:      "unsupported query type",
			query:     42,
			wantAttrs: []attribute.KeyValue{attribute.String(queryTypeAttributeKey, unknownQueryType)},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tc.wantAttrs, queryAttributes(tc.query))
		})
	}
}
