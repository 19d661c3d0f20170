// SPDX-License-Identifier: Apache-2.0

package instrumentation

import (
	"context"
	"fmt"

	"github.com/xataio/pgbind/pkg/otel"
	"github.com/xataio/pgbind/pkg/query"
	"go.opentelemetry.io/otel/metric"
)

const (
	parseCacheHitsMetric    = "pgbind.query.parse_cache.hits"
	parseCacheMissesMetric  = "pgbind.query.parse_cache.misses"
	parseCacheEntriesMetric = "pgbind.query.parse_cache.entries"
)

// RegisterParseCacheMetrics reports the parse cache statistics through the
// instrumentation meter every time metrics are collected. It returns a nil
// registration when metrics are not enabled.
func RegisterParseCacheMetrics(cache *query.ParseCache, instrumentation *otel.Instrumentation) (metric.Registration, error) {
	if instrumentation == nil || instrumentation.Meter == nil {
		return nil, nil
	}
	meter := instrumentation.Meter

	hits, err := meter.Int64ObservableCounter(parseCacheHitsMetric,
		metric.WithDescription("Number of queries found already parsed in the cache"))
	if err != nil {
		return nil, fmt.Errorf("initialising parse cache hits metric: %w", err)
	}

	misses, err := meter.Int64ObservableCounter(parseCacheMissesMetric,
		metric.WithDescription("Number of queries parsed because they were not in the cache"))
	if err != nil {
		return nil, fmt.Errorf("initialising parse cache misses metric: %w", err)
	}

	entries, err := meter.Int64ObservableGauge(parseCacheEntriesMetric,
		metric.WithDescription("Number of parsed queries held by the cache"))
	if err != nil {
		return nil, fmt.Errorf("initialising parse cache entries metric: %w", err)
	}

	return meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		stats := cache.Stats()
		o.ObserveInt64(hits, int64(stats.Hits))
		o.ObserveInt64(misses, int64(stats.Misses))
		o.ObserveInt64(entries, int64(stats.Entries))
		return nil
	}, hits, misses, entries)
}
