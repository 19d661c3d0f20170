// SPDX-License-Identifier: Apache-2.0

package instrumentation

import (
	"context"

	pglib "github.com/xataio/pgbind/internal/postgres"
	"github.com/xataio/pgbind/pkg/otel"
)

// NewQuerierBuilder wraps the queriers returned by the builder on input with
// the instrumentation given.
func NewQuerierBuilder(b pglib.QuerierBuilder, i *otel.Instrumentation) pglib.QuerierBuilder {
	return func(ctx context.Context) (pglib.Querier, error) {
		querier, err := b(ctx)
		if err != nil {
			return nil, err
		}
		return NewQuerier(querier, i)
	}
}
