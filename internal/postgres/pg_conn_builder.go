// SPDX-License-Identifier: Apache-2.0

package postgres

import "context"

type QuerierBuilder func(context.Context) (Querier, error)

// ConnBuilder returns a builder of connections to the given url, used to
// reconnect after transient failures.
func ConnBuilder(url string, opts ...Option) QuerierBuilder {
	return func(ctx context.Context) (Querier, error) {
		return NewConn(ctx, url, opts...)
	}
}
