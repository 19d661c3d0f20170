// SPDX-License-Identifier: Apache-2.0

package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgconn"
)

// Querier runs queries using client side placeholders. The query can be a
// string, a []byte in the client encoding, or a query.Composable. The params
// are a sequence for %s/%b placeholders, a mapping for %(name)s/%(name)b
// ones, or nil for queries without parameters.
type Querier interface {
	Query(ctx context.Context, query any, params any) (*Result, error)
	Exec(ctx context.Context, query any, params any) (CommandTag, error)
	// ExecMany runs the query once for every set of parameters, and returns
	// the total number of rows affected.
	ExecMany(ctx context.Context, query any, paramSets []any) (int64, error)
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

type CommandTag struct {
	pgconn.CommandTag
}

// Result holds the rows returned by a query, decoded into Go values.
type Result struct {
	Fields     []Field
	Rows       [][]any
	CommandTag CommandTag
}

type Field struct {
	Name        string
	DataTypeOID uint32
}
