// SPDX-License-Identifier: Apache-2.0

package mocks

import (
	"context"
	"sync/atomic"

	"github.com/xataio/pgbind/internal/postgres"
)

type Querier struct {
	QueryFn       func(ctx context.Context, i uint, query any, params any) (*postgres.Result, error)
	ExecFn        func(ctx context.Context, i uint, query any, params any) (postgres.CommandTag, error)
	ExecManyFn    func(ctx context.Context, i uint, query any, paramSets []any) (int64, error)
	PingFn        func(ctx context.Context) error
	CloseFn       func(ctx context.Context) error
	queryCalls    uint32
	execCalls     uint32
	execManyCalls uint32
}

func (m *Querier) Query(ctx context.Context, query any, params any) (*postgres.Result, error) {
	i := atomic.AddUint32(&m.queryCalls, 1)
	return m.QueryFn(ctx, uint(i), query, params)
}

func (m *Querier) Exec(ctx context.Context, query any, params any) (postgres.CommandTag, error) {
	i := atomic.AddUint32(&m.execCalls, 1)
	return m.ExecFn(ctx, uint(i), query, params)
}

func (m *Querier) ExecMany(ctx context.Context, query any, paramSets []any) (int64, error) {
	i := atomic.AddUint32(&m.execManyCalls, 1)
	return m.ExecManyFn(ctx, uint(i), query, paramSets)
}

func (m *Querier) Ping(ctx context.Context) error {
	if m.PingFn == nil {
		return nil
	}
	return m.PingFn(ctx)
}

func (m *Querier) Close(ctx context.Context) error {
	if m.CloseFn == nil {
		return nil
	}
	return m.CloseFn(ctx)
}

func (m *Querier) QueryCalls() uint {
	return uint(atomic.LoadUint32(&m.queryCalls))
}

func (m *Querier) ExecCalls() uint {
	return uint(atomic.LoadUint32(&m.execCalls))
}

func (m *Querier) ExecManyCalls() uint {
	return uint(atomic.LoadUint32(&m.execManyCalls))
}
