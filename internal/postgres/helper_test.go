// SPDX-License-Identifier: Apache-2.0

package postgres

import "context"

type mockQuerier struct {
	queryFn func(ctx context.Context, query any, params any) (*Result, error)
}

func (m *mockQuerier) Query(ctx context.Context, query any, params any) (*Result, error) {
	return m.queryFn(ctx, query, params)
}

func (m *mockQuerier) Exec(ctx context.Context, query any, params any) (CommandTag, error) {
	return CommandTag{}, nil
}

func (m *mockQuerier) ExecMany(ctx context.Context, query any, paramSets []any) (int64, error) {
	return 0, nil
}

func (m *mockQuerier) Ping(ctx context.Context) error {
	return nil
}

func (m *mockQuerier) Close(ctx context.Context) error {
	return nil
}
