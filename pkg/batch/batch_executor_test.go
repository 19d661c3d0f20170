// SPDX-License-Identifier: Apache-2.0

package batch

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
	"github.com/xataio/pgbind/internal/postgres"
	"github.com/xataio/pgbind/internal/postgres/mocks"
	progressmocks "github.com/xataio/pgbind/internal/progress/mocks"
)

func TestExecutor_Exec(t *testing.T) {
	t.Parallel()

	errTest := errors.New("oh noes")
	entries := []Entry{
		{Name: "insert", Query: "insert into t values (%s)", Params: []any{1}},
		{Name: "fail", Query: "update t set a = %s", Params: []any{2}},
		{Name: "many", Query: "insert into t values (%s)", ParamSets: []any{[]any{3}, []any{4}}},
	}

	newQuerier := func() *mocks.Querier {
		return &mocks.Querier{
			ExecFn: func(_ context.Context, i uint, _ any, params any) (postgres.CommandTag, error) {
				if i == 2 {
					return postgres.CommandTag{}, errTest
				}
				require.Equal(t, []any{1}, params)
				return postgres.CommandTag{CommandTag: pgconn.NewCommandTag("INSERT 0 1")}, nil
			},
			ExecManyFn: func(_ context.Context, _ uint, _ any, paramSets []any) (int64, error) {
				require.Equal(t, []any{[]any{3}, []any{4}}, paramSets)
				return 2, nil
			},
		}
	}

	tests := []struct {
		name string
		opts []ExecutorOption

		wantResults []Execution
	}{
		{
			name: "continue on error",
			wantResults: []Execution{
				{Name: "insert", RowsAffected: 1},
				{Name: "fail", Err: errTest},
				{Name: "many", RowsAffected: 2},
			},
		},
		{
			name: "stop on error",
			opts: []ExecutorOption{StopOnError()},
			wantResults: []Execution{
				{Name: "insert", RowsAffected: 1},
				{Name: "fail", Err: errTest},
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			bar := &progressmocks.Bar{}
			e := NewExecutor(newQuerier(), append(tc.opts, WithExecutorProgressBar(bar))...)

			results, err := e.Exec(context.Background(), entries)
			require.ErrorIs(t, err, errTest)
			require.ErrorContains(t, err, "fail: oh noes")
			require.Equal(t, tc.wantResults, results)
			require.Equal(t, len(tc.wantResults), bar.Added())
		})
	}
}

func TestExecutor_Exec_canceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e := NewExecutor(&mocks.Querier{})
	results, err := e.Exec(ctx, []Entry{{Name: "a", Query: "select 1"}})
	require.ErrorIs(t, err, context.Canceled)
	require.Empty(t, results)
}
