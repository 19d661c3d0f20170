// SPDX-License-Identifier: Apache-2.0

package retrier

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
	"github.com/xataio/pgbind/internal/backoff"
	backoffmocks "github.com/xataio/pgbind/internal/backoff/mocks"
	"github.com/xataio/pgbind/internal/postgres"
	"github.com/xataio/pgbind/internal/postgres/mocks"
	loglib "github.com/xataio/pgbind/pkg/log"
	"github.com/xataio/pgbind/pkg/query"
)

func TestQuerier_Query(t *testing.T) {
	t.Parallel()

	retriableErr := errors.New("connection reset by peer")
	conversionErr := &query.ErrMissingParams{Names: []string{"a"}}
	syntaxErr := &pgconn.PgError{Code: "42601"}
	testResult := &postgres.Result{Rows: [][]any{{int64(1)}}}

	tests := []struct {
		name    string
		queryFn func(ctx context.Context, i uint, query any, params any) (*postgres.Result, error)

		wantResult *postgres.Result
		wantCalls  uint
		wantErr    error
	}{
		{
			name: "ok",
			queryFn: func(_ context.Context, _ uint, _ any, _ any) (*postgres.Result, error) {
				return testResult, nil
			},
			wantResult: testResult,
			wantCalls:  1,
		},
		{
			name: "ok - after retriable error",
			queryFn: func(_ context.Context, i uint, _ any, _ any) (*postgres.Result, error) {
				if i == 1 {
					return nil, retriableErr
				}
				return testResult, nil
			},
			wantResult: testResult,
			wantCalls:  2,
		},
		{
			name: "error - retriable but always fails",
			queryFn: func(_ context.Context, _ uint, _ any, _ any) (*postgres.Result, error) {
				return nil, retriableErr
			},
			wantCalls: 5,
			wantErr:   retriableErr,
		},
		{
			name: "error - context canceled",
			queryFn: func(_ context.Context, _ uint, _ any, _ any) (*postgres.Result, error) {
				return nil, context.Canceled
			},
			wantCalls: 1,
			wantErr:   context.Canceled,
		},
		{
			name: "error - query conversion",
			queryFn: func(_ context.Context, _ uint, _ any, _ any) (*postgres.Result, error) {
				return nil, conversionErr
			},
			wantCalls: 1,
			wantErr:   conversionErr,
		},
		{
			name: "error - server syntax error",
			queryFn: func(_ context.Context, _ uint, _ any, _ any) (*postgres.Result, error) {
				return nil, syntaxErr
			},
			wantCalls: 1,
			wantErr:   syntaxErr,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			querier := &mocks.Querier{QueryFn: tc.queryFn}
			q := newTestQuerier(querier)

			res, err := q.Query(context.Background(), "select %s", []any{1})
			require.ErrorIs(t, err, tc.wantErr)
			require.Equal(t, tc.wantResult, res)
			require.Equal(t, tc.wantCalls, querier.QueryCalls())
		})
	}
}

func TestQuerier_Exec(t *testing.T) {
	t.Parallel()

	retriableErr := errors.New("connection reset by peer")
	testCommandTag := postgres.CommandTag{CommandTag: pgconn.NewCommandTag("UPDATE 1")}

	tests := []struct {
		name   string
		execFn func(ctx context.Context, i uint, query any, params any) (postgres.CommandTag, error)

		wantCmdTag postgres.CommandTag
		wantErr    error
	}{
		{
			name: "ok",
			execFn: func(_ context.Context, _ uint, _ any, _ any) (postgres.CommandTag, error) {
				return testCommandTag, nil
			},
			wantCmdTag: testCommandTag,
		},
		{
			name: "ok - after retriable error",
			execFn: func(_ context.Context, i uint, _ any, _ any) (postgres.CommandTag, error) {
				if i < 3 {
					return postgres.CommandTag{}, retriableErr
				}
				return testCommandTag, nil
			},
			wantCmdTag: testCommandTag,
		},
		{
			name: "error - retriable but always fails",
			execFn: func(_ context.Context, _ uint, _ any, _ any) (postgres.CommandTag, error) {
				return postgres.CommandTag{}, retriableErr
			},
			wantErr: retriableErr,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			q := newTestQuerier(&mocks.Querier{ExecFn: tc.execFn})

			tag, err := q.Exec(context.Background(), "update t set a = %s", []any{1})
			require.ErrorIs(t, err, tc.wantErr)
			require.Equal(t, tc.wantCmdTag, tag)
		})
	}
}

func TestQuerier_ExecMany(t *testing.T) {
	t.Parallel()

	paramSets := []any{[]any{1}, []any{2}}
	querier := &mocks.Querier{
		ExecManyFn: func(_ context.Context, i uint, q any, sets []any) (int64, error) {
			require.Equal(t, "insert into t values (%s)", q)
			require.Equal(t, paramSets, sets)
			if i == 1 {
				return 0, errors.New("connection reset by peer")
			}
			return 2, nil
		},
	}
	q := newTestQuerier(querier)

	rows, err := q.ExecMany(context.Background(), "insert into t values (%s)", paramSets)
	require.NoError(t, err)
	require.Equal(t, int64(2), rows)
	require.Equal(t, uint(2), querier.ExecManyCalls())
}

func TestQuerier_ExecMany_partialExecution(t *testing.T) {
	t.Parallel()

	errConnReset := errors.New("connection reset by peer")
	paramSets := []any{[]any{1}, []any{2}, []any{3}}
	querier := &mocks.Querier{
		ExecManyFn: func(_ context.Context, i uint, q any, sets []any) (int64, error) {
			if i > 1 {
				return 0, errors.New("parameter sets executed again")
			}
			return 1, &postgres.ErrPartialExecution{Executed: 1, RowsAffected: 1, Err: errConnReset}
		},
	}
	q := newTestQuerier(querier)

	rows, err := q.ExecMany(context.Background(), "insert into t values (%s)", paramSets)
	require.ErrorIs(t, err, errConnReset)
	var partialErr *postgres.ErrPartialExecution
	require.ErrorAs(t, err, &partialErr)
	require.Equal(t, 1, partialErr.Executed)
	require.Equal(t, int64(1), rows)
	require.Equal(t, uint(1), querier.ExecManyCalls())
}

func TestQuerier_withRetry(t *testing.T) {
	t.Parallel()

	errTest := errors.New("oh noes")

	t.Run("error - reconnecting", func(t *testing.T) {
		t.Parallel()

		q := &Querier{
			connBuilder: func(context.Context) (postgres.Querier, error) {
				return nil, errTest
			},
			querier:         &mocks.Querier{},
			backoffProvider: newMockBackoffProvider(),
			logger:          loglib.NewNoopLogger(),
		}

		calls := 0
		err := q.withRetry(context.Background(), func() error {
			calls++
			return errors.New("connection reset by peer")
		})
		require.ErrorIs(t, err, errTest)
		require.Equal(t, 1, calls)
	})

	t.Run("notifies every retry", func(t *testing.T) {
		t.Parallel()

		retries := 0
		q := &Querier{
			connBuilder: func(context.Context) (postgres.Querier, error) {
				return &mocks.Querier{}, nil
			},
			querier: &mocks.Querier{},
			backoffProvider: func(context.Context) backoff.Backoff {
				return &backoffmocks.Backoff{
					RetryNotifyFn: func(op backoff.Operation, notify backoff.Notify) error {
						for {
							err := op()
							if err == nil || errors.Is(err, backoff.ErrPermanent) {
								return err
							}
							retries++
							notify(err, time.Millisecond)
						}
					},
				}
			},
			logger: loglib.NewNoopLogger(),
		}

		calls := 0
		err := q.withRetry(context.Background(), func() error {
			calls++
			if calls < 4 {
				return errTest
			}
			return nil
		})
		require.NoError(t, err)
		require.Equal(t, 4, calls)
		require.Equal(t, 2, retries)
	})
}

func newTestQuerier(querier *mocks.Querier) *Querier {
	return &Querier{
		connBuilder: func(ctx context.Context) (postgres.Querier, error) {
			return querier, nil
		},
		querier:         querier,
		backoffProvider: newMockBackoffProvider(),
		logger:          loglib.NewNoopLogger(),
	}
}

func newMockBackoffProvider() backoff.Provider {
	return backoff.NewProvider(&backoff.Config{
		Constant: &backoff.ConstantConfig{
			Interval:   0,
			MaxRetries: 3,
		},
	})
}
