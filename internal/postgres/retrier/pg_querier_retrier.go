// SPDX-License-Identifier: Apache-2.0

package retrier

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/xataio/pgbind/internal/backoff"
	"github.com/xataio/pgbind/internal/postgres"
	loglib "github.com/xataio/pgbind/pkg/log"
	"github.com/xataio/pgbind/pkg/query"
)

// Querier retries the operations failing with transient errors, reconnecting
// before every new attempt. Errors in the query or its parameters, and
// errors the server will return again for the same statement, are not
// retried.
type Querier struct {
	connBuilder     postgres.QuerierBuilder
	querier         postgres.Querier
	backoffProvider backoff.Provider
	logger          loglib.Logger
}

func NewQuerier(ctx context.Context, cfg *backoff.Config, connBuilder postgres.QuerierBuilder, logger loglib.Logger) (*Querier, error) {
	conn, err := connBuilder(ctx)
	if err != nil {
		return nil, err
	}

	return &Querier{
		connBuilder:     connBuilder,
		querier:         conn,
		backoffProvider: backoff.NewProvider(cfg),
		logger:          loglib.WithModule(logger, "postgres_querier_retrier"),
	}, nil
}

func (q *Querier) Query(ctx context.Context, query any, params any) (*postgres.Result, error) {
	var res *postgres.Result
	var err error
	op := func() error {
		res, err = q.querier.Query(ctx, query, params)
		return err
	}

	if err := q.withRetry(ctx, op); err != nil {
		return nil, err
	}
	return res, nil
}

func (q *Querier) Exec(ctx context.Context, query any, params any) (postgres.CommandTag, error) {
	var cmdTag postgres.CommandTag
	var err error
	op := func() error {
		cmdTag, err = q.querier.Exec(ctx, query, params)
		return err
	}

	if err := q.withRetry(ctx, op); err != nil {
		return postgres.CommandTag{}, err
	}
	return cmdTag, nil
}

// ExecMany is only retried when no parameter set was executed. Once some
// were, the error is returned along with the rows affected so far.
func (q *Querier) ExecMany(ctx context.Context, query any, paramSets []any) (int64, error) {
	var rowsAffected int64
	var err error
	op := func() error {
		rowsAffected, err = q.querier.ExecMany(ctx, query, paramSets)
		return err
	}

	if err := q.withRetry(ctx, op); err != nil {
		return rowsAffected, err
	}
	return rowsAffected, nil
}

func (q *Querier) Ping(ctx context.Context) error {
	return q.withRetry(ctx, func() error {
		return q.querier.Ping(ctx)
	})
}

func (q *Querier) Close(ctx context.Context) error {
	return q.querier.Close(ctx)
}

func (q *Querier) withRetry(ctx context.Context, operation func() error) error {
	err := operation()
	if err == nil || !isRetriableError(err) {
		return err
	}

	// only initialise the backoff provider if the operation fails
	bo := q.backoffProvider(ctx)
	err = bo.RetryNotify(func() error {
		if connErr := q.resetConn(ctx); connErr != nil {
			return fmt.Errorf("unable to reset connection: %w", connErr)
		}

		err := operation()
		if err != nil && !isRetriableError(err) {
			return fmt.Errorf("%w: %w", err, backoff.ErrPermanent)
		}
		return err
	}, func(err error, d time.Duration) {
		q.logger.Warn(err, "retrying postgres operation after error", loglib.Fields{
			"retry_delay": d.String(),
		})
	})

	if err == nil {
		q.logger.Info("retried postgres operation succeeded")
	}
	return err
}

func (q *Querier) resetConn(ctx context.Context) error {
	conn, err := q.connBuilder(ctx)
	if err != nil {
		return err
	}
	if q.querier != nil {
		q.querier.Close(ctx)
	}
	q.querier = conn
	return nil
}

func isRetriableError(err error) bool {
	switch {
	case query.IsProgrammingError(err),
		postgres.IsPermanentError(err),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return false
	}
	return true
}
