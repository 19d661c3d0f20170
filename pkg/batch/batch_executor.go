// SPDX-License-Identifier: Apache-2.0

package batch

import (
	"context"
	"fmt"

	"github.com/xataio/pgbind/internal/postgres"
	"github.com/xataio/pgbind/internal/progress"
	loglib "github.com/xataio/pgbind/pkg/log"
	"go.uber.org/multierr"
)

// Executor runs the entries of a batch in order on a single querier.
// Failing entries don't stop the batch unless StopOnError is set.
type Executor struct {
	querier     postgres.Querier
	bar         progress.Bar
	logger      loglib.Logger
	stopOnError bool
}

// Execution is the result of running one entry.
type Execution struct {
	Name         string
	RowsAffected int64
	Err          error
}

type ExecutorOption func(*Executor)

func NewExecutor(querier postgres.Querier, opts ...ExecutorOption) *Executor {
	e := &Executor{
		querier: querier,
		bar:     progress.NewNoopBar(),
		logger:  loglib.NewNoopLogger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func WithExecutorProgressBar(bar progress.Bar) ExecutorOption {
	return func(e *Executor) {
		e.bar = bar
	}
}

func WithExecutorLogger(l loglib.Logger) ExecutorOption {
	return func(e *Executor) {
		e.logger = loglib.WithModule(l, "batch_executor")
	}
}

func StopOnError() ExecutorOption {
	return func(e *Executor) {
		e.stopOnError = true
	}
}

func (e *Executor) Exec(ctx context.Context, entries []Entry) ([]Execution, error) {
	results := make([]Execution, 0, len(entries))
	var errs error
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return results, multierr.Append(errs, err)
		}

		res := e.exec(ctx, entry)
		results = append(results, res)
		if err := e.bar.Add(1); err != nil {
			e.logger.Warn(err, "updating progress bar")
		}

		if res.Err != nil {
			e.logger.Error(res.Err, "executing batch entry", loglib.Fields{"name": entry.Name})
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", entry.Name, res.Err))
			if e.stopOnError {
				break
			}
		}
	}
	return results, errs
}

func (e *Executor) exec(ctx context.Context, entry Entry) Execution {
	res := Execution{Name: entry.Name}
	if len(entry.ParamSets) > 0 {
		res.RowsAffected, res.Err = e.querier.ExecMany(ctx, entry.Query, entry.ParamSets)
		return res
	}

	tag, err := e.querier.Exec(ctx, entry.Query, entry.Params)
	if err != nil {
		res.Err = err
		return res
	}
	res.RowsAffected = tag.RowsAffected()
	return res
}
