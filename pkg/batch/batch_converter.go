// SPDX-License-Identifier: Apache-2.0

package batch

import (
	"context"
	"fmt"

	"github.com/xataio/pgbind/internal/progress"
	loglib "github.com/xataio/pgbind/pkg/log"
	"github.com/xataio/pgbind/pkg/query"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

// Converter converts the entries of a batch concurrently. Every worker uses
// its own transformer, while the parse cache is shared.
type Converter struct {
	transformerBuilder func() query.Transformer
	cache              *query.ParseCache
	workers            uint
	bar                progress.Bar
	logger             loglib.Logger
}

// Conversion is the result of converting one parameter set of an entry.
type Conversion struct {
	Name    string
	Query   string
	Params  [][]byte
	Types   []uint32
	Formats []query.Format
	Err     error
}

type ConverterOption func(*Converter)

const defaultWorkers = 4

func NewConverter(transformerBuilder func() query.Transformer, opts ...ConverterOption) *Converter {
	c := &Converter{
		transformerBuilder: transformerBuilder,
		cache:              query.DefaultParseCache(),
		workers:            defaultWorkers,
		bar:                progress.NewNoopBar(),
		logger:             loglib.NewNoopLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func WithWorkers(workers uint) ConverterOption {
	return func(c *Converter) {
		if workers > 0 {
			c.workers = workers
		}
	}
}

func WithParseCache(cache *query.ParseCache) ConverterOption {
	return func(c *Converter) {
		c.cache = cache
	}
}

func WithProgressBar(bar progress.Bar) ConverterOption {
	return func(c *Converter) {
		c.bar = bar
	}
}

func WithLogger(l loglib.Logger) ConverterOption {
	return func(c *Converter) {
		c.logger = loglib.WithModule(l, "batch_converter")
	}
}

type conversionJob struct {
	idx    int
	name   string
	query  string
	params any
}

// Convert converts every parameter set of the entries on input. The
// conversions are returned in input order, along with the combination of
// their errors.
func (c *Converter) Convert(ctx context.Context, entries []Entry) ([]Conversion, error) {
	jobs := make([]conversionJob, 0, len(entries))
	for _, e := range entries {
		for _, params := range e.paramSets() {
			jobs = append(jobs, conversionJob{idx: len(jobs), name: e.Name, query: e.Query, params: params})
		}
	}

	results := make([]Conversion, len(jobs))
	jobsChan := make(chan conversionJob)
	eg, ctx := errgroup.WithContext(ctx)
	for i := uint(0); i < c.workers; i++ {
		eg.Go(func() error {
			session := query.NewSession(c.transformerBuilder(), query.WithParseCache(c.cache), query.WithLogger(c.logger))
			for job := range jobsChan {
				results[job.idx] = c.convert(session, job)
				if err := c.bar.Add(1); err != nil {
					c.logger.Warn(err, "updating progress bar")
				}
			}
			return nil
		})
	}

	eg.Go(func() error {
		defer close(jobsChan)
		for _, job := range jobs {
			select {
			case jobsChan <- job:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})

	if err := eg.Wait(); err != nil {
		return nil, err
	}

	var errs error
	for _, r := range results {
		if r.Err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", r.Name, r.Err))
		}
	}
	return results, errs
}

func (c *Converter) convert(session *query.Session, job conversionJob) Conversion {
	res := Conversion{Name: job.name}
	if err := session.Convert(job.query, job.params); err != nil {
		c.logger.Error(err, "converting batch entry", loglib.Fields{"name": job.name})
		res.Err = err
		return res
	}

	res.Query = string(session.Query)
	res.Params = session.Params
	res.Types = session.Types
	res.Formats = session.Formats
	return res
}
