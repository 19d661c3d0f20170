// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/xataio/pgbind/cmd/config"
	"github.com/xataio/pgbind/internal/postgres"
	"github.com/xataio/pgbind/internal/postgres/instrumentation"
	"github.com/xataio/pgbind/internal/postgres/retrier"
	loglib "github.com/xataio/pgbind/pkg/log"
	"github.com/xataio/pgbind/pkg/query"
	queryinstrumentation "github.com/xataio/pgbind/pkg/query/instrumentation"
)

// newQuerier connects to the configured postgres database. The returned
// function closes the querier as well as the instrumentation.
func newQuerier(ctx context.Context, cmd *cobra.Command, logger loglib.Logger) (postgres.Querier, func() error, error) {
	postgresFlagBinding(cmd)

	cfg, err := config.ParsePostgresConfig()
	if err != nil {
		return nil, nil, err
	}

	provider, err := newInstrumentationProvider(ctx)
	if err != nil {
		return nil, nil, err
	}
	inst := provider.NewInstrumentation("pgbind")

	cache := query.DefaultParseCache()
	registration, err := queryinstrumentation.RegisterParseCacheMetrics(cache, inst)
	if err != nil {
		provider.Close()
		return nil, nil, err
	}

	connOpts := []postgres.Option{
		postgres.WithLogger(logger),
		postgres.WithParseCache(cache),
	}
	if cfg.ClientEncoding != "" {
		connOpts = append(connOpts, postgres.WithClientEncoding(cfg.ClientEncoding))
	}
	connBuilder := instrumentation.NewQuerierBuilder(postgres.ConnBuilder(cfg.URL, connOpts...), inst)

	querier, err := retrier.NewQuerier(ctx, &cfg.RetryPolicy, connBuilder, logger)
	if err != nil {
		provider.Close()
		return nil, nil, fmt.Errorf("connecting to postgres: %w", err)
	}

	closeFn := func() error {
		if registration != nil {
			registration.Unregister()
		}
		if err := querier.Close(context.Background()); err != nil {
			return err
		}
		return provider.Close()
	}
	return querier, closeFn, nil
}
