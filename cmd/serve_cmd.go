// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/xataio/pgbind/cmd/config"
	"github.com/xataio/pgbind/internal/postgres"
	"github.com/xataio/pgbind/pkg/query"
	"github.com/xataio/pgbind/pkg/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Starts an HTTP server converting queries on request",
	Long:  "Starts an HTTP server exposing a POST /convert endpoint, which converts the query and parameters of the JSON body into a parameterised query.",
	Example: `
	pgbind serve --address :9900
	curl -X POST localhost:9900/convert -d '{"query": "select %(id)s", "params": {"id": 1}}'`,
	RunE: withSignalWatcher(serve),
}

const serverShutdownTimeout = 5 * time.Second

func serve(ctx context.Context, cmd *cobra.Command, args []string) error {
	if cmd.Flags().Lookup("address").Changed {
		viper.BindPFlag("server.address", cmd.Flags().Lookup("address"))
		viper.BindPFlag("PGBIND_SERVER_ADDRESS", cmd.Flags().Lookup("address"))
	}

	cfg, err := config.ParseServerConfig()
	if err != nil {
		return err
	}

	logger := newLogger()
	srv := server.New(cfg,
		func(encoding string) query.Transformer { return postgres.NewTransformer(encoding) },
		server.WithLogger(logger),
	)

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start()
	}()

	select {
	case err := <-errChan:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), serverShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		logger.Info("conversion server stopped")
		return nil
	}
}
