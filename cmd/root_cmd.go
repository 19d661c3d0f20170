// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/xataio/pgbind/cmd/config"
	"github.com/xataio/pgbind/internal/log/zerolog"
	"github.com/xataio/pgbind/internal/profiling"
	loglib "github.com/xataio/pgbind/pkg/log"
	"github.com/xataio/pgbind/pkg/otel"
)

// Env is the environment pgbind was built for, if any.
var Env string

const trueStr = "true"

func Prepare() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "pgbind",
		Short:        "Converts queries with client side placeholders into parameterised postgres queries",
		SilenceUsage: true,
		Version:      version(),
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := config.Load(); err != nil {
				return fmt.Errorf("loading configuration: %w", err)
			}

			return nil
		},
	}

	// keys are looked up with their PGBIND_ prefix included
	viper.AutomaticEnv()

	// Flag definition

	// root cmd
	rootCmd.PersistentFlags().StringP("config", "c", "", ".env or .yaml config file to use with pgbind if any")
	rootCmd.PersistentFlags().String("log-level", "info", "log level for the application. One of trace, debug, info, warn, error, fatal, panic")

	// convert cmd
	paramsFlags(convertCmd)
	convertCmd.Flags().String("encoding", "", "Client encoding used to encode the query text. Defaults to UTF8")
	convertCmd.Flags().Bool("json", false, "Output the conversion in JSON format")

	// exec cmd
	paramsFlags(execCmd)
	execCmd.Flags().String("postgres-url", "", "Postgres URL to run the query against")
	execCmd.Flags().String("client-encoding", "", "Client encoding of the connection. Defaults to the one of the server")
	execCmd.Flags().Bool("json", false, "Output the result in JSON format")

	// batch cmd
	batchCmd.Flags().StringP("file", "f", "", "Path to a YAML file with the queries of the batch")
	batchCmd.Flags().String("postgres-url", "", "Postgres URL to run the batch against. Only used with --exec")
	batchCmd.Flags().String("client-encoding", "", "Client encoding of the connection. Only used with --exec")
	batchCmd.Flags().Bool("exec", false, "Whether to execute the queries instead of converting them")
	batchCmd.Flags().Uint("workers", 4, "Number of concurrent workers converting queries")
	batchCmd.Flags().Bool("stop-on-error", false, "Whether to stop executing the batch on the first failing query")
	batchCmd.Flags().Bool("profile", false, "Whether to produce CPU and memory profile files, as well as exposing a /debug/pprof endpoint on localhost:6060")
	batchCmd.Flags().Bool("json", false, "Output the results in JSON format")

	// serve cmd
	serveCmd.Flags().String("address", "", "Address for the conversion server to listen on. Defaults to :9900")

	// Flag binding for root cmd
	rootFlagBinding(rootCmd)

	// register subcommands
	rootCmd.AddCommand(convertCmd)
	rootCmd.AddCommand(execCmd)
	rootCmd.AddCommand(batchCmd)
	rootCmd.AddCommand(serveCmd)
	return rootCmd
}

// Execute executes the root command.
func Execute() error {
	cmd := Prepare()
	return cmd.Execute()
}

func withSignalWatcher(fn func(ctx context.Context, cmd *cobra.Command, args []string) error) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signal.NotifyContext(context.Background(),
			syscall.SIGHUP,
			syscall.SIGINT,
			syscall.SIGTERM,
			syscall.SIGQUIT)
		defer cancel()
		return fn(ctx, cmd, args)
	}
}

func withProfiling(fn func(cmd *cobra.Command, args []string) error) func(cmd *cobra.Command, args []string) (err error) {
	return func(cmd *cobra.Command, args []string) (err error) {
		if cmd.Flags().Lookup("profile").Value.String() != trueStr {
			return fn(cmd, args)
		}

		session, err := profiling.Start(profiling.Config{
			ServerAddress:  "localhost:6060",
			CPUProfileFile: "cpu.prof",
			MemProfileFile: "mem.prof",
		})
		if err != nil {
			return err
		}
		defer func() {
			if stopErr := session.Stop(); stopErr != nil {
				fmt.Fprintf(os.Stderr, "stopping profiling: %v\n", stopErr) //nolint:forbidigo
			}
		}()

		return fn(cmd, args)
	}
}

func rootFlagBinding(cmd *cobra.Command) {
	viper.BindPFlag("config", cmd.PersistentFlags().Lookup("config"))
	viper.BindPFlag("PGBIND_LOG_LEVEL", cmd.PersistentFlags().Lookup("log-level"))
}

// postgresFlagBinding lets the flags overwrite the postgres configuration
// of both yaml and env config files.
func postgresFlagBinding(cmd *cobra.Command) {
	if cmd.Flags().Lookup("postgres-url").Changed {
		viper.BindPFlag("postgres.url", cmd.Flags().Lookup("postgres-url"))
		viper.BindPFlag("PGBIND_POSTGRES_URL", cmd.Flags().Lookup("postgres-url"))
	}
	if cmd.Flags().Lookup("client-encoding").Changed {
		viper.BindPFlag("postgres.client_encoding", cmd.Flags().Lookup("client-encoding"))
		viper.BindPFlag("PGBIND_POSTGRES_CLIENT_ENCODING", cmd.Flags().Lookup("client-encoding"))
	}
}

func version() string {
	if Env != "" {
		return Env + " (" + otel.Version() + ")"
	}
	return otel.Version()
}

func newLogger() loglib.Logger {
	logger := zerolog.NewLogger(&zerolog.Config{
		LogLevel: config.LogLevel(),
	})
	zerolog.SetGlobalLogger(logger)
	return zerolog.NewStdLogger(logger)
}

func newInstrumentationProvider(ctx context.Context) (otel.InstrumentationProvider, error) {
	cfg, err := config.ParseInstrumentationConfig()
	if err != nil {
		return nil, fmt.Errorf("parsing instrumentation config: %w", err)
	}

	p, err := otel.NewInstrumentationProvider(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("initialisating instrumentation provider: %w", err)
	}
	return p, nil
}
