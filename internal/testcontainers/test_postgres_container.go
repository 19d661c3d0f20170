// SPDX-License-Identifier: Apache-2.0

package testcontainers

import (
	"context"
	"fmt"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

type cleanup func() error

type PostgresImage string

const (
	Postgres14 PostgresImage = "postgres:14-alpine"
	Postgres17 PostgresImage = "postgres:17-alpine"
)

// SetupPostgresContainer starts a postgres container and sets the url on
// input to its connection string. Init scripts, if any, are run once the
// database is created.
func SetupPostgresContainer(ctx context.Context, url *string, image PostgresImage, initScripts ...string) (cleanup, error) {
	waitForLogs := wait.
		ForLog("database system is ready to accept connections").
		WithOccurrence(2).
		WithStartupTimeout(30 * time.Second)

	opts := []testcontainers.ContainerCustomizer{
		testcontainers.WithWaitStrategy(waitForLogs),
		postgres.WithDatabase("pgbind"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
	}
	if len(initScripts) > 0 {
		opts = append(opts, postgres.WithInitScripts(initScripts...))
	}

	ctr, err := postgres.Run(ctx, string(image), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to start postgres container: %w", err)
	}

	*url, err = ctr.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		return nil, fmt.Errorf("retrieving connection string for postgres container: %w", err)
	}

	return func() error {
		return ctr.Terminate(ctx)
	}, nil
}
