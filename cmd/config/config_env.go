// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"

	"github.com/spf13/viper"
	"github.com/xataio/pgbind/internal/backoff"
	"github.com/xataio/pgbind/pkg/otel"
	"github.com/xataio/pgbind/pkg/server"
)

func envToPostgresConfig() *PostgresConfig {
	return &PostgresConfig{
		URL:            viper.GetString("PGBIND_POSTGRES_URL"),
		ClientEncoding: viper.GetString("PGBIND_POSTGRES_CLIENT_ENCODING"),
		RetryPolicy:    parseBackoffConfig("PGBIND_POSTGRES"),
	}
}

func envToOtelConfig() (*otel.Config, error) {
	cfg := &otel.Config{}

	if endpoint := viper.GetString("PGBIND_METRICS_ENDPOINT"); endpoint != "" {
		cfg.Metrics = &otel.MetricsConfig{
			Endpoint:           endpoint,
			CollectionInterval: viper.GetDuration("PGBIND_METRICS_COLLECTION_INTERVAL"),
		}
	}

	if endpoint := viper.GetString("PGBIND_TRACES_ENDPOINT"); endpoint != "" {
		sampleRatio := viper.GetFloat64("PGBIND_TRACES_SAMPLE_RATIO")
		if sampleRatio < 0 || sampleRatio > 1 {
			return nil, ErrInvalidSampleRatio
		}
		cfg.Traces = &otel.TracesConfig{
			Endpoint:    endpoint,
			SampleRatio: sampleRatio,
		}
	}

	return cfg, nil
}

func envToServerConfig() *server.Config {
	return &server.Config{
		Address:      viper.GetString("PGBIND_SERVER_ADDRESS"),
		ReadTimeout:  viper.GetDuration("PGBIND_SERVER_READ_TIMEOUT"),
		WriteTimeout: viper.GetDuration("PGBIND_SERVER_WRITE_TIMEOUT"),
	}
}

func parseBackoffConfig(prefix string) backoff.Config {
	return backoff.Config{
		Exponential: parseExponentialBackoffConfig(prefix),
		Constant:    parseConstantBackoffConfig(prefix),
	}
}

func parseExponentialBackoffConfig(prefix string) *backoff.ExponentialConfig {
	initialInterval := viper.GetDuration(fmt.Sprintf("%s_EXP_BACKOFF_INITIAL_INTERVAL", prefix))
	maxInterval := viper.GetDuration(fmt.Sprintf("%s_EXP_BACKOFF_MAX_INTERVAL", prefix))
	maxRetries := viper.GetUint(fmt.Sprintf("%s_EXP_BACKOFF_MAX_RETRIES", prefix))
	if initialInterval == 0 && maxInterval == 0 && maxRetries == 0 {
		return nil
	}
	return &backoff.ExponentialConfig{
		InitialInterval: initialInterval,
		MaxInterval:     maxInterval,
		MaxRetries:      maxRetries,
	}
}

func parseConstantBackoffConfig(prefix string) *backoff.ConstantConfig {
	interval := viper.GetDuration(fmt.Sprintf("%s_BACKOFF_INTERVAL", prefix))
	maxRetries := viper.GetUint(fmt.Sprintf("%s_BACKOFF_MAX_RETRIES", prefix))
	if interval == 0 && maxRetries == 0 {
		return nil
	}
	return &backoff.ConstantConfig{
		Interval:   interval,
		MaxRetries: maxRetries,
	}
}
