// SPDX-License-Identifier: Apache-2.0

package config

import (
	"time"

	"github.com/xataio/pgbind/internal/backoff"
	"github.com/xataio/pgbind/pkg/otel"
	"github.com/xataio/pgbind/pkg/server"
)

// YAMLConfig is the yaml configuration file layout. Durations are expressed
// in milliseconds.
type YAMLConfig struct {
	Postgres        PostgresConfigYAML    `mapstructure:"postgres" yaml:"postgres"`
	Instrumentation InstrumentationConfig `mapstructure:"instrumentation" yaml:"instrumentation"`
	Server          ServerConfig          `mapstructure:"server" yaml:"server"`
	LogLevel        string                `mapstructure:"log_level" yaml:"log_level"`
}

type PostgresConfigYAML struct {
	URL            string         `mapstructure:"url" yaml:"url"`
	ClientEncoding string         `mapstructure:"client_encoding" yaml:"client_encoding"`
	Retry          *BackoffConfig `mapstructure:"retry" yaml:"retry"`
}

type BackoffConfig struct {
	Exponential *ExponentialBackoffConfig `mapstructure:"exponential" yaml:"exponential"`
	Constant    *ConstantBackoffConfig    `mapstructure:"constant" yaml:"constant"`
}

type ExponentialBackoffConfig struct {
	MaxRetries      int `mapstructure:"max_retries" yaml:"max_retries"`
	InitialInterval int `mapstructure:"initial_interval" yaml:"initial_interval"`
	MaxInterval     int `mapstructure:"max_interval" yaml:"max_interval"`
}

type ConstantBackoffConfig struct {
	MaxRetries int `mapstructure:"max_retries" yaml:"max_retries"`
	Interval   int `mapstructure:"interval" yaml:"interval"`
}

type InstrumentationConfig struct {
	Metrics *MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
	Traces  *TracesConfig  `mapstructure:"traces" yaml:"traces"`
}

type MetricsConfig struct {
	Endpoint           string `mapstructure:"endpoint" yaml:"endpoint"`
	CollectionInterval int    `mapstructure:"collection_interval" yaml:"collection_interval"`
}

type TracesConfig struct {
	Endpoint    string  `mapstructure:"endpoint" yaml:"endpoint"`
	SampleRatio float64 `mapstructure:"sample_ratio" yaml:"sample_ratio"`
}

type ServerConfig struct {
	Address      string `mapstructure:"address" yaml:"address"`
	ReadTimeout  int    `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout int    `mapstructure:"write_timeout" yaml:"write_timeout"`
}

func (c *YAMLConfig) toPostgresConfig() *PostgresConfig {
	return &PostgresConfig{
		URL:            c.Postgres.URL,
		ClientEncoding: c.Postgres.ClientEncoding,
		RetryPolicy:    c.Postgres.Retry.parseBackoffConfig(),
	}
}

func (c InstrumentationConfig) toOtelConfig() (*otel.Config, error) {
	cfg := &otel.Config{}
	if c.Metrics != nil {
		if c.Metrics.Endpoint == "" {
			return nil, ErrMissingOtelEndpoint
		}
		cfg.Metrics = &otel.MetricsConfig{
			Endpoint:           c.Metrics.Endpoint,
			CollectionInterval: time.Duration(c.Metrics.CollectionInterval) * time.Millisecond,
		}
	}
	if c.Traces != nil {
		if c.Traces.Endpoint == "" {
			return nil, ErrMissingOtelEndpoint
		}
		if c.Traces.SampleRatio < 0 || c.Traces.SampleRatio > 1 {
			return nil, ErrInvalidSampleRatio
		}
		cfg.Traces = &otel.TracesConfig{
			Endpoint:    c.Traces.Endpoint,
			SampleRatio: c.Traces.SampleRatio,
		}
	}
	return cfg, nil
}

func (c ServerConfig) toServerConfig() *server.Config {
	return &server.Config{
		Address:      c.Address,
		ReadTimeout:  time.Duration(c.ReadTimeout) * time.Millisecond,
		WriteTimeout: time.Duration(c.WriteTimeout) * time.Millisecond,
	}
}

func (bo *BackoffConfig) parseBackoffConfig() backoff.Config {
	if bo == nil {
		return backoff.Config{}
	}
	return backoff.Config{
		Exponential: bo.parseExponentialBackoffConfig(),
		Constant:    bo.parseConstantBackoffConfig(),
	}
}

func (bo *BackoffConfig) parseExponentialBackoffConfig() *backoff.ExponentialConfig {
	if bo.Exponential == nil {
		return nil
	}
	return &backoff.ExponentialConfig{
		InitialInterval: time.Duration(bo.Exponential.InitialInterval) * time.Millisecond,
		MaxInterval:     time.Duration(bo.Exponential.MaxInterval) * time.Millisecond,
		MaxRetries:      uint(bo.Exponential.MaxRetries),
	}
}

func (bo *BackoffConfig) parseConstantBackoffConfig() *backoff.ConstantConfig {
	if bo.Constant == nil {
		return nil
	}
	return &backoff.ConstantConfig{
		Interval:   time.Duration(bo.Constant.Interval) * time.Millisecond,
		MaxRetries: uint(bo.Constant.MaxRetries),
	}
}
