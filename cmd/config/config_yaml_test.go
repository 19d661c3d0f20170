// SPDX-License-Identifier: Apache-2.0

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/xataio/pgbind/internal/backoff"
	"github.com/xataio/pgbind/pkg/otel"
)

func TestInstrumentationConfig_toOtelConfig(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		config InstrumentationConfig

		wantConfig *otel.Config
		wantErr    error
	}{
		{
			name:       "disabled",
			config:     InstrumentationConfig{},
			wantConfig: &otel.Config{},
		},
		{
			name: "metrics and traces",
			config: InstrumentationConfig{
				Metrics: &MetricsConfig{Endpoint: "localhost:4317", CollectionInterval: 60000},
				Traces:  &TracesConfig{Endpoint: "localhost:4317", SampleRatio: 1},
			},
			wantConfig: &otel.Config{
				Metrics: &otel.MetricsConfig{Endpoint: "localhost:4317", CollectionInterval: time.Minute},
				Traces:  &otel.TracesConfig{Endpoint: "localhost:4317", SampleRatio: 1},
			},
		},
		{
			name: "error - invalid sample ratio",
			config: InstrumentationConfig{
				Traces: &TracesConfig{Endpoint: "localhost:4317", SampleRatio: 1.5},
			},
			wantErr: ErrInvalidSampleRatio,
		},
		{
			name: "error - missing metrics endpoint",
			config: InstrumentationConfig{
				Metrics: &MetricsConfig{CollectionInterval: 60000},
			},
			wantErr: ErrMissingOtelEndpoint,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			cfg, err := tc.config.toOtelConfig()
			require.ErrorIs(t, err, tc.wantErr)
			require.Equal(t, tc.wantConfig, cfg)
		})
	}
}

func TestBackoffConfig_parseBackoffConfig(t *testing.T) {
	t.Parallel()

	var nilCfg *BackoffConfig
	require.Equal(t, backoff.Config{}, nilCfg.parseBackoffConfig())

	cfg := &BackoffConfig{
		Constant: &ConstantBackoffConfig{MaxRetries: 2, Interval: 250},
	}
	require.Equal(t, backoff.Config{
		Constant: &backoff.ConstantConfig{MaxRetries: 2, Interval: 250 * time.Millisecond},
	}, cfg.parseBackoffConfig())
}
