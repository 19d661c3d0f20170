// SPDX-License-Identifier: Apache-2.0

package otel

import "time"

// Config enables the exporters of the process telemetry. A nil Metrics or
// Traces disables the corresponding signal.
type Config struct {
	// ServiceName is reported in the telemetry resource, "pgbind" by default.
	ServiceName string
	Metrics     *MetricsConfig
	Traces      *TracesConfig
}

type MetricsConfig struct {
	Endpoint           string
	CollectionInterval time.Duration
}

type TracesConfig struct {
	Endpoint    string
	SampleRatio float64
}

const (
	defaultServiceName        = "pgbind"
	defaultCollectionInterval = 60 * time.Second
)

func (c *Config) IsEnabled() bool {
	return c != nil && (c.Metrics != nil || c.Traces != nil)
}

func (c *Config) serviceName() string {
	if c.ServiceName != "" {
		return c.ServiceName
	}
	return defaultServiceName
}

func (c *MetricsConfig) collectionInterval() time.Duration {
	if c.CollectionInterval > 0 {
		return c.CollectionInterval
	}
	return defaultCollectionInterval
}
