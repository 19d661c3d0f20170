// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/viper"
	"github.com/xataio/pgbind/internal/backoff"
	"github.com/xataio/pgbind/pkg/otel"
	"github.com/xataio/pgbind/pkg/server"
)

// PostgresConfig holds the connection settings of the exec and batch
// commands.
type PostgresConfig struct {
	URL            string
	ClientEncoding string
	RetryPolicy    backoff.Config
}

func Load() error {
	return LoadFile(viper.GetString("config"))
}

func LoadFile(file string) error {
	if file == "" {
		return nil
	}
	viper.SetConfigFile(file)
	viper.SetConfigType(filepath.Ext(file)[1:])
	if err := viper.ReadInConfig(); err != nil {
		return fmt.Errorf("reading config: %w", err)
	}
	return nil
}

func PostgresURL() string {
	switch {
	case viper.GetString("postgres.url") != "":
		// yaml config
		return viper.GetString("postgres.url")
	case viper.GetString("PGBIND_POSTGRES_URL") != "":
		// env config
		return viper.GetString("PGBIND_POSTGRES_URL")
	default:
		// CLI argument
		return viper.GetString("postgres-url")
	}
}

func LogLevel() string {
	if level := viper.GetString("log_level"); level != "" && isYAMLConfig() {
		return level
	}
	return viper.GetString("PGBIND_LOG_LEVEL")
}

func ParsePostgresConfig() (*PostgresConfig, error) {
	var cfg *PostgresConfig
	if isYAMLConfig() {
		yamlCfg, err := unmarshalYAMLConfig()
		if err != nil {
			return nil, err
		}
		cfg = yamlCfg.toPostgresConfig()
	} else {
		cfg = envToPostgresConfig()
	}

	if url := PostgresURL(); url != "" {
		cfg.URL = url
	}
	if cfg.URL == "" {
		return nil, ErrMissingPostgresURL
	}
	return cfg, nil
}

func ParseInstrumentationConfig() (*otel.Config, error) {
	if isYAMLConfig() {
		yamlCfg, err := unmarshalYAMLConfig()
		if err != nil {
			return nil, err
		}
		return yamlCfg.Instrumentation.toOtelConfig()
	}
	return envToOtelConfig()
}

func ParseServerConfig() (*server.Config, error) {
	if isYAMLConfig() {
		yamlCfg, err := unmarshalYAMLConfig()
		if err != nil {
			return nil, err
		}
		return yamlCfg.Server.toServerConfig(), nil
	}
	return envToServerConfig(), nil
}

func isYAMLConfig() bool {
	switch filepath.Ext(viper.GetViper().ConfigFileUsed()) {
	case ".yml", ".yaml":
		return true
	default:
		return false
	}
}

func unmarshalYAMLConfig() (*YAMLConfig, error) {
	yamlCfg := &YAMLConfig{}
	if err := viper.Unmarshal(yamlCfg); err != nil {
		return nil, fmt.Errorf("unmarshalling yaml config: %w", err)
	}
	return yamlCfg, nil
}
