// SPDX-License-Identifier: Apache-2.0

package config

import "errors"

var (
	ErrMissingPostgresURL  = errors.New("postgres url must be provided")
	ErrInvalidSampleRatio  = errors.New("traces sample ratio must be between 0 and 1")
	ErrMissingOtelEndpoint = errors.New("instrumentation endpoint must be provided")
)
