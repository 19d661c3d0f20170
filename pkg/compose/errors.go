// SPDX-License-Identifier: Apache-2.0

package compose

import "errors"

var (
	ErrEmptyIdentifier = errors.New("identifiers cannot be empty")
	ErrInvalidName     = errors.New("invalid placeholder name")
)

// ErrFormat is returned when the template of a SQL object can't be formatted
// with the arguments given.
type ErrFormat struct {
	Details string
}

func (e *ErrFormat) Error() string {
	return "formatting sql: " + e.Details
}
