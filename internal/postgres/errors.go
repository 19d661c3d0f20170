// SPDX-License-Identifier: Apache-2.0

package postgres

import (
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrConnTimeout      = errors.New("connection timeout")
	ErrNoRows           = errors.New("no rows")
	ErrUnsupportedValue = errors.New("unsupported parameter value")
)

type ErrRelationDoesNotExist struct {
	Details string
}

func (e *ErrRelationDoesNotExist) Error() string {
	return fmt.Sprintf("relation does not exist: %s", e.Details)
}

type ErrSyntaxError struct {
	Details string
}

func (e *ErrSyntaxError) Error() string {
	return fmt.Sprintf("syntax error: %s", e.Details)
}

// ErrParameterMismatch is returned by the server when the parameters sent
// along with a query don't match its $n placeholders, or their types can't
// be determined.
type ErrParameterMismatch struct {
	Details string
}

func (e *ErrParameterMismatch) Error() string {
	return fmt.Sprintf("parameter mismatch: %s", e.Details)
}

type ErrDatatypeMismatch struct {
	Details string
}

func (e *ErrDatatypeMismatch) Error() string {
	return fmt.Sprintf("datatype mismatch: %s", e.Details)
}

type ErrConstraintViolation struct {
	Details string
}

func (e *ErrConstraintViolation) Error() string {
	return fmt.Sprintf("constraint violation: %s", e.Details)
}

type ErrPermissionDenied struct {
	Details string
}

func (e *ErrPermissionDenied) Error() string {
	return fmt.Sprintf("permission denied: %s", e.Details)
}

// ErrPartialExecution is returned by ExecMany when it fails after some of
// the parameter sets were already executed. Running the statement again
// would execute those sets twice, so it is never retried.
type ErrPartialExecution struct {
	// Executed is the number of parameter sets executed before the failure.
	Executed     int
	RowsAffected int64
	Err          error
}

func (e *ErrPartialExecution) Error() string {
	return fmt.Sprintf("failed after executing %d parameter sets: %v", e.Executed, e.Err)
}

func (e *ErrPartialExecution) Unwrap() error {
	return e.Err
}

// MapError converts the postgres errors whose handling doesn't depend on the
// details of the server message into typed errors.
func MapError(err error) error {
	if err == nil {
		return nil
	}

	if pgconn.Timeout(err) {
		return ErrConnTimeout
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	switch {
	case pgErr.Code == pgerrcode.UndefinedTable:
		return &ErrRelationDoesNotExist{Details: pgErr.Message}
	case pgErr.Code == pgerrcode.SyntaxError:
		return &ErrSyntaxError{Details: pgErr.Message}
	case pgErr.Code == pgerrcode.UndefinedParameter,
		pgErr.Code == pgerrcode.IndeterminateDatatype,
		pgErr.Code == pgerrcode.ProtocolViolation:
		return &ErrParameterMismatch{Details: pgErr.Message}
	case pgErr.Code == pgerrcode.DatatypeMismatch,
		pgErr.Code == pgerrcode.InvalidTextRepresentation,
		pgErr.Code == pgerrcode.InvalidBinaryRepresentation:
		return &ErrDatatypeMismatch{Details: pgErr.Message}
	case pgerrcode.IsIntegrityConstraintViolation(pgErr.Code):
		return &ErrConstraintViolation{Details: pgErr.Message}
	case pgErr.Code == pgerrcode.InsufficientPrivilege:
		return &ErrPermissionDenied{Details: pgErr.Message}
	}

	return err
}

// IsPermanentError reports whether the error will happen again if the same
// statement is retried.
func IsPermanentError(err error) bool {
	var partialErr *ErrPartialExecution
	if errors.As(err, &partialErr) {
		return true
	}

	err = MapError(err)

	var (
		doesNotExist        *ErrRelationDoesNotExist
		syntaxErr           *ErrSyntaxError
		paramMismatch       *ErrParameterMismatch
		datatypeMismatch    *ErrDatatypeMismatch
		constraintViolation *ErrConstraintViolation
		permissionDenied    *ErrPermissionDenied
	)
	switch {
	case errors.As(err, &doesNotExist),
		errors.As(err, &syntaxErr),
		errors.As(err, &paramMismatch),
		errors.As(err, &datatypeMismatch),
		errors.As(err, &constraintViolation),
		errors.As(err, &permissionDenied),
		errors.Is(err, ErrUnsupportedValue):
		return true
	}
	return false
}
