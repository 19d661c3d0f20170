// SPDX-License-Identifier: Apache-2.0

package query

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnknownEncoding = errors.New("unknown encoding")
	ErrNotConverted    = errors.New("no parameterised query converted yet")
)

// ErrSyntax is returned for malformed placeholders in the query text.
type ErrSyntax struct {
	Details string
}

func (e *ErrSyntax) Error() string {
	return e.Details
}

// ErrInvalidPlaceholders is returned when the placeholders of a query are
// well formed but can't be used together.
type ErrInvalidPlaceholders struct {
	Details string
}

func (e *ErrInvalidPlaceholders) Error() string {
	return e.Details
}

type ErrParamsCount struct {
	Placeholders int
	Params       int
}

func (e *ErrParamsCount) Error() string {
	return fmt.Sprintf("the query has %d placeholders but %d parameters were passed", e.Placeholders, e.Params)
}

// ErrParamsKind is returned when a sequence is passed for named placeholders
// or a mapping for positional ones.
type ErrParamsKind struct {
	Details string
}

func (e *ErrParamsKind) Error() string {
	return e.Details
}

type ErrMissingParams struct {
	Names []string
}

func (e *ErrMissingParams) Error() string {
	return "query parameter missing: " + strings.Join(e.Names, ", ")
}

type ErrParamsType struct {
	Type string
}

func (e *ErrParamsType) Error() string {
	return fmt.Sprintf("query parameters should be a sequence or a mapping, got %s", e.Type)
}

type ErrQueryType struct {
	Type string
}

func (e *ErrQueryType) Error() string {
	return fmt.Sprintf("the query should be str or bytes, got %s instead", e.Type)
}

// IsProgrammingError reports whether err is caused by the query text or the
// parameters passed along with it. Such errors fail the same way every time.
func IsProgrammingError(err error) bool {
	var (
		syntaxErr       *ErrSyntax
		placeholdersErr *ErrInvalidPlaceholders
		countErr        *ErrParamsCount
		kindErr         *ErrParamsKind
		missingErr      *ErrMissingParams
		paramsTypeErr   *ErrParamsType
		queryTypeErr    *ErrQueryType
	)
	switch {
	case errors.As(err, &syntaxErr),
		errors.As(err, &placeholdersErr),
		errors.As(err, &countErr),
		errors.As(err, &kindErr),
		errors.As(err, &missingErr),
		errors.As(err, &paramsTypeErr),
		errors.As(err, &queryTypeErr),
		errors.Is(err, ErrUnknownEncoding),
		errors.Is(err, ErrNotConverted):
		return true
	}
	return false
}
