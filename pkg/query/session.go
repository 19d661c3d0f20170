// SPDX-License-Identifier: Apache-2.0

package query

import (
	"bytes"
	"fmt"
	"reflect"
	"slices"

	loglib "github.com/xataio/pgbind/pkg/log"
)

// Transformer gives access to the serialisation of parameter values.
type Transformer interface {
	// Encoding returns the client encoding name used for the query text.
	Encoding() string
	// GetDumper returns the dumper for the value in the requested format.
	// For a given value type and format it must always return an equivalent
	// dumper.
	GetDumper(value any, format Format) (Dumper, error)
}

// Dumper serialises values of one type into one wire format.
type Dumper interface {
	Dump(value any) ([]byte, error)
	// OID is the type the server receives the dumped value as.
	OID() uint32
}

// Composable is a query object that renders to query text, such as the ones
// built with pkg/compose.
type Composable interface {
	AsString(tx Transformer) (string, error)
}

// Session converts queries with client placeholders and their parameters
// into what the extended query protocol expects. After a successful Convert
// or Dump the exported fields hold the result:
//   - Query: the query text with $n placeholders
//   - Params: the serialised parameters, nil entries for NULLs
//   - Types: the OID of each parameter, UnknownOID for NULLs
//   - Formats: the format of each parameter
//
// A Session is not safe for concurrent use.
type Session struct {
	Query   []byte
	Params  [][]byte
	Types   []uint32
	Formats []Format

	tx     Transformer
	cache  *ParseCache
	logger loglib.Logger
	parsed *ParsedQuery
}

type Option func(*Session)

func WithParseCache(c *ParseCache) Option {
	return func(s *Session) {
		s.cache = c
	}
}

func WithLogger(l loglib.Logger) Option {
	return func(s *Session) {
		s.logger = loglib.WithModule(l, "query_session")
	}
}

func NewSession(tx Transformer, opts ...Option) *Session {
	s := &Session{
		tx:     tx,
		cache:  DefaultParseCache(),
		logger: loglib.NewNoopLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Convert sets up the query and its parameters. The query can be a string,
// a []byte already in the client encoding, or a Composable.
//
// When params is nil the query is used as is: placeholders are not parsed
// and '%%' is not unescaped. Otherwise params must be a sequence for
// positional placeholders (%s, %b) or a mapping for named ones (%(name)s,
// %(name)b), see Dump.
//
// On error the session keeps the result of the previous call.
func (s *Session) Convert(query any, params any) error {
	codec, err := LookupCodec(s.tx.Encoding())
	if err != nil {
		return err
	}

	text, err := s.queryBytes(query, codec)
	if err != nil {
		return err
	}

	if params == nil {
		s.Query = bytes.Clone(text)
		s.Formats = nil
		s.parsed = nil
		s.Params = nil
		s.Types = nil
		return nil
	}

	parsed, err := s.cache.Parse(text, codec)
	if err != nil {
		return err
	}

	values, types, err := s.dump(parsed, params, nil)
	if err != nil {
		return err
	}

	s.Query = parsed.Query
	s.Formats = slices.Clone(parsed.Formats)
	s.parsed = parsed
	s.Params = values
	s.Types = types

	s.logger.Trace("query converted", loglib.Fields{
		loglib.QueryField:        string(s.Query),
		loglib.EncodingField:     codec.Name(),
		loglib.PlaceholdersField: parsed.Placeholders(),
	})
	return nil
}

// Dump serialises a new set of parameters for the query of the last Convert,
// updating Params and Types. A nil params clears both.
//
// Types are only resolved by the first Dump following a Convert (or a Dump
// with nil params); later calls reuse them and only serialise the values.
// The values passed to consecutive Dump calls must therefore keep the same
// types, otherwise the server receives the OIDs of the old ones. Call
// Convert again when the parameter types change.
func (s *Session) Dump(params any) error {
	if params == nil {
		s.Params = nil
		s.Types = nil
		return nil
	}

	if s.parsed == nil {
		return ErrNotConverted
	}

	values, types, err := s.dump(s.parsed, params, s.Types)
	if err != nil {
		return err
	}

	s.Params = values
	s.Types = types
	return nil
}

// Order returns the placeholder names in $n order, or nil when the query
// uses positional placeholders.
func (s *Session) Order() []string {
	if s.parsed == nil {
		return nil
	}
	return slices.Clone(s.parsed.Order)
}

// dump reconciles params with the parsed query and serialises them. The
// types on input are returned unchanged when they match the number of
// parameters, otherwise they are resolved from the dumpers.
func (s *Session) dump(parsed *ParsedQuery, params any, types []uint32) ([][]byte, []uint32, error) {
	ordered, err := validateAndReorderParams(parsed.Parts, params, parsed.Order)
	if err != nil {
		return nil, nil, err
	}

	resolveTypes := types == nil || len(types) != len(ordered)
	if resolveTypes {
		types = make([]uint32, len(ordered))
	}

	values := make([][]byte, len(ordered))
	for i, param := range ordered {
		if isNull(param) {
			if resolveTypes {
				types[i] = UnknownOID
			}
			continue
		}

		dumper, err := s.tx.GetDumper(param, parsed.Formats[i])
		if err != nil {
			return nil, nil, fmt.Errorf("dumping parameter $%d: %w", i+1, err)
		}
		values[i], err = dumper.Dump(param)
		if err != nil {
			return nil, nil, fmt.Errorf("dumping parameter $%d: %w", i+1, err)
		}
		if resolveTypes {
			types[i] = dumper.OID()
		}
	}

	return values, types, nil
}

func (s *Session) queryBytes(query any, codec *Codec) ([]byte, error) {
	if c, ok := query.(Composable); ok {
		rendered, err := c.AsString(s.tx)
		if err != nil {
			return nil, fmt.Errorf("rendering composed query: %w", err)
		}
		query = rendered
	}

	switch q := query.(type) {
	case string:
		return codec.Encode(q)
	case []byte:
		return q, nil
	default:
		return nil, &ErrQueryType{Type: typeName(query)}
	}
}

func isNull(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface:
		return rv.IsNil()
	}
	return false
}
