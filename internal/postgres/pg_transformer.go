// SPDX-License-Identifier: Apache-2.0

package postgres

import (
	"fmt"
	"reflect"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/xataio/pgbind/pkg/query"
)

// Transformer resolves the dumpers of query parameters from the types
// registered in a pgtype.Map. Like the map, it is not safe for concurrent use.
type Transformer struct {
	typeMap  *pgtype.Map
	encoding string
	codec    *query.Codec
	dumpers  map[dumperKey]*Dumper
}

type dumperKey struct {
	valueType reflect.Type
	format    query.Format
}

// Dumper encodes values to the wire format of one postgres type.
type Dumper struct {
	typeMap *pgtype.Map
	oid     uint32
	format  query.Format
	// codec converts the text produced by the type map, always UTF-8, to the
	// client encoding. Nil when no conversion is needed.
	codec *query.Codec
}

// NewTransformer returns a transformer for a connection using the given
// client encoding, with its own type map. Text produced by the dumpers is
// converted to the client encoding when it's a known one.
func NewTransformer(encoding string) *Transformer {
	return newTransformer(newTypeMap(), encoding)
}

func newTransformer(typeMap *pgtype.Map, encoding string) *Transformer {
	t := &Transformer{
		typeMap:  typeMap,
		encoding: encoding,
		dumpers:  make(map[dumperKey]*Dumper),
	}
	if codec, err := query.LookupCodec(encoding); err == nil && !codec.IsPassthrough() {
		t.codec = codec
	}
	return t
}

func newTypeMap() *pgtype.Map {
	m := pgtype.NewMap()
	m.RegisterDefaultPgType(uuid.UUID{}, "uuid")
	return m
}

func (t *Transformer) Encoding() string {
	return t.encoding
}

func (t *Transformer) GetDumper(value any, format query.Format) (query.Dumper, error) {
	key := dumperKey{valueType: reflect.TypeOf(value), format: format}
	if d, found := t.dumpers[key]; found {
		return d, nil
	}

	typ, found := t.typeMap.TypeForValue(value)
	if !found {
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedValue, value)
	}

	d := &Dumper{
		typeMap: t.typeMap,
		oid:     typ.OID,
		format:  format,
	}
	// binary values are only text for strings
	if format == query.FormatText || reflect.TypeOf(value).Kind() == reflect.String {
		d.codec = t.codec
	}
	t.dumpers[key] = d
	return d, nil
}

// TypeName returns the name of the type with the given OID, if known.
func (t *Transformer) TypeName(oid uint32) (string, bool) {
	if oid == query.UnknownOID {
		return "unknown", true
	}
	typ, found := t.typeMap.TypeForOID(oid)
	if !found {
		return "", false
	}
	return typ.Name, true
}

// decode converts a value received from the server into a Go value. Values of
// types missing from the type map are returned as strings in text format, or
// raw bytes in binary format.
func (t *Transformer) decode(oid uint32, format int16, src []byte) (any, error) {
	if src == nil {
		return nil, nil
	}
	typ, found := t.typeMap.TypeForOID(oid)
	if !found {
		if format == pgtype.TextFormatCode {
			return string(src), nil
		}
		return src, nil
	}
	return typ.Codec.DecodeValue(t.typeMap, oid, format, src)
}

// Dump encodes the value. Empty values are returned as empty non-nil slices,
// nil is only returned when the type map encodes the value as NULL (e.g. an
// invalid sql.NullString).
func (d *Dumper) Dump(value any) ([]byte, error) {
	buf, err := d.typeMap.Encode(d.oid, int16(d.format), value, []byte{})
	if err != nil {
		return nil, fmt.Errorf("encoding %T in %s format: %w", value, d.format, err)
	}
	if buf == nil || d.codec == nil {
		return buf, nil
	}

	encoded, err := d.codec.Encode(string(buf))
	if err != nil {
		return nil, err
	}
	if encoded == nil {
		encoded = []byte{}
	}
	return encoded, nil
}

func (d *Dumper) OID() uint32 {
	return d.oid
}
