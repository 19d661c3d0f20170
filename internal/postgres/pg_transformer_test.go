// SPDX-License-Identifier: Apache-2.0

package postgres

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/require"
	"github.com/xataio/pgbind/pkg/query"
)

func TestTransformer_GetDumper(t *testing.T) {
	t.Parallel()

	testUUID := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")

	tests := []struct {
		name   string
		value  any
		format query.Format

		wantOID   uint32
		wantBytes []byte
		wantErr   error
	}{
		{
			name:      "string text",
			value:     "abc",
			format:    query.FormatText,
			wantOID:   query.TextOID,
			wantBytes: []byte("abc"),
		},
		{
			name:      "int64 text",
			value:     int64(42),
			format:    query.FormatText,
			wantOID:   pgtype.Int8OID,
			wantBytes: []byte("42"),
		},
		{
			name:      "int64 binary",
			value:     int64(42),
			format:    query.FormatBinary,
			wantOID:   pgtype.Int8OID,
			wantBytes: []byte{0, 0, 0, 0, 0, 0, 0, 42},
		},
		{
			name:      "bool text",
			value:     true,
			format:    query.FormatText,
			wantOID:   pgtype.BoolOID,
			wantBytes: []byte("t"),
		},
		{
			name:      "bytes binary",
			value:     []byte{0xde, 0xad},
			format:    query.FormatBinary,
			wantOID:   pgtype.ByteaOID,
			wantBytes: []byte{0xde, 0xad},
		},
		{
			name:      "uuid text",
			value:     testUUID,
			format:    query.FormatText,
			wantOID:   pgtype.UUIDOID,
			wantBytes: []byte("6ba7b810-9dad-11d1-80b4-00c04fd430c8"),
		},
		{
			name:      "empty string text",
			value:     "",
			format:    query.FormatText,
			wantOID:   query.TextOID,
			wantBytes: []byte{},
		},
		{
			name:      "empty string binary",
			value:     "",
			format:    query.FormatBinary,
			wantOID:   query.TextOID,
			wantBytes: []byte{},
		},
		{
			name:      "empty bytes text",
			value:     []byte{},
			format:    query.FormatText,
			wantOID:   pgtype.ByteaOID,
			wantBytes: []byte(`\x`),
		},
		{
			name:      "empty bytes binary",
			value:     []byte{},
			format:    query.FormatBinary,
			wantOID:   pgtype.ByteaOID,
			wantBytes: []byte{},
		},
		{
			name:    "error - unsupported value",
			value:   struct{ A int }{A: 1},
			format:  query.FormatText,
			wantErr: ErrUnsupportedValue,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			tx := NewTransformer("UTF8")
			dumper, err := tx.GetDumper(tc.value, tc.format)
			if !errors.Is(err, tc.wantErr) {
				require.Fail(t, "unexpected error", err)
			}
			if tc.wantErr != nil {
				return
			}

			require.Equal(t, tc.wantOID, dumper.OID())
			b, err := dumper.Dump(tc.value)
			require.NoError(t, err)
			require.NotNil(t, b)
			require.Equal(t, tc.wantBytes, b)
		})
	}
}

func TestTransformer_GetDumperCached(t *testing.T) {
	t.Parallel()

	tx := NewTransformer("UTF8")
	require.Equal(t, "UTF8", tx.Encoding())

	first, err := tx.GetDumper(int64(1), query.FormatText)
	require.NoError(t, err)
	second, err := tx.GetDumper(int64(2), query.FormatText)
	require.NoError(t, err)
	require.Same(t, first, second)

	binary, err := tx.GetDumper(int64(1), query.FormatBinary)
	require.NoError(t, err)
	require.NotSame(t, first, binary)
	require.Len(t, tx.dumpers, 2)
}

func TestTransformer_clientEncoding(t *testing.T) {
	t.Parallel()

	tx := NewTransformer("LATIN1")

	for _, format := range []query.Format{query.FormatText, query.FormatBinary} {
		dumper, err := tx.GetDumper("café", format)
		require.NoError(t, err)
		b, err := dumper.Dump("café")
		require.NoError(t, err)
		require.Equal(t, []byte{'c', 'a', 'f', 0xe9}, b)
	}

	// binary values other than strings are left untouched
	dumper, err := tx.GetDumper([]byte{0xc3, 0xa9}, query.FormatBinary)
	require.NoError(t, err)
	b, err := dumper.Dump([]byte{0xc3, 0xa9})
	require.NoError(t, err)
	require.Equal(t, []byte{0xc3, 0xa9}, b)

	// empty strings stay empty values, not NULLs
	for _, format := range []query.Format{query.FormatText, query.FormatBinary} {
		dumper, err := tx.GetDumper("", format)
		require.NoError(t, err)
		b, err := dumper.Dump("")
		require.NoError(t, err)
		require.NotNil(t, b)
		require.Empty(t, b)
	}

	dumper, err = tx.GetDumper("€", query.FormatText)
	require.NoError(t, err)
	_, err = dumper.Dump("€")
	require.Error(t, err)
}

func TestTransformer_decode(t *testing.T) {
	t.Parallel()

	tx := NewTransformer("UTF8")

	v, err := tx.decode(pgtype.Int4OID, pgtype.TextFormatCode, []byte("7"))
	require.NoError(t, err)
	require.Equal(t, int32(7), v)

	v, err = tx.decode(pgtype.TextOID, pgtype.TextFormatCode, nil)
	require.NoError(t, err)
	require.Nil(t, v)

	v, err = tx.decode(99999, pgtype.TextFormatCode, []byte("custom"))
	require.NoError(t, err)
	require.Equal(t, "custom", v)

	v, err = tx.decode(99999, pgtype.BinaryFormatCode, []byte{1})
	require.NoError(t, err)
	require.Equal(t, []byte{1}, v)
}

func TestTransformer_TypeName(t *testing.T) {
	t.Parallel()

	tx := NewTransformer("UTF8")

	name, found := tx.TypeName(pgtype.Int8OID)
	require.True(t, found)
	require.Equal(t, "int8", name)

	name, found = tx.TypeName(query.UnknownOID)
	require.True(t, found)
	require.Equal(t, "unknown", name)

	_, found = tx.TypeName(99999)
	require.False(t, found)
}
