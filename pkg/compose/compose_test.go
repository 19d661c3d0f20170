// SPDX-License-Identifier: Apache-2.0

package compose

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xataio/pgbind/internal/postgres"
	"github.com/xataio/pgbind/pkg/query"
	"github.com/xataio/pgbind/pkg/query/mocks"
)

func testTransformer(encoding string) *mocks.Transformer {
	return &mocks.Transformer{
		EncodingFn: func() string { return encoding },
		GetDumperFn: func(_ uint, value any, format query.Format) (query.Dumper, error) {
			return &mocks.Dumper{
				DumpFn: func(v any) ([]byte, error) {
					if b, ok := v.([]byte); ok {
						return b, nil
					}
					return []byte(fmt.Sprint(v)), nil
				},
				OIDFn: func() uint32 { return query.TextOID },
			}, nil
		},
	}
}

func TestSQL_Format(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		template string
		args     []query.Composable

		wantQuery string
		wantErr   error
	}{
		{
			name:      "automatic fields",
			template:  "select {} from {} where id = {}",
			args:      []query.Composable{NewIdentifier("name"), NewIdentifier("public", "users"), NewPlaceholder("", query.FormatText)},
			wantQuery: `select "name" from "public"."users" where id = %s`,
		},
		{
			name:      "numbered fields",
			template:  "select {0} from t where {0} = {1}",
			args:      []query.Composable{NewIdentifier("a"), NewLiteral("x")},
			wantQuery: `select "a" from t where "a" = 'x'`,
		},
		{
			name:      "escaped braces",
			template:  "select '{{}}', {}",
			args:      []query.Composable{NewSQL("1")},
			wantQuery: "select '{}', 1",
		},
		{
			name:      "no fields",
			template:  "select 1",
			wantQuery: "select 1",
		},
		{
			name:     "error - mixed numbering",
			template: "select {}, {0}",
			args:     []query.Composable{NewSQL("1")},
			wantErr:  &ErrFormat{Details: "cannot mix automatic and manual field numbering"},
		},
		{
			name:     "error - out of range",
			template: "select {1}",
			args:     []query.Composable{NewSQL("1")},
			wantErr:  &ErrFormat{Details: "replacement field 1 out of range: 1 arguments"},
		},
		{
			name:     "error - unclosed field",
			template: "select {",
			wantErr:  &ErrFormat{Details: "single '{' encountered in template"},
		},
		{
			name:     "error - single closing brace",
			template: "select }",
			wantErr:  &ErrFormat{Details: "single '}' encountered in template"},
		},
		{
			name:     "error - named field",
			template: "select {name}",
			args:     []query.Composable{NewSQL("1")},
			wantErr:  &ErrFormat{Details: "invalid replacement field '{name}'"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			composed, err := NewSQL(tc.template).Format(tc.args...)
			require.Equal(t, tc.wantErr, err)
			if tc.wantErr != nil {
				return
			}

			q, err := composed.AsString(testTransformer(query.DefaultEncoding))
			require.NoError(t, err)
			require.Equal(t, tc.wantQuery, q)
		})
	}
}

func TestIdentifier_AsString(t *testing.T) {
	t.Parallel()

	tx := testTransformer(query.DefaultEncoding)

	s, err := NewIdentifier("my schema", `we"ird`).AsString(tx)
	require.NoError(t, err)
	require.Equal(t, `"my schema"."we""ird"`, s)

	_, err = NewIdentifier().AsString(tx)
	require.ErrorIs(t, err, ErrEmptyIdentifier)

	_, err = NewIdentifier("a", "").AsString(tx)
	require.ErrorIs(t, err, ErrEmptyIdentifier)
}

func TestLiteral_AsString(t *testing.T) {
	t.Parallel()

	errTest := errors.New("oh noes")

	tests := []struct {
		name  string
		value any
		tx    query.Transformer

		wantString string
		wantErr    error
	}{
		{
			name:       "nil",
			value:      nil,
			tx:         testTransformer(query.DefaultEncoding),
			wantString: "NULL",
		},
		{
			name:       "quotes",
			value:      "it's",
			tx:         testTransformer(query.DefaultEncoding),
			wantString: "'it''s'",
		},
		{
			name:       "backslashes",
			value:      `a\b`,
			tx:         testTransformer(query.DefaultEncoding),
			wantString: ` E'a\\b'`,
		},
		{
			name:       "empty string",
			value:      "",
			tx:         testTransformer(query.DefaultEncoding),
			wantString: "''",
		},
		{
			name:       "client encoding",
			value:      []byte{'c', 'a', 'f', 0xe9},
			tx:         testTransformer("LATIN1"),
			wantString: "'café'",
		},
		{
			name:  "error - dumper",
			value: 1,
			tx: &mocks.Transformer{
				GetDumperFn: func(uint, any, query.Format) (query.Dumper, error) {
					return nil, errTest
				},
			},
			wantErr: errTest,
		},
		{
			name:  "error - dump",
			value: 1,
			tx: &mocks.Transformer{
				GetDumperFn: func(uint, any, query.Format) (query.Dumper, error) {
					return &mocks.Dumper{
						DumpFn: func(any) ([]byte, error) { return nil, errTest },
					}, nil
				},
			},
			wantErr: errTest,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			s, err := NewLiteral(tc.value).AsString(tc.tx)
			require.ErrorIs(t, err, tc.wantErr)
			require.Equal(t, tc.wantString, s)
		})
	}
}

func TestLiteral_textFormat(t *testing.T) {
	t.Parallel()

	tx := &mocks.Transformer{
		GetDumperFn: func(_ uint, _ any, format query.Format) (query.Dumper, error) {
			require.Equal(t, query.FormatText, format)
			return &mocks.Dumper{
				DumpFn: func(any) ([]byte, error) { return []byte("42"), nil },
			}, nil
		},
	}

	s, err := NewLiteral(42).AsString(tx)
	require.NoError(t, err)
	require.Equal(t, "'42'", s)
	require.Equal(t, uint(1), tx.GetDumperCalls())
}

func TestLiteral_pgTransformer(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		value    any
		encoding string

		wantString string
	}{
		{
			name:       "empty string",
			value:      "",
			encoding:   "UTF8",
			wantString: "''",
		},
		{
			name:       "empty string with client encoding",
			value:      "",
			encoding:   "LATIN1",
			wantString: "''",
		},
		{
			name:       "string",
			value:      "café",
			encoding:   "LATIN1",
			wantString: "'café'",
		},
		{
			name:       "number",
			value:      int64(7),
			encoding:   "UTF8",
			wantString: "'7'",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			s, err := NewLiteral(tc.value).AsString(postgres.NewTransformer(tc.encoding))
			require.NoError(t, err)
			require.Equal(t, tc.wantString, s)
		})
	}
}

func TestPlaceholder_AsString(t *testing.T) {
	t.Parallel()

	tx := testTransformer(query.DefaultEncoding)

	tests := []struct {
		placeholder Placeholder
		want        string
		wantErr     error
	}{
		{placeholder: NewPlaceholder("", query.FormatText), want: "%s"},
		{placeholder: NewPlaceholder("", query.FormatBinary), want: "%b"},
		{placeholder: NewPlaceholder("id", query.FormatText), want: "%(id)s"},
		{placeholder: NewPlaceholder("data", query.FormatBinary), want: "%(data)b"},
		{placeholder: NewPlaceholder("a)b", query.FormatText), wantErr: ErrInvalidName},
	}

	for _, tc := range tests {
		s, err := tc.placeholder.AsString(tx)
		require.ErrorIs(t, err, tc.wantErr)
		require.Equal(t, tc.want, s)
	}
}

func TestComposed_Join(t *testing.T) {
	t.Parallel()

	tx := testTransformer(query.DefaultEncoding)

	fields := Composed{NewIdentifier("a"), NewIdentifier("b"), NewIdentifier("c")}
	s, err := fields.Join(NewSQL(", ")).AsString(tx)
	require.NoError(t, err)
	require.Equal(t, `"a", "b", "c"`, s)

	s, err = NewSQL(", ").Join().AsString(tx)
	require.NoError(t, err)
	require.Equal(t, "", s)
}

func TestComposed_session(t *testing.T) {
	t.Parallel()

	tx := testTransformer(query.DefaultEncoding)

	q, err := NewSQL("insert into {} ({}) values ({})").Format(
		NewIdentifier("users"),
		Composed{NewIdentifier("id"), NewIdentifier("name")}.Join(NewSQL(", ")),
		Composed{NewPlaceholder("id", query.FormatText), NewPlaceholder("name", query.FormatText)}.Join(NewSQL(", ")),
	)
	require.NoError(t, err)

	s := query.NewSession(tx, query.WithParseCache(query.NewParseCache()))
	err = s.Convert(q, map[string]any{"id": 1, "name": "alice"})
	require.NoError(t, err)
	require.Equal(t, `insert into "users" ("id", "name") values ($1, $2)`, string(s.Query))
	require.Equal(t, [][]byte{[]byte("1"), []byte("alice")}, s.Params)
	require.Equal(t, []string{"id", "name"}, s.Order())
}
