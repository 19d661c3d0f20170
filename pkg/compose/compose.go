// SPDX-License-Identifier: Apache-2.0

// Package compose builds queries out of SQL snippets, quoted identifiers and
// literals. The objects implement query.Composable and can be passed as the
// query of a query.Session, or of the postgres queriers.
package compose

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/lib/pq"
	"github.com/xataio/pgbind/pkg/query"
)

// SQL is a snippet of query text, rendered as is. It can contain {}
// replacement fields, see Format.
type SQL struct {
	text string
}

// Identifier is a possibly qualified name, such as a table or column,
// rendered double quoted.
type Identifier struct {
	parts []string
}

// Literal is a value rendered as a quoted SQL literal, using the text
// representation of its dumper. Nil renders as NULL.
type Literal struct {
	value any
}

// Placeholder is a client placeholder (%s, %b, %(name)s or %(name)b), bound
// to the parameters when the composed query is converted.
type Placeholder struct {
	name   string
	format query.Format
}

// Composed is a sequence of composable objects, rendered one after the other.
type Composed []query.Composable

func NewSQL(text string) SQL {
	return SQL{text: text}
}

func NewIdentifier(parts ...string) Identifier {
	return Identifier{parts: parts}
}

func NewLiteral(value any) Literal {
	return Literal{value: value}
}

// NewPlaceholder returns a placeholder. An empty name returns a positional
// placeholder.
func NewPlaceholder(name string, format query.Format) Placeholder {
	return Placeholder{name: name, format: format}
}

func (s SQL) AsString(query.Transformer) (string, error) {
	return s.text, nil
}

func (s SQL) String() string {
	return s.text
}

// Format replaces the replacement fields of the SQL text with the rendering
// of the arguments. Fields are either all automatic ({}) or all numbered
// ({0}, {1}, ...). '{{' and '}}' render a single brace.
func (s SQL) Format(args ...query.Composable) (Composed, error) {
	var out Composed
	var literal strings.Builder
	auto, numbered := false, false
	next := 0

	text := s.text
	for i := 0; i < len(text); i++ {
		c := text[i]
		switch {
		case c == '{' && i+1 < len(text) && text[i+1] == '{',
			c == '}' && i+1 < len(text) && text[i+1] == '}':
			literal.WriteByte(c)
			i++
			continue
		case c == '}':
			return nil, &ErrFormat{Details: "single '}' encountered in template"}
		case c != '{':
			literal.WriteByte(c)
			continue
		}

		end := strings.IndexByte(text[i:], '}')
		if end < 0 {
			return nil, &ErrFormat{Details: "single '{' encountered in template"}
		}
		field := text[i+1 : i+end]
		i += end

		idx := next
		if field == "" {
			auto = true
			next++
		} else {
			n, err := strconv.Atoi(field)
			if err != nil || n < 0 {
				return nil, &ErrFormat{Details: fmt.Sprintf("invalid replacement field '{%s}'", field)}
			}
			numbered = true
			idx = n
		}
		if auto && numbered {
			return nil, &ErrFormat{Details: "cannot mix automatic and manual field numbering"}
		}
		if idx >= len(args) {
			return nil, &ErrFormat{Details: fmt.Sprintf("replacement field %d out of range: %d arguments", idx, len(args))}
		}

		if literal.Len() > 0 {
			out = append(out, NewSQL(literal.String()))
			literal.Reset()
		}
		out = append(out, args[idx])
	}

	if literal.Len() > 0 {
		out = append(out, NewSQL(literal.String()))
	}
	return out, nil
}

// Join returns the objects on input separated by the SQL text.
func (s SQL) Join(items ...query.Composable) Composed {
	out := make(Composed, 0, len(items)*2)
	for i, item := range items {
		if i > 0 {
			out = append(out, s)
		}
		out = append(out, item)
	}
	return out
}

func (id Identifier) AsString(query.Transformer) (string, error) {
	if len(id.parts) == 0 {
		return "", ErrEmptyIdentifier
	}
	quoted := make([]string, len(id.parts))
	for i, part := range id.parts {
		if part == "" {
			return "", ErrEmptyIdentifier
		}
		quoted[i] = pq.QuoteIdentifier(part)
	}
	return strings.Join(quoted, "."), nil
}

func (l Literal) AsString(tx query.Transformer) (string, error) {
	if l.value == nil {
		return "NULL", nil
	}

	dumper, err := tx.GetDumper(l.value, query.FormatText)
	if err != nil {
		return "", fmt.Errorf("rendering literal: %w", err)
	}
	b, err := dumper.Dump(l.value)
	if err != nil {
		return "", fmt.Errorf("rendering literal: %w", err)
	}
	if b == nil {
		return "NULL", nil
	}

	// dumpers return the client encoding, the query is rendered as a Go
	// string and encoded again when converted
	codec, err := query.LookupCodec(tx.Encoding())
	if err != nil {
		return "", err
	}
	return pq.QuoteLiteral(codec.Decode(b)), nil
}

func (p Placeholder) AsString(query.Transformer) (string, error) {
	code := "s"
	if p.format == query.FormatBinary {
		code = "b"
	}
	if p.name == "" {
		return "%" + code, nil
	}
	if strings.ContainsAny(p.name, ")%") {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, p.name)
	}
	return "%(" + p.name + ")" + code, nil
}

func (c Composed) AsString(tx query.Transformer) (string, error) {
	var b strings.Builder
	for _, item := range c {
		s, err := item.AsString(tx)
		if err != nil {
			return "", err
		}
		b.WriteString(s)
	}
	return b.String(), nil
}

// Join returns the objects of the sequence separated by the SQL text.
func (c Composed) Join(sep SQL) Composed {
	return sep.Join(c...)
}
