// SPDX-License-Identifier: Apache-2.0

package query

import (
	"bytes"
	"fmt"
)

const percentOperatorHint = "incomplete placeholder: '%'; if you want to use '%' as an operator you can double it up, i.e. use '%%'"

// splitQuery splits the query into the literal chunks preceding each
// placeholder. '%%' is unescaped to '%' and merged into the literal text.
// The last part returned holds the trailing literal and no placeholder.
//
// The codec is only used to render the offending fragment in errors.
func splitQuery(query []byte, codec *Codec) ([]Part, error) {
	parts := make([]Part, 0, bytes.Count(query, []byte{'%'})+1)
	pre := make([]byte, 0, len(query))
	cur := 0

	for {
		i := bytes.IndexByte(query[cur:], '%')
		if i < 0 {
			pre = append(pre, query[cur:]...)
			break
		}
		start := cur + i
		pre = append(pre, query[cur:start]...)

		ph, name, err := scanPlaceholder(query, start, codec)
		if err != nil {
			return nil, err
		}
		cur = start + len(ph)

		if len(ph) == 2 && ph[1] == '%' {
			pre = append(pre, '%')
			continue
		}

		format, ok := formatFromByte(ph[len(ph)-1])
		if !ok {
			return nil, &ErrSyntax{
				Details: fmt.Sprintf("only '%%s' and '%%b' placeholders allowed, got %s", codec.Decode(ph)),
			}
		}

		item := IndexPlaceholder(len(parts))
		if name != nil {
			item = NamePlaceholder(codec.Decode(name))
		}

		parts = append(parts, Part{
			Pre:    bytes.Clone(pre),
			Item:   item,
			Format: format,
		})
		pre = pre[:0]
	}

	parts = append(parts, Part{
		Pre:    bytes.Clone(pre),
		Item:   IndexPlaceholder(0),
		Format: FormatText,
	})
	return parts, nil
}

// scanPlaceholder reads the placeholder starting with the '%' at position
// start. It returns the whole placeholder and, for %(name)x placeholders, the
// name. The format character is not validated.
func scanPlaceholder(query []byte, start int, codec *Codec) (ph, name []byte, err error) {
	next := start + 1
	if next >= len(query) {
		return nil, nil, &ErrSyntax{Details: percentOperatorHint}
	}

	switch query[next] {
	case '(':
		// %(name) followed by a format character. The name is anything up
		// to the closing parenthesis, and can't be empty.
		closing := bytes.IndexByte(query[next+1:], ')')
		if closing > 0 && next+1+closing+1 < len(query) {
			end := next + 1 + closing + 2
			return query[start:end], query[next+1 : next+1+closing], nil
		}
		return nil, nil, &ErrSyntax{
			Details: fmt.Sprintf("incomplete placeholder: '%s'", codec.Decode(firstField(query[start:]))),
		}
	case ' ':
		return nil, nil, &ErrSyntax{Details: percentOperatorHint}
	default:
		return query[start : next+1], nil, nil
	}
}

// firstField returns b up to the first whitespace.
func firstField(b []byte) []byte {
	if fields := bytes.Fields(b); len(fields) > 0 {
		return fields[0]
	}
	return b
}
