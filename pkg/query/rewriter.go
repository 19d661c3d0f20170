// SPDX-License-Identifier: Apache-2.0

package query

import (
	"fmt"
	"strconv"
)

// ParsedQuery is a query rewritten with $n placeholders. Values returned by
// the parse cache are shared between sessions and must not be modified.
type ParsedQuery struct {
	// Query is the rewritten query text.
	Query []byte
	// Formats holds the format of each $n placeholder, in $n order.
	Formats []Format
	// Order lists the distinct placeholder names in $n order. It is nil for
	// queries using positional placeholders.
	Order []string
	// Parts is the split of the original query, used to validate the
	// parameters passed along with it.
	Parts []Part
}

// Placeholders returns the number of client placeholders in the original
// query. Named placeholders are counted once per occurrence.
func (q *ParsedQuery) Placeholders() int {
	return len(q.Parts) - 1
}

func (q *ParsedQuery) IsNamed() bool {
	return q.Order != nil
}

type namedSlot struct {
	placeholder []byte
	format      Format
}

// parseQuery converts the client placeholders of the query into $n
// placeholders:
//   - %s and %b placeholders get a new $n each, in order of appearance
//   - every distinct %(name)s or %(name)b gets a new $n, reused by the
//     following occurrences of the same name
func parseQuery(query []byte, codec *Codec) (*ParsedQuery, error) {
	parts, err := splitQuery(query, codec)
	if err != nil {
		return nil, err
	}

	placeholders := parts[:len(parts)-1]
	if err := validatePlaceholderKinds(placeholders); err != nil {
		return nil, err
	}

	out := make([]byte, 0, len(query)+len(placeholders)*2)
	formats := make([]Format, 0, len(placeholders))
	var order []string

	switch {
	case len(placeholders) == 0 || !placeholders[0].Item.IsNamed():
		for i, part := range placeholders {
			out = append(out, part.Pre...)
			out = appendPlaceholder(out, i+1)
			formats = append(formats, part.Format)
		}

	default:
		seen := make(map[string]namedSlot, len(placeholders))
		order = make([]string, 0, len(placeholders))
		for _, part := range placeholders {
			out = append(out, part.Pre...)
			name := part.Item.Name()
			slot, found := seen[name]
			if !found {
				slot = namedSlot{
					placeholder: appendPlaceholder(nil, len(seen)+1),
					format:      part.Format,
				}
				seen[name] = slot
				order = append(order, name)
				formats = append(formats, part.Format)
			} else if slot.format != part.Format {
				return nil, &ErrInvalidPlaceholders{
					Details: fmt.Sprintf("placeholder '%s' cannot have different formats", name),
				}
			}
			out = append(out, slot.placeholder...)
		}
	}

	out = append(out, parts[len(parts)-1].Pre...)

	return &ParsedQuery{
		Query:   out,
		Formats: formats,
		Order:   order,
		Parts:   parts,
	}, nil
}

// validatePlaceholderKinds checks all the placeholders are of the kind of the
// first one.
func validatePlaceholderKinds(placeholders []Part) error {
	if len(placeholders) == 0 {
		return nil
	}
	named := placeholders[0].Item.IsNamed()
	for _, part := range placeholders[1:] {
		if part.Item.IsNamed() != named {
			return &ErrInvalidPlaceholders{Details: "positional and named placeholders cannot be mixed"}
		}
	}
	return nil
}

func appendPlaceholder(b []byte, idx int) []byte {
	b = append(b, '$')
	return strconv.AppendInt(b, int64(idx), 10)
}
