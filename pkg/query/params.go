// SPDX-License-Identifier: Apache-2.0

package query

import (
	"fmt"
	"reflect"
	"sort"
)

// validateAndReorderParams checks the parameters are compatible with the
// query parts and returns them in $n order.
//
// Sequences (slices and arrays, except byte slices) must have one element per
// placeholder occurrence and are only allowed for positional placeholders.
// Mappings (maps with string keys) must hold every placeholder name and are
// only allowed for named placeholders. Empty collections are accepted for
// either kind.
func validateAndReorderParams(parts []Part, params any, order []string) ([]any, error) {
	switch p := params.(type) {
	case []any:
		return validateSequence(parts, p)
	case map[string]any:
		return reorderMapping(parts, len(p), order, func(name string) (any, bool) {
			v, found := p[name]
			return v, found
		})
	}

	rv := reflect.ValueOf(params)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			break
		}
		seq := make([]any, rv.Len())
		for i := range seq {
			seq[i] = rv.Index(i).Interface()
		}
		return validateSequence(parts, seq)

	case reflect.Map:
		keyType := rv.Type().Key()
		if keyType.Kind() != reflect.String {
			break
		}
		return reorderMapping(parts, rv.Len(), order, func(name string) (any, bool) {
			v := rv.MapIndex(reflect.ValueOf(name).Convert(keyType))
			if !v.IsValid() {
				return nil, false
			}
			return v.Interface(), true
		})
	}

	return nil, &ErrParamsType{Type: typeName(params)}
}

func validateSequence(parts []Part, params []any) ([]any, error) {
	if placeholders := len(parts) - 1; len(params) != placeholders {
		return nil, &ErrParamsCount{Placeholders: placeholders, Params: len(params)}
	}
	if len(params) > 0 && parts[0].Item.IsNamed() {
		return nil, &ErrParamsKind{Details: "named placeholders require a mapping of parameters"}
	}
	return params, nil
}

func reorderMapping(parts []Part, size int, order []string, lookup func(string) (any, bool)) ([]any, error) {
	if size > 0 && len(parts) > 1 && !parts[0].Item.IsNamed() {
		return nil, &ErrParamsKind{Details: "positional placeholders (%s) require a sequence of parameters"}
	}

	params := make([]any, 0, len(order))
	var missing []string
	for _, name := range order {
		v, found := lookup(name)
		if !found {
			missing = append(missing, name)
			continue
		}
		params = append(params, v)
	}

	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, &ErrMissingParams{Names: missing}
	}
	return params, nil
}

func typeName(v any) string {
	if v == nil {
		return "nil"
	}
	return fmt.Sprintf("%T", v)
}
