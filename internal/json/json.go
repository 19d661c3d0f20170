// SPDX-License-Identifier: Apache-2.0

package json

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	json "github.com/bytedance/sonic"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// paramsAPI keeps integral numbers as int64, so they are sent as integers
// rather than floats.
var paramsAPI = json.Config{UseInt64: true}.Froze()

var (
	ErrPathNotFound    = errors.New("json path not found")
	ErrInvalidParam    = errors.New("invalid parameter, expected key=value")
	ErrInvalidDocument = errors.New("invalid json document")
)

var setOpt = &sjson.Options{
	ReplaceInPlace: true,
}

func Unmarshal(b []byte, v any) error {
	return json.Unmarshal(b, v)
}

func Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func MarshalIndent(v any) ([]byte, error) {
	return json.MarshalIndent(v, "", "  ")
}

// UnmarshalInt64 works like Unmarshal, but integral numbers decoded into
// interface values are int64 instead of float64.
func UnmarshalInt64(b []byte, v any) error {
	return paramsAPI.Unmarshal(b, v)
}

// UnmarshalParams decodes query parameters: arrays become []any, objects
// map[string]any, integral numbers int64 and other numbers float64. Empty
// input and null decode to nil.
func UnmarshalParams(b []byte) (any, error) {
	if len(bytes.TrimSpace(b)) == 0 {
		return nil, nil
	}
	var params any
	if err := UnmarshalInt64(b, &params); err != nil {
		return nil, fmt.Errorf("decoding parameters: %w", err)
	}
	return params, nil
}

// Select returns the raw JSON value found at the gjson path in the document.
func Select(doc []byte, path string) ([]byte, error) {
	if !gjson.ValidBytes(doc) {
		return nil, ErrInvalidDocument
	}
	res := gjson.GetBytes(doc, path)
	if !res.Exists() {
		return nil, fmt.Errorf("%w: %s", ErrPathNotFound, path)
	}
	return []byte(res.Raw), nil
}

// Set applies a key=value assignment to the document, creating it as an
// object when empty. The key is a sjson path. The value is set as JSON when
// valid, otherwise as a string.
func Set(doc []byte, assignment string) ([]byte, error) {
	key, value, found := strings.Cut(assignment, "=")
	if !found || key == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidParam, assignment)
	}

	if len(bytes.TrimSpace(doc)) == 0 {
		doc = []byte("{}")
	}

	var res []byte
	var err error
	if gjson.Valid(value) {
		res, err = sjson.SetRawBytesOptions(doc, key, []byte(value), setOpt)
	} else {
		res, err = sjson.SetBytesOptions(doc, key, value, setOpt)
	}
	if err != nil {
		return nil, fmt.Errorf("setting parameter %s: %w", key, err)
	}
	return res, nil
}
