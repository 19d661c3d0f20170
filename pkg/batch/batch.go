// SPDX-License-Identifier: Apache-2.0

package batch

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

var ErrEmptyQuery = errors.New("entry with empty query")

// File is a list of queries with their parameters, as read from a YAML
// document:
//
//	encoding: UTF8
//	queries:
//	  - name: insert user
//	    query: insert into users(id, name) values (%(id)s, %(name)s)
//	    params: {id: 1, name: alice}
//	  - name: insert scores
//	    query: insert into scores values (%s, %s)
//	    param_sets: [[1, 10], [2, 20]]
type File struct {
	Encoding string  `yaml:"encoding"`
	Entries  []Entry `yaml:"queries"`
}

// Entry is one query of a batch. Params is a sequence or a mapping, nil
// to send the query as is. Entries with ParamSets are executed once per
// set.
type Entry struct {
	Name      string `yaml:"name"`
	Query     string `yaml:"query"`
	Params    any    `yaml:"params"`
	ParamSets []any  `yaml:"param_sets"`
}

func LoadFile(path string) (*File, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading batch file: %w", err)
	}
	return Parse(b)
}

func Parse(b []byte) (*File, error) {
	f := &File{}
	if err := yaml.Unmarshal(b, f); err != nil {
		return nil, fmt.Errorf("parsing batch file: %w", err)
	}

	for i := range f.Entries {
		if f.Entries[i].Name == "" {
			f.Entries[i].Name = fmt.Sprintf("query_%d", i+1)
		}
		if f.Entries[i].Query == "" {
			return nil, fmt.Errorf("%w: %s", ErrEmptyQuery, f.Entries[i].Name)
		}
	}
	return f, nil
}

// paramSets returns the parameters the entry is run with.
func (e *Entry) paramSets() []any {
	if len(e.ParamSets) > 0 {
		return e.ParamSets
	}
	return []any{e.Params}
}
