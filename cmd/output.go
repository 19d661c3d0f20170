// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"encoding/hex"
	"fmt"
	"strconv"

	"github.com/pterm/pterm"
	"github.com/xataio/pgbind/internal/json"
	"github.com/xataio/pgbind/pkg/query"
)

// conversionOutput is the printable form of a converted query. Text
// parameters are shown decoded from the client encoding, binary ones as
// \x prefixed hex.
type conversionOutput struct {
	Name    string    `json:"name,omitempty"`
	Query   string    `json:"query"`
	Params  []*string `json:"params"`
	Types   []string  `json:"types"`
	Formats []string  `json:"formats"`
	Order   []string  `json:"order,omitempty"`
	Error   string    `json:"error,omitempty"`
}

type typeResolver interface {
	TypeForOID(ctx context.Context, oid uint32) (string, error)
}

type conversionResult struct {
	name    string
	query   []byte
	params  [][]byte
	types   []uint32
	formats []query.Format
	order   []string
	err     error
}

func newConversionOutput(ctx context.Context, resolver typeResolver, codec *query.Codec, res conversionResult) (*conversionOutput, error) {
	out := &conversionOutput{
		Name:    res.name,
		Query:   codec.Decode(res.query),
		Params:  make([]*string, len(res.params)),
		Types:   make([]string, len(res.types)),
		Formats: make([]string, len(res.formats)),
		Order:   res.order,
	}
	if res.err != nil {
		out.Error = res.err.Error()
	}

	for i, oid := range res.types {
		name, err := resolver.TypeForOID(ctx, oid)
		if err != nil {
			return nil, err
		}
		out.Types[i] = name
	}
	for i, f := range res.formats {
		out.Formats[i] = f.String()
	}
	for i, p := range res.params {
		if p == nil {
			continue
		}
		var v string
		if i < len(res.formats) && res.formats[i] == query.FormatBinary {
			v = `\x` + hex.EncodeToString(p)
		} else {
			v = codec.Decode(p)
		}
		out.Params[i] = &v
	}
	return out, nil
}

func (o *conversionOutput) tableData() pterm.TableData {
	data := pterm.TableData{{"param", "name", "type", "format", "value"}}
	for i := range o.Params {
		name := ""
		if i < len(o.Order) {
			name = o.Order[i]
		}
		value := "NULL"
		if o.Params[i] != nil {
			value = *o.Params[i]
		}
		data = append(data, []string{"$" + strconv.Itoa(i+1), name, o.Types[i], o.Formats[i], value})
	}
	return data
}

func printConversion(o *conversionOutput) error {
	if o.Name != "" {
		pterm.DefaultSection.Println(o.Name)
	}
	if o.Error != "" {
		pterm.Error.Println(o.Error)
		return nil
	}
	pterm.Println(o.Query)
	if len(o.Params) == 0 {
		return nil
	}
	return pterm.DefaultTable.WithHasHeader().WithData(o.tableData()).Render()
}

func printJSON(v any) error {
	b, err := json.MarshalIndent(v)
	if err != nil {
		return fmt.Errorf("marshaling output: %w", err)
	}
	fmt.Println(string(b)) //nolint:forbidigo
	return nil
}
