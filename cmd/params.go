// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/xataio/pgbind/internal/json"
)

func paramsFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("params", "p", "", "JSON array or object with the query parameters. Use - to read them from stdin")
	cmd.Flags().String("params-path", "", "Path of the parameters inside the --params JSON document, in gjson syntax")
	cmd.Flags().StringArray("param", nil, "Parameter to set, in the format key=value. The value is parsed as JSON when valid. Can be repeated")
}

// parseParams returns the query parameters given through the command flags.
// It returns nil when no parameters are given, in which case the query is
// used as is.
func parseParams(cmd *cobra.Command, stdin io.Reader) (any, error) {
	raw, err := cmd.Flags().GetString("params")
	if err != nil {
		return nil, err
	}
	path, err := cmd.Flags().GetString("params-path")
	if err != nil {
		return nil, err
	}
	assignments, err := cmd.Flags().GetStringArray("param")
	if err != nil {
		return nil, err
	}
	return buildParams(raw, path, assignments, stdin)
}

func buildParams(raw, path string, assignments []string, stdin io.Reader) (any, error) {
	doc := []byte(raw)
	if raw == "-" {
		if stdin == nil {
			stdin = os.Stdin
		}
		b, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("reading parameters from stdin: %w", err)
		}
		doc = b
	}

	if path != "" {
		selected, err := json.Select(doc, path)
		if err != nil {
			return nil, err
		}
		doc = selected
	}

	for _, assignment := range assignments {
		updated, err := json.Set(doc, assignment)
		if err != nil {
			return nil, err
		}
		doc = updated
	}

	return json.UnmarshalParams(doc)
}
