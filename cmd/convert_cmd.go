// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/xataio/pgbind/internal/postgres"
	loglib "github.com/xataio/pgbind/pkg/log"
	"github.com/xataio/pgbind/pkg/query"
)

var convertCmd = &cobra.Command{
	Use:   "convert [query]",
	Short: "Converts a query with client side placeholders into a parameterised query",
	Long:  "Converts a query with %s, %b, %(name)s or %(name)b placeholders into a query with $n placeholders, along with the serialised parameters, their types and formats. No database connection is needed.",
	Example: `
	pgbind convert "select * from users where id = %s" --params '[42]'
	pgbind convert "select %(a)s, %(b)b, %(a)s" --param a=1 --param b='"x"' --json
	pgbind convert "insert into t values (%s)" --params '["café"]' --encoding LATIN1`,
	Args: cobra.ExactArgs(1),
	RunE: withSignalWatcher(convert),
}

func convert(ctx context.Context, cmd *cobra.Command, args []string) error {
	params, err := parseParams(cmd, cmd.InOrStdin())
	if err != nil {
		return err
	}
	encoding, err := cmd.Flags().GetString("encoding")
	if err != nil {
		return err
	}

	out, err := convertQuery(ctx, newLogger(), args[0], params, encoding)
	if err != nil {
		return err
	}

	if cmd.Flags().Lookup("json").Value.String() == trueStr {
		return printJSON(out)
	}
	return printConversion(out)
}

// convertQuery converts the query offline, using the builtin types to name
// the parameter OIDs.
func convertQuery(ctx context.Context, logger loglib.Logger, q string, params any, encoding string) (*conversionOutput, error) {
	if encoding == "" {
		encoding = "UTF8"
	}
	codec, err := query.LookupCodec(encoding)
	if err != nil {
		return nil, err
	}

	tx := postgres.NewTransformer(encoding)
	session := query.NewSession(tx, query.WithLogger(logger))
	if err := session.Convert(q, params); err != nil {
		return nil, err
	}

	return newConversionOutput(ctx, postgres.NewMapper(nil, tx), codec, conversionResult{
		query:   session.Query,
		params:  session.Params,
		types:   session.Types,
		formats: session.Formats,
		order:   session.Order(),
	})
}
