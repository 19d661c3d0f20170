// SPDX-License-Identifier: Apache-2.0

package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rs/xid"
	loglib "github.com/xataio/pgbind/pkg/log"
	"github.com/xataio/pgbind/pkg/query"
)

// Conn is a single postgres connection running queries with client side
// placeholders. It is not safe for concurrent use.
type Conn struct {
	conn           *pgconn.PgConn
	transformer    *Transformer
	codec          *query.Codec
	cache          *query.ParseCache
	logger         loglib.Logger
	clientEncoding string
}

type Option func(*Conn)

func WithLogger(l loglib.Logger) Option {
	return func(c *Conn) {
		c.logger = loglib.WithModule(l, "postgres_conn")
	}
}

func WithParseCache(cache *query.ParseCache) Option {
	return func(c *Conn) {
		c.cache = cache
	}
}

// WithClientEncoding sets the client_encoding of the connection. By default
// the one of the connection string, or the server default, is used.
func WithClientEncoding(encoding string) Option {
	return func(c *Conn) {
		c.clientEncoding = encoding
	}
}

func NewConn(ctx context.Context, url string, opts ...Option) (*Conn, error) {
	c := &Conn{
		cache:  query.DefaultParseCache(),
		logger: loglib.NewNoopLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}

	pgCfg, err := ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("failed parsing postgres connection string: %w", err)
	}
	if c.clientEncoding != "" {
		pgCfg.RuntimeParams["client_encoding"] = c.clientEncoding
	}

	configureTCPKeepalive(pgCfg)

	conn, err := pgconn.ConnectConfig(ctx, pgCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", MapError(err))
	}

	// the server reports the encoding it expects the query text in, which
	// might differ from the requested one (i.e. an alias)
	encoding := conn.ParameterStatus("client_encoding")
	codec, err := query.LookupCodec(encoding)
	if err != nil {
		conn.Close(ctx)
		return nil, err
	}

	c.conn = conn
	c.codec = codec
	c.transformer = NewTransformer(encoding)
	c.logger.Debug("connected to postgres", loglib.Fields{loglib.EncodingField: encoding})
	return c, nil
}

// Encoding returns the client encoding reported by the server.
func (c *Conn) Encoding() string {
	return c.transformer.Encoding()
}

// Transformer returns the transformer used to dump the connection parameters.
func (c *Conn) Transformer() *Transformer {
	return c.transformer
}

func (c *Conn) Query(ctx context.Context, q any, params any) (*Result, error) {
	s, err := c.convert(q, params)
	if err != nil {
		return nil, err
	}

	res, err := c.execute(ctx, s, params == nil)
	if err != nil {
		return nil, err
	}

	return c.newResult(res)
}

func (c *Conn) Exec(ctx context.Context, q any, params any) (CommandTag, error) {
	s, err := c.convert(q, params)
	if err != nil {
		return CommandTag{}, err
	}

	res, err := c.execute(ctx, s, params == nil)
	if err != nil {
		return CommandTag{}, err
	}

	c.logger.Trace("query executed", loglib.Fields{loglib.CommandTagField: res.CommandTag.String()})
	return CommandTag{res.CommandTag}, nil
}

// ExecMany prepares the query once and executes it with every set of
// parameters. The parameter types are resolved from the first set, so all
// sets must hold values of the same types. A failure after some sets were
// executed is returned as an ErrPartialExecution.
func (c *Conn) ExecMany(ctx context.Context, q any, paramSets []any) (int64, error) {
	if len(paramSets) == 0 {
		return 0, nil
	}

	s, err := c.convert(q, paramSets[0])
	if err != nil {
		return 0, err
	}

	name := "pgbind_" + xid.New().String()
	if _, err := c.conn.Prepare(ctx, name, string(s.Query), s.Types); err != nil {
		return 0, fmt.Errorf("preparing statement: %w", MapError(err))
	}
	defer func() {
		if err := c.conn.Deallocate(ctx, name); err != nil {
			c.logger.Warn(err, "deallocating prepared statement", loglib.Fields{"statement": name})
		}
	}()

	formats := query.FormatCodes(s.Formats)
	var rowsAffected int64
	for i, params := range paramSets {
		if i > 0 {
			if err := s.Dump(params); err != nil {
				return rowsAffected, partialExecutionError(i, rowsAffected, fmt.Errorf("dumping parameter set %d: %w", i, err))
			}
		}

		res := c.conn.ExecPrepared(ctx, name, s.Params, formats, nil).Read()
		if res.Err != nil {
			return rowsAffected, partialExecutionError(i, rowsAffected, fmt.Errorf("executing parameter set %d: %w", i, MapError(res.Err)))
		}
		rowsAffected += res.CommandTag.RowsAffected()
	}

	c.logger.Debug("statement executed", loglib.Fields{
		loglib.QueryField: string(s.Query),
		"executions":      len(paramSets),
		"rows_affected":   rowsAffected,
	})
	return rowsAffected, nil
}

func (c *Conn) Ping(ctx context.Context) error {
	return MapError(c.conn.Ping(ctx))
}

func (c *Conn) Close(ctx context.Context) error {
	return MapError(c.conn.Close(ctx))
}

func (c *Conn) convert(q any, params any) (*query.Session, error) {
	s := query.NewSession(c.transformer, query.WithParseCache(c.cache), query.WithLogger(c.logger))
	if err := s.Convert(q, params); err != nil {
		return nil, fmt.Errorf("converting query: %w", err)
	}
	return s, nil
}

// execute runs a converted query. Queries without parameters use the simple
// query protocol, which allows several statements in one query; the result
// of the last one is returned.
func (c *Conn) execute(ctx context.Context, s *query.Session, simple bool) (*pgconn.Result, error) {
	c.logger.Debug("executing query", loglib.Fields{
		loglib.QueryField:  string(s.Query),
		loglib.ParamsField: len(s.Params),
	})

	if simple {
		results, err := c.conn.Exec(ctx, string(s.Query)).ReadAll()
		if err != nil {
			return nil, MapError(err)
		}
		if len(results) == 0 {
			return &pgconn.Result{}, nil
		}
		return results[len(results)-1], nil
	}

	res := c.conn.ExecParams(ctx, string(s.Query), s.Params, s.Types, query.FormatCodes(s.Formats), nil).Read()
	if res.Err != nil {
		return nil, MapError(res.Err)
	}
	return res, nil
}

func (c *Conn) newResult(res *pgconn.Result) (*Result, error) {
	fields := make([]Field, len(res.FieldDescriptions))
	for i, fd := range res.FieldDescriptions {
		fields[i] = Field{Name: fd.Name, DataTypeOID: fd.DataTypeOID}
	}

	rows := make([][]any, 0, len(res.Rows))
	for _, raw := range res.Rows {
		row := make([]any, len(raw))
		for i, src := range raw {
			fd := res.FieldDescriptions[i]
			v, err := c.decodeValue(fd, src)
			if err != nil {
				return nil, fmt.Errorf("decoding column %s: %w", fd.Name, err)
			}
			row[i] = v
		}
		rows = append(rows, row)
	}

	return &Result{
		Fields:     fields,
		Rows:       rows,
		CommandTag: CommandTag{res.CommandTag},
	}, nil
}

func (c *Conn) decodeValue(fd pgconn.FieldDescription, src []byte) (any, error) {
	if src == nil {
		return nil, nil
	}
	// text values are sent in the client encoding
	if fd.Format == pgtype.TextFormatCode {
		src = []byte(c.codec.Decode(src))
	}
	return c.transformer.decode(fd.DataTypeOID, fd.Format, src)
}

func partialExecutionError(executed int, rowsAffected int64, err error) error {
	if executed == 0 {
		return err
	}
	return &ErrPartialExecution{Executed: executed, RowsAffected: rowsAffected, Err: err}
}
