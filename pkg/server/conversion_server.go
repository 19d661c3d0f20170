// SPDX-License-Identifier: Apache-2.0

package server

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	httplib "github.com/xataio/pgbind/internal/http"
	"github.com/xataio/pgbind/internal/json"
	loglib "github.com/xataio/pgbind/pkg/log"
	"github.com/xataio/pgbind/pkg/query"
)

// TransformerBuilder returns the transformer used to convert a request. It
// is called once per request, so the transformers don't need to be safe for
// concurrent use.
type TransformerBuilder func(encoding string) query.Transformer

// Server converts queries with client placeholders for clients that can't
// link the query package.
type Server struct {
	server             httplib.Server
	logger             loglib.Logger
	transformerBuilder TransformerBuilder
	cache              *query.ParseCache
	address            string
}

type Option func(*Server)

type convertRequest struct {
	Query    string `json:"query"`
	Params   any    `json:"params"`
	Encoding string `json:"encoding"`
}

type convertResponse struct {
	Query   string    `json:"query"`
	Params  []*string `json:"params"`
	Types   []uint32  `json:"types"`
	Formats []int16   `json:"formats"`
	Order   []string  `json:"order,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func New(cfg *Config, transformerBuilder TransformerBuilder, opts ...Option) *Server {
	s := &Server{
		address:            cfg.address(),
		transformerBuilder: transformerBuilder,
		cache:              query.DefaultParseCache(),
		logger:             loglib.NewNoopLogger(),
	}

	e := echo.New()
	e.HideBanner = true
	e.Server.ReadTimeout = cfg.readTimeout()
	e.Server.WriteTimeout = cfg.writeTimeout()

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	e.Any("/convert", s.convert)

	s.server = e

	for _, opt := range opts {
		opt(s)
	}

	return s
}

func WithLogger(l loglib.Logger) Option {
	return func(s *Server) {
		s.logger = loglib.NewLogger(l).WithFields(loglib.Fields{
			loglib.ModuleField: "conversion_server",
		})
	}
}

func WithParseCache(cache *query.ParseCache) Option {
	return func(s *Server) {
		s.cache = cache
	}
}

// Start will start the conversion server. This call is blocking.
func (s *Server) Start() error {
	s.logger.Info(fmt.Sprintf("conversion server listening on: %s...", s.address))
	return s.server.Start(s.address)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) convert(c echo.Context) error {
	if c.Request().Method != http.MethodPost {
		return c.JSON(http.StatusMethodNotAllowed, nil)
	}

	s.logger.Trace("request received on /convert endpoint")

	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	}
	req := &convertRequest{}
	if err := json.UnmarshalInt64(body, req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("invalid request body: %v", err)})
	}

	tx := s.transformerBuilder(req.Encoding)
	session := query.NewSession(tx,
		query.WithParseCache(s.cache),
		query.WithLogger(s.logger))
	if err := session.Convert(req.Query, req.Params); err != nil {
		if query.IsProgrammingError(err) {
			return c.JSON(http.StatusUnprocessableEntity, errorResponse{Error: err.Error()})
		}
		s.logger.Error(err, "converting query", loglib.Fields{loglib.QueryField: req.Query})
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: err.Error()})
	}

	// the encoding was validated by the conversion
	codec, err := query.LookupCodec(tx.Encoding())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: err.Error()})
	}
	return c.JSON(http.StatusOK, newConvertResponse(session, codec))
}

func newConvertResponse(s *query.Session, codec *query.Codec) *convertResponse {
	params := make([]*string, len(s.Params))
	for i, p := range s.Params {
		if p == nil {
			continue
		}
		encoded := hex.EncodeToString(p)
		params[i] = &encoded
	}

	return &convertResponse{
		Query:   codec.Decode(s.Query),
		Params:  params,
		Types:   s.Types,
		Formats: query.FormatCodes(s.Formats),
		Order:   s.Order(),
	}
}
