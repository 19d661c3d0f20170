// SPDX-License-Identifier: Apache-2.0

package postgres

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

var errInvalidURL = errors.New("invalid URL")

// ParseConfig parses a postgres connection string. URLs with a password
// containing characters reserved in URLs are accepted, the same way psql
// does.
func ParseConfig(pgurl string) (*pgconn.Config, error) {
	pgCfg, err := pgconn.ParseConfig(pgurl)
	if err != nil {
		urlErr := &url.Error{}
		if errors.As(err, &urlErr) {
			escapedURL, err := escapeConnectionURL(pgurl)
			if err != nil {
				return nil, fmt.Errorf("failed to escape connection URL: %w", err)
			}
			return pgconn.ParseConfig(escapedURL)
		}
		return nil, MapError(err)
	}
	return pgCfg, nil
}

var postgresURLRegex = regexp.MustCompile(`^(postgres(?:ql)?://)([^@]+?)@(.+)$`)

func escapeConnectionURL(rawURL string) (string, error) {
	if !strings.HasPrefix(rawURL, "postgresql://") && !strings.HasPrefix(rawURL, "postgres://") {
		return rawURL, nil
	}

	matches := postgresURLRegex.FindStringSubmatch(rawURL)
	if matches == nil {
		return "", errInvalidURL
	}

	scheme := matches[1]
	userInfo := matches[2]
	hostAndPath := matches[3]

	// the password starts after the first colon of the user info
	firstColonIndex := strings.Index(userInfo, ":")
	if firstColonIndex == -1 {
		return rawURL, nil
	}

	username := userInfo[:firstColonIndex]
	password := userInfo[firstColonIndex+1:]
	if username == "" {
		return "", errInvalidURL
	}

	// decode the password first so that already escaped characters are not
	// escaped twice
	decodedPassword := password
	if strings.Contains(password, "%") {
		if unescapedPwd, err := url.PathUnescape(password); err == nil {
			decodedPassword = unescapedPwd
		}
	}

	return fmt.Sprintf("%s%s:%s@%s", scheme, username, url.QueryEscape(decodedPassword), hostAndPath), nil
}

const (
	connectTimeout    = 90 * time.Second
	keepaliveIdle     = 15 * time.Second
	keepaliveInterval = 15 * time.Second
	keepaliveCount    = 9
)

// configureTCPKeepalive enables TCP keepalive probes on the connection so
// that broken connections are detected in about 150s instead of hanging.
func configureTCPKeepalive(cfg *pgconn.Config) {
	cfg.ConnectTimeout = connectTimeout

	cfg.DialFunc = func(ctx context.Context, network, addr string) (net.Conn, error) {
		d := &net.Dialer{
			Timeout: connectTimeout,
			KeepAliveConfig: net.KeepAliveConfig{
				Enable:   true,
				Idle:     keepaliveIdle,
				Interval: keepaliveInterval,
				Count:    keepaliveCount,
			},
		}
		return d.DialContext(ctx, network, addr)
	}
}
