package postgres

import (
	"net/url"
	"strings"
)

const (
	driverScheme = "postgresql"
	jdbcScheme   = "jdbc:postgresql"

	defaultSSLMode = "disable"
)

// ConnectionURL composes "postgresql:[//host[:port]]/dbname". The host segment
// is written only when Host is set, and the port only together with a host.
// The URL carries no credentials and is safe to log.
func ConnectionURL(cfg *PgConfig) string {
	return composeURL(driverScheme, cfg)
}

// JDBCURL renders the same grammar as ConnectionURL with the "jdbc:postgresql:" prefix.
func JDBCURL(cfg *PgConfig) string {
	return composeURL(jdbcScheme, cfg)
}

func composeURL(scheme string, cfg *PgConfig) string {
	var sb strings.Builder
	sb.WriteString(scheme)
	sb.WriteString(":")
	if cfg.Host != "" {
		sb.WriteString("//")
		sb.WriteString(hostPort(cfg))
	}
	sb.WriteString("/")
	sb.WriteString(cfg.DBName)
	return sb.String()
}

func hostPort(cfg *PgConfig) string {
	if cfg.Host == "" {
		return ""
	}
	if cfg.Port == "" {
		return cfg.Host
	}
	return cfg.Host + ":" + cfg.Port
}

// dataSourceName is the URL handed to lib/pq: ConnectionURL plus credentials,
// sslmode and search_path as query parameters. lib/pq only recognizes the
// "postgresql://" form, so an empty host renders as "postgresql:///dbname".
func dataSourceName(cfg *PgConfig) string {
	query := url.Values{}
	if cfg.User != "" {
		query.Set("user", cfg.User)
	}
	if cfg.Password != "" {
		query.Set("password", cfg.Password)
	}
	if cfg.Schema != "" {
		query.Set("search_path", cfg.Schema)
	}
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = defaultSSLMode
	}
	query.Set("sslmode", sslMode)

	u := url.URL{
		Scheme:   driverScheme,
		Host:     hostPort(cfg),
		Path:     "/" + cfg.DBName,
		RawQuery: query.Encode(),
	}
	return u.String()
}
