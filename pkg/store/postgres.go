package store

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"time"

	"github.com/eunmann/vuln-stats/internal/logctx"
)

// postgresDSN injects the credentials into the connection URL. Credentials
// already present in the URL are replaced.
func postgresDSN(rawURL, user, password string) (string, error) {
	if user == "" || password == "" {
		return "", ErrMissingCredentials
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse database URL: %w", err)
	}
	if u.Host == "" {
		return "", fmt.Errorf("database URL %q has no host", u.Redacted())
	}
	u.User = url.UserPassword(user, password)
	return u.String(), nil
}

func openPostgres(ctx context.Context, cfg Config) (*SQLStore, error) {
	dsn, err := postgresDSN(cfg.URL, cfg.User, cfg.Password)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(postgresDialect.driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres database: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetConnMaxIdleTime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	s, err := newSQLStore(ctx, db, postgresDialect)
	if err != nil {
		return nil, err
	}

	u, _ := url.Parse(dsn)
	log := logctx.FromContext(ctx)
	log.Info().
		Str("db_url", u.Redacted()).
		Msg("opened PostgreSQL store")
	return s, nil
}
