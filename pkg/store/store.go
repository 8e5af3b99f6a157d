// Package store persists tracked apps and the statistics records produced by
// the aggregation pipelines.
//
// Two SQL backends are supported, selected by the database URL: SQLite
// (mattn/go-sqlite3) for local runs and PostgreSQL (lib/pq) for shared
// deployments. Records can additionally be exported to Parquet.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/eunmann/vuln-stats/internal/logctx"
	_ "github.com/lib/pq"
)

// Sink accepts statistics records. Inserting a record that violates one of
// its table's uniqueness constraints is not an error; the record is dropped.
type Sink interface {
	Insert(ctx context.Context, rec Record) error
}

// Store is a Sink that also tracks the apps to analyze.
type Store interface {
	Sink
	// AddApp inserts app and reports whether it was new.
	AddApp(ctx context.Context, app App) (bool, error)
	// UpdateApp stores the job id and package metadata of an existing app.
	UpdateApp(ctx context.Context, app App) error
	// Apps returns all tracked apps in insertion order.
	Apps(ctx context.Context) ([]App, error)
	// AppsWithoutMetadata returns the apps missing a package or version name.
	AppsWithoutMetadata(ctx context.Context) ([]App, error)
	Close() error
}

// ErrMissingCredentials is returned when a PostgreSQL store is opened without
// a user or password.
var ErrMissingCredentials = errors.New("postgres store requires a user and password")

// Config selects and configures a backend.
type Config struct {
	// URL is either postgres://host/db, sqlite:path, or a plain file path.
	URL      string
	User     string
	Password string
	// SQLite tunes the SQLite backend; ignored for PostgreSQL.
	SQLite SQLiteConfig
}

// Open connects to the store described by cfg and creates any missing tables.
func Open(ctx context.Context, cfg Config) (*SQLStore, error) {
	if cfg.URL == "" {
		return nil, errors.New("store URL is required")
	}
	if isPostgresURL(cfg.URL) {
		return openPostgres(ctx, cfg)
	}
	sc := cfg.SQLite
	sc.Path = strings.TrimPrefix(cfg.URL, "sqlite:")
	return openSQLite(ctx, sc)
}

func isPostgresURL(u string) bool {
	return strings.HasPrefix(u, "postgres://") || strings.HasPrefix(u, "postgresql://")
}

// SQLStore implements Store on database/sql.
type SQLStore struct {
	db      *sql.DB
	dialect dialect
}

func newSQLStore(ctx context.Context, db *sql.DB, d dialect) (*SQLStore, error) {
	if err := createSchema(ctx, db, d); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &SQLStore{db: db, dialect: d}, nil
}

// Backend names the SQL dialect in use.
func (s *SQLStore) Backend() string {
	return s.dialect.name
}

// DB exposes the underlying handle for ad-hoc queries.
func (s *SQLStore) DB() *sql.DB {
	return s.db
}

// Close closes the database connection.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// Insert writes rec, silently skipping duplicates.
func (s *SQLStore) Insert(ctx context.Context, rec Record) error {
	_, err := s.insert(ctx, rec)
	return err
}

func (s *SQLStore) insert(ctx context.Context, rec Record) (bool, error) {
	query := s.dialect.insertSQL(rec.Table(), rec.Columns())
	res, err := s.db.ExecContext(ctx, query, rec.Values()...)
	if err != nil {
		return false, fmt.Errorf("insert into %s: %w", rec.Table(), err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert into %s: %w", rec.Table(), err)
	}
	if n == 0 {
		log := logctx.FromContext(ctx)
		log.Debug().
			Str("table", rec.Table()).
			Msg("duplicate record skipped")
	}
	return n > 0, nil
}

// AddApp inserts app unless an app with the same sha256 is already tracked.
func (s *SQLStore) AddApp(ctx context.Context, app App) (bool, error) {
	return s.insert(ctx, app)
}

// UpdateApp stores the job id and package metadata of the app with app.ID.
func (s *SQLStore) UpdateApp(ctx context.Context, app App) error {
	query := s.dialect.rebind(`UPDATE ` + TableApps + `
		SET job_id = ?, package_name = ?, version_name = ?
		WHERE id = ?`)
	res, err := s.db.ExecContext(ctx, query,
		nullInt(app.JobID), nullString(app.PackageName), nullString(app.VersionName), app.ID)
	if err != nil {
		return fmt.Errorf("update app %d: %w", app.ID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("update app %d: no such app", app.ID)
	}
	return nil
}

const selectApps = `SELECT id, job_id, year, apk_file_name, sha256, package_name, version_name,
	num_classes, num_methods, num_units, num_lib_classes, num_app_classes
	FROM ` + TableApps

// Apps returns all tracked apps ordered by id.
func (s *SQLStore) Apps(ctx context.Context) ([]App, error) {
	return s.queryApps(ctx, selectApps+" ORDER BY id")
}

// AppsWithoutMetadata returns the apps whose package or version name is unknown.
func (s *SQLStore) AppsWithoutMetadata(ctx context.Context) ([]App, error) {
	return s.queryApps(ctx, selectApps+" WHERE package_name IS NULL OR version_name IS NULL ORDER BY id")
}

func (s *SQLStore) queryApps(ctx context.Context, query string) ([]App, error) {
	start := time.Now()
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query apps: %w", err)
	}
	defer rows.Close()

	var apps []App
	for rows.Next() {
		var (
			app                     App
			jobID                   sql.NullInt64
			pkg, version            sql.NullString
			classes, methods, units sql.NullInt64
			libClasses, appClasses  sql.NullInt64
		)
		if err := rows.Scan(&app.ID, &jobID, &app.Year, &app.APKFileName, &app.SHA256, &pkg, &version,
			&classes, &methods, &units, &libClasses, &appClasses); err != nil {
			return nil, fmt.Errorf("scan app: %w", err)
		}
		app.JobID = jobID.Int64
		app.PackageName = pkg.String
		app.VersionName = version.String
		app.NumClasses = classes.Int64
		app.NumMethods = methods.Int64
		app.NumUnits = units.Int64
		app.NumLibClasses = libClasses.Int64
		app.NumAppClasses = appClasses.Int64
		apps = append(apps, app)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate apps: %w", err)
	}

	log := logctx.FromContext(ctx)
	log.Debug().
		Int("apps", len(apps)).
		Dur("elapsed", time.Since(start)).
		Msg("loaded apps")
	return apps, nil
}
