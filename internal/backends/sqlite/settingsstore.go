package sqlite

import (
	"context"
	"database/sql"
	"edsync/internal/types"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pressly/goose/v3"
	log "github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SettingsStore persists one editor settings row per local site id.
type SettingsStore struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and applies migrations.
func Open(path string) (*SettingsStore, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// SQLite serializes writers anyway; one connection keeps Replace transactions simple.
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	log.WithField("path", path).Info("sqlite settings store ready")
	return &SettingsStore{db: db}, nil
}

func migrate(db *sql.DB) error {
	goose.SetBaseFS(migrationsFS)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect("sqlite3"); err != nil {
		return err
	}
	return goose.Up(db, "migrations")
}

func (s *SettingsStore) Close() error { return s.db.Close() }

func (s *SettingsStore) Get(ctx context.Context, siteID int64) (*types.SettingsDocument, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT raw_settings FROM editor_settings WHERE local_site_id = ?`, siteID,
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, types.Err(types.ErrDataStoreAccess, err, "get site %d", siteID)
	}
	return &types.SettingsDocument{SiteID: siteID, Raw: []byte(raw)}, nil
}

func (s *SettingsStore) Replace(ctx context.Context, siteID int64, doc *types.SettingsDocument) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return types.Err(types.ErrDataStoreAccess, err, "begin replace site %d", siteID)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM editor_settings WHERE local_site_id = ?`, siteID); err != nil {
		return types.Err(types.ErrDataStoreAccess, err, "delete site %d", siteID)
	}
	if doc != nil {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO editor_settings (local_site_id, raw_settings) VALUES (?, ?)`,
			siteID, string(doc.Raw),
		); err != nil {
			return types.Err(types.ErrDataStoreAccess, err, "insert site %d", siteID)
		}
	}
	if err := tx.Commit(); err != nil {
		return types.Err(types.ErrDataStoreAccess, err, "commit replace site %d", siteID)
	}
	return nil
}

// count returns the number of rows stored for siteID.
func (s *SettingsStore) count(ctx context.Context, siteID int64) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM editor_settings WHERE local_site_id = ?`, siteID,
	).Scan(&n)
	return n, err
}
