package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/msomdec/cool-todo/internal/domain"
	"github.com/msomdec/cool-todo/internal/repository/sqlite/migrations"
	_ "modernc.org/sqlite"
)

// DB wraps the SQLite connection and hands out repository implementations.
type DB struct {
	SqlDB *sql.DB
}

var _ domain.Database = (*DB)(nil)

// New opens a SQLite database at the given path and configures it for use.
// It enables WAL mode and foreign keys.
func New(dbPath string) (*DB, error) {
	if err := ensureDir(dbPath); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	if _, err := db.ExecContext(context.Background(), "PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	// A single connection keeps pragmas and writes serialized.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &DB{SqlDB: db}, nil
}

// Migrate applies all pending schema migrations.
func (db *DB) Migrate(ctx context.Context) error {
	return migrations.Run(ctx, db.SqlDB)
}

// Close closes the underlying connection.
func (db *DB) Close() error {
	return db.SqlDB.Close()
}

func (db *DB) Accounts() domain.AccountRepository {
	return &accountRepo{db: db.SqlDB}
}

func (db *DB) Users() domain.UserRepository {
	return &userRepo{db: db.SqlDB}
}

func (db *DB) Tasks() domain.TaskRepository {
	return &taskRepo{db: db.SqlDB}
}

func (db *DB) Sessions() domain.AuthSessionRepository {
	return &sessionRepo{db: db.SqlDB}
}

func (db *DB) PasswordResets() domain.PasswordResetRepository {
	return &resetRepo{db: db.SqlDB}
}

// ensureDir creates the parent directory of a file-backed database.
func ensureDir(dbPath string) error {
	if strings.Contains(dbPath, ":memory:") || strings.Contains(dbPath, "mode=memory") {
		return nil
	}
	clean := strings.TrimPrefix(dbPath, "file:")
	clean, _, _ = strings.Cut(clean, "?")
	dir := filepath.Dir(clean)
	if dir == "." || dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create db dir %q: %w", dir, err)
	}
	return nil
}

// uniqueViolation reports the column named in a SQLite UNIQUE constraint
// failure, e.g. "users.username". ok is false for any other error.
func uniqueViolation(err error) (column string, ok bool) {
	if err == nil || errors.Is(err, sql.ErrNoRows) {
		return "", false
	}
	_, rest, found := strings.Cut(err.Error(), "UNIQUE constraint failed: ")
	if !found {
		return "", false
	}
	column, _, _ = strings.Cut(rest, " ")
	return strings.TrimRight(column, ")"), true
}
