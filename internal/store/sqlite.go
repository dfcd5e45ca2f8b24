package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/inamate/panels/backend-go/internal/typeid"
)

//go:embed sqlite_schema.sql
var sqliteSchema string

// SQLite is a single-file Store for local, single-user setups.
type SQLite struct {
	db  *sql.DB
	now func() time.Time
}

// OpenSQLite opens (creating if needed) the database at path and applies the
// schema.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply sqlite schema: %w", err)
	}
	return &SQLite{db: db, now: time.Now}, nil
}

func (s *SQLite) Create(ctx context.Context, meta Meta, blob []byte) error {
	now := s.now().UTC()
	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO comics (id, name, owner_id, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
			meta.ID, meta.Name, meta.OwnerID, now, now)
		if err != nil {
			if isSQLiteUnique(err) {
				return ErrDuplicate
			}
			return fmt.Errorf("insert comic: %w", err)
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO comic_snapshots (id, comic_id, version, document, created_at) VALUES (?, ?, 1, ?, ?)`,
			typeid.NewSnapshotID(), meta.ID, blob, now)
		if err != nil {
			return fmt.Errorf("insert snapshot: %w", err)
		}
		return nil
	})
}

func (s *SQLite) Load(ctx context.Context, id string) ([]byte, error) {
	var doc []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT document FROM comic_snapshots WHERE comic_id = ? ORDER BY version DESC LIMIT 1`,
		id).Scan(&doc)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	return doc, nil
}

func (s *SQLite) Save(ctx context.Context, id string, blob []byte) error {
	now := s.now().UTC()
	return s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `UPDATE comics SET updated_at = ? WHERE id = ?`, now, id)
		if err != nil {
			return fmt.Errorf("touch comic: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrNotFound
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO comic_snapshots (id, comic_id, version, document, created_at)
			SELECT ?, ?, COALESCE(MAX(version), 0) + 1, ?, ?
			FROM comic_snapshots WHERE comic_id = ?`,
			typeid.NewSnapshotID(), id, blob, now, id)
		if err != nil {
			return fmt.Errorf("insert snapshot: %w", err)
		}
		return nil
	})
}

const sqliteMetaQuery = `
	SELECT c.id, c.name, c.owner_id, COALESCE(MAX(s.version), 0), c.created_at, c.updated_at
	FROM comics c LEFT JOIN comic_snapshots s ON s.comic_id = c.id`

func (s *SQLite) Get(ctx context.Context, id string) (Meta, error) {
	var m Meta
	err := s.db.QueryRowContext(ctx, sqliteMetaQuery+` WHERE c.id = ? GROUP BY c.id`, id).
		Scan(&m.ID, &m.Name, &m.OwnerID, &m.Version, &m.Created, &m.Modified)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Meta{}, ErrNotFound
		}
		return Meta{}, fmt.Errorf("get comic: %w", err)
	}
	return m, nil
}

func (s *SQLite) List(ctx context.Context, ownerID string) ([]Meta, error) {
	rows, err := s.db.QueryContext(ctx,
		sqliteMetaQuery+` WHERE c.owner_id = ? GROUP BY c.id ORDER BY c.updated_at DESC, c.id`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list comics: %w", err)
	}
	defer rows.Close()

	out := make([]Meta, 0)
	for rows.Next() {
		var m Meta
		if err := rows.Scan(&m.ID, &m.Name, &m.OwnerID, &m.Version, &m.Created, &m.Modified); err != nil {
			return nil, fmt.Errorf("scan comic: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *SQLite) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM comics WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete comic: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLite) CreateUser(ctx context.Context, u User) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, email, display_name, password_hash, created_at) VALUES (?, ?, ?, ?, ?)`,
		u.ID, u.Email, u.DisplayName, u.PasswordHash, s.now().UTC())
	if err != nil {
		if isSQLiteUnique(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

const sqliteUserQuery = `SELECT id, email, display_name, password_hash, created_at FROM users`

func (s *SQLite) UserByEmail(ctx context.Context, email string) (User, error) {
	return s.queryUser(ctx, sqliteUserQuery+` WHERE email = ? COLLATE NOCASE`, email)
}

func (s *SQLite) UserByID(ctx context.Context, id string) (User, error) {
	return s.queryUser(ctx, sqliteUserQuery+` WHERE id = ?`, id)
}

func (s *SQLite) queryUser(ctx context.Context, query, arg string) (User, error) {
	var u User
	err := s.db.QueryRowContext(ctx, query, arg).Scan(&u.ID, &u.Email, &u.DisplayName, &u.PasswordHash, &u.Created)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (s *SQLite) Close() error { return s.db.Close() }

func (s *SQLite) withTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func isSQLiteUnique(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	switch se.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return true
	case sqlite3.SQLITE_CONSTRAINT:
		return strings.Contains(se.Error(), "UNIQUE")
	}
	return false
}
