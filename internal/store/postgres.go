package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/inamate/panels/backend-go/internal/typeid"
)

const (
	maxConns       = 10
	connectTimeout = 5 * time.Second
)

// NewPool connects to Postgres and checks the connection.
func NewPool(ctx context.Context, dsn string, logger *slog.Logger) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	cfg.MaxConns = maxConns
	cfg.ConnConfig.ConnectTimeout = connectTimeout

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	logger.Info("database connected", "max_conns", cfg.MaxConns)
	return pool, nil
}

// Postgres is the production Store.
type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func (s *Postgres) Create(ctx context.Context, meta Meta, blob []byte) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx,
			`INSERT INTO comics (id, name, owner_id) VALUES ($1, $2, $3)`,
			meta.ID, meta.Name, meta.OwnerID)
		if err != nil {
			if isUniqueViolation(err) {
				return ErrDuplicate
			}
			return fmt.Errorf("insert comic: %w", err)
		}

		_, err = tx.Exec(ctx,
			`INSERT INTO comic_snapshots (id, comic_id, version, document) VALUES ($1, $2, 1, $3)`,
			typeid.NewSnapshotID(), meta.ID, blob)
		if err != nil {
			return fmt.Errorf("insert snapshot: %w", err)
		}
		return nil
	})
}

func (s *Postgres) Load(ctx context.Context, id string) ([]byte, error) {
	var doc []byte
	err := s.pool.QueryRow(ctx,
		`SELECT document FROM comic_snapshots WHERE comic_id = $1 ORDER BY version DESC LIMIT 1`,
		id).Scan(&doc)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	return doc, nil
}

// Save appends a snapshot. The comic row is locked so concurrent saves get
// consecutive versions.
func (s *Postgres) Save(ctx context.Context, id string, blob []byte) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `UPDATE comics SET updated_at = now() WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("touch comic: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO comic_snapshots (id, comic_id, version, document)
			SELECT $1, $2, COALESCE(MAX(version), 0) + 1, $3
			FROM comic_snapshots WHERE comic_id = $2`,
			typeid.NewSnapshotID(), id, blob)
		if err != nil {
			return fmt.Errorf("insert snapshot: %w", err)
		}
		return nil
	})
}

const metaQuery = `
	SELECT c.id, c.name, c.owner_id, COALESCE(MAX(s.version), 0), c.created_at, c.updated_at
	FROM comics c LEFT JOIN comic_snapshots s ON s.comic_id = c.id`

func (s *Postgres) Get(ctx context.Context, id string) (Meta, error) {
	row := s.pool.QueryRow(ctx, metaQuery+` WHERE c.id = $1 GROUP BY c.id`, id)
	m, err := scanMeta(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Meta{}, ErrNotFound
		}
		return Meta{}, fmt.Errorf("get comic: %w", err)
	}
	return m, nil
}

func (s *Postgres) List(ctx context.Context, ownerID string) ([]Meta, error) {
	rows, err := s.pool.Query(ctx,
		metaQuery+` WHERE c.owner_id = $1 GROUP BY c.id ORDER BY c.updated_at DESC, c.id`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list comics: %w", err)
	}
	metas, err := pgx.CollectRows(rows, func(r pgx.CollectableRow) (Meta, error) { return scanMeta(r) })
	if err != nil {
		return nil, fmt.Errorf("list comics: %w", err)
	}
	return metas, nil
}

func (s *Postgres) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM comics WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete comic: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Postgres) CreateUser(ctx context.Context, u User) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO users (id, email, display_name, password_hash) VALUES ($1, $2, $3, $4)`,
		u.ID, u.Email, u.DisplayName, u.PasswordHash)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

const userQuery = `SELECT id, email, display_name, password_hash, created_at FROM users`

func (s *Postgres) UserByEmail(ctx context.Context, email string) (User, error) {
	return s.queryUser(ctx, userQuery+` WHERE lower(email) = lower($1)`, email)
}

func (s *Postgres) UserByID(ctx context.Context, id string) (User, error) {
	return s.queryUser(ctx, userQuery+` WHERE id = $1`, id)
}

func (s *Postgres) queryUser(ctx context.Context, query string, arg string) (User, error) {
	var u User
	err := s.pool.QueryRow(ctx, query, arg).Scan(&u.ID, &u.Email, &u.DisplayName, &u.PasswordHash, &u.Created)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (s *Postgres) Close() error {
	s.pool.Close()
	return nil
}

func scanMeta(row pgx.Row) (Meta, error) {
	var m Meta
	err := row.Scan(&m.ID, &m.Name, &m.OwnerID, &m.Version, &m.Created, &m.Modified)
	return m, err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
