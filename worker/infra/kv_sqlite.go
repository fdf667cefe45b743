package infra

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"edge-worker/worker/domain"

	_ "modernc.org/sqlite"
)

// SQLiteKV implementa domain.KVStore numa tabela SQLite (modernc.org/sqlite, puro Go).
//
// A expiração fica na coluna expires_at (unix ms); leituras ignoram linhas
// vencidas e o janitor as remove.
type SQLiteKV struct {
	db  *sql.DB
	now func() time.Time
}

type SQLiteKVOption func(*SQLiteKV)

// WithSQLiteClock troca o relógio usado para expiração.
func WithSQLiteClock(now func() time.Time) SQLiteKVOption {
	return func(s *SQLiteKV) { s.now = now }
}

// OpenSQLiteKV abre o banco e executa a migração.
func OpenSQLiteKV(path string, opts ...SQLiteKVOption) (*SQLiteKV, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	s := &SQLiteKV{db: db, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *SQLiteKV) Close() error { return s.db.Close() }

func (s *SQLiteKV) migrate() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS kv (
        key TEXT PRIMARY KEY,
        value TEXT NOT NULL,
        expires_at INTEGER
    );`)
	if err != nil {
		return fmt.Errorf("exec migrate: %w", err)
	}
	return nil
}

func (s *SQLiteKV) Get(ctx context.Context, key string) (string, bool, error) {
	var (
		value     string
		expiresAt sql.NullInt64
	)
	err := s.db.QueryRowContext(ctx, `SELECT value, expires_at FROM kv WHERE key = ?`, key).Scan(&value, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("%w: sqlite get %s: %v", domain.ErrStoreUnavailable, key, err)
	}
	if expiresAt.Valid && s.now().UnixMilli() >= expiresAt.Int64 {
		return "", false, nil
	}
	return value, true, nil
}

func (s *SQLiteKV) Put(ctx context.Context, key, value string, ttl time.Duration) error {
	var expiresAt sql.NullInt64
	if ttl > 0 {
		expiresAt = sql.NullInt64{Int64: s.now().Add(ttl).UnixMilli(), Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO kv(key, value, expires_at) VALUES(?,?,?)
        ON CONFLICT(key) DO UPDATE SET value=excluded.value, expires_at=excluded.expires_at`,
		key, value, expiresAt)
	if err != nil {
		return fmt.Errorf("%w: sqlite put %s: %v", domain.ErrStoreUnavailable, key, err)
	}
	return nil
}

func (s *SQLiteKV) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

// PurgeExpired remove as linhas vencidas e retorna quantas saíram.
func (s *SQLiteKV) PurgeExpired(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE expires_at IS NOT NULL AND expires_at <= ?`, s.now().UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("purge expired: %w", err)
	}
	return res.RowsAffected()
}

// StartJanitor inicia uma goroutine que limpa linhas vencidas periodicamente.
// Pare cancelando o contexto.
func (s *SQLiteKV) StartJanitor(ctx context.Context, every time.Duration) {
	if every <= 0 {
		return
	}

	t := time.NewTicker(every)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				_, _ = s.PurgeExpired(ctx)
			}
		}
	}()
}
