package persist

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	_ "github.com/jackc/pgx/v5/stdlib"

	"pagesmith/internal/session"
	"pagesmith/internal/version"
)

// PostgresStore keeps each document as one row in a key/payload table.
type PostgresStore struct {
	db *sql.DB

	schemaOnce sync.Once
	schemaErr  error
}

func NewPostgres(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("pgx", strings.TrimSpace(dsn))
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) ensureSchema(ctx context.Context) error {
	s.schemaOnce.Do(func() {
		_, s.schemaErr = s.db.ExecContext(ctx, `
			CREATE TABLE IF NOT EXISTS engine_documents (
				key        TEXT PRIMARY KEY,
				payload    JSONB NOT NULL,
				updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
			)`)
	})
	return s.schemaErr
}

func (s *PostgresStore) SaveSessions(ctx context.Context, sessions []session.Session) error {
	return s.put(ctx, keySessions, sessions)
}

func (s *PostgresStore) LoadSessions(ctx context.Context) ([]session.Session, error) {
	var out []session.Session
	if err := s.get(ctx, keySessions, &out); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return out, nil
}

func (s *PostgresStore) SaveVersions(ctx context.Context, entries []version.Entry) error {
	return s.put(ctx, keyVersions, entries)
}

func (s *PostgresStore) LoadVersions(ctx context.Context) ([]version.Entry, error) {
	var out []version.Entry
	if err := s.get(ctx, keyVersions, &out); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return out, nil
}

func (s *PostgresStore) SaveDraft(ctx context.Context, draft *session.Draft) error {
	if draft == nil {
		if err := s.ensureSchema(ctx); err != nil {
			return err
		}
		_, err := s.db.ExecContext(ctx, `DELETE FROM engine_documents WHERE key = $1`, keyDraft)
		return err
	}
	return s.put(ctx, keyDraft, draft)
}

func (s *PostgresStore) LoadDraft(ctx context.Context) (*session.Draft, error) {
	var out session.Draft
	if err := s.get(ctx, keyDraft, &out); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &out, nil
}

func (s *PostgresStore) Close() error { return s.db.Close() }

func (s *PostgresStore) put(ctx context.Context, key string, v any) error {
	if err := s.ensureSchema(ctx); err != nil {
		return err
	}
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("persist: marshal %s: %w", key, err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO engine_documents (key, payload, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE SET payload = EXCLUDED.payload, updated_at = now()`,
		key, payload)
	if err != nil {
		return fmt.Errorf("persist: upsert %s: %w", key, err)
	}
	return nil
}

func (s *PostgresStore) get(ctx context.Context, key string, v any) error {
	if err := s.ensureSchema(ctx); err != nil {
		return err
	}
	var payload []byte
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM engine_documents WHERE key = $1`, key).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return err
	}
	if err != nil {
		return fmt.Errorf("persist: select %s: %w", key, err)
	}
	if err := json.Unmarshal(payload, v); err != nil {
		return fmt.Errorf("persist: decode %s: %w", key, err)
	}
	return nil
}
