// Package persist stores the engine's three durable documents:
// sessions (bounded to the most recent K), version history (bounded to
// the most recent M) and the single draft slot. Write failures are the
// caller's to log and swallow; the in-memory stores stay the source of
// truth for a running session.
package persist

import (
	"context"

	"pagesmith/internal/session"
	"pagesmith/internal/version"
)

// Document keys. Each backend stores exactly these three.
const (
	keySessions = "sessions"
	keyVersions = "versionHistory"
	keyDraft    = "draft"
)

// Store is the durable key-value contract.
type Store interface {
	SaveSessions(ctx context.Context, sessions []session.Session) error
	LoadSessions(ctx context.Context) ([]session.Session, error)

	SaveVersions(ctx context.Context, entries []version.Entry) error
	LoadVersions(ctx context.Context) ([]version.Entry, error)

	// SaveDraft supersedes the single slot; nil clears it.
	SaveDraft(ctx context.Context, draft *session.Draft) error
	LoadDraft(ctx context.Context) (*session.Draft, error)

	Close() error
}

// NewFromEnv picks the Postgres backend when a DSN is configured and
// falls back to the JSON-file backend otherwise, or when the database
// is unreachable.
func NewFromEnv(dsn, path string) Store {
	if dsn != "" {
		if s, err := NewPostgres(dsn); err == nil {
			return s
		}
	}
	return NewFile(path)
}
