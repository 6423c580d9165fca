// Package engine is the facade the transport layer talks to. It owns
// the live-session bound, the undo/redo surface, publishing and the
// durable documents; generation itself is delegated to the pipeline.
package engine

import (
	"context"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"

	"pagesmith/internal/persist"
	"pagesmith/internal/pipeline"
	"pagesmith/internal/publish"
	"pagesmith/internal/session"
	"pagesmith/internal/version"
)

// DefaultSessionsMax bounds the live session set.
const DefaultSessionsMax = 10

type Options struct {
	Pipeline  *pipeline.Pipeline
	Store     *session.Store
	Ledger    *version.Ledger
	Persist   persist.Store
	Publisher publish.Publisher

	// SessionsMax caps live sessions; zero means DefaultSessionsMax.
	SessionsMax int

	Logger zerolog.Logger
}

type Engine struct {
	pipeline  *pipeline.Pipeline
	store     *session.Store
	ledger    *version.Ledger
	persist   persist.Store
	publisher publish.Publisher
	recent    *lru.Cache[string, struct{}]
	logger    zerolog.Logger
}

func New(opts Options) (*Engine, error) {
	if opts.Pipeline == nil || opts.Store == nil || opts.Ledger == nil {
		return nil, fmt.Errorf("engine: pipeline, store and ledger are required")
	}
	maxSessions := opts.SessionsMax
	if maxSessions <= 0 {
		maxSessions = DefaultSessionsMax
	}

	e := &Engine{
		pipeline:  opts.Pipeline,
		store:     opts.Store,
		ledger:    opts.Ledger,
		persist:   opts.Persist,
		publisher: opts.Publisher,
		logger:    opts.Logger.With().Str("component", "engine").Logger(),
	}
	// Evicted sessions leave the live store but stay in the durable
	// document until the next save trims them.
	cache, err := lru.NewWithEvict(maxSessions, func(id string, _ struct{}) {
		e.logger.Info().Str("session_id", id).Msg("session evicted from live set")
		e.store.Drop(id)
	})
	if err != nil {
		return nil, fmt.Errorf("engine: session cache: %w", err)
	}
	e.recent = cache
	return e, nil
}

// Restore loads the durable documents into the live stores. Called
// once at startup; load failures log and leave the engine empty.
func (e *Engine) Restore(ctx context.Context) {
	if e.persist == nil {
		return
	}
	sessions, err := e.persist.LoadSessions(ctx)
	if err != nil {
		e.logger.Warn().Err(err).Msg("restore sessions failed")
	} else {
		e.store.Seed(sessions)
		for i := len(sessions) - 1; i >= 0; i-- {
			e.recent.Add(sessions[i].ID, struct{}{})
		}
	}
	entries, err := e.persist.LoadVersions(ctx)
	if err != nil {
		e.logger.Warn().Err(err).Msg("restore versions failed")
	} else if len(entries) > 0 {
		e.ledger.Seed(entries)
	}
}

// Generate starts a single-document run and returns the session's
// initial snapshot as soon as it is registered; generation continues
// on its own goroutine and is observed through Watch. Starting a run
// consumes the draft slot.
func (e *Engine) Generate(ctx context.Context, req pipeline.GenerateRequest) (session.Session, error) {
	started := make(chan session.Session, 1)
	req.OnStart = func(snap session.Session) { started <- snap }
	return e.start(ctx, started, func(runCtx context.Context) (session.Session, error) {
		return e.pipeline.Generate(runCtx, req)
	})
}

// GenerateSite starts a sequential multi-page run. Same contract as
// Generate.
func (e *Engine) GenerateSite(ctx context.Context, req pipeline.SiteRequest) (session.Session, error) {
	started := make(chan session.Session, 1)
	req.OnStart = func(snap session.Session) { started <- snap }
	return e.start(ctx, started, func(runCtx context.Context) (session.Session, error) {
		return e.pipeline.GenerateSite(runCtx, req)
	})
}

// start runs a pipeline entry point on a detached context so the run
// outlives the originating request, tracks the session in the live set
// as soon as it exists, and persists when the run settles.
func (e *Engine) start(ctx context.Context, started <-chan session.Session, run func(context.Context) (session.Session, error)) (session.Session, error) {
	e.ClearDraft(ctx)

	failed := make(chan error, 1)
	go func() {
		runCtx := context.Background()
		if _, err := run(runCtx); err != nil {
			failed <- err
			return
		}
		e.save(runCtx)
	}()

	select {
	case snap := <-started:
		e.recent.Add(snap.ID, struct{}{})
		return snap, nil
	case err := <-failed:
		return session.Session{}, err
	case <-ctx.Done():
		return session.Session{}, ctx.Err()
	}
}

// Refine re-runs one completed artifact with an instruction and blocks
// until it settles.
func (e *Engine) Refine(ctx context.Context, sessionID, artifactID, instruction string) (session.Session, error) {
	e.recent.Get(sessionID)
	final, err := e.pipeline.Refine(ctx, sessionID, artifactID, instruction)
	if err != nil {
		return session.Session{}, err
	}
	e.save(ctx)
	return final, nil
}

// AddSitePage appends and generates one page on an existing site
// session.
func (e *Engine) AddSitePage(ctx context.Context, sessionID, name string) (session.Session, error) {
	e.recent.Get(sessionID)
	final, err := e.pipeline.AddSitePage(ctx, sessionID, name)
	if err != nil {
		return session.Session{}, err
	}
	e.save(ctx)
	return final, nil
}

// Session returns one live session snapshot.
func (e *Engine) Session(id string) (session.Session, bool) {
	e.recent.Get(id)
	return e.store.Get(id)
}

// Sessions returns all live session snapshots, newest first.
func (e *Engine) Sessions() []session.Session {
	return e.store.List()
}

// Watch subscribes to a session's snapshot stream.
func (e *Engine) Watch(id string) (<-chan session.Session, func()) {
	return e.store.Watch(id)
}

// Versions lists the recorded entries for one artifact or page.
func (e *Engine) Versions(artifactID string) []version.Entry {
	return e.ledger.Entries(artifactID)
}

// RestoreVersion overwrites an artifact's content from a recorded
// entry. The restore itself becomes an undoable step.
func (e *Engine) RestoreVersion(ctx context.Context, sessionID, entryID string) (session.Session, error) {
	entry, ok := e.ledger.Entry(entryID)
	if !ok {
		return session.Session{}, fmt.Errorf("engine: unknown version %s", entryID)
	}
	snap, applied := e.store.Apply(session.Restored{
		SessionID: sessionID,
		TargetID:  entry.ArtifactID,
		Content:   entry.Content,
	})
	if !applied {
		return session.Session{}, fmt.Errorf("engine: version %s does not belong to session %s", entryID, sessionID)
	}
	e.ledger.PushRestored(entry.ArtifactID, entry.Content)
	e.save(ctx)
	return snap, nil
}

// Undo steps the editing history back one state and reflects it into
// the session. A failed apply (wrong session, evicted session) rolls
// the cursor forward again so the history step is not consumed.
func (e *Engine) Undo(ctx context.Context, sessionID string) (session.Session, error) {
	st, ok := e.ledger.Undo()
	if !ok {
		return session.Session{}, fmt.Errorf("engine: nothing to undo")
	}
	snap, err := e.applyHistory(ctx, sessionID, st)
	if err != nil {
		e.ledger.Redo()
		return session.Session{}, err
	}
	return snap, nil
}

// Redo re-applies the last undone state. Same rollback contract as
// Undo.
func (e *Engine) Redo(ctx context.Context, sessionID string) (session.Session, error) {
	st, ok := e.ledger.Redo()
	if !ok {
		return session.Session{}, fmt.Errorf("engine: nothing to redo")
	}
	snap, err := e.applyHistory(ctx, sessionID, st)
	if err != nil {
		e.ledger.Undo()
		return session.Session{}, err
	}
	return snap, nil
}

func (e *Engine) applyHistory(ctx context.Context, sessionID string, st version.State) (session.Session, error) {
	snap, applied := e.store.Apply(session.Restored{
		SessionID: sessionID,
		TargetID:  st.ArtifactID,
		Content:   st.Content,
	})
	if !applied {
		return session.Session{}, fmt.Errorf("engine: history state does not belong to session %s", sessionID)
	}
	e.save(ctx)
	return snap, nil
}

// PublishRequest selects what to publish and the attached metadata.
type PublishRequest struct {
	SessionID      string
	ArtifactID     string
	SiteID         string
	SEOTitle       string
	SEODescription string
}

// Publish uploads a completed artifact (or, for site sessions, every
// completed page) and attaches the resulting address to the artifact.
func (e *Engine) Publish(ctx context.Context, req PublishRequest) (session.Session, error) {
	if e.publisher == nil {
		return session.Session{}, fmt.Errorf("engine: publishing is not configured")
	}
	sess, ok := e.store.Get(req.SessionID)
	if !ok {
		return session.Session{}, fmt.Errorf("engine: unknown session %s", req.SessionID)
	}

	pages, err := publishPages(sess, req.ArtifactID)
	if err != nil {
		return session.Session{}, err
	}
	result, err := e.publisher.Publish(ctx, publish.Request{
		SessionID:      req.SessionID,
		Pages:          pages,
		SiteID:         req.SiteID,
		SEOTitle:       req.SEOTitle,
		SEODescription: req.SEODescription,
	})
	if err != nil {
		return session.Session{}, fmt.Errorf("engine: publish: %w", err)
	}

	snap, _ := e.store.Apply(session.Published{
		SessionID: req.SessionID,
		TargetID:  req.ArtifactID,
		Info: session.PublishInfo{
			URL:         result.URL,
			ShortID:     result.SiteID,
			SEOTitle:    req.SEOTitle,
			SEODesc:     req.SEODescription,
			PublishedAt: time.Now().UTC(),
		},
	})
	e.save(ctx)
	return snap, nil
}

// publishPages maps session content to destination paths. Site
// sessions publish every complete page; single sessions publish the
// chosen artifact as index.html.
func publishPages(sess session.Session, artifactID string) (map[string]string, error) {
	if sess.Mode == session.ModeSite && sess.Site != nil {
		pages := make(map[string]string)
		for _, p := range sess.Site.Pages {
			if p.Status == session.StatusComplete {
				pages[p.Slug+".html"] = p.Content
			}
		}
		if len(pages) == 0 {
			return nil, fmt.Errorf("engine: no completed pages to publish")
		}
		return pages, nil
	}

	artifact, ok := sess.Artifact(artifactID)
	if !ok {
		return nil, fmt.Errorf("engine: unknown artifact %s", artifactID)
	}
	if artifact.Status != session.StatusComplete {
		return nil, fmt.Errorf("engine: artifact %s is %s, only complete artifacts publish", artifactID, artifact.Status)
	}
	return map[string]string{"index.html": artifact.Content}, nil
}

// SaveDraft supersedes the single draft slot.
func (e *Engine) SaveDraft(ctx context.Context, draft session.Draft) error {
	if e.persist == nil {
		return nil
	}
	draft.SavedAt = time.Now().UTC()
	return e.persist.SaveDraft(ctx, &draft)
}

// LoadDraft returns the saved draft, or nil.
func (e *Engine) LoadDraft(ctx context.Context) (*session.Draft, error) {
	if e.persist == nil {
		return nil, nil
	}
	return e.persist.LoadDraft(ctx)
}

// ClearDraft empties the slot. Failures log and pass; the draft is a
// convenience, never the source of truth.
func (e *Engine) ClearDraft(ctx context.Context) {
	if e.persist == nil {
		return
	}
	if err := e.persist.SaveDraft(ctx, nil); err != nil {
		e.logger.Warn().Err(err).Msg("clear draft failed")
	}
}

// save writes the durable documents. Persistence failures never fail
// the operation that triggered them.
func (e *Engine) save(ctx context.Context) {
	if e.persist == nil {
		return
	}
	if err := e.persist.SaveSessions(ctx, e.store.List()); err != nil {
		e.logger.Warn().Err(err).Msg("save sessions failed")
	}
	if err := e.persist.SaveVersions(ctx, e.ledger.All()); err != nil {
		e.logger.Warn().Err(err).Msg("save versions failed")
	}
}

// Close flushes state one last time.
func (e *Engine) Close(ctx context.Context) {
	e.save(ctx)
	if e.persist != nil {
		if err := e.persist.Close(); err != nil {
			e.logger.Warn().Err(err).Msg("close persistence failed")
		}
	}
}
