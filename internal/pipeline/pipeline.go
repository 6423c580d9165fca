// Package pipeline turns one user request into streamed, independently
// failable generation jobs: a non-streaming style decision, then one
// streaming job per variant through the batch scheduler. Site mode
// (site.go) sequences pages instead of batching them.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"pagesmith/internal/batch"
	"pagesmith/internal/job"
	"pagesmith/internal/llmclient"
	"pagesmith/internal/session"
	"pagesmith/internal/version"
)

// GenerateRequest is one single-document generation request.
type GenerateRequest struct {
	Prompt    string
	Variants  int
	Image     *llmclient.InlineImage
	StyleKit  *StyleKit
	CloneMode bool
	CloneRef  string

	// OnStart, when set, receives the session's initial snapshot as
	// soon as it is registered, before any model call.
	OnStart func(session.Session)
}

// Pipeline owns the collaborators every generation run needs. One
// Pipeline serves many runs.
type Pipeline struct {
	Client llmclient.Client
	Store  *session.Store
	Ledger *version.Ledger

	// Width caps concurrent jobs per run; Retry is handed to the
	// scheduler; Timeout bounds each job attempt.
	Width   int
	Retry   llmclient.RetryPolicy
	Timeout time.Duration

	Logger zerolog.Logger
}

// Generate runs the two-phase pipeline to completion and returns the
// final session snapshot. The session (with pending artifacts) is
// visible in the store as soon as the run starts; callers wanting
// fire-and-forget run Generate on their own goroutine and watch the
// store.
func (p *Pipeline) Generate(ctx context.Context, req GenerateRequest) (session.Session, error) {
	n := req.Variants
	if n <= 0 {
		n = 3
	}

	sess := session.Session{
		ID:        session.NewID(),
		Prompt:    req.Prompt,
		CreatedAt: time.Now().UTC(),
		Mode:      session.ModeSingle,
		Artifacts: make([]session.Artifact, n),
	}
	for i := range sess.Artifacts {
		sess.Artifacts[i] = session.Artifact{
			ID:     session.NewID(),
			Style:  fmt.Sprintf("Variant %d", i+1),
			Status: session.StatusPending,
		}
	}
	snapshot, _ := p.Store.Apply(session.Created{Session: sess})
	if req.OnStart != nil {
		req.OnStart(snapshot)
	}

	decision := DecideStyles(ctx, p.Client, req, n, p.Logger)
	p.Logger.Info().
		Str("session_id", sess.ID).
		Str("style_source", string(decision.Source)).
		Strs("styles", decision.Styles).
		Msg("pipeline: styles decided")
	for i, style := range decision.Styles {
		p.Store.Apply(session.StyleAssigned{
			SessionID: sess.ID,
			TargetID:  snapshot.Artifacts[i].ID,
			Style:     style,
		})
	}

	jobs := make([]*job.Job, n)
	for i := range jobs {
		jobs[i] = p.newArtifactJob(sess.ID, snapshot.Artifacts[i].ID, llmclient.Request{
			Prompt: buildVariantPrompt(req, decision.Styles[i]),
			Image:  req.Image,
		}, decision.Styles[i])
	}

	batch.Run(ctx, jobs, batch.Options{Width: p.Width, Retry: p.Retry, Logger: p.Logger})

	final, ok := p.Store.Get(sess.ID)
	if !ok {
		return session.Session{}, fmt.Errorf("pipeline: session %s disappeared during run", sess.ID)
	}
	return final, nil
}

// Refine re-runs one artifact with an extra instruction. The artifact
// re-enters the status machine from pending; a no-op refinement is
// deduplicated by the version ledger.
func (p *Pipeline) Refine(ctx context.Context, sessionID, artifactID, instruction string) (session.Session, error) {
	sess, ok := p.Store.Get(sessionID)
	if !ok {
		return session.Session{}, fmt.Errorf("pipeline: unknown session %s", sessionID)
	}
	artifact, ok := sess.Artifact(artifactID)
	if !ok {
		return session.Session{}, fmt.Errorf("pipeline: unknown artifact %s", artifactID)
	}
	if !artifact.Status.Terminal() {
		return session.Session{}, fmt.Errorf("pipeline: artifact %s is still %s", artifactID, artifact.Status)
	}

	p.Store.Apply(session.Restarted{SessionID: sessionID, TargetID: artifactID})
	jb := p.newArtifactJob(sessionID, artifactID, llmclient.Request{
		Prompt: buildRefinePrompt(artifact.Content, instruction),
	}, artifact.Style)
	batch.Run(ctx, []*job.Job{jb}, batch.Options{Width: 1, Retry: p.Retry, Logger: p.Logger})

	final, ok := p.Store.Get(sessionID)
	if !ok {
		return session.Session{}, fmt.Errorf("pipeline: session %s disappeared during refine", sessionID)
	}
	return final, nil
}

// newArtifactJob wires a job's callbacks into the store and, on
// completion, the version ledger. Callbacks re-derive full state via
// Apply; they never mutate shared fields.
func (p *Pipeline) newArtifactJob(sessionID, artifactID string, req llmclient.Request, label string) *job.Job {
	return &job.Job{
		TargetID:  artifactID,
		Request:   req,
		Client:    p.Client,
		Streaming: true,
		Timeout:   p.Timeout,
		Logger:    p.Logger,
		OnProgress: func(buffer string) {
			p.Store.Apply(session.Progress{
				SessionID: sessionID,
				TargetID:  artifactID,
				Content:   buffer,
			})
		},
		OnSettle: func(status session.Status, content, diagnostic string) {
			p.Store.Apply(session.Settled{
				SessionID:  sessionID,
				TargetID:   artifactID,
				Status:     status,
				Content:    content,
				Diagnostic: diagnostic,
			})
			if status == session.StatusComplete && p.Ledger != nil {
				p.Ledger.Record(artifactID, content, label)
			}
		},
	}
}
