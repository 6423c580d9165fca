package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"pagesmith/internal/batch"
	"pagesmith/internal/job"
	"pagesmith/internal/llmclient"
	"pagesmith/internal/session"
)

// SiteRequest is one multi-page generation request. PageNames keeps
// user order; the first entry (or the one named "Home") becomes the
// home page.
type SiteRequest struct {
	Prompt    string
	PageNames []string
	Image     *llmclient.InlineImage
	StyleKit  *StyleKit

	// OnStart mirrors GenerateRequest.OnStart.
	OnStart func(session.Session)
}

// GenerateSite generates all pages strictly in order: the home page
// first, then each later page once the previous one has settled. Later
// prompts embed the full page list and an excerpt of the finalized
// home page, so concurrent generation is deliberately traded for
// style consistency.
func (p *Pipeline) GenerateSite(ctx context.Context, req SiteRequest) (session.Session, error) {
	names := req.PageNames
	if len(names) == 0 {
		names = []string{"Home"}
	}

	pages := planPages(names)
	sess := session.Session{
		ID:        session.NewID(),
		Prompt:    req.Prompt,
		CreatedAt: time.Now().UTC(),
		Mode:      session.ModeSite,
		Site:      &session.Site{Pages: pages},
	}
	snapshot, _ := p.Store.Apply(session.Created{Session: sess})
	if req.OnStart != nil {
		req.OnStart(snapshot)
	}

	homeContent := ""
	for _, page := range snapshot.Site.Pages {
		p.runPageJob(ctx, sess.ID, req, page, snapshot.Site.Pages, homeContent)
		current, ok := p.Store.Get(sess.ID)
		if !ok {
			return session.Session{}, fmt.Errorf("pipeline: session %s disappeared during site run", sess.ID)
		}
		if page.IsHome {
			if home, ok := current.Page(page.ID); ok && home.Status == session.StatusComplete {
				homeContent = home.Content
			}
		}
		if ctx.Err() != nil {
			break
		}
	}

	final, ok := p.Store.Get(sess.ID)
	if !ok {
		return session.Session{}, fmt.Errorf("pipeline: session %s disappeared during site run", sess.ID)
	}
	return final, nil
}

// AddSitePage appends one page to an existing site and generates it
// against the existing home page. Already-complete pages are not
// touched.
func (p *Pipeline) AddSitePage(ctx context.Context, sessionID, name string) (session.Session, error) {
	sess, ok := p.Store.Get(sessionID)
	if !ok {
		return session.Session{}, fmt.Errorf("pipeline: unknown session %s", sessionID)
	}
	if sess.Mode != session.ModeSite || sess.Site == nil {
		return session.Session{}, fmt.Errorf("pipeline: session %s is not a site", sessionID)
	}

	page := session.SitePage{
		ID:     session.NewID(),
		Name:   strings.TrimSpace(name),
		Slug:   uniqueSlug(session.Slugify(name), sess.Site.Pages),
		Status: session.StatusPending,
	}
	snapshot, applied := p.Store.Apply(session.PageAdded{SessionID: sessionID, Page: page})
	if !applied {
		return session.Session{}, fmt.Errorf("pipeline: could not add page to session %s", sessionID)
	}

	homeContent := ""
	if home, ok := snapshot.Site.Home(); ok && home.Status == session.StatusComplete {
		homeContent = home.Content
	}
	req := SiteRequest{Prompt: sess.Prompt}
	p.runPageJob(ctx, sessionID, req, page, snapshot.Site.Pages, homeContent)

	final, ok := p.Store.Get(sessionID)
	if !ok {
		return session.Session{}, fmt.Errorf("pipeline: session %s disappeared during page add", sessionID)
	}
	return final, nil
}

// runPageJob runs exactly one page job to settlement. Pages reuse the
// batch scheduler with width 1 so retry policy and settlement flow
// match variant jobs.
func (p *Pipeline) runPageJob(ctx context.Context, sessionID string, req SiteRequest, page session.SitePage, pages []session.SitePage, homeContent string) {
	jb := &job.Job{
		TargetID:  page.ID,
		Request:   llmclient.Request{Prompt: buildSitePagePrompt(req, page, pages, homeContent), Image: req.Image},
		Client:    p.Client,
		Streaming: true,
		Timeout:   p.Timeout,
		Logger:    p.Logger,
		OnProgress: func(buffer string) {
			p.Store.Apply(session.Progress{SessionID: sessionID, TargetID: page.ID, Content: buffer})
		},
		OnSettle: func(status session.Status, content, diagnostic string) {
			p.Store.Apply(session.Settled{
				SessionID:  sessionID,
				TargetID:   page.ID,
				Status:     status,
				Content:    content,
				Diagnostic: diagnostic,
			})
			if status == session.StatusComplete && p.Ledger != nil {
				p.Ledger.Record(page.ID, content, page.Name)
			}
		},
	}
	batch.Run(ctx, []*job.Job{jb}, batch.Options{Width: 1, Retry: p.Retry, Logger: p.Logger})
}

// planPages assigns ids and slugs up front so every page prompt can
// reference the full navigation set. The home page always gets the
// "index" slug and position 0.
func planPages(names []string) []session.SitePage {
	pages := make([]session.SitePage, 0, len(names))
	homeIdx := 0
	for i, name := range names {
		if strings.EqualFold(strings.TrimSpace(name), "home") {
			homeIdx = i
			break
		}
	}
	for i, name := range names {
		page := session.SitePage{
			ID:     session.NewID(),
			Name:   strings.TrimSpace(name),
			Status: session.StatusPending,
			IsHome: i == homeIdx,
		}
		if page.IsHome {
			page.Slug = "index"
		} else {
			page.Slug = uniqueSlug(session.Slugify(name), pages)
		}
		pages = append(pages, page)
	}
	if homeIdx != 0 {
		pages[0], pages[homeIdx] = pages[homeIdx], pages[0]
	}
	return pages
}

func uniqueSlug(slug string, existing []session.SitePage) string {
	taken := func(s string) bool {
		if s == "index" {
			return true
		}
		for _, p := range existing {
			if p.Slug == s {
				return true
			}
		}
		return false
	}
	if !taken(slug) {
		return slug
	}
	for i := 2; ; i++ {
		candidate := fmt.Sprintf("%s-%d", slug, i)
		if !taken(candidate) {
			return candidate
		}
	}
}
