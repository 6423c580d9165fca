package persist

import (
	"context"
	"testing"
	"time"

	"pagesmith/internal/session"
	"pagesmith/internal/version"
)

func TestFileSessionsRoundTrip(t *testing.T) {
	s := NewFile(t.TempDir())
	ctx := context.Background()

	in := []session.Session{
		{
			ID:        "s1",
			Prompt:    "Coffee shop",
			CreatedAt: time.Now().UTC().Truncate(time.Second),
			Mode:      session.ModeSingle,
			Artifacts: []session.Artifact{
				{ID: "a1", Style: "Warm Rustic", Status: session.StatusComplete, Content: "<html>x</html>"},
			},
		},
		{
			ID:   "s2",
			Mode: session.ModeSite,
			Site: &session.Site{Pages: []session.SitePage{
				{ID: "p1", Name: "Home", Slug: "index", IsHome: true, Status: session.StatusComplete},
			}},
		},
	}
	if err := s.SaveSessions(ctx, in); err != nil {
		t.Fatalf("SaveSessions: %v", err)
	}

	out, err := s.LoadSessions(ctx)
	if err != nil {
		t.Fatalf("LoadSessions: %v", err)
	}
	if len(out) != 2 || out[0].ID != "s1" || out[1].Site == nil {
		t.Fatalf("loaded = %+v", out)
	}
	a, _ := out[0].Artifact("a1")
	if a.Style != "Warm Rustic" || a.Status != session.StatusComplete {
		t.Fatalf("artifact = %+v", a)
	}
}

func TestFileLoadMissingIsEmpty(t *testing.T) {
	s := NewFile(t.TempDir())
	ctx := context.Background()

	sessions, err := s.LoadSessions(ctx)
	if err != nil || sessions != nil {
		t.Fatalf("LoadSessions = %v, %v", sessions, err)
	}
	entries, err := s.LoadVersions(ctx)
	if err != nil || entries != nil {
		t.Fatalf("LoadVersions = %v, %v", entries, err)
	}
	draft, err := s.LoadDraft(ctx)
	if err != nil || draft != nil {
		t.Fatalf("LoadDraft = %v, %v", draft, err)
	}
}

func TestFileVersionsRoundTrip(t *testing.T) {
	s := NewFile(t.TempDir())
	ctx := context.Background()

	in := []version.Entry{
		{ID: "v1", ArtifactID: "a1", Content: "first", Label: "Warm Rustic", CreatedAt: time.Now().UTC().Truncate(time.Second)},
		{ID: "v2", ArtifactID: "a1", Content: "second", Label: "refined"},
	}
	if err := s.SaveVersions(ctx, in); err != nil {
		t.Fatalf("SaveVersions: %v", err)
	}
	out, err := s.LoadVersions(ctx)
	if err != nil {
		t.Fatalf("LoadVersions: %v", err)
	}
	if len(out) != 2 || out[1].Content != "second" {
		t.Fatalf("loaded = %+v", out)
	}
}

func TestFileDraftSupersedeAndClear(t *testing.T) {
	s := NewFile(t.TempDir())
	ctx := context.Background()

	first := &session.Draft{Prompt: "v1", SavedAt: time.Now().UTC()}
	second := &session.Draft{Prompt: "v2", SiteMode: true, PageNames: []string{"Home", "About"}, SavedAt: time.Now().UTC()}
	if err := s.SaveDraft(ctx, first); err != nil {
		t.Fatalf("SaveDraft: %v", err)
	}
	if err := s.SaveDraft(ctx, second); err != nil {
		t.Fatalf("SaveDraft supersede: %v", err)
	}

	out, err := s.LoadDraft(ctx)
	if err != nil {
		t.Fatalf("LoadDraft: %v", err)
	}
	if out == nil || out.Prompt != "v2" || !out.SiteMode {
		t.Fatalf("draft = %+v", out)
	}

	if err := s.SaveDraft(ctx, nil); err != nil {
		t.Fatalf("clear: %v", err)
	}
	out, err = s.LoadDraft(ctx)
	if err != nil || out != nil {
		t.Fatalf("draft after clear = %+v, %v", out, err)
	}
	if err := s.SaveDraft(ctx, nil); err != nil {
		t.Fatalf("second clear: %v", err)
	}
}
