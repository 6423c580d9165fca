package publish

import (
	"strings"
	"testing"
)

func TestInjectSEOIntoHead(t *testing.T) {
	doc := `<!DOCTYPE html><html><head></head><body></body></html>`
	out := injectSEO(doc, "Coffee Shop", "Fresh beans daily")
	if !strings.Contains(out, "<title>Coffee Shop</title>") {
		t.Fatalf("title not injected:\n%s", out)
	}
	if !strings.Contains(out, `<meta name="description" content="Fresh beans daily">`) {
		t.Fatalf("description not injected:\n%s", out)
	}
	if !strings.Contains(out, "<head>\n<title>") {
		t.Fatalf("tags not placed inside head:\n%s", out)
	}
}

func TestInjectSEOKeepsExistingTitle(t *testing.T) {
	doc := `<html><head><title>Kept</title></head><body></body></html>`
	out := injectSEO(doc, "Replaced", "")
	if strings.Count(out, "<title>") != 1 {
		t.Fatalf("expected single title tag:\n%s", out)
	}
	if !strings.Contains(out, "<title>Kept</title>") {
		t.Fatalf("existing title lost:\n%s", out)
	}
}

func TestInjectSEOEscapesMetadata(t *testing.T) {
	doc := `<html><head></head></html>`
	out := injectSEO(doc, `A "quoted" <name>`, "")
	if strings.Contains(out, `content="A "quoted"`) || strings.Contains(out, "<name>") {
		t.Fatalf("metadata not escaped:\n%s", out)
	}
	if !strings.Contains(out, "&lt;name&gt;") {
		t.Fatalf("expected escaped title:\n%s", out)
	}
}

func TestInjectSEONoMetadataUnchanged(t *testing.T) {
	doc := `<html><head></head></html>`
	if got := injectSEO(doc, "", ""); got != doc {
		t.Fatalf("content changed without metadata:\n%s", got)
	}
}

func TestNewSiteIDShape(t *testing.T) {
	a, b := newSiteID(), newSiteID()
	if len(a) != 12 || len(b) != 12 {
		t.Fatalf("unexpected id length: %q %q", a, b)
	}
	if a == b {
		t.Fatalf("ids collide: %q", a)
	}
	if strings.Contains(a, "-") {
		t.Fatalf("id contains separator: %q", a)
	}
}
