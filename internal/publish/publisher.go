// Package publish uploads finished page content to a public bucket and
// hands back the address a visitor can load it from.
package publish

import (
	"context"
	"html"
	"strings"
)

// Request carries the content and metadata of one publish.
type Request struct {
	SessionID string
	// Pages maps object paths (index.html, about.html) to content.
	// Single-artifact publishes carry one entry at index.html.
	Pages map[string]string
	// SiteID pins the destination prefix on republish. Empty means
	// allocate a fresh one.
	SiteID         string
	SEOTitle       string
	SEODescription string
}

// Result identifies where the published content lives.
type Result struct {
	SiteID string
	URL    string
}

// Publisher uploads content and returns its public location.
type Publisher interface {
	Publish(ctx context.Context, req Request) (Result, error)
}

// injectSEO places title and meta description into the head of an HTML
// document. Existing tags are left alone; content without a head gets
// the tags prepended so they still take effect.
func injectSEO(content, title, description string) string {
	if title == "" && description == "" {
		return content
	}
	var b strings.Builder
	if title != "" && !strings.Contains(strings.ToLower(content), "<title>") {
		b.WriteString("<title>")
		b.WriteString(html.EscapeString(title))
		b.WriteString("</title>\n")
	}
	if description != "" && !strings.Contains(strings.ToLower(content), `name="description"`) {
		b.WriteString(`<meta name="description" content="`)
		b.WriteString(html.EscapeString(description))
		b.WriteString("\">\n")
	}
	tags := b.String()
	if tags == "" {
		return content
	}
	lower := strings.ToLower(content)
	if i := strings.Index(lower, "<head>"); i >= 0 {
		at := i + len("<head>")
		return content[:at] + "\n" + tags + content[at:]
	}
	return tags + content
}
