package session

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle of one generation target (an Artifact or a
// SitePage). Transitions only move forward:
//
//	pending -> streaming -> complete
//	                     \> error
type Status string

const (
	StatusPending   Status = "pending"
	StatusStreaming Status = "streaming"
	StatusComplete  Status = "complete"
	StatusError     Status = "error"
)

// Terminal reports whether no further transition is allowed.
func (s Status) Terminal() bool {
	return s == StatusComplete || s == StatusError
}

// Mode selects between single-document and multi-page generation.
type Mode string

const (
	ModeSingle Mode = "single"
	ModeSite   Mode = "site"
)

// PublishInfo is attached to an Artifact by the publishing backend.
type PublishInfo struct {
	URL         string    `json:"url"`
	ShortID     string    `json:"short_id"`
	SEOTitle    string    `json:"seo_title,omitempty"`
	SEODesc     string    `json:"seo_desc,omitempty"`
	PublishedAt time.Time `json:"published_at"`
}

// Artifact is one generated variant within a Session.
type Artifact struct {
	ID         string       `json:"id"`
	Style      string       `json:"style"`
	Content    string       `json:"content"`
	Status     Status       `json:"status"`
	Diagnostic string       `json:"diagnostic,omitempty"`
	Publish    *PublishInfo `json:"publish,omitempty"`
}

// SitePage is one page of a Site.
type SitePage struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Slug       string `json:"slug"`
	Content    string `json:"content"`
	Status     Status `json:"status"`
	Diagnostic string `json:"diagnostic,omitempty"`
	IsHome     bool   `json:"is_home"`
}

// Site owns an ordered list of pages; exactly one page has IsHome set
// and it is always the first to be generated.
type Site struct {
	Pages []SitePage `json:"pages"`
}

// Home returns the home page, if present.
func (s *Site) Home() (SitePage, bool) {
	if s == nil {
		return SitePage{}, false
	}
	for _, p := range s.Pages {
		if p.IsHome {
			return p, true
		}
	}
	return SitePage{}, false
}

// Session is one user generation request. Snapshots handed out by the
// store are value copies; mutating them never touches store state.
type Session struct {
	ID        string     `json:"id"`
	Prompt    string     `json:"prompt"`
	CreatedAt time.Time  `json:"created_at"`
	Mode      Mode       `json:"mode"`
	Artifacts []Artifact `json:"artifacts,omitempty"`
	Site      *Site      `json:"site,omitempty"`
}

// Clone returns a deep copy so snapshot consumers cannot alias store
// state through slices or the Site pointer.
func (s Session) Clone() Session {
	out := s
	if s.Artifacts != nil {
		out.Artifacts = make([]Artifact, len(s.Artifacts))
		copy(out.Artifacts, s.Artifacts)
		for i := range out.Artifacts {
			if p := out.Artifacts[i].Publish; p != nil {
				cp := *p
				out.Artifacts[i].Publish = &cp
			}
		}
	}
	if s.Site != nil {
		site := Site{Pages: make([]SitePage, len(s.Site.Pages))}
		copy(site.Pages, s.Site.Pages)
		out.Site = &site
	}
	return out
}

// Artifact looks up a variant by id.
func (s Session) Artifact(id string) (Artifact, bool) {
	for _, a := range s.Artifacts {
		if a.ID == id {
			return a, true
		}
	}
	return Artifact{}, false
}

// Page looks up a site page by id.
func (s Session) Page(id string) (SitePage, bool) {
	if s.Site == nil {
		return SitePage{}, false
	}
	for _, p := range s.Site.Pages {
		if p.ID == id {
			return p, true
		}
	}
	return SitePage{}, false
}

// Draft is the autosaved pre-submission input state. A single slot:
// every save supersedes the previous one.
type Draft struct {
	Prompt     string    `json:"prompt"`
	ImageData  []byte    `json:"image_data,omitempty"`
	ImageMIME  string    `json:"image_mime,omitempty"`
	StyleKitID string    `json:"style_kit_id,omitempty"`
	SiteMode   bool      `json:"site_mode"`
	PageNames  []string  `json:"page_names,omitempty"`
	SavedAt    time.Time `json:"saved_at"`
}

// NewID returns a fresh identifier for sessions, artifacts and pages.
func NewID() string { return uuid.NewString() }

// Slugify turns a page name into a URL-safe slug.
func Slugify(name string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	slug := strings.Trim(b.String(), "-")
	if slug == "" {
		slug = "page"
	}
	return slug
}
