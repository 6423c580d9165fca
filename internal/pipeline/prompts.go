package pipeline

import (
	"fmt"
	"strings"

	"pagesmith/internal/session"
)

// homeExcerptLimit caps how much of the home page's HTML is embedded
// into later site-page prompts as the style reference.
const homeExcerptLimit = 6000

// StyleKit carries optional brand values injected into generation
// prompts. Kit CRUD is a collaborator concern; only the values travel
// through the engine.
type StyleKit struct {
	Colors []string `json:"colors,omitempty"`
	Fonts  []string `json:"fonts,omitempty"`
}

func buildStylePrompt(req GenerateRequest, n int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Propose exactly %d visually distinct design styles for the following web page request.\n", n)
	b.WriteString("Answer with a JSON array of short human-readable style names and nothing else.\n")
	if req.Image != nil {
		b.WriteString("A reference image is attached; the styles should suit it.\n")
	}
	b.WriteString("\nRequest:\n")
	b.WriteString(strings.TrimSpace(req.Prompt))
	return b.String()
}

func buildVariantPrompt(req GenerateRequest, style string) string {
	var b strings.Builder
	b.WriteString("Generate a complete, production-quality, single-file HTML page.\n")
	b.WriteString("Respond with the HTML document only: no commentary, no markdown fences.\n")
	fmt.Fprintf(&b, "Design style: %s.\n", style)
	writeSharedContext(&b, req.StyleKit, req.CloneMode, req.CloneRef, req.Image != nil)
	b.WriteString("\nRequest:\n")
	b.WriteString(strings.TrimSpace(req.Prompt))
	return b.String()
}

func buildSitePagePrompt(req SiteRequest, page session.SitePage, pages []session.SitePage, homeContent string) string {
	var b strings.Builder
	b.WriteString("Generate a complete, production-quality, single-file HTML page.\n")
	b.WriteString("Respond with the HTML document only: no commentary, no markdown fences.\n")
	fmt.Fprintf(&b, "This is the %q page of a multi-page site.\n", page.Name)

	b.WriteString("The site has these pages; link between them using the given slugs:\n")
	for _, p := range pages {
		marker := ""
		if p.IsHome {
			marker = " (home)"
		}
		fmt.Fprintf(&b, "- %s -> %s.html%s\n", p.Name, p.Slug, marker)
	}

	if homeContent != "" && !page.IsHome {
		b.WriteString("\nMatch the visual style of the already-generated home page exactly: same palette, fonts, spacing and header/footer. Home page HTML for reference:\n")
		b.WriteString(truncate(homeContent, homeExcerptLimit))
		b.WriteString("\n")
	}

	writeSharedContext(&b, req.StyleKit, false, "", req.Image != nil)
	b.WriteString("\nSite request:\n")
	b.WriteString(strings.TrimSpace(req.Prompt))
	return b.String()
}

func buildRefinePrompt(current, instruction string) string {
	var b strings.Builder
	b.WriteString("Revise the following HTML page according to the instruction.\n")
	b.WriteString("Respond with the complete revised HTML document only: no commentary, no markdown fences.\n")
	b.WriteString("\nInstruction:\n")
	b.WriteString(strings.TrimSpace(instruction))
	b.WriteString("\n\nCurrent page:\n")
	b.WriteString(current)
	return b.String()
}

func writeSharedContext(b *strings.Builder, kit *StyleKit, cloneMode bool, cloneRef string, hasImage bool) {
	if kit != nil {
		if len(kit.Colors) > 0 {
			fmt.Fprintf(b, "Use this brand color palette: %s.\n", strings.Join(kit.Colors, ", "))
		}
		if len(kit.Fonts) > 0 {
			fmt.Fprintf(b, "Use these brand fonts: %s.\n", strings.Join(kit.Fonts, ", "))
		}
	}
	if cloneMode {
		b.WriteString("Clone mode: replicate the referenced design as closely as possible instead of designing freely.\n")
		if cloneRef != "" {
			fmt.Fprintf(b, "Reference: %s\n", cloneRef)
		}
	}
	if hasImage {
		b.WriteString("A reference image is attached; follow it.\n")
	}
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit]
}
