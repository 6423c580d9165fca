package pipeline

import (
	"context"
	"strings"
	"testing"

	"pagesmith/internal/session"
)

func TestGenerateSiteSequentialOrder(t *testing.T) {
	cli := &runClient{}
	p, _, _ := newTestPipeline(cli)

	final, err := p.GenerateSite(context.Background(), SiteRequest{
		Prompt:    "Bakery with online ordering",
		PageNames: []string{"Home", "About", "Contact"},
	})
	if err != nil {
		t.Fatalf("GenerateSite: %v", err)
	}

	if final.Site == nil || len(final.Site.Pages) != 3 {
		t.Fatalf("site = %+v", final.Site)
	}
	for i, page := range final.Site.Pages {
		if page.Status != session.StatusComplete {
			t.Fatalf("page %d status = %s", i, page.Status)
		}
	}
	home := final.Site.Pages[0]
	if !home.IsHome || home.Slug != "index" {
		t.Fatalf("home = %+v", home)
	}

	prompts := cli.recorded()
	if len(prompts) != 3 {
		t.Fatalf("calls = %d, want 3", len(prompts))
	}
	if !strings.Contains(prompts[0], `"Home" page`) {
		t.Fatalf("first call is not the home page:\n%s", prompts[0])
	}
	if !strings.Contains(prompts[1], `"About" page`) || !strings.Contains(prompts[2], `"Contact" page`) {
		t.Fatalf("later pages out of order: %v", []string{prompts[1][:60], prompts[2][:60]})
	}
}

func TestGenerateSiteLaterPromptsEmbedHome(t *testing.T) {
	cli := &runClient{}
	p, _, _ := newTestPipeline(cli)

	final, err := p.GenerateSite(context.Background(), SiteRequest{
		Prompt:    "Bakery",
		PageNames: []string{"Home", "About"},
	})
	if err != nil {
		t.Fatalf("GenerateSite: %v", err)
	}

	homeContent := final.Site.Pages[0].Content
	prompts := cli.recorded()
	aboutPrompt := prompts[1]
	if !strings.Contains(aboutPrompt, homeContent) {
		t.Fatalf("about prompt does not embed the finalized home page")
	}
	if strings.Contains(prompts[0], "already-generated home page") {
		t.Fatalf("home prompt references itself")
	}
	for _, want := range []string{"index.html", "about.html"} {
		if !strings.Contains(aboutPrompt, want) {
			t.Fatalf("page list missing %q:\n%s", want, aboutPrompt)
		}
	}
}

func TestGenerateSiteHomeNotFirstInInput(t *testing.T) {
	pages := planPages([]string{"Pricing", "Home", "FAQ"})
	if len(pages) != 3 {
		t.Fatalf("pages = %d", len(pages))
	}
	if !pages[0].IsHome || pages[0].Name != "Home" || pages[0].Slug != "index" {
		t.Fatalf("home not moved first: %+v", pages[0])
	}
	if pages[1].IsHome || pages[2].IsHome {
		t.Fatalf("multiple home pages: %+v", pages)
	}
}

func TestGenerateSiteNoHomeNameFirstBecomesHome(t *testing.T) {
	pages := planPages([]string{"Landing", "Team"})
	if !pages[0].IsHome || pages[0].Slug != "index" {
		t.Fatalf("first page not home: %+v", pages[0])
	}
	if pages[1].Slug != "team" {
		t.Fatalf("slug = %q", pages[1].Slug)
	}
}

func TestUniqueSlugSuffixes(t *testing.T) {
	existing := []session.SitePage{
		{Slug: "about"},
		{Slug: "about-2"},
	}
	if got := uniqueSlug("about", existing); got != "about-3" {
		t.Fatalf("slug = %q", got)
	}
	if got := uniqueSlug("index", nil); got != "index-2" {
		t.Fatalf("reserved slug not suffixed: %q", got)
	}
}

func TestAddSitePageGeneratesAgainstHome(t *testing.T) {
	cli := &runClient{}
	p, _, _ := newTestPipeline(cli)

	base, err := p.GenerateSite(context.Background(), SiteRequest{
		Prompt:    "Bakery",
		PageNames: []string{"Home"},
	})
	if err != nil {
		t.Fatalf("GenerateSite: %v", err)
	}

	final, err := p.AddSitePage(context.Background(), base.ID, "Wholesale")
	if err != nil {
		t.Fatalf("AddSitePage: %v", err)
	}
	if len(final.Site.Pages) != 2 {
		t.Fatalf("pages = %d", len(final.Site.Pages))
	}
	added := final.Site.Pages[1]
	if added.Name != "Wholesale" || added.Slug != "wholesale" || added.Status != session.StatusComplete {
		t.Fatalf("added page = %+v", added)
	}

	prompts := cli.recorded()
	last := prompts[len(prompts)-1]
	if !strings.Contains(last, base.Site.Pages[0].Content) {
		t.Fatalf("new page prompt does not embed home content")
	}
}

func TestAddSitePageRejectsSingleSession(t *testing.T) {
	cli := &runClient{styles: `["x"]`}
	p, _, _ := newTestPipeline(cli)

	sess, err := p.Generate(context.Background(), GenerateRequest{Prompt: "one pager", Variants: 1})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if _, err := p.AddSitePage(context.Background(), sess.ID, "Extra"); err == nil {
		t.Fatalf("AddSitePage on a single-document session succeeded")
	}
}
