package pipeline

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/rs/zerolog"

	"pagesmith/internal/llmclient"
)

// scriptedClient answers the style-decision call with a fixed body or
// error.
type scriptedClient struct {
	styleBody string
	styleErr  error
}

func (s *scriptedClient) Name() string { return "scripted" }

func (s *scriptedClient) Generate(context.Context, llmclient.Request) (string, error) {
	return s.styleBody, s.styleErr
}

func (s *scriptedClient) GenerateStream(ctx context.Context, req llmclient.Request, onChunk func(string)) (string, error) {
	text, err := s.Generate(ctx, req)
	if err == nil {
		onChunk(text)
	}
	return text, err
}

func (s *scriptedClient) Close() error { return nil }

func TestDecideStylesParsed(t *testing.T) {
	cli := &scriptedClient{styleBody: `["Warm Rustic","Modern Minimal","Playful Bright"]`}
	d := DecideStyles(context.Background(), cli, GenerateRequest{Prompt: "Coffee shop landing page"}, 3, zerolog.Nop())

	if d.Source != DecisionParsed {
		t.Fatalf("source = %s", d.Source)
	}
	want := []string{"Warm Rustic", "Modern Minimal", "Playful Bright"}
	if !reflect.DeepEqual(d.Styles, want) {
		t.Fatalf("styles = %v", d.Styles)
	}
}

func TestDecideStylesExtractedFromProse(t *testing.T) {
	cli := &scriptedClient{styleBody: "Sure! Here are some styles:\n[\"Dark Luxe\", \"Soft Pastel\"]\nHope that helps."}
	d := DecideStyles(context.Background(), cli, GenerateRequest{}, 2, zerolog.Nop())

	if d.Source != DecisionExtracted {
		t.Fatalf("source = %s", d.Source)
	}
	if len(d.Styles) != 2 || d.Styles[0] != "Dark Luxe" {
		t.Fatalf("styles = %v", d.Styles)
	}
}

func TestDecideStylesTruncatesLongList(t *testing.T) {
	cli := &scriptedClient{styleBody: `["a","b","c","d","e"]`}
	d := DecideStyles(context.Background(), cli, GenerateRequest{}, 3, zerolog.Nop())
	if len(d.Styles) != 3 {
		t.Fatalf("styles = %v", d.Styles)
	}
}

func TestDecideStylesFallbackOnShortList(t *testing.T) {
	cli := &scriptedClient{styleBody: `["only one"]`}
	d := DecideStyles(context.Background(), cli, GenerateRequest{}, 3, zerolog.Nop())

	if d.Source != DecisionFallback {
		t.Fatalf("source = %s", d.Source)
	}
	if d.Err == nil {
		t.Fatalf("fallback decision carries no error")
	}
	if len(d.Styles) != 3 {
		t.Fatalf("styles = %v", d.Styles)
	}
}

func TestDecideStylesFallbackOnDuplicateList(t *testing.T) {
	cli := &scriptedClient{styleBody: `["Minimal","Minimal","Minimal"]`}
	d := DecideStyles(context.Background(), cli, GenerateRequest{}, 3, zerolog.Nop())

	if d.Source != DecisionFallback {
		t.Fatalf("source = %s, want fallback for duplicate labels", d.Source)
	}
	if len(d.Styles) != 3 {
		t.Fatalf("styles = %v", d.Styles)
	}
}

func TestDecideStylesDedupsBeforeTruncating(t *testing.T) {
	cli := &scriptedClient{styleBody: `["Minimal","minimal","Bold","Retro"]`}
	d := DecideStyles(context.Background(), cli, GenerateRequest{}, 3, zerolog.Nop())

	if d.Source != DecisionParsed {
		t.Fatalf("source = %s", d.Source)
	}
	want := []string{"Minimal", "Bold", "Retro"}
	if !reflect.DeepEqual(d.Styles, want) {
		t.Fatalf("styles = %v, want %v", d.Styles, want)
	}
}

func TestDecideStylesFallbackOnCallFailure(t *testing.T) {
	cli := &scriptedClient{styleErr: errors.New("network down")}
	d := DecideStyles(context.Background(), cli, GenerateRequest{}, 3, zerolog.Nop())
	if d.Source != DecisionFallback {
		t.Fatalf("source = %s", d.Source)
	}
}

func TestFallbackDeterministic(t *testing.T) {
	cli := &scriptedClient{styleBody: "not json at all"}
	first := DecideStyles(context.Background(), cli, GenerateRequest{Prompt: "p"}, 4, zerolog.Nop())
	second := DecideStyles(context.Background(), cli, GenerateRequest{Prompt: "p"}, 4, zerolog.Nop())

	if first.Source != DecisionFallback || second.Source != DecisionFallback {
		t.Fatalf("sources = %s %s", first.Source, second.Source)
	}
	if !reflect.DeepEqual(first.Styles, second.Styles) {
		t.Fatalf("fallback not deterministic: %v vs %v", first.Styles, second.Styles)
	}
}

func TestFallbackListCyclesPastFixedSet(t *testing.T) {
	out := fallbackList(10)
	if len(out) != 10 {
		t.Fatalf("len = %d", len(out))
	}
	seen := map[string]bool{}
	for _, s := range out {
		if seen[s] {
			t.Fatalf("duplicate style %q in %v", s, out)
		}
		seen[s] = true
	}
	if out[8] != "Modern Minimal 2" {
		t.Fatalf("cycled entry = %q", out[8])
	}
}
