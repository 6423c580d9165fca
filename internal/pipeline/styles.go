package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog"

	"pagesmith/internal/llmclient"
)

// DecisionSource tags how the style list was obtained, so callers can
// observe the path taken without re-parsing anything.
type DecisionSource string

const (
	// DecisionParsed means the model's list was parsed strictly.
	DecisionParsed DecisionSource = "parsed"
	// DecisionExtracted means strict parsing failed but a JSON array
	// was recovered from the surrounding text.
	DecisionExtracted DecisionSource = "extracted"
	// DecisionFallback means the deterministic fallback list was used
	// (parse failure, short list, or the call itself failed).
	DecisionFallback DecisionSource = "fallback"
)

// Decision is the Phase 1 outcome: always exactly N usable styles.
// Err records the underlying failure when Source is DecisionFallback.
type Decision struct {
	Source DecisionSource
	Styles []string
	Err    error
}

// fallbackStyles is the fixed, ordered fallback list. Truncated or
// cycled to the requested N, so two failed Phase 1 runs for the same
// prompt always yield the identical list.
var fallbackStyles = []string{
	"Modern Minimal",
	"Bold Vibrant",
	"Elegant Classic",
	"Playful Creative",
	"Dark Sleek",
	"Warm Organic",
	"Corporate Clean",
	"Retro Revival",
}

var jsonArrayRe = regexp.MustCompile(`\[[^\[\]]*\]`)

// DecideStyles issues the one non-streaming style-decision call and
// normalizes the answer to exactly n distinct descriptors. It never
// fails: any unrecoverable problem resolves to the deterministic
// fallback list.
func DecideStyles(ctx context.Context, client llmclient.Client, req GenerateRequest, n int, logger zerolog.Logger) Decision {
	if n <= 0 {
		n = 1
	}

	raw, err := client.Generate(ctx, llmclient.Request{
		Prompt: buildStylePrompt(req, n),
		Image:  req.Image,
	})
	if err != nil {
		logger.Warn().Err(err).Msg("pipeline: style decision call failed, using fallback styles")
		return Decision{Source: DecisionFallback, Styles: fallbackList(n), Err: err}
	}

	styles, source, perr := parseStyleList(raw, n)
	if perr != nil {
		logger.Warn().Err(perr).Msg("pipeline: style list unparseable, using fallback styles")
		return Decision{Source: DecisionFallback, Styles: fallbackList(n), Err: perr}
	}
	return Decision{Source: source, Styles: styles}
}

// parseStyleList attempts a strict parse of the full response, then a
// regex-based array extraction from the surrounding text. Entries are
// deduplicated first; fewer than n distinct entries is treated as a
// parse failure, since duplicate labels would produce identical
// variant prompts.
func parseStyleList(raw string, n int) ([]string, DecisionSource, error) {
	if styles, ok := decodeStyleArray(raw); ok {
		if distinct := distinctStyles(styles); len(distinct) >= n {
			return distinct[:n], DecisionParsed, nil
		}
	}
	if match := jsonArrayRe.FindString(raw); match != "" {
		if styles, ok := decodeStyleArray(match); ok {
			if distinct := distinctStyles(styles); len(distinct) >= n {
				return distinct[:n], DecisionExtracted, nil
			}
		}
	}
	return nil, "", fmt.Errorf("pipeline: no usable style array in response (%d bytes)", len(raw))
}

// distinctStyles drops case-insensitive duplicates, keeping first
// occurrence order.
func distinctStyles(styles []string) []string {
	seen := make(map[string]bool, len(styles))
	out := styles[:0]
	for _, style := range styles {
		key := strings.ToLower(style)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, style)
	}
	return out
}

func decodeStyleArray(s string) ([]string, bool) {
	var styles []string
	if err := json.Unmarshal([]byte(strings.TrimSpace(s)), &styles); err != nil {
		return nil, false
	}
	out := styles[:0]
	for _, style := range styles {
		if trimmed := strings.TrimSpace(style); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return nil, false
	}
	return out, true
}

// fallbackList returns the fixed list truncated or cycled to n.
func fallbackList(n int) []string {
	out := make([]string, n)
	for i := 0; i < n; i++ {
		base := fallbackStyles[i%len(fallbackStyles)]
		if i >= len(fallbackStyles) {
			out[i] = fmt.Sprintf("%s %d", base, i/len(fallbackStyles)+1)
		} else {
			out[i] = base
		}
	}
	return out
}
