package stream

import (
	"fmt"
	"strings"
)

// MinValidLength is the minimum finalized content size. Anything
// shorter cannot be a renderable document.
const MinValidLength = 80

// structural markers, checked case-insensitively. The document must
// open with one of these to pass validation.
var structuralMarkers = []string{"<!doctype", "<html"}

// ValidationError reports content that failed structural validation
// even after the rescue attempt. Raw keeps the original buffer for
// diagnostics.
type ValidationError struct {
	Reason string
	Raw    string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("stream: content failed validation: %s", e.Reason)
}

// Finalize cleans and validates a complete buffer. It is a pure,
// idempotent function: applying it to already-finalized content
// returns the content unchanged.
func Finalize(raw string) (string, error) {
	clean := StripFence(raw)
	if err := Validate(clean); err == nil {
		return clean, nil
	}
	rescued, ok := rescue(clean)
	if ok {
		if err := Validate(rescued); err == nil {
			return rescued, nil
		}
	}
	reason := "no structural marker"
	if len(strings.TrimSpace(clean)) < MinValidLength {
		reason = "too short"
	}
	return "", &ValidationError{Reason: reason, Raw: raw}
}

// StripFence removes a single leading/trailing fenced-code-block
// wrapper, if present. A leading fence may carry a language tag
// ("```html"); the trailing fence must be bare. Content without a
// wrapper passes through untouched, which makes the transform
// idempotent.
func StripFence(s string) string {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	rest := trimmed[3:]
	if idx := strings.IndexByte(rest, '\n'); idx >= 0 {
		// Drop the fence line including its language tag.
		rest = rest[idx+1:]
	} else {
		return trimmed
	}
	rest = strings.TrimSpace(rest)
	if strings.HasSuffix(rest, "```") {
		rest = strings.TrimSpace(rest[:len(rest)-3])
	}
	return rest
}

// Validate checks the structural invariants of finalized content.
func Validate(s string) error {
	body := strings.TrimSpace(s)
	if len(body) < MinValidLength {
		return fmt.Errorf("content below minimum length %d", MinValidLength)
	}
	lower := strings.ToLower(body)
	for _, marker := range structuralMarkers {
		if strings.HasPrefix(lower, marker) {
			return nil
		}
	}
	return fmt.Errorf("missing structural marker")
}

// rescue extracts the longest substring bounded by the expected root
// structure: from the first doctype or <html opening to the last
// closing </html> tag, or to the end of input when the closing tag
// never arrived (truncated stream).
func rescue(s string) (string, bool) {
	lower := strings.ToLower(s)
	start := strings.Index(lower, "<!doctype")
	if start < 0 {
		start = strings.Index(lower, "<html")
	}
	if start < 0 {
		return "", false
	}
	end := strings.LastIndex(lower, "</html>")
	if end < 0 {
		return s[start:], true
	}
	return s[start : end+len("</html>")], true
}
