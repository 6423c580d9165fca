package stream

import (
	"errors"
	"strings"
	"testing"
)

const validDoc = `<!DOCTYPE html>
<html>
<head><title>Coffee Shop</title></head>
<body><h1>Welcome to the roastery</h1><p>Fresh beans daily.</p></body>
</html>`

func TestFinalizeStripsFenceWrapper(t *testing.T) {
	raw := "```html\n" + validDoc + "\n```"
	out, err := Finalize(raw)
	if err != nil {
		t.Fatalf("Finalize error: %v", err)
	}
	if out != validDoc {
		t.Fatalf("unexpected output:\n%s", out)
	}
}

func TestFinalizeIdempotent(t *testing.T) {
	first, err := Finalize("```html\n" + validDoc + "\n```")
	if err != nil {
		t.Fatalf("first Finalize error: %v", err)
	}
	second, err := Finalize(first)
	if err != nil {
		t.Fatalf("second Finalize error: %v", err)
	}
	if first != second {
		t.Fatalf("Finalize is not idempotent:\nfirst:  %q\nsecond: %q", first, second)
	}
}

func TestStripFenceNoWrapperUntouched(t *testing.T) {
	if got := StripFence(validDoc); got != validDoc {
		t.Fatalf("content without fence changed: %q", got)
	}
}

func TestFinalizeRescuesSurroundingProse(t *testing.T) {
	raw := "Sure! Here is your page:\n" + validDoc + "\nLet me know if you want changes."
	out, err := Finalize(raw)
	if err != nil {
		t.Fatalf("Finalize error: %v", err)
	}
	if !strings.HasPrefix(out, "<!DOCTYPE html>") || !strings.HasSuffix(out, "</html>") {
		t.Fatalf("rescue did not trim to document bounds: %q", out)
	}
}

func TestFinalizeRescuesTruncatedStream(t *testing.T) {
	truncated := strings.TrimSuffix(validDoc, "\n</html>")
	out, err := Finalize("Partial result:\n" + truncated)
	if err != nil {
		t.Fatalf("Finalize error: %v", err)
	}
	if !strings.HasPrefix(out, "<!DOCTYPE html>") {
		t.Fatalf("unexpected rescue output: %q", out)
	}
}

func TestFinalizePreservesRawOnFailure(t *testing.T) {
	raw := "I could not generate the page, sorry."
	_, err := Finalize(raw)
	if err == nil {
		t.Fatal("expected validation error")
	}
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *ValidationError, got %T", err)
	}
	if verr.Raw != raw {
		t.Fatalf("raw content not preserved: %q", verr.Raw)
	}
}

func TestAccumulatorNotifiesPerChunk(t *testing.T) {
	var seen []string
	acc := NewAccumulator(func(buf string) { seen = append(seen, buf) })
	acc.Append("<html>")
	acc.Append("<body>")
	acc.Append("</body></html>")
	if len(seen) != 3 {
		t.Fatalf("expected 3 notifications, got %d", len(seen))
	}
	for i := 1; i < len(seen); i++ {
		if !strings.HasPrefix(seen[i], seen[i-1]) {
			t.Fatalf("buffer shrank between notifications: %q -> %q", seen[i-1], seen[i])
		}
	}
	if acc.String() != "<html><body></body></html>" {
		t.Fatalf("unexpected buffer: %q", acc.String())
	}
}

func TestAccumulatorEmptyChunkIgnored(t *testing.T) {
	calls := 0
	acc := NewAccumulator(func(string) { calls++ })
	acc.Append("")
	if calls != 0 {
		t.Fatalf("empty chunk triggered notification")
	}
}
