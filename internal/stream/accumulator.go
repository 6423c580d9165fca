// Package stream holds the per-job accumulation buffer and the
// finalization transform applied when a completion stream ends.
package stream

import "strings"

// Accumulator collects ordered text chunks from one completion call.
// The buffer only ever grows; Finalize derives the cleaned result
// without mutating it. Not safe for concurrent use: one accumulator
// belongs to exactly one job goroutine.
type Accumulator struct {
	buf      strings.Builder
	onChange func(buffer string)
}

// NewAccumulator creates an accumulator. onChange, if non-nil, is
// invoked with the full buffer after every Append.
func NewAccumulator(onChange func(buffer string)) *Accumulator {
	return &Accumulator{onChange: onChange}
}

// Append adds one chunk in arrival order.
func (a *Accumulator) Append(chunk string) {
	if chunk == "" {
		return
	}
	a.buf.WriteString(chunk)
	if a.onChange != nil {
		a.onChange(a.buf.String())
	}
}

// String returns the current buffer.
func (a *Accumulator) String() string { return a.buf.String() }

// Len returns the current buffer length in bytes.
func (a *Accumulator) Len() int { return a.buf.Len() }

// Reset clears the buffer for a fresh attempt. No change notification
// is emitted; the next Append reports the new buffer.
func (a *Accumulator) Reset() { a.buf.Reset() }

// Finalize runs the finalization transform over the complete buffer.
// On validation failure the raw buffer is preserved via the returned
// error's Raw field.
func (a *Accumulator) Finalize() (string, error) {
	return Finalize(a.buf.String())
}
