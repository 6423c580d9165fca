package session

// Event is one state transition applied to the store. All mutation of
// session state flows through Store.Apply with one of these; job
// callbacks never write fields directly.
type Event interface {
	sessionID() string
}

// Created registers a new session. The session value is cloned on
// apply, so the caller keeps no alias into store state.
type Created struct {
	Session Session
}

func (e Created) sessionID() string { return e.Session.ID }

// StyleAssigned sets an artifact's style label (Phase 1 outcome).
type StyleAssigned struct {
	SessionID string
	TargetID  string
	Style     string
}

func (e StyleAssigned) sessionID() string { return e.SessionID }

// Progress carries the accumulator's current buffer for one target.
// The first Progress moves the target from pending to streaming.
// Progress against a settled target is dropped.
type Progress struct {
	SessionID string
	TargetID  string
	Content   string
}

func (e Progress) sessionID() string { return e.SessionID }

// Settled records a job's terminal outcome. Content replaces the
// buffer; for errors it is the rendered diagnostic and Diagnostic
// preserves the raw output. A second Settled for the same target is
// dropped.
type Settled struct {
	SessionID  string
	TargetID   string
	Status     Status
	Content    string
	Diagnostic string
}

func (e Settled) sessionID() string { return e.SessionID }

// Restarted puts a terminal artifact back to pending for a refinement
// pass. This is the only sanctioned way back from a terminal status:
// it starts a fresh lifecycle rather than reversing the old one.
type Restarted struct {
	SessionID string
	TargetID  string
}

func (e Restarted) sessionID() string { return e.SessionID }

// Restored overwrites an artifact's content from a version entry.
type Restored struct {
	SessionID string
	TargetID  string
	Content   string
}

func (e Restored) sessionID() string { return e.SessionID }

// PageAdded appends one page to a session's site.
type PageAdded struct {
	SessionID string
	Page      SitePage
}

func (e PageAdded) sessionID() string { return e.SessionID }

// Published attaches publish info to an artifact.
type Published struct {
	SessionID string
	TargetID  string
	Info      PublishInfo
}

func (e Published) sessionID() string { return e.SessionID }
