package session

import (
	"sort"
	"sync"

	"github.com/rs/zerolog"
)

// Store is the authoritative in-memory model of every generation
// request. It is the single serialization point: concurrent job
// callbacks all funnel through Apply, which derives the next snapshot
// from the previous one and replaces it wholesale. Consumers only ever
// see full value copies.
type Store struct {
	mu       sync.Mutex
	sessions map[string]Session
	order    []string
	watchers map[string][]chan Session
	logger   zerolog.Logger
}

func NewStore(logger zerolog.Logger) *Store {
	return &Store{
		sessions: make(map[string]Session),
		watchers: make(map[string][]chan Session),
		logger:   logger,
	}
}

// Apply runs one event through the transition function and publishes
// the resulting snapshot to watchers. It returns the new snapshot and
// whether the event changed anything.
func (s *Store) Apply(ev Event) (Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := ev.sessionID()
	prev, exists := s.sessions[id]

	var next Session
	var ok bool
	if created, isCreate := ev.(Created); isCreate {
		if exists {
			return prev.Clone(), false
		}
		next = created.Session.Clone()
		s.order = append(s.order, id)
		ok = true
	} else {
		if !exists {
			s.logger.Debug().Str("session_id", id).Msg("store: event for unknown session dropped")
			return Session{}, false
		}
		next, ok = transition(prev.Clone(), ev)
		if !ok {
			return prev.Clone(), false
		}
	}

	s.sessions[id] = next
	snapshot := next.Clone()
	for _, ch := range s.watchers[id] {
		notifyWatcher(ch, snapshot)
	}
	return snapshot, true
}

// notifyWatcher delivers with a drop-oldest policy: a slow watcher
// loses intermediate snapshots but always ends up holding the latest
// one, so a terminal snapshot is never dropped. Never blocks Apply.
func notifyWatcher(ch chan Session, snapshot Session) {
	select {
	case ch <- snapshot:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- snapshot:
	default:
	}
}

// transition is the pure part of Apply: previous snapshot in, next
// snapshot out. The input is already a private clone, so in-place
// edits here are safe.
func transition(next Session, ev Event) (Session, bool) {
	switch e := ev.(type) {
	case StyleAssigned:
		return updateTarget(next, e.TargetID, func(st *Status, content, diag *string, style *string) bool {
			if style == nil {
				return false
			}
			*style = e.Style
			return true
		})
	case Progress:
		return updateTarget(next, e.TargetID, func(st *Status, content, diag *string, _ *string) bool {
			if st.Terminal() {
				return false
			}
			*st = StatusStreaming
			*content = e.Content
			return true
		})
	case Settled:
		return updateTarget(next, e.TargetID, func(st *Status, content, diag *string, _ *string) bool {
			if st.Terminal() {
				return false
			}
			*st = e.Status
			*content = e.Content
			*diag = e.Diagnostic
			return true
		})
	case Restarted:
		return updateTarget(next, e.TargetID, func(st *Status, content, diag *string, _ *string) bool {
			if !st.Terminal() {
				return false
			}
			*st = StatusPending
			*diag = ""
			return true
		})
	case Restored:
		return updateTarget(next, e.TargetID, func(st *Status, content, diag *string, _ *string) bool {
			*content = e.Content
			*st = StatusComplete
			*diag = ""
			return true
		})
	case PageAdded:
		if next.Site == nil {
			return next, false
		}
		for _, p := range next.Site.Pages {
			if p.ID == e.Page.ID {
				return next, false
			}
		}
		next.Site.Pages = append(next.Site.Pages, e.Page)
		return next, true
	case Published:
		for i := range next.Artifacts {
			if next.Artifacts[i].ID == e.TargetID {
				info := e.Info
				next.Artifacts[i].Publish = &info
				return next, true
			}
		}
		return next, false
	default:
		return next, false
	}
}

// updateTarget applies fn to the artifact or site page with the given
// id. fn receives the style slot only for artifacts.
func updateTarget(next Session, targetID string, fn func(st *Status, content, diag *string, style *string) bool) (Session, bool) {
	for i := range next.Artifacts {
		if next.Artifacts[i].ID == targetID {
			a := &next.Artifacts[i]
			if fn(&a.Status, &a.Content, &a.Diagnostic, &a.Style) {
				return next, true
			}
			return next, false
		}
	}
	if next.Site != nil {
		for i := range next.Site.Pages {
			if next.Site.Pages[i].ID == targetID {
				p := &next.Site.Pages[i]
				if fn(&p.Status, &p.Content, &p.Diagnostic, nil) {
					return next, true
				}
				return next, false
			}
		}
	}
	return next, false
}

// Get returns a snapshot of one session.
func (s *Store) Get(id string) (Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return Session{}, false
	}
	return sess.Clone(), true
}

// List returns snapshots of all sessions, newest first.
func (s *Store) List() []Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Session, 0, len(s.order))
	for _, id := range s.order {
		if sess, ok := s.sessions[id]; ok {
			out = append(out, sess.Clone())
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// Seed loads previously persisted sessions without notifying watchers.
func (s *Store) Seed(sessions []Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sess := range sessions {
		if sess.ID == "" {
			continue
		}
		if _, ok := s.sessions[sess.ID]; !ok {
			s.order = append(s.order, sess.ID)
		}
		s.sessions[sess.ID] = sess.Clone()
	}
}

// Drop removes a session from the live set. Watchers are closed.
func (s *Store) Drop(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	for _, ch := range s.watchers[id] {
		close(ch)
	}
	delete(s.watchers, id)
}

// Watch subscribes to snapshot updates for one session. The returned
// cancel func must be called when done.
func (s *Store) Watch(id string) (<-chan Session, func()) {
	ch := make(chan Session, 64)
	s.mu.Lock()
	s.watchers[id] = append(s.watchers[id], ch)
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		subs := s.watchers[id]
		for i, sub := range subs {
			if sub == ch {
				s.watchers[id] = append(subs[:i], subs[i+1:]...)
				close(ch)
				return
			}
		}
	}
	return ch, cancel
}
