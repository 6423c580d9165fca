package main

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"pagesmith/internal/session"
)

// handleWatchSSE streams full session snapshots as Server-Sent Events.
// One event per store change; the stream closes once every target in
// the session is terminal, or when the client disconnects.
func (s *apiServer) handleWatchSSE(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	snap, ok := s.engine.Session(sessionID)
	if !ok {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	updates, cancel := s.engine.Watch(sessionID)
	defer cancel()

	// Send the current state first so a late subscriber is never blank.
	writeSnapshotEvent(w, snap)
	flusher.Flush()
	if settled(snap) {
		fmt.Fprintf(w, "event: close\ndata: {}\n\n")
		flusher.Flush()
		return
	}

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case next, open := <-updates:
			if !open {
				fmt.Fprintf(w, "event: close\ndata: {}\n\n")
				flusher.Flush()
				return
			}
			writeSnapshotEvent(w, next)
			flusher.Flush()
			if settled(next) {
				fmt.Fprintf(w, "event: close\ndata: {}\n\n")
				flusher.Flush()
				return
			}
		}
	}
}

func writeSnapshotEvent(w http.ResponseWriter, snap session.Session) {
	data, err := json.Marshal(snap)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: snapshot\ndata: %s\n\n", data)
}

func settled(snap session.Session) bool {
	for _, a := range snap.Artifacts {
		if !a.Status.Terminal() {
			return false
		}
	}
	if snap.Site != nil {
		for _, p := range snap.Site.Pages {
			if !p.Status.Terminal() {
				return false
			}
		}
	}
	return len(snap.Artifacts) > 0 || snap.Site != nil
}
