package main

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"pagesmith/internal/engine"
	"pagesmith/internal/preview"
)

type apiServer struct {
	engine *engine.Engine
	bridge *preview.Bridge
	logger zerolog.Logger
}

func newRouter(s *apiServer) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(corsMiddleware)

	r.Route("/api", func(r chi.Router) {
		r.Post("/generate", s.handleGenerate)
		r.Post("/generate-site", s.handleGenerateSite)

		r.Get("/sessions", s.handleListSessions)
		r.Route("/sessions/{sessionID}", func(r chi.Router) {
			r.Get("/", s.handleGetSession)
			r.Get("/watch", s.handleWatchSSE)
			r.Post("/pages", s.handleAddPage)
			r.Post("/images", s.handleUpdateImage)
			r.Post("/refine", s.handleRefine)
			r.Post("/publish", s.handlePublish)
			r.Post("/restore", s.handleRestore)
			r.Post("/undo", s.handleUndo)
			r.Post("/redo", s.handleRedo)
		})

		r.Get("/versions/{artifactID}", s.handleVersions)

		r.Get("/draft", s.handleLoadDraft)
		r.Put("/draft", s.handleSaveDraft)
		r.Delete("/draft", s.handleClearDraft)
	})

	r.Get("/ws/preview", s.bridge.HandleWS)

	return r
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := strings.TrimSpace(r.Header.Get("Origin"))
		if origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Vary", "Origin")
		} else {
			w.Header().Set("Access-Control-Allow-Origin", "*")
		}
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Accept-Encoding, Authorization")
		if r.Method == http.MethodOptions {
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
