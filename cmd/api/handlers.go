package main

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"pagesmith/internal/engine"
	"pagesmith/internal/llmclient"
	"pagesmith/internal/pipeline"
	"pagesmith/internal/preview"
	"pagesmith/internal/session"
)

type imagePayload struct {
	MIMEType   string `json:"mimeType"`
	DataBase64 string `json:"dataBase64"`
}

func (p *imagePayload) decode() (*llmclient.InlineImage, error) {
	if p == nil {
		return nil, nil
	}
	data, err := base64.StdEncoding.DecodeString(p.DataBase64)
	if err != nil {
		return nil, fmt.Errorf("invalid image data: %w", err)
	}
	mime := strings.TrimSpace(p.MIMEType)
	if mime == "" {
		mime = "image/png"
	}
	return &llmclient.InlineImage{MIMEType: mime, Data: data}, nil
}

type generateBody struct {
	Prompt    string             `json:"prompt"`
	Variants  int                `json:"variants,omitempty"`
	StyleKit  *pipeline.StyleKit `json:"styleKit,omitempty"`
	CloneMode bool               `json:"cloneMode,omitempty"`
	CloneRef  string             `json:"cloneRef,omitempty"`
	Image     *imagePayload      `json:"image,omitempty"`
}

func (s *apiServer) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var body generateBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid json body: %w", err))
		return
	}
	if strings.TrimSpace(body.Prompt) == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("prompt is required"))
		return
	}
	image, err := body.Image.decode()
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	snap, err := s.engine.Generate(r.Context(), pipeline.GenerateRequest{
		Prompt:    body.Prompt,
		Variants:  body.Variants,
		Image:     image,
		StyleKit:  body.StyleKit,
		CloneMode: body.CloneMode,
		CloneRef:  body.CloneRef,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusAccepted, snap)
}

type generateSiteBody struct {
	Prompt    string             `json:"prompt"`
	PageNames []string           `json:"pageNames,omitempty"`
	StyleKit  *pipeline.StyleKit `json:"styleKit,omitempty"`
	Image     *imagePayload      `json:"image,omitempty"`
}

func (s *apiServer) handleGenerateSite(w http.ResponseWriter, r *http.Request) {
	var body generateSiteBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid json body: %w", err))
		return
	}
	if strings.TrimSpace(body.Prompt) == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("prompt is required"))
		return
	}
	image, err := body.Image.decode()
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	snap, err := s.engine.GenerateSite(r.Context(), pipeline.SiteRequest{
		Prompt:    body.Prompt,
		PageNames: body.PageNames,
		Image:     image,
		StyleKit:  body.StyleKit,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusAccepted, snap)
}

func (s *apiServer) handleListSessions(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"sessions": s.engine.Sessions()})
}

func (s *apiServer) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	snap, ok := s.engine.Session(id)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Errorf("session %s not found", id))
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *apiServer) handleAddPage(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid json body: %w", err))
		return
	}
	if strings.TrimSpace(body.Name) == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("name is required"))
		return
	}

	snap, err := s.engine.AddSitePage(r.Context(), chi.URLParam(r, "sessionID"), body.Name)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// handleUpdateImage hot-swaps one embedded image in the session's
// rendered preview. The engine only routes; the frame applies it.
func (s *apiServer) handleUpdateImage(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ImgID string `json:"imgId"`
		Src   string `json:"src"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid json body: %w", err))
		return
	}
	if body.ImgID == "" || body.Src == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("imgId and src are required"))
		return
	}

	s.bridge.Push(chi.URLParam(r, "sessionID"), preview.Message{
		Type:  preview.KindUpdateImage,
		ImgID: body.ImgID,
		Src:   body.Src,
	})
	writeJSON(w, http.StatusOK, map[string]bool{"sent": true})
}

func (s *apiServer) handleRefine(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ArtifactID  string `json:"artifactId"`
		Instruction string `json:"instruction"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid json body: %w", err))
		return
	}
	if body.ArtifactID == "" || strings.TrimSpace(body.Instruction) == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("artifactId and instruction are required"))
		return
	}

	snap, err := s.engine.Refine(r.Context(), chi.URLParam(r, "sessionID"), body.ArtifactID, body.Instruction)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *apiServer) handlePublish(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ArtifactID     string `json:"artifactId,omitempty"`
		SiteID         string `json:"siteId,omitempty"`
		SEOTitle       string `json:"seoTitle,omitempty"`
		SEODescription string `json:"seoDescription,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid json body: %w", err))
		return
	}

	snap, err := s.engine.Publish(r.Context(), engine.PublishRequest{
		SessionID:      chi.URLParam(r, "sessionID"),
		ArtifactID:     body.ArtifactID,
		SiteID:         body.SiteID,
		SEOTitle:       body.SEOTitle,
		SEODescription: body.SEODescription,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *apiServer) handleVersions(w http.ResponseWriter, r *http.Request) {
	artifactID := chi.URLParam(r, "artifactID")
	writeJSON(w, http.StatusOK, map[string]any{
		"artifactId": artifactID,
		"versions":   s.engine.Versions(artifactID),
	})
}

func (s *apiServer) handleRestore(w http.ResponseWriter, r *http.Request) {
	var body struct {
		VersionID string `json:"versionId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid json body: %w", err))
		return
	}
	if body.VersionID == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("versionId is required"))
		return
	}

	snap, err := s.engine.RestoreVersion(r.Context(), chi.URLParam(r, "sessionID"), body.VersionID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *apiServer) handleUndo(w http.ResponseWriter, r *http.Request) {
	snap, err := s.engine.Undo(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		writeError(w, http.StatusConflict, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *apiServer) handleRedo(w http.ResponseWriter, r *http.Request) {
	snap, err := s.engine.Redo(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		writeError(w, http.StatusConflict, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *apiServer) handleLoadDraft(w http.ResponseWriter, r *http.Request) {
	draft, err := s.engine.LoadDraft(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"draft": draft})
}

func (s *apiServer) handleSaveDraft(w http.ResponseWriter, r *http.Request) {
	var draft session.Draft
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid json body: %w", err))
		return
	}
	if err := s.engine.SaveDraft(r.Context(), draft); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"saved": true})
}

func (s *apiServer) handleClearDraft(w http.ResponseWriter, r *http.Request) {
	s.engine.ClearDraft(r.Context())
	writeJSON(w, http.StatusOK, map[string]bool{"cleared": true})
}
