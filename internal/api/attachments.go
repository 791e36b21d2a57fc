package api

import (
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/chatnotes/internal/noteservice"
)

// AttachmentHandler serves images extracted from conversations.
type AttachmentHandler struct {
	svc *noteservice.Service
}

// NewAttachmentHandler creates a handler reading through svc.
func NewAttachmentHandler(svc *noteservice.Service) *AttachmentHandler {
	return &AttachmentHandler{svc: svc}
}

// safeName validates that the filename is a plain name (no path separators,
// no traversal).
func safeName(name string) bool {
	if name == "" {
		return false
	}
	cleaned := filepath.Clean(name)
	return cleaned == filepath.Base(cleaned) && !strings.Contains(cleaned, "..") && cleaned == name
}

// ServeFile handles GET /notes/{id}/attachments/{name}.
//
//	@Summary		Download a note attachment
//	@Tags			notes
//	@Produce		octet-stream
//	@Param			id		path	string	true	"Note id"
//	@Param			name	path	string	true	"Attachment file name"
//	@Success		200
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id}/attachments/{name} [get]
func (h *AttachmentHandler) ServeFile(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	name := chi.URLParam(r, "name")
	if !safeName(name) {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid attachment name"))
		return
	}
	a, err := h.svc.Attachment(r.Context(), id, name)
	if err != nil {
		writeStoreError(w, "read attachment", err, slog.String("id", id), slog.String("name", name))
		return
	}
	ct := a.MIMEType
	if ct == "" {
		ct = "application/octet-stream"
	}
	w.Header().Set("Content-Type", ct)
	w.Header().Set("Content-Length", strconv.Itoa(len(a.Data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(a.Data)
}
