package api

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/chatnotes/internal/apperr"
	"github.com/starford/chatnotes/internal/checksum"
	"github.com/starford/chatnotes/internal/noteservice"
	"github.com/starford/chatnotes/internal/syncer"
)

// Handler holds API route handlers.
type Handler struct {
	svc *noteservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *noteservice.Service) *Handler {
	return &Handler{svc: svc}
}

// noteID extracts the note id from the URL (everything after /notes/).
func noteID(r *http.Request) string {
	raw := strings.Trim(chi.URLParam(r, "*"), "/")
	if raw == "" {
		return ""
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// ListNotes handles GET /notes.
//
//	@Summary		List notes with optional pagination and filtering
//	@Tags			notes
//	@Produce		json
//	@Param			folder	query		string	false	"Folder (Parent/Child)"
//	@Param			limit	query		int		false	"Page size"
//	@Param			offset	query		int		false	"Page offset"
//	@Param			sort	query		string	false	"Sort field"	Enums(updated_at, title)
//	@Success		200		{object}	NoteListResponse
//	@Security		BearerAuth
//	@Router			/notes [get]
func (h *Handler) ListNotes(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	items, total, err := h.svc.ListNotes(r.Context(), q.Get("folder"), limit, offset, q.Get("sort"))
	if err != nil {
		slog.Error("list notes failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, NoteListResponse{Notes: items, Total: total})
}

// GetNote handles GET /notes/*.
//
//	@Summary		Get a single note by id
//	@Tags			notes
//	@Produce		json
//	@Param			id	path		string	true	"Note id"
//	@Success		200	{object}	NoteDetail
//	@Success		304	"Not modified (If-None-Match)"
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id} [get]
func (h *Handler) GetNote(w http.ResponseWriter, r *http.Request) {
	id := noteID(r)
	if id == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("id is required"))
		return
	}
	note, err := h.svc.GetNote(r.Context(), id)
	if err != nil {
		writeStoreError(w, "get note", err, slog.String("id", id))
		return
	}
	w.Header().Set("ETag", checksum.ETag(note.Checksum))
	if checksum.Matches(r.Header.Get("If-None-Match"), note.Checksum) {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// GetConversationNote handles GET /conversations/{id}.
//
//	@Summary		Get the note holding a ChatGPT conversation
//	@Tags			notes
//	@Produce		json
//	@Param			id	path		string	true	"Conversation id"
//	@Success		200	{object}	NoteDetail
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/conversations/{id} [get]
func (h *Handler) GetConversationNote(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	note, err := h.svc.NoteByConversation(r.Context(), id)
	if err != nil {
		writeStoreError(w, "get conversation note", err, slog.String("conversation_id", id))
		return
	}
	w.Header().Set("ETag", checksum.ETag(note.Checksum))
	writeJSON(w, http.StatusOK, note)
}

// DeleteNote handles DELETE /notes/*.
//
//	@Summary		Delete a note (recreated by the next sync)
//	@Tags			notes
//	@Param			id	path	string	true	"Note id"
//	@Success		204	"Note deleted"
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id} [delete]
func (h *Handler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	id := noteID(r)
	if id == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("id is required"))
		return
	}
	if err := h.svc.DeleteNote(r.Context(), id); err != nil {
		writeStoreError(w, "delete note", err, slog.String("id", id))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Search handles GET /search.
//
//	@Summary		Full-text search across notes
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.svc.Search(r.Context(), q, limit)
	if err != nil {
		slog.Error("search failed", slog.String("query", q), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}

// Sync handles POST /sync.
//
//	@Summary		Run a sync batch now
//	@Tags			sync
//	@Produce		json
//	@Success		200	{object}	SyncResponse
//	@Failure		409	{object}	errResponse
//	@Failure		500	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sync [post]
func (h *Handler) Sync(w http.ResponseWriter, r *http.Request) {
	sum, err := h.svc.SyncNow(r.Context())
	if err != nil {
		if errors.Is(err, apperr.ErrConflict) {
			writeJSON(w, http.StatusConflict, errorBody("sync already running"))
			return
		}
		slog.Error("sync failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, syncResponse(sum))
}

func syncResponse(s syncer.Summary) SyncResponse {
	resp := SyncResponse{
		Status:      s.Status.String(),
		Synced:      s.Synced,
		Failed:      s.Failed,
		Archived:    s.Archived,
		Created:     s.Created,
		Appended:    s.Appended,
		Overwritten: s.Overwritten,
		UpToDate:    s.UpToDate,
	}
	for _, o := range s.Outcomes {
		if o.Failed() {
			resp.Errors = append(resp.Errors, o.Title+" ("+o.ConversationID+"): "+o.Err.Error())
		}
	}
	for _, f := range s.Failures {
		resp.Errors = append(resp.Errors, f.Error())
	}
	return resp
}
