package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/chatnotes/internal/noteservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *noteservice.Service, authEnabled bool, token string, sseHandler http.Handler, opts ...RouterOption) chi.Router {
	var cfg routerConfig
	for _, o := range opts {
		o(&cfg)
	}
	h := NewHandler(svc)
	ah := NewAttachmentHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Notes.
	r.Get("/notes", h.ListNotes)
	r.Get("/notes/{id}/attachments/{name}", ah.ServeFile)
	r.Get("/notes/*", h.GetNote)
	r.Delete("/notes/*", h.DeleteNote)
	r.Get("/conversations/{id}", h.GetConversationNote)

	// Search.
	r.Get("/search", h.Search)

	// Sync trigger.
	r.With(rateLimit(cfg.syncLimiter)).Post("/sync", h.Sync)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
