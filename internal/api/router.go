package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/dysedit/internal/docservice"
	"github.com/starford/dysedit/internal/session"
	"github.com/starford/dysedit/internal/settings"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
// Handle payloads stay outside the auth group so <img> tags can load them.
func NewRouter(sess *session.Session, docs *docservice.Service, kv settings.KV, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(sess, docs, kv)

	r := chi.NewRouter()

	// Session display handles.
	r.Get("/handles/{id}", h.ServeHandle)

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(authEnabled, token))

		// Editing session.
		r.Route("/session", func(r chi.Router) {
			r.Get("/", h.SessionState)
			r.Put("/content", h.SetContent)
			r.Post("/input", h.Input)
			r.Post("/focus", h.Focus)
			r.Post("/blur", h.Blur)
			r.Put("/selection", h.Select)
			r.Delete("/selection", h.ClearSelection)
			r.Put("/mode", h.ChangeViewMode)
			r.Get("/format", h.Format)
			r.Post("/format/clear", h.ClearFormatting)
			r.Post("/settled", h.Settled)
			r.Post("/images", h.InsertImage)
			r.Post("/objects/image", h.SelectImage)
			r.Post("/objects/math", h.SelectMath)
			r.Delete("/objects", h.ClearObjectSelection)
			r.Delete("/objects/selected", h.DeleteSelected)
			r.Post("/objects/paragraph", h.InsertParagraph)
			r.Post("/resize", h.Resize)
			r.Post("/save", h.Save)
			r.Post("/open", h.Open)

			r.Get("/speech", h.SpeechStatus)
			r.Post("/speech/start", h.StartSpeech)
			r.Post("/speech/boundary", h.SpeechBoundary)
			for _, action := range []string{"pause", "resume", "cancel", "end"} {
				r.Post("/speech/"+action, h.SpeechControl(action))
			}
		})

		// Host bridge.
		r.Get("/bridge/markdown", h.ReadMarkdown)
		r.Put("/bridge/markdown", h.WriteMarkdown)
		r.Get("/bridge/document", h.ReadDocumentData)
		r.Put("/bridge/document", h.WriteDocumentData)
		r.Get("/bridge/dialect", h.Dialect)

		// Saved packages.
		r.Get("/documents", h.ListDocuments)
		r.Get("/documents/{name}", h.GetDocument)
		r.Put("/documents/{name}", h.UpdateDocument)
		r.Delete("/documents/{name}", h.DeleteDocument)
		r.Post("/documents/{name}/rename", h.RenameDocument)

		// Search.
		r.Get("/search", h.Search)

		// Reading preferences.
		r.Get("/settings", h.GetSettings)
		r.Put("/settings", h.PutSettings)
		r.Post("/settings/preset", h.ApplyPreset)
		r.Get("/settings/choices", h.Choices)

		// SSE endpoint (protected by same auth middleware).
		if sseHandler != nil {
			r.Get("/events", sseHandler.ServeHTTP)
		}
	})

	return r
}
