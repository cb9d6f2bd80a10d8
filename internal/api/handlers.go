package api

import (
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/dysedit/internal/bridge"
	"github.com/starford/dysedit/internal/docservice"
	"github.com/starford/dysedit/internal/session"
	"github.com/starford/dysedit/internal/settings"
)

// Handler holds API route handlers.
type Handler struct {
	sess   *session.Session
	docs   *docservice.Service
	bridge *bridge.Bridge
	kv     settings.KV
}

// NewHandler creates a new Handler.
func NewHandler(sess *session.Session, docs *docservice.Service, kv settings.KV) *Handler {
	return &Handler{
		sess:   sess,
		docs:   docs,
		bridge: bridge.New(sess, slog.Default()),
		kv:     kv,
	}
}

// packageName extracts the package name from the URL. Supports encoded
// names from OpenAPI clients (e.g. notes%20%281%29).
func packageName(r *http.Request) string {
	raw := strings.Trim(chi.URLParam(r, "name"), "/")
	if raw == "" {
		return ""
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// ListDocuments handles GET /api/documents.
//
//	@Summary		List saved packages, most recently updated first
//	@Tags			documents
//	@Produce		json
//	@Param			limit	query		int	false	"Page size"
//	@Param			offset	query		int	false	"Page offset"
//	@Success		200		{object}	DocumentListResponse
//	@Security		BearerAuth
//	@Router			/documents [get]
func (h *Handler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	items, total, err := h.docs.ListDocuments(r.Context(), limit, offset)
	if err != nil {
		writeError(w, "list documents", err)
		return
	}
	writeJSON(w, http.StatusOK, DocumentListResponse{Documents: items, Total: total})
}

// GetDocument handles GET /api/documents/{name}.
//
//	@Summary		Get a saved package by name
//	@Tags			documents
//	@Produce		json
//	@Param			name	path		string	true	"Package name"
//	@Success		200		{object}	DocumentDetail
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents/{name} [get]
func (h *Handler) GetDocument(w http.ResponseWriter, r *http.Request) {
	name := packageName(r)
	if name == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("name is required"))
		return
	}
	doc, err := h.docs.GetDocument(r.Context(), name)
	if err != nil {
		writeError(w, "get document", err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// UpdateDocument handles PUT /api/documents/{name}.
//
//	@Summary		Replace the markdown of a saved package with optimistic concurrency
//	@Tags			documents
//	@Accept			json
//	@Produce		json
//	@Param			name		path		string					true	"Package name"
//	@Param			If-Match	header		string					false	"SHA-256 checksum for optimistic concurrency"
//	@Param			body		body		UpdateDocumentRequest	true	"Updated markdown"
//	@Success		200			{object}	DocumentDetail
//	@Failure		400			{object}	errResponse
//	@Failure		404			{object}	errResponse
//	@Failure		409			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents/{name} [put]
func (h *Handler) UpdateDocument(w http.ResponseWriter, r *http.Request) {
	name := packageName(r)
	if name == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("name is required"))
		return
	}
	var req UpdateDocumentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Markdown == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("markdown is required"))
		return
	}

	// Strip surrounding quotes if present (standard ETag format).
	ifMatch := strings.Trim(r.Header.Get("If-Match"), `"`)

	doc, err := h.docs.UpdateMarkdown(r.Context(), name, req.Markdown, ifMatch)
	if err != nil {
		writeError(w, "update document", err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// DeleteDocument handles DELETE /api/documents/{name}.
//
//	@Summary		Delete a saved package
//	@Tags			documents
//	@Param			name	path	string	true	"Package name"
//	@Success		204		"Package deleted"
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents/{name} [delete]
func (h *Handler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	name := packageName(r)
	if name == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("name is required"))
		return
	}
	if err := h.docs.DeleteDocument(r.Context(), name); err != nil {
		writeError(w, "delete document", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RenameDocument handles POST /api/documents/{name}/rename.
//
//	@Summary		Rename a saved package
//	@Tags			documents
//	@Accept			json
//	@Produce		json
//	@Param			name	path		string			true	"Package name"
//	@Param			body	body		RenameRequest	true	"New package name"
//	@Success		200		{object}	DocumentDetail
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents/{name}/rename [post]
func (h *Handler) RenameDocument(w http.ResponseWriter, r *http.Request) {
	name := packageName(r)
	if name == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("name is required"))
		return
	}
	var req RenameRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	newName := strings.TrimSpace(req.Name)
	if newName == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("new name is required"))
		return
	}
	doc, err := h.docs.RenameDocument(r.Context(), name, newName)
	if err != nil {
		writeError(w, "rename document", err)
		return
	}
	h.sess.Renamed(name, doc.Name)
	writeJSON(w, http.StatusOK, doc)
}

// Search handles GET /api/search.
//
//	@Summary		Full-text search across saved packages
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
	results, err := h.docs.Search(r.Context(), q, limit)
	if err != nil {
		slog.Error("search failed", slog.String("query", q), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}
