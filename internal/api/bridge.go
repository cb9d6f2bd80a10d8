package api

import (
	"net/http"

	"github.com/starford/dysedit/internal/bridge"
)

// ReadMarkdown handles GET /api/bridge/markdown.
//
//	@Summary		Read the document as markdown
//	@Tags			bridge
//	@Produce		json
//	@Success		200	{object}	MarkdownBody
//	@Security		BearerAuth
//	@Router			/bridge/markdown [get]
func (h *Handler) ReadMarkdown(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, MarkdownBody{Markdown: h.bridge.ReadMarkdown()})
}

// WriteMarkdown handles PUT /api/bridge/markdown.
//
//	@Summary		Replace the document with markdown
//	@Tags			bridge
//	@Accept			json
//	@Produce		json
//	@Param			body	body		MarkdownBody	true	"Markdown in the editor dialect"
//	@Success		200		{object}	OKResponse
//	@Security		BearerAuth
//	@Router			/bridge/markdown [put]
func (h *Handler) WriteMarkdown(w http.ResponseWriter, r *http.Request) {
	var req MarkdownBody
	if !decodeJSON(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, OKResponse{OK: h.bridge.WriteMarkdown(r.Context(), req.Markdown)})
}

// ReadDocumentData handles GET /api/bridge/document.
//
//	@Summary		Read the markdown with base64 image payloads
//	@Tags			bridge
//	@Produce		json
//	@Success		200	{object}	bridge.DocumentData
//	@Failure		409	{object}	unresolvedResponse
//	@Security		BearerAuth
//	@Router			/bridge/document [get]
func (h *Handler) ReadDocumentData(w http.ResponseWriter, r *http.Request) {
	data, err := h.bridge.ReadDocumentData(r.Context())
	if err != nil {
		writeError(w, "read document data", err)
		return
	}
	writeJSON(w, http.StatusOK, data)
}

// WriteDocumentData handles PUT /api/bridge/document.
//
//	@Summary		Replace the document with markdown and image payloads
//	@Tags			bridge
//	@Accept			json
//	@Produce		json
//	@Param			body	body		bridge.DocumentData	true	"Markdown and base64 images"
//	@Success		200		{object}	OKResponse
//	@Security		BearerAuth
//	@Router			/bridge/document [put]
func (h *Handler) WriteDocumentData(w http.ResponseWriter, r *http.Request) {
	var req bridge.DocumentData
	if !decodeJSON(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, OKResponse{OK: h.bridge.WriteDocumentData(r.Context(), req)})
}

// Dialect handles GET /api/bridge/dialect.
func (h *Handler) Dialect(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	_, _ = w.Write([]byte(bridge.Dialect))
}
