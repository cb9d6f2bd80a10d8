package api

import (
	"encoding/json"
	"io"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/starford/dysedit/internal/apperr"
	"github.com/starford/dysedit/internal/assetstore"
	"github.com/starford/dysedit/internal/dom"
)

const maxUploadBytes = 50 << 20 // 50 MB

// InsertImage handles POST /api/session/images (multipart/form-data, field
// "file"). Optional fields "path" (JSON node path) and "offset" give the
// caret; without them the image is appended.
//
//	@Summary		Insert an image at the caret
//	@Tags			session
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			file	formData	file	true	"Image file"
//	@Param			path	formData	string	false	"Caret node path as a JSON array"
//	@Param			offset	formData	int		false	"Caret offset"
//	@Success		201		{object}	ImageInsertResponse
//	@Failure		413		{object}	errResponse
//	@Failure		415		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/session/images [post]
func (h *Handler) InsertImage(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("file too large or invalid multipart"))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("missing 'file' field in multipart form"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read file"))
		return
	}

	var path dom.Path
	if raw := r.FormValue("path"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &path); err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody("path must be a JSON array of child indexes"))
			return
		}
	}
	offset, _ := strconv.Atoi(r.FormValue("offset"))

	p := assetstore.Payload{Name: filepath.Base(header.Filename), Data: data}
	res, err := h.sess.InsertImage(r.Context(), p, path, offset)
	if err != nil {
		// The image is on the surface even when it could not be persisted.
		if apperr.IsStorageWrite(err) && res.Handle != "" {
			writeJSON(w, http.StatusCreated, ImageInsertResponse{ID: res.ID, Handle: res.Handle, Warning: err.Error()})
			return
		}
		writeError(w, "insert image", err)
		return
	}
	writeJSON(w, http.StatusCreated, ImageInsertResponse{ID: res.ID, Handle: res.Handle})
}

// ServeHandle handles GET /api/handles/{id}: the payload behind a session
// display handle.
func (h *Handler) ServeHandle(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	p, ok := h.sess.Handle(assetstore.HandlePrefix + id)
	if !ok {
		http.NotFound(w, r)
		return
	}
	mime := p.MIME
	if mime == "" {
		mime = assetstore.DetectMIME(p.Data, p.Name)
	}
	w.Header().Set("Content-Type", mime)
	w.Header().Set("Content-Length", strconv.Itoa(len(p.Data)))
	w.Header().Set("Cache-Control", "private, max-age=31536000, immutable")
	_, _ = w.Write(p.Data)
}
