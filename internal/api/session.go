package api

import (
	"log/slog"
	"net/http"

	"github.com/starford/dysedit/internal/document"
	"github.com/starford/dysedit/internal/session"
	"github.com/starford/dysedit/internal/speech"
)

// SessionState handles GET /api/session.
//
//	@Summary		Current document, view mode, surface state and caret format
//	@Tags			session
//	@Produce		json
//	@Success		200	{object}	session.State
//	@Security		BearerAuth
//	@Router			/session [get]
func (h *Handler) SessionState(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.sess.State())
}

// SetContent handles PUT /api/session/content. The content is in the
// current view mode; while the user is editing the push is deferred.
func (h *Handler) SetContent(w http.ResponseWriter, r *http.Request) {
	var req ContentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res := h.sess.SetContent(req.Content)
	writeJSON(w, http.StatusOK, ContentResponse{Content: h.sess.State().Content, Result: string(res)})
}

// Input handles POST /api/session/input: the surface markup after a native
// edit.
func (h *Handler) Input(w http.ResponseWriter, r *http.Request) {
	var req ContentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	content, err := h.sess.Input(req.Content)
	if err != nil {
		writeError(w, "input", err)
		return
	}
	writeJSON(w, http.StatusOK, ContentResponse{Content: content})
}

// Focus handles POST /api/session/focus.
func (h *Handler) Focus(w http.ResponseWriter, _ *http.Request) {
	h.sess.Focus()
	w.WriteHeader(http.StatusNoContent)
}

// Blur handles POST /api/session/blur.
func (h *Handler) Blur(w http.ResponseWriter, _ *http.Request) {
	h.sess.Blur()
	w.WriteHeader(http.StatusNoContent)
}

// Select handles PUT /api/session/selection and returns the format at the
// caret.
func (h *Handler) Select(w http.ResponseWriter, r *http.Request) {
	var sel session.Selection
	if !decodeJSON(w, r, &sel) {
		return
	}
	format, err := h.sess.Select(sel)
	if err != nil {
		writeError(w, "select", err)
		return
	}
	writeJSON(w, http.StatusOK, format)
}

// ClearSelection handles DELETE /api/session/selection.
func (h *Handler) ClearSelection(w http.ResponseWriter, _ *http.Request) {
	h.sess.ClearSelection()
	w.WriteHeader(http.StatusNoContent)
}

// ChangeViewMode handles PUT /api/session/mode.
//
//	@Summary		Switch between wysiwyg, markdown and html views
//	@Tags			session
//	@Accept			json
//	@Produce		json
//	@Param			body	body		ViewModeRequest	true	"Target mode"
//	@Success		200		{object}	ContentResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/session/mode [put]
func (h *Handler) ChangeViewMode(w http.ResponseWriter, r *http.Request) {
	var req ViewModeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	mode, err := document.ParseViewMode(req.Mode)
	if err != nil {
		writeError(w, "change view mode", err)
		return
	}
	content, err := h.sess.ChangeViewMode(r.Context(), mode)
	if err != nil {
		writeError(w, "change view mode", err)
		return
	}
	writeJSON(w, http.StatusOK, ContentResponse{Content: content})
}

// Format handles GET /api/session/format.
func (h *Handler) Format(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.sess.Format())
}

// ClearFormatting handles POST /api/session/format/clear.
func (h *Handler) ClearFormatting(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.sess.ClearFormatting())
}

// Settled handles POST /api/session/settled, sent once native input has
// settled.
func (h *Handler) Settled(w http.ResponseWriter, r *http.Request) {
	if err := h.sess.Settled(r.Context()); err != nil {
		writeError(w, "settled", err)
		return
	}
	writeJSON(w, http.StatusOK, ContentResponse{Content: h.sess.State().Content})
}

// SelectImage handles POST /api/session/objects/image.
func (h *Handler) SelectImage(w http.ResponseWriter, r *http.Request) {
	var req PositionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.sess.SelectImage(req.Path); err != nil {
		writeError(w, "select image", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SelectMath handles POST /api/session/objects/math.
func (h *Handler) SelectMath(w http.ResponseWriter, r *http.Request) {
	var req PositionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.sess.SelectMath(req.Path); err != nil {
		writeError(w, "select math", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ClearObjectSelection handles DELETE /api/session/objects.
func (h *Handler) ClearObjectSelection(w http.ResponseWriter, _ *http.Request) {
	h.sess.ClearObjectSelection()
	w.WriteHeader(http.StatusNoContent)
}

// DeleteSelected handles DELETE /api/session/objects/selected.
func (h *Handler) DeleteSelected(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, OKResponse{OK: h.sess.DeleteSelected()})
}

// InsertParagraph handles POST /api/session/objects/paragraph: a new
// paragraph after the selected object.
func (h *Handler) InsertParagraph(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, OKResponse{OK: h.sess.InsertParagraphAfterSelected()})
}

// Resize handles POST /api/session/resize.
//
//	@Summary		Drag an image resize handle and commit the new size
//	@Tags			session
//	@Accept			json
//	@Produce		json
//	@Param			body	body		ResizeRequest	true	"Image path, corner and drag delta"
//	@Success		200		{object}	ResizeResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/session/resize [post]
func (h *Handler) Resize(w http.ResponseWriter, r *http.Request) {
	var req ResizeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	width, height, err := h.sess.Resize(req.Path, req.Corner, req.DX, req.DY)
	if err != nil {
		writeError(w, "resize", err)
		return
	}
	writeJSON(w, http.StatusOK, ResizeResponse{Width: width, Height: height})
}

// Save handles POST /api/session/save.
//
//	@Summary		Save the document as a package in the workspace
//	@Tags			session
//	@Accept			json
//	@Produce		json
//	@Param			body	body		SaveRequest	false	"Package name; empty saves the open package"
//	@Success		200		{object}	session.SaveResult
//	@Failure		409		{object}	unresolvedResponse
//	@Security		BearerAuth
//	@Router			/session/save [post]
func (h *Handler) Save(w http.ResponseWriter, r *http.Request) {
	var req SaveRequest
	if r.ContentLength != 0 && !decodeJSON(w, r, &req) {
		return
	}
	res, err := h.sess.Save(r.Context(), req.Name)
	if err != nil {
		writeError(w, "save", err)
		return
	}
	if err := h.docs.IndexPackage(res.Name); err != nil {
		slog.Warn("index saved package failed", slog.String("name", res.Name), slog.String("error", err.Error()))
	}
	writeJSON(w, http.StatusOK, res)
}

// Open handles POST /api/session/open.
func (h *Handler) Open(w http.ResponseWriter, r *http.Request) {
	var req SaveRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("name is required"))
		return
	}
	res, err := h.sess.Open(r.Context(), req.Name)
	if err != nil {
		writeError(w, "open", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// SpeechStatus handles GET /api/session/speech.
func (h *Handler) SpeechStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.sess.Speech())
}

// StartSpeech handles POST /api/session/speech/start. The response is the
// utterance for the host speech engine.
func (h *Handler) StartSpeech(w http.ResponseWriter, _ *http.Request) {
	u, ok := h.sess.StartSpeech()
	if !ok {
		writeJSON(w, http.StatusConflict, errorBody("nothing to read"))
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// SpeechBoundary handles POST /api/session/speech/boundary. It answers 204
// when the boundary could not be highlighted.
func (h *Handler) SpeechBoundary(w http.ResponseWriter, r *http.Request) {
	var ev speech.BoundaryEvent
	if !decodeJSON(w, r, &ev) {
		return
	}
	hl, ok := h.sess.SpeechBoundary(ev)
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, hl)
}

// SpeechControl handles POST /api/session/speech/{action}: pause, resume,
// cancel or end.
func (h *Handler) SpeechControl(action string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		switch action {
		case "pause":
			h.sess.PauseSpeech()
		case "resume":
			h.sess.ResumeSpeech()
		case "cancel":
			h.sess.CancelSpeech()
		case "end":
			h.sess.EndSpeech()
		}
		writeJSON(w, http.StatusOK, h.sess.Speech())
	}
}
