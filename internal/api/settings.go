package api

import (
	"errors"
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/dysedit/internal/settings"
)

// GetSettings handles GET /api/settings.
func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	t, err := settings.Load(r.Context(), h.kv)
	if err != nil {
		writeError(w, "load settings", err)
		return
	}
	writeJSON(w, http.StatusOK, themeResponse(t))
}

// PutSettings handles PUT /api/settings. The new voice applies to the next
// utterance.
//
//	@Summary		Store the display and voice preferences
//	@Tags			settings
//	@Accept			json
//	@Produce		json
//	@Param			body	body		settings.Theme	true	"Theme"
//	@Success		200		{object}	map[string]any
//	@Failure		422		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/settings [put]
func (h *Handler) PutSettings(w http.ResponseWriter, r *http.Request) {
	t := settings.Default()
	if !decodeJSON(w, r, &t) {
		return
	}
	h.saveTheme(w, r, t)
}

// ApplyPreset handles POST /api/settings/preset.
func (h *Handler) ApplyPreset(w http.ResponseWriter, r *http.Request) {
	var req PresetRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	t, err := settings.Load(r.Context(), h.kv)
	if err != nil {
		writeError(w, "load settings", err)
		return
	}
	if err := t.ApplyPreset(req.Preset); err != nil {
		writeError(w, "apply preset", err)
		return
	}
	h.saveTheme(w, r, t)
}

// Choices handles GET /api/settings/choices.
func (h *Handler) Choices(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"backgrounds": settings.BackgroundChoices,
		"texts":       settings.TextChoices,
		"fonts":       settings.FontChoices,
		"presets":     settings.Presets,
	})
}

func (h *Handler) saveTheme(w http.ResponseWriter, r *http.Request, t settings.Theme) {
	if err := settings.Save(r.Context(), h.kv, t); err != nil {
		var verrs validation.Errors
		if errors.As(err, &verrs) {
			writeJSON(w, http.StatusUnprocessableEntity, errorBody(verrs.Error()))
			return
		}
		writeError(w, "save settings", err)
		return
	}
	h.sess.SetVoice(t.Voice())
	writeJSON(w, http.StatusOK, themeResponse(t))
}

func themeResponse(t settings.Theme) map[string]any {
	return map[string]any{
		"theme":     t,
		"font":      t.FontStack(),
		"variables": t.Variables(),
	}
}
