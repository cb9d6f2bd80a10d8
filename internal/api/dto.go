package api

import (
	"github.com/starford/dysedit/internal/docservice"
	"github.com/starford/dysedit/internal/dom"
	"github.com/starford/dysedit/internal/index"
)

// ContentRequest carries document content in the current view mode.
type ContentRequest struct {
	Content string `json:"content" example:"<p>Hello</p>"`
}

// ContentResponse returns the canonical content after an edit.
type ContentResponse struct {
	Content string `json:"content"`
	Result  string `json:"result,omitempty" example:"applied"`
}

// ViewModeRequest switches the view mode.
type ViewModeRequest struct {
	Mode string `json:"mode" example:"markdown" validate:"required"`
}

// PositionRequest addresses a node on the live surface.
type PositionRequest struct {
	Path dom.Path `json:"path"`
}

// ResizeRequest drags a resize handle of an image.
type ResizeRequest struct {
	Path   dom.Path `json:"path" validate:"required"`
	Corner string   `json:"corner" example:"se" validate:"required"`
	DX     float64  `json:"dx"`
	DY     float64  `json:"dy"`
}

// ResizeResponse reports the committed image size.
type ResizeResponse struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// ImageInsertResponse is returned after an image upload.
type ImageInsertResponse struct {
	ID      string `json:"id"`
	Handle  string `json:"handle" example:"/api/handles/01HZX..."`
	Warning string `json:"warning,omitempty"`
}

// SaveRequest names the package to save or open.
type SaveRequest struct {
	Name string `json:"name" example:"notes"`
}

// RenameRequest gives a saved package a new name.
type RenameRequest struct {
	Name string `json:"name" example:"final" validate:"required"`
}

// UpdateDocumentRequest replaces the markdown of a saved package.
type UpdateDocumentRequest struct {
	Markdown string `json:"markdown" example:"# Updated" validate:"required"`
}

// DocumentDetail is the full package response type (aliased from the domain layer).
type DocumentDetail = docservice.DocumentDetail

// DocumentListItem is a lightweight item in a list response (aliased from the domain layer).
type DocumentListItem = docservice.DocumentListItem

// DocumentListResponse wraps paginated package listings.
type DocumentListResponse struct {
	Documents []DocumentListItem `json:"documents" validate:"required"`
	Total     int                `json:"total" example:"42" validate:"required"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []index.SearchResult `json:"results" validate:"required"`
}

// OKResponse reports the boolean outcome of a bridge write.
type OKResponse struct {
	OK bool `json:"ok"`
}

// MarkdownBody carries markdown through the bridge.
type MarkdownBody struct {
	Markdown string `json:"markdown"`
}

// PresetRequest applies a named theme preset.
type PresetRequest struct {
	Preset string `json:"preset" example:"Dark Pro" validate:"required"`
}
