// Package models defines the domain types shared by storage, indexing and
// the transports.
package models

import "time"

// Image is an image file carried inside a document package.
type Image struct {
	Filename string `json:"filename"`
	MIME     string `json:"mime"`
	Data     []byte `json:"data"`
}

// Package is a saved document: its markdown and the images it references
// as images/<filename>.
type Package struct {
	Name     string  `json:"name"`
	Markdown string  `json:"markdown"`
	Images   []Image `json:"images"`
}

// PackageMetadata is a lightweight representation returned by list
// operations. Path is the markdown file relative to the workspace root.
type PackageMetadata struct {
	Name      string    `json:"name"`
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ImageRef is an image reference found in markdown.
type ImageRef struct {
	Alt string `json:"alt"`
	Src string `json:"src"`
	ID  string `json:"id,omitempty"`
}
