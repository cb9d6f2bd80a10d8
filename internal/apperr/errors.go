// Package apperr holds the error taxonomy shared by the editor runtime.
package apperr

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrAlreadyExists   = errors.New("already exists")
	ErrInvalidViewMode = errors.New("invalid view mode")
	ErrMapping         = errors.New("speech position mapping failed")
	ErrTooLarge        = errors.New("payload too large")
	ErrUnsupported     = errors.New("unsupported media type")
	ErrWrongMode       = errors.New("operation not available in this view mode")
)

// Storage operations reported by StorageError.
const (
	OpRead  = "read"
	OpWrite = "write"
)

// StorageError reports a failed asset store operation.
type StorageError struct {
	Op  string
	ID  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("asset storage %s %s: %v", e.Op, e.ID, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// IsStorageWrite reports whether err is a failed asset write.
func IsStorageWrite(err error) bool {
	var se *StorageError
	return errors.As(err, &se) && se.Op == OpWrite
}

// IsStorageRead reports whether err is a failed asset read.
func IsStorageRead(err error) bool {
	var se *StorageError
	return errors.As(err, &se) && se.Op == OpRead
}

// UnresolvedImage identifies an image whose payload cannot be located.
type UnresolvedImage struct {
	Index int    `json:"index"`
	Alt   string `json:"alt"`
	Src   string `json:"src"`
}

// UnresolvedAssetError blocks a save that would drop image payloads.
type UnresolvedAssetError struct {
	Images []UnresolvedImage
}

func (e *UnresolvedAssetError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d image(s) cannot be saved because their data is no longer available:", len(e.Images))
	for _, img := range e.Images {
		alt := img.Alt
		if alt == "" {
			alt = "untitled"
		}
		fmt.Fprintf(&b, " #%d (%s);", img.Index+1, alt)
	}
	b.WriteString(" re-insert or remove these images and save again")
	return b.String()
}
