package assetstore

import (
	"strings"
	"sync"

	"github.com/oklog/ulid/v2"
)

// HandlePrefix starts every session display handle.
const HandlePrefix = "/api/handles/"

// HandleTable maps session display handles to the payloads they show.
// Entries live for the whole session so unsaved images can still be
// written out at save time.
type HandleTable struct {
	mu      sync.RWMutex
	entries map[string]Payload
}

// NewHandleTable returns an empty table.
func NewHandleTable() *HandleTable {
	return &HandleTable{entries: make(map[string]Payload)}
}

// Issue registers p and returns its new handle.
func (t *HandleTable) Issue(p Payload) string {
	if p.MIME == "" {
		p.MIME = DetectMIME(p.Data, p.Name)
	}
	h := HandlePrefix + ulid.Make().String()
	t.mu.Lock()
	t.entries[h] = p
	t.mu.Unlock()
	return h
}

// Lookup returns the payload behind handle.
func (t *HandleTable) Lookup(handle string) (Payload, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	p, ok := t.entries[handle]
	return p, ok
}

// Evict forgets handle.
func (t *HandleTable) Evict(handle string) {
	t.mu.Lock()
	delete(t.entries, handle)
	t.mu.Unlock()
}

// Len returns the number of live handles.
func (t *HandleTable) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}

// IsHandle reports whether src looks like a session display handle.
func IsHandle(src string) bool {
	return strings.HasPrefix(src, HandlePrefix)
}
