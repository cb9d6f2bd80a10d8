// Package surface keeps the live editing tree consistent with the canonical
// document string. It arbitrates between user input and external pushes and
// owns the image lifecycle on the tree.
//
// A Surface is not safe for concurrent use; callers serialize access.
package surface

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/net/html"

	"github.com/starford/dysedit/internal/assetstore"
	"github.com/starford/dysedit/internal/dom"
)

// State is the arbitration state between the user and external writers.
type State int

const (
	Idle State = iota
	UserEditing
	ExternalPushPending
)

func (s State) String() string {
	switch s {
	case UserEditing:
		return "user_editing"
	case ExternalPushPending:
		return "external_push_pending"
	default:
		return "idle"
	}
}

// PushPolicy decides what happens to a push that arrives while the user is
// editing.
type PushPolicy string

const (
	// PushReplay queues the latest push and applies it once the user stops
	// editing.
	PushReplay PushPolicy = "replay"
	// PushDrop discards the push.
	PushDrop PushPolicy = "drop"
)

// PushResult reports the outcome of Push.
type PushResult string

const (
	PushUnchanged PushResult = "unchanged"
	PushApplied   PushResult = "applied"
	PushDeferred  PushResult = "deferred"
	PushDropped   PushResult = "dropped"
)

// AssetStore is the part of the asset store the surface uses.
type AssetStore interface {
	Persist(ctx context.Context, id string, p assetstore.Payload) error
	Resolve(ctx context.Context, id string, table *assetstore.HandleTable) (string, error)
}

// Surface is the live editing tree.
type Surface struct {
	root    *html.Node
	state   State
	focused bool
	sel     dom.Range
	pending *string
	policy  PushPolicy

	canonical string

	store          AssetStore
	handles        *assetstore.HandleTable
	maxImageHeight int
	newID          func() string

	selectedImage *html.Node
	selectedMath  *html.Node

	logger *slog.Logger
}

// Option configures a Surface.
type Option func(*Surface)

// WithPushPolicy sets the policy for pushes during user edits.
func WithPushPolicy(p PushPolicy) Option {
	return func(s *Surface) { s.policy = p }
}

// WithMaxImageHeight sets the height above which new images are scaled down.
func WithMaxImageHeight(h int) Option {
	return func(s *Surface) { s.maxImageHeight = h }
}

// WithIDGenerator overrides image identifier generation.
func WithIDGenerator(fn func() string) Option {
	return func(s *Surface) { s.newID = fn }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Surface) { s.logger = l }
}

// New returns an empty surface backed by store and handles.
func New(store AssetStore, handles *assetstore.HandleTable, opts ...Option) *Surface {
	s := &Surface{
		root:           dom.NewElement("div", "class", "editor-content"),
		policy:         PushReplay,
		store:          store,
		handles:        handles,
		maxImageHeight: 300,
		newID:          uuid.NewString,
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Root returns the live tree root.
func (s *Surface) Root() *html.Node { return s.root }

// State returns the arbitration state.
func (s *Surface) State() State { return s.state }

// Selection returns the native selection.
func (s *Surface) Selection() dom.Range { return s.sel }

// Focus records that the surface holds input focus.
func (s *Surface) Focus() {
	s.focused = true
	s.updateState()
}

// Blur records loss of focus. It also drops the native selection.
func (s *Surface) Blur() {
	s.focused = false
	s.sel = dom.Range{}
	s.updateState()
}

// Select sets the native selection, which clears any object selection.
func (s *Surface) Select(r dom.Range) {
	s.ClearObjectSelection()
	s.sel = r
	s.updateState()
}

// ClearSelection drops the native selection.
func (s *Surface) ClearSelection() {
	s.sel = dom.Range{}
	s.updateState()
}

func (s *Surface) editing() bool {
	return s.focused && !s.sel.IsZero()
}

func (s *Surface) updateState() {
	if s.editing() {
		if s.pending != nil {
			s.state = ExternalPushPending
		} else {
			s.state = UserEditing
		}
		return
	}
	if s.pending != nil {
		content := *s.pending
		s.pending = nil
		s.replace(content)
		s.logger.Debug("surface: replayed deferred push")
	}
	s.state = Idle
}

// Push offers canonical content from outside the surface. The tree is only
// replaced when the content differs and the user is not editing.
func (s *Surface) Push(canonical string) PushResult {
	if normalizeCanonical(canonical) == s.Serialize() {
		if s.pending != nil {
			s.pending = nil
			s.updateState()
		}
		return PushUnchanged
	}
	if s.editing() {
		if s.policy == PushDrop {
			s.logger.Debug("surface: push dropped while editing")
			return PushDropped
		}
		s.pending = &canonical
		s.state = ExternalPushPending
		return PushDeferred
	}
	s.replace(canonical)
	return PushApplied
}

// ForcePush blurs the surface and replaces the tree unconditionally. A
// deferred push is discarded, not replayed.
func (s *Surface) ForcePush(canonical string) PushResult {
	s.pending = nil
	s.Blur()
	if normalizeCanonical(canonical) == s.Serialize() {
		return PushUnchanged
	}
	s.replace(canonical)
	return PushApplied
}

func (s *Surface) replace(canonical string) {
	dom.SetInner(s.root, canonical)
	s.selectedImage = nil
	s.selectedMath = nil
	s.sel = dom.Range{}
	s.decorate()
	s.canonical = s.Serialize()
}

// Pull serializes the tree and reports whether it differs from the last
// canonical content the surface emitted or accepted.
func (s *Surface) Pull() (string, bool) {
	cur := s.Serialize()
	if cur == s.canonical {
		return cur, false
	}
	s.canonical = cur
	return cur, true
}

// Edit applies a user mutation to the tree and pulls.
func (s *Surface) Edit(fn func(root *html.Node)) (string, bool) {
	fn(s.root)
	return s.Pull()
}

// ReplaceFromHost installs the tree reported by the host after native input
// and pulls. Object selection is reset; an existing native selection is
// collapsed to the start of the tree until the host reports a new one.
func (s *Surface) ReplaceFromHost(markup string) (string, bool) {
	hadSel := !s.sel.IsZero()
	dom.SetInner(s.root, markup)
	s.selectedImage = nil
	s.selectedMath = nil
	s.sel = dom.Range{}
	if hadSel {
		s.sel = dom.Caret(s.root, 0)
	}
	return s.Pull()
}
