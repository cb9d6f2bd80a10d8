// Package session owns one open document: the canonical content, the live
// surface mirroring it, the session handle table and speech playback. All
// operations are serialized on the session mutex and run in arrival order.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/net/html"

	"github.com/starford/dysedit/internal/apperr"
	"github.com/starford/dysedit/internal/assetstore"
	"github.com/starford/dysedit/internal/document"
	"github.com/starford/dysedit/internal/dom"
	"github.com/starford/dysedit/internal/models"
	"github.com/starford/dysedit/internal/speech"
	"github.com/starford/dysedit/internal/surface"
)

const snapshotKey = "snapshot"

// Assets is the asset store a session persists images and local state in.
type Assets interface {
	surface.AssetStore
	Load(ctx context.Context, id string) (assetstore.Payload, error)
	Prune(ctx context.Context, keep map[string]struct{}) (int, error)
	RequestDurability(ctx context.Context) bool
	Get(ctx context.Context, key string, v any) error
	Put(ctx context.Context, key string, v any) error
}

// Workspace stores document packages.
type Workspace interface {
	ReadPackage(name string) (models.Package, error)
	WritePackage(p models.Package) error
	AvailableName(base string) string
}

// Config holds the editor tunables.
type Config struct {
	PushPolicy        surface.PushPolicy
	MaxImageHeight    int
	ClearFormatWindow time.Duration
	ResyncWindow      int
	TrailDuration     time.Duration
	MaxAssetBytes     int64
	Layout            speech.Layout
}

// DefaultConfig returns the stock editor tunables.
func DefaultConfig() Config {
	return Config{
		PushPolicy:        surface.PushReplay,
		MaxImageHeight:    300,
		ClearFormatWindow: 300 * time.Millisecond,
		ResyncWindow:      speech.DefaultResyncWindow,
		TrailDuration:     speech.DefaultTrailDuration,
		MaxAssetBytes:     20 << 20,
		Layout:            speech.DefaultGrid,
	}
}

// Snapshot is the last-good content kept in local state between runs.
type Snapshot struct {
	Content  string            `json:"content"`
	ViewMode document.ViewMode `json:"view_mode"`
	Name     string            `json:"name,omitempty"`
	SavedAt  time.Time         `json:"saved_at"`
}

// State is a point-in-time view of the session.
type State struct {
	Name    string                  `json:"name"`
	Mode    document.ViewMode       `json:"mode"`
	Content string                  `json:"content"`
	Surface string                  `json:"surface"`
	Format  document.FormatSnapshot `json:"format"`
	Speech  speech.PlayState        `json:"speech"`
}

// Selection is a native selection expressed as node paths from the surface
// root. A nil EndPath collapses the selection onto the start.
type Selection struct {
	StartPath   dom.Path `json:"start_path"`
	StartOffset int      `json:"start_offset"`
	EndPath     dom.Path `json:"end_path,omitempty"`
	EndOffset   int      `json:"end_offset,omitempty"`
}

// Session is one open document.
type Session struct {
	mu sync.Mutex

	cfg       Config
	doc       *document.Controller
	surf      *surface.Surface
	handles   *assetstore.HandleTable
	assets    Assets
	workspace Workspace
	player    *speech.Player
	voice     speech.Voice

	name     string
	files    map[string]string
	savedSum string
	// onReplay runs when the surface applies a deferred external change.
	onReplay func()

	newID  func() string
	now    func() time.Time
	logger *slog.Logger
}

// Option configures a Session.
type Option func(*Session)

// WithConfig sets the editor tunables.
func WithConfig(cfg Config) Option {
	return func(s *Session) { s.cfg = cfg }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// WithIDGenerator overrides image identifier generation.
func WithIDGenerator(fn func() string) Option {
	return func(s *Session) { s.newID = fn }
}

// New returns an empty session in wysiwyg mode. workspace may be nil when
// packages are not used.
func New(assets Assets, workspace Workspace, opts ...Option) *Session {
	s := &Session{
		cfg:       DefaultConfig(),
		handles:   assetstore.NewHandleTable(),
		assets:    assets,
		workspace: workspace,
		voice:     speech.Voice{Rate: 1, Pitch: 1},
		files:     map[string]string{},
		now:       time.Now,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.cfg.Layout == nil {
		s.cfg.Layout = speech.DefaultGrid
	}

	surfOpts := []surface.Option{
		surface.WithPushPolicy(s.cfg.PushPolicy),
		surface.WithMaxImageHeight(s.cfg.MaxImageHeight),
		surface.WithLogger(s.logger),
	}
	if s.newID != nil {
		surfOpts = append(surfOpts, surface.WithIDGenerator(s.newID))
	}
	s.surf = surface.New(assets, s.handles, surfOpts...)
	s.doc = document.NewController(
		document.WithClearWindow(s.cfg.ClearFormatWindow),
		document.WithClock(s.now),
		document.WithLogger(s.logger),
	)
	s.player = speech.NewPlayer(s.speechRoot,
		speech.WithLayout(s.cfg.Layout),
		speech.WithTrail(s.cfg.TrailDuration, s.now),
		speech.WithWindow(s.cfg.ResyncWindow),
		speech.WithPlayerLogger(s.logger),
	)
	s.doc.Subscribe(func(ch document.Change) { s.persistSnapshot(ch.Content, ch.Mode) })
	return s
}

// Subscribe registers fn for content and view mode changes. fn runs while
// the session is locked and must not call back into it.
func (s *Session) Subscribe(fn func(document.Change)) {
	s.doc.Subscribe(fn)
}

// Load requests durable storage and restores the last snapshot, if any.
// Images in the restored content get fresh handles.
func (s *Session) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.assets.RequestDurability(ctx) {
		s.logger.Warn("session: durable storage not granted")
	}

	var snap Snapshot
	if err := s.assets.Get(ctx, snapshotKey, &snap); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("session: load snapshot: %w", err)
	}
	mode, err := document.ParseViewMode(string(snap.ViewMode))
	if err != nil {
		mode = document.ModeWYSIWYG
	}
	s.name = snap.Name
	s.doc.Restore(snap.Content, mode)
	if mode != document.ModeMarkdown {
		s.show(snap.Content)
		s.resolveImages(ctx)
	}
	s.logger.Info("session: snapshot restored",
		slog.String("name", snap.Name),
		slog.String("mode", string(mode)),
		slog.Time("saved_at", snap.SavedAt))
	return nil
}

func (s *Session) persistSnapshot(content string, mode document.ViewMode) {
	snap := Snapshot{Content: content, ViewMode: mode, Name: s.name, SavedAt: s.now().UTC()}
	if err := s.assets.Put(context.Background(), snapshotKey, snap); err != nil {
		s.logger.Warn("session: snapshot not saved", slog.String("error", err.Error()))
	}
}

// State returns the current session state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	content, mode := s.doc.State()
	return State{
		Name:    s.name,
		Mode:    mode,
		Content: content,
		Surface: s.surf.State().String(),
		Format:  s.doc.Format(),
		Speech:  s.player.State(),
	}
}

// Name returns the open package name, empty for an unsaved document.
func (s *Session) Name() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.name
}

// Handle returns the payload shown through a session handle.
func (s *Session) Handle(handle string) (assetstore.Payload, bool) {
	return s.handles.Lookup(handle)
}

// pull propagates surface changes into the controller.
func (s *Session) pull() {
	if s.doc.Mode() == document.ModeMarkdown {
		return
	}
	if c, changed := s.surf.Pull(); changed {
		s.doc.SetContent(c)
	}
}

// transition runs a surface state change and, when it released a deferred
// push, brings the controller in line with the replayed tree.
func (s *Session) transition(fn func()) {
	pending := s.surf.State() == surface.ExternalPushPending
	fn()
	if pending && s.surf.State() == surface.Idle {
		s.doc.SetContent(s.surf.Serialize())
		if replay := s.onReplay; replay != nil {
			s.onReplay = nil
			replay()
		}
	}
}

// release applies a deferred push before the surface is hidden.
func (s *Session) release() {
	if s.surf.State() == surface.ExternalPushPending {
		s.transition(s.surf.Blur)
	}
}

// show replaces the surface past any user edit and adopts its serialization.
// A push still deferred is discarded with the old tree.
func (s *Session) show(content string) {
	s.onReplay = nil
	s.surf.ForcePush(content)
	s.doc.SetContent(s.surf.Serialize())
}

func (s *Session) resolveImages(ctx context.Context) {
	if err := s.surf.Rehydrate(ctx); err != nil {
		s.logger.Warn("session: some images could not be restored", slog.String("error", err.Error()))
	}
	if err := s.surf.Migrate(ctx); err != nil {
		s.logger.Warn("session: some images could not be persisted", slog.String("error", err.Error()))
	}
	s.pull()
}

func (s *Session) requireSurface() error {
	if s.doc.Mode() == document.ModeMarkdown {
		return fmt.Errorf("session: markdown view has no surface: %w", apperr.ErrWrongMode)
	}
	return nil
}

func (s *Session) resolve(p dom.Path) (*html.Node, error) {
	n, err := p.Resolve(s.surf.Root())
	if err != nil {
		return nil, fmt.Errorf("session: %w: %w", apperr.ErrNotFound, err)
	}
	return n, nil
}
