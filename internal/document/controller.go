// Package document holds the canonical document string, its view mode and
// the formatting snapshot at the caret.
package document

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/starford/dysedit/internal/apperr"
	"github.com/starford/dysedit/internal/convert"
)

// ViewMode selects how the canonical content is encoded.
type ViewMode string

const (
	ModeWYSIWYG  ViewMode = "wysiwyg"
	ModeMarkdown ViewMode = "markdown"
	ModeHTML     ViewMode = "html"
)

// ParseViewMode validates s as a view mode.
func ParseViewMode(s string) (ViewMode, error) {
	switch m := ViewMode(s); m {
	case ModeWYSIWYG, ModeMarkdown, ModeHTML:
		return m, nil
	}
	return "", fmt.Errorf("document: %q: %w", s, apperr.ErrInvalidViewMode)
}

// Change describes a content or mode update.
type Change struct {
	Content string
	Mode    ViewMode
}

// Controller owns the canonical content. It is safe for concurrent use.
type Controller struct {
	mu      sync.Mutex
	content string
	mode    ViewMode

	format      FormatSnapshot
	clearWindow time.Duration
	clearedAt   time.Time
	now         func() time.Time

	subscribers []func(Change)
	logger      *slog.Logger
}

// Option configures a Controller.
type Option func(*Controller)

// WithClearWindow sets how long a cleared format snapshot is forced.
func WithClearWindow(d time.Duration) Option {
	return func(c *Controller) { c.clearWindow = d }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// NewController returns a controller in wysiwyg mode with empty content.
func NewController(opts ...Option) *Controller {
	c := &Controller{
		mode:        ModeWYSIWYG,
		format:      DefaultFormat(),
		clearWindow: 300 * time.Millisecond,
		now:         time.Now,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Content returns the canonical string.
func (c *Controller) Content() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.content
}

// Mode returns the current view mode.
func (c *Controller) Mode() ViewMode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

// State returns content and mode atomically.
func (c *Controller) State() (string, ViewMode) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.content, c.mode
}

// SetContent replaces the canonical string. Subscribers are notified only
// when the content changes.
func (c *Controller) SetContent(s string) {
	c.mu.Lock()
	if s == c.content {
		c.mu.Unlock()
		return
	}
	c.content = s
	ch := Change{Content: s, Mode: c.mode}
	subs := c.subscribers
	c.mu.Unlock()
	notify(subs, ch)
}

// Restore sets content and mode without conversion.
func (c *Controller) Restore(content string, mode ViewMode) {
	c.mu.Lock()
	c.content = content
	c.mode = mode
	ch := Change{Content: content, Mode: mode}
	subs := c.subscribers
	c.mu.Unlock()
	notify(subs, ch)
}

// ChangeViewMode re-encodes the content for target and returns it.
//
//	wysiwyg  -> markdown  HTML to Markdown
//	html     -> markdown  HTML to Markdown
//	markdown -> wysiwyg   Markdown to HTML
//	markdown -> html      Markdown to HTML
//	wysiwyg  -> html      bookkeeping attributes stripped
//	html     -> wysiwyg   unchanged
func (c *Controller) ChangeViewMode(target ViewMode) (string, error) {
	if _, err := ParseViewMode(string(target)); err != nil {
		return "", err
	}

	c.mu.Lock()
	from := c.mode
	if from == target {
		content := c.content
		c.mu.Unlock()
		return content, nil
	}
	content := Convert(c.content, from, target)
	c.content = content
	c.mode = target
	ch := Change{Content: content, Mode: target}
	subs := c.subscribers
	c.mu.Unlock()

	c.logger.Debug("view mode changed",
		slog.String("from", string(from)),
		slog.String("to", string(target)))
	notify(subs, ch)
	return content, nil
}

// Convert re-encodes content written in from for target.
func Convert(content string, from, target ViewMode) string {
	switch {
	case from == target:
		return content
	case target == ModeMarkdown:
		return convert.ToMarkdown(content)
	case from == ModeMarkdown:
		return convert.ToHTML(content)
	case from == ModeWYSIWYG && target == ModeHTML:
		return convert.StripBookkeeping(content)
	default:
		return content
	}
}

// Subscribe registers fn for change notifications.
func (c *Controller) Subscribe(fn func(Change)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subscribers = append(c.subscribers, fn)
}

func notify(subs []func(Change), ch Change) {
	for _, fn := range subs {
		fn(ch)
	}
}
