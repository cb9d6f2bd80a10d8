package speech

import (
	"errors"
	"fmt"
	"log/slog"
	"time"
	"unicode"

	"golang.org/x/net/html"

	"github.com/starford/dysedit/internal/apperr"
)

// PlayState is the playback state.
type PlayState string

const (
	Stopped  PlayState = "stopped"
	Speaking PlayState = "speaking"
	Paused   PlayState = "paused"
)

// BoundaryEvent is a word boundary reported by the speech engine. CharIndex
// is a rune offset into the utterance text. CharLength may be zero when the
// engine does not report it.
type BoundaryEvent struct {
	CharIndex  int `json:"char_index"`
	CharLength int `json:"char_length"`
}

// Voice holds the utterance parameters forwarded to the speech engine.
type Voice struct {
	Name  string  `json:"name,omitempty"`
	Rate  float64 `json:"rate"`
	Pitch float64 `json:"pitch"`
}

// Utterance is what the speech engine is asked to speak.
type Utterance struct {
	Text  string `json:"text"`
	Voice Voice  `json:"voice"`
}

// Player drives playback state and maps boundary events onto the tree
// returned by root. Mapping failures never stop playback.
type Player struct {
	root    func() *html.Node
	layout  Layout
	tracker *Tracker
	window  int
	logger  *slog.Logger

	state     PlayState
	utterance Utterance
	text      []rune
}

// PlayerOption configures a Player.
type PlayerOption func(*Player)

// WithLayout sets the geometry used for highlight rectangles.
func WithLayout(l Layout) PlayerOption {
	return func(p *Player) { p.layout = l }
}

// WithTrail sets the trail duration and clock.
func WithTrail(ttl time.Duration, now func() time.Time) PlayerOption {
	return func(p *Player) { p.tracker = NewTracker(ttl, now) }
}

// WithWindow sets the resync window.
func WithWindow(n int) PlayerOption {
	return func(p *Player) { p.window = n }
}

// WithPlayerLogger sets the logger.
func WithPlayerLogger(l *slog.Logger) PlayerOption {
	return func(p *Player) { p.logger = l }
}

// NewPlayer returns a stopped player.
func NewPlayer(root func() *html.Node, opts ...PlayerOption) *Player {
	p := &Player{
		root:    root,
		layout:  DefaultGrid,
		tracker: NewTracker(DefaultTrailDuration, nil),
		window:  DefaultResyncWindow,
		logger:  slog.Default(),
		state:   Stopped,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start begins speaking text, cancelling any current utterance. Empty text
// is ignored.
func (p *Player) Start(text string, voice Voice) (Utterance, bool) {
	if text == "" {
		return Utterance{}, false
	}
	p.Cancel()
	p.utterance = Utterance{Text: text, Voice: voice}
	p.text = []rune(text)
	p.state = Speaking
	return p.utterance, true
}

// Boundary maps ev to a highlight. Failures are logged and yield false.
func (p *Player) Boundary(ev BoundaryEvent) (Highlight, bool) {
	if p.state != Speaking {
		return Highlight{}, false
	}
	h, err := p.mapBoundary(ev)
	if err != nil {
		p.logger.Debug("speech: boundary not mapped",
			slog.Int("char_index", ev.CharIndex),
			slog.String("error", err.Error()))
		return Highlight{}, false
	}
	p.tracker.Advance(h)
	return h, true
}

func (p *Player) mapBoundary(ev BoundaryEvent) (h Highlight, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("speech: mapping panic: %v: %w", r, apperr.ErrMapping)
		}
	}()
	word := p.word(ev)
	if word == "" {
		return Highlight{}, fmt.Errorf("speech: no word at %d: %w", ev.CharIndex, apperr.ErrMapping)
	}
	root := p.root()
	if root == nil {
		return Highlight{}, fmt.Errorf("speech: no tree to map onto: %w", apperr.ErrMapping)
	}
	w := NewWalk(root, WithResyncWindow(p.window))
	m := &Mapper{Walk: w, Layout: p.layout}
	h, err = m.Map(ev.CharIndex, word)
	if err != nil && !errors.Is(err, apperr.ErrMapping) {
		err = fmt.Errorf("%w: %w", apperr.ErrMapping, err)
	}
	return h, err
}

func (p *Player) word(ev BoundaryEvent) string {
	if ev.CharIndex < 0 || ev.CharIndex >= len(p.text) {
		return ""
	}
	end := ev.CharIndex + ev.CharLength
	if ev.CharLength <= 0 {
		end = ev.CharIndex
		for end < len(p.text) && !unicode.IsSpace(p.text[end]) {
			end++
		}
	}
	return string(p.text[ev.CharIndex:min(end, len(p.text))])
}

// Pause suspends playback.
func (p *Player) Pause() {
	if p.state == Speaking {
		p.state = Paused
	}
}

// Resume continues paused playback.
func (p *Player) Resume() {
	if p.state == Paused {
		p.state = Speaking
	}
}

// Cancel stops playback and clears the highlight immediately.
func (p *Player) Cancel() {
	p.state = Stopped
	p.utterance = Utterance{}
	p.text = nil
	p.tracker.Clear()
}

// End is reported when the utterance finished.
func (p *Player) End() { p.Cancel() }

// State returns the playback state.
func (p *Player) State() PlayState { return p.state }

// Utterance returns the utterance being spoken.
func (p *Player) Utterance() Utterance { return p.utterance }

// Highlight returns the current highlight and the live trail marks.
func (p *Player) Highlight() (*Highlight, []Mark) {
	return p.tracker.Current(), p.tracker.Trail()
}

// Mapper turns a projection index and the spoken word into a highlight.
type Mapper struct {
	Walk   *Walk
	Layout Layout
}

// Map resynchronizes index against word, locates the range and computes its
// rectangle.
func (m *Mapper) Map(index int, word string) (Highlight, error) {
	i, _ := m.Walk.Resync(index, word)
	length := len([]rune(word))
	r, err := m.Walk.Range(i, length)
	if err != nil {
		return Highlight{}, err
	}
	rect, err := m.Layout.Bounds(m.Walk, r)
	if err != nil {
		return Highlight{}, err
	}
	return Highlight{Offset: i, Length: length, Word: word, Rect: rect, Range: r}, nil
}
