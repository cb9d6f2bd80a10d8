package speech

import (
	"time"

	"github.com/starford/dysedit/internal/dom"
)

// DefaultTrailDuration is how long a previous highlight stays visible.
const DefaultTrailDuration = 800 * time.Millisecond

// Highlight is the word currently being spoken.
type Highlight struct {
	Offset int       `json:"offset"`
	Length int       `json:"length"`
	Word   string    `json:"word"`
	Rect   Rect      `json:"rect"`
	Range  dom.Range `json:"-"`
}

// Mark is a fading trail rectangle.
type Mark struct {
	Rect    Rect      `json:"rect"`
	Expires time.Time `json:"expires"`
}

// Tracker holds the current highlight and the trail of earlier ones.
type Tracker struct {
	current *Highlight
	trail   []Mark
	ttl     time.Duration
	now     func() time.Time
}

// NewTracker returns a tracker whose trail marks live for ttl.
func NewTracker(ttl time.Duration, now func() time.Time) *Tracker {
	if now == nil {
		now = time.Now
	}
	return &Tracker{ttl: ttl, now: now}
}

// Advance makes h current and moves the previous highlight to the trail.
func (t *Tracker) Advance(h Highlight) {
	if t.current != nil {
		t.trail = append(t.trail, Mark{Rect: t.current.Rect, Expires: t.now().Add(t.ttl)})
	}
	t.current = &h
	t.prune()
}

// Current returns the current highlight, or nil.
func (t *Tracker) Current() *Highlight { return t.current }

// Trail returns the marks that have not expired yet.
func (t *Tracker) Trail() []Mark {
	t.prune()
	return append([]Mark(nil), t.trail...)
}

// Clear drops the highlight and the trail.
func (t *Tracker) Clear() {
	t.current = nil
	t.trail = nil
}

func (t *Tracker) prune() {
	now := t.now()
	keep := t.trail[:0]
	for _, m := range t.trail {
		if m.Expires.After(now) {
			keep = append(keep, m)
		}
	}
	t.trail = keep
}
