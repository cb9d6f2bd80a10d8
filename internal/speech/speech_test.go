package speech

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	"github.com/starford/dysedit/internal/apperr"
	"github.com/starford/dysedit/internal/dom"
)

func textAt(t *testing.T, r dom.Range) string {
	t.Helper()
	require.Equal(t, html.TextNode, r.StartContainer.Type)
	return string([]rune(r.StartContainer.Data)[r.StartOffset:])
}

func TestWalkCountsImplicitBreaks(t *testing.T) {
	w := NewWalk(dom.Parse("<p>one <strong>two</strong></p><p>three</p><ul><li>a</li><li>b</li></ul>"))
	assert.Equal(t, "one two\nthree\na\nb", w.Text())
	require.Len(t, w.Segments(), 5)
	assert.Equal(t, 8, w.Segments()[2].Start)
}

func TestWalkDoesNotDoubleCountNewlines(t *testing.T) {
	w := NewWalk(dom.Parse("<div>a<br/></div><div>b</div><div>\nc</div>"))
	assert.Equal(t, "a\nb\nc", w.Text())
}

func TestLocate(t *testing.T) {
	root := dom.Parse("<p>ab</p><p>cd</p>")
	w := NewWalk(root)

	pos, err := w.Locate(1)
	require.NoError(t, err)
	assert.Equal(t, "ab", pos.Node.Data)
	assert.Equal(t, 1, pos.Offset)

	pos, err = w.Locate(3)
	require.NoError(t, err)
	assert.Equal(t, "cd", pos.Node.Data)
	assert.Equal(t, 0, pos.Offset)

	pos, err = w.Locate(5)
	require.NoError(t, err)
	assert.Equal(t, "cd", pos.Node.Data)
	assert.Equal(t, 2, pos.Offset)

	_, err = w.Locate(-1)
	assert.ErrorIs(t, err, apperr.ErrMapping)
	_, err = w.Locate(9)
	assert.ErrorIs(t, err, apperr.ErrMapping)
}

func TestLocateClampsSmallOvershoot(t *testing.T) {
	w := NewWalk(dom.Parse("<p>ab</p><p><br/><br/>cd</p>"))
	require.Equal(t, "ab\n\ncd", w.Text())

	pos, err := w.Locate(3)
	require.NoError(t, err)
	assert.Equal(t, "cd", pos.Node.Data)
	assert.Equal(t, 0, pos.Offset)
}

func TestResyncRecoversBlockDrift(t *testing.T) {
	const projection = "The quick fox"
	root := dom.Parse("<p>The</p><p> quick fox</p>")
	w := NewWalk(root)

	direct, err := w.Range(10, 3)
	require.NoError(t, err)
	assert.False(t, strings.HasPrefix(textAt(t, direct), "fox"))

	m := &Mapper{Walk: w, Layout: DefaultGrid}
	h, err := m.Map(strings.Index(projection, "fox"), "fox")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(textAt(t, h.Range), "fox"))
	assert.Equal(t, 11, h.Offset)
}

func TestResyncIsCaseAndWhitespaceInsensitive(t *testing.T) {
	w := NewWalk(dom.Parse("<p>Hello   World</p>"))
	i, ok := w.Resync(3, "hello")
	assert.True(t, ok)
	assert.Equal(t, 0, i)

	_, ok = w.Resync(0, "absent")
	assert.False(t, ok)
}

func TestResyncWindow(t *testing.T) {
	w := NewWalk(dom.Parse("<p>aaaaaaaaaaaa target</p>"), WithResyncWindow(3))
	i, ok := w.Resync(0, "target")
	assert.False(t, ok)
	assert.Equal(t, 0, i)
}

func TestGridLayoutBounds(t *testing.T) {
	w := NewWalk(dom.Parse("<p>ab</p><p>cdef</p>"))
	r, err := w.Range(4, 2)
	require.NoError(t, err)

	g := GridLayout{CellWidth: 10, LineHeight: 20}
	rect, err := g.Bounds(w, r)
	require.NoError(t, err)
	assert.Equal(t, Rect{X: 10, Y: 20, Width: 20, Height: 20}, rect)
}

func TestTrackerTrailExpires(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tr := NewTracker(time.Second, func() time.Time { return now })

	tr.Advance(Highlight{Word: "a", Rect: Rect{X: 1}})
	tr.Advance(Highlight{Word: "b", Rect: Rect{X: 2}})
	assert.Equal(t, "b", tr.Current().Word)
	require.Len(t, tr.Trail(), 1)
	assert.Equal(t, 1.0, tr.Trail()[0].Rect.X)

	now = now.Add(2 * time.Second)
	assert.Empty(t, tr.Trail())
}

func TestPlayerLifecycle(t *testing.T) {
	root := dom.Parse("<p>The</p><p> quick fox</p>")
	p := NewPlayer(func() *html.Node { return root })

	_, ok := p.Start("", Voice{})
	assert.False(t, ok)

	u, ok := p.Start("The quick fox", Voice{Rate: 1, Pitch: 1})
	require.True(t, ok)
	assert.Equal(t, "The quick fox", u.Text)
	assert.Equal(t, Speaking, p.State())

	h, ok := p.Boundary(BoundaryEvent{CharIndex: 10})
	require.True(t, ok)
	assert.Equal(t, "fox", h.Word)

	p.Pause()
	assert.Equal(t, Paused, p.State())
	_, ok = p.Boundary(BoundaryEvent{CharIndex: 4})
	assert.False(t, ok)
	p.Resume()
	assert.Equal(t, Speaking, p.State())

	p.Cancel()
	cur, trail := p.Highlight()
	assert.Nil(t, cur)
	assert.Empty(t, trail)
	assert.Equal(t, Stopped, p.State())
}

type panicLayout struct{}

func (panicLayout) Bounds(*Walk, dom.Range) (Rect, error) { panic("boom") }

func TestPlayerSuppressesMappingFailures(t *testing.T) {
	root := dom.Parse("<p>hello</p>")
	p := NewPlayer(func() *html.Node { return root }, WithLayout(panicLayout{}))
	p.Start("hello", Voice{})

	_, ok := p.Boundary(BoundaryEvent{CharIndex: 0})
	assert.False(t, ok)
	_, ok = p.Boundary(BoundaryEvent{CharIndex: 99})
	assert.False(t, ok)
	assert.Equal(t, Speaking, p.State())
}

func TestProjectMarkdown(t *testing.T) {
	md := "# Title\n\nSome **bold** and *it*.\n\n![pic](/api/handles/x){width=10px}\n\n- one\n- two"
	assert.Equal(t, "Title\nSome bold and it.\none\ntwo", ProjectMarkdown(md))
}
