package document

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/dysedit/internal/apperr"
	"github.com/starford/dysedit/internal/convert"
	"github.com/starford/dysedit/internal/dom"
)

func TestChangeViewMode_Transitions(t *testing.T) {
	c := NewController()
	c.SetContent("<h1>T</h1><ul><li data-type=\"bullet\">a</li></ul>")

	out, err := c.ChangeViewMode(ModeHTML)
	require.NoError(t, err)
	assert.Equal(t, "<h1>T</h1><ul><li>a</li></ul>", out)

	out, err = c.ChangeViewMode(ModeMarkdown)
	require.NoError(t, err)
	assert.Equal(t, "# T\n- a", out)

	out, err = c.ChangeViewMode(ModeWYSIWYG)
	require.NoError(t, err)
	assert.Equal(t, `<h1>T</h1><ul><li data-type="bullet">a</li></ul>`, out)
	assert.Equal(t, ModeWYSIWYG, c.Mode())

	same, err := c.ChangeViewMode(ModeWYSIWYG)
	require.NoError(t, err)
	assert.Equal(t, out, same)
}

func TestChangeViewMode_HTMLToWYSIWYGIsUnchanged(t *testing.T) {
	c := NewController()
	c.Restore("<p>x</p>", ModeHTML)
	out, err := c.ChangeViewMode(ModeWYSIWYG)
	require.NoError(t, err)
	assert.Equal(t, "<p>x</p>", out)
}

func TestChangeViewMode_Invalid(t *testing.T) {
	c := NewController()
	_, err := c.ChangeViewMode("pdf")
	assert.ErrorIs(t, err, apperr.ErrInvalidViewMode)
}

func TestSubscribeNotifiesOnChangeOnly(t *testing.T) {
	c := NewController()
	var got []Change
	c.Subscribe(func(ch Change) { got = append(got, ch) })
	c.SetContent("a")
	c.SetContent("a")
	c.SetContent("b")
	require.Len(t, got, 2)
	assert.Equal(t, "b", got[1].Content)
}

func TestFormatAt_InnermostWins(t *testing.T) {
	root := dom.Parse(`<h2><span style="color: #111111;"><strong><span style="color: rgb(255, 0, 0);"><em>x</em></span></strong></span></h2>`)
	text := root.FirstChild.FirstChild.FirstChild.FirstChild.FirstChild.FirstChild
	require.Equal(t, "x", text.Data)

	f := FormatAt(root, text)
	assert.True(t, f.Bold)
	assert.True(t, f.Italic)
	assert.Equal(t, 2, f.Heading)
	assert.Equal(t, "#ff0000", f.Color)
	assert.Equal(t, convert.ListNone, f.List)
}

func TestFormatAt_Lists(t *testing.T) {
	root := dom.Parse(`<ol style="list-style-type: lower-alpha;"><li>a</li></ol><ol><li>b</li></ol><ul><li>c</li></ul>`)
	assert.Equal(t, convert.ListLetter, FormatAt(root, root.FirstChild.FirstChild.FirstChild).List)
	assert.Equal(t, convert.ListNumber, FormatAt(root, root.FirstChild.NextSibling.FirstChild.FirstChild).List)
	assert.Equal(t, convert.ListBullet, FormatAt(root, root.LastChild.FirstChild.FirstChild).List)
	assert.Equal(t, "#000000", FormatAt(root, root.LastChild).Color)
}

func TestClearFormattingWindow(t *testing.T) {
	now := time.Unix(1000, 0)
	c := NewController(WithClock(func() time.Time { return now }), WithClearWindow(300*time.Millisecond))
	root := dom.Parse(`<p><strong>b</strong></p>`)
	caret := dom.Caret(root.FirstChild.FirstChild.FirstChild, 1)

	assert.True(t, c.UpdateFormatAtCursor(root, caret).Bold)

	c.ClearFormatting()
	now = now.Add(100 * time.Millisecond)
	assert.False(t, c.UpdateFormatAtCursor(root, caret).Bold)

	now = now.Add(time.Second)
	assert.True(t, c.UpdateFormatAtCursor(root, caret).Bold)
}

func TestUpdateFormatAtCursor_ForeignSelectionKeepsSnapshot(t *testing.T) {
	c := NewController()
	root := dom.Parse(`<p><em>i</em></p>`)
	c.UpdateFormatAtCursor(root, dom.Caret(root.FirstChild.FirstChild.FirstChild, 0))

	other := dom.Parse(`<p>x</p>`)
	f := c.UpdateFormatAtCursor(root, dom.Caret(other.FirstChild, 0))
	assert.True(t, f.Italic)
}
