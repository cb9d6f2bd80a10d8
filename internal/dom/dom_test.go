package dom

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAndInnerRoundTrip(t *testing.T) {
	root := Parse(`<p>Hello <strong>world</strong></p><div>x</div>`)
	assert.Equal(t, `<p>Hello <strong>world</strong></p><div>x</div>`, Inner(root))
}

func TestClassHelpers(t *testing.T) {
	n := NewElement("div", "class", "a b")
	AddClass(n, "c")
	assert.True(t, HasClass(n, "c"))
	RemoveClass(n, "a")
	RemoveClass(n, "b")
	RemoveClass(n, "c")
	_, ok := LookupAttr(n, "class")
	assert.False(t, ok)
}

func TestStyleHelpers(t *testing.T) {
	n := NewElement("span", "style", "font-weight: bold; color: rgb(255, 0, 16);")
	assert.Equal(t, "#ff0010", ColorOf(n))
	SetStyle(n, "color", "#000000")
	assert.Equal(t, "font-weight: bold; color: #000000;", Attr(n, "style"))
}

func TestClassify(t *testing.T) {
	root := Parse(`<h2>t</h2><ol style="list-style-type: lower-alpha;"><li>a</li></ol><span class="math" data-latex="x">x</span><font color="red">r</font>`)
	h := root.FirstChild
	assert.Equal(t, KindHeading, Classify(h))
	assert.Equal(t, 2, HeadingLevel(h))
	ol := h.NextSibling
	assert.True(t, IsLowerAlpha(ol))
	assert.Equal(t, KindListItem, Classify(ol.FirstChild))
	assert.Equal(t, KindMath, Classify(ol.NextSibling))
	assert.Equal(t, KindColor, Classify(ol.NextSibling.NextSibling))
}

func TestPathRoundTrip(t *testing.T) {
	root := Parse(`<p>a</p><p>b<em>c</em></p>`)
	em := root.LastChild.LastChild
	p := PathOf(root, em)
	assert.Equal(t, Path{1, 1}, p)
	got, err := p.Resolve(root)
	require.NoError(t, err)
	assert.Same(t, em, got)

	_, err = Path{5}.Resolve(root)
	assert.Error(t, err)
}

func TestSplitText(t *testing.T) {
	root := Parse(`<p>héllo</p>`)
	txt := root.FirstChild.FirstChild
	right := SplitText(txt, 2)
	require.NotNil(t, right)
	assert.Equal(t, "hé", txt.Data)
	assert.Equal(t, "llo", right.Data)
	assert.Nil(t, SplitText(right, 3))
}

func TestUnwrap(t *testing.T) {
	root := Parse(`<div class="w"><img src="a"><span>h</span></div>`)
	Unwrap(root.FirstChild)
	assert.Equal(t, `<img src="a"/><span>h</span>`, Inner(root))
}
