package surface

import (
	"errors"
	"math"

	"golang.org/x/net/html"

	"github.com/starford/dysedit/internal/dom"
)

// Corner names a resize handle.
type Corner string

const (
	CornerNW Corner = "nw"
	CornerNE Corner = "ne"
	CornerSW Corner = "sw"
	CornerSE Corner = "se"
)

const minImageWidth = 50

// ParseCorner validates a corner name.
func ParseCorner(s string) (Corner, error) {
	switch c := Corner(s); c {
	case CornerNW, CornerNE, CornerSW, CornerSE:
		return c, nil
	}
	return "", errors.New("surface: unknown resize corner " + s)
}

// Resize is an in-progress drag of an image corner.
type Resize struct {
	s       *Surface
	img     *html.Node
	wrapper *html.Node
	corner  Corner
	startW  float64
	aspect  float64
	width   float64
	height  float64
}

// BeginResize starts dragging corner of img.
func (s *Surface) BeginResize(img *html.Node, corner Corner) (*Resize, error) {
	if !dom.Is(img, "img") || !dom.Contains(s.root, img) {
		return nil, errors.New("surface: resize target is not an image on the surface")
	}
	w, h := s.imageSize(img)
	return &Resize{
		s:       s,
		img:     img,
		wrapper: dom.Closest(img, s.root, isWrapper),
		corner:  corner,
		startW:  w,
		aspect:  w / h,
		width:   w,
		height:  h,
	}, nil
}

// Drag updates the preview size for a pointer displacement from the drag
// start. East corners grow with dx, west corners shrink. Height always
// follows the aspect ratio, so dy is not used.
func (r *Resize) Drag(dx, _ float64) (width, height int) {
	w := r.startW + dx
	if r.corner == CornerNW || r.corner == CornerSW {
		w = r.startW - dx
	}
	r.width = math.Max(minImageWidth, w)
	r.height = r.width / r.aspect
	if r.wrapper != nil {
		dom.SetStyle(r.wrapper, "width", px(r.width))
		dom.SetStyle(r.wrapper, "height", px(r.height))
	}
	return int(math.Round(r.width)), int(math.Round(r.height))
}

// Commit writes the final size onto the image and pulls.
func (r *Resize) Commit() (string, bool) {
	dom.SetAttr(r.img, "width", px(r.width))
	dom.SetAttr(r.img, "height", px(r.height))
	if r.wrapper != nil {
		dom.SetStyle(r.wrapper, "width", px(r.width))
		dom.SetStyle(r.wrapper, "height", px(r.height))
	}
	return r.s.Pull()
}
