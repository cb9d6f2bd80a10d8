package surface

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"go.uber.org/multierr"
	"golang.org/x/net/html"

	"github.com/starford/dysedit/internal/assetstore"
	"github.com/starford/dysedit/internal/dom"
)

const (
	defaultImageWidth  = 300
	defaultImageHeight = 200
)

// InsertImage places a new image at the caret r. The image gets a fresh
// identifier and is shown through a session handle before the payload is
// persisted, so a storage failure leaves it visible. The returned error only
// reports that failure.
func (s *Surface) InsertImage(ctx context.Context, p assetstore.Payload, r dom.Range) (id, handle string, err error) {
	id = s.newID()
	handle = s.handles.Issue(p)

	img := dom.NewElement("img", "src", handle, "alt", p.Name, "data-image-id", id)
	s.insertAt(img, r)
	s.isolate(img)
	s.decorate()

	if err := s.store.Persist(ctx, id, p); err != nil {
		s.logger.Warn("surface: persist image failed",
			slog.String("id", id),
			slog.String("error", err.Error()))
		return id, handle, fmt.Errorf("surface: insert image: %w", err)
	}
	return id, handle, nil
}

func (s *Surface) insertAt(n *html.Node, r dom.Range) {
	c := r.StartContainer
	if c == nil || !dom.Contains(s.root, c) {
		s.root.AppendChild(n)
		return
	}
	if c.Type == html.TextNode {
		right := dom.SplitText(c, r.StartOffset)
		if right != nil {
			c.Parent.InsertBefore(n, right)
		} else {
			dom.InsertAfter(c, n)
		}
		return
	}
	ref := c.FirstChild
	for i := 0; ref != nil && i < r.StartOffset; i++ {
		ref = ref.NextSibling
	}
	c.InsertBefore(n, ref)
}

// Settled processes content that native paste placed in the tree: pasted
// data URIs are persisted under new identifiers, images still lacking one
// are migrated, every image is moved onto its own line and decorated.
func (s *Surface) Settled(ctx context.Context) error {
	var errs error
	for _, img := range s.images() {
		src := dom.Attr(img, "src")
		if !strings.HasPrefix(src, "data:") {
			continue
		}
		errs = multierr.Append(errs, s.adoptDataImage(ctx, img, src))
	}
	errs = multierr.Append(errs, s.Migrate(ctx))

	for _, img := range s.images() {
		s.isolate(img)
	}
	s.liftImageLinesOutOfHeadings()
	s.decorate()
	return errs
}

func (s *Surface) adoptDataImage(ctx context.Context, img *html.Node, src string) error {
	p, err := assetstore.DecodeDataURI(src)
	if err != nil {
		s.logger.Warn("surface: pasted image undecodable", slog.String("error", err.Error()))
		return err
	}
	p.Name = "pasted-screenshot-" + strconv.FormatInt(time.Now().UnixMilli(), 10) + assetstore.Extension(p.MIME)

	id := s.newID()
	dom.SetAttr(img, "src", s.handles.Issue(p))
	dom.SetAttr(img, "data-image-id", id)
	if dom.Attr(img, "alt") == "" {
		dom.SetAttr(img, "alt", p.Name)
	}
	if err := s.store.Persist(ctx, id, p); err != nil {
		s.logger.Warn("surface: persist pasted image failed", slog.String("id", id), slog.String("error", err.Error()))
		return fmt.Errorf("surface: pasted image %s: %w", id, err)
	}
	return nil
}

// Rehydrate resolves every identified image to a fresh session handle. An
// image whose payload cannot be resolved keeps its identifier and stays
// broken; all failures are returned together.
func (s *Surface) Rehydrate(ctx context.Context) error {
	var errs error
	for _, img := range s.images() {
		id := dom.Attr(img, "data-image-id")
		if id == "" {
			continue
		}
		handle, err := s.store.Resolve(ctx, id, s.handles)
		if err != nil {
			s.logger.Warn("surface: rehydrate failed", slog.String("id", id), slog.String("error", err.Error()))
			errs = multierr.Append(errs, fmt.Errorf("surface: rehydrate %s: %w", id, err))
			continue
		}
		dom.SetAttr(img, "src", handle)
	}
	return errs
}

// Migrate persists images shown through a session handle that have no
// identifier yet and tags them with one.
func (s *Surface) Migrate(ctx context.Context) error {
	var errs error
	for _, img := range s.images() {
		src := dom.Attr(img, "src")
		if dom.Attr(img, "data-image-id") != "" || !assetstore.IsHandle(src) {
			continue
		}
		p, ok := s.handles.Lookup(src)
		if !ok {
			s.logger.Warn("surface: migrate skipped, handle expired", slog.String("src", src))
			continue
		}
		id := s.newID()
		if err := s.store.Persist(ctx, id, p); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("surface: migrate %s: %w", src, err))
			continue
		}
		dom.SetAttr(img, "data-image-id", id)
	}
	return errs
}

func (s *Surface) images() []*html.Node {
	return dom.FindAll(s.root, func(n *html.Node) bool { return dom.Is(n, "img") })
}

// decorate wraps undecorated images in resize wrappers with four corner
// handles, scaling down images taller than the configured maximum, and
// marks math nodes as click targets.
func (s *Surface) decorate() {
	for _, img := range s.images() {
		if dom.Attr(img, "data-resizable") == "true" {
			continue
		}
		w, h := s.imageSize(img)
		if s.maxImageHeight > 0 && h > float64(s.maxImageHeight) {
			ratio := w / h
			h = float64(s.maxImageHeight)
			w = math.Round(h * ratio)
			dom.SetAttr(img, "width", px(w))
			dom.SetAttr(img, "height", px(h))
		}

		wrapper := dom.NewElement("span", "class", classWrapper, "contenteditable", "false")
		dom.SetStyle(wrapper, "width", px(w))
		dom.SetStyle(wrapper, "height", px(h))
		img.Parent.InsertBefore(wrapper, img)
		dom.Detach(img)
		wrapper.AppendChild(img)
		for _, c := range []Corner{CornerNW, CornerNE, CornerSW, CornerSE} {
			wrapper.AppendChild(dom.NewElement("span", "class", classHandle+" "+string(c), "data-corner", string(c)))
		}
		dom.SetAttr(img, "data-resizable", "true")
	}
	dom.Walk(s.root, func(n *html.Node) bool {
		if dom.Classify(n) == dom.KindMath {
			dom.SetAttr(n, "contenteditable", "false")
			return false
		}
		return true
	})
}

// imageSize returns the starting size of img: explicit attributes, then
// inline style, then the natural size of its payload, then a default.
func (s *Surface) imageSize(img *html.Node) (float64, float64) {
	if w, h, ok := pxPair(dom.Attr(img, "width"), dom.Attr(img, "height")); ok {
		return w, h
	}
	if w, h, ok := pxPair(dom.StyleValue(img, "width"), dom.StyleValue(img, "height")); ok {
		return w, h
	}
	if p, ok := s.handles.Lookup(dom.Attr(img, "src")); ok {
		if w, h, ok := assetstore.Dimensions(p); ok && w > 0 && h > 0 {
			return float64(w), float64(h)
		}
	}
	return defaultImageWidth, defaultImageHeight
}

func pxPair(w, h string) (float64, float64, bool) {
	wv, okW := parsePx(w)
	hv, okH := parsePx(h)
	return wv, hv, okW && okH && wv > 0 && hv > 0
}

func parsePx(v string) (float64, bool) {
	v = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(v), "px"))
	if v == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(v, 64)
	return f, err == nil
}

func px(v float64) string {
	return strconv.Itoa(int(math.Round(v))) + "px"
}
