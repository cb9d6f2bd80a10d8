package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"path/filepath"
	"strings"

	"go.uber.org/multierr"
	"golang.org/x/net/html"

	"github.com/starford/dysedit/internal/assetstore"
	"github.com/starford/dysedit/internal/checksum"
	"github.com/starford/dysedit/internal/convert"
	"github.com/starford/dysedit/internal/document"
	"github.com/starford/dysedit/internal/dom"
	"github.com/starford/dysedit/internal/models"
	"github.com/starford/dysedit/internal/storage"
	"github.com/starford/dysedit/internal/surface"
)

var errNoWorkspace = errors.New("session: no workspace configured")

// SaveResult describes a written package.
type SaveResult struct {
	Name   string `json:"name"`
	Path   string `json:"path"`
	Images int    `json:"images"`
}

// Save writes the document as package name. Saving under the open package
// name overwrites it; any other name that is taken becomes "name (n)". An
// empty name saves the open package. The save is refused with
// *apperr.UnresolvedAssetError when an image payload is gone.
func (s *Session) Save(ctx context.Context, name string) (SaveResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.workspace == nil {
		return SaveResult{}, errNoWorkspace
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = s.name
	}
	if name == "" {
		return SaveResult{}, errors.New("session: save: package name is required")
	}

	s.pull()
	markup := s.canonicalHTML()
	if err := s.validate(markup); err != nil {
		return SaveResult{}, err
	}

	overwrite := name == s.name
	if !overwrite {
		name = s.workspace.AvailableName(name)
	}
	pkg, files := s.export(ctx, markup, name, overwrite)
	if err := s.workspace.WritePackage(pkg); err != nil {
		return SaveResult{}, fmt.Errorf("session: save %s: %w", name, err)
	}

	s.name = name
	s.adoptPackage(pkg, files)
	content, mode := s.doc.State()
	s.persistSnapshot(content, mode)
	s.prune(ctx, markup)

	s.logger.Info("session: saved",
		slog.String("name", name),
		slog.Int("images", len(pkg.Images)),
		slog.String("checksum", checksum.Short([]byte(pkg.Markdown))))
	return SaveResult{Name: name, Path: storage.MarkdownPath(name), Images: len(pkg.Images)}, nil
}

// Open loads package name into the session in wysiwyg view.
func (s *Session) Open(ctx context.Context, name string) (SaveResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.workspace == nil {
		return SaveResult{}, errNoWorkspace
	}
	pkg, err := s.workspace.ReadPackage(name)
	if err != nil {
		return SaveResult{}, fmt.Errorf("session: open %s: %w", name, err)
	}
	markup, files, err := s.importPackage(ctx, pkg)
	if err != nil {
		s.logger.Warn("session: some package images not persisted", slog.String("name", name), slog.String("error", err.Error()))
	}

	s.player.Cancel()
	s.name = pkg.Name
	s.adoptPackage(pkg, files)
	s.doc.Restore(markup, document.ModeWYSIWYG)
	s.show(markup)
	if err := s.surf.Migrate(ctx); err != nil {
		s.logger.Warn("session: some images could not be persisted", slog.String("error", err.Error()))
	}
	s.pull()

	s.logger.Info("session: opened",
		slog.String("name", pkg.Name),
		slog.Int("images", len(pkg.Images)),
		slog.String("checksum", checksum.Short([]byte(pkg.Markdown))))
	return SaveResult{Name: pkg.Name, Path: storage.MarkdownPath(pkg.Name), Images: len(pkg.Images)}, nil
}

// Renamed follows a package rename made outside the session. Saving after
// it writes under newName.
func (s *Session) Renamed(name, newName string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if name == "" || name != s.name {
		return
	}
	s.name = newName
	content, mode := s.doc.State()
	s.persistSnapshot(content, mode)
}

// ExternalChange is called when package name changed on disk. When it is the
// open package and its markdown differs from what the session last read or
// wrote, the new content is pushed to the surface.
func (s *Session) ExternalChange(ctx context.Context, name string) (surface.PushResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.workspace == nil || name == "" || name != s.name {
		return surface.PushUnchanged, nil
	}
	pkg, err := s.workspace.ReadPackage(name)
	if err != nil {
		return surface.PushUnchanged, fmt.Errorf("session: reload %s: %w", name, err)
	}
	if checksum.Sum([]byte(pkg.Markdown)) == s.savedSum {
		return surface.PushUnchanged, nil
	}
	markup, files, err := s.importPackage(ctx, pkg)
	if err != nil {
		s.logger.Warn("session: some package images not persisted", slog.String("name", name), slog.String("error", err.Error()))
	}

	if s.doc.Mode() == document.ModeMarkdown {
		s.adoptPackage(pkg, files)
		s.doc.SetContent(convert.ToMarkdown(markup))
		return surface.PushApplied, nil
	}
	s.onReplay = nil
	res := s.surf.Push(markup)
	switch res {
	case surface.PushApplied:
		s.adoptPackage(pkg, files)
		s.doc.SetContent(s.surf.Serialize())
		if err := s.surf.Migrate(ctx); err != nil {
			s.logger.Warn("session: some images could not be persisted", slog.String("error", err.Error()))
		}
		s.pull()
	case surface.PushUnchanged:
		s.adoptPackage(pkg, files)
	case surface.PushDeferred:
		// Adopted only once the content lands.
		s.onReplay = func() {
			s.adoptPackage(pkg, files)
			if err := s.surf.Migrate(context.Background()); err != nil {
				s.logger.Warn("session: some images could not be persisted", slog.String("error", err.Error()))
			}
			s.pull()
		}
	}
	s.logger.Debug("session: external change", slog.String("name", name), slog.String("result", string(res)))
	return res, nil
}

// Markdown returns the document in the markdown dialect.
func (s *Session) Markdown() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	content, mode := s.doc.State()
	if mode == document.ModeMarkdown {
		return content
	}
	s.pull()
	return convert.ToMarkdown(s.doc.Content())
}

// WriteMarkdown replaces the document with md after cleaning stray
// asterisks. It reports false when images in the new content could not be
// persisted.
func (s *Session) WriteMarkdown(ctx context.Context, md string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	cleaned := convert.CleanAsterisks(md)
	if s.doc.Mode() == document.ModeMarkdown {
		s.doc.SetContent(cleaned)
		return true
	}
	if err := s.replaceDocument(ctx, convert.ToHTML(cleaned)); err != nil {
		s.logger.Warn("session: write markdown", slog.String("error", err.Error()))
		return false
	}
	return true
}

// DocumentData returns the document as a package with its image payloads,
// image references rewritten to package-relative paths.
func (s *Session) DocumentData(ctx context.Context) (models.Package, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pull()
	markup := s.canonicalHTML()
	if err := s.validate(markup); err != nil {
		return models.Package{}, err
	}
	pkg, _ := s.export(ctx, markup, s.name, true)
	return pkg, nil
}

// WriteDocumentData replaces the document with pkg, issuing handles for its
// images. It reports false when images could not be persisted.
func (s *Session) WriteDocumentData(ctx context.Context, pkg models.Package) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	pkg.Markdown = convert.CleanAsterisks(pkg.Markdown)
	markup, _, err := s.importPackage(ctx, pkg)
	if err != nil {
		s.logger.Warn("session: write document data", slog.String("error", err.Error()))
	}
	if s.doc.Mode() == document.ModeMarkdown {
		s.doc.SetContent(convert.ToMarkdown(markup))
		return err == nil
	}
	if rerr := s.replaceDocument(ctx, markup); rerr != nil {
		s.logger.Warn("session: write document data", slog.String("error", rerr.Error()))
		return false
	}
	return err == nil
}

// replaceDocument force-pushes markup past any user edit and restores image
// handles. Only persistence failures are returned.
func (s *Session) replaceDocument(ctx context.Context, markup string) error {
	content := markup
	if s.doc.Mode() == document.ModeHTML {
		content = convert.StripBookkeeping(markup)
	}
	s.show(content)
	if err := s.surf.Rehydrate(ctx); err != nil {
		s.logger.Warn("session: some images could not be restored", slog.String("error", err.Error()))
	}
	err := s.surf.Migrate(ctx)
	s.pull()
	return err
}

// export turns markup into a package named name. Images whose payload is
// available are written under images/ with generated names; reuse keeps the
// file names known for the open package. It also returns the handle to file
// name mapping it used.
func (s *Session) export(ctx context.Context, markup, name string, reuse bool) (models.Package, map[string]string) {
	root := dom.Parse(markup)
	pkg := models.Package{Name: name}
	files := make(map[string]string)
	used := make(map[string]struct{})
	taken := func(n string) bool {
		_, ok := used[n]
		return ok
	}
	now := s.now()

	for _, img := range images(root) {
		src := dom.Attr(img, "src")
		p, ok := s.payloadFor(ctx, img)
		if !ok {
			continue
		}
		file := ""
		if known, ok := s.files[src]; reuse && ok && !taken(known) {
			file = known
		}
		if file == "" {
			ext := strings.ToLower(filepath.Ext(p.Name))
			if ext == "" {
				ext = assetstore.Extension(p.MIME)
			}
			file = storage.ImageFileName(p.Name, ext, now, taken)
		}
		used[file] = struct{}{}
		if assetstore.IsHandle(src) {
			files[src] = file
		}
		dom.SetAttr(img, "src", "./"+storage.ImagesDir+"/"+file)
		pkg.Images = append(pkg.Images, models.Image{Filename: file, MIME: p.MIME, Data: p.Data})
	}
	pkg.Markdown = convert.ToMarkdown(dom.Inner(root))
	return pkg, files
}

// payloadFor finds the bytes behind img: its live handle, then its
// persisted identifier, then an inline data URI.
func (s *Session) payloadFor(ctx context.Context, img *html.Node) (assetstore.Payload, bool) {
	src := dom.Attr(img, "src")
	if p, ok := s.handles.Lookup(src); ok {
		return p, true
	}
	if id := dom.Attr(img, "data-image-id"); id != "" {
		p, err := s.assets.Load(ctx, id)
		if err == nil {
			return p, true
		}
		s.logger.Warn("session: image payload unavailable", slog.String("id", id), slog.String("error", err.Error()))
	}
	if strings.HasPrefix(src, "data:") {
		if p, err := assetstore.DecodeDataURI(src); err == nil {
			return p, true
		}
	}
	return assetstore.Payload{}, false
}

// importPackage renders pkg as HTML with its images shown through fresh
// handles, returned with the file each handle shows. Identified images are
// persisted again under their identifier.
func (s *Session) importPackage(ctx context.Context, pkg models.Package) (string, map[string]string, error) {
	byName := make(map[string]models.Image, len(pkg.Images))
	for _, im := range pkg.Images {
		byName[im.Filename] = im
	}

	root := dom.Parse(convert.ToHTML(pkg.Markdown))
	files := make(map[string]string)
	var errs error
	for _, img := range images(root) {
		file, ok := packageImageFile(dom.Attr(img, "src"))
		if !ok {
			continue
		}
		im, ok := byName[file]
		if !ok {
			s.logger.Warn("session: package image missing", slog.String("file", file))
			continue
		}
		p := assetstore.Payload{Name: im.Filename, MIME: im.MIME, Data: im.Data}
		if p.MIME == "" {
			p.MIME = assetstore.DetectMIME(p.Data, p.Name)
		}
		handle := s.handles.Issue(p)
		files[handle] = im.Filename
		dom.SetAttr(img, "src", handle)
		if id := dom.Attr(img, "data-image-id"); id != "" {
			errs = multierr.Append(errs, s.assets.Persist(ctx, id, p))
		}
	}
	return dom.Inner(root), files, errs
}

// packageImageFile extracts the file name from a package-relative image
// reference such as ./images/a.png or assets/a.png.
func packageImageFile(src string) (string, bool) {
	rest := strings.TrimPrefix(src, "./")
	for _, dir := range []string{storage.ImagesDir + "/", "assets/"} {
		file, ok := strings.CutPrefix(rest, dir)
		if !ok {
			continue
		}
		if u, err := url.PathUnescape(file); err == nil {
			file = u
		}
		if file == "" || strings.Contains(file, "/") {
			return "", false
		}
		return file, true
	}
	return "", false
}

func (s *Session) adoptPackage(pkg models.Package, files map[string]string) {
	s.files = files
	s.savedSum = checksum.Sum([]byte(pkg.Markdown))
}

// prune drops stored assets the document no longer references.
func (s *Session) prune(ctx context.Context, markup string) {
	n, err := s.assets.Prune(ctx, referencedIDs(markup))
	if err != nil {
		s.logger.Warn("session: prune assets", slog.String("error", err.Error()))
		return
	}
	if n > 0 {
		s.logger.Debug("session: pruned assets", slog.Int("removed", n))
	}
}
