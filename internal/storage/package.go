package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gosimple/slug"

	"github.com/starford/dysedit/internal/apperr"
	"github.com/starford/dysedit/internal/models"
)

// ImagesDir is the package subdirectory holding image files.
const ImagesDir = "images"

// legacyAssetsDir is accepted when reading older packages.
const legacyAssetsDir = "assets"

// MarkdownPath returns the markdown file of package name relative to the
// workspace root.
func MarkdownPath(name string) string {
	return filepath.Join(name, name+".md")
}

// AvailableName returns base when no package directory of that name exists,
// otherwise the first free "base (n)".
func (f *FS) AvailableName(base string) string {
	name := base
	for n := 1; f.Exists(name); n++ {
		name = fmt.Sprintf("%s (%d)", base, n)
	}
	return name
}

// ImageFileName builds slug(base)_YYYYMMDD_HHMMSS.ext, adding _n when taken
// reports the name as used.
func ImageFileName(base, ext string, now time.Time, taken func(string) bool) string {
	stem := slug.Make(strings.TrimSuffix(base, filepath.Ext(base)))
	if stem == "" {
		stem = "image"
	}
	stem += "_" + now.Format("20060102_150405")
	name := stem + ext
	for n := 1; taken != nil && taken(name); n++ {
		name = stem + "_" + strconv.Itoa(n) + ext
	}
	return name
}

// WritePackage writes p under its name, replacing the markdown file and the
// image directory contents.
func (f *FS) WritePackage(p models.Package) error {
	if p.Name == "" || strings.ContainsAny(p.Name, `/\`) {
		return fmt.Errorf("storage: invalid package name %q", p.Name)
	}
	keep := make(map[string]struct{}, len(p.Images))
	for _, img := range p.Images {
		if err := f.Write(filepath.Join(p.Name, ImagesDir, img.Filename), img.Data); err != nil {
			return err
		}
		keep[img.Filename] = struct{}{}
	}
	if err := f.removeStale(filepath.Join(p.Name, ImagesDir), keep); err != nil {
		return err
	}
	return f.Write(MarkdownPath(p.Name), []byte(p.Markdown))
}

func (f *FS) removeStale(dir string, keep map[string]struct{}) error {
	abs, err := f.safePath(dir)
	if err != nil {
		return err
	}
	entries, err := os.ReadDir(abs)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("storage: read images: %w", err)
	}
	for _, e := range entries {
		if _, ok := keep[e.Name()]; ok || e.IsDir() {
			continue
		}
		if err := f.Delete(filepath.Join(dir, e.Name())); err != nil {
			return fmt.Errorf("storage: remove stale image: %w", err)
		}
	}
	return nil
}

// ReadPackage loads package name. Images come from images/ and, for older
// packages, assets/.
func (f *FS) ReadPackage(name string) (models.Package, error) {
	md, err := f.Read(MarkdownPath(name))
	if err != nil {
		return models.Package{}, err
	}
	p := models.Package{Name: name, Markdown: string(md)}
	for _, dir := range []string{ImagesDir, legacyAssetsDir} {
		imgs, err := f.readImages(filepath.Join(name, dir))
		if err != nil {
			return models.Package{}, err
		}
		p.Images = append(p.Images, imgs...)
	}
	return p, nil
}

func (f *FS) readImages(dir string) ([]models.Image, error) {
	abs, err := f.safePath(dir)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(abs)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("storage: read %s: %w", dir, err)
	}
	var out []models.Image
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(abs, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("storage: read image %s: %w", e.Name(), err)
		}
		out = append(out, models.Image{Filename: e.Name(), Data: data})
	}
	return out, nil
}

// DeletePackage removes package name and everything in it.
func (f *FS) DeletePackage(name string) error {
	abs, err := f.safePath(name)
	if err != nil {
		return err
	}
	if abs == f.root {
		return fmt.Errorf("storage: refusing to delete workspace root")
	}
	if _, err := os.Stat(abs); errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("storage: package %s: %w", name, apperr.ErrNotFound)
	}
	if err := os.RemoveAll(abs); err != nil {
		return fmt.Errorf("storage: delete package %s: %w", name, err)
	}
	return nil
}

// RenamePackage moves package name to newName, renaming its markdown file
// along with the directory.
func (f *FS) RenamePackage(name, newName string) error {
	if newName == "" || strings.ContainsAny(newName, `/\`) || strings.HasPrefix(newName, ".") {
		return fmt.Errorf("storage: invalid package name %q", newName)
	}
	if !f.Exists(MarkdownPath(name)) {
		return fmt.Errorf("storage: package %s: %w", name, apperr.ErrNotFound)
	}
	if f.Exists(newName) {
		return fmt.Errorf("storage: package %s: %w", newName, apperr.ErrConflict)
	}
	if err := f.Move(name, newName); err != nil {
		return err
	}
	return f.Move(filepath.Join(newName, name+".md"), MarkdownPath(newName))
}
