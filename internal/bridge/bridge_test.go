package bridge

import (
	"context"
	"encoding/base64"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/dysedit/internal/apperr"
	"github.com/starford/dysedit/internal/models"
)

type fakeDoc struct {
	md      string
	pkg     models.Package
	readErr error
	written *models.Package
}

func (f *fakeDoc) Markdown() string { return f.md }

func (f *fakeDoc) WriteMarkdown(_ context.Context, md string) bool {
	f.md = md
	return true
}

func (f *fakeDoc) DocumentData(context.Context) (models.Package, error) {
	return f.pkg, f.readErr
}

func (f *fakeDoc) WriteDocumentData(_ context.Context, pkg models.Package) bool {
	f.written = &pkg
	return true
}

func TestReadDocumentDataEncodesImages(t *testing.T) {
	doc := &fakeDoc{pkg: models.Package{
		Markdown: "![a](./images/a.png)",
		Images:   []models.Image{{Filename: "a.png", MIME: "image/png", Data: []byte{1, 2, 3}}},
	}}
	b := New(doc, nil)

	data, err := b.ReadDocumentData(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "![a](./images/a.png)", data.Markdown)
	require.Len(t, data.Images, 1)
	assert.Equal(t, "a.png", data.Images[0].Filename)
	assert.Equal(t, "image/png", data.Images[0].MIME)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte{1, 2, 3}), data.Images[0].Data)
}

func TestReadDocumentDataWithoutImages(t *testing.T) {
	b := New(&fakeDoc{pkg: models.Package{Markdown: "hi"}}, nil)

	data, err := b.ReadDocumentData(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, data.Images)
	assert.Empty(t, data.Images)
}

func TestReadDocumentDataUnresolved(t *testing.T) {
	unresolved := &apperr.UnresolvedAssetError{Images: []apperr.UnresolvedImage{{Index: 0, Alt: "lost"}}}
	b := New(&fakeDoc{readErr: unresolved}, nil)

	_, err := b.ReadDocumentData(context.Background())
	var target *apperr.UnresolvedAssetError
	require.True(t, errors.As(err, &target))
	assert.Len(t, target.Images, 1)
}

func TestWriteDocumentDataDecodes(t *testing.T) {
	doc := &fakeDoc{}
	b := New(doc, nil)

	ok := b.WriteDocumentData(context.Background(), DocumentData{
		Markdown: "x",
		Images: []ImageData{
			{Filename: "a.png", MIME: "image/png", Data: base64.StdEncoding.EncodeToString([]byte("abcd"))},
			{Filename: "b.png", Data: base64.RawStdEncoding.EncodeToString([]byte("abcde"))},
		},
	})
	require.True(t, ok)
	require.NotNil(t, doc.written)
	assert.Equal(t, "x", doc.written.Markdown)
	require.Len(t, doc.written.Images, 2)
	assert.Equal(t, []byte("abcd"), doc.written.Images[0].Data)
	assert.Equal(t, []byte("abcde"), doc.written.Images[1].Data)
}

func TestWriteDocumentDataRejectsBadBase64(t *testing.T) {
	doc := &fakeDoc{}
	b := New(doc, nil)

	ok := b.WriteDocumentData(context.Background(), DocumentData{
		Markdown: "x",
		Images:   []ImageData{{Filename: "a.png", Data: "!!not base64!!"}},
	})
	assert.False(t, ok)
	assert.Nil(t, doc.written)
}

func TestMarkdownPassThrough(t *testing.T) {
	doc := &fakeDoc{md: "# Title"}
	b := New(doc, nil)

	assert.Equal(t, "# Title", b.ReadMarkdown())
	assert.True(t, b.WriteMarkdown(context.Background(), "new"))
	assert.Equal(t, "new", doc.md)
}

func TestDialectMentionsImageSyntax(t *testing.T) {
	assert.Contains(t, Dialect, "{width=320px height=240px id=...}")
	assert.Contains(t, Dialect, "./images/<filename>")
}
