package assetstore

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/dysedit/internal/apperr"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "assets.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestPersistAndResolveAfterReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "assets.db")
	data := pngBytes(t, 4, 3)

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Persist(ctx, "img-1", Payload{Name: "a.png", Data: data}))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()

	table := NewHandleTable()
	h, err := s.Resolve(ctx, "img-1", table)
	require.NoError(t, err)
	assert.True(t, IsHandle(h))

	p, ok := table.Lookup(h)
	require.True(t, ok)
	assert.Equal(t, data, p.Data)
	assert.Equal(t, "image/png", p.MIME)
}

func TestOpenDSNWithQuery(t *testing.T) {
	assert.Equal(t, "a.db?_busy_timeout=1", withParams("a.db", "_busy_timeout=1"))
	assert.Equal(t, "file:a.db?cache=shared&_busy_timeout=1", withParams("file:a.db?cache=shared", "_busy_timeout=1"))

	s, err := Open("file:" + filepath.Join(t.TempDir(), "assets.db") + "?cache=shared")
	require.NoError(t, err)
	defer s.Close()
	require.NoError(t, s.Persist(context.Background(), "img-1", Payload{Name: "a.png", Data: pngBytes(t, 2, 2)}))
}

func TestResolveUnknownIsNotFound(t *testing.T) {
	s := testStore(t)
	_, err := s.Resolve(context.Background(), "never-stored", NewHandleTable())
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestPersistOverwrites(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)
	require.NoError(t, s.Persist(ctx, "x", Payload{Data: []byte("one")}))
	require.NoError(t, s.Persist(ctx, "x", Payload{Data: []byte("two")}))
	p, err := s.Load(ctx, "x")
	require.NoError(t, err)
	assert.Equal(t, "two", string(p.Data))
}

func TestRemoveMissingIsNotAnError(t *testing.T) {
	assert.NoError(t, testStore(t).Remove(context.Background(), "ghost"))
}

func TestPrune(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)
	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, s.Persist(ctx, id, Payload{Data: []byte(id)}))
	}
	n, err := s.Prune(ctx, map[string]struct{}{"b": {}})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	ids, err := s.IDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, ids)
}

func TestKV(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)

	var v map[string]int
	assert.ErrorIs(t, s.Get(ctx, "missing", &v), apperr.ErrNotFound)

	require.NoError(t, s.Put(ctx, "k", map[string]int{"a": 1}))
	require.NoError(t, s.Get(ctx, "k", &v))
	assert.Equal(t, 1, v["a"])
}

func TestRequestDurability(t *testing.T) {
	ctx := context.Background()
	assert.True(t, testStore(t).RequestDurability(ctx))

	mem, err := Open(":memory:")
	require.NoError(t, err)
	defer mem.Close()
	assert.False(t, mem.RequestDurability(ctx))
}

func TestHandleTable(t *testing.T) {
	table := NewHandleTable()
	h1 := table.Issue(Payload{Name: "a.png", Data: []byte("a")})
	h2 := table.Issue(Payload{Name: "b.png", Data: []byte("b")})
	assert.NotEqual(t, h1, h2)
	assert.Equal(t, 2, table.Len())

	table.Evict(h1)
	_, ok := table.Lookup(h1)
	assert.False(t, ok)
	assert.False(t, IsHandle("blob:abc"))
}

func TestDetectMIMEAndDimensions(t *testing.T) {
	data := pngBytes(t, 10, 20)
	assert.Equal(t, "image/png", DetectMIME(data, "whatever.bin"))
	assert.Equal(t, "image/svg+xml", DetectMIME([]byte(`<svg xmlns="http://www.w3.org/2000/svg"/>`), "x"))
	assert.Equal(t, ".png", Extension("image/png"))

	w, h, ok := Dimensions(Payload{Data: data})
	require.True(t, ok)
	assert.Equal(t, 10, w)
	assert.Equal(t, 20, h)

	_, _, ok = Dimensions(Payload{Data: []byte("nope")})
	assert.False(t, ok)
}
