package preview

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/anoixa/image-admin/cache"
	"github.com/anoixa/image-admin/cache/memory"
	"github.com/anoixa/image-admin/database/dbtest"
	"github.com/anoixa/image-admin/database/repo/images"
	"github.com/anoixa/image-admin/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, 0, color.RGBA{R: 255, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestFit(t *testing.T) {
	tests := []struct {
		w, h, wantW, wantH int
	}{
		{300, 150, 150, 75},
		{150, 600, 37, 150},
		{100, 80, 100, 80},
		{3000, 1, 150, 1},
	}
	for _, tt := range tests {
		w, h := fit(tt.w, tt.h, 150)
		assert.Equal(t, tt.wantW, w)
		assert.Equal(t, tt.wantH, h)
	}
}

func TestRender(t *testing.T) {
	data, err := Render(bytes.NewReader(pngBytes(t, 300, 150)), 150)
	require.NoError(t, err)
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, "png", format)
	assert.Equal(t, 150, cfg.Width)
	assert.Equal(t, 75, cfg.Height)

	_, err = Render(bytes.NewReader([]byte("not an image")), 150)
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestService_Thumbnail(t *testing.T) {
	ctx := context.Background()
	provider := dbtest.Provider(t)
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	mem, err := memory.NewMemory(memory.Config{NumCounters: 1000, MaxCost: 1 << 22, BufferItems: 64})
	require.NoError(t, err)
	helper := cache.NewHelper(mem)

	svc := NewService(images.NewRepository(provider), store, helper, "https://img.example.com", 0)

	require.NoError(t, store.SaveWithContext(ctx, "a.png", bytes.NewReader(pngBytes(t, 400, 200))))
	img := dbtest.CreateImage(t, provider.DB(), "a.png", "https://img.example.com/a.png")

	data, err := svc.Thumbnail(ctx, img.ID)
	require.NoError(t, err)
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 150, cfg.Width)

	require.NoError(t, store.DeleteWithContext(ctx, "a.png"))
	cached, err := svc.Thumbnail(ctx, img.ID)
	require.NoError(t, err, "served from cache")
	assert.Equal(t, data, cached)

	ext := dbtest.CreateImage(t, provider.DB(), "b.png", "https://elsewhere.example.com/b.png")
	_, err = svc.Thumbnail(ctx, ext.ID)
	assert.ErrorIs(t, err, ErrExternal)

	missing := dbtest.CreateImage(t, provider.DB(), "c.png", "/c.png")
	_, err = svc.Thumbnail(ctx, missing.ID)
	assert.True(t, errors.Is(err, storage.ErrNotFound))

	_, err = svc.Thumbnail(ctx, 9999)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
