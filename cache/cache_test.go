package cache

import (
	"context"
	"testing"
	"time"

	"github.com/anoixa/image-admin/cache/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMemory(t *testing.T) *memory.Memory {
	t.Helper()
	provider, err := memory.NewMemory(memory.Config{NumCounters: 1000, MaxCost: 1 << 20, BufferItems: 64})
	require.NoError(t, err)
	t.Cleanup(func() { _ = provider.Close() })
	return provider
}

func TestMemoryProvider(t *testing.T) {
	ctx := context.Background()
	provider := newMemory(t)

	require.NoError(t, provider.Set(ctx, "k", map[string]int{"a": 1}, time.Minute))
	var got map[string]int
	require.NoError(t, provider.Get(ctx, "k", &got))
	assert.Equal(t, map[string]int{"a": 1}, got)

	exists, err := provider.Exists(ctx, "k")
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, provider.Delete(ctx, "k"))
	err = provider.Get(ctx, "k", &got)
	assert.True(t, IsCacheMiss(err))

	require.NoError(t, provider.Set(ctx, "raw", []byte{1, 2, 3}, time.Minute))
	require.NoError(t, provider.Clear(ctx))
	var raw []byte
	assert.ErrorIs(t, provider.Get(ctx, "raw", &raw), ErrCacheMiss)
}

func TestHelper(t *testing.T) {
	ctx := context.Background()
	helper := NewHelper(newMemory(t), HelperConfig{PreviewExpiration: time.Minute})

	type choice struct {
		Value string `json:"value"`
	}
	require.NoError(t, helper.CacheFilterChoices(ctx, "image", "labels__slug", []choice{{"cats"}}))
	var choices []choice
	require.NoError(t, helper.GetCachedFilterChoices(ctx, "image", "labels__slug", &choices))
	assert.Equal(t, []choice{{"cats"}}, choices)
	require.NoError(t, helper.DeleteCachedFilterChoices(ctx, "image", "labels__slug"))
	assert.True(t, IsCacheMiss(helper.GetCachedFilterChoices(ctx, "image", "labels__slug", &choices)))

	require.NoError(t, helper.CachePreview(ctx, 7, []byte("png")))
	data, err := helper.GetCachedPreview(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, []byte("png"), data)
	require.NoError(t, helper.DeleteCachedPreview(ctx, 7))
	_, err = helper.GetCachedPreview(ctx, 7)
	assert.True(t, IsCacheMiss(err))
}

func TestKeyBuilder(t *testing.T) {
	assert.Equal(t, "filter_choices:image:labels__slug", FilterChoices.Build("image", "labels__slug"))
	assert.Equal(t, "preview:42", Preview.BuildID(42))
	assert.Equal(t, "x", NewKeyBuilder("x").Build())
}
