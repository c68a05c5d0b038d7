package worker

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/anoixa/image-admin/cache"
	"github.com/anoixa/image-admin/cache/memory"
	"github.com/anoixa/image-admin/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPanicRecovery(t *testing.T) {
	pool := NewPool(2, 10)

	var completed int32
	pool.Submit(func() { panic("boom") })
	pool.Submit(func() { panic("boom") })
	for i := 0; i < 3; i++ {
		pool.Submit(func() { atomic.AddInt32(&completed, 1) })
	}
	pool.Stop()

	assert.EqualValues(t, 3, atomic.LoadInt32(&completed))
	stats := pool.GetStats()
	assert.EqualValues(t, 2, stats.Failed)
	assert.EqualValues(t, 5, stats.Executed)
}

func TestGracefulShutdown(t *testing.T) {
	pool := NewPool(1, 10)

	var started sync.WaitGroup
	started.Add(1)
	var completed int32
	pool.Submit(func() {
		started.Done()
		time.Sleep(100 * time.Millisecond)
		atomic.AddInt32(&completed, 1)
	})
	pool.Submit(func() { atomic.AddInt32(&completed, 1) })
	started.Wait()

	pool.Stop()
	assert.EqualValues(t, 2, atomic.LoadInt32(&completed), "queued tasks drain before stop returns")
}

func TestQueueFullDropPolicy(t *testing.T) {
	pool := NewPool(1, 1)
	release := make(chan struct{})
	var running sync.WaitGroup
	running.Add(1)

	require.True(t, pool.Submit(func() {
		running.Done()
		<-release
	}))
	running.Wait()
	require.True(t, pool.Submit(func() {}))
	assert.False(t, pool.Submit(func() {}), "queue is full")
	assert.False(t, pool.SubmitBlocking(func() {}, 10*time.Millisecond))

	close(release)
	pool.Stop()
	assert.EqualValues(t, 2, pool.GetStats().Dropped)
}

func TestSubmitAfterStopAndNil(t *testing.T) {
	pool := NewPool(1, 1)
	assert.False(t, pool.Submit(nil))
	pool.Stop()
	pool.Stop()
	assert.False(t, pool.Submit(func() {}))
}

func TestGlobalPoolFallback(t *testing.T) {
	StopGlobalPool()
	assert.False(t, Submit(nil))
	assert.True(t, Submit(func() { panic("boom") }), "panics without a pool are recovered")
	ran := make(chan struct{})
	assert.True(t, Submit(func() { close(ran) }))
	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("fallback task did not run")
	}

	pool := InitGlobalPool(1, 4)
	assert.Same(t, pool, GetGlobalPool())
	done := make(chan struct{})
	assert.True(t, Submit(func() { close(done) }))
	<-done
	StopGlobalPool()
	assert.Nil(t, GetGlobalPool())
}

func TestImagePurgeTask(t *testing.T) {
	ctx := context.Background()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	mem, err := memory.NewMemory(memory.Config{NumCounters: 100, MaxCost: 1 << 20, BufferItems: 64})
	require.NoError(t, err)
	helper := cache.NewHelper(mem)

	require.NoError(t, store.SaveWithContext(ctx, "media/a.jpg", strings.NewReader("x")))
	require.NoError(t, helper.CachePreview(ctx, 1, []byte("thumb")))

	task := &ImagePurgeTask{ImageID: 1, URI: "/media/a.jpg", Storage: store, Cache: helper}
	res := task.Run(ctx)
	require.NoError(t, res.Err)
	assert.Equal(t, "media/a.jpg", res.Key)
	assert.True(t, res.ObjectDeleted)
	_, err = helper.GetCachedPreview(ctx, 1)
	assert.True(t, cache.IsCacheMiss(err))

	res = task.Run(ctx)
	assert.NoError(t, res.Err, "a missing object is already purged")
	assert.False(t, res.ObjectDeleted)

	external := &ImagePurgeTask{ImageID: 2, URI: "https://elsewhere.example.com/a.jpg", Storage: store, Cache: helper}
	res = external.Run(ctx)
	assert.Empty(t, res.Key)
	assert.False(t, res.ObjectDeleted)
}
