package surface

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/watertracker/internal/counter"
	derrors "git.home.luguber.info/inful/watertracker/internal/errors"
)

func TestRegistry_FirstAndLast(t *testing.T) {
	r := NewRegistry()

	added, first := r.Add(7)
	assert.True(t, added)
	assert.True(t, first)

	added, first = r.Add(3)
	assert.True(t, added)
	assert.False(t, first)

	added, first = r.Add(7)
	assert.False(t, added, "duplicate add is a no-op")
	assert.False(t, first)

	assert.Equal(t, []int{3, 7}, r.IDs())
	assert.True(t, r.Has(3))
	assert.Equal(t, 2, r.Len())

	removed, last := r.Remove(7)
	assert.True(t, removed)
	assert.False(t, last)

	removed, last = r.Remove(99)
	assert.False(t, removed)
	assert.False(t, last)

	removed, last = r.Remove(3)
	assert.True(t, removed)
	assert.True(t, last)
	assert.Empty(t, r.IDs())
}

func TestRegistry_ConcurrentAdds(t *testing.T) {
	r := NewRegistry()
	var wg sync.WaitGroup
	var mu sync.Mutex
	firsts := 0
	for i := range 50 {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			if _, first := r.Add(id); first {
				mu.Lock()
				firsts++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 1, firsts)
	assert.Equal(t, 50, r.Len())
}

type recordingRenderer struct {
	mu    sync.Mutex
	calls map[int]counter.View
	fail  map[int]error
}

func newRecordingRenderer() *recordingRenderer {
	return &recordingRenderer{calls: map[int]counter.View{}, fail: map[int]error{}}
}

func (r *recordingRenderer) Render(_ context.Context, id int, v counter.View) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.fail[id]; err != nil {
		return err
	}
	r.calls[id] = v
	return nil
}

func TestBroadcast_ReachesEverySurface(t *testing.T) {
	reg := NewRegistry()
	for _, id := range []int{1, 2, 3} {
		reg.Add(id)
	}
	rec := newRecordingRenderer()
	rec.fail[2] = errors.New("gone")

	v := counter.View{Count: 0, Level: 0}
	ok, failed := Broadcast(context.Background(), reg, rec, v)
	assert.Equal(t, 2, ok)
	assert.Equal(t, 1, failed)
	assert.Equal(t, map[int]counter.View{1: v, 3: v}, rec.calls)
}

func TestViewCacheAndMulti(t *testing.T) {
	cache := NewViewCache()
	rec := newRecordingRenderer()
	boom := errors.New("boom")
	m := Multi{cache, rec, RendererFunc(func(context.Context, int, counter.View) error { return boom })}

	v := counter.NewView(4, counter.DefaultGoal)
	err := m.Render(context.Background(), 5, v)
	require.ErrorIs(t, err, boom)

	got, ok := cache.Get(5)
	require.True(t, ok, "earlier renderers still ran")
	assert.Equal(t, counter.View{Count: 4, Level: 4000}, got)
	assert.Equal(t, v, rec.calls[5])

	cache.Forget(5)
	_, ok = cache.Get(5)
	assert.False(t, ok)
}

func TestLogRenderer(t *testing.T) {
	require.NoError(t, LogRenderer{}.Render(context.Background(), 1, counter.View{Count: 1, Level: 1000}))
}

func TestNATSRenderer(t *testing.T) {
	n := NewNATSRendererWithConn(nil, "watertracker.surface")
	assert.Equal(t, "watertracker.surface.42", n.SubjectFor(42))

	_, err := NewNATSRenderer("nats://127.0.0.1:1", "watertracker.surface")
	require.Error(t, err)
	assert.True(t, derrors.IsCategory(err, derrors.CategoryTransport))
}
