package optimistic

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/council/client/querycache"
)

type item struct {
	ID    string
	Liked bool
	Likes int
}

var errNetwork = errors.New("network down")

func toggle(id string) func([]item) []item {
	return func(prev []item) []item {
		next := make([]item, len(prev))
		copy(next, prev)
		for i := range next {
			if next[i].ID == id {
				next[i].Liked, next[i].Likes = ToggleLike(next[i].Liked, next[i].Likes)
			}
		}
		return next
	}
}

func succeed(context.Context) error { return nil }
func fail(context.Context) error    { return errNetwork }

func TestMutate_toggleToggle(t *testing.T) {
	cache := querycache.New()
	orig := []item{{ID: "a", Likes: 3}, {ID: "b", Liked: true, Likes: 1}}
	cache.Set("ideas", orig)

	require.NoError(t, Mutate(context.Background(), cache, "ideas", toggle("a"), succeed))
	got, _, stale := querycache.Load[[]item](cache, "ideas")
	assert.True(t, stale, "success must leave the key to be refetched")
	assert.Equal(t, item{ID: "a", Liked: true, Likes: 4}, got[0])

	require.NoError(t, Mutate(context.Background(), cache, "ideas", toggle("a"), succeed))
	got, _, _ = querycache.Load[[]item](cache, "ideas")
	if diff := cmp.Diff(orig, got); diff != "" {
		t.Errorf("toggle-toggle mismatch (-want +got):\n%s", diff)
	}
}

func TestMutate_rollback(t *testing.T) {
	tests := []struct {
		name  string
		fresh bool
	}{
		{name: "fresh entry", fresh: true},
		{name: "stale entry"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cache := querycache.New()
			cache.Set("ideas", []item{{ID: "a", Liked: true, Likes: 7}})
			if !tt.fresh {
				cache.Invalidate("ideas")
			}
			before := cache.Snapshot("ideas")

			var seen []item
			err := Mutate(context.Background(), cache, "ideas", toggle("a"), func(context.Context) error {
				seen, _, _ = querycache.Load[[]item](cache, "ideas")
				return errNetwork
			})
			assert.Equal(t, errNetwork, err)
			assert.Equal(t, []item{{ID: "a", Likes: 6}}, seen, "the speculative value is visible during the call")

			got, ok, stale := cache.Get("ideas")
			assert.True(t, ok)
			assert.Equal(t, !tt.fresh, stale)
			if diff := cmp.Diff(before.Value(), got); diff != "" {
				t.Errorf("rollback mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestMutate_clearedDuringCall(t *testing.T) {
	cache := querycache.New()
	cache.Set("ideas", []item{{ID: "a", Likes: 2}})

	err := Mutate(context.Background(), cache, "ideas", toggle("a"), func(context.Context) error {
		cache.Clear() // signed out while the request is in flight
		return errNetwork
	})
	assert.Equal(t, errNetwork, err)
	assert.Empty(t, cache.Keys(), "the previous user's data must not be written back")
}

func TestMutate_leavesSubKeysFresh(t *testing.T) {
	cache := querycache.New()
	cache.Set("ideas", []item{{ID: "a"}})
	cache.Set("ideas:a:comments", []string{"hi"})

	require.NoError(t, Mutate(context.Background(), cache, "ideas", toggle("a"), succeed))

	_, _, stale := cache.Get("ideas")
	assert.True(t, stale)
	_, _, stale = cache.Get("ideas:a:comments")
	assert.False(t, stale)
}

func TestMutate_notCached(t *testing.T) {
	cache := querycache.New()

	called := false
	err := Mutate(context.Background(), cache, "ideas", toggle("a"), func(context.Context) error {
		called = true
		return nil
	})
	require.NoError(t, err)
	assert.True(t, called)
	assert.Empty(t, cache.Keys())

	assert.Equal(t, errNetwork, Mutate(context.Background(), cache, "ideas", toggle("a"), fail))
	assert.Empty(t, cache.Keys())
}

func TestToggleLike(t *testing.T) {
	liked, n := ToggleLike(false, 0)
	assert.True(t, liked)
	assert.Equal(t, 1, n)

	liked, n = ToggleLike(liked, n)
	assert.False(t, liked)
	assert.Equal(t, 0, n)
}
