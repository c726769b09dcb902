// Package optimistic applies mutations to cached query results before the server confirms them.
package optimistic

import (
	"context"

	"github.com/trezcool/council/client/querycache"
)

// Mutate writes apply(previous value) under key, then runs call.
// If call fails, key is restored to its exact previous state and the error is returned,
// unless the cache was cleared meanwhile (e.g. sign-out): nothing is written back then.
// If it succeeds, key (and not the keys it prefixes) is marked stale so that the next fetch
// replaces the speculative value.
//
// Nothing is written when key is not cached or holds another type than T; call still runs.
func Mutate[T any](ctx context.Context, cache *querycache.Cache, key string, apply func(prev T) T, call func(ctx context.Context) error) error {
	snap := cache.Swap(key, func(prev interface{}) interface{} {
		v, ok := prev.(T)
		if !ok {
			return prev
		}
		return apply(v)
	})

	if err := call(ctx); err != nil {
		if snap.Present() {
			cache.Restore(snap)
		}
		return err
	}
	cache.MarkStale(key)
	return nil
}

// ToggleLike flips liked and moves count by one in the same direction.
func ToggleLike(liked bool, count int) (bool, int) {
	if liked {
		return false, count - 1
	}
	return true, count + 1
}
