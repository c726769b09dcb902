package session

import (
	"context"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/trezcool/council/core/account"
	"github.com/trezcool/council/core/profile"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeFetcher serves the profile of a subject from its readyAt-th fetch on (never if 0).
type fakeFetcher struct {
	mu      sync.Mutex
	calls   map[string]int
	readyAt map[string]int
	err     error
	gate    chan struct{} // when set, fetches block until it is closed
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{calls: make(map[string]int), readyAt: make(map[string]int)}
}

func (f *fakeFetcher) FetchProfile(ctx context.Context, s account.Session) (profile.Profile, error) {
	f.mu.Lock()
	f.calls[s.Subject]++
	n, ready, err, gate := f.calls[s.Subject], f.readyAt[s.Subject], f.err, f.gate
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return profile.Profile{}, ctx.Err()
		}
	}
	if err != nil {
		return profile.Profile{}, err
	}
	if ready == 0 || n < ready {
		return profile.Profile{}, errors.Wrap(ErrProfileNotFound, "GET /api/profile")
	}
	return profile.Profile{ID: s.Subject, Name: "Name of " + s.Subject, Role: profile.RoleStudent}, nil
}

func (f *fakeFetcher) callsOf(subject string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[subject]
}

type clearCounter struct {
	mu sync.Mutex
	n  int
}

func (c *clearCounter) Clear() {
	c.mu.Lock()
	c.n++
	c.mu.Unlock()
}

func (c *clearCounter) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n
}

func newSync(t *testing.T, f Fetcher, opts Options) *Synchronizer {
	t.Helper()
	sy := NewSynchronizer(f, nil, opts)
	t.Cleanup(sy.Close)
	return sy
}

func sess(subject string) account.Session {
	return account.Session{Subject: subject, AccessToken: "token-" + subject}
}

var ctx = context.Background()

func TestSynchronizer_Load(t *testing.T) {
	f := newFakeFetcher()
	f.readyAt["a"] = 3
	sy := newSync(t, f, Options{Backoff: time.Millisecond, RequireProfile: true})

	var published []*profile.Profile
	unsubscribe := sy.Subscribe(func(p *profile.Profile) { published = append(published, p) })
	defer unsubscribe()

	_, err := sy.Load(ctx)
	assert.Equal(t, ErrNoSession, err)

	sy.SignIn(sess("a"))
	p, err := sy.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "a", p.ID)
	assert.Equal(t, 3, f.callsOf("a"), "not found answers are retried")
	require.Len(t, published, 1)
	assert.Equal(t, "a", published[0].ID)

	// published profiles are served without fetching
	p, err = sy.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "a", p.ID)
	assert.Equal(t, 3, f.callsOf("a"))
	assert.Equal(t, "a", sy.Profile().ID)

	sy.SignOut()
	assert.Nil(t, sy.Profile())
	assert.Nil(t, sy.Session())
	require.Len(t, published, 2)
	assert.Nil(t, published[1])
}

func TestSynchronizer_Load_notYetAvailable(t *testing.T) {
	tests := []struct {
		name         string
		maxAttempts  int
		wantAttempts int
	}{
		{name: "default", wantAttempts: DefaultMaxAttempts},
		{name: "one", maxAttempts: 1, wantAttempts: 1},
		{name: "three", maxAttempts: 3, wantAttempts: 3},
		{name: "twelve", maxAttempts: 12, wantAttempts: 12},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFakeFetcher()
			sy := newSync(t, f, Options{MaxAttempts: tt.maxAttempts, Backoff: -1, RequireProfile: true})
			sy.SignIn(sess("a"))

			p, err := sy.Load(ctx)
			assert.Nil(t, p)
			require.True(t, IsNotYetAvailable(err), "got %v", err)
			var le *LoadError
			require.True(t, errors.As(err, &le))
			assert.Equal(t, tt.wantAttempts, le.Attempts)
			assert.True(t, errors.Is(err, ErrProfileNotFound))
			assert.Equal(t, tt.wantAttempts, f.callsOf("a"))
			assert.Nil(t, sy.Profile())
		})
	}
}

func TestSynchronizer_Load_failed(t *testing.T) {
	f := newFakeFetcher()
	f.readyAt["a"] = 1
	f.err = errors.New("connection refused")

	t.Run("required profile", func(t *testing.T) {
		sy := newSync(t, f, Options{Backoff: -1, RequireProfile: true})
		sy.SignIn(sess("a"))

		_, err := sy.Load(ctx)
		var le *LoadError
		require.True(t, errors.As(err, &le), "got %v", err)
		assert.Equal(t, Failed, le.Kind)
		assert.Equal(t, 1, le.Attempts, "other errors are not retried")
		assert.Equal(t, f.err, errors.Cause(le.Err))
	})

	t.Run("anonymous browsing", func(t *testing.T) {
		sy := newSync(t, f, Options{Backoff: -1})
		sy.SignIn(sess("a"))

		p, err := sy.Load(ctx)
		assert.NoError(t, err)
		assert.Nil(t, p)
		assert.Nil(t, sy.Profile())
		assert.NotNil(t, sy.Session(), "the session survives a failed profile load")
	})
}

func TestSynchronizer_Load_sharesInflight(t *testing.T) {
	f := newFakeFetcher()
	f.readyAt["a"] = 1
	f.gate = make(chan struct{})
	sy := newSync(t, f, Options{Backoff: -1, RequireProfile: true})
	sy.SignIn(sess("a"))

	const callers = 5
	var wg sync.WaitGroup
	results := make([]*profile.Profile, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p, err := sy.Load(ctx)
			assert.NoError(t, err)
			results[i] = p
		}(i)
	}

	require.Eventually(t, func() bool { return f.callsOf("a") == 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond) // let the other callers join the pending load
	close(f.gate)
	wg.Wait()

	assert.Equal(t, 1, f.callsOf("a"), "one polling loop per subject")
	for _, p := range results {
		require.NotNil(t, p)
		assert.Equal(t, "a", p.ID)
	}
}

func TestSynchronizer_staleLoads(t *testing.T) {
	f := newFakeFetcher()
	f.readyAt["a"], f.readyAt["b"], f.readyAt["c"] = 1, 1, 1
	f.gate = make(chan struct{})
	sy := newSync(t, f, Options{Backoff: -1, RequireProfile: true})

	var mu sync.Mutex
	var published []string
	sy.Subscribe(func(p *profile.Profile) {
		mu.Lock()
		defer mu.Unlock()
		if p != nil {
			published = append(published, p.ID)
		}
	})

	errs := make(chan error, 2)
	load := func(subject string) {
		sy.SignIn(sess(subject))
		go func() {
			_, err := sy.Load(ctx)
			errs <- err
		}()
		require.Eventually(t, func() bool { return f.callsOf(subject) == 1 }, time.Second, time.Millisecond)
	}
	load("a")
	load("b")
	sy.SignOut()
	sy.SignIn(sess("c"))
	close(f.gate)

	p, err := sy.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "c", p.ID)
	assert.Equal(t, ErrStale, <-errs)
	assert.Equal(t, ErrStale, <-errs)

	assert.Equal(t, "c", sy.Profile().ID)
	mu.Lock()
	assert.Equal(t, []string{"c"}, published, "superseded loads never publish")
	mu.Unlock()
}

func TestSynchronizer_supersededDuringRetries(t *testing.T) {
	f := newFakeFetcher() // "a" never appears
	f.readyAt["b"] = 1
	sy := newSync(t, f, Options{MaxAttempts: 1000, Backoff: time.Millisecond, RequireProfile: true})
	sy.SignIn(sess("a"))

	errc := make(chan error, 1)
	go func() {
		_, err := sy.Load(ctx)
		errc <- err
	}()
	require.Eventually(t, func() bool { return f.callsOf("a") >= 2 }, time.Second, time.Millisecond)

	sy.SignIn(sess("b"))
	assert.Equal(t, ErrStale, <-errc)
	assert.Less(t, f.callsOf("a"), 1000, "the superseded loop stops polling")

	p, err := sy.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "b", p.ID)
}

// Whatever the sequence of session events, the published profile follows the last one.
func TestSynchronizer_rapidSessionChanges(t *testing.T) {
	f := newFakeFetcher()
	subjects := []string{"a", "b", "c", "d"}
	for _, s := range subjects {
		f.readyAt[s] = 2
	}
	sy := newSync(t, f, Options{Backoff: time.Millisecond, RequireProfile: true})
	rnd := rand.New(rand.NewSource(42))

	for round := 0; round < 30; round++ {
		var wg sync.WaitGroup
		var last string
		for i := 0; i < 1+rnd.Intn(6); i++ {
			if rnd.Intn(4) == 0 {
				sy.SignOut()
				last = ""
				continue
			}
			last = subjects[rnd.Intn(len(subjects))]
			sy.SignIn(sess(last))
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, _ = sy.Load(ctx)
			}()
			if rnd.Intn(2) == 0 {
				time.Sleep(time.Duration(rnd.Intn(3)) * time.Millisecond)
			}
		}

		if last == "" {
			wg.Wait()
			assert.Nil(t, sy.Profile(), "round %d", round)
			continue
		}
		p, err := sy.Load(ctx)
		wg.Wait()
		require.NoError(t, err, "round %d", round)
		assert.Equal(t, last, p.ID, "round %d", round)
		assert.Equal(t, last, sy.Profile().ID, "round %d", round)
	}
}

func TestSynchronizer_clearsCacheOnAuthTransitions(t *testing.T) {
	cache := new(clearCounter)
	sy := NewSynchronizer(newFakeFetcher(), cache, Options{})
	defer sy.Close()

	gen := sy.Generation()
	sy.SignIn(sess("a"))
	assert.Equal(t, 1, cache.count())
	sy.SignOut()
	assert.Equal(t, 2, cache.count())
	sy.SignIn(sess("b"))
	assert.Equal(t, 3, cache.count())
	assert.Equal(t, gen+3, sy.Generation())
}

func TestSynchronizer_Close(t *testing.T) {
	f := newFakeFetcher() // never provisioned
	sy := NewSynchronizer(f, nil, Options{Backoff: time.Hour, RequireProfile: true})
	sy.SignIn(sess("a"))

	errc := make(chan error, 1)
	go func() {
		_, err := sy.Load(ctx)
		errc <- err
	}()
	require.Eventually(t, func() bool { return f.callsOf("a") == 1 }, time.Second, time.Millisecond)

	sy.Close()
	assert.Equal(t, ErrClosed, <-errc)
	_, err := sy.Load(ctx)
	assert.Equal(t, ErrClosed, err)
}

func TestSynchronizer_Load_callerContext(t *testing.T) {
	f := newFakeFetcher()
	f.readyAt["a"] = 1
	f.gate = make(chan struct{})
	sy := newSync(t, f, Options{Backoff: -1, RequireProfile: true})
	sy.SignIn(sess("a"))

	cctx, cancel := context.WithCancel(ctx)
	cancel()
	_, err := sy.Load(cctx)
	assert.Equal(t, context.Canceled, err)

	// the loop keeps going for later callers
	close(f.gate)
	p, err := sy.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "a", p.ID)
	assert.Equal(t, 1, f.callsOf("a"))
}
