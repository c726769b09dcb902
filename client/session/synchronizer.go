// Package session keeps the client's current profile consistent with its authentication state.
//
// A Synchronizer observes sign-in and sign-out, loads the profile of the signed in subject and
// publishes it. The profile may not exist yet right after sign up (it is provisioned in the
// background), so "not found" answers are retried a bounded number of times.
//
// Every session change bumps a generation counter. A load commits its result only if the
// generation and the active subject are still the ones it started with; late results of
// superseded loads are discarded, the underlying requests are not aborted.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/singleflight"

	"github.com/trezcool/council/core/account"
	"github.com/trezcool/council/core/profile"
)

var (
	// ErrProfileNotFound must be returned (or wrapped) by fetchers when the profile does not exist yet.
	ErrProfileNotFound = errors.New("profile not found")

	// ErrStale is returned by loads superseded by a newer session change.
	ErrStale = errors.New("profile load superseded by a newer session")

	ErrNoSession = errors.New("not signed in")
	ErrClosed    = errors.New("synchronizer closed")
)

// Defaults of Options.
const (
	DefaultMaxAttempts = 10
	DefaultBackoff     = 300 * time.Millisecond
)

type Kind int

const (
	// NotYetAvailable means the profile was still missing after the last attempt.
	NotYetAvailable Kind = iota + 1
	// Failed means the profile query failed for another reason than "not found".
	Failed
)

func (k Kind) String() string {
	switch k {
	case NotYetAvailable:
		return "not yet available"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// LoadError is the terminal failure of a profile load.
type LoadError struct {
	Kind     Kind
	Subject  string
	Attempts int
	Err      error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("loading profile of %s: %s after %d attempt(s): %v", e.Subject, e.Kind, e.Attempts, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// IsNotYetAvailable reports whether err is a LoadError of kind NotYetAvailable.
func IsNotYetAvailable(err error) bool {
	var le *LoadError
	return errors.As(err, &le) && le.Kind == NotYetAvailable
}

type (
	// Fetcher queries the profile of the session's subject.
	Fetcher interface {
		FetchProfile(ctx context.Context, s account.Session) (profile.Profile, error)
	}

	FetcherFunc func(ctx context.Context, s account.Session) (profile.Profile, error)

	// Clearer is the client cache dropped on every auth transition.
	Clearer interface {
		Clear()
	}

	Options struct {
		// MaxAttempts bounds the fetches of a profile that is not provisioned yet.
		MaxAttempts int
		// Backoff is the fixed wait between two fetches. Zero means DefaultBackoff, a negative value no wait.
		Backoff time.Duration
		// RequireProfile makes Load return load failures. Otherwise failures leave the
		// synchronizer without profile and Load returns (nil, nil): the app browses anonymously.
		RequireProfile bool
	}
)

func (f FetcherFunc) FetchProfile(ctx context.Context, s account.Session) (profile.Profile, error) {
	return f(ctx, s)
}

// Synchronizer owns the session state. All its methods are safe for concurrent use.
type Synchronizer struct {
	fetcher Fetcher
	cache   Clearer
	opts    Options

	// lifetime of the polling loops, which outlive the callers that started them
	ctx    context.Context
	cancel context.CancelFunc
	loops  sync.WaitGroup

	mu       sync.Mutex
	gen      uint64
	active   string // subject of the current session, empty when signed out
	session  *account.Session
	current  *profile.Profile
	inflight *singleflight.Group
	subs     map[int]func(*profile.Profile)
	nextSub  int
	closed   bool
}

func NewSynchronizer(fetcher Fetcher, cache Clearer, opts Options) *Synchronizer {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	if opts.Backoff < 0 {
		opts.Backoff = 0
	} else if opts.Backoff == 0 {
		opts.Backoff = DefaultBackoff
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Synchronizer{
		fetcher:  fetcher,
		cache:    cache,
		opts:     opts,
		ctx:      ctx,
		cancel:   cancel,
		inflight: new(singleflight.Group),
		subs:     make(map[int]func(*profile.Profile)),
	}
}

// SignIn clears the cached data of any previous user, then makes s the current session.
func (sy *Synchronizer) SignIn(s account.Session) {
	sy.mu.Lock()
	defer sy.mu.Unlock()
	if sy.cache != nil {
		sy.cache.Clear()
	}
	sy.invalidate()
	sy.session = &s
	sy.active = s.Subject
}

// SignOut forgets the session and clears the cache.
func (sy *Synchronizer) SignOut() {
	sy.mu.Lock()
	defer sy.mu.Unlock()
	sy.invalidate()
	if sy.cache != nil {
		sy.cache.Clear()
	}
}

// invalidate supersedes every load issued so far. sy.mu must be held.
func (sy *Synchronizer) invalidate() {
	sy.gen++
	sy.active = ""
	sy.session = nil
	sy.inflight = new(singleflight.Group)
	if sy.current != nil {
		sy.current = nil
		sy.notify(nil)
	}
}

// Session returns a copy of the current session, nil when signed out.
func (sy *Synchronizer) Session() *account.Session {
	sy.mu.Lock()
	defer sy.mu.Unlock()
	if sy.session == nil {
		return nil
	}
	s := *sy.session
	return &s
}

// Profile returns a copy of the published profile, nil when none is.
func (sy *Synchronizer) Profile() *profile.Profile {
	sy.mu.Lock()
	defer sy.mu.Unlock()
	return copyProfile(sy.current)
}

func (sy *Synchronizer) Generation() uint64 {
	sy.mu.Lock()
	defer sy.mu.Unlock()
	return sy.gen
}

// Subscribe calls fn with every newly published profile (nil when it is withdrawn).
// fn is called with the synchronizer locked: it must not call back into it.
func (sy *Synchronizer) Subscribe(fn func(*profile.Profile)) (unsubscribe func()) {
	sy.mu.Lock()
	defer sy.mu.Unlock()
	id := sy.nextSub
	sy.nextSub++
	sy.subs[id] = fn
	return func() {
		sy.mu.Lock()
		delete(sy.subs, id)
		sy.mu.Unlock()
	}
}

func (sy *Synchronizer) notify(p *profile.Profile) {
	for _, fn := range sy.subs {
		fn(copyProfile(p))
	}
}

// Load returns the profile of the current session, loading it if it is not published yet.
// Concurrent loads of the same subject share one polling loop and its result.
// ctx only bounds the wait of this caller: the loop keeps running for the others.
func (sy *Synchronizer) Load(ctx context.Context) (*profile.Profile, error) {
	sy.mu.Lock()
	if sy.closed {
		sy.mu.Unlock()
		return nil, ErrClosed
	}
	if sy.session == nil {
		sy.mu.Unlock()
		return nil, ErrNoSession
	}
	if sy.current != nil {
		p := copyProfile(sy.current)
		sy.mu.Unlock()
		return p, nil
	}
	gen, s, group := sy.gen, *sy.session, sy.inflight
	sy.mu.Unlock()

	ch := group.DoChan(s.Subject, func() (interface{}, error) {
		return sy.poll(gen, s)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			var le *LoadError
			if errors.As(res.Err, &le) && !sy.opts.RequireProfile {
				return nil, nil
			}
			return nil, res.Err
		}
		return copyProfile(res.Val.(*profile.Profile)), nil
	}
}

// poll fetches the profile of s until it exists, the attempts are exhausted, or a newer session supersedes gen.
func (sy *Synchronizer) poll(gen uint64, s account.Session) (*profile.Profile, error) {
	sy.mu.Lock()
	if sy.closed {
		sy.mu.Unlock()
		return nil, ErrClosed
	}
	sy.loops.Add(1)
	sy.mu.Unlock()
	defer sy.loops.Done()

	var err error
	for attempt := 1; attempt <= sy.opts.MaxAttempts; attempt++ {
		var p profile.Profile
		p, err = sy.fetcher.FetchProfile(sy.ctx, s)
		switch {
		case err == nil:
			return sy.commit(gen, s.Subject, p)
		case !errors.Is(err, ErrProfileNotFound):
			if !sy.isCurrent(gen, s.Subject) {
				return nil, ErrStale
			}
			return nil, &LoadError{Kind: Failed, Subject: s.Subject, Attempts: attempt, Err: err}
		case attempt == sy.opts.MaxAttempts:
			// no wait after the last attempt
		default:
			if !sy.isCurrent(gen, s.Subject) {
				return nil, ErrStale
			}
			if werr := sy.wait(); werr != nil {
				return nil, werr
			}
		}
	}
	if !sy.isCurrent(gen, s.Subject) {
		return nil, ErrStale
	}
	return nil, &LoadError{Kind: NotYetAvailable, Subject: s.Subject, Attempts: sy.opts.MaxAttempts, Err: err}
}

func (sy *Synchronizer) wait() error {
	timer := time.NewTimer(sy.opts.Backoff)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-sy.ctx.Done():
		return ErrClosed
	}
}

func (sy *Synchronizer) isCurrent(gen uint64, subject string) bool {
	sy.mu.Lock()
	defer sy.mu.Unlock()
	return sy.gen == gen && sy.active == subject
}

// commit publishes p if no session change happened since gen.
func (sy *Synchronizer) commit(gen uint64, subject string, p profile.Profile) (*profile.Profile, error) {
	sy.mu.Lock()
	defer sy.mu.Unlock()
	if sy.gen != gen || sy.active != subject {
		return nil, ErrStale
	}
	sy.current = &p
	sy.notify(sy.current)
	return copyProfile(sy.current), nil
}

// Close stops the polling loops and waits for them to return.
func (sy *Synchronizer) Close() {
	sy.mu.Lock()
	sy.closed = true
	sy.mu.Unlock()
	sy.cancel()
	sy.loops.Wait()
}

func copyProfile(p *profile.Profile) *profile.Profile {
	if p == nil {
		return nil
	}
	cp := *p
	return &cp
}
