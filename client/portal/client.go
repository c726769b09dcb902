// Package portal is the Go client of the council API.
//
// It keeps the session and the profile in a session.Synchronizer, caches list queries in a
// querycache.Cache, applies likes and votes optimistically and listens to the live feed to
// invalidate cached lists changed by others.
package portal

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/sendgrid/rest"

	"github.com/trezcool/council/client/querycache"
	"github.com/trezcool/council/client/session"
	"github.com/trezcool/council/core/account"
	"github.com/trezcool/council/core/profile"
)

// APIError is a non 2xx answer of the API.
type APIError struct {
	StatusCode int
	// Message is the {"error": "..."} message, if any.
	Message string
	// Fields holds field validation errors.
	Fields map[string]string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if len(e.Fields) > 0 {
		names := make([]string, 0, len(e.Fields))
		for name := range e.Fields {
			names = append(names, name)
		}
		sort.Strings(names)
		parts := make([]string, 0, len(names))
		for _, name := range names {
			parts = append(parts, name+": "+e.Fields[name])
		}
		return strings.Join(parts, "; ")
	}
	return strings.ToLower(http.StatusText(e.StatusCode))
}

// NetworkError means the API could not be reached.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string { return "network error: " + e.Err.Error() }
func (e *NetworkError) Unwrap() error { return e.Err }

func parseAPIError(res *rest.Response) error {
	apiErr := &APIError{StatusCode: res.StatusCode}
	var body map[string]interface{}
	if err := json.Unmarshal([]byte(res.Body), &body); err != nil {
		return apiErr
	}
	if msg, ok := body["error"].(string); ok && len(body) == 1 {
		apiErr.Message = msg
		return apiErr
	}
	apiErr.Fields = make(map[string]string, len(body))
	for k, v := range body {
		if s, ok := v.(string); ok {
			apiErr.Fields[k] = s
		}
	}
	return apiErr
}

type Options struct {
	HTTPClient *http.Client
	Session    session.Options
}

type Client struct {
	baseURL string
	rest    *rest.Client
	cache   *querycache.Cache
	sync    *session.Synchronizer
}

// New returns a client of the API rooted at baseURL, e.g. http://localhost:8000/api.
func New(baseURL string, opts Options) *Client {
	hc := opts.HTTPClient
	if hc == nil {
		hc = http.DefaultClient
	}
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		rest:    &rest.Client{HTTPClient: hc},
		cache:   querycache.New(),
	}
	c.sync = session.NewSynchronizer(session.FetcherFunc(c.fetchProfile), c.cache, opts.Session)
	return c
}

// Close stops pending profile loads.
func (c *Client) Close() {
	c.sync.Close()
}

// Cache exposes the query cache, mostly for views that render stale values.
func (c *Client) Cache() *querycache.Cache { return c.cache }

// Session returns the current session, nil when signed out.
func (c *Client) Session() *account.Session { return c.sync.Session() }

// Subscribe calls fn with every published profile, see session.Synchronizer.Subscribe.
func (c *Client) Subscribe(fn func(*profile.Profile)) (unsubscribe func()) {
	return c.sync.Subscribe(fn)
}

func (c *Client) token() (string, error) {
	s := c.sync.Session()
	if s == nil {
		return "", session.ErrNoSession
	}
	return s.AccessToken, nil
}

// send runs a request and decodes the JSON answer into out (unless nil).
func (c *Client) send(ctx context.Context, method rest.Method, path, token string, body, out interface{}) error {
	req := rest.Request{
		Method:  method,
		BaseURL: c.baseURL + path,
		Headers: map[string]string{"Accept": "application/json"},
	}
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "encoding request")
		}
		req.Body = data
		req.Headers["Content-Type"] = "application/json"
	}
	if token != "" {
		req.Headers["Authorization"] = "Bearer " + token
	}

	res, err := c.rest.SendWithContext(ctx, req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &NetworkError{Err: err}
	}
	if res.StatusCode >= http.StatusBadRequest {
		return parseAPIError(res)
	}
	if out == nil || res.StatusCode == http.StatusNoContent {
		return nil
	}
	return errors.Wrapf(json.Unmarshal([]byte(res.Body), out), "decoding %s %s", method, path)
}

// authSend is send with the token of the current session.
func (c *Client) authSend(ctx context.Context, method rest.Method, path string, body, out interface{}) error {
	token, err := c.token()
	if err != nil {
		return err
	}
	return c.send(ctx, method, path, token, body, out)
}

// fetchCached serves key from the cache while it is fresh and fetches path otherwise.
// Answers requested before the cache was cleared are returned but not cached.
// The returned value is shared with the cache and must not be modified.
func fetchCached[T any](ctx context.Context, c *Client, key, path string) (T, error) {
	if v, ok, stale := querycache.Load[T](c.cache, key); ok && !stale {
		return v, nil
	}
	gen := c.cache.Generation()
	var out T
	if err := c.authSend(ctx, rest.Get, path, nil, &out); err != nil {
		return out, err
	}
	c.cache.SetIfGeneration(key, out, gen)
	return out, nil
}

func (c *Client) fetchProfile(ctx context.Context, s account.Session) (profile.Profile, error) {
	var p profile.Profile
	err := c.send(ctx, rest.Get, "/profile", s.AccessToken, nil, &p)
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
		return p, errors.Wrap(session.ErrProfileNotFound, apiErr.Error())
	}
	return p, err
}

// SignUp creates an account. Its profile is provisioned in the background.
func (c *Client) SignUp(ctx context.Context, su account.SignUp) (account.Account, error) {
	var acc account.Account
	err := c.send(ctx, rest.Post, "/auth/signup", "", su, &acc)
	return acc, err
}

// SignIn drops the cached data of the previous user before the credentials are even checked,
// then establishes the new session. The profile is loaded by Profile.
func (c *Client) SignIn(ctx context.Context, email, pwd string) (account.Session, error) {
	c.cache.Clear()

	var s account.Session
	if err := c.send(ctx, rest.Post, "/auth/login", "", account.Login{Email: email, Password: pwd}, &s); err != nil {
		return account.Session{}, err
	}
	c.sync.SignIn(s)
	return s, nil
}

// SignOut forgets the session and every cached query.
func (c *Client) SignOut() {
	c.sync.SignOut()
}

// Profile returns the profile of the signed in user, waiting for it to be provisioned if needed.
func (c *Client) Profile(ctx context.Context) (*profile.Profile, error) {
	return c.sync.Load(ctx)
}

func (c *Client) String() string {
	return fmt.Sprintf("portal.Client(%s)", c.baseURL)
}
