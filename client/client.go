// Package client mirrors the browser-side auth state for the handoff
// demo: it stores the opaque bearer token the way the web client keeps
// it in local storage, drives login/logout/check-status against the
// server, and models the redirect handoff to the primary application
// as an explicit two-phase protocol.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sync"
	"time"

	goerrors "github.com/goliatone/go-errors"

	"github.com/tmhaka/handoff"
)

// Storage keys mirroring the web client's local storage.
const (
	TokenStorageKey    = "auth_token"
	StateStorageKey    = "auth_state"
	ProviderStorageKey = "auth_provider"
)

// ErrNoCallbackToken is returned when the redirect URL carries no token.
var ErrNoCallbackToken = goerrors.New("callback URL carries no token", goerrors.CategoryBadInput).
	WithCode(goerrors.CodeBadRequest)

// ErrNotAuthenticated is returned when the server reports no session.
var ErrNotAuthenticated = goerrors.New("not authenticated", goerrors.CategoryAuth).
	WithCode(goerrors.CodeUnauthorized)

// TokenStore is the persistent storage the auth state keeps its
// bearer material in.
type TokenStore interface {
	Get(key string) (string, bool)
	Set(key, value string)
	Delete(key string)
	Clear()
}

// MemoryStore is an in-process TokenStore.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

func (s *MemoryStore) Get(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok
}

func (s *MemoryStore) Set(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
}

func (s *MemoryStore) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
}

func (s *MemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values = make(map[string]string)
}

// AuthState is the ephemeral UI-facing projection of the session.
type AuthState struct {
	IsAuthenticated bool
	User            *handoff.UserView
	Loading         bool
	Err             string
}

// AuthClient drives the auth endpoints and keeps AuthState in sync.
// The session cookie remains the server-side source of truth; the
// stored token is bearer material attached to API calls.
type AuthClient struct {
	baseURL string
	http    *http.Client
	store   TokenStore

	mu    sync.Mutex
	state AuthState
}

// Option configures the AuthClient.
type Option func(*AuthClient)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *AuthClient) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTokenStore overrides the token store.
func WithTokenStore(store TokenStore) Option {
	return func(c *AuthClient) {
		if store != nil {
			c.store = store
		}
	}
}

// New creates an AuthClient against the given server base URL. The
// default HTTP client carries a cookie jar so the session cookie
// round-trips like a browser's.
func New(baseURL string, opts ...Option) (*AuthClient, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create cookie jar")
	}

	c := &AuthClient{
		baseURL: baseURL,
		http: &http.Client{
			Jar:     jar,
			Timeout: 10 * time.Second,
		},
		store: NewMemoryStore(),
	}

	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}

	return c, nil
}

// State returns a snapshot of the current auth state.
func (c *AuthClient) State() AuthState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// SignInURL builds the phase-1 redirect to the primary application's
// sign-in page, carrying this application's callback URL. Control does
// not return to the caller; phase 2 is a fresh request through
// HandleCallback.
func (c *AuthClient) SignInURL(mainAppURL string) string {
	callback := c.baseURL + "/auth/callback"
	return mainAppURL + "/signin?callback=" + url.QueryEscape(callback)
}

// Login authenticates through a named provider (the non-federated
// stub path) and stores the returned bearer token.
func (c *AuthClient) Login(ctx context.Context, provider string) (*handoff.UserView, error) {
	c.setLoading(true)

	var resp authResponse
	err := c.postJSON(ctx, "/api/auth/login", map[string]string{"provider": provider}, &resp)
	if err != nil {
		c.setError(err)
		return nil, err
	}

	c.store.Set(TokenStorageKey, resp.Token)
	c.store.Set(ProviderStorageKey, provider)
	c.setAuthenticated(resp.User)

	return resp.User, nil
}

// HandleCallback completes phase 2 of the handoff: the primary
// application redirected the browser back with a token query
// parameter. The token is extracted, stored, and exchanged for a
// session via the server callback endpoint.
func (c *AuthClient) HandleCallback(ctx context.Context, redirectURL string) (*handoff.UserView, error) {
	parsed, err := url.Parse(redirectURL)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryBadInput, "invalid callback URL")
	}

	token := parsed.Query().Get("token")
	if token == "" {
		return nil, ErrNoCallbackToken
	}

	c.store.Set(TokenStorageKey, token)

	provider, ok := c.store.Get(ProviderStorageKey)
	if !ok || provider == "" {
		provider = "federated"
	}

	c.setLoading(true)

	var resp authResponse
	err = c.postJSON(ctx, "/api/auth/callback", map[string]string{
		"provider": provider,
		"token":    token,
	}, &resp)
	if err != nil {
		c.setError(err)
		return nil, err
	}

	c.store.Set(TokenStorageKey, resp.Token)
	c.setAuthenticated(resp.User)

	return resp.User, nil
}

// CurrentUser rehydrates the auth state from the server's "who am I"
// endpoint.
func (c *AuthClient) CurrentUser(ctx context.Context) (*handoff.UserView, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/auth/me", nil)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to build request")
	}
	c.attachBearer(req)

	res, err := c.http.Do(req)
	if err != nil {
		c.setError(err)
		return nil, goerrors.Wrap(err, goerrors.CategoryOperation, "who-am-I request failed")
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusUnauthorized {
		c.clearState()
		return nil, ErrNotAuthenticated
	}
	if res.StatusCode != http.StatusOK {
		err := goerrors.New("unexpected who-am-I status", goerrors.CategoryOperation).
			WithMetadata(map[string]any{"status": res.StatusCode})
		c.setError(err)
		return nil, err
	}

	user := &handoff.UserView{}
	if err := json.NewDecoder(res.Body).Decode(user); err != nil {
		c.setError(err)
		return nil, goerrors.Wrap(err, goerrors.CategoryOperation, "failed to decode user")
	}

	c.setAuthenticated(user)
	return user, nil
}

// CheckStatus reports whether the server still holds a session for us.
func (c *AuthClient) CheckStatus(ctx context.Context) bool {
	_, err := c.CurrentUser(ctx)
	return err == nil
}

// Logout destroys the server session and clears all local state.
func (c *AuthClient) Logout(ctx context.Context) error {
	err := c.postJSON(ctx, "/api/auth/logout", map[string]string{}, &struct {
		Success bool `json:"success"`
	}{})

	// Local state goes regardless: the demo treats logout as always
	// clearing the client even when the server call fails.
	c.store.Clear()
	c.clearState()

	return err
}

type authResponse struct {
	User  *handoff.UserView `json:"user"`
	Token string            `json:"token"`
}

func (c *AuthClient) postJSON(ctx context.Context, path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to encode payload")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to build request")
	}
	req.Header.Set("Content-Type", "application/json")
	c.attachBearer(req)

	res, err := c.http.Do(req)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryOperation, "request failed")
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusUnauthorized {
		return ErrNotAuthenticated
	}
	if res.StatusCode >= http.StatusBadRequest {
		return goerrors.New("request rejected", goerrors.CategoryOperation).
			WithMetadata(map[string]any{"status": res.StatusCode, "path": path})
	}

	if out != nil {
		if err := json.NewDecoder(res.Body).Decode(out); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryOperation, "failed to decode response")
		}
	}

	return nil
}

func (c *AuthClient) attachBearer(req *http.Request) {
	if token, ok := c.store.Get(TokenStorageKey); ok && token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

func (c *AuthClient) setLoading(loading bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Loading = loading
	c.state.Err = ""
}

func (c *AuthClient) setAuthenticated(user *handoff.UserView) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = AuthState{IsAuthenticated: true, User: user}
	c.persistStateLocked()
}

func (c *AuthClient) setError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Loading = false
	if err != nil {
		c.state.Err = err.Error()
	}
}

func (c *AuthClient) clearState() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = AuthState{}
	c.store.Delete(StateStorageKey)
}

// persistStateLocked snapshots the auth state under the state storage
// key, mirroring the web client's local-storage persistence.
func (c *AuthClient) persistStateLocked() {
	snapshot, err := json.Marshal(c.state)
	if err != nil {
		return
	}
	c.store.Set(StateStorageKey, string(snapshot))
}
