package handoff

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

// MetricsRecorder receives auth-flow outcomes. The metrics package
// provides a Prometheus-backed implementation.
type MetricsRecorder interface {
	RecordLogin(provider string, success bool)
	RecordCallback(provider string, success bool)
	RecordLogout()
}

type noopMetrics struct{}

func (noopMetrics) RecordLogin(string, bool)    {}
func (noopMetrics) RecordCallback(string, bool) {}
func (noopMetrics) RecordLogout()               {}

// AuthResult is what a successful login or callback hands back to the
// HTTP layer: the client-safe view, a freshly minted bearer string for
// client-side storage, and whether the directory minted a new record.
type AuthResult struct {
	User      *UserView
	UserID    int64
	Token     string
	IsNewUser bool
}

// Auther coordinates the handoff: decode the credential, resolve or
// create the user, record the activity, mint the client token. Session
// establishment stays with the HTTP layer.
type Auther struct {
	repo         RepositoryManager
	decoder      TokenDecoder
	tokens       TokenService
	activitySink ActivitySink
	metrics      MetricsRecorder
	logger       Logger
	stubEnabled  bool
}

var _ Authenticator = (*Auther)(nil)

// NewAuthenticator returns a new Authenticator
func NewAuthenticator(repo RepositoryManager, decoder TokenDecoder, tokens TokenService) *Auther {
	return &Auther{
		repo:         repo,
		decoder:      decoder,
		tokens:       tokens,
		activitySink: noopActivitySink{},
		metrics:      noopMetrics{},
		logger:       defLogger{},
		stubEnabled:  true,
	}
}

func (s *Auther) WithLogger(logger Logger) *Auther {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// WithActivitySink configures an ActivitySink for auth events.
func (s *Auther) WithActivitySink(sink ActivitySink) *Auther {
	s.activitySink = normalizeActivitySink(sink)
	return s
}

// WithMetrics configures a MetricsRecorder for flow outcomes.
func (s *Auther) WithMetrics(recorder MetricsRecorder) *Auther {
	if recorder != nil {
		s.metrics = recorder
	}
	return s
}

// WithStubProvider toggles the non-federated demo path. It is test
// scaffolding kept behind a flag, on by default for the demo server.
func (s *Auther) WithStubProvider(enabled bool) *Auther {
	s.stubEnabled = enabled
	return s
}

// Login authenticates through the stub path: no external call is made,
// a demo identity is fabricated for the named provider and resolved
// against the directory.
func (s *Auther) Login(ctx context.Context, provider string, meta RequestMeta) (*AuthResult, error) {
	flow := NewAuthFlow()

	if provider == "" {
		return nil, ErrProviderMissing
	}

	if err := flow.Transition(FlowPending); err != nil {
		return nil, err
	}

	if !s.stubEnabled {
		_ = flow.Transition(FlowFailed)
		s.metrics.RecordLogin(provider, false)
		return nil, ErrAuthenticationFailed
	}

	result, err := s.establish(ctx, flow, provider, s.stubUser(provider, meta), "", meta)
	s.metrics.RecordLogin(provider, err == nil)
	return result, err
}

// Callback completes the federated path: the bearer token the primary
// application redirected back with is decoded into claims and resolved
// against the directory. A decode failure commits nothing.
func (s *Auther) Callback(ctx context.Context, provider, rawToken string, meta RequestMeta) (*AuthResult, error) {
	flow := NewAuthFlow()

	if err := flow.Transition(FlowPending); err != nil {
		return nil, err
	}

	if rawToken == "" {
		_ = flow.Transition(FlowFailed)
		s.metrics.RecordCallback(provider, false)
		return nil, ErrTokenMissing
	}

	claims, err := s.decoder.Decode(rawToken)
	if err != nil {
		_ = flow.Transition(FlowFailed)
		s.logger.Error("callback token decode failed for provider %s: %v", provider, err)
		s.metrics.RecordCallback(provider, false)
		return nil, err
	}

	record := s.userFromClaims(claims, rawToken, meta)

	result, err := s.establish(ctx, flow, record.Provider, record, rawToken, meta)
	s.metrics.RecordCallback(provider, err == nil)
	return result, err
}

// Logout records the logout activity. Activity failures are logged and
// swallowed so logout itself never fails on the audit trail.
func (s *Auther) Logout(ctx context.Context, user *User, meta RequestMeta) error {
	s.metrics.RecordLogout()

	if user == nil {
		return nil
	}

	s.emitActivity(ctx, ActivityEvent{
		Type:        ActivityLogout,
		UserID:      user.ID,
		Description: "User logged out",
		Meta:        meta,
	})

	return nil
}

// establish resolves or creates the user, refreshes its token fields,
// records the login activity and mints the client bearer.
func (s *Auther) establish(ctx context.Context, flow *AuthFlow, provider string, record *User, rawToken string, meta RequestMeta) (*AuthResult, error) {
	user, isNew, err := s.resolveUser(ctx, provider, record, rawToken)
	if err != nil {
		_ = flow.Transition(FlowFailed)
		s.logger.Error("identity resolution failed for provider %s: %v", provider, err)
		return nil, s.internalError(err)
	}

	description := "Successful login"
	if isNew {
		description = "Account created and first login"
	}

	s.emitActivity(ctx, ActivityEvent{
		Type:        ActivityLogin,
		UserID:      user.ID,
		Description: description,
		Meta:        meta,
	})

	token, err := s.tokens.Mint(user)
	if err != nil {
		_ = flow.Transition(FlowFailed)
		s.logger.Error("bearer mint failed: %v", err)
		return nil, s.internalError(err)
	}

	if err := flow.Transition(FlowAuthenticated); err != nil {
		return nil, err
	}

	return &AuthResult{
		User:      NewUserView(user),
		UserID:    user.ID,
		Token:     token,
		IsNewUser: isNew,
	}, nil
}

func (s *Auther) resolveUser(ctx context.Context, provider string, record *User, rawToken string) (*User, bool, error) {
	users := s.repo.Users()

	existing, err := users.GetByProviderEmail(ctx, provider, record.Email)
	if err != nil {
		if !goerrors.IsNotFound(err) {
			return nil, false, err
		}
		existing = nil
	}

	if existing != nil {
		if rawToken != "" {
			existing, err = users.UpdateToken(ctx, existing.ID, rawToken)
		} else {
			existing, err = users.UpdateSession(ctx, existing.ID)
		}
		if err != nil {
			return nil, false, err
		}
		return existing, false, nil
	}

	created, err := users.Create(ctx, record)
	if err != nil {
		return nil, false, err
	}
	return created, true, nil
}

// stubUser fabricates the demo identity the non-federated path signs in.
func (s *Auther) stubUser(provider string, meta RequestMeta) *User {
	expiry := time.Now().Add(time.Hour)

	browser := "Unknown"
	if meta.UserAgent != "" {
		browser = "Browser"
	}

	return &User{
		Username:     "user_" + randomHex(4),
		PasswordHash: RandomPasswordHash(),
		Name:         "Demo User",
		Email:        "demo@example.com",
		Provider:     provider,
		ProviderID:   provider + "_id_" + randomHex(8),
		AccessToken:  "mock_access_token_" + randomHex(8),
		RefreshToken: "mock_refresh_token_" + randomHex(8),
		TokenExpiry:  &expiry,
		Scopes:       DefaultScopes,
		Metadata: &UserMetadata{
			IsDemo:        true,
			ConnectedApps: 1,
			Browser:       browser,
			OS:            "Operating System",
		},
	}
}

// userFromClaims derives a directory record from decoded token claims.
// Expiry is recomputed as now+1h, an approximation carried over from
// the handoff contract rather than a verified claim.
func (s *Auther) userFromClaims(claims *IdentityClaims, rawToken string, meta RequestMeta) *User {
	expiry := time.Now().Add(time.Hour)

	browser := "Browser"
	if meta.UserAgent == "" {
		browser = "Unknown"
	}

	return &User{
		Username:     usernameFromEmail(claims.Email),
		PasswordHash: RandomPasswordHash(),
		Name:         claims.Name,
		Email:        claims.Email,
		Avatar:       claims.Picture,
		Provider:     claims.Provider(),
		ProviderID:   claims.SubjectID(),
		AccessToken:  rawToken,
		TokenExpiry:  &expiry,
		Scopes:       DefaultScopes,
		Metadata: &UserMetadata{
			EmailVerified: claims.EmailVerified,
			ConnectedApps: 1,
			Browser:       browser,
			OS:            "Operating System",
		},
	}
}

func (s *Auther) emitActivity(ctx context.Context, event ActivityEvent) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}

	if err := s.activitySink.Record(ctx, event); err != nil {
		s.logger.Warn("activity sink record error: %v", err)
	}
}

func (s *Auther) internalError(err error) error {
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return richErr
	}
	return goerrors.Wrap(err, goerrors.CategoryInternal, "authentication error").
		WithCode(goerrors.CodeInternal)
}

// usernameFromEmail generates a unique username seeded by the email's
// local part. The suffix keeps distinct providers with the same email
// from colliding on the username index.
func usernameFromEmail(email string) string {
	local := email
	for i := 0; i < len(email); i++ {
		if email[i] == '@' {
			local = email[:i]
			break
		}
	}
	if local == "" {
		local = "user"
	}
	return local + "_" + randomHex(4)
}

func randomHex(n int) string {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return hex.EncodeToString([]byte(time.Now().String()))[:n*2]
	}
	return hex.EncodeToString(buf)
}
