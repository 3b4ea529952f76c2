package handoff_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/tmhaka/handoff"
)

// MockConfig implements handoff.Config
type MockConfig struct {
	mock.Mock
}

func (m *MockConfig) GetSigningKey() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockConfig) GetSessionSecret() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockConfig) GetTokenExpiration() int {
	args := m.Called()
	return args.Int(0)
}

func (m *MockConfig) GetSessionDuration() int {
	args := m.Called()
	return args.Int(0)
}

func (m *MockConfig) GetIssuer() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockConfig) GetAudience() []string {
	args := m.Called()
	return args.Get(0).([]string)
}

func (m *MockConfig) GetMainAppURL() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockConfig) GetJWKSEndpoint() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockConfig) GetEnvironment() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockConfig) IsProduction() bool {
	args := m.Called()
	return args.Bool(0)
}

func newTestConfig() *MockConfig {
	cfg := new(MockConfig)
	cfg.On("GetSigningKey").Return("test-signing-key")
	cfg.On("GetSessionSecret").Return("test-session-secret")
	cfg.On("GetTokenExpiration").Return(1)
	cfg.On("GetSessionDuration").Return(24)
	cfg.On("GetIssuer").Return("test-issuer")
	cfg.On("GetAudience").Return([]string{"test:audience"})
	cfg.On("GetMainAppURL").Return("https://primary.example.com")
	cfg.On("GetJWKSEndpoint").Return("")
	cfg.On("GetEnvironment").Return("test")
	cfg.On("IsProduction").Return(false)
	return cfg
}

// recordingSink captures every activity event it receives.
type recordingSink struct {
	mu     sync.Mutex
	events []handoff.ActivityEvent
}

func (s *recordingSink) Record(_ context.Context, event handoff.ActivityEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *recordingSink) Events() []handoff.ActivityEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]handoff.ActivityEvent, len(s.events))
	copy(out, s.events)
	return out
}

// signIdentityToken builds a bearer the way the primary application
// would: HS256 over identity claims. The signing key is irrelevant to
// the unverified decoder.
func signIdentityToken(t *testing.T, claims *handoff.IdentityClaims) string {
	t.Helper()

	if claims.ExpiresAt == nil {
		claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(time.Hour))
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	raw, err := token.SignedString([]byte("primary-app-secret"))
	require.NoError(t, err)

	return raw
}
