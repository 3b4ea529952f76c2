package handoff

import (
	"context"
	"fmt"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Config holds handoff options
type Config interface {
	GetSigningKey() string
	GetSessionSecret() string
	GetTokenExpiration() int
	GetSessionDuration() int
	GetIssuer() string
	GetAudience() []string
	GetMainAppURL() string
	GetJWKSEndpoint() string
	GetEnvironment() string
	IsProduction() bool
}

// RequestMeta carries the per-request attributes the audit trail keeps.
type RequestMeta struct {
	UserAgent string
	IP        string
}

// Users is the user directory: (provider, email) and numeric id both
// resolve to the same record. Create assigns the next sequential id.
type Users interface {
	GetByID(ctx context.Context, id int64) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	GetByProviderEmail(ctx context.Context, provider, email string) (*User, error)
	Create(ctx context.Context, record *User) (*User, error)
	UpdateSession(ctx context.Context, id int64) (*User, error)
	UpdateToken(ctx context.Context, id int64, token string) (*User, error)
}

// ActivityLogs is the append-only audit trail.
type ActivityLogs interface {
	Create(ctx context.Context, entry *ActivityLog) (*ActivityLog, error)
	ListByUser(ctx context.Context, userID int64) ([]*ActivityLog, error)
}

// RepositoryManager exposes all repositories
type RepositoryManager interface {
	Users() Users
	ActivityLogs() ActivityLogs
	Validate() error
}

// Authenticator drives the handoff flow for the HTTP layer.
type Authenticator interface {
	Login(ctx context.Context, provider string, meta RequestMeta) (*AuthResult, error)
	Callback(ctx context.Context, provider, rawToken string, meta RequestMeta) (*AuthResult, error)
	Logout(ctx context.Context, user *User, meta RequestMeta) error
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] HANDOFF "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] HANDOFF "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] HANDOFF "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] HANDOFF "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
