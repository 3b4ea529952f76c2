package handoff

import (
	"strings"

	"github.com/goliatone/go-errors"
)

const (
	TextCodeTokenMissing   = "handoff_token_missing"
	TextCodeTokenMalformed = "handoff_token_malformed"
	TextCodeTokenExpired   = "handoff_token_expired"
	TextCodeNotAuthd       = "handoff_not_authenticated"
	TextCodeAuthFailed     = "handoff_auth_failed"
	TextCodeProviderEmpty  = "handoff_provider_missing"
)

// ErrTokenMissing is returned when the callback carries no bearer token.
var ErrTokenMissing = errors.New("no token provided", errors.CategoryBadInput).
	WithTextCode(TextCodeTokenMissing).
	WithCode(errors.CodeBadRequest)

// ErrTokenMalformed is returned when a bearer token cannot be decoded.
var ErrTokenMalformed = errors.New("failed to parse token", errors.CategoryAuth).
	WithTextCode(TextCodeTokenMalformed).
	WithCode(errors.CodeUnauthorized)

// ErrTokenExpired is returned by verifying decoders on expired tokens.
var ErrTokenExpired = errors.New("token is expired", errors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired).
	WithCode(errors.CodeUnauthorized)

// ErrNotAuthenticated is returned when a protected route has no session.
var ErrNotAuthenticated = errors.New("not authenticated", errors.CategoryAuth).
	WithTextCode(TextCodeNotAuthd).
	WithCode(errors.CodeUnauthorized)

// ErrAuthenticationFailed is the generic terminal failure of a login
// or callback attempt. The underlying cause is logged, never leaked.
var ErrAuthenticationFailed = errors.New("authentication failed", errors.CategoryAuth).
	WithTextCode(TextCodeAuthFailed).
	WithCode(errors.CodeUnauthorized)

// ErrProviderMissing is returned when a login names no provider.
var ErrProviderMissing = errors.New("provider is required", errors.CategoryBadInput).
	WithTextCode(TextCodeProviderEmpty).
	WithCode(errors.CodeBadRequest)

// ErrUserNotFound is returned when a directory lookup misses.
var ErrUserNotFound = errors.New("user not found", errors.CategoryNotFound).
	WithCode(errors.CodeNotFound)

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError will check for error message
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "failed to parse token")
}
