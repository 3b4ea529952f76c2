package handoff

import (
	"github.com/golang-jwt/jwt/v5"
)

// FirebaseClaim mirrors the nested claim block some primary apps emit.
type FirebaseClaim struct {
	Identities     map[string][]string `json:"identities,omitempty"`
	SignInProvider string              `json:"sign_in_provider,omitempty"`
}

// IdentityClaims are the identity attributes carried by the bearer
// token the primary application redirects back with.
type IdentityClaims struct {
	jwt.RegisteredClaims
	Name          string         `json:"name,omitempty"`
	Email         string         `json:"email,omitempty"`
	EmailVerified bool           `json:"email_verified,omitempty"`
	Picture       string         `json:"picture,omitempty"`
	SignIn        string         `json:"provider,omitempty"`
	Firebase      *FirebaseClaim `json:"firebase,omitempty"`
}

// Provider returns the issuing provider hint, or "federated" when the
// token carries none.
func (c *IdentityClaims) Provider() string {
	if c.Firebase != nil && c.Firebase.SignInProvider != "" {
		return c.Firebase.SignInProvider
	}
	if c.SignIn != "" {
		return c.SignIn
	}
	return "federated"
}

// SubjectID returns the provider-issued subject identifier.
func (c *IdentityClaims) SubjectID() string {
	return c.RegisteredClaims.Subject
}
