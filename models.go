package handoff

import (
	"strconv"
	"time"

	"github.com/uptrace/bun"
)

// ActivityType is the kind of authentication event an audit entry records.
type ActivityType = string

const (
	// ActivityLogin records a successful login
	ActivityLogin ActivityType = "login"
	// ActivityLogout records an explicit logout
	ActivityLogout ActivityType = "logout"
	// ActivityOther records anything else worth auditing
	ActivityOther ActivityType = "other"
)

// DefaultScopes are granted to every user minted through the handoff.
const DefaultScopes = "profile email read:data"

// UserMetadata holds the optional per-user attributes the primary
// application hands over. Keeping it typed means no untyped map
// access downstream.
type UserMetadata struct {
	EmailVerified bool   `json:"email_verified,omitempty"`
	ConnectedApps int    `json:"connected_apps,omitempty"`
	Browser       string `json:"browser,omitempty"`
	OS            string `json:"os,omitempty"`
	MainAppURL    string `json:"main_app_url,omitempty"`
	IsDemo        bool   `json:"is_demo,omitempty"`
}

// User is the local identity record derived from a federated login.
// (provider, email) and username are unique; records are mutated in
// place on repeat logins and never deleted.
type User struct {
	bun.BaseModel `bun:"table:users,alias:usr"`
	ID            int64         `bun:"id,pk,autoincrement" json:"id,omitempty"`
	Username      string        `bun:"username,notnull,unique" json:"username,omitempty"`
	PasswordHash  string        `bun:"password_hash" json:"password_hash,omitempty"`
	Name          string        `bun:"name,notnull" json:"name,omitempty"`
	Email         string        `bun:"email,notnull" json:"email,omitempty"`
	Avatar        string        `bun:"avatar" json:"avatar,omitempty"`
	Provider      string        `bun:"provider" json:"provider,omitempty"`
	ProviderID    string        `bun:"provider_id" json:"provider_id,omitempty"`
	AccessToken   string        `bun:"access_token" json:"access_token,omitempty"`
	RefreshToken  string        `bun:"refresh_token" json:"refresh_token,omitempty"`
	TokenExpiry   *time.Time    `bun:"token_expiry,nullzero" json:"token_expiry,omitempty"`
	Scopes        string        `bun:"scopes" json:"scopes,omitempty"`
	Metadata      *UserMetadata `bun:"metadata,type:jsonb" json:"metadata,omitempty"`
	CreatedAt     *time.Time    `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
}

// ActivityLog is an append-only audit record of an authentication event.
type ActivityLog struct {
	bun.BaseModel `bun:"table:activity_logs,alias:act"`
	ID            int64      `bun:"id,pk,autoincrement" json:"id,omitempty"`
	UserID        int64      `bun:"user_id,notnull" json:"user_id,omitempty"`
	Type          string     `bun:"type,notnull" json:"type,omitempty"`
	Description   string     `bun:"description,notnull" json:"description,omitempty"`
	UserAgent     string     `bun:"user_agent" json:"user_agent,omitempty"`
	IPAddress     string     `bun:"ip_address" json:"ip_address,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
}

// UserView is the client-safe projection of a User. It never carries
// the access or refresh token fields.
type UserView struct {
	ID             int64  `json:"id"`
	Name           string `json:"name"`
	Email          string `json:"email"`
	Avatar         string `json:"avatar,omitempty"`
	Provider       string `json:"provider"`
	Scopes         string `json:"scopes"`
	SessionExpires string `json:"sessionExpires"`
	ConnectedApps  int    `json:"connectedApps"`
	Browser        string `json:"browser"`
	OS             string `json:"os"`
}

// NewUserView builds the client-safe view of a user.
func NewUserView(user *User) *UserView {
	if user == nil {
		return nil
	}

	provider := user.Provider
	if provider == "" {
		provider = "federated"
	}

	scopes := user.Scopes
	if scopes == "" {
		scopes = DefaultScopes
	}

	view := &UserView{
		ID:             user.ID,
		Name:           user.Name,
		Email:          user.Email,
		Avatar:         user.Avatar,
		Provider:       provider,
		Scopes:         scopes,
		SessionExpires: formatSessionExpires(user.TokenExpiry),
		ConnectedApps:  1,
		Browser:        "Browser",
		OS:             "Operating System",
	}

	if m := user.Metadata; m != nil {
		if m.ConnectedApps > 0 {
			view.ConnectedApps = m.ConnectedApps
		}
		if m.Browser != "" {
			view.Browser = m.Browser
		}
		if m.OS != "" {
			view.OS = m.OS
		}
	}

	return view
}

func formatSessionExpires(expiry *time.Time) string {
	if expiry == nil {
		return "In 59 minutes"
	}
	minutes := int(time.Until(*expiry).Minutes())
	if minutes < 0 {
		minutes = 0
	}
	return "In " + strconv.Itoa(minutes) + " minutes"
}
