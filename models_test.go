package handoff_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tmhaka/handoff"
)

func TestNewUserView(t *testing.T) {
	t.Run("nil user", func(t *testing.T) {
		assert.Nil(t, handoff.NewUserView(nil))
	})

	t.Run("defaults", func(t *testing.T) {
		view := handoff.NewUserView(&handoff.User{
			ID:    1,
			Name:  "Alice",
			Email: "alice@x.com",
		})

		assert.Equal(t, "federated", view.Provider)
		assert.Equal(t, handoff.DefaultScopes, view.Scopes)
		assert.Equal(t, 1, view.ConnectedApps)
		assert.Equal(t, "Browser", view.Browser)
		assert.Equal(t, "Operating System", view.OS)
		assert.NotEmpty(t, view.SessionExpires)
	})

	t.Run("metadata overrides the defaults", func(t *testing.T) {
		view := handoff.NewUserView(&handoff.User{
			ID:       1,
			Provider: "google",
			Metadata: &handoff.UserMetadata{
				ConnectedApps: 3,
				Browser:       "Firefox",
				OS:            "Linux",
			},
		})

		assert.Equal(t, "google", view.Provider)
		assert.Equal(t, 3, view.ConnectedApps)
		assert.Equal(t, "Firefox", view.Browser)
		assert.Equal(t, "Linux", view.OS)
	})

	t.Run("session expiry renders in minutes", func(t *testing.T) {
		expiry := time.Now().Add(30*time.Minute + 30*time.Second)
		view := handoff.NewUserView(&handoff.User{ID: 1, TokenExpiry: &expiry})
		assert.Equal(t, "In 30 minutes", view.SessionExpires)
	})

	t.Run("expired session clamps to zero", func(t *testing.T) {
		expiry := time.Now().Add(-10 * time.Minute)
		view := handoff.NewUserView(&handoff.User{ID: 1, TokenExpiry: &expiry})
		assert.Equal(t, "In 0 minutes", view.SessionExpires)
	})

	t.Run("never leaks token material", func(t *testing.T) {
		expiry := time.Now().Add(time.Hour)
		view := handoff.NewUserView(&handoff.User{
			ID:           1,
			Username:     "alice_1",
			PasswordHash: "$2a$10$secret",
			AccessToken:  "access-token",
			RefreshToken: "refresh-token",
			TokenExpiry:  &expiry,
		})

		raw, err := json.Marshal(view)
		require.NoError(t, err)

		var fields map[string]any
		require.NoError(t, json.Unmarshal(raw, &fields))

		for _, forbidden := range []string{
			"access_token", "refresh_token", "password_hash", "username", "provider_id",
		} {
			assert.NotContains(t, fields, forbidden)
		}
	})
}
