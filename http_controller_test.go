package handoff_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tmhaka/handoff"
	"github.com/tmhaka/handoff/memory"
)

func newTestApp(t *testing.T) (*fiber.App, *memory.Manager) {
	t.Helper()

	store := memory.NewManager()
	auther := newTestAuther(store)
	sessions := handoff.NewSessionManager(store.Users(), newTestConfig())

	app := fiber.New()
	ctrl := handoff.NewHTTPController(auther, sessions, store.ActivityLogs())
	ctrl.RegisterRoutes(app)

	return app, store
}

func jsonRequest(t *testing.T, method, target string, payload any) *http.Request {
	t.Helper()

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, target, body)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req
}

func decodeBody(t *testing.T, res *http.Response, out any) {
	t.Helper()
	defer res.Body.Close()
	require.NoError(t, json.NewDecoder(res.Body).Decode(out))
}

// carryCookies copies the session cookie from a response onto the next
// request, standing in for the browser.
func carryCookies(req *http.Request, res *http.Response) {
	for _, cookie := range res.Cookies() {
		req.AddCookie(cookie)
	}
}

func TestHTTPLogin(t *testing.T) {
	t.Run("establishes a session and returns user and token", func(t *testing.T) {
		app, _ := newTestApp(t)

		res, err := app.Test(jsonRequest(t, fiber.MethodPost, "/api/auth/login", fiber.Map{
			"provider": "google",
		}))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, res.StatusCode)

		var body struct {
			User  *handoff.UserView `json:"user"`
			Token string            `json:"token"`
		}
		decodeBody(t, res, &body)

		require.NotNil(t, body.User)
		assert.Equal(t, int64(1), body.User.ID)
		assert.Equal(t, "Demo User", body.User.Name)
		assert.NotEmpty(t, body.Token)

		var gotSessionCookie bool
		for _, cookie := range res.Cookies() {
			if cookie.Name == handoff.SessionCookieName {
				gotSessionCookie = true
				assert.True(t, cookie.HttpOnly)
			}
		}
		assert.True(t, gotSessionCookie)
	})

	t.Run("missing provider", func(t *testing.T) {
		app, _ := newTestApp(t)

		res, err := app.Test(jsonRequest(t, fiber.MethodPost, "/api/auth/login", fiber.Map{}))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusBadRequest, res.StatusCode)

		var body map[string]string
		decodeBody(t, res, &body)
		assert.Equal(t, "Provider is required", body["error"])
	})

	t.Run("malformed body", func(t *testing.T) {
		app, _ := newTestApp(t)

		req := httptest.NewRequest(fiber.MethodPost, "/api/auth/login", bytes.NewReader([]byte("{nope")))
		req.Header.Set("Content-Type", "application/json")

		res, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusBadRequest, res.StatusCode)
	})
}

func TestHTTPCallback(t *testing.T) {
	t.Run("token path", func(t *testing.T) {
		app, _ := newTestApp(t)

		res, err := app.Test(jsonRequest(t, fiber.MethodPost, "/api/auth/callback", fiber.Map{
			"provider": "google",
			"token":    aliceToken(t),
		}))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, res.StatusCode)

		var body struct {
			User *handoff.UserView `json:"user"`
		}
		decodeBody(t, res, &body)
		require.NotNil(t, body.User)
		assert.Equal(t, "Alice", body.User.Name)
	})

	t.Run("code path falls back to the stub provider", func(t *testing.T) {
		app, _ := newTestApp(t)

		res, err := app.Test(jsonRequest(t, fiber.MethodPost, "/api/auth/callback", fiber.Map{
			"provider": "github",
			"code":     "oauth-code",
			"state":    "oauth-state",
		}))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, res.StatusCode)

		var body struct {
			User *handoff.UserView `json:"user"`
		}
		decodeBody(t, res, &body)
		require.NotNil(t, body.User)
		assert.Equal(t, "github", body.User.Provider)
	})

	t.Run("neither token nor code", func(t *testing.T) {
		app, _ := newTestApp(t)

		res, err := app.Test(jsonRequest(t, fiber.MethodPost, "/api/auth/callback", fiber.Map{
			"provider": "google",
		}))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusBadRequest, res.StatusCode)

		var body map[string]string
		decodeBody(t, res, &body)
		assert.Equal(t, "No token provided", body["error"])
	})

	t.Run("malformed token yields a generic auth failure", func(t *testing.T) {
		app, _ := newTestApp(t)

		res, err := app.Test(jsonRequest(t, fiber.MethodPost, "/api/auth/callback", fiber.Map{
			"provider": "google",
			"token":    "not-a-jwt",
		}))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusUnauthorized, res.StatusCode)

		var body map[string]string
		decodeBody(t, res, &body)
		assert.Equal(t, "Authentication failed", body["error"])
	})
}

func TestHTTPProtectedRoutes(t *testing.T) {
	protected := []string{"/api/auth/me", "/api/auth/activity", "/api/protected"}

	t.Run("no session means 401", func(t *testing.T) {
		app, _ := newTestApp(t)

		for _, target := range protected {
			res, err := app.Test(httptest.NewRequest(fiber.MethodGet, target, nil))
			require.NoError(t, err)
			assert.Equal(t, fiber.StatusUnauthorized, res.StatusCode, target)

			var body map[string]string
			decodeBody(t, res, &body)
			assert.Equal(t, "Not authenticated", body["error"], target)
		}
	})

	t.Run("bearer token alone does not open the gate", func(t *testing.T) {
		app, _ := newTestApp(t)

		// Mint a perfectly good token but present no cookie.
		raw := signIdentityToken(t, &handoff.IdentityClaims{
			RegisteredClaims: jwt.RegisteredClaims{Subject: "abc"},
			Email:            "alice@x.com",
		})

		req := httptest.NewRequest(fiber.MethodGet, "/api/protected", nil)
		req.Header.Set("Authorization", "Bearer "+raw)

		res, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusUnauthorized, res.StatusCode)
	})
}

func TestHTTPFullCycle(t *testing.T) {
	app, _ := newTestApp(t)

	// Login.
	loginRes, err := app.Test(jsonRequest(t, fiber.MethodPost, "/api/auth/login", fiber.Map{
		"provider": "google",
	}))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, loginRes.StatusCode)

	// Me with the session cookie.
	meReq := httptest.NewRequest(fiber.MethodGet, "/api/auth/me", nil)
	carryCookies(meReq, loginRes)

	meRes, err := app.Test(meReq)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, meRes.StatusCode)

	var view handoff.UserView
	decodeBody(t, meRes, &view)
	assert.Equal(t, int64(1), view.ID)
	assert.Equal(t, "demo@example.com", view.Email)

	// Activity with the session cookie.
	actReq := httptest.NewRequest(fiber.MethodGet, "/api/auth/activity", nil)
	carryCookies(actReq, loginRes)

	actRes, err := app.Test(actReq)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, actRes.StatusCode)

	var activity struct {
		Activities []*handoff.ActivityLog `json:"activities"`
	}
	decodeBody(t, actRes, &activity)
	require.Len(t, activity.Activities, 1)
	assert.Equal(t, "Account created and first login", activity.Activities[0].Description)

	// Logout.
	logoutReq := jsonRequest(t, fiber.MethodPost, "/api/auth/logout", nil)
	carryCookies(logoutReq, loginRes)

	logoutRes, err := app.Test(logoutReq)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, logoutRes.StatusCode)

	var logoutBody map[string]bool
	decodeBody(t, logoutRes, &logoutBody)
	assert.True(t, logoutBody["success"])

	// The old cookie no longer opens the gate.
	afterReq := httptest.NewRequest(fiber.MethodGet, "/api/auth/me", nil)
	carryCookies(afterReq, loginRes)

	afterRes, err := app.Test(afterReq)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, afterRes.StatusCode)
}

func TestHTTPLogoutWithoutSession(t *testing.T) {
	app, _ := newTestApp(t)

	// Logout never fails on a missing session.
	res, err := app.Test(jsonRequest(t, fiber.MethodPost, "/api/auth/logout", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, res.StatusCode)

	var body map[string]bool
	decodeBody(t, res, &body)
	assert.True(t, body["success"])
}
