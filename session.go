package handoff

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
)

// SessionCookieName is the cookie carrying the server-side session id.
const SessionCookieName = "handoff_session"

const sessionUserIDKey = "user_id"

// SessionManager wraps fiber's cookie session store. The session
// serializes only the user id; the full record is resolved through
// the user directory on each request. Expiry is a fixed 24 hour
// window, not sliding.
type SessionManager struct {
	store  *session.Store
	users  Users
	logger Logger
}

// NewSessionManager builds the session store from config: HTTP-only
// cookies, Secure outside development, Lax same-site.
func NewSessionManager(users Users, cfg Config) *SessionManager {
	duration := 24 * time.Hour
	if cfg != nil && cfg.GetSessionDuration() > 0 {
		duration = time.Duration(cfg.GetSessionDuration()) * time.Hour
	}

	secure := cfg != nil && cfg.IsProduction()

	store := session.New(session.Config{
		Expiration:     duration,
		KeyLookup:      "cookie:" + SessionCookieName,
		CookieHTTPOnly: true,
		CookieSecure:   secure,
		CookieSameSite: "Lax",
	})

	return &SessionManager{
		store:  store,
		users:  users,
		logger: defLogger{},
	}
}

func (m *SessionManager) WithLogger(logger Logger) *SessionManager {
	if logger != nil {
		m.logger = logger
	}
	return m
}

// Establish serializes the user id into a fresh session and sets the
// cookie on the response.
func (m *SessionManager) Establish(c *fiber.Ctx, userID int64) error {
	sess, err := m.store.Get(c)
	if err != nil {
		return err
	}

	sess.Set(sessionUserIDKey, userID)
	return sess.Save()
}

// CurrentUser resolves the session back into a full user record.
func (m *SessionManager) CurrentUser(c *fiber.Ctx) (*User, error) {
	sess, err := m.store.Get(c)
	if err != nil {
		return nil, ErrNotAuthenticated
	}

	raw := sess.Get(sessionUserIDKey)
	if raw == nil {
		return nil, ErrNotAuthenticated
	}

	userID, ok := raw.(int64)
	if !ok {
		return nil, ErrNotAuthenticated
	}

	user, err := m.users.GetByID(c.UserContext(), userID)
	if err != nil {
		m.logger.Warn("session user %d no longer resolvable", userID)
		return nil, ErrNotAuthenticated
	}

	return user, nil
}

// IsAuthenticated reports whether the request carries a live session.
func (m *SessionManager) IsAuthenticated(c *fiber.Ctx) bool {
	_, err := m.CurrentUser(c)
	return err == nil
}

// Destroy tears the session down and clears the cookie.
func (m *SessionManager) Destroy(c *fiber.Ctx) error {
	sess, err := m.store.Get(c)
	if err != nil {
		return err
	}
	return sess.Destroy()
}

// RequireAuth gates protected routes: no valid session means 401 with
// a generic message, never a partial payload.
func (m *SessionManager) RequireAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, err := m.CurrentUser(c)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Not authenticated",
			})
		}

		c.Locals(ContextUserKey, user)
		return c.Next()
	}
}

// ContextUserKey is the fiber locals key the resolved user is stored under.
const ContextUserKey = "handoff_user"

// UserFromContext returns the user RequireAuth resolved, if any.
func UserFromContext(c *fiber.Ctx) (*User, bool) {
	user, ok := c.Locals(ContextUserKey).(*User)
	return user, ok && user != nil
}
