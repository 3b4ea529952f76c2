package handoff

import (
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
)

// LoginRequest is the POST /api/auth/login payload.
type LoginRequest struct {
	Provider string `json:"provider"`
}

// Validate implements payload validation.
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Provider, validation.Required),
	)
}

// CallbackRequest is the POST /api/auth/callback payload. The
// federated path carries a bearer token; the generic OAuth stub
// carries code and state instead.
type CallbackRequest struct {
	Provider string `json:"provider"`
	Token    string `json:"token"`
	Code     string `json:"code"`
	State    string `json:"state"`
}

// Validate implements payload validation.
func (r CallbackRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Provider, validation.Required),
	)
}

// HTTPController exposes the handoff over fiber routes.
type HTTPController struct {
	auth     Authenticator
	sessions *SessionManager
	activity ActivityLogs
	logger   Logger
}

// NewHTTPController creates the controller serving the auth endpoints.
func NewHTTPController(auth Authenticator, sessions *SessionManager, activity ActivityLogs) *HTTPController {
	return &HTTPController{
		auth:     auth,
		sessions: sessions,
		activity: activity,
		logger:   defLogger{},
	}
}

func (ctrl *HTTPController) WithLogger(logger Logger) *HTTPController {
	if logger != nil {
		ctrl.logger = logger
	}
	return ctrl
}

// RegisterRoutes mounts the auth API. The optional middleware is
// applied to the credential-accepting endpoints only.
func (ctrl *HTTPController) RegisterRoutes(app fiber.Router, mw ...fiber.Handler) {
	authGroup := app.Group("/api/auth")

	loginHandlers := append(append([]fiber.Handler{}, mw...), ctrl.Login)
	callbackHandlers := append(append([]fiber.Handler{}, mw...), ctrl.Callback)

	authGroup.Post("/login", loginHandlers...)
	authGroup.Post("/callback", callbackHandlers...)
	authGroup.Get("/me", ctrl.sessions.RequireAuth(), ctrl.Me)
	authGroup.Post("/logout", ctrl.Logout)
	authGroup.Get("/activity", ctrl.sessions.RequireAuth(), ctrl.Activity)

	app.Get("/api/protected", ctrl.sessions.RequireAuth(), ctrl.Protected)
}

// Login handles the non-federated provider path.
func (ctrl *HTTPController) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if err := req.Validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Provider is required",
		})
	}

	result, err := ctrl.auth.Login(c.UserContext(), req.Provider, ctrl.requestMeta(c))
	if err != nil {
		return ctrl.handleError(c, err)
	}

	if err := ctrl.sessions.Establish(c, result.UserID); err != nil {
		ctrl.logger.Error("session establish failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Login error",
		})
	}

	return c.JSON(fiber.Map{
		"user":  result.User,
		"token": result.Token,
	})
}

// Callback completes the redirect handoff from the primary application.
func (ctrl *HTTPController) Callback(c *fiber.Ctx) error {
	var req CallbackRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if err := req.Validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Provider is required",
		})
	}

	var result *AuthResult
	var err error

	switch {
	case req.Token != "":
		result, err = ctrl.auth.Callback(c.UserContext(), req.Provider, req.Token, ctrl.requestMeta(c))
	case req.Code != "":
		// Generic OAuth stub: no token to decode, fall through to the
		// fabricated provider path the way the primary app's demo does.
		result, err = ctrl.auth.Login(c.UserContext(), req.Provider, ctrl.requestMeta(c))
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "No token provided",
		})
	}

	if err != nil {
		return ctrl.handleError(c, err)
	}

	if err := ctrl.sessions.Establish(c, result.UserID); err != nil {
		ctrl.logger.Error("session establish failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Login error",
		})
	}

	return c.JSON(fiber.Map{
		"user":  result.User,
		"token": result.Token,
	})
}

// Me returns the client-safe view of the session's user.
func (ctrl *HTTPController) Me(c *fiber.Ctx) error {
	user, ok := UserFromContext(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Not authenticated",
		})
	}

	return c.JSON(NewUserView(user))
}

// Logout destroys the session. The logout activity entry is best
// effort and never blocks the logout outcome.
func (ctrl *HTTPController) Logout(c *fiber.Ctx) error {
	user, err := ctrl.sessions.CurrentUser(c)
	if err != nil {
		user = nil
	}

	if logoutErr := ctrl.auth.Logout(c.UserContext(), user, ctrl.requestMeta(c)); logoutErr != nil {
		ctrl.logger.Warn("logout activity failed: %v", logoutErr)
	}

	if err := ctrl.sessions.Destroy(c); err != nil {
		ctrl.logger.Error("session destroy failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Logout failed",
		})
	}

	return c.JSON(fiber.Map{"success": true})
}

// Activity lists the session user's audit entries, newest first.
func (ctrl *HTTPController) Activity(c *fiber.Ctx) error {
	user, ok := UserFromContext(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Not authenticated",
		})
	}

	entries, err := ctrl.activity.ListByUser(c.UserContext(), user.ID)
	if err != nil {
		return ctrl.handleError(c, err)
	}

	return c.JSON(fiber.Map{"activities": entries})
}

// Protected illustrates the session-gating pattern.
func (ctrl *HTTPController) Protected(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"message": "This is protected data accessible only to authenticated users",
	})
}

func (ctrl *HTTPController) requestMeta(c *fiber.Ctx) RequestMeta {
	return RequestMeta{
		UserAgent: c.Get(fiber.HeaderUserAgent),
		IP:        c.IP(),
	}
}

func (ctrl *HTTPController) handleError(c *fiber.Ctx, err error) error {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		richErr = goerrors.Wrap(err, goerrors.CategoryInternal, "Authentication error").
			WithCode(goerrors.CodeInternal)
	}

	ctrl.logger.Error(
		"auth request failed (%s): %s %s",
		richErr.Category,
		richErr.Message,
		print.MaybePrettyJSON(richErr.Metadata),
	)

	status := int(richErr.Code)
	if status == 0 {
		status = fiber.StatusInternalServerError
	}

	// Generic messages only; the original error stays in the logs.
	message := "Authentication error"
	switch richErr.Category {
	case goerrors.CategoryAuth, goerrors.CategoryAuthz:
		message = "Authentication failed"
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		message = richErr.Message
	}

	return c.Status(status).JSON(fiber.Map{"error": message})
}
