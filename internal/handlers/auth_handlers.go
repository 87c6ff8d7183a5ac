package handlers

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"coursedesk/internal/common"
	"coursedesk/internal/services"
)

// AuthHandlers handles the authentication endpoints.
type AuthHandlers struct {
	authService services.AuthService
	logger      zerolog.Logger
}

func NewAuthHandlers(authService services.AuthService, logger zerolog.Logger) *AuthHandlers {
	return &AuthHandlers{
		authService: authService,
		logger:      logger,
	}
}

// LoginRequest is the login request payload.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login handles POST /auth/login.
func (h *AuthHandlers) Login(c echo.Context) error {
	ctx := c.Request().Context()

	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return common.Respond(c, common.ValidationError("Invalid request body"))
	}
	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.Password == "" {
		return common.Respond(c, common.ValidationError("Email and password are required"))
	}

	result, err := h.authService.Login(ctx, req.Email, req.Password)
	if err != nil {
		return common.Respond(c, err)
	}

	return c.JSON(http.StatusOK, result)
}

// RefreshRequest is the token refresh payload.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// Refresh handles POST /auth/refresh.
func (h *AuthHandlers) Refresh(c echo.Context) error {
	ctx := c.Request().Context()

	var req RefreshRequest
	if err := c.Bind(&req); err != nil {
		return common.Respond(c, common.ValidationError("Invalid request body"))
	}
	if req.RefreshToken == "" {
		return common.Respond(c, common.ValidationError("Refresh token is required"))
	}

	tokens, err := h.authService.Refresh(ctx, req.RefreshToken)
	if err != nil {
		return common.Respond(c, err)
	}

	return c.JSON(http.StatusOK, tokens)
}

// LogoutRequest is the optional logout payload.
type LogoutRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// Logout handles POST /auth/logout. It always reports success: a
// revocation failure must not leave the caller believing they are
// still logged in.
func (h *AuthHandlers) Logout(c echo.Context) error {
	ctx := c.Request().Context()

	var accessToken string
	if header := c.Request().Header.Get(echo.HeaderAuthorization); header != "" {
		if token := strings.TrimPrefix(header, "Bearer "); token != header {
			accessToken = token
		}
	}

	var req LogoutRequest
	if err := c.Bind(&req); err != nil {
		req.RefreshToken = ""
	}

	h.authService.Logout(ctx, accessToken, req.RefreshToken)

	return c.JSON(http.StatusOK, map[string]bool{"success": true})
}

// Me handles GET /auth/me.
func (h *AuthHandlers) Me(c echo.Context) error {
	ctx := c.Request().Context()

	identity, ok := common.IdentityFrom(ctx)
	if !ok {
		return common.Respond(c, common.ErrTokenMissing)
	}

	profile, err := h.authService.CurrentUser(ctx, identity)
	if err != nil {
		return common.Respond(c, err)
	}

	return c.JSON(http.StatusOK, profile)
}
