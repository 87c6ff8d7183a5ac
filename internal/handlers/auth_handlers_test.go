package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coursedesk/internal/common"
	"coursedesk/internal/models"
	"coursedesk/internal/services"
)

type stubAuthService struct {
	loginResult  *services.LoginResult
	loginErr     error
	refreshErr   error
	loggedOut    []string // access token then refresh token
	profile      *services.ProfileResult
	profileErr   error
	refreshedNew *models.TokenResponse
}

func (s *stubAuthService) Login(_ context.Context, email, password string) (*services.LoginResult, error) {
	if s.loginErr != nil {
		return nil, s.loginErr
	}
	return s.loginResult, nil
}

func (s *stubAuthService) Refresh(_ context.Context, _ string) (*models.TokenResponse, error) {
	if s.refreshErr != nil {
		return nil, s.refreshErr
	}
	return s.refreshedNew, nil
}

func (s *stubAuthService) Logout(_ context.Context, accessToken, refreshToken string) {
	s.loggedOut = []string{accessToken, refreshToken}
}

func (s *stubAuthService) CurrentUser(_ context.Context, _ common.Identity) (*services.ProfileResult, error) {
	if s.profileErr != nil {
		return nil, s.profileErr
	}
	return s.profile, nil
}

func performJSON(h echo.HandlerFunc, method, path, body string, header http.Header) (*httptest.ResponseRecorder, error) {
	e := echo.New()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	return rec, h(c)
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) common.ErrorResponse {
	t.Helper()
	var resp common.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestLogin_MissingFields(t *testing.T) {
	h := NewAuthHandlers(&stubAuthService{}, zerolog.Nop())

	rec, err := performJSON(h.Login, http.MethodPost, "/auth/login", `{"email":"a@b.test"}`, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_ERROR", decodeError(t, rec).Error.Code)
}

func TestLogin_MalformedBody(t *testing.T) {
	h := NewAuthHandlers(&stubAuthService{}, zerolog.Nop())

	rec, err := performJSON(h.Login, http.MethodPost, "/auth/login", `{"email":42}`, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLogin_InvalidCredentials(t *testing.T) {
	h := NewAuthHandlers(&stubAuthService{loginErr: common.ErrInvalidCredentials}, zerolog.Nop())

	rec, err := performJSON(h.Login, http.MethodPost, "/auth/login", `{"email":"a@b.test","password":"nope"}`, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "INVALID_CREDENTIALS", decodeError(t, rec).Error.Code)
}

func TestLogin_SubscriptionExpired(t *testing.T) {
	h := NewAuthHandlers(&stubAuthService{loginErr: common.ErrSubscriptionExpired}, zerolog.Nop())

	rec, err := performJSON(h.Login, http.MethodPost, "/auth/login", `{"email":"a@b.test","password":"pw"}`, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "SUBSCRIPTION_EXPIRED", decodeError(t, rec).Error.Code)
}

func TestLogin_Success(t *testing.T) {
	stub := &stubAuthService{loginResult: &services.LoginResult{
		TokenResponse: models.TokenResponse{
			AccessToken:  "access",
			RefreshToken: "refresh",
			TokenType:    "Bearer",
			ExpiresIn:    86400,
		},
		Client: &models.Account{ID: 1, Email: "owner@acme.test"},
	}}
	h := NewAuthHandlers(stub, zerolog.Nop())

	rec, err := performJSON(h.Login, http.MethodPost, "/auth/login", `{"email":"owner@acme.test","password":"pw"}`, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "access", body["accessToken"])
	assert.Equal(t, "refresh", body["refreshToken"])
	assert.EqualValues(t, 86400, body["expiresIn"])
	assert.Contains(t, body, "client")
}

func TestRefresh_MissingToken(t *testing.T) {
	h := NewAuthHandlers(&stubAuthService{}, zerolog.Nop())

	rec, err := performJSON(h.Refresh, http.MethodPost, "/auth/refresh", `{}`, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRefresh_TenantNotFound(t *testing.T) {
	h := NewAuthHandlers(&stubAuthService{refreshErr: common.ErrTenantNotFound}, zerolog.Nop())

	rec, err := performJSON(h.Refresh, http.MethodPost, "/auth/refresh", `{"refreshToken":"r1"}`, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLogout_AlwaysSucceeds(t *testing.T) {
	stub := &stubAuthService{}
	h := NewAuthHandlers(stub, zerolog.Nop())

	header := http.Header{}
	header.Set(echo.HeaderAuthorization, "Bearer the-access-token")

	rec, err := performJSON(h.Logout, http.MethodPost, "/auth/logout", `{"refreshToken":"the-refresh-token"}`, header)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true}`, rec.Body.String())
	assert.Equal(t, []string{"the-access-token", "the-refresh-token"}, stub.loggedOut)
}

func TestLogout_NoTokensStillSucceeds(t *testing.T) {
	stub := &stubAuthService{}
	h := NewAuthHandlers(stub, zerolog.Nop())

	rec, err := performJSON(h.Logout, http.MethodPost, "/auth/logout", ``, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true}`, rec.Body.String())
}

func TestMe_Unauthenticated(t *testing.T) {
	h := NewAuthHandlers(&stubAuthService{}, zerolog.Nop())

	rec, err := performJSON(h.Me, http.MethodGet, "/auth/me", ``, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMe_Success(t *testing.T) {
	stub := &stubAuthService{profile: &services.ProfileResult{
		User:   &models.User{ID: 10, TenantID: 1, Email: "alice@acme.test"},
		Client: &models.Account{ID: 1, Email: "owner@acme.test"},
	}}
	h := NewAuthHandlers(stub, zerolog.Nop())

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	identity := common.Identity{TenantID: 1, UserID: 10, Email: "alice@acme.test", Role: models.RoleUser}
	req = req.WithContext(common.WithIdentity(req.Context(), identity))
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	require.NoError(t, h.Me(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body, "user")
	assert.Contains(t, body, "client")
}
