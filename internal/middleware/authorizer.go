package middleware

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"coursedesk/internal/caching"
	"coursedesk/internal/common"
	"coursedesk/internal/security"
	"coursedesk/internal/services"
)

// HeaderAdminKey carries the shared admin secret on admin-keyed routes.
const HeaderAdminKey = "X-Admin-Key"

// RouteConfig classifies request paths. It is injected at construction;
// there are no package-level route lists to mutate.
type RouteConfig struct {
	// PublicPrefixes bypass all checks.
	PublicPrefixes []string
	// AdminPrefixes are gated by the shared admin key, never by tokens.
	AdminPrefixes []string
}

type routeClass int

const (
	routeTenant routeClass = iota
	routePublic
	routeAdmin
)

// Authorizer is the request-time gate every inbound request passes
// through: classify the route, verify the bearer token, check the
// session record, check the subscription, then attach the resolved
// identity for downstream handlers. It is the only component that
// constructs an identity context.
type Authorizer struct {
	routes        RouteConfig
	tokens        *security.TokenManager
	sessions      services.SessionService
	subscriptions services.SubscriptionService
	adminKey      []byte
	logger        zerolog.Logger
}

func NewAuthorizer(
	routes RouteConfig,
	tokens *security.TokenManager,
	sessions services.SessionService,
	subscriptions services.SubscriptionService,
	adminKey string,
	logger zerolog.Logger,
) *Authorizer {
	return &Authorizer{
		routes:        routes,
		tokens:        tokens,
		sessions:      sessions,
		subscriptions: subscriptions,
		adminKey:      []byte(adminKey),
		logger:        logger,
	}
}

func (a *Authorizer) classify(path string) routeClass {
	for _, prefix := range a.routes.AdminPrefixes {
		if strings.HasPrefix(path, prefix) {
			return routeAdmin
		}
	}
	for _, prefix := range a.routes.PublicPrefixes {
		if strings.HasPrefix(path, prefix) {
			return routePublic
		}
	}
	return routeTenant
}

// Middleware returns the echo middleware. Classification is a static
// prefix match done before any token work, so public and admin routes
// never pay for cryptography. CORS preflight is answered by the CORS
// middleware registered ahead of this one.
func (a *Authorizer) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if c.Request().Method == http.MethodOptions {
				return next(c)
			}

			switch a.classify(c.Request().URL.Path) {
			case routePublic:
				return next(c)
			case routeAdmin:
				if err := a.checkAdminKey(c); err != nil {
					return common.Respond(c, err)
				}
				return next(c)
			}

			identity, err := a.authenticate(c)
			if err != nil {
				return common.Respond(c, err)
			}

			ctx := common.WithIdentity(c.Request().Context(), identity)
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}

func (a *Authorizer) checkAdminKey(c echo.Context) error {
	key := c.Request().Header.Get(HeaderAdminKey)
	if subtle.ConstantTimeCompare([]byte(key), a.adminKey) != 1 {
		return common.ErrAdminKeyInvalid
	}
	return nil
}

func (a *Authorizer) authenticate(c echo.Context) (common.Identity, error) {
	ctx := c.Request().Context()

	token, err := BearerToken(c)
	if err != nil {
		return common.Identity{}, err
	}

	claims, err := a.tokens.VerifyAccessToken(token)
	if err != nil {
		switch {
		case errors.Is(err, security.ErrTokenExpired):
			return common.Identity{}, common.ErrTokenExpired
		case errors.Is(err, security.ErrWrongTokenType):
			return common.Identity{}, common.ErrTokenWrongType
		default:
			return common.Identity{}, common.ErrTokenInvalid
		}
	}

	// Cryptographic validity alone is not enough: logout revokes by
	// deleting the session record, so its absence rejects the request
	// even while the token itself would still verify.
	if _, err := a.sessions.GetSession(ctx, token); err != nil {
		if errors.Is(err, caching.ErrNotFound) {
			return common.Identity{}, common.ErrSessionExpired
		}
		a.logger.Error().Err(err).Msg("session store lookup failed")
		return common.Identity{}, common.ErrInternal
	}

	rec, err := a.subscriptions.Status(ctx, claims.TenantID)
	if err != nil {
		var typed *common.Error
		if errors.As(err, &typed) {
			return common.Identity{}, typed
		}
		a.logger.Error().Err(err).Int64("tenant_id", claims.TenantID).Msg("subscription lookup failed")
		return common.Identity{}, common.ErrInternal
	}
	if err := a.subscriptions.Authorize(rec); err != nil {
		return common.Identity{}, err
	}

	identity := claims.Identity()
	identity.Plan = rec.Plan
	return identity, nil
}

// BearerToken extracts the bearer token from the Authorization header.
func BearerToken(c echo.Context) (string, error) {
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	if header == "" {
		return "", common.ErrTokenMissing
	}
	token := strings.TrimPrefix(header, "Bearer ")
	if token == header || token == "" {
		return "", common.ErrTokenInvalid
	}
	return token, nil
}
