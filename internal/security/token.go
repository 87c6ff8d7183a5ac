package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"coursedesk/internal/common"
)

// Token type discriminators carried in the typ claim. The verifier
// enforces them so a refresh token can never pass as an access token.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

var (
	// ErrTokenInvalid covers malformed tokens and bad signatures.
	ErrTokenInvalid = errors.New("security: invalid token")

	// ErrTokenExpired means the signature checked out but the token is
	// past its expiry.
	ErrTokenExpired = errors.New("security: token expired")

	// ErrWrongTokenType means a valid token of the other type was
	// presented.
	ErrWrongTokenType = errors.New("security: wrong token type")
)

// Claims is the signed token payload.
type Claims struct {
	TenantID      int64  `json:"tenantId"`
	UserID        int64  `json:"userId"` // 0 means the tenant-admin identity
	Email         string `json:"email"`
	Role          string `json:"role"`
	IsTenantAdmin bool   `json:"isTenantAdmin"`
	TokenType     string `json:"type"`
	jwt.RegisteredClaims
}

// Identity converts verified claims to the caller identity. The plan is
// not carried in the token; the authorizer fills it from the
// subscription gate.
func (c *Claims) Identity() common.Identity {
	return common.Identity{
		TenantID:      c.TenantID,
		UserID:        c.UserID,
		Email:         c.Email,
		Role:          c.Role,
		IsTenantAdmin: c.IsTenantAdmin,
	}
}

// TokenManager mints and verifies HS256-signed access and refresh
// tokens with a single server-held secret.
type TokenManager struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewTokenManager fails when no secret is configured; there is no
// fallback secret.
func NewTokenManager(secret string, accessTTL, refreshTTL time.Duration) (*TokenManager, error) {
	if secret == "" {
		return nil, errors.New("security: token secret is not configured")
	}
	return &TokenManager{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}, nil
}

// AccessTTL is the configured access token lifetime.
func (m *TokenManager) AccessTTL() time.Duration {
	return m.accessTTL
}

// RefreshTTL is the configured refresh token lifetime.
func (m *TokenManager) RefreshTTL() time.Duration {
	return m.refreshTTL
}

// IssueAccessToken mints a signed access token for the identity.
func (m *TokenManager) IssueAccessToken(id common.Identity) (string, error) {
	return m.issue(id, TokenTypeAccess, m.accessTTL)
}

// IssueRefreshToken mints a signed refresh token for the identity.
func (m *TokenManager) IssueRefreshToken(id common.Identity) (string, error) {
	return m.issue(id, TokenTypeRefresh, m.refreshTTL)
}

func (m *TokenManager) issue(id common.Identity, tokenType string, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	claims := Claims{
		TenantID:      id.TenantID,
		UserID:        id.UserID,
		Email:         id.Email,
		Role:          id.Role,
		IsTenantAdmin: id.IsTenantAdmin,
		TokenType:     tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "coursedesk-auth",
			Subject:   fmt.Sprintf("%d:%d", id.TenantID, id.UserID),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// VerifyAccessToken verifies signature, expiry and the access
// discriminator. It fails closed: no claims are ever returned alongside
// an error.
func (m *TokenManager) VerifyAccessToken(token string) (*Claims, error) {
	return m.verify(token, TokenTypeAccess)
}

// VerifyRefreshToken is VerifyAccessToken for the refresh discriminator.
func (m *TokenManager) VerifyRefreshToken(token string) (*Claims, error) {
	return m.verify(token, TokenTypeRefresh)
}

func (m *TokenManager) verify(token, wantType string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return m.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrTokenInvalid
	}
	if claims.TokenType != wantType {
		return nil, ErrWrongTokenType
	}
	return claims, nil
}
