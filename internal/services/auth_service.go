package services

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"coursedesk/internal/caching"
	"coursedesk/internal/common"
	"coursedesk/internal/models"
	"coursedesk/internal/repositories"
	"coursedesk/internal/security"
)

// AuthService implements the login, refresh and logout flows.
type AuthService interface {
	Login(ctx context.Context, email, password string) (*LoginResult, error)
	Refresh(ctx context.Context, refreshToken string) (*models.TokenResponse, error)
	// Logout revokes the presented tokens' records. It is idempotent
	// and never fails: a user must always be able to believe they are
	// logged out.
	Logout(ctx context.Context, accessToken, refreshToken string)
	CurrentUser(ctx context.Context, id common.Identity) (*ProfileResult, error)
}

// LoginResult is the successful login payload.
type LoginResult struct {
	models.TokenResponse
	User   *models.User    `json:"user"`
	Client *models.Account `json:"client"`
}

// ProfileResult is the /auth/me payload.
type ProfileResult struct {
	User   *models.User    `json:"user"`
	Client *models.Account `json:"client"`
}

type authService struct {
	userRepo      repositories.UserRepository
	accountRepo   repositories.AccountRepository
	tokens        *security.TokenManager
	sessions      SessionService
	subscriptions SubscriptionService
	store         caching.Store
	attemptLimit  int
	attemptWindow time.Duration
	logger        zerolog.Logger
}

func NewAuthService(
	userRepo repositories.UserRepository,
	accountRepo repositories.AccountRepository,
	tokens *security.TokenManager,
	sessions SessionService,
	subscriptions SubscriptionService,
	store caching.Store,
	attemptLimit int,
	attemptWindow time.Duration,
	logger zerolog.Logger,
) AuthService {
	return &authService{
		userRepo:      userRepo,
		accountRepo:   accountRepo,
		tokens:        tokens,
		sessions:      sessions,
		subscriptions: subscriptions,
		store:         store,
		attemptLimit:  attemptLimit,
		attemptWindow: attemptWindow,
		logger:        logger,
	}
}

// Login resolves the identity behind email+password and issues a token
// pair. Wrong password and unknown email share one uniform error so the
// endpoint cannot be used to enumerate accounts.
func (s *authService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	limited, err := s.store.IsRateLimited(ctx, caching.LoginRateKey(email), s.attemptLimit, s.attemptWindow)
	if err != nil {
		s.logger.Warn().Err(err).Msg("login rate limit check failed")
	} else if limited {
		return nil, common.ErrTooManyAttempts
	}

	identity, user, account, err := s.resolveCredentials(ctx, email, password)
	if err != nil {
		return nil, err
	}

	rec, err := s.subscriptions.Status(ctx, identity.TenantID)
	if err != nil {
		return nil, err
	}
	if err := s.subscriptions.Authorize(rec); err != nil {
		return nil, err
	}
	identity.Plan = rec.Plan

	tokens, err := s.issuePair(ctx, identity)
	if err != nil {
		return nil, err
	}

	// Best-effort; a failed timestamp update must not fail the login.
	s.touchLastLogin(ctx, identity)

	return &LoginResult{
		TokenResponse: *tokens,
		User:          user,
		Client:        account,
	}, nil
}

// resolveCredentials finds who the email belongs to. Users are searched
// first, by email only, since the caller's tenant is unknown; with no
// user match the accounts table is searched directly, where a match is
// the tenant-admin identity with the reserved user id 0.
func (s *authService) resolveCredentials(ctx context.Context, email, password string) (common.Identity, *models.User, *models.Account, error) {
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return common.Identity{}, nil, nil, err
	}

	if user != nil && err == nil {
		if verr := security.VerifyPassword(password, user.PasswordHash); verr != nil {
			s.logger.Debug().Str("email", email).Err(verr).Msg("user password verification failed")
			return common.Identity{}, nil, nil, common.ErrInvalidCredentials
		}
		if !user.IsActive {
			return common.Identity{}, nil, nil, common.ErrAccountDisabled
		}
		account, aerr := s.accountRepo.GetByID(ctx, user.TenantID)
		if aerr != nil {
			// A user row pointing at no account is broken data; keep
			// the uniform error rather than leak anything about it.
			s.logger.Error().Err(aerr).Int64("tenant_id", user.TenantID).Msg("account lookup failed for existing user")
			return common.Identity{}, nil, nil, common.ErrInvalidCredentials
		}
		return common.Identity{
			TenantID:      account.ID,
			UserID:        user.ID,
			Email:         user.Email,
			Role:          user.Role,
			IsTenantAdmin: false,
		}, user, account, nil
	}

	account, err := s.accountRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return common.Identity{}, nil, nil, common.ErrInvalidCredentials
		}
		return common.Identity{}, nil, nil, err
	}
	if verr := security.VerifyPassword(password, account.PasswordHash); verr != nil {
		s.logger.Debug().Str("email", email).Err(verr).Msg("account password verification failed")
		return common.Identity{}, nil, nil, common.ErrInvalidCredentials
	}

	return common.Identity{
		TenantID:      account.ID,
		UserID:        0,
		Email:         account.Email,
		Role:          models.RoleAdmin,
		IsTenantAdmin: true,
	}, nil, account, nil
}

// issuePair mints the access+refresh pair and writes both records.
// Record writes must succeed: a token whose session record was never
// written would be rejected on first use.
func (s *authService) issuePair(ctx context.Context, identity common.Identity) (*models.TokenResponse, error) {
	accessToken, err := s.tokens.IssueAccessToken(identity)
	if err != nil {
		return nil, err
	}
	refreshToken, err := s.tokens.IssueRefreshToken(identity)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if err := s.sessions.CreateSession(ctx, accessToken, &models.SessionRecord{
		TenantID:  identity.TenantID,
		UserID:    identity.UserID,
		Email:     identity.Email,
		CreatedAt: now,
	}); err != nil {
		return nil, err
	}
	if err := s.sessions.CreateRefresh(ctx, refreshToken, &models.RefreshRecord{
		TenantID:  identity.TenantID,
		UserID:    identity.UserID,
		Email:     identity.Email,
		CreatedAt: now,
	}); err != nil {
		return nil, err
	}

	return &models.TokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int(s.tokens.AccessTTL().Seconds()),
	}, nil
}

func (s *authService) touchLastLogin(ctx context.Context, identity common.Identity) {
	var err error
	if identity.UserID == 0 {
		err = s.accountRepo.TouchLastLogin(ctx, identity.TenantID)
	} else {
		err = s.userRepo.TouchLastLogin(ctx, identity.TenantID, identity.UserID)
	}
	if err != nil {
		s.logger.Debug().Err(err).Int64("tenant_id", identity.TenantID).Msg("failed to update last login timestamp")
	}
}

// Refresh rotates a refresh token: verify it, confirm its record still
// exists, re-resolve the account and user to catch deactivation since
// issuance, re-check the subscription, then issue a new pair. The new
// records are written before the old refresh record is deleted so a
// failed issuance never strands the caller without a valid refresh
// token.
func (s *authService) Refresh(ctx context.Context, refreshToken string) (*models.TokenResponse, error) {
	claims, err := s.tokens.VerifyRefreshToken(refreshToken)
	if err != nil {
		return nil, mapTokenError(err)
	}

	if _, err := s.sessions.GetRefresh(ctx, refreshToken); err != nil {
		if errors.Is(err, caching.ErrNotFound) {
			return nil, common.ErrSessionExpired
		}
		return nil, err
	}

	identity := claims.Identity()

	if _, err := s.accountRepo.GetByID(ctx, identity.TenantID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.ErrTenantNotFound
		}
		return nil, err
	}

	if identity.UserID != 0 {
		user, uerr := s.userRepo.GetByID(ctx, identity.TenantID, identity.UserID)
		if uerr != nil {
			if errors.Is(uerr, pgx.ErrNoRows) {
				return nil, common.ErrInvalidCredentials
			}
			return nil, uerr
		}
		if !user.IsActive {
			return nil, common.ErrAccountDisabled
		}
		identity.Role = user.Role
	}

	rec, err := s.subscriptions.Status(ctx, identity.TenantID)
	if err != nil {
		return nil, err
	}
	if err := s.subscriptions.Authorize(rec); err != nil {
		return nil, err
	}
	identity.Plan = rec.Plan

	tokens, err := s.issuePair(ctx, identity)
	if err != nil {
		return nil, err
	}

	if err := s.sessions.DeleteRefresh(ctx, refreshToken); err != nil {
		// The new pair is already live; the old record dies by TTL.
		s.logger.Warn().Err(err).Msg("failed to delete rotated refresh record")
	}

	return tokens, nil
}

func (s *authService) Logout(ctx context.Context, accessToken, refreshToken string) {
	if accessToken != "" {
		if err := s.sessions.DeleteSession(ctx, accessToken); err != nil {
			s.logger.Debug().Err(err).Msg("logout: session record delete failed")
		}
	}
	if refreshToken != "" {
		if err := s.sessions.DeleteRefresh(ctx, refreshToken); err != nil {
			s.logger.Debug().Err(err).Msg("logout: refresh record delete failed")
		}
	}
}

func (s *authService) CurrentUser(ctx context.Context, id common.Identity) (*ProfileResult, error) {
	account, err := s.accountRepo.GetByID(ctx, id.TenantID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.ErrTenantNotFound
		}
		return nil, err
	}

	result := &ProfileResult{Client: account}
	if id.UserID != 0 {
		user, uerr := s.userRepo.GetByID(ctx, id.TenantID, id.UserID)
		if uerr != nil {
			if errors.Is(uerr, pgx.ErrNoRows) {
				return nil, common.ErrSessionExpired
			}
			return nil, uerr
		}
		result.User = user
	}
	return result, nil
}

// mapTokenError converts the token verifier's typed errors to the
// response taxonomy.
func mapTokenError(err error) error {
	switch {
	case errors.Is(err, security.ErrTokenExpired):
		return common.ErrTokenExpired
	case errors.Is(err, security.ErrWrongTokenType):
		return common.ErrTokenWrongType
	default:
		return common.ErrTokenInvalid
	}
}
