package services

import (
	"context"
	"time"

	"coursedesk/internal/caching"
	"coursedesk/internal/models"
)

// SessionService manages the revocation-control records behind issued
// tokens. Deleting a record is the only way to revoke a token that is
// still cryptographically valid; record absence and token invalidity
// are therefore separate checks and both are required.
type SessionService interface {
	CreateSession(ctx context.Context, accessToken string, rec *models.SessionRecord) error
	GetSession(ctx context.Context, accessToken string) (*models.SessionRecord, error)
	DeleteSession(ctx context.Context, accessToken string) error

	CreateRefresh(ctx context.Context, refreshToken string, rec *models.RefreshRecord) error
	GetRefresh(ctx context.Context, refreshToken string) (*models.RefreshRecord, error)
	DeleteRefresh(ctx context.Context, refreshToken string) error
}

type sessionService struct {
	store      caching.Store
	sessionTTL time.Duration
	refreshTTL time.Duration
}

func NewSessionService(store caching.Store, sessionTTL, refreshTTL time.Duration) SessionService {
	return &sessionService{
		store:      store,
		sessionTTL: sessionTTL,
		refreshTTL: refreshTTL,
	}
}

func (s *sessionService) CreateSession(ctx context.Context, accessToken string, rec *models.SessionRecord) error {
	return s.store.SetJSON(ctx, caching.SessionKey(accessToken), rec, s.sessionTTL)
}

func (s *sessionService) GetSession(ctx context.Context, accessToken string) (*models.SessionRecord, error) {
	var rec models.SessionRecord
	if err := s.store.GetJSON(ctx, caching.SessionKey(accessToken), &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *sessionService) DeleteSession(ctx context.Context, accessToken string) error {
	return s.store.Delete(ctx, caching.SessionKey(accessToken))
}

// CreateRefresh writes the refresh record for a freshly issued refresh
// token. During rotation the new record must be written before the old
// one is deleted, so an issuance failure never leaves the caller with
// zero valid refresh tokens.
//
// The store is eventually consistent: two concurrent rotations of the
// same refresh token can both observe its record as present and both
// succeed, each minting a valid pair. That race is documented behavior,
// not a guarantee to defend against; the store offers no
// check-then-act primitive that could close it.
func (s *sessionService) CreateRefresh(ctx context.Context, refreshToken string, rec *models.RefreshRecord) error {
	return s.store.SetJSON(ctx, caching.RefreshKey(refreshToken), rec, s.refreshTTL)
}

func (s *sessionService) GetRefresh(ctx context.Context, refreshToken string) (*models.RefreshRecord, error) {
	var rec models.RefreshRecord
	if err := s.store.GetJSON(ctx, caching.RefreshKey(refreshToken), &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *sessionService) DeleteRefresh(ctx context.Context, refreshToken string) error {
	return s.store.Delete(ctx, caching.RefreshKey(refreshToken))
}
