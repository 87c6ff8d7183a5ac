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
)

// SubscriptionService is the gate deciding whether a tenant's paid plan
// currently entitles it to use the system. Reads go through a cached
// record in the revocable store; the accounts row stays authoritative
// and rehydrates the cache on a miss.
type SubscriptionService interface {
	// Status returns the tenant's subscription record, rehydrating an
	// absent cache entry from the account row and lazily transitioning
	// a lapsed record to expired before returning it. A lapsed record
	// is never silently treated as active.
	Status(ctx context.Context, tenantID int64) (*models.SubscriptionRecord, error)

	// Authorize maps a record's status to the matching typed error for
	// tenant-scoped routes; nil means the tenant may proceed.
	Authorize(rec *models.SubscriptionRecord) error

	AdminGet(ctx context.Context, tenantID int64) (*models.SubscriptionRecord, error)
	AdminUpdate(ctx context.Context, tenantID int64, update AdminSubscriptionUpdate) (*models.SubscriptionRecord, error)
	AdminDelete(ctx context.Context, tenantID int64) error
}

// AdminSubscriptionUpdate is the admin overwrite payload. This path is
// the only one allowed to improve a tenant's status.
type AdminSubscriptionUpdate struct {
	Status    string
	Plan      string
	ExpiresAt time.Time
	Notes     *string
}

type subscriptionService struct {
	store       caching.Store
	accountRepo repositories.AccountRepository
	cacheTTL    time.Duration
	logger      zerolog.Logger

	// now is swappable for tests
	now func() time.Time
}

func NewSubscriptionService(store caching.Store, accountRepo repositories.AccountRepository, cacheTTL time.Duration, logger zerolog.Logger) SubscriptionService {
	return &subscriptionService{
		store:       store,
		accountRepo: accountRepo,
		cacheTTL:    cacheTTL,
		logger:      logger,
		now:         time.Now,
	}
}

func (s *subscriptionService) Status(ctx context.Context, tenantID int64) (*models.SubscriptionRecord, error) {
	key := caching.SubscriptionKey(tenantID)

	rec := &models.SubscriptionRecord{}
	err := s.store.GetJSON(ctx, key, rec)
	if errors.Is(err, caching.ErrNotFound) {
		rec, err = s.rehydrate(ctx, tenantID)
	}
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	if rec.Lapsed(now) && rec.Status != models.SubscriptionExpired {
		rec.Status = models.SubscriptionExpired
		rec.UpdatedAt = now
		if err := s.store.SetJSON(ctx, key, rec, s.cacheTTL); err != nil {
			return nil, err
		}
		// Keep the authoritative row in step; the cached record already
		// enforces the transition, so a failure here only delays it.
		if err := s.accountRepo.UpdateSubscription(ctx, tenantID, rec.Status, rec.Plan, rec.ExpiresAt); err != nil {
			s.logger.Warn().Err(err).Int64("tenant_id", tenantID).Msg("failed to persist expired subscription status")
		}
	}

	return rec, nil
}

func (s *subscriptionService) rehydrate(ctx context.Context, tenantID int64) (*models.SubscriptionRecord, error) {
	account, err := s.accountRepo.GetByID(ctx, tenantID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.ErrTenantNotFound
		}
		return nil, err
	}

	rec := &models.SubscriptionRecord{
		TenantID:  account.ID,
		Status:    account.SubscriptionStatus,
		Plan:      account.Plan,
		ExpiresAt: account.SubscriptionExpiresAt,
		UpdatedAt: s.now().UTC(),
	}
	if err := s.store.SetJSON(ctx, caching.SubscriptionKey(tenantID), rec, s.cacheTTL); err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *subscriptionService) Authorize(rec *models.SubscriptionRecord) error {
	switch rec.Status {
	case models.SubscriptionExpired:
		return common.ErrSubscriptionExpired
	case models.SubscriptionSuspended:
		return common.ErrSubscriptionSuspended
	}
	return nil
}

func (s *subscriptionService) AdminGet(ctx context.Context, tenantID int64) (*models.SubscriptionRecord, error) {
	return s.Status(ctx, tenantID)
}

func (s *subscriptionService) AdminUpdate(ctx context.Context, tenantID int64, update AdminSubscriptionUpdate) (*models.SubscriptionRecord, error) {
	// The account row is authoritative; never fabricate a tenant by
	// writing a cache record for an id that has no row.
	if _, err := s.accountRepo.GetByID(ctx, tenantID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.ErrTenantNotFound
		}
		return nil, err
	}

	if err := s.accountRepo.UpdateSubscription(ctx, tenantID, update.Status, update.Plan, update.ExpiresAt); err != nil {
		return nil, err
	}

	rec := &models.SubscriptionRecord{
		TenantID:  tenantID,
		Status:    update.Status,
		Plan:      update.Plan,
		ExpiresAt: update.ExpiresAt.UTC(),
		UpdatedAt: s.now().UTC(),
		UpdatedBy: "admin",
		Notes:     update.Notes,
	}
	if err := s.store.SetJSON(ctx, caching.SubscriptionKey(tenantID), rec, s.cacheTTL); err != nil {
		// Row updated but cache write failed; stale reads resolve once
		// the old record's TTL runs out or the next miss rehydrates.
		s.logger.Warn().Err(err).Int64("tenant_id", tenantID).Msg("failed to write subscription cache record")
	}

	s.logger.Info().
		Int64("tenant_id", tenantID).
		Str("status", update.Status).
		Str("plan", update.Plan).
		Time("expires_at", update.ExpiresAt).
		Msg("subscription updated by admin")

	return rec, nil
}

func (s *subscriptionService) AdminDelete(ctx context.Context, tenantID int64) error {
	if _, err := s.accountRepo.GetByID(ctx, tenantID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return common.ErrTenantNotFound
		}
		return err
	}
	return s.store.Delete(ctx, caching.SubscriptionKey(tenantID))
}
