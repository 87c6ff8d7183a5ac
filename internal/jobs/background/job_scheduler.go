package background

import (
	"context"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog"

	"coursedesk/internal/caching"
	"coursedesk/internal/models"
	"coursedesk/internal/repositories"
)

const sweepBatchSize = 500

// JobScheduler runs the periodic subscription sweep: accounts whose
// expiry has passed get their row and cached record moved to expired.
// The sweep is advisory only; the gate's read path already applies the
// same transition lazily, so a missed run never admits a lapsed tenant.
type JobScheduler struct {
	scheduler   gocron.Scheduler
	accountRepo repositories.AccountRepository
	store       caching.Store
	cacheTTL    time.Duration
	logger      zerolog.Logger
}

func NewJobScheduler(accountRepo repositories.AccountRepository, store caching.Store, sweepInterval, cacheTTL time.Duration, logger zerolog.Logger) (*JobScheduler, error) {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	js := &JobScheduler{
		scheduler:   scheduler,
		accountRepo: accountRepo,
		store:       store,
		cacheTTL:    cacheTTL,
		logger:      logger,
	}

	_, err = scheduler.NewJob(
		gocron.DurationJob(sweepInterval),
		gocron.NewTask(js.sweepLapsedSubscriptions),
	)
	if err != nil {
		return nil, err
	}

	return js, nil
}

// Start starts the scheduler in the background.
func (js *JobScheduler) Start() {
	js.logger.Info().Msg("starting background job scheduler")
	js.scheduler.Start()
}

// Shutdown stops the scheduler and waits for running jobs.
func (js *JobScheduler) Shutdown() error {
	return js.scheduler.Shutdown()
}

func (js *JobScheduler) sweepLapsedSubscriptions() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	now := time.Now().UTC()
	accounts, err := js.accountRepo.ListLapsed(ctx, now, sweepBatchSize)
	if err != nil {
		js.logger.Error().Err(err).Msg("subscription sweep: listing lapsed accounts failed")
		return
	}

	expired := 0
	for _, account := range accounts {
		if err := js.accountRepo.UpdateSubscription(ctx, account.ID, models.SubscriptionExpired, account.Plan, account.SubscriptionExpiresAt); err != nil {
			js.logger.Warn().Err(err).Int64("tenant_id", account.ID).Msg("subscription sweep: row update failed")
			continue
		}

		rec := &models.SubscriptionRecord{
			TenantID:  account.ID,
			Status:    models.SubscriptionExpired,
			Plan:      account.Plan,
			ExpiresAt: account.SubscriptionExpiresAt,
			UpdatedAt: now,
			UpdatedBy: "sweep",
		}
		if err := js.store.SetJSON(ctx, caching.SubscriptionKey(account.ID), rec, js.cacheTTL); err != nil {
			js.logger.Warn().Err(err).Int64("tenant_id", account.ID).Msg("subscription sweep: cache write failed")
		}
		expired++
	}

	if expired > 0 {
		js.logger.Info().Int("count", expired).Msg("subscription sweep expired lapsed tenants")
	}
}
