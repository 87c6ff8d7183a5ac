package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"

	"coursedesk/internal/models"
)

type AccountRepoTestSuite struct {
	suite.Suite
	mock pgxmock.PgxPoolIface
	repo AccountRepository
	ctx  context.Context
}

func (suite *AccountRepoTestSuite) SetupTest() {
	mock, err := pgxmock.NewPool()
	assert.NoError(suite.T(), err)
	suite.mock = mock

	suite.repo = NewAccountRepo(mock)
	suite.ctx = context.Background()
}

func (suite *AccountRepoTestSuite) TearDownTest() {
	suite.mock.Close()
}

func TestAccountRepoTestSuite(t *testing.T) {
	suite.Run(t, new(AccountRepoTestSuite))
}

func accountRows() *pgxmock.Rows {
	return pgxmock.NewRows([]string{
		"id", "name", "email", "password_hash", "plan", "subscription_status",
		"subscription_expires_at", "max_seats", "last_login_at", "created_at", "updated_at",
	})
}

func (suite *AccountRepoTestSuite) TestGetByEmail_Success() {
	now := time.Now().UTC()
	expires := now.Add(30 * 24 * time.Hour)

	suite.mock.ExpectQuery(`SELECT .+ FROM accounts WHERE email = \$1`).
		WithArgs("owner@acme.test").
		WillReturnRows(accountRows().AddRow(
			int64(1), "Acme Training", "owner@acme.test", "pbkdf2_sha256$150000$c2FsdA$aGFzaA",
			"pro", models.SubscriptionActive, expires, 25, nil, now, now,
		))

	account, err := suite.repo.GetByEmail(suite.ctx, "owner@acme.test")
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), int64(1), account.ID)
	assert.Equal(suite.T(), "pro", account.Plan)
	assert.Equal(suite.T(), models.SubscriptionActive, account.SubscriptionStatus)
	assert.Nil(suite.T(), account.LastLoginAt)
}

func (suite *AccountRepoTestSuite) TestGetByEmail_NotFound() {
	suite.mock.ExpectQuery(`SELECT .+ FROM accounts WHERE email = \$1`).
		WithArgs("nobody@nowhere.test").
		WillReturnError(pgx.ErrNoRows)

	account, err := suite.repo.GetByEmail(suite.ctx, "nobody@nowhere.test")
	assert.ErrorIs(suite.T(), err, pgx.ErrNoRows)
	assert.Nil(suite.T(), account)
}

func (suite *AccountRepoTestSuite) TestGetByID_Success() {
	now := time.Now().UTC()

	suite.mock.ExpectQuery(`SELECT .+ FROM accounts WHERE id = \$1`).
		WithArgs(int64(7)).
		WillReturnRows(accountRows().AddRow(
			int64(7), "Beta Corp", "billing@beta.test", "pbkdf2_sha256$150000$c2FsdA$aGFzaA",
			"basic", models.SubscriptionTrial, now.Add(14*24*time.Hour), 5, nil, now, now,
		))

	account, err := suite.repo.GetByID(suite.ctx, 7)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), models.SubscriptionTrial, account.SubscriptionStatus)
	assert.Equal(suite.T(), 5, account.MaxSeats)
}

func (suite *AccountRepoTestSuite) TestUpdateSubscription() {
	expires := time.Now().UTC().Add(365 * 24 * time.Hour)

	suite.mock.ExpectExec(`UPDATE accounts\s+SET subscription_status = \$1, plan = \$2, subscription_expires_at = \$3, updated_at = NOW\(\)\s+WHERE id = \$4`).
		WithArgs(models.SubscriptionActive, "enterprise", expires, int64(1)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := suite.repo.UpdateSubscription(suite.ctx, 1, models.SubscriptionActive, "enterprise", expires)
	assert.NoError(suite.T(), err)
}

func (suite *AccountRepoTestSuite) TestTouchLastLogin() {
	suite.mock.ExpectExec(`UPDATE accounts SET last_login_at = NOW\(\) WHERE id = \$1`).
		WithArgs(int64(1)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := suite.repo.TouchLastLogin(suite.ctx, 1)
	assert.NoError(suite.T(), err)
}

func (suite *AccountRepoTestSuite) TestListLapsed() {
	now := time.Now().UTC()
	yesterday := now.Add(-24 * time.Hour)

	suite.mock.ExpectQuery(`SELECT .+ FROM accounts\s+WHERE subscription_expires_at < \$1 AND subscription_status != \$2`).
		WithArgs(now, models.SubscriptionExpired, 500).
		WillReturnRows(accountRows().
			AddRow(int64(2), "Lapsed One", "one@lapsed.test", "h", "pro", models.SubscriptionActive, yesterday, 10, nil, now, now).
			AddRow(int64(3), "Lapsed Two", "two@lapsed.test", "h", "basic", models.SubscriptionTrial, yesterday, 5, nil, now, now))

	accounts, err := suite.repo.ListLapsed(suite.ctx, now, 500)
	assert.NoError(suite.T(), err)
	assert.Len(suite.T(), accounts, 2)
	assert.Equal(suite.T(), int64(2), accounts[0].ID)
	assert.Equal(suite.T(), int64(3), accounts[1].ID)
}
