package repositories

import (
	"context"
	"time"

	"coursedesk/internal/models"
)

type AccountRepository interface {
	GetByID(ctx context.Context, id int64) (*models.Account, error)
	GetByEmail(ctx context.Context, email string) (*models.Account, error)
	UpdateSubscription(ctx context.Context, id int64, status, plan string, expiresAt time.Time) error
	TouchLastLogin(ctx context.Context, id int64) error
	ListLapsed(ctx context.Context, before time.Time, limit int) ([]*models.Account, error)
}

type accountRepo struct {
	db Database
}

func NewAccountRepo(db Database) AccountRepository {
	return &accountRepo{db: db}
}

const accountColumns = `id, name, email, password_hash, plan, subscription_status, subscription_expires_at, max_seats, last_login_at, created_at, updated_at`

func (r *accountRepo) scanAccount(row interface{ Scan(dest ...interface{}) error }) (*models.Account, error) {
	account := &models.Account{}
	err := row.Scan(
		&account.ID, &account.Name, &account.Email, &account.PasswordHash,
		&account.Plan, &account.SubscriptionStatus, &account.SubscriptionExpiresAt,
		&account.MaxSeats, &account.LastLoginAt, &account.CreatedAt, &account.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return account, nil
}

func (r *accountRepo) GetByID(ctx context.Context, id int64) (*models.Account, error) {
	query := `
		SELECT ` + accountColumns + `
		FROM accounts
		WHERE id = $1
	`
	return r.scanAccount(r.db.QueryRow(ctx, query, id))
}

func (r *accountRepo) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	query := `
		SELECT ` + accountColumns + `
		FROM accounts
		WHERE email = $1
	`
	return r.scanAccount(r.db.QueryRow(ctx, query, email))
}

func (r *accountRepo) UpdateSubscription(ctx context.Context, id int64, status, plan string, expiresAt time.Time) error {
	query := `
		UPDATE accounts
		SET subscription_status = $1, plan = $2, subscription_expires_at = $3, updated_at = NOW()
		WHERE id = $4
	`
	_, err := r.db.Exec(ctx, query, status, plan, expiresAt, id)
	return err
}

func (r *accountRepo) TouchLastLogin(ctx context.Context, id int64) error {
	query := `UPDATE accounts SET last_login_at = NOW() WHERE id = $1`
	_, err := r.db.Exec(ctx, query, id)
	return err
}

func (r *accountRepo) ListLapsed(ctx context.Context, before time.Time, limit int) ([]*models.Account, error) {
	query := `
		SELECT ` + accountColumns + `
		FROM accounts
		WHERE subscription_expires_at < $1 AND subscription_status != $2
		ORDER BY subscription_expires_at ASC
		LIMIT $3
	`
	rows, err := r.db.Query(ctx, query, before, models.SubscriptionExpired, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []*models.Account
	for rows.Next() {
		account, err := r.scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}
	return accounts, rows.Err()
}
