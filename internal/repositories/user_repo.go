package repositories

import (
	"context"

	"coursedesk/internal/models"
)

type UserRepository interface {
	// GetByEmail searches by email only; the caller's tenant is unknown
	// at login time.
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, tenantID, id int64) (*models.User, error)
	TouchLastLogin(ctx context.Context, tenantID, id int64) error
}

type userRepo struct {
	db Database
}

func NewUserRepo(db Database) UserRepository {
	return &userRepo{db: db}
}

const userColumns = `id, tenant_id, email, password_hash, first_name, last_name, role, is_active, last_login_at, created_at, updated_at`

func (r *userRepo) scanUser(row interface{ Scan(dest ...interface{}) error }) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(
		&user.ID, &user.TenantID, &user.Email, &user.PasswordHash,
		&user.FirstName, &user.LastName, &user.Role, &user.IsActive,
		&user.LastLoginAt, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE email = $1
	`
	return r.scanUser(r.db.QueryRow(ctx, query, email))
}

func (r *userRepo) GetByID(ctx context.Context, tenantID, id int64) (*models.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE tenant_id = $1 AND id = $2
	`
	return r.scanUser(r.db.QueryRow(ctx, query, tenantID, id))
}

func (r *userRepo) TouchLastLogin(ctx context.Context, tenantID, id int64) error {
	query := `UPDATE users SET last_login_at = NOW() WHERE tenant_id = $1 AND id = $2`
	_, err := r.db.Exec(ctx, query, tenantID, id)
	return err
}
