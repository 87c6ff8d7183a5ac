package models

import (
	"time"
)

// Subscription statuses stored on the account row and in the cached
// subscription record. Lazy evaluation only ever moves a status toward
// "expired"; the admin update path is the only way back.
const (
	SubscriptionTrial     = "trial"
	SubscriptionActive    = "active"
	SubscriptionSuspended = "suspended"
	SubscriptionExpired   = "expired"
)

// ValidSubscriptionStatus reports whether s is one of the known statuses.
func ValidSubscriptionStatus(s string) bool {
	switch s {
	case SubscriptionTrial, SubscriptionActive, SubscriptionSuspended, SubscriptionExpired:
		return true
	}
	return false
}

// Account is a tenant: a training company paying for the product.
// Its email doubles as the tenant-admin login identity.
type Account struct {
	ID                    int64      `json:"id" db:"id"`
	Name                  string     `json:"name" db:"name"`
	Email                 string     `json:"email" db:"email"`
	PasswordHash          string     `json:"-" db:"password_hash"` // Never serialize in JSON
	Plan                  string     `json:"plan" db:"plan"`
	SubscriptionStatus    string     `json:"subscriptionStatus" db:"subscription_status"`
	SubscriptionExpiresAt time.Time  `json:"subscriptionExpiresAt" db:"subscription_expires_at"`
	MaxSeats              int        `json:"maxSeats" db:"max_seats"`
	LastLoginAt           *time.Time `json:"lastLoginAt,omitempty" db:"last_login_at"`
	CreatedAt             time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt             time.Time  `json:"updatedAt" db:"updated_at"`
}
