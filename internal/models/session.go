package models

import (
	"time"
)

// SessionRecord is the revocation-control entry written at login for an
// access token. Its presence in the store is independent of the token's
// cryptographic validity: deleting it revokes a still-unexpired token,
// and an expired token stays invalid even while the record lingers.
type SessionRecord struct {
	TenantID  int64     `json:"tenantId"`
	UserID    int64     `json:"userId"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}

// RefreshRecord is the analogous entry for a refresh token. It is
// deleted and replaced on every successful refresh.
type RefreshRecord struct {
	TenantID  int64     `json:"tenantId"`
	UserID    int64     `json:"userId"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}
