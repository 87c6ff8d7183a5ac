package models

import (
	"time"
)

// SubscriptionRecord is the cached projection of an account's
// subscription fields, keyed by tenant id in the revocable store. The
// account row stays authoritative; this record may be stale or absent
// and is rehydrated from the row on a cache miss.
type SubscriptionRecord struct {
	TenantID  int64     `json:"tenantId"`
	Status    string    `json:"status"`
	Plan      string    `json:"plan"`
	ExpiresAt time.Time `json:"expiresAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	UpdatedBy string    `json:"updatedBy,omitempty"`
	Notes     *string   `json:"notes,omitempty"`
}

// Lapsed reports whether the record's expiry is set and in the past.
func (r *SubscriptionRecord) Lapsed(now time.Time) bool {
	return !r.ExpiresAt.IsZero() && r.ExpiresAt.Before(now)
}
