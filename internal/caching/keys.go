package caching

import (
	"fmt"
)

// tokenFragmentLen bounds store key size: keys are derived from the
// token's trailing characters (for a compact JWT that is the signature
// tail), not the whole token.
const tokenFragmentLen = 32

func tokenFragment(token string) string {
	if len(token) <= tokenFragmentLen {
		return token
	}
	return token[len(token)-tokenFragmentLen:]
}

// SessionKey derives the store key for an access token's session record.
func SessionKey(token string) string {
	return "session:" + tokenFragment(token)
}

// RefreshKey derives the store key for a refresh token's record.
func RefreshKey(token string) string {
	return "refresh:" + tokenFragment(token)
}

// SubscriptionKey is the cached subscription record key for a tenant.
func SubscriptionKey(tenantID int64) string {
	return fmt.Sprintf("tenant:%d:subscription", tenantID)
}

// LoginRateKey is the login attempt counter key for an email.
func LoginRateKey(email string) string {
	return "ratelimit:login:" + email
}
