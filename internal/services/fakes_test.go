package services

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"coursedesk/internal/caching"
	"coursedesk/internal/models"
)

// memStore is an in-memory caching.Store. TTLs are recorded but not
// enforced; revocation-by-delete is what the flows under test depend on.
type memStore struct {
	mu      sync.Mutex
	data    map[string][]byte
	ttls    map[string]time.Duration
	limited bool
}

func newMemStore() *memStore {
	return &memStore{
		data: make(map[string][]byte),
		ttls: make(map[string]time.Duration),
	}
}

func (m *memStore) SetJSON(_ context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = data
	m.ttls[key] = ttl
	return nil
}

func (m *memStore) GetJSON(_ context.Context, key string, dest interface{}) error {
	m.mu.Lock()
	data, ok := m.data[key]
	m.mu.Unlock()
	if !ok {
		return caching.ErrNotFound
	}
	return json.Unmarshal(data, dest)
}

func (m *memStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	delete(m.ttls, key)
	return nil
}

func (m *memStore) IsRateLimited(_ context.Context, _ string, _ int, _ time.Duration) (bool, error) {
	return m.limited, nil
}

func (m *memStore) Ping(_ context.Context) error {
	return nil
}

func (m *memStore) has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.data[key]
	return ok
}

type fakeAccountRepo struct {
	mu       sync.Mutex
	accounts map[int64]*models.Account
	touched  int
}

func newFakeAccountRepo(accounts ...*models.Account) *fakeAccountRepo {
	r := &fakeAccountRepo{accounts: make(map[int64]*models.Account)}
	for _, a := range accounts {
		r.accounts[a.ID] = a
	}
	return r
}

func (r *fakeAccountRepo) GetByID(_ context.Context, id int64) (*models.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	account, ok := r.accounts[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *account
	return &copied, nil
}

func (r *fakeAccountRepo) GetByEmail(_ context.Context, email string) (*models.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, account := range r.accounts {
		if account.Email == email {
			copied := *account
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeAccountRepo) UpdateSubscription(_ context.Context, id int64, status, plan string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	account, ok := r.accounts[id]
	if !ok {
		return pgx.ErrNoRows
	}
	account.SubscriptionStatus = status
	account.Plan = plan
	account.SubscriptionExpiresAt = expiresAt
	return nil
}

func (r *fakeAccountRepo) TouchLastLogin(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.touched++
	return nil
}

func (r *fakeAccountRepo) ListLapsed(_ context.Context, before time.Time, limit int) ([]*models.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var lapsed []*models.Account
	for _, account := range r.accounts {
		if account.SubscriptionExpiresAt.Before(before) && account.SubscriptionStatus != models.SubscriptionExpired {
			copied := *account
			lapsed = append(lapsed, &copied)
			if len(lapsed) == limit {
				break
			}
		}
	}
	return lapsed, nil
}

type fakeUserRepo struct {
	mu      sync.Mutex
	users   map[int64]*models.User
	touched int
}

func newFakeUserRepo(users ...*models.User) *fakeUserRepo {
	r := &fakeUserRepo{users: make(map[int64]*models.User)}
	for _, u := range users {
		r.users[u.ID] = u
	}
	return r
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if user.Email == email {
			copied := *user
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeUserRepo) GetByID(_ context.Context, tenantID, id int64) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok || user.TenantID != tenantID {
		return nil, pgx.ErrNoRows
	}
	copied := *user
	return &copied, nil
}

func (r *fakeUserRepo) TouchLastLogin(_ context.Context, tenantID, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.touched++
	return nil
}

func (r *fakeUserRepo) setActive(id int64, active bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if user, ok := r.users[id]; ok {
		user.IsActive = active
	}
}
