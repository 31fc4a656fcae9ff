package memstore

import (
	"context"
	"fmt"
	"sort"
	"time"

	"arbitra/internal/models"
	"arbitra/internal/repositories"

	"github.com/lib/pq"
)

type apiKeyStore struct {
	s *Store
}

// APIKeys exposes the key table as a repositories.APIKeyRepository.
func (s *Store) APIKeys() repositories.APIKeyRepository {
	return apiKeyStore{s: s}
}

func (a apiKeyStore) FindByDigest(_ context.Context, digest string) (*models.APIKey, error) {
	st, done := a.s.view()
	defer done()
	for _, k := range st.apiKeys {
		if k.KeyDigest == digest {
			return &k, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (a apiKeyStore) TouchLastUsed(_ context.Context, id string, at time.Time) error {
	if err := a.s.fault("TouchLastUsed"); err != nil {
		return err
	}
	st, done := a.s.view()
	defer done()
	k, ok := st.apiKeys[id]
	if !ok {
		return repositories.ErrNotFound
	}
	k.LastUsedAt = &at
	st.apiKeys[id] = k
	return nil
}

func (a apiKeyStore) Create(_ context.Context, key *models.APIKey) error {
	st, done := a.s.view()
	defer done()
	for _, k := range st.apiKeys {
		if k.ID == key.ID || k.KeyDigest == key.KeyDigest {
			return fmt.Errorf("%w: api_keys", repositories.ErrDuplicate)
		}
	}
	st.apiKeys[key.ID] = *key
	return nil
}

func (a apiKeyStore) List(_ context.Context, limit, offset int) ([]models.APIKey, int64, error) {
	if err := a.s.fault("ListAPIKeys"); err != nil {
		return nil, 0, err
	}
	st, done := a.s.view()
	defer done()

	keys := make([]models.APIKey, 0, len(st.apiKeys))
	for _, k := range st.apiKeys {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].CreatedAt.Equal(keys[j].CreatedAt) {
			return keys[i].ID > keys[j].ID
		}
		return keys[i].CreatedAt.After(keys[j].CreatedAt)
	})

	total := int64(len(keys))
	if limit > 0 {
		if offset >= len(keys) {
			return []models.APIKey{}, total, nil
		}
		keys = keys[offset:min(offset+limit, len(keys))]
	}
	return keys, total, nil
}

func (a apiKeyStore) Deactivate(_ context.Context, id string, at time.Time) error {
	return a.update(id, func(k *models.APIKey) {
		k.IsActive = false
		k.UpdatedAt = at
	})
}

func (a apiKeyStore) UpdateWhitelist(_ context.Context, id string, ips []string, at time.Time) error {
	return a.update(id, func(k *models.APIKey) {
		k.WhitelistedIPs = pq.StringArray(append([]string(nil), ips...))
		k.UpdatedAt = at
	})
}

func (a apiKeyStore) update(id string, fn func(*models.APIKey)) error {
	st, done := a.s.view()
	defer done()
	k, ok := st.apiKeys[id]
	if !ok {
		return repositories.ErrNotFound
	}
	fn(&k)
	st.apiKeys[id] = k
	return nil
}
