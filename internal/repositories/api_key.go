package repositories

import (
	"context"
	"time"

	"arbitra/internal/models"

	"github.com/lib/pq"
	"gorm.io/gorm"
)

type APIKeyRepository interface {
	FindByDigest(ctx context.Context, digest string) (*models.APIKey, error)
	TouchLastUsed(ctx context.Context, id string, at time.Time) error
	Create(ctx context.Context, key *models.APIKey) error
	// List returns keys newest first. A zero limit returns every key.
	List(ctx context.Context, limit, offset int) ([]models.APIKey, int64, error)
	Deactivate(ctx context.Context, id string, at time.Time) error
	UpdateWhitelist(ctx context.Context, id string, ips []string, at time.Time) error
}

type apiKeyRepository struct {
	db *gorm.DB
}

func NewAPIKeyRepository(db *gorm.DB) APIKeyRepository {
	return &apiKeyRepository{db: db}
}

func (r *apiKeyRepository) FindByDigest(ctx context.Context, digest string) (*models.APIKey, error) {
	var key models.APIKey
	if err := r.db.WithContext(ctx).Where("key_digest = ?", digest).First(&key).Error; err != nil {
		return nil, translateError(err)
	}
	return &key, nil
}

func (r *apiKeyRepository) TouchLastUsed(ctx context.Context, id string, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.APIKey{}).
		Where("id = ?", id).
		UpdateColumn("last_used_at", at).Error
}

func (r *apiKeyRepository) Create(ctx context.Context, key *models.APIKey) error {
	return translateError(r.db.WithContext(ctx).Create(key).Error)
}

func (r *apiKeyRepository) List(ctx context.Context, limit, offset int) ([]models.APIKey, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.APIKey{}).Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	keys := make([]models.APIKey, 0)
	if total == 0 {
		return keys, 0, nil
	}
	list := q.Order("created_at DESC")
	if limit > 0 {
		list = list.Limit(limit).Offset(offset)
	}
	if err := list.Find(&keys).Error; err != nil {
		return nil, 0, err
	}
	return keys, total, nil
}

func (r *apiKeyRepository) Deactivate(ctx context.Context, id string, at time.Time) error {
	return r.updateColumns(ctx, id, map[string]interface{}{
		"is_active":  false,
		"updated_at": at,
	})
}

func (r *apiKeyRepository) UpdateWhitelist(ctx context.Context, id string, ips []string, at time.Time) error {
	return r.updateColumns(ctx, id, map[string]interface{}{
		"whitelisted_ips": pq.StringArray(ips),
		"updated_at":      at,
	})
}

func (r *apiKeyRepository) updateColumns(ctx context.Context, id string, columns map[string]interface{}) error {
	result := r.db.WithContext(ctx).
		Model(&models.APIKey{}).
		Where("id = ?", id).
		UpdateColumns(columns)
	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
