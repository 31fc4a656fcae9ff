package dispute

import (
	"context"
	"time"

	"arbitra/internal/services/notification"
)

// Cache is the read-through store for assembled case files.
type Cache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	SetWithTTL(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// Notifier sends email without blocking and without reporting failures.
type Notifier interface {
	SendEmail(ctx context.Context, email notification.Email)
}
