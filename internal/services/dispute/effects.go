package dispute

import (
	"context"
	"log/slog"
	"time"

	"arbitra/internal/services/notification"
	cachekeys "arbitra/internal/utils/cache"
)

const publishTimeout = 5 * time.Second

// effects are the side effects of a unit of work that must wait for commit.
type effects struct {
	emails    []notification.Email
	eventType string
	eventData interface{}
}

func (fx *effects) notify(emails ...notification.Email) {
	fx.emails = append(fx.emails, emails...)
}

func (fx *effects) emit(eventType string, data interface{}) {
	fx.eventType = eventType
	fx.eventData = data
}

// afterCommit invalidates the case cache, queues notifications and
// publishes the lifecycle event. None of these can fail the operation.
func (s *Service) afterCommit(ctx context.Context, disputeID string, fx *effects) {
	s.invalidate(ctx, disputeID)

	for _, email := range fx.emails {
		s.notifier.SendEmail(ctx, email)
	}

	if fx.eventType == "" {
		return
	}
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := s.events.Publish(pubCtx, fx.eventType, disputeID, fx.eventData); err != nil {
		slog.Warn("failed to publish dispute event",
			"module", "dispute",
			"operation", "publish",
			"outcome", "failure",
			"event_type", fx.eventType,
			"dispute_id", disputeID,
			"error", err,
		)
	}
}

func (s *Service) invalidate(ctx context.Context, disputeID string) {
	if err := s.cache.Delete(ctx, cachekeys.DisputeKey(disputeID)); err != nil {
		slog.Warn("failed to invalidate dispute cache",
			"module", "dispute",
			"operation", "invalidate",
			"outcome", "failure",
			"dispute_id", disputeID,
			"error", err,
		)
	}
}
