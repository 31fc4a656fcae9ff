// Package reminder nudges arbitrators about cases that have gone quiet.
package reminder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"arbitra/internal/repositories"
	"arbitra/internal/services/notification"
)

const (
	DefaultStaleAfter = 7 * 24 * time.Hour

	subject = "Dispute Action Required"
)

type Notifier interface {
	SendEmail(ctx context.Context, email notification.Email)
}

type Sweeper struct {
	repo       repositories.DisputeRepository
	notifier   Notifier
	staleAfter time.Duration
	now        func() time.Time
}

func NewSweeper(repo repositories.DisputeRepository, notifier Notifier) *Sweeper {
	return &Sweeper{
		repo:       repo,
		notifier:   notifier,
		staleAfter: DefaultStaleAfter,
		now:        time.Now,
	}
}

// Run emails the arbitrator of every active case without activity for the
// stale period and returns how many reminders were queued.
func (s *Sweeper) Run(ctx context.Context) (int, error) {
	cutoff := s.now().UTC().Add(-s.staleAfter)
	disputes, err := s.repo.FindStaleDisputes(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("find stale disputes: %w", err)
	}

	sent := 0
	for _, d := range disputes {
		arbitrator, err := s.repo.GetAPIKey(ctx, *d.ArbitratorID)
		if err != nil {
			if !errors.Is(err, repositories.ErrNotFound) {
				return sent, fmt.Errorf("load arbitrator %s: %w", *d.ArbitratorID, err)
			}
			slog.Warn("stale dispute has unknown arbitrator",
				"module", "reminder",
				"dispute_id", d.ID,
				"arbitrator_id", *d.ArbitratorID,
			)
			continue
		}
		s.notifier.SendEmail(ctx, notification.Email{
			To:      arbitrator.Email,
			Subject: subject,
			Message: fmt.Sprintf("Dispute %s has had no activity for 7 days. Please review.", d.ID),
		})
		sent++
	}

	slog.Info("reminder sweep finished",
		"module", "reminder",
		"operation", "sweep",
		"outcome", "success",
		"stale", len(disputes),
		"sent", sent,
	)
	return sent, nil
}

// Schedule runs the sweep every day at local midnight until ctx is done.
func (s *Sweeper) Schedule(ctx context.Context) {
	for {
		wait := time.Until(nextMidnight(s.now()))
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			if _, err := s.Run(ctx); err != nil {
				slog.Error("reminder sweep failed",
					"module", "reminder",
					"operation", "sweep",
					"outcome", "failure",
					"error", err,
				)
			}
		}
	}
}

func nextMidnight(now time.Time) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, now.Location())
}
