package dispute

import (
	"context"
	"errors"
	"log/slog"

	apperrors "arbitra/internal/errors"
	"arbitra/internal/models"
	"arbitra/internal/repositories"
	"arbitra/internal/services/access"
	cachekeys "arbitra/internal/utils/cache"

	"golang.org/x/sync/errgroup"
)

// Get returns the full case file of a dispute the caller may see.
func (s *Service) Get(ctx context.Context, actor *models.Actor, id string) (*models.DisputeDetail, error) {
	detail, err := s.loadDetail(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := access.Visible(actor, &detail.Dispute); err != nil {
		return nil, err
	}
	return detail, nil
}

// History returns the audit trail, newest first.
func (s *Service) History(ctx context.Context, actor *models.Actor, id string) ([]models.DisputeHistory, error) {
	detail, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	return detail.History, nil
}

// List returns the disputes visible to the caller, newest first.
func (s *Service) List(ctx context.Context, actor *models.Actor, q ListQuery) ([]models.Dispute, int64, error) {
	filter := q.filter()
	if err := access.ScopeDisputes(actor, &filter); err != nil {
		return nil, 0, err
	}
	return s.list(ctx, filter)
}

// ListByProfile lists disputes where profileID is either party.
func (s *Service) ListByProfile(ctx context.Context, actor *models.Actor, profileID string, q ListQuery) ([]models.Dispute, int64, error) {
	filter := q.filter()
	filter.ProfileID = profileID
	if err := access.ScopeDisputes(actor, &filter); err != nil {
		return nil, 0, err
	}
	return s.list(ctx, filter)
}

// ListArbitratorCases is the arbitration queue. Arbitrators see their own
// cases plus unclaimed ones; admins see everything or one arbitrator's cases.
func (s *Service) ListArbitratorCases(ctx context.Context, actor *models.Actor, q ListQuery) ([]models.Dispute, int64, error) {
	filter := q.filter()
	switch {
	case access.IsAdmin(actor):
		filter.ArbitratorID = q.ArbitratorID
	case access.IsArbitrator(actor):
		if err := access.ScopeDisputes(actor, &filter); err != nil {
			return nil, 0, err
		}
	default:
		return nil, 0, apperrors.Forbidden("Only arbitrators and administrators can view the arbitration queue")
	}
	return s.list(ctx, filter)
}

func (s *Service) list(ctx context.Context, filter repositories.DisputeFilter) ([]models.Dispute, int64, error) {
	disputes, total, err := s.repo.ListDisputes(ctx, filter)
	if err != nil {
		return nil, 0, apperrors.Wrap(err, "failed to list disputes")
	}
	return disputes, total, nil
}

func (q ListQuery) filter() repositories.DisputeFilter {
	return repositories.DisputeFilter{
		Status: q.Status,
		From:   q.From,
		To:     q.To,
		Limit:  q.Limit,
		Offset: q.Offset,
	}
}

// loadDetail reads the case file through the cache. Cache errors are
// logged and the database is used instead.
func (s *Service) loadDetail(ctx context.Context, id string) (*models.DisputeDetail, error) {
	key := cachekeys.DisputeKey(id)

	var cached models.DisputeDetail
	found, err := s.cache.Get(ctx, key, &cached)
	if err != nil {
		slog.Warn("dispute cache read failed",
			"module", "dispute",
			"operation", "get",
			"outcome", "fallback",
			"dispute_id", id,
			"error", err,
		)
	} else if found {
		return &cached, nil
	}

	d, err := s.repo.GetDispute(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, msgDisputeNotFound, "failed to load dispute")
	}
	detail := &models.DisputeDetail{Dispute: *d}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		detail.Evidence, err = s.repo.ListEvidence(gctx, id)
		return err
	})
	g.Go(func() error {
		var err error
		detail.Comments, err = s.repo.ListComments(gctx, id)
		return err
	})
	g.Go(func() error {
		var err error
		detail.History, err = s.repo.ListHistory(gctx, id)
		return err
	})
	if d.TransactionID != nil {
		g.Go(func() error {
			txn, err := s.repo.GetTransaction(gctx, *d.TransactionID)
			if errors.Is(err, repositories.ErrNotFound) {
				return nil
			}
			detail.Transaction = txn
			return err
		})
	}
	if d.ArbitratorID != nil {
		g.Go(func() error {
			arbitrator, err := s.repo.GetAPIKey(gctx, *d.ArbitratorID)
			if errors.Is(err, repositories.ErrNotFound) {
				return nil
			}
			if err != nil {
				return err
			}
			detail.ArbitratorEmail = &arbitrator.Email
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, apperrors.Wrap(err, "failed to load dispute details")
	}

	// A write that committed while the case file was assembled has already
	// dropped the key. Storing this copy would put the stale file back.
	if s.changedSince(ctx, detail) {
		return detail, nil
	}
	if err := s.cache.SetWithTTL(ctx, key, detail, s.cfg.CaseTTL); err != nil {
		slog.Warn("dispute cache write failed",
			"module", "dispute",
			"operation", "get",
			"dispute_id", id,
			"error", err,
		)
	}
	return detail, nil
}

// changedSince reports whether the dispute moved on after detail was read.
// Every mutation either bumps updated_at or appends history. When the check
// itself fails the detail is treated as changed.
func (s *Service) changedSince(ctx context.Context, detail *models.DisputeDetail) bool {
	current, err := s.repo.GetDispute(ctx, detail.ID)
	if err != nil || !current.UpdatedAt.Equal(detail.UpdatedAt) {
		return true
	}
	history, err := s.repo.ListHistory(ctx, detail.ID)
	return err != nil || len(history) != len(detail.History)
}
