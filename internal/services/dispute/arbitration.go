package dispute

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	apperrors "arbitra/internal/errors"
	"arbitra/internal/events"
	"arbitra/internal/models"
	"arbitra/internal/repositories"
	"arbitra/internal/services/access"
)

const msgArbitrateForbidden = "Only the assigned arbitrator or an administrator can act on this dispute"

// AssignArbitrator sets the arbitrator of a non-terminal case. Admins may
// assign anyone eligible; an arbitrator may only claim an unclaimed case
// for itself.
func (s *Service) AssignArbitrator(ctx context.Context, actor *models.Actor, id, arbitratorID string) (*models.Dispute, error) {
	return s.mutate(ctx, actor, id, func(tx repositories.DisputeRepository, d *models.Dispute, now time.Time, fx *effects) error {
		claiming := access.CanClaim(actor, d) && arbitratorID == actor.ID
		if err := access.Require(access.IsAdmin(actor) || claiming, "Only administrators can assign arbitrators"); err != nil {
			return err
		}
		if d.Status.IsTerminal() {
			return apperrors.InvalidState("Cannot assign an arbitrator to a finalized dispute")
		}

		arbitrator, err := eligibleArbitrator(ctx, tx, arbitratorID)
		if err != nil {
			return err
		}

		d.ArbitratorID = &arbitrator.ID
		if err := save(ctx, tx, d, now); err != nil {
			return err
		}
		if err := appendHistory(ctx, tx, d, actor, models.HistoryArbitratorAssigned, "Arbitrator assigned: "+arbitrator.Email, now); err != nil {
			return err
		}
		fx.notify(assignedEmail(d, arbitrator))
		fx.emit(events.DisputeArbitratorAssigned, eventFor(d, actor))
		return nil
	})
}

func eligibleArbitrator(ctx context.Context, tx repositories.DisputeRepository, id string) (*models.APIKey, error) {
	key, err := tx.GetAPIKey(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "Arbitrator not found", "failed to load arbitrator")
	}
	if !key.CanArbitrate() {
		return nil, apperrors.InvalidState("Selected user is not an arbitrator")
	}
	return key, nil
}

// Review moves a case to under_review. Notes are kept as a private comment.
func (s *Service) Review(ctx context.Context, actor *models.Actor, id string, in ReviewInput) (*models.Dispute, error) {
	notes := strings.TrimSpace(in.Notes)

	return s.mutate(ctx, actor, id, func(tx repositories.DisputeRepository, d *models.Dispute, now time.Time, fx *effects) error {
		if err := access.Require(access.CanArbitrate(actor, d), msgArbitrateForbidden); err != nil {
			return err
		}
		if d.Status.IsTerminal() {
			return apperrors.InvalidState("Cannot review a finalized dispute")
		}

		d.Status = models.DisputeStatusUnderReview
		if err := save(ctx, tx, d, now); err != nil {
			return err
		}
		details := notes
		if details == "" {
			details = "Case review started"
		}
		if err := appendHistory(ctx, tx, d, actor, models.HistoryReviewStarted, details, now); err != nil {
			return err
		}
		if notes != "" {
			if _, err := addComment(ctx, tx, d, actor, notes, true, now); err != nil {
				return err
			}
		}
		fx.emit(events.DisputeReviewStarted, eventFor(d, actor))
		return nil
	})
}

// Resolve records the outcome and settles the linked transaction: failed
// when the initiator wins, completed otherwise.
func (s *Service) Resolve(ctx context.Context, actor *models.Actor, id string, in ResolveInput) (*models.Dispute, error) {
	if !in.Resolution.Valid() {
		return nil, apperrors.InvalidState(msgInvalidResolution)
	}
	notes := strings.TrimSpace(in.Notes)

	return s.mutate(ctx, actor, id, func(tx repositories.DisputeRepository, d *models.Dispute, now time.Time, fx *effects) error {
		if err := access.Require(access.CanArbitrate(actor, d), msgArbitrateForbidden); err != nil {
			return err
		}
		if d.Status.IsTerminal() {
			return apperrors.InvalidState(msgAlreadyFinalized)
		}

		resolution := in.Resolution
		action := models.DisputeActionAccept
		resolvedAt := now
		d.Status = models.DisputeStatusResolved
		d.Resolution = &resolution
		d.ResolutionDate = &resolvedAt
		d.Action = &action
		d.DateTreated = &resolvedAt
		if notes != "" {
			d.ResolutionNotes = &notes
		}
		if err := save(ctx, tx, d, now); err != nil {
			return err
		}

		summary := "Case resolved: " + humanize(string(resolution))
		if err := appendHistory(ctx, tx, d, actor, models.HistoryResolved, summary, now); err != nil {
			return err
		}

		txnStatus := models.TransactionStatusCompleted
		if resolution == models.ResolutionInFavorOfInitiator {
			txnStatus = models.TransactionStatusFailed
		}
		if err := setTransactionStatus(ctx, tx, d, txnStatus); err != nil {
			return err
		}

		public := notes
		if public == "" {
			public = summary
		}
		if _, err := addComment(ctx, tx, d, actor, public, false, now); err != nil {
			return err
		}

		fx.notify(resolvedEmails(d, arbitratorEmail(ctx, tx, d))...)
		fx.emit(events.DisputeResolved, eventFor(d, actor))
		return nil
	})
}

// Reject closes a case without a resolution and releases the transaction.
func (s *Service) Reject(ctx context.Context, actor *models.Actor, id string, in RejectInput) (*models.Dispute, error) {
	reason := strings.TrimSpace(in.Reason)
	if reason == "" {
		return nil, apperrors.Validation("Validation failed", map[string]string{"reason": "is required"})
	}

	return s.mutate(ctx, actor, id, func(tx repositories.DisputeRepository, d *models.Dispute, now time.Time, fx *effects) error {
		if err := access.Require(access.CanArbitrate(actor, d), msgArbitrateForbidden); err != nil {
			return err
		}
		if d.Status.IsTerminal() {
			return apperrors.InvalidState(msgAlreadyFinalized)
		}

		action := models.DisputeActionReject
		treated := now
		d.Status = models.DisputeStatusRejected
		d.Action = &action
		d.DateTreated = &treated
		d.ResolutionNotes = &reason
		if err := save(ctx, tx, d, now); err != nil {
			return err
		}
		if err := appendHistory(ctx, tx, d, actor, models.HistoryRejected, "Case rejected: "+reason, now); err != nil {
			return err
		}
		if err := setTransactionStatus(ctx, tx, d, models.TransactionStatusCompleted); err != nil {
			return err
		}
		if _, err := addComment(ctx, tx, d, actor, reason, false, now); err != nil {
			return err
		}

		fx.notify(rejectedEmails(d, reason)...)
		fx.emit(events.DisputeRejected, eventFor(d, actor))
		return nil
	})
}

// arbitratorEmail is best effort; a missing key only skips one email.
func arbitratorEmail(ctx context.Context, tx repositories.DisputeRepository, d *models.Dispute) string {
	if d.ArbitratorID == nil {
		return ""
	}
	key, err := tx.GetAPIKey(ctx, *d.ArbitratorID)
	if err != nil {
		if !errors.Is(err, repositories.ErrNotFound) {
			slog.Warn("failed to load arbitrator for notification",
				"module", "dispute",
				"operation", "resolve",
				"dispute_id", d.ID,
				"error", err,
			)
		}
		return ""
	}
	return key.Email
}
