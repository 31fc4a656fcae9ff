package dispute

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	apperrors "arbitra/internal/errors"
	"arbitra/internal/events"
	"arbitra/internal/models"
	"arbitra/internal/repositories"
	"arbitra/internal/services/access"

	"github.com/google/uuid"
)

// Create files a dispute, links the contested transaction and marks it
// disputed.
func (s *Service) Create(ctx context.Context, actor *models.Actor, in CreateInput) (*models.Dispute, error) {
	if err := access.Require(!access.IsArbitrator(actor), "Arbitrators cannot file disputes"); err != nil {
		return nil, err
	}
	businessID, err := filingBusiness(actor, in.BusinessID)
	if err != nil {
		return nil, err
	}
	if in.hasEvidence() && !in.evidenceComplete() {
		return nil, apperrors.InvalidState(msgEvidenceFields)
	}

	fx := &effects{}
	var created *models.Dispute

	err = s.repo.ExecuteInTransaction(ctx, func(tx repositories.DisputeRepository) error {
		now, err := tx.Now(ctx)
		if err != nil {
			return apperrors.Wrap(err, "failed to read database clock")
		}

		d := &models.Dispute{
			ID:                     uuid.NewString(),
			BusinessID:             businessID,
			InitiatorEmail:         strings.TrimSpace(in.InitiatorEmail),
			CounterpartyEmail:      strings.TrimSpace(in.CounterpartyEmail),
			Reason:                 strings.TrimSpace(in.Reason),
			Description:            in.Description,
			Amount:                 in.Amount,
			Status:                 models.DisputeStatusOpen,
			CreatedBy:              actor.ID,
			SessionID:              in.SessionID,
			SourceAccountName:      in.SourceAccountName,
			SourceBank:             in.SourceBank,
			BeneficiaryAccountName: in.BeneficiaryAccountName,
			BeneficiaryBank:        in.BeneficiaryBank,
			CreatedAt:              now,
			UpdatedAt:              now,
		}

		if businessID != nil {
			if err := linkProfiles(ctx, tx, d, *businessID); err != nil {
				return err
			}
		}

		var txn *models.Transaction
		if in.TransactionID != nil {
			txn, err = tx.GetTransactionForUpdate(ctx, *in.TransactionID)
			if err != nil {
				return notFoundOr(err, msgTransactionNotFound, "failed to load transaction")
			}
			if !transactionInScope(actor, txn, businessID) {
				return apperrors.NotFound(msgTransactionNotFound)
			}
			_, err = tx.FindActiveDisputeForTransaction(ctx, txn.ID, businessID)
			switch {
			case err == nil:
				return apperrors.Conflict(msgDuplicateDispute)
			case !errors.Is(err, repositories.ErrNotFound):
				return apperrors.Wrap(err, "failed to check for an existing dispute")
			}

			d.TransactionID = &txn.ID
			if d.Amount == nil {
				amount := txn.Amount
				d.Amount = &amount
			}
			if d.SessionID == "" {
				d.SessionID = txn.SessionID
			}
		}

		if err := tx.CreateDispute(ctx, d); err != nil {
			if errors.Is(err, repositories.ErrDuplicate) {
				return apperrors.Conflict(msgDuplicateDispute)
			}
			return apperrors.Wrap(err, "failed to create dispute")
		}
		if err := appendHistory(ctx, tx, d, actor, models.HistoryCreated, "Dispute created", now); err != nil {
			return err
		}
		if txn != nil {
			if err := setTransactionStatus(ctx, tx, d, models.TransactionStatusDisputed); err != nil {
				return err
			}
		}

		if in.evidenceComplete() {
			ev := &models.Evidence{
				ID:           uuid.NewString(),
				DisputeID:    d.ID,
				SubmittedBy:  actor.ID,
				EvidenceType: strings.TrimSpace(in.EvidenceType),
				Description:  strings.TrimSpace(in.EvidenceDescription),
				FilePath:     in.FilePath,
				FileName:     in.FileName,
				CreatedAt:    now,
			}
			if err := tx.CreateEvidence(ctx, ev); err != nil {
				return apperrors.Wrap(err, "failed to save evidence")
			}
			if err := appendHistory(ctx, tx, d, actor, models.HistoryEvidenceAdded, "Evidence added: "+ev.Description, now); err != nil {
				return err
			}
		}

		fx.notify(createdEmails(d)...)
		fx.emit(events.DisputeCreated, eventFor(d, actor))
		created = d
		return nil
	})
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to create dispute")
	}

	s.afterCommit(ctx, created.ID, fx)
	return created, nil
}

// filingBusiness decides which tenant a new dispute belongs to.
func filingBusiness(actor *models.Actor, requested *string) (*string, error) {
	if access.IsAdmin(actor) {
		return requested, nil
	}
	if actor.BusinessID == nil {
		return nil, apperrors.Forbidden("API key is not linked to a business")
	}
	if requested != nil && *requested != *actor.BusinessID {
		return nil, apperrors.Forbidden("Disputes can only be filed within your business")
	}
	return actor.BusinessID, nil
}

// linkProfiles checks the business and attaches the parties' profiles. The
// initiator must be a known profile; the counterparty may be external.
func linkProfiles(ctx context.Context, tx repositories.DisputeRepository, d *models.Dispute, businessID string) error {
	if _, err := tx.FindBusinessByID(ctx, businessID); err != nil {
		return notFoundOr(err, "Business not found", "failed to load business")
	}

	initiator, err := tx.FindProfileByEmail(ctx, d.InitiatorEmail, businessID)
	if err != nil {
		return notFoundOr(err, "Initiator profile not found", "failed to load initiator profile")
	}
	d.InitiatorProfileID = &initiator.ID

	counterparty, err := tx.FindProfileByEmail(ctx, d.CounterpartyEmail, businessID)
	switch {
	case err == nil:
		d.CounterpartyProfileID = &counterparty.ID
	case !errors.Is(err, repositories.ErrNotFound):
		return apperrors.Wrap(err, "failed to load counterparty profile")
	}
	return nil
}

func transactionInScope(actor *models.Actor, txn *models.Transaction, businessID *string) bool {
	if !access.InTenant(actor, txn.BusinessID) {
		return false
	}
	if businessID != nil && txn.BusinessID != nil {
		return *businessID == *txn.BusinessID
	}
	return true
}

// Update applies a partial change to a non-terminal dispute.
func (s *Service) Update(ctx context.Context, actor *models.Actor, id string, in UpdateInput) (*models.Dispute, error) {
	if in.touchesArbitration() && !access.IsAdmin(actor) {
		return nil, apperrors.Forbidden("Only administrators can change arbitration fields")
	}
	if in.empty() {
		return nil, apperrors.Validation("No fields to update", nil)
	}

	return s.mutate(ctx, actor, id, func(tx repositories.DisputeRepository, d *models.Dispute, now time.Time, fx *effects) error {
		if err := access.Require(access.CanEdit(actor, d), "Only the initiator or an administrator can update this dispute"); err != nil {
			return err
		}
		if d.Status.IsTerminal() {
			return apperrors.InvalidState("Cannot update a finalized dispute")
		}

		changed := in.apply(d)
		if in.ArbitratorID != nil && (d.ArbitratorID == nil || *d.ArbitratorID != *in.ArbitratorID) {
			arbitrator, err := eligibleArbitrator(ctx, tx, *in.ArbitratorID)
			if err != nil {
				return err
			}
			d.ArbitratorID = &arbitrator.ID
			changed = append(changed, "arbitrator_id")
		}
		if len(changed) == 0 {
			return nil
		}

		if err := save(ctx, tx, d, now); err != nil {
			return err
		}
		if err := appendHistory(ctx, tx, d, actor, models.HistoryUpdated, "Updated fields: "+strings.Join(changed, ", "), now); err != nil {
			return err
		}
		event := eventFor(d, actor)
		event.Fields = changed
		fx.emit(events.DisputeUpdated, event)
		return nil
	})
}

// AddEvidence attaches evidence submitted by a party.
func (s *Service) AddEvidence(ctx context.Context, actor *models.Actor, id string, in EvidenceInput) (*models.Evidence, error) {
	in.EvidenceType = strings.TrimSpace(in.EvidenceType)
	in.Description = strings.TrimSpace(in.Description)
	if in.EvidenceType == "" || in.Description == "" {
		return nil, apperrors.InvalidState(msgEvidenceFields)
	}

	var evidence *models.Evidence
	_, err := s.mutate(ctx, actor, id, func(tx repositories.DisputeRepository, d *models.Dispute, now time.Time, fx *effects) error {
		if err := access.Require(access.CanSubmitEvidence(actor, d), "Only the parties to a dispute can submit evidence"); err != nil {
			return err
		}
		if d.Status.IsTerminal() {
			return apperrors.InvalidState("Cannot add evidence to a finalized dispute")
		}

		evidence = &models.Evidence{
			ID:           uuid.NewString(),
			DisputeID:    d.ID,
			SubmittedBy:  actor.ID,
			EvidenceType: in.EvidenceType,
			Description:  in.Description,
			FilePath:     in.FilePath,
			FileName:     in.FileName,
			CreatedAt:    now,
		}
		if err := tx.CreateEvidence(ctx, evidence); err != nil {
			return apperrors.Wrap(err, "failed to save evidence")
		}
		if err := save(ctx, tx, d, now); err != nil {
			return err
		}
		return appendHistory(ctx, tx, d, actor, models.HistoryEvidenceAdded, "Evidence added: "+in.Description, now)
	})
	if err != nil {
		return nil, err
	}
	return evidence, nil
}

// AddComment is allowed in every state, including terminal ones.
func (s *Service) AddComment(ctx context.Context, actor *models.Actor, id string, in CommentInput) (*models.Comment, error) {
	text := strings.TrimSpace(in.Comment)
	if text == "" {
		return nil, apperrors.Validation("Validation failed", map[string]string{"comment": "is required"})
	}

	var comment *models.Comment
	_, err := s.mutate(ctx, actor, id, func(tx repositories.DisputeRepository, d *models.Dispute, now time.Time, fx *effects) error {
		if err := access.Require(access.CanComment(actor, d), "You cannot comment on this dispute"); err != nil {
			return err
		}

		var err error
		comment, err = addComment(ctx, tx, d, actor, text, in.IsPrivate, now)
		if err != nil {
			return err
		}
		if !d.Status.IsTerminal() {
			if err := save(ctx, tx, d, now); err != nil {
				return err
			}
		}
		details := "Comment added"
		if in.IsPrivate {
			details = "Private comment added"
		}
		return appendHistory(ctx, tx, d, actor, models.HistoryCommentAdded, details, now)
	})
	if err != nil {
		return nil, err
	}
	return comment, nil
}

// Cancel withdraws a dispute and releases the linked transaction.
func (s *Service) Cancel(ctx context.Context, actor *models.Actor, id string) (*models.Dispute, error) {
	return s.mutate(ctx, actor, id, func(tx repositories.DisputeRepository, d *models.Dispute, now time.Time, fx *effects) error {
		if err := access.Require(access.CanEdit(actor, d), "Only the initiator or an administrator can cancel this dispute"); err != nil {
			return err
		}
		if d.Status.IsTerminal() {
			return apperrors.InvalidState(msgAlreadyFinalized)
		}

		d.Status = models.DisputeStatusCanceled
		if err := save(ctx, tx, d, now); err != nil {
			return err
		}
		by := "initiator"
		if access.IsAdmin(actor) {
			by = "administrator"
		}
		if err := appendHistory(ctx, tx, d, actor, models.HistoryCanceled, fmt.Sprintf("Dispute canceled by %s", by), now); err != nil {
			return err
		}
		if err := releaseTransaction(ctx, tx, d); err != nil {
			return err
		}
		fx.emit(events.DisputeCanceled, eventFor(d, actor))
		return nil
	})
}
