package dispute

import (
	"context"
	"time"

	apperrors "arbitra/internal/errors"
	"arbitra/internal/events"
	"arbitra/internal/models"
	"arbitra/internal/repositories"
	"arbitra/internal/services/access"

	"github.com/google/uuid"
)

const DefaultCaseTTL = 10 * time.Minute

type Config struct {
	// CaseTTL is how long an assembled case file stays cached.
	CaseTTL time.Duration
}

// Service runs every dispute operation. It is safe for concurrent use.
type Service struct {
	repo     repositories.DisputeRepository
	cache    Cache
	notifier Notifier
	events   events.Publisher
	cfg      Config
}

func NewService(repo repositories.DisputeRepository, cache Cache, notifier Notifier, publisher events.Publisher, cfg Config) *Service {
	if repo == nil {
		panic("dispute repository is required")
	}
	if cache == nil {
		panic("cache is required")
	}
	if notifier == nil {
		panic("notifier is required")
	}
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	if cfg.CaseTTL <= 0 {
		cfg.CaseTTL = DefaultCaseTTL
	}
	return &Service{
		repo:     repo,
		cache:    cache,
		notifier: notifier,
		events:   publisher,
		cfg:      cfg,
	}
}

// mutation is the body of a locked unit of work. d is the locked row; the
// function changes it in place and records what to do after commit.
type mutation func(tx repositories.DisputeRepository, d *models.Dispute, now time.Time, fx *effects) error

// mutate locks the dispute, checks visibility and runs fn in one
// transaction. Effects collected by fn run only when the commit succeeds.
func (s *Service) mutate(ctx context.Context, actor *models.Actor, id string, fn mutation) (*models.Dispute, error) {
	fx := &effects{}
	var result *models.Dispute

	err := s.repo.ExecuteInTransaction(ctx, func(tx repositories.DisputeRepository) error {
		d, err := tx.GetDisputeForUpdate(ctx, id)
		if err != nil {
			return notFoundOr(err, msgDisputeNotFound, "failed to load dispute")
		}
		if err := access.Visible(actor, d); err != nil {
			return err
		}
		now, err := tx.Now(ctx)
		if err != nil {
			return apperrors.Wrap(err, "failed to read database clock")
		}
		if err := fn(tx, d, now, fx); err != nil {
			return err
		}
		result = d
		return nil
	})
	if err != nil {
		return nil, apperrors.Wrap(err, "dispute transaction failed")
	}

	s.afterCommit(ctx, id, fx)
	return result, nil
}

// touch advances updated_at without ever moving it backwards.
func touch(d *models.Dispute, now time.Time) {
	if now.After(d.UpdatedAt) {
		d.UpdatedAt = now
	}
}

func save(ctx context.Context, tx repositories.DisputeRepository, d *models.Dispute, now time.Time) error {
	touch(d, now)
	if err := tx.SaveDispute(ctx, d); err != nil {
		return apperrors.Wrap(err, "failed to save dispute")
	}
	return nil
}

func appendHistory(ctx context.Context, tx repositories.DisputeRepository, d *models.Dispute, actor *models.Actor, action, details string, now time.Time) error {
	err := tx.AppendHistory(ctx, &models.DisputeHistory{
		ID:         uuid.NewString(),
		DisputeID:  d.ID,
		CreatedBy:  actor.ID,
		Action:     action,
		Details:    details,
		ActionDate: now,
	})
	if err != nil {
		return apperrors.Wrap(err, "failed to record dispute history")
	}
	return nil
}

func addComment(ctx context.Context, tx repositories.DisputeRepository, d *models.Dispute, actor *models.Actor, text string, private bool, now time.Time) (*models.Comment, error) {
	comment := &models.Comment{
		ID:        uuid.NewString(),
		DisputeID: d.ID,
		CreatedBy: actor.ID,
		Comment:   text,
		IsPrivate: private,
		CreatedAt: now,
	}
	if err := tx.CreateComment(ctx, comment); err != nil {
		return nil, apperrors.Wrap(err, "failed to save comment")
	}
	return comment, nil
}

// setTransactionStatus moves the linked transaction, if any. A missing
// transaction aborts the unit of work.
func setTransactionStatus(ctx context.Context, tx repositories.DisputeRepository, d *models.Dispute, status models.TransactionStatus) error {
	if d.TransactionID == nil {
		return nil
	}
	if err := tx.UpdateTransactionStatus(ctx, *d.TransactionID, status); err != nil {
		return notFoundOr(err, msgTransactionNotFound, "failed to update transaction status")
	}
	return nil
}

// releaseTransaction puts a disputed transaction back to completed. A
// transaction that already moved on is left alone.
func releaseTransaction(ctx context.Context, tx repositories.DisputeRepository, d *models.Dispute) error {
	if d.TransactionID == nil {
		return nil
	}
	txn, err := tx.GetTransactionForUpdate(ctx, *d.TransactionID)
	if err != nil {
		return notFoundOr(err, msgTransactionNotFound, "failed to load transaction")
	}
	if txn.Status != models.TransactionStatusDisputed {
		return nil
	}
	return setTransactionStatus(ctx, tx, d, models.TransactionStatusCompleted)
}
