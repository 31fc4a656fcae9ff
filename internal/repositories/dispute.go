package repositories

import (
	"context"
	"time"

	"arbitra/internal/models"

	"github.com/lib/pq"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PartyScope limits results to disputes where the caller is a party: its
// email matches either side, or it created the dispute.
type PartyScope struct {
	Email   string
	ActorID string
}

// DisputeFilter narrows dispute listings. Zero values mean "no filter".
type DisputeFilter struct {
	BusinessID *string
	Status     models.DisputeStatus
	From       *time.Time
	To         *time.Time
	ProfileID  string
	Party      *PartyScope

	// ArbitratorID restricts to cases assigned to that arbitrator. With
	// IncludeUnclaimed, unassigned active cases are listed as well.
	ArbitratorID     string
	IncludeUnclaimed bool

	Limit  int
	Offset int
}

// DisputeRepository is the persistence gateway for the dispute lifecycle.
// Methods called on the repository handed to ExecuteInTransaction run in
// that transaction.
type DisputeRepository interface {
	ExecuteInTransaction(ctx context.Context, fn func(DisputeRepository) error) error
	Now(ctx context.Context) (time.Time, error)

	// Disputes
	GetDispute(ctx context.Context, id string) (*models.Dispute, error)
	GetDisputeForUpdate(ctx context.Context, id string) (*models.Dispute, error)
	FindActiveDisputeForTransaction(ctx context.Context, transactionID string, businessID *string) (*models.Dispute, error)
	CreateDispute(ctx context.Context, dispute *models.Dispute) error
	SaveDispute(ctx context.Context, dispute *models.Dispute) error
	ListDisputes(ctx context.Context, filter DisputeFilter) ([]models.Dispute, int64, error)
	FindStaleDisputes(ctx context.Context, before time.Time) ([]models.Dispute, error)

	// Case file
	CreateEvidence(ctx context.Context, evidence *models.Evidence) error
	ListEvidence(ctx context.Context, disputeID string) ([]models.Evidence, error)
	CreateComment(ctx context.Context, comment *models.Comment) error
	ListComments(ctx context.Context, disputeID string) ([]models.Comment, error)
	AppendHistory(ctx context.Context, entry *models.DisputeHistory) error
	ListHistory(ctx context.Context, disputeID string) ([]models.DisputeHistory, error)

	// Collaborators owned elsewhere
	GetTransaction(ctx context.Context, id string) (*models.Transaction, error)
	GetTransactionForUpdate(ctx context.Context, id string) (*models.Transaction, error)
	UpdateTransactionStatus(ctx context.Context, id string, status models.TransactionStatus) error
	GetAPIKey(ctx context.Context, id string) (*models.APIKey, error)
	FindProfileByEmail(ctx context.Context, email, businessID string) (*models.Profile, error)
	FindBusinessByID(ctx context.Context, id string) (*models.Business, error)
}

type disputeRepository struct {
	db *gorm.DB
}

func NewDisputeRepository(db *gorm.DB) DisputeRepository {
	return &disputeRepository{db: db}
}

func (r *disputeRepository) ExecuteInTransaction(ctx context.Context, fn func(DisputeRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&disputeRepository{db: tx})
	})
}

// Now returns the database clock so every timestamp in a unit of work
// comes from the same source.
func (r *disputeRepository) Now(ctx context.Context) (time.Time, error) {
	var now time.Time
	if err := r.db.WithContext(ctx).Raw("SELECT now()").Scan(&now).Error; err != nil {
		return time.Time{}, err
	}
	return now.UTC(), nil
}

func (r *disputeRepository) GetDispute(ctx context.Context, id string) (*models.Dispute, error) {
	var dispute models.Dispute
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&dispute).Error; err != nil {
		return nil, translateError(err)
	}
	return &dispute, nil
}

func (r *disputeRepository) GetDisputeForUpdate(ctx context.Context, id string) (*models.Dispute, error) {
	var dispute models.Dispute
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&dispute).Error
	if err != nil {
		return nil, translateError(err)
	}
	return &dispute, nil
}

func (r *disputeRepository) FindActiveDisputeForTransaction(ctx context.Context, transactionID string, businessID *string) (*models.Dispute, error) {
	q := r.db.WithContext(ctx).
		Where("transaction_id = ?", transactionID).
		Where("status = ANY(?)", statusArray(models.ActiveDisputeStatuses))
	if businessID == nil {
		q = q.Where("business_id IS NULL")
	} else {
		q = q.Where("business_id = ?", *businessID)
	}

	var dispute models.Dispute
	if err := q.First(&dispute).Error; err != nil {
		return nil, translateError(err)
	}
	return &dispute, nil
}

func (r *disputeRepository) CreateDispute(ctx context.Context, dispute *models.Dispute) error {
	return translateError(r.db.WithContext(ctx).Create(dispute).Error)
}

func (r *disputeRepository) SaveDispute(ctx context.Context, dispute *models.Dispute) error {
	return translateError(r.db.WithContext(ctx).Save(dispute).Error)
}

func (r *disputeRepository) ListDisputes(ctx context.Context, filter DisputeFilter) ([]models.Dispute, int64, error) {
	q := applyDisputeFilter(r.db.WithContext(ctx).Model(&models.Dispute{}), filter).
		Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	disputes := make([]models.Dispute, 0)
	if total == 0 {
		return disputes, 0, nil
	}
	list := q.Order("created_at DESC")
	if filter.Limit > 0 {
		list = list.Limit(filter.Limit).Offset(filter.Offset)
	}
	if err := list.Find(&disputes).Error; err != nil {
		return nil, 0, err
	}
	return disputes, total, nil
}

func applyDisputeFilter(q *gorm.DB, f DisputeFilter) *gorm.DB {
	if f.BusinessID != nil {
		q = q.Where("business_id = ?", *f.BusinessID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.From != nil {
		q = q.Where("created_at >= ?", *f.From)
	}
	if f.To != nil {
		q = q.Where("created_at <= ?", *f.To)
	}
	if f.ProfileID != "" {
		q = q.Where("(initiator_profile_id = ? OR counterparty_profile_id = ?)", f.ProfileID, f.ProfileID)
	}
	if f.Party != nil {
		q = q.Where("(LOWER(initiator_email) = LOWER(?) OR LOWER(counterparty_email) = LOWER(?) OR created_by = ?)",
			f.Party.Email, f.Party.Email, f.Party.ActorID)
	}
	if f.ArbitratorID != "" {
		if f.IncludeUnclaimed {
			q = q.Where("(arbitrator_id = ? OR (arbitrator_id IS NULL AND status = ANY(?)))",
				f.ArbitratorID, statusArray(models.ActiveDisputeStatuses))
		} else {
			q = q.Where("arbitrator_id = ?", f.ArbitratorID)
		}
	}
	return q
}

func (r *disputeRepository) FindStaleDisputes(ctx context.Context, before time.Time) ([]models.Dispute, error) {
	var disputes []models.Dispute
	err := r.db.WithContext(ctx).
		Where("status = ANY(?)", statusArray(models.ActiveDisputeStatuses)).
		Where("updated_at < ?", before).
		Where("arbitrator_id IS NOT NULL").
		Order("updated_at ASC").
		Find(&disputes).Error
	return disputes, err
}

func (r *disputeRepository) CreateEvidence(ctx context.Context, evidence *models.Evidence) error {
	return translateError(r.db.WithContext(ctx).Create(evidence).Error)
}

func (r *disputeRepository) ListEvidence(ctx context.Context, disputeID string) ([]models.Evidence, error) {
	evidence := make([]models.Evidence, 0)
	err := r.db.WithContext(ctx).Where("dispute_id = ?", disputeID).Order("created_at DESC").Find(&evidence).Error
	return evidence, err
}

func (r *disputeRepository) CreateComment(ctx context.Context, comment *models.Comment) error {
	return translateError(r.db.WithContext(ctx).Create(comment).Error)
}

func (r *disputeRepository) ListComments(ctx context.Context, disputeID string) ([]models.Comment, error) {
	comments := make([]models.Comment, 0)
	err := r.db.WithContext(ctx).Where("dispute_id = ?", disputeID).Order("created_at DESC").Find(&comments).Error
	return comments, err
}

func (r *disputeRepository) AppendHistory(ctx context.Context, entry *models.DisputeHistory) error {
	return translateError(r.db.WithContext(ctx).Create(entry).Error)
}

func (r *disputeRepository) ListHistory(ctx context.Context, disputeID string) ([]models.DisputeHistory, error) {
	history := make([]models.DisputeHistory, 0)
	err := r.db.WithContext(ctx).Where("dispute_id = ?", disputeID).Order("action_date DESC").Find(&history).Error
	return history, err
}

func (r *disputeRepository) GetTransaction(ctx context.Context, id string) (*models.Transaction, error) {
	var txn models.Transaction
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&txn).Error; err != nil {
		return nil, translateError(err)
	}
	return &txn, nil
}

func (r *disputeRepository) GetTransactionForUpdate(ctx context.Context, id string) (*models.Transaction, error) {
	var txn models.Transaction
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&txn).Error
	if err != nil {
		return nil, translateError(err)
	}
	return &txn, nil
}

func (r *disputeRepository) UpdateTransactionStatus(ctx context.Context, id string, status models.TransactionStatus) error {
	result := r.db.WithContext(ctx).
		Model(&models.Transaction{}).
		Where("id = ?", id).
		Update("status", status)
	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *disputeRepository) GetAPIKey(ctx context.Context, id string) (*models.APIKey, error) {
	var key models.APIKey
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&key).Error; err != nil {
		return nil, translateError(err)
	}
	return &key, nil
}

func (r *disputeRepository) FindProfileByEmail(ctx context.Context, email, businessID string) (*models.Profile, error) {
	var profile models.Profile
	err := r.db.WithContext(ctx).
		Where("LOWER(email) = LOWER(?) AND business_id = ?", email, businessID).
		First(&profile).Error
	if err != nil {
		return nil, translateError(err)
	}
	return &profile, nil
}

func (r *disputeRepository) FindBusinessByID(ctx context.Context, id string) (*models.Business, error) {
	var business models.Business
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&business).Error; err != nil {
		return nil, translateError(err)
	}
	return &business, nil
}

func statusArray(statuses []models.DisputeStatus) interface{} {
	values := make([]string, len(statuses))
	for i, s := range statuses {
		values[i] = string(s)
	}
	return pq.Array(values)
}
