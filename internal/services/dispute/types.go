package dispute

import (
	"strings"
	"time"

	"arbitra/internal/models"
)

// CreateInput files a new dispute. BusinessID is honored for admins only;
// users always file inside their own business.
type CreateInput struct {
	BusinessID        *string  `json:"business_id" validate:"omitempty,uuid"`
	TransactionID     *string  `json:"transaction_id" validate:"omitempty,uuid"`
	InitiatorEmail    string   `json:"initiator_email" validate:"required,email"`
	CounterpartyEmail string   `json:"counterparty_email" validate:"required,email"`
	Reason            string   `json:"reason" validate:"required,max=255"`
	Description       string   `json:"description" validate:"max=5000"`
	Amount            *float64 `json:"amount" validate:"omitempty,gt=0"`

	SessionID              string `json:"session_id" validate:"max=100"`
	SourceAccountName      string `json:"source_account_name" validate:"max=255"`
	SourceBank             string `json:"source_bank" validate:"max=255"`
	BeneficiaryAccountName string `json:"beneficiary_account_name" validate:"max=255"`
	BeneficiaryBank        string `json:"beneficiary_bank" validate:"max=255"`

	// Optional first piece of evidence. Type and description go together.
	EvidenceType        string `json:"evidence_type" validate:"max=100"`
	EvidenceDescription string `json:"evidence_description" validate:"max=5000"`
	FilePath            string `json:"file_path" validate:"max=1024"`
	FileName            string `json:"file_name" validate:"max=255"`
}

func (in CreateInput) hasEvidence() bool {
	return strings.TrimSpace(in.EvidenceType) != "" || strings.TrimSpace(in.EvidenceDescription) != ""
}

func (in CreateInput) evidenceComplete() bool {
	return strings.TrimSpace(in.EvidenceType) != "" && strings.TrimSpace(in.EvidenceDescription) != ""
}

// UpdateInput is a partial update. Nil fields are left unchanged. Status
// and resolution are not updatable here; they only move through the
// lifecycle operations.
type UpdateInput struct {
	Reason            *string  `json:"reason" validate:"omitempty,min=1,max=255"`
	Description       *string  `json:"description" validate:"omitempty,max=5000"`
	Amount            *float64 `json:"amount" validate:"omitempty,gt=0"`
	InitiatorEmail    *string  `json:"initiator_email" validate:"omitempty,email"`
	CounterpartyEmail *string  `json:"counterparty_email" validate:"omitempty,email"`

	// Admin only.
	ArbitratorID    *string               `json:"arbitrator_id" validate:"omitempty,uuid"`
	ResolutionNotes *string               `json:"resolution_notes" validate:"omitempty,max=5000"`
	Action          *models.DisputeAction `json:"action" validate:"omitempty,oneof=accept reject"`
	DateTreated     *time.Time            `json:"date_treated"`
}

func (in UpdateInput) touchesArbitration() bool {
	return in.ArbitratorID != nil || in.ResolutionNotes != nil || in.Action != nil || in.DateTreated != nil
}

func (in UpdateInput) empty() bool {
	return in.Reason == nil && in.Description == nil && in.Amount == nil &&
		in.InitiatorEmail == nil && in.CounterpartyEmail == nil && !in.touchesArbitration()
}

// apply copies the set fields onto d and returns the names of the fields
// whose value actually changed. The arbitrator is handled by the caller.
func (in UpdateInput) apply(d *models.Dispute) []string {
	var changed []string
	setString := func(name string, dst *string, src *string) {
		if src != nil && *dst != *src {
			*dst = *src
			changed = append(changed, name)
		}
	}
	setString("reason", &d.Reason, in.Reason)
	setString("description", &d.Description, in.Description)
	setString("initiator_email", &d.InitiatorEmail, in.InitiatorEmail)
	setString("counterparty_email", &d.CounterpartyEmail, in.CounterpartyEmail)

	if in.Amount != nil && (d.Amount == nil || *d.Amount != *in.Amount) {
		amount := *in.Amount
		d.Amount = &amount
		changed = append(changed, "amount")
	}
	if in.ResolutionNotes != nil && (d.ResolutionNotes == nil || *d.ResolutionNotes != *in.ResolutionNotes) {
		notes := *in.ResolutionNotes
		d.ResolutionNotes = &notes
		changed = append(changed, "resolution_notes")
	}
	if in.Action != nil && (d.Action == nil || *d.Action != *in.Action) {
		action := *in.Action
		d.Action = &action
		changed = append(changed, "action")
	}
	if in.DateTreated != nil && (d.DateTreated == nil || !d.DateTreated.Equal(*in.DateTreated)) {
		treated := in.DateTreated.UTC()
		d.DateTreated = &treated
		changed = append(changed, "date_treated")
	}
	return changed
}

type EvidenceInput struct {
	EvidenceType string `json:"evidence_type" validate:"required,max=100"`
	Description  string `json:"description" validate:"required,max=5000"`
	FilePath     string `json:"file_path" validate:"max=1024"`
	FileName     string `json:"file_name" validate:"max=255"`
}

type CommentInput struct {
	Comment   string `json:"comment" validate:"required,max=5000"`
	IsPrivate bool   `json:"is_private"`
}

type AssignInput struct {
	ArbitratorID string `json:"arbitrator_id" validate:"required,uuid"`
}

type ReviewInput struct {
	Notes string `json:"notes" validate:"max=5000"`
}

// ResolveInput carries the outcome. The resolution value is checked by the
// engine so an unknown value is reported as an invalid state change.
type ResolveInput struct {
	Resolution models.Resolution `json:"resolution" validate:"required"`
	Notes      string            `json:"resolution_notes" validate:"required,max=5000"`
}

type RejectInput struct {
	Reason string `json:"reason" validate:"required,max=5000"`
}

// ListQuery is the caller-controlled part of a listing. Tenant and party
// scoping are added by the service.
type ListQuery struct {
	Status       models.DisputeStatus
	From         *time.Time
	To           *time.Time
	ArbitratorID string
	Limit        int
	Offset       int
}

// Event is the payload published with every lifecycle event.
type Event struct {
	Status        models.DisputeStatus `json:"status"`
	BusinessID    *string              `json:"business_id,omitempty"`
	TransactionID *string              `json:"transaction_id,omitempty"`
	ArbitratorID  *string              `json:"arbitrator_id,omitempty"`
	Resolution    *models.Resolution   `json:"resolution,omitempty"`
	ActorID       string               `json:"actor_id"`
	Fields        []string             `json:"fields,omitempty"`
}

func eventFor(d *models.Dispute, actor *models.Actor) Event {
	return Event{
		Status:        d.Status,
		BusinessID:    d.BusinessID,
		TransactionID: d.TransactionID,
		ArbitratorID:  d.ArbitratorID,
		Resolution:    d.Resolution,
		ActorID:       actor.ID,
	}
}
