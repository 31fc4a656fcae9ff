package models

import (
	"time"
)

// DisputeStatus is the lifecycle state of a dispute.
type DisputeStatus string

const (
	DisputeStatusOpen        DisputeStatus = "open"
	DisputeStatusUnderReview DisputeStatus = "under_review"
	DisputeStatusResolved    DisputeStatus = "resolved"
	DisputeStatusRejected    DisputeStatus = "rejected"
	DisputeStatusCanceled    DisputeStatus = "canceled"
)

// DisputeStatuses lists every canonical status in lifecycle order.
var DisputeStatuses = []DisputeStatus{
	DisputeStatusOpen,
	DisputeStatusUnderReview,
	DisputeStatusResolved,
	DisputeStatusRejected,
	DisputeStatusCanceled,
}

// ActiveDisputeStatuses are the states from which a dispute can still change.
var ActiveDisputeStatuses = []DisputeStatus{DisputeStatusOpen, DisputeStatusUnderReview}

// IsTerminal reports whether no further mutation is allowed in this state.
func (s DisputeStatus) IsTerminal() bool {
	switch s {
	case DisputeStatusResolved, DisputeStatusRejected, DisputeStatusCanceled:
		return true
	}
	return false
}

// Valid reports whether s is one of the canonical statuses.
func (s DisputeStatus) Valid() bool {
	for _, known := range DisputeStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// Resolution is the outcome recorded when a dispute is resolved.
type Resolution string

const (
	ResolutionInFavorOfInitiator  Resolution = "in_favor_of_initiator"
	ResolutionInFavorOfRespondent Resolution = "in_favor_of_respondent"
	ResolutionPartial             Resolution = "partial"

	// ResolutionPending is the stats bucket for disputes without a resolution.
	ResolutionPending = "pending"
)

var Resolutions = []Resolution{
	ResolutionInFavorOfInitiator,
	ResolutionInFavorOfRespondent,
	ResolutionPartial,
}

func (r Resolution) Valid() bool {
	for _, known := range Resolutions {
		if r == known {
			return true
		}
	}
	return false
}

// DisputeAction records whether an arbitrator accepted or rejected the claim.
type DisputeAction string

const (
	DisputeActionAccept DisputeAction = "accept"
	DisputeActionReject DisputeAction = "reject"
)

type Dispute struct {
	ID                    string         `gorm:"type:uuid;primaryKey" json:"id"`
	BusinessID            *string        `gorm:"type:uuid;index" json:"business_id"`
	TransactionID         *string        `gorm:"type:uuid;index" json:"transaction_id"`
	InitiatorEmail        string         `gorm:"not null;index" json:"initiator_email"`
	CounterpartyEmail     string         `gorm:"not null;index" json:"counterparty_email"`
	InitiatorProfileID    *string        `gorm:"type:uuid;index" json:"initiator_profile_id"`
	CounterpartyProfileID *string        `gorm:"type:uuid;index" json:"counterparty_profile_id"`
	Reason                string         `gorm:"not null" json:"reason"`
	Description           string         `gorm:"type:text" json:"description"`
	Amount                *float64       `gorm:"type:numeric(15,2)" json:"amount"`
	Status                DisputeStatus  `gorm:"type:varchar(20);not null;default:'open';index" json:"status"`
	ArbitratorID          *string        `gorm:"type:uuid;index" json:"arbitrator_id"`
	Resolution            *Resolution    `gorm:"type:varchar(40)" json:"resolution"`
	ResolutionNotes       *string        `gorm:"type:text" json:"resolution_notes"`
	ResolutionDate        *time.Time     `json:"resolution_date"`
	Action                *DisputeAction `gorm:"type:varchar(10)" json:"action"`
	DateTreated           *time.Time     `json:"date_treated"`
	CreatedBy             string         `gorm:"type:uuid;not null" json:"created_by"`

	// Snapshot of the contested transfer as reported by the client.
	SessionID              string `json:"session_id,omitempty"`
	SourceAccountName      string `json:"source_account_name,omitempty"`
	SourceBank             string `json:"source_bank,omitempty"`
	BeneficiaryAccountName string `json:"beneficiary_account_name,omitempty"`
	BeneficiaryBank        string `json:"beneficiary_bank,omitempty"`

	CreatedAt time.Time `gorm:"not null;index;autoCreateTime:false" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime:false" json:"updated_at"`
}

func (Dispute) TableName() string { return "disputes" }

// DisputeDetail is the assembled case file returned for a single dispute.
type DisputeDetail struct {
	Dispute
	Transaction     *Transaction     `json:"transaction,omitempty"`
	ArbitratorEmail *string          `json:"arbitrator_email,omitempty"`
	Evidence        []Evidence       `json:"evidence"`
	Comments        []Comment        `json:"comments"`
	History         []DisputeHistory `json:"history"`
}
