package models

import "time"

// History actions. Every state-changing dispute operation writes exactly one.
const (
	HistoryCreated            = "created"
	HistoryUpdated            = "updated"
	HistoryArbitratorAssigned = "arbitrator_assigned"
	HistoryReviewStarted      = "review_started"
	HistoryResolved           = "resolved"
	HistoryRejected           = "rejected"
	HistoryCanceled           = "canceled"
	HistoryEvidenceAdded      = "evidence_added"
	HistoryCommentAdded       = "comment_added"
)

type DisputeHistory struct {
	ID         string    `gorm:"type:uuid;primaryKey" json:"id"`
	DisputeID  string    `gorm:"type:uuid;not null;index" json:"dispute_id"`
	CreatedBy  string    `gorm:"type:uuid;not null" json:"created_by"`
	Action     string    `gorm:"type:varchar(40);not null" json:"action"`
	Details    string    `gorm:"type:text" json:"details"`
	ActionDate time.Time `gorm:"not null;index" json:"action_date"`
}

func (DisputeHistory) TableName() string { return "dispute_history" }
