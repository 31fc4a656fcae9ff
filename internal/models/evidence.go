package models

import "time"

// Evidence is an append-only attachment reference on a dispute.
type Evidence struct {
	ID           string    `gorm:"type:uuid;primaryKey" json:"id"`
	DisputeID    string    `gorm:"type:uuid;not null;index" json:"dispute_id"`
	SubmittedBy  string    `gorm:"type:uuid;not null" json:"submitted_by"`
	EvidenceType string    `gorm:"not null" json:"evidence_type"`
	Description  string    `gorm:"type:text;not null" json:"description"`
	FilePath     string    `json:"file_path,omitempty"`
	FileName     string    `json:"file_name,omitempty"`
	CreatedAt    time.Time `gorm:"not null" json:"created_at"`
}

func (Evidence) TableName() string { return "evidence" }

type Comment struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	DisputeID string    `gorm:"type:uuid;not null;index" json:"dispute_id"`
	CreatedBy string    `gorm:"type:uuid;not null" json:"created_by"`
	Comment   string    `gorm:"type:text;not null" json:"comment"`
	IsPrivate bool      `gorm:"not null;default:false" json:"is_private"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

func (Comment) TableName() string { return "comments" }
