package models

import (
	"time"
)

type TransactionStatus string

// Transaction statuses
const (
	TransactionStatusPending   TransactionStatus = "pending"
	TransactionStatusCompleted TransactionStatus = "completed"
	TransactionStatusFailed    TransactionStatus = "failed"
	TransactionStatusDisputed  TransactionStatus = "disputed"
)

// Transaction is the contested payment. Disputes never create or delete
// transactions; they only move Status as a side effect.
type Transaction struct {
	ID              string            `gorm:"type:uuid;primaryKey" json:"id"`
	BusinessID      *string           `gorm:"type:uuid;index" json:"business_id"`
	SessionID       string            `gorm:"index" json:"session_id"`
	Amount          float64           `gorm:"type:numeric(15,2);not null" json:"amount"`
	Status          TransactionStatus `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
	TransactionDate time.Time         `json:"transaction_date"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

func (Transaction) TableName() string { return "transactions" }
