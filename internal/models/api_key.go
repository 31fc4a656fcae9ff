package models

import (
	"time"

	"github.com/lib/pq"
)

// APIKey is a client credential. Only the sha3-256 digest of the raw key is stored.
type APIKey struct {
	ID             string         `gorm:"type:uuid;primaryKey" json:"id"`
	KeyDigest      string         `gorm:"type:char(64);uniqueIndex;not null" json:"-"`
	Email          string         `gorm:"not null;index" json:"email"`
	Role           Role           `gorm:"type:varchar(20);not null" json:"role"`
	BusinessID     *string        `gorm:"type:uuid;index" json:"business_id"`
	IsActive       bool           `gorm:"not null;default:true" json:"is_active"`
	WhitelistedIPs pq.StringArray `gorm:"type:text[]" json:"whitelisted_ips"`
	LastUsedAt     *time.Time     `json:"last_used_at"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

func (APIKey) TableName() string { return "api_keys" }

// Actor returns the identity this key authenticates as.
func (k *APIKey) Actor() *Actor {
	return &Actor{
		ID:         k.ID,
		Email:      k.Email,
		Role:       k.Role,
		BusinessID: k.BusinessID,
	}
}

// CanArbitrate reports whether the key may be assigned to a case.
func (k *APIKey) CanArbitrate() bool {
	return k.IsActive && (k.Role == RoleArbitrator || k.Role == RoleAdmin)
}
