package models

import "time"

// Business is the tenant boundary.
type Business struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string    `gorm:"not null" json:"name"`
	Email     string    `gorm:"uniqueIndex;not null" json:"email"`
	IsActive  bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Business) TableName() string { return "businesses" }

// Profile is a customer known to one business.
type Profile struct {
	ID         string    `gorm:"type:uuid;primaryKey" json:"id"`
	BusinessID string    `gorm:"type:uuid;not null;uniqueIndex:ux_profiles_business_email" json:"business_id"`
	Email      string    `gorm:"not null;uniqueIndex:ux_profiles_business_email" json:"email"`
	Name       string    `json:"name"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (Profile) TableName() string { return "profiles" }
