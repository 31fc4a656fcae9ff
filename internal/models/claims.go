package models

import (
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

type Role string

const (
	RoleAdmin      Role = "admin"
	RoleUser       Role = "user"
	RoleArbitrator Role = "arbitrator"
)

func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleUser || r == RoleArbitrator
}

// Actor is the authenticated caller attached to every request.
type Actor struct {
	ID         string  `json:"id"`
	Email      string  `json:"email"`
	Role       Role    `json:"role"`
	BusinessID *string `json:"business_id"`
}

// SameEmail compares addresses case-insensitively.
func (a *Actor) SameEmail(email string) bool {
	return a.Email != "" && strings.EqualFold(strings.TrimSpace(a.Email), strings.TrimSpace(email))
}

// ActorClaims is the JWT form of an Actor, used by internal tooling.
type ActorClaims struct {
	jwt.RegisteredClaims
	ActorID    string  `json:"actor_id"`
	Email      string  `json:"email"`
	Role       Role    `json:"role"`
	BusinessID *string `json:"business_id,omitempty"`
}

func (c *ActorClaims) Actor() *Actor {
	return &Actor{
		ID:         c.ActorID,
		Email:      c.Email,
		Role:       c.Role,
		BusinessID: c.BusinessID,
	}
}
