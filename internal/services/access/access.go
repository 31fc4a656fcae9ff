// Package access holds the authorization predicates for disputes. Services
// declare which predicate an operation needs instead of branching on roles
// themselves.
package access

import (
	apperrors "arbitra/internal/errors"
	"arbitra/internal/models"
	"arbitra/internal/repositories"
)

func IsAdmin(a *models.Actor) bool {
	return a != nil && a.Role == models.RoleAdmin
}

func IsArbitrator(a *models.Actor) bool {
	return a != nil && a.Role == models.RoleArbitrator
}

// InTenant reports whether a record owned by businessID is inside the
// caller's tenant. Admins see every tenant. Users never see records without
// a business. Arbitrators without a business serve every tenant.
func InTenant(a *models.Actor, businessID *string) bool {
	switch {
	case a == nil:
		return false
	case IsAdmin(a):
		return true
	case IsArbitrator(a) && a.BusinessID == nil:
		return true
	case a.BusinessID == nil || businessID == nil:
		return false
	default:
		return *a.BusinessID == *businessID
	}
}

// IsInitiator matches the initiator email or the actor that filed the dispute.
func IsInitiator(a *models.Actor, d *models.Dispute) bool {
	if a == nil || d == nil {
		return false
	}
	return a.SameEmail(d.InitiatorEmail) || (d.CreatedBy != "" && d.CreatedBy == a.ID)
}

func IsCounterparty(a *models.Actor, d *models.Dispute) bool {
	return a != nil && d != nil && a.SameEmail(d.CounterpartyEmail)
}

func IsPartyTo(a *models.Actor, d *models.Dispute) bool {
	return IsInitiator(a, d) || IsCounterparty(a, d)
}

func IsAssignedArbitrator(a *models.Actor, d *models.Dispute) bool {
	return a != nil && d != nil && d.ArbitratorID != nil && *d.ArbitratorID == a.ID
}

// CanClaim reports whether an arbitrator may pick up an unassigned case.
func CanClaim(a *models.Actor, d *models.Dispute) bool {
	return IsArbitrator(a) && d != nil && d.ArbitratorID == nil && !d.Status.IsTerminal()
}

func CanView(a *models.Actor, d *models.Dispute) bool {
	return IsAdmin(a) || IsPartyTo(a, d) || IsAssignedArbitrator(a, d) || CanClaim(a, d)
}

// CanEdit covers update and cancel.
func CanEdit(a *models.Actor, d *models.Dispute) bool {
	return IsAdmin(a) || (!IsArbitrator(a) && IsInitiator(a, d))
}

// CanSubmitEvidence is limited to the parties.
func CanSubmitEvidence(a *models.Actor, d *models.Dispute) bool {
	return IsAdmin(a) || (!IsArbitrator(a) && IsPartyTo(a, d))
}

func CanComment(a *models.Actor, d *models.Dispute) bool {
	return CanView(a, d)
}

// CanArbitrate covers review, resolve and reject.
func CanArbitrate(a *models.Actor, d *models.Dispute) bool {
	return IsAdmin(a) || IsAssignedArbitrator(a, d)
}

// Visible returns NotFound for records outside the tenant, so callers
// cannot probe for ids in other tenants, and Forbidden when the record is
// in scope but the caller has no relationship to it.
func Visible(a *models.Actor, d *models.Dispute) error {
	if !InTenant(a, d.BusinessID) {
		return ErrDisputeNotFound()
	}
	if !CanView(a, d) {
		return apperrors.Forbidden("You do not have access to this dispute")
	}
	return nil
}

// Require turns a failed predicate into a Forbidden error.
func Require(ok bool, message string) error {
	if ok {
		return nil
	}
	return apperrors.Forbidden(message)
}

func ErrDisputeNotFound() error {
	return apperrors.NotFound("Dispute not found")
}

// ScopeDisputes narrows a listing to what the caller may see.
func ScopeDisputes(a *models.Actor, f *repositories.DisputeFilter) error {
	switch a.Role {
	case models.RoleAdmin:
		return nil
	case models.RoleUser:
		if a.BusinessID == nil {
			return apperrors.Forbidden("API key is not linked to a business")
		}
		f.BusinessID = a.BusinessID
		f.Party = &repositories.PartyScope{Email: a.Email, ActorID: a.ID}
		return nil
	case models.RoleArbitrator:
		if a.BusinessID != nil {
			f.BusinessID = a.BusinessID
		}
		f.ArbitratorID = a.ID
		f.IncludeUnclaimed = true
		return nil
	default:
		return apperrors.Forbidden("Unknown role")
	}
}

// ScopeStats fixes the tenant for non-admin callers. Admins may pass an
// explicit business filter.
func ScopeStats(a *models.Actor, requested *string, f *repositories.StatsFilter) error {
	switch a.Role {
	case models.RoleAdmin:
		f.BusinessID = requested
		return nil
	case models.RoleUser:
		if a.BusinessID == nil {
			return apperrors.Forbidden("API key is not linked to a business")
		}
		if requested != nil && *requested != *a.BusinessID {
			return apperrors.Forbidden("Statistics are limited to your business")
		}
		f.BusinessID = a.BusinessID
		return nil
	default:
		return apperrors.Forbidden("Only administrators and business users can view dispute statistics")
	}
}
