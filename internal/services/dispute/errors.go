package dispute

import (
	"errors"

	apperrors "arbitra/internal/errors"
	"arbitra/internal/repositories"
)

// Messages shared by several operations.
const (
	msgDisputeNotFound     = "Dispute not found"
	msgTransactionNotFound = "Transaction not found"
	msgAlreadyFinalized    = "Dispute is already finalized"
	msgDuplicateDispute    = "Dispute already exists for this transaction"
	msgInvalidResolution   = "Invalid resolution. Must be one of: in_favor_of_initiator, in_favor_of_respondent, partial"
	msgEvidenceFields      = "Evidence type and description are both required"
)

// notFoundOr maps a missing record to NotFound and anything else to an
// Infrastructure error.
func notFoundOr(err error, notFound, failure string) error {
	if errors.Is(err, repositories.ErrNotFound) {
		return apperrors.NotFound(notFound)
	}
	return apperrors.Wrap(err, failure)
}
