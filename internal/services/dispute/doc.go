/*
Package dispute implements the dispute lifecycle engine.

A dispute moves through

	open -> under_review -> resolved | rejected | canceled

and the three right-hand states are terminal. Every mutating operation runs
as a single database transaction that:

  - locks the dispute row (SELECT ... FOR UPDATE),
  - checks visibility and the operation's authorization predicate,
  - checks the state guard,
  - writes the dispute and exactly one history row, plus any evidence,
    comment or transaction status change the operation implies.

Guards run after the lock, so two concurrent terminal transitions serialize
and the second one fails with an InvalidState error instead of overwriting
the first.

Cache invalidation, email notifications and lifecycle events run only after
the transaction commits. Their failures are logged and never undo a
committed transition.

Usage:

	svc := dispute.NewService(repo, cache, dispatcher, publisher, dispute.Config{})

	d, err := svc.Create(ctx, actor, dispute.CreateInput{...})
	d, err = svc.AssignArbitrator(ctx, admin, d.ID, arbitratorID)
	d, err = svc.Review(ctx, arbitrator, d.ID, dispute.ReviewInput{Notes: "checking logs"})
	d, err = svc.Resolve(ctx, arbitrator, d.ID, dispute.ResolveInput{
	    Resolution: models.ResolutionInFavorOfInitiator,
	    Notes:      "refunded",
	})

Errors are *errors.DomainError values from arbitra/internal/errors; their
Kind decides the HTTP status.
*/
package dispute
