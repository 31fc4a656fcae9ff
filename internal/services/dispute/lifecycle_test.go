package dispute

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	apperrors "arbitra/internal/errors"
	"arbitra/internal/events"
	"arbitra/internal/models"
	"arbitra/internal/repositories/memstore"
	cachekeys "arbitra/internal/utils/cache"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestService_Create(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	d, err := f.svc.Create(ctx, alice, aliceInput())
	require.NoError(t, err)

	assert.Equal(t, models.DisputeStatusOpen, d.Status)
	assert.Equal(t, businessA, *d.BusinessID)
	assert.Equal(t, aliceProfileID, *d.InitiatorProfileID)
	assert.Equal(t, bobProfileID, *d.CounterpartyProfileID)
	assert.Equal(t, 250.0, *d.Amount)
	assert.Equal(t, "sess-001", d.SessionID)
	assert.Equal(t, aliceID, d.CreatedBy)

	history := f.history(t, d.ID)
	require.Len(t, history, 1)
	assert.Equal(t, models.HistoryCreated, history[0].Action)
	assert.Equal(t, "Dispute created", history[0].Details)

	assert.Equal(t, models.TransactionStatusDisputed, f.transaction(t, transactionID).Status)
	assert.ElementsMatch(t, []string{"alice@acme.test", "bob@acme.test"}, f.notifier.recipients())
	assert.Equal(t, []string{events.DisputeCreated}, f.publisher.published())
}

func TestService_Create_WithInitialEvidence(t *testing.T) {
	f := newFixture(t)
	in := aliceInput()
	in.EvidenceType = "receipt"
	in.EvidenceDescription = "Bank transfer receipt"
	in.FileName = "receipt.pdf"

	d, err := f.svc.Create(context.Background(), alice, in)
	require.NoError(t, err)

	evidence, err := f.store.ListEvidence(context.Background(), d.ID)
	require.NoError(t, err)
	require.Len(t, evidence, 1)
	assert.Equal(t, "receipt.pdf", evidence[0].FileName)

	history := f.history(t, d.ID)
	assert.Equal(t, 1, countActions(history, models.HistoryCreated))
	assert.Equal(t, 1, countActions(history, models.HistoryEvidenceAdded))
}

func TestService_Create_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		actor   *models.Actor
		input   func() CreateInput
		kind    apperrors.Kind
		message string
	}{
		{
			name:  "arbitrators cannot file",
			actor: arbitrator,
			input: aliceInput,
			kind:  apperrors.KindForbidden,
		},
		{
			name:  "user without business",
			actor: &models.Actor{ID: "x", Email: "alice@acme.test", Role: models.RoleUser},
			input: aliceInput,
			kind:  apperrors.KindForbidden,
		},
		{
			name:  "user filing into another business",
			actor: alice,
			input: func() CreateInput {
				in := aliceInput()
				in.BusinessID = ptr(businessB)
				return in
			},
			kind: apperrors.KindForbidden,
		},
		{
			name:  "unknown transaction",
			actor: alice,
			input: func() CreateInput {
				in := aliceInput()
				in.TransactionID = ptr("c0000000-0000-4000-8000-0000000000ff")
				return in
			},
			kind:    apperrors.KindNotFound,
			message: "Transaction not found",
		},
		{
			name:  "transaction in another tenant",
			actor: eve,
			input: func() CreateInput {
				return CreateInput{
					TransactionID:     ptr(transactionID),
					InitiatorEmail:    "eve@globex.test",
					CounterpartyEmail: "someone@globex.test",
					Reason:            "Charged twice",
				}
			},
			kind:    apperrors.KindNotFound,
			message: "Transaction not found",
		},
		{
			name:  "unknown initiator profile",
			actor: alice,
			input: func() CreateInput {
				in := aliceInput()
				in.InitiatorEmail = "stranger@acme.test"
				return in
			},
			kind:    apperrors.KindNotFound,
			message: "Initiator profile not found",
		},
		{
			name:  "evidence without description",
			actor: alice,
			input: func() CreateInput {
				in := aliceInput()
				in.EvidenceType = "receipt"
				return in
			},
			kind: apperrors.KindInvalidState,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)

			_, err := f.svc.Create(context.Background(), tt.actor, tt.input())
			require.Error(t, err)
			assert.Equal(t, tt.kind, apperrors.KindOf(err))
			if tt.message != "" {
				assert.Contains(t, err.Error(), tt.message)
			}

			assert.Equal(t, models.TransactionStatusCompleted, f.transaction(t, transactionID).Status)
			f.notifier.AssertNotCalled(t, "SendEmail", mock.Anything, mock.Anything)
		})
	}
}

func TestService_Create_OneActiveDisputePerTransaction(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first := f.open(t)

	_, err := f.svc.Create(ctx, alice, aliceInput())
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.KindConflict))
	assert.Contains(t, err.Error(), "Dispute already exists for this transaction")

	_, err = f.svc.Cancel(ctx, alice, first.ID)
	require.NoError(t, err)

	second, err := f.svc.Create(ctx, alice, aliceInput())
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestService_Create_LegacyDisputeWithoutBusiness(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	d, err := f.svc.Create(ctx, admin, CreateInput{
		InitiatorEmail:    "alice@acme.test",
		CounterpartyEmail: "bob@acme.test",
		Reason:            "Imported case",
	})
	require.NoError(t, err)
	assert.Nil(t, d.BusinessID)

	_, err = f.svc.Get(ctx, alice, d.ID)
	assert.True(t, apperrors.Is(err, apperrors.KindNotFound))

	_, err = f.svc.Get(ctx, admin, d.ID)
	assert.NoError(t, err)
}

func TestService_Update(t *testing.T) {
	ctx := context.Background()

	t.Run("initiator changes reason and amount", func(t *testing.T) {
		f := newFixture(t)
		d := f.open(t)

		updated, err := f.svc.Update(ctx, alice, d.ID, UpdateInput{
			Reason:      ptr("Wrong item delivered"),
			Description: ptr(d.Description),
			Amount:      ptr(120.5),
		})
		require.NoError(t, err)
		assert.Equal(t, "Wrong item delivered", updated.Reason)
		assert.Equal(t, 120.5, *updated.Amount)

		history := f.history(t, d.ID)
		require.Equal(t, 1, countActions(history, models.HistoryUpdated))
		assert.Equal(t, "Updated fields: reason, amount", history[0].Details)
	})

	t.Run("non-admin cannot touch arbitration fields", func(t *testing.T) {
		f := newFixture(t)
		d := f.open(t)

		_, err := f.svc.Update(ctx, alice, d.ID, UpdateInput{Action: ptr(models.DisputeActionAccept)})
		assert.True(t, apperrors.Is(err, apperrors.KindForbidden))
		assert.Nil(t, f.dispute(t, d.ID).Action)
	})

	t.Run("admin assigns through update", func(t *testing.T) {
		f := newFixture(t)
		d := f.open(t)

		updated, err := f.svc.Update(ctx, admin, d.ID, UpdateInput{ArbitratorID: ptr(arbitratorID)})
		require.NoError(t, err)
		assert.Equal(t, arbitratorID, *updated.ArbitratorID)
		assert.Equal(t, models.DisputeStatusOpen, updated.Status)
	})

	t.Run("counterparty cannot update", func(t *testing.T) {
		f := newFixture(t)
		d := f.open(t)

		_, err := f.svc.Update(ctx, bob, d.ID, UpdateInput{Reason: ptr("mine now")})
		assert.True(t, apperrors.Is(err, apperrors.KindForbidden))
	})

	t.Run("finalized dispute", func(t *testing.T) {
		f := newFixture(t)
		d := f.open(t)
		_, err := f.svc.Cancel(ctx, alice, d.ID)
		require.NoError(t, err)

		_, err = f.svc.Update(ctx, alice, d.ID, UpdateInput{Reason: ptr("again")})
		require.Error(t, err)
		assert.True(t, apperrors.Is(err, apperrors.KindInvalidState))
		assert.Contains(t, err.Error(), "Cannot update a finalized dispute")
	})

	t.Run("empty update", func(t *testing.T) {
		f := newFixture(t)
		d := f.open(t)

		_, err := f.svc.Update(ctx, alice, d.ID, UpdateInput{})
		assert.True(t, apperrors.Is(err, apperrors.KindValidation))
	})
}

func TestService_AddEvidence(t *testing.T) {
	ctx := context.Background()
	in := EvidenceInput{EvidenceType: "chat_log", Description: "Seller admits delay"}

	t.Run("counterparty submits", func(t *testing.T) {
		f := newFixture(t)
		d := f.open(t)

		ev, err := f.svc.AddEvidence(ctx, bob, d.ID, in)
		require.NoError(t, err)
		assert.Equal(t, bobID, ev.SubmittedBy)

		history := f.history(t, d.ID)
		assert.Equal(t, "Evidence added: Seller admits delay", history[0].Details)
	})

	t.Run("arbitrator cannot submit", func(t *testing.T) {
		f := newFixture(t)
		d := f.assigned(t)

		_, err := f.svc.AddEvidence(ctx, arbitrator, d.ID, in)
		assert.True(t, apperrors.Is(err, apperrors.KindForbidden))
	})

	t.Run("missing description", func(t *testing.T) {
		f := newFixture(t)
		d := f.open(t)

		_, err := f.svc.AddEvidence(ctx, alice, d.ID, EvidenceInput{EvidenceType: "photo"})
		assert.True(t, apperrors.Is(err, apperrors.KindInvalidState))
	})

	t.Run("finalized dispute", func(t *testing.T) {
		f := newFixture(t)
		d := f.open(t)
		_, err := f.svc.Cancel(ctx, admin, d.ID)
		require.NoError(t, err)

		_, err = f.svc.AddEvidence(ctx, alice, d.ID, in)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Cannot add evidence to a finalized dispute")
	})
}

func TestService_AddComment(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	d := f.assigned(t)

	_, err := f.svc.AddComment(ctx, arbitrator, d.ID, CommentInput{Comment: "Asked seller for tracking", IsPrivate: true})
	require.NoError(t, err)
	assert.Equal(t, "Private comment added", f.history(t, d.ID)[0].Details)

	_, err = f.svc.Cancel(ctx, alice, d.ID)
	require.NoError(t, err)

	// Comments stay open after the dispute is finalized.
	_, err = f.svc.AddComment(ctx, bob, d.ID, CommentInput{Comment: "Thanks"})
	require.NoError(t, err)
	assert.Equal(t, "Comment added", f.history(t, d.ID)[0].Details)

	_, err = f.svc.AddComment(ctx, mallory, d.ID, CommentInput{Comment: "hi"})
	assert.True(t, apperrors.Is(err, apperrors.KindForbidden))
}

func TestService_Cancel(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	d := f.open(t)

	canceled, err := f.svc.Cancel(ctx, alice, d.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DisputeStatusCanceled, canceled.Status)
	assert.Equal(t, models.TransactionStatusCompleted, f.transaction(t, transactionID).Status)
	assert.Equal(t, "Dispute canceled by initiator", f.history(t, d.ID)[0].Details)

	_, err = f.svc.Cancel(ctx, alice, d.ID)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.KindInvalidState))
	assert.Contains(t, err.Error(), "Dispute is already finalized")
	assert.Equal(t, 1, countActions(f.history(t, d.ID), models.HistoryCanceled))
}

func TestService_Cancel_Forbidden(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	d := f.assigned(t)

	for _, actor := range []*models.Actor{bob, arbitrator} {
		_, err := f.svc.Cancel(ctx, actor, d.ID)
		assert.True(t, apperrors.Is(err, apperrors.KindForbidden), actor.Email)
	}

	_, err := f.svc.Cancel(ctx, admin, d.ID)
	require.NoError(t, err)
	assert.Equal(t, "Dispute canceled by administrator", f.history(t, d.ID)[0].Details)
}

func TestService_Cancel_ConcurrentCallsFinalizeOnce(t *testing.T) {
	f := newFixture(t)
	d := f.open(t)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.Cancel(context.Background(), alice, d.ID)
		}(i)
	}
	wg.Wait()

	succeeded, invalid := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case apperrors.Is(err, apperrors.KindInvalidState):
			invalid++
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, invalid)
	assert.Equal(t, 1, countActions(f.history(t, d.ID), models.HistoryCanceled))
}

func TestService_Get_Visibility(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	d := f.assigned(t)

	tests := []struct {
		name  string
		actor *models.Actor
		kind  *apperrors.Kind
	}{
		{name: "admin", actor: admin},
		{name: "initiator", actor: alice},
		{name: "counterparty", actor: bob},
		{name: "assigned arbitrator", actor: arbitrator},
		{name: "user in another tenant", actor: eve, kind: ptr(apperrors.KindNotFound)},
		{name: "unrelated user in tenant", actor: mallory, kind: ptr(apperrors.KindForbidden)},
		{name: "other arbitrator", actor: arbitrator2, kind: ptr(apperrors.KindForbidden)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			detail, err := f.svc.Get(ctx, tt.actor, d.ID)
			if tt.kind == nil {
				require.NoError(t, err)
				assert.Equal(t, d.ID, detail.ID)
				return
			}
			require.Error(t, err)
			assert.Equal(t, *tt.kind, apperrors.KindOf(err))
		})
	}
}

func TestService_Get_AssemblesAndCachesCaseFile(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	d := f.assigned(t)
	key := cachekeys.DisputeKey(d.ID)

	detail, err := f.svc.Get(ctx, alice, d.ID)
	require.NoError(t, err)
	require.NotNil(t, detail.Transaction)
	assert.Equal(t, transactionID, detail.Transaction.ID)
	require.NotNil(t, detail.ArbitratorEmail)
	assert.Equal(t, arbitrator.Email, *detail.ArbitratorEmail)
	assert.Len(t, detail.History, 2)
	assert.Equal(t, models.HistoryArbitratorAssigned, detail.History[0].Action)
	assert.True(t, f.cache.Has(key))

	_, err = f.svc.AddComment(ctx, alice, d.ID, CommentInput{Comment: "Any update?"})
	require.NoError(t, err)
	assert.False(t, f.cache.Has(key))

	history, err := f.svc.History(ctx, alice, d.ID)
	require.NoError(t, err)
	assert.Len(t, history, 3)
}

// racingRepo runs write once, right after the first dispute row is read.
type racingRepo struct {
	*memstore.Store
	once  sync.Once
	write func()
}

func (r *racingRepo) GetDispute(ctx context.Context, id string) (*models.Dispute, error) {
	d, err := r.Store.GetDispute(ctx, id)
	r.once.Do(r.write)
	return d, err
}

func TestService_Get_SkipsCacheWhenDisputeChangesDuringRead(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	d := f.open(t)
	key := cachekeys.DisputeKey(d.ID)
	require.NoError(t, f.cache.Delete(ctx, key))
	f.store.SetClock(func() time.Time { return d.UpdatedAt.Add(time.Minute) })

	repo := &racingRepo{Store: f.store}
	repo.write = func() {
		_, err := f.svc.AddComment(ctx, alice, d.ID, CommentInput{Comment: "Any update?"})
		require.NoError(t, err)
	}
	reader := NewService(repo, f.cache, f.notifier, f.publisher, Config{})

	stale, err := reader.Get(ctx, alice, d.ID)
	require.NoError(t, err)
	assert.True(t, stale.UpdatedAt.Equal(d.UpdatedAt))
	assert.False(t, f.cache.Has(key))

	fresh, err := reader.Get(ctx, alice, d.ID)
	require.NoError(t, err)
	assert.True(t, fresh.UpdatedAt.After(d.UpdatedAt))
	require.NotEmpty(t, fresh.Comments)
	assert.True(t, f.cache.Has(key))

	var cached models.DisputeDetail
	found, err := f.cache.Get(ctx, key, &cached)
	require.NoError(t, err)
	require.True(t, found)
	assert.True(t, cached.UpdatedAt.Equal(fresh.UpdatedAt))
}

func TestService_Get_NotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Get(context.Background(), admin, "d0000000-0000-4000-8000-000000000000")
	assert.True(t, apperrors.Is(err, apperrors.KindNotFound))
}

func TestService_EventFailureDoesNotFailOperation(t *testing.T) {
	f := newFixture(t)
	publisher := new(MockPublisher)
	publisher.On("Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("broker down"))
	f.svc = NewService(f.store, f.cache, f.notifier, publisher, Config{})

	d := f.open(t)
	assert.Equal(t, models.DisputeStatusOpen, f.dispute(t, d.ID).Status)
	publisher.AssertNumberOfCalls(t, "Publish", 1)
}
