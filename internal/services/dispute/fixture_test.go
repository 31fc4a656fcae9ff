package dispute

import (
	"context"
	"testing"

	"arbitra/internal/models"
	"arbitra/internal/repositories/cache"
	"arbitra/internal/repositories/memstore"
	"arbitra/internal/services/notification"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	businessA = "0b6f1f8e-5a51-4f0e-9d7a-7d9c1b2a0001"
	businessB = "0b6f1f8e-5a51-4f0e-9d7a-7d9c1b2a0002"

	adminID       = "a0000000-0000-4000-8000-000000000001"
	aliceID       = "a0000000-0000-4000-8000-000000000002"
	bobID         = "a0000000-0000-4000-8000-000000000003"
	malloryID     = "a0000000-0000-4000-8000-000000000004"
	eveID         = "a0000000-0000-4000-8000-000000000005"
	arbitratorID  = "a0000000-0000-4000-8000-000000000006"
	arbitrator2ID = "a0000000-0000-4000-8000-000000000007"

	aliceProfileID = "b0000000-0000-4000-8000-000000000001"
	bobProfileID   = "b0000000-0000-4000-8000-000000000002"
	eveProfileID   = "b0000000-0000-4000-8000-000000000003"

	transactionID  = "c0000000-0000-4000-8000-000000000001"
	transactionBID = "c0000000-0000-4000-8000-000000000002"
)

func ptr[T any](v T) *T { return &v }

var (
	admin       = &models.Actor{ID: adminID, Email: "admin@arbitra.test", Role: models.RoleAdmin}
	alice       = &models.Actor{ID: aliceID, Email: "alice@acme.test", Role: models.RoleUser, BusinessID: ptr(businessA)}
	bob         = &models.Actor{ID: bobID, Email: "bob@acme.test", Role: models.RoleUser, BusinessID: ptr(businessA)}
	mallory     = &models.Actor{ID: malloryID, Email: "mallory@acme.test", Role: models.RoleUser, BusinessID: ptr(businessA)}
	eve         = &models.Actor{ID: eveID, Email: "eve@globex.test", Role: models.RoleUser, BusinessID: ptr(businessB)}
	arbitrator  = &models.Actor{ID: arbitratorID, Email: "judge@arbitra.test", Role: models.RoleArbitrator}
	arbitrator2 = &models.Actor{ID: arbitrator2ID, Email: "judge2@arbitra.test", Role: models.RoleArbitrator}
)

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) SendEmail(ctx context.Context, email notification.Email) {
	m.Called(ctx, email)
}

func (m *MockNotifier) recipients() []string {
	var to []string
	for _, call := range m.Calls {
		if call.Method == "SendEmail" {
			to = append(to, call.Arguments.Get(1).(notification.Email).To)
		}
	}
	return to
}

func (m *MockNotifier) reset() {
	m.Calls = nil
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, eventType, disputeID string, data interface{}) error {
	args := m.Called(ctx, eventType, disputeID, data)
	return args.Error(0)
}

func (m *MockPublisher) Close() error { return nil }

func (m *MockPublisher) published() []string {
	var types []string
	for _, call := range m.Calls {
		if call.Method == "Publish" {
			types = append(types, call.Arguments.String(1))
		}
	}
	return types
}

type fixture struct {
	store     *memstore.Store
	cache     *cache.MemoryCache
	notifier  *MockNotifier
	publisher *MockPublisher
	svc       *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := memstore.New()
	store.AddBusiness(models.Business{ID: businessA, Name: "Acme", Email: "ops@acme.test", IsActive: true})
	store.AddBusiness(models.Business{ID: businessB, Name: "Globex", Email: "ops@globex.test", IsActive: true})
	store.AddProfile(models.Profile{ID: aliceProfileID, BusinessID: businessA, Email: "alice@acme.test", Name: "Alice"})
	store.AddProfile(models.Profile{ID: bobProfileID, BusinessID: businessA, Email: "bob@acme.test", Name: "Bob"})
	store.AddProfile(models.Profile{ID: eveProfileID, BusinessID: businessB, Email: "eve@globex.test", Name: "Eve"})
	store.AddAPIKey(models.APIKey{ID: arbitratorID, Email: arbitrator.Email, Role: models.RoleArbitrator, IsActive: true})
	store.AddAPIKey(models.APIKey{ID: arbitrator2ID, Email: arbitrator2.Email, Role: models.RoleArbitrator, IsActive: true})
	store.AddAPIKey(models.APIKey{ID: malloryID, Email: mallory.Email, Role: models.RoleUser, BusinessID: ptr(businessA), IsActive: true})
	store.AddTransaction(models.Transaction{ID: transactionID, BusinessID: ptr(businessA), SessionID: "sess-001", Amount: 250, Status: models.TransactionStatusCompleted})
	store.AddTransaction(models.Transaction{ID: transactionBID, BusinessID: ptr(businessB), SessionID: "sess-002", Amount: 90, Status: models.TransactionStatusCompleted})

	notifier := new(MockNotifier)
	notifier.On("SendEmail", mock.Anything, mock.Anything).Return()
	publisher := new(MockPublisher)
	publisher.On("Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	c := cache.NewMemoryCache()
	return &fixture{
		store:     store,
		cache:     c,
		notifier:  notifier,
		publisher: publisher,
		svc:       NewService(store, c, notifier, publisher, Config{}),
	}
}

func aliceInput() CreateInput {
	return CreateInput{
		TransactionID:     ptr(transactionID),
		InitiatorEmail:    "alice@acme.test",
		CounterpartyEmail: "bob@acme.test",
		Reason:            "Item not received",
		Description:       "Paid on the 3rd, nothing delivered",
	}
}

// open files the standard dispute as alice.
func (f *fixture) open(t *testing.T) *models.Dispute {
	t.Helper()
	d, err := f.svc.Create(context.Background(), alice, aliceInput())
	require.NoError(t, err)
	return d
}

// assigned files the standard dispute and assigns the first arbitrator.
func (f *fixture) assigned(t *testing.T) *models.Dispute {
	t.Helper()
	d := f.open(t)
	d, err := f.svc.AssignArbitrator(context.Background(), admin, d.ID, arbitratorID)
	require.NoError(t, err)
	return d
}

func (f *fixture) dispute(t *testing.T, id string) *models.Dispute {
	t.Helper()
	d, err := f.store.GetDispute(context.Background(), id)
	require.NoError(t, err)
	return d
}

func (f *fixture) transaction(t *testing.T, id string) *models.Transaction {
	t.Helper()
	txn, err := f.store.GetTransaction(context.Background(), id)
	require.NoError(t, err)
	return txn
}

func (f *fixture) history(t *testing.T, id string) []models.DisputeHistory {
	t.Helper()
	h, err := f.store.ListHistory(context.Background(), id)
	require.NoError(t, err)
	return h
}

func (f *fixture) comments(t *testing.T, id string) []models.Comment {
	t.Helper()
	c, err := f.store.ListComments(context.Background(), id)
	require.NoError(t, err)
	return c
}

func countActions(history []models.DisputeHistory, action string) int {
	n := 0
	for _, h := range history {
		if h.Action == action {
			n++
		}
	}
	return n
}
