// Package memstore is an in-memory implementation of the repository
// interfaces. Transactions take a store-wide lock and work on a copy that
// is swapped in on commit, so a failing unit of work leaves no trace.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"arbitra/internal/models"
	"arbitra/internal/repositories"
)

type state struct {
	businesses   map[string]models.Business
	profiles     map[string]models.Profile
	apiKeys      map[string]models.APIKey
	transactions map[string]models.Transaction
	disputes     map[string]models.Dispute
	evidence     []models.Evidence
	comments     []models.Comment
	history      []models.DisputeHistory
}

func newState() *state {
	return &state{
		businesses:   map[string]models.Business{},
		profiles:     map[string]models.Profile{},
		apiKeys:      map[string]models.APIKey{},
		transactions: map[string]models.Transaction{},
		disputes:     map[string]models.Dispute{},
	}
}

func (st *state) clone() *state {
	c := newState()
	for k, v := range st.businesses {
		c.businesses[k] = v
	}
	for k, v := range st.profiles {
		c.profiles[k] = v
	}
	for k, v := range st.apiKeys {
		c.apiKeys[k] = v
	}
	for k, v := range st.transactions {
		c.transactions[k] = v
	}
	for k, v := range st.disputes {
		c.disputes[k] = v
	}
	c.evidence = append([]models.Evidence(nil), st.evidence...)
	c.comments = append([]models.Comment(nil), st.comments...)
	c.history = append([]models.DisputeHistory(nil), st.history...)
	return c
}

type shared struct {
	mu   sync.Mutex
	data *state

	faultMu sync.Mutex
	faults  map[string]error
	now     func() time.Time
}

// Store implements repositories.DisputeRepository.
type Store struct {
	env  *shared
	data *state
	inTx bool
}

var _ repositories.DisputeRepository = (*Store)(nil)

func New() *Store {
	env := &shared{
		data:   newState(),
		faults: map[string]error{},
		now:    func() time.Time { return time.Now().UTC() },
	}
	return &Store{env: env, data: env.data}
}

// SetClock replaces the clock returned by Now.
func (s *Store) SetClock(now func() time.Time) {
	s.env.faultMu.Lock()
	defer s.env.faultMu.Unlock()
	s.env.now = now
}

// FailOn makes the named method return err until cleared with a nil err.
func (s *Store) FailOn(method string, err error) {
	s.env.faultMu.Lock()
	defer s.env.faultMu.Unlock()
	if err == nil {
		delete(s.env.faults, method)
		return
	}
	s.env.faults[method] = err
}

func (s *Store) fault(method string) error {
	s.env.faultMu.Lock()
	defer s.env.faultMu.Unlock()
	return s.env.faults[method]
}

// view returns the state to read or write and the function releasing it.
func (s *Store) view() (*state, func()) {
	if s.inTx {
		return s.data, func() {}
	}
	s.env.mu.Lock()
	return s.env.data, s.env.mu.Unlock
}

func (s *Store) ExecuteInTransaction(ctx context.Context, fn func(repositories.DisputeRepository) error) error {
	if s.inTx {
		return fn(s)
	}
	s.env.mu.Lock()
	defer s.env.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	work := s.env.data.clone()
	if err := fn(&Store{env: s.env, data: work, inTx: true}); err != nil {
		return err
	}
	if err := s.fault("Commit"); err != nil {
		return err
	}
	s.env.data = work
	return nil
}

func (s *Store) Now(context.Context) (time.Time, error) {
	if err := s.fault("Now"); err != nil {
		return time.Time{}, err
	}
	s.env.faultMu.Lock()
	defer s.env.faultMu.Unlock()
	return s.env.now(), nil
}

func (s *Store) GetDispute(_ context.Context, id string) (*models.Dispute, error) {
	if err := s.fault("GetDispute"); err != nil {
		return nil, err
	}
	st, done := s.view()
	defer done()
	d, ok := st.disputes[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &d, nil
}

func (s *Store) GetDisputeForUpdate(ctx context.Context, id string) (*models.Dispute, error) {
	return s.GetDispute(ctx, id)
}

func (s *Store) FindActiveDisputeForTransaction(_ context.Context, transactionID string, businessID *string) (*models.Dispute, error) {
	st, done := s.view()
	defer done()
	if d, ok := st.activeFor(transactionID, businessID); ok {
		return &d, nil
	}
	return nil, repositories.ErrNotFound
}

func (st *state) activeFor(transactionID string, businessID *string) (models.Dispute, bool) {
	for _, d := range st.disputes {
		if d.TransactionID == nil || *d.TransactionID != transactionID || d.Status.IsTerminal() {
			continue
		}
		if sameOptional(d.BusinessID, businessID) {
			return d, true
		}
	}
	return models.Dispute{}, false
}

func (s *Store) CreateDispute(_ context.Context, d *models.Dispute) error {
	if err := s.fault("CreateDispute"); err != nil {
		return err
	}
	st, done := s.view()
	defer done()
	if _, exists := st.disputes[d.ID]; exists {
		return fmt.Errorf("%w: disputes_pkey", repositories.ErrDuplicate)
	}
	if d.TransactionID != nil && !d.Status.IsTerminal() {
		if _, taken := st.activeFor(*d.TransactionID, d.BusinessID); taken {
			return fmt.Errorf("%w: ux_disputes_open_transaction", repositories.ErrDuplicate)
		}
	}
	st.disputes[d.ID] = *d
	return nil
}

func (s *Store) SaveDispute(_ context.Context, d *models.Dispute) error {
	if err := s.fault("SaveDispute"); err != nil {
		return err
	}
	st, done := s.view()
	defer done()
	st.disputes[d.ID] = *d
	return nil
}

func (s *Store) ListDisputes(_ context.Context, f repositories.DisputeFilter) ([]models.Dispute, int64, error) {
	if err := s.fault("ListDisputes"); err != nil {
		return nil, 0, err
	}
	st, done := s.view()
	defer done()

	matched := make([]models.Dispute, 0)
	for _, d := range st.disputes {
		if matches(d, f) {
			matched = append(matched, d)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := int64(len(matched))
	if f.Limit > 0 {
		start := min(f.Offset, len(matched))
		end := min(start+f.Limit, len(matched))
		matched = matched[start:end]
	}
	return matched, total, nil
}

func matches(d models.Dispute, f repositories.DisputeFilter) bool {
	if f.BusinessID != nil && (d.BusinessID == nil || *d.BusinessID != *f.BusinessID) {
		return false
	}
	if f.Status != "" && d.Status != f.Status {
		return false
	}
	if f.From != nil && d.CreatedAt.Before(*f.From) {
		return false
	}
	if f.To != nil && d.CreatedAt.After(*f.To) {
		return false
	}
	if f.ProfileID != "" && !equalsOptional(d.InitiatorProfileID, f.ProfileID) && !equalsOptional(d.CounterpartyProfileID, f.ProfileID) {
		return false
	}
	if f.Party != nil {
		party := strings.EqualFold(d.InitiatorEmail, f.Party.Email) ||
			strings.EqualFold(d.CounterpartyEmail, f.Party.Email) ||
			d.CreatedBy == f.Party.ActorID
		if !party {
			return false
		}
	}
	if f.ArbitratorID != "" {
		assigned := equalsOptional(d.ArbitratorID, f.ArbitratorID)
		unclaimed := f.IncludeUnclaimed && d.ArbitratorID == nil && !d.Status.IsTerminal()
		if !assigned && !unclaimed {
			return false
		}
	}
	return true
}

func (s *Store) FindStaleDisputes(_ context.Context, before time.Time) ([]models.Dispute, error) {
	if err := s.fault("FindStaleDisputes"); err != nil {
		return nil, err
	}
	st, done := s.view()
	defer done()
	var stale []models.Dispute
	for _, d := range st.disputes {
		if !d.Status.IsTerminal() && d.ArbitratorID != nil && d.UpdatedAt.Before(before) {
			stale = append(stale, d)
		}
	}
	sort.Slice(stale, func(i, j int) bool { return stale[i].UpdatedAt.Before(stale[j].UpdatedAt) })
	return stale, nil
}

func (s *Store) CreateEvidence(_ context.Context, e *models.Evidence) error {
	if err := s.fault("CreateEvidence"); err != nil {
		return err
	}
	st, done := s.view()
	defer done()
	st.evidence = append(st.evidence, *e)
	return nil
}

func (s *Store) ListEvidence(_ context.Context, disputeID string) ([]models.Evidence, error) {
	st, done := s.view()
	defer done()
	out := make([]models.Evidence, 0)
	for i := len(st.evidence) - 1; i >= 0; i-- {
		if st.evidence[i].DisputeID == disputeID {
			out = append(out, st.evidence[i])
		}
	}
	return out, nil
}

func (s *Store) CreateComment(_ context.Context, c *models.Comment) error {
	if err := s.fault("CreateComment"); err != nil {
		return err
	}
	st, done := s.view()
	defer done()
	st.comments = append(st.comments, *c)
	return nil
}

func (s *Store) ListComments(_ context.Context, disputeID string) ([]models.Comment, error) {
	st, done := s.view()
	defer done()
	out := make([]models.Comment, 0)
	for i := len(st.comments) - 1; i >= 0; i-- {
		if st.comments[i].DisputeID == disputeID {
			out = append(out, st.comments[i])
		}
	}
	return out, nil
}

func (s *Store) AppendHistory(_ context.Context, h *models.DisputeHistory) error {
	if err := s.fault("AppendHistory"); err != nil {
		return err
	}
	st, done := s.view()
	defer done()
	st.history = append(st.history, *h)
	return nil
}

func (s *Store) ListHistory(_ context.Context, disputeID string) ([]models.DisputeHistory, error) {
	st, done := s.view()
	defer done()
	out := make([]models.DisputeHistory, 0)
	for i := len(st.history) - 1; i >= 0; i-- {
		if st.history[i].DisputeID == disputeID {
			out = append(out, st.history[i])
		}
	}
	return out, nil
}

func (s *Store) GetTransaction(_ context.Context, id string) (*models.Transaction, error) {
	st, done := s.view()
	defer done()
	txn, ok := st.transactions[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &txn, nil
}

func (s *Store) GetTransactionForUpdate(ctx context.Context, id string) (*models.Transaction, error) {
	return s.GetTransaction(ctx, id)
}

func (s *Store) UpdateTransactionStatus(_ context.Context, id string, status models.TransactionStatus) error {
	if err := s.fault("UpdateTransactionStatus"); err != nil {
		return err
	}
	st, done := s.view()
	defer done()
	txn, ok := st.transactions[id]
	if !ok {
		return repositories.ErrNotFound
	}
	txn.Status = status
	st.transactions[id] = txn
	return nil
}

func (s *Store) GetAPIKey(_ context.Context, id string) (*models.APIKey, error) {
	st, done := s.view()
	defer done()
	key, ok := st.apiKeys[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &key, nil
}

func (s *Store) FindProfileByEmail(_ context.Context, email, businessID string) (*models.Profile, error) {
	st, done := s.view()
	defer done()
	for _, p := range st.profiles {
		if p.BusinessID == businessID && strings.EqualFold(p.Email, email) {
			return &p, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (s *Store) FindBusinessByID(_ context.Context, id string) (*models.Business, error) {
	st, done := s.view()
	defer done()
	b, ok := st.businesses[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &b, nil
}

func sameOptional(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func equalsOptional(p *string, v string) bool {
	return p != nil && *p == v
}
