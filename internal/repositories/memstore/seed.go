package memstore

import "arbitra/internal/models"

// Seeding helpers write directly, outside any transaction.

func (s *Store) AddBusiness(b models.Business) {
	st, done := s.view()
	defer done()
	st.businesses[b.ID] = b
}

func (s *Store) AddProfile(p models.Profile) {
	st, done := s.view()
	defer done()
	st.profiles[p.ID] = p
}

func (s *Store) AddAPIKey(k models.APIKey) {
	st, done := s.view()
	defer done()
	st.apiKeys[k.ID] = k
}

func (s *Store) AddTransaction(t models.Transaction) {
	st, done := s.view()
	defer done()
	st.transactions[t.ID] = t
}

func (s *Store) AddDispute(d models.Dispute) {
	st, done := s.view()
	defer done()
	st.disputes[d.ID] = d
}
