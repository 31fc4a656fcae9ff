package memstore

import (
	"context"
	"sort"

	"arbitra/internal/models"
	"arbitra/internal/repositories"
)

type statsStore struct {
	s *Store
}

// Stats exposes the dispute table as a repositories.StatsRepository.
func (s *Store) Stats() repositories.StatsRepository {
	return statsStore{s: s}
}

func (r statsStore) scoped(f repositories.StatsFilter) []models.Dispute {
	st, done := r.s.view()
	defer done()
	var out []models.Dispute
	for _, d := range st.disputes {
		if f.BusinessID != nil && (d.BusinessID == nil || *d.BusinessID != *f.BusinessID) {
			continue
		}
		if f.ArbitratorID != nil {
			if d.ArbitratorID == nil || *d.ArbitratorID != *f.ArbitratorID {
				continue
			}
		} else if f.AssignedOnly && d.ArbitratorID == nil {
			continue
		}
		if f.From != nil && d.CreatedAt.Before(*f.From) {
			continue
		}
		if f.To != nil && d.CreatedAt.After(*f.To) {
			continue
		}
		out = append(out, d)
	}
	return out
}

func (r statsStore) CountByStatus(_ context.Context, f repositories.StatsFilter) (map[models.DisputeStatus]int64, error) {
	if err := r.s.fault("CountByStatus"); err != nil {
		return nil, err
	}
	counts := map[models.DisputeStatus]int64{}
	for _, d := range r.scoped(f) {
		counts[d.Status]++
	}
	return counts, nil
}

func (r statsStore) CountByResolution(_ context.Context, f repositories.StatsFilter) (map[string]int64, error) {
	counts := map[string]int64{}
	for _, d := range r.scoped(f) {
		if d.Resolution == nil {
			counts[models.ResolutionPending]++
			continue
		}
		counts[string(*d.Resolution)]++
	}
	return counts, nil
}

func (r statsStore) AverageResolutionHours(_ context.Context, f repositories.StatsFilter) (float64, error) {
	var sum float64
	var n int
	for _, d := range r.scoped(f) {
		if d.ResolutionDate != nil {
			sum += d.ResolutionDate.Sub(d.CreatedAt).Hours()
			n++
		}
	}
	if n == 0 {
		return 0, nil
	}
	return sum / float64(n), nil
}

func (r statsStore) ArbitratorPerformance(_ context.Context, f repositories.StatsFilter) ([]repositories.ArbitratorPerformance, error) {
	type acc struct {
		row   repositories.ArbitratorPerformance
		hours float64
		timed int
	}
	byID := map[string]*acc{}
	for _, d := range r.scoped(f) {
		if d.ArbitratorID == nil {
			continue
		}
		a, ok := byID[*d.ArbitratorID]
		if !ok {
			a = &acc{row: repositories.ArbitratorPerformance{ArbitratorID: *d.ArbitratorID}}
			if key, err := r.s.GetAPIKey(context.Background(), *d.ArbitratorID); err == nil {
				a.row.Email = key.Email
			}
			byID[*d.ArbitratorID] = a
		}
		a.row.TotalCases++
		if d.Status == models.DisputeStatusResolved {
			a.row.ResolvedCases++
		}
		if d.ResolutionDate != nil {
			a.hours += d.ResolutionDate.Sub(d.CreatedAt).Hours()
			a.timed++
		}
	}

	rows := make([]repositories.ArbitratorPerformance, 0, len(byID))
	for _, a := range byID {
		if a.timed > 0 {
			a.row.AverageResolutionHours = a.hours / float64(a.timed)
		}
		rows = append(rows, a.row)
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].TotalCases != rows[j].TotalCases {
			return rows[i].TotalCases > rows[j].TotalCases
		}
		return rows[i].ArbitratorID < rows[j].ArbitratorID
	})
	return rows, nil
}
