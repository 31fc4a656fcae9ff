// Package stats computes dispute and arbitration rollups. Results are
// cached per scope and date range and expire by TTL only.
package stats

import (
	"context"
	"log/slog"
	"math"
	"strings"
	"time"

	apperrors "arbitra/internal/errors"
	"arbitra/internal/models"
	"arbitra/internal/repositories"
	"arbitra/internal/services/access"
	cachekeys "arbitra/internal/utils/cache"

	"golang.org/x/sync/errgroup"
)

const DefaultTTL = time.Hour

type Cache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	SetWithTTL(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// Query holds the optional caller filters.
type Query struct {
	BusinessID   *string
	ArbitratorID *string
	From         *time.Time
	To           *time.Time
}

type DisputeStats struct {
	TotalDisputes              int64                                `json:"totalDisputes" yaml:"totalDisputes"`
	StatusBreakdown            map[string]int64                     `json:"statusBreakdown" yaml:"statusBreakdown"`
	ResolutionBreakdown        map[string]int64                     `json:"resolutionBreakdown" yaml:"resolutionBreakdown"`
	AverageResolutionTimeHours float64                              `json:"averageResolutionTimeHours" yaml:"averageResolutionTimeHours"`
	ArbitratorPerformance      []repositories.ArbitratorPerformance `json:"arbitratorPerformance,omitempty" yaml:"arbitratorPerformance,omitempty"`
}

type ArbitrationStats struct {
	TotalAssignedDisputes      int64                                `json:"totalAssignedDisputes" yaml:"totalAssignedDisputes"`
	PendingDisputes            int64                                `json:"pendingDisputes" yaml:"pendingDisputes"`
	StatusBreakdown            map[string]int64                     `json:"statusBreakdown" yaml:"statusBreakdown"`
	ResolutionBreakdown        map[string]int64                     `json:"resolutionBreakdown" yaml:"resolutionBreakdown"`
	AverageResolutionTimeHours float64                              `json:"averageResolutionTimeHours" yaml:"averageResolutionTimeHours"`
	ArbitratorPerformance      []repositories.ArbitratorPerformance `json:"arbitratorPerformance,omitempty" yaml:"arbitratorPerformance,omitempty"`
}

type Service struct {
	repo  repositories.StatsRepository
	cache Cache
	ttl   time.Duration
}

func NewService(repo repositories.StatsRepository, cache Cache, ttl time.Duration) *Service {
	if repo == nil {
		panic("stats repository is required")
	}
	if cache == nil {
		panic("cache is required")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Service{repo: repo, cache: cache, ttl: ttl}
}

// DisputeStats is global for admins (optionally one business) and the
// caller's own business for users. Admins also get the per-arbitrator table.
func (s *Service) DisputeStats(ctx context.Context, actor *models.Actor, q Query) (*DisputeStats, error) {
	filter := repositories.StatsFilter{From: q.From, To: q.To}
	if err := access.ScopeStats(actor, q.BusinessID, &filter); err != nil {
		return nil, err
	}
	withArbitrators := access.IsAdmin(actor)

	key := cachekeys.StatsKey(cachekeys.KeyDisputes, scope(filter.BusinessID, nil, withArbitrators), q.From, q.To)
	var out DisputeStats
	err := s.readThrough(ctx, key, &out, func() error {
		b, err := s.breakdown(ctx, filter, withArbitrators)
		if err != nil {
			return err
		}
		out = DisputeStats{
			TotalDisputes:              b.total,
			StatusBreakdown:            b.statuses,
			ResolutionBreakdown:        b.resolutions,
			AverageResolutionTimeHours: b.avgHours,
			ArbitratorPerformance:      b.arbitrators,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ArbitrationStats covers assigned cases. Arbitrators always see their own
// numbers; admins may pick an arbitrator or get the overall table.
func (s *Service) ArbitrationStats(ctx context.Context, actor *models.Actor, q Query) (*ArbitrationStats, error) {
	filter := repositories.StatsFilter{From: q.From, To: q.To, AssignedOnly: true}
	switch {
	case access.IsAdmin(actor):
		filter.BusinessID = q.BusinessID
		filter.ArbitratorID = q.ArbitratorID
	case access.IsArbitrator(actor):
		id := actor.ID
		filter.ArbitratorID = &id
		filter.BusinessID = actor.BusinessID
	default:
		return nil, apperrors.Forbidden("Only arbitrators and administrators can view arbitration statistics")
	}
	withArbitrators := access.IsAdmin(actor) && filter.ArbitratorID == nil

	key := cachekeys.StatsKey(cachekeys.KeyArbitration, scope(filter.BusinessID, filter.ArbitratorID, withArbitrators), q.From, q.To)
	var out ArbitrationStats
	err := s.readThrough(ctx, key, &out, func() error {
		b, err := s.breakdown(ctx, filter, withArbitrators)
		if err != nil {
			return err
		}
		out = ArbitrationStats{
			TotalAssignedDisputes:      b.total,
			PendingDisputes:            b.pending,
			StatusBreakdown:            b.statuses,
			ResolutionBreakdown:        b.resolutions,
			AverageResolutionTimeHours: b.avgHours,
			ArbitratorPerformance:      b.arbitrators,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Service) readThrough(ctx context.Context, key string, dest interface{}, compute func() error) error {
	found, err := s.cache.Get(ctx, key, dest)
	if err != nil {
		slog.Warn("stats cache read failed",
			"module", "stats",
			"operation", "read",
			"outcome", "fallback",
			"key", key,
			"error", err,
		)
	} else if found {
		return nil
	}

	if err := compute(); err != nil {
		return apperrors.Wrap(err, "failed to compute dispute statistics")
	}
	if err := s.cache.SetWithTTL(ctx, key, dest, s.ttl); err != nil {
		slog.Warn("stats cache write failed",
			"module", "stats",
			"operation", "write",
			"key", key,
			"error", err,
		)
	}
	return nil
}

type breakdown struct {
	total       int64
	pending     int64
	statuses    map[string]int64
	resolutions map[string]int64
	avgHours    float64
	arbitrators []repositories.ArbitratorPerformance
}

func (s *Service) breakdown(ctx context.Context, filter repositories.StatsFilter, withArbitrators bool) (*breakdown, error) {
	var (
		byStatus     map[models.DisputeStatus]int64
		byResolution map[string]int64
		avg          float64
		arbitrators  []repositories.ArbitratorPerformance
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		byStatus, err = s.repo.CountByStatus(gctx, filter)
		return err
	})
	g.Go(func() (err error) {
		byResolution, err = s.repo.CountByResolution(gctx, filter)
		return err
	})
	g.Go(func() (err error) {
		avg, err = s.repo.AverageResolutionHours(gctx, filter)
		return err
	})
	if withArbitrators {
		g.Go(func() (err error) {
			arbitrators, err = s.repo.ArbitratorPerformance(gctx, filter)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	b := &breakdown{
		statuses:    make(map[string]int64, len(models.DisputeStatuses)),
		resolutions: make(map[string]int64, len(models.Resolutions)+1),
		avgHours:    round2(avg),
	}
	for _, st := range models.DisputeStatuses {
		b.statuses[string(st)] = 0
	}
	for st, n := range byStatus {
		b.statuses[string(st)] += n
		b.total += n
		if !st.IsTerminal() {
			b.pending += n
		}
	}

	b.resolutions[models.ResolutionPending] = 0
	for _, r := range models.Resolutions {
		b.resolutions[string(r)] = 0
	}
	for r, n := range byResolution {
		b.resolutions[r] += n
	}

	for i := range arbitrators {
		arbitrators[i].AverageResolutionHours = round2(arbitrators[i].AverageResolutionHours)
	}
	b.arbitrators = arbitrators
	return b, nil
}

// scope names the cache partition for a business and arbitrator filter.
// Results carrying the per-arbitrator table live in their own partition so
// they are never served to callers that may not see it.
func scope(businessID, arbitratorID *string, withArbitrators bool) string {
	parts := []string{"global"}
	if businessID != nil {
		parts = []string{"business-" + *businessID}
	}
	if arbitratorID != nil {
		parts = append(parts, "arbitrator-"+*arbitratorID)
	}
	if withArbitrators {
		parts = append(parts, "perf")
	}
	return strings.Join(parts, ".")
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
