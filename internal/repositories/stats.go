package repositories

import (
	"context"
	"time"

	"arbitra/internal/models"

	"gorm.io/gorm"
)

// StatsFilter scopes aggregate queries.
type StatsFilter struct {
	BusinessID   *string
	ArbitratorID *string
	// AssignedOnly skips unassigned disputes when no ArbitratorID is given.
	AssignedOnly bool
	From         *time.Time
	To           *time.Time
}

type ArbitratorPerformance struct {
	ArbitratorID           string  `json:"arbitrator_id" yaml:"arbitrator_id"`
	Email                  string  `json:"email" yaml:"email"`
	TotalCases             int64   `json:"total_cases" yaml:"total_cases"`
	ResolvedCases          int64   `json:"resolved_cases" yaml:"resolved_cases"`
	AverageResolutionHours float64 `json:"average_resolution_hours" yaml:"average_resolution_hours"`
}

type StatsRepository interface {
	CountByStatus(ctx context.Context, filter StatsFilter) (map[models.DisputeStatus]int64, error)
	// CountByResolution buckets unresolved disputes under models.ResolutionPending.
	CountByResolution(ctx context.Context, filter StatsFilter) (map[string]int64, error)
	AverageResolutionHours(ctx context.Context, filter StatsFilter) (float64, error)
	ArbitratorPerformance(ctx context.Context, filter StatsFilter) ([]ArbitratorPerformance, error)
}

type statsRepository struct {
	db *gorm.DB
}

func NewStatsRepository(db *gorm.DB) StatsRepository {
	return &statsRepository{db: db}
}

func (r *statsRepository) scoped(ctx context.Context, f StatsFilter, prefix string) *gorm.DB {
	q := r.db.WithContext(ctx)
	if prefix == "" {
		q = q.Model(&models.Dispute{})
	} else {
		q = q.Table("disputes AS d")
		prefix += "."
	}
	if f.BusinessID != nil {
		q = q.Where(prefix+"business_id = ?", *f.BusinessID)
	}
	if f.ArbitratorID != nil {
		q = q.Where(prefix+"arbitrator_id = ?", *f.ArbitratorID)
	} else if f.AssignedOnly {
		q = q.Where(prefix + "arbitrator_id IS NOT NULL")
	}
	if f.From != nil {
		q = q.Where(prefix+"created_at >= ?", *f.From)
	}
	if f.To != nil {
		q = q.Where(prefix+"created_at <= ?", *f.To)
	}
	return q
}

type bucketCount struct {
	Bucket string
	Count  int64
}

func (r *statsRepository) CountByStatus(ctx context.Context, f StatsFilter) (map[models.DisputeStatus]int64, error) {
	var rows []bucketCount
	err := r.scoped(ctx, f, "").
		Select("status AS bucket, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[models.DisputeStatus]int64, len(rows))
	for _, row := range rows {
		counts[models.DisputeStatus(row.Bucket)] = row.Count
	}
	return counts, nil
}

func (r *statsRepository) CountByResolution(ctx context.Context, f StatsFilter) (map[string]int64, error) {
	var rows []bucketCount
	err := r.scoped(ctx, f, "").
		Select("COALESCE(resolution, '" + models.ResolutionPending + "') AS bucket, COUNT(*) AS count").
		Group("COALESCE(resolution, '" + models.ResolutionPending + "')").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.Bucket] = row.Count
	}
	return counts, nil
}

func (r *statsRepository) AverageResolutionHours(ctx context.Context, f StatsFilter) (float64, error) {
	var avg float64
	err := r.scoped(ctx, f, "").
		Select("COALESCE(AVG(" + hoursExpr("") + "), 0)").
		Where("resolution_date IS NOT NULL").
		Scan(&avg).Error
	return avg, err
}

func (r *statsRepository) ArbitratorPerformance(ctx context.Context, f StatsFilter) ([]ArbitratorPerformance, error) {
	rows := make([]ArbitratorPerformance, 0)
	err := r.scoped(ctx, f, "d").
		Select(`d.arbitrator_id AS arbitrator_id,
			COALESCE(k.email, '') AS email,
			COUNT(*) AS total_cases,
			COUNT(*) FILTER (WHERE d.status = ?) AS resolved_cases,
			COALESCE(AVG(`+hoursExpr("d.")+`) FILTER (WHERE d.resolution_date IS NOT NULL), 0) AS average_resolution_hours`,
			models.DisputeStatusResolved).
		Joins("LEFT JOIN api_keys AS k ON k.id = d.arbitrator_id").
		Where("d.arbitrator_id IS NOT NULL").
		Group("d.arbitrator_id, k.email").
		Order("total_cases DESC").
		Scan(&rows).Error
	return rows, err
}

func hoursExpr(prefix string) string {
	return "EXTRACT(EPOCH FROM (" + prefix + "resolution_date - " + prefix + "created_at)) / 3600"
}
