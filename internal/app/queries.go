package app

import (
	"context"
	"time"

	"hotelmap/internal/domain"
)

const statsCacheKey = "stats:mappings"

// QueryService serves the read side of the review workflow. Only the
// statistics read is cached; the pending feed and candidate lists must stay
// fresh for reviewers.
type QueryService struct {
	repo     domain.MappingRepository
	cache    domain.Cache
	cacheTTL time.Duration
}

func NewQueryService(r domain.MappingRepository, c domain.Cache, ttl time.Duration) *QueryService {
	return &QueryService{repo: r, cache: c, cacheTTL: ttl}
}

func (s *QueryService) PendingReviews(ctx context.Context, limit int) ([]domain.PendingReview, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.repo.ListPendingReviews(ctx, limit)
}

func (s *QueryService) PotentialMatches(ctx context.Context, supplierHotelID int64) (domain.ReviewBundle, error) {
	sh, err := s.repo.GetSupplierHotel(ctx, supplierHotelID)
	if err != nil {
		return domain.ReviewBundle{}, err
	}
	cands, err := s.repo.ListPotentialMatches(ctx, supplierHotelID)
	if err != nil {
		return domain.ReviewBundle{}, err
	}
	return domain.ReviewBundle{SupplierHotel: sh, Candidates: cands}, nil
}

func (s *QueryService) Stats(ctx context.Context) (domain.MappingStats, error) {
	var st domain.MappingStats
	if s.cache != nil {
		if ok, _ := s.cache.Get(ctx, statsCacheKey, &st); ok {
			return st, nil
		}
	}
	st, err := s.repo.MappingStats(ctx)
	if err != nil {
		return domain.MappingStats{}, err
	}
	if s.cache != nil {
		_ = s.cache.Set(ctx, statsCacheKey, st, int(s.cacheTTL.Seconds()))
	}
	return st, nil
}

func (s *QueryService) Export(ctx context.Context, q domain.ExportQuery) ([]domain.MappingExportRow, error) {
	if q.Limit <= 0 || q.Limit > 10_000 {
		q.Limit = 1000
	}
	return s.repo.ExportMappings(ctx, q)
}

func (s *QueryService) MasterHotels(ctx context.Context, limit int) ([]domain.MasterHotel, error) {
	if limit <= 0 || limit > 1000 {
		limit = 200
	}
	return s.repo.ListMasterHotels(ctx, limit)
}

func (s *QueryService) History(ctx context.Context, supplierHotelID int64) ([]domain.MappingHistoryEntry, error) {
	if _, err := s.repo.GetSupplierHotel(ctx, supplierHotelID); err != nil {
		return nil, err
	}
	return s.repo.ListMappingHistory(ctx, supplierHotelID)
}
