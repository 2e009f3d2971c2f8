package app

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"

	"hotelmap/internal/adapters/observability"
	"hotelmap/internal/domain"
	"hotelmap/internal/matching"
)

// ReviewService drives the reviewer adjudication workflow. Every transition
// is a single repository call executed atomically; a lost concurrency race
// surfaces domain.ErrConflict for the caller to refresh and retry.
type ReviewService struct {
	repo  domain.MappingRepository
	cache domain.Cache
}

func NewReviewService(r domain.MappingRepository, c domain.Cache) *ReviewService {
	return &ReviewService{repo: r, cache: c}
}

// Confirm maps the supplier hotel to the chosen master, marks that candidate
// accepted and its siblings rejected, and appends a history entry.
func (s *ReviewService) Confirm(ctx context.Context, supplierHotelID, masterHotelID int64, actor string) error {
	if supplierHotelID <= 0 {
		return domain.Invalid("supplier_hotel_id", "required")
	}
	if masterHotelID <= 0 {
		return domain.Invalid("master_hotel_id", "required")
	}
	err := s.repo.ConfirmMapping(ctx, domain.Confirmation{
		SupplierHotelID: supplierHotelID,
		MasterHotelID:   masterHotelID,
		Actor:           reviewer(actor),
	})
	if err != nil {
		return err
	}
	observability.ObserveReviewAction("confirm")
	s.invalidate(ctx)
	log.Info().
		Int64("supplier_hotel_id", supplierHotelID).
		Int64("master_hotel_id", masterHotelID).
		Str("actor", reviewer(actor)).
		Msg("match confirmed")
	return nil
}

// Reject removes one candidate from the pending set. The supplier record's
// status is left untouched even when the set becomes empty; the remaining
// pending count lets the caller offer "mark as no match".
func (s *ReviewService) Reject(ctx context.Context, supplierHotelID, masterHotelID int64, actor string) (remaining int, err error) {
	if supplierHotelID <= 0 {
		return 0, domain.Invalid("supplier_hotel_id", "required")
	}
	if masterHotelID <= 0 {
		return 0, domain.Invalid("master_hotel_id", "required")
	}
	remaining, err = s.repo.RejectCandidate(ctx, supplierHotelID, masterHotelID)
	if err != nil {
		return 0, err
	}
	observability.ObserveReviewAction("reject")
	log.Info().
		Int64("supplier_hotel_id", supplierHotelID).
		Int64("master_hotel_id", masterHotelID).
		Int("remaining", remaining).
		Str("actor", reviewer(actor)).
		Msg("candidate rejected")
	return remaining, nil
}

// MarkNoMatch closes the record with no master pointer and suppresses it
// from the pending-review feed.
func (s *ReviewService) MarkNoMatch(ctx context.Context, supplierHotelID int64, actor string) error {
	if supplierHotelID <= 0 {
		return domain.Invalid("supplier_hotel_id", "required")
	}
	if err := s.repo.MarkNoMatch(ctx, supplierHotelID, reviewer(actor)); err != nil {
		return err
	}
	observability.ObserveReviewAction("no_match")
	s.invalidate(ctx)
	log.Info().
		Int64("supplier_hotel_id", supplierHotelID).
		Str("actor", reviewer(actor)).
		Msg("marked no match")
	return nil
}

type NewMasterInput struct {
	Name         string   `json:"hotel_name"`
	AddressLine1 *string  `json:"address_line1,omitempty"`
	City         *string  `json:"city,omitempty"`
	CountryCode  *string  `json:"country_code,omitempty"`
	PostalCode   *string  `json:"postal_code,omitempty"`
	Lat          *float64 `json:"latitude,omitempty"`
	Lon          *float64 `json:"longitude,omitempty"`
	Phone        *string  `json:"phone_number,omitempty"`
	ChainCode    *string  `json:"chain_code,omitempty"`
}

// CreateMasterAndMap promotes supplier data into a new master record and
// confirms the mapping against it, in one transaction: a store failure must
// not leave an orphaned master behind.
func (s *ReviewService) CreateMasterAndMap(ctx context.Context, supplierHotelID int64, in NewMasterInput, actor string) (int64, error) {
	if supplierHotelID <= 0 {
		return 0, domain.Invalid("supplier_hotel_id", "required")
	}
	if strings.TrimSpace(in.Name) == "" {
		return 0, domain.Invalid("hotel_name", "required")
	}
	master := domain.MasterHotel{
		Name:           in.Name,
		NameNormalized: matching.Normalize(in.Name),
		AddressLine1:   in.AddressLine1,
		City:           in.City,
		CountryCode:    in.CountryCode,
		PostalCode:     in.PostalCode,
		Lat:            in.Lat,
		Lon:            in.Lon,
		Phone:          in.Phone,
		ChainCode:      in.ChainCode,
		Status:         domain.HotelActive,
	}
	masterID, err := s.repo.CreateMasterAndMap(ctx, supplierHotelID, master, reviewer(actor))
	if err != nil {
		return 0, err
	}
	observability.ObserveReviewAction("create_master")
	s.invalidate(ctx)
	log.Info().
		Int64("supplier_hotel_id", supplierHotelID).
		Int64("master_hotel_id", masterID).
		Str("actor", reviewer(actor)).
		Msg("master created and mapped")
	return masterID, nil
}

func (s *ReviewService) invalidate(ctx context.Context) {
	if s.cache != nil {
		_ = s.cache.Del(ctx, statsCacheKey)
	}
}

func reviewer(actor string) string {
	if strings.TrimSpace(actor) == "" {
		return "user"
	}
	return actor
}
