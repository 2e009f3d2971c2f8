package domain

import "time"

// HotelStatus is the lifecycle state of a master hotel. Masters are never
// deleted, only deactivated.
type HotelStatus string

const (
	HotelActive   HotelStatus = "active"
	HotelInactive HotelStatus = "inactive"
)

// MappingStatus is the review-workflow state of a supplier hotel.
type MappingStatus string

const (
	StatusUnmapped       MappingStatus = "unmapped"
	StatusPendingReview  MappingStatus = "pending_review"
	StatusAutoMapped     MappingStatus = "auto_mapped"
	StatusManuallyMapped MappingStatus = "manually_mapped"
	StatusNoMatch        MappingStatus = "no_match_available"
)

func (s MappingStatus) Valid() bool {
	switch s {
	case StatusUnmapped, StatusPendingReview, StatusAutoMapped, StatusManuallyMapped, StatusNoMatch:
		return true
	}
	return false
}

// Mapped reports whether the status carries a committed master pointer.
func (s MappingStatus) Mapped() bool {
	return s == StatusAutoMapped || s == StatusManuallyMapped
}

// CanTransition enforces the workflow edges: unmapped feeds the automatic
// pipeline and every reviewer action; pending_review only reviewer actions.
// Terminal states only accept an explicit re-map by a reviewer.
func (s MappingStatus) CanTransition(next MappingStatus) bool {
	switch s {
	case StatusUnmapped:
		return next == StatusPendingReview || next == StatusAutoMapped ||
			next == StatusManuallyMapped || next == StatusNoMatch
	case StatusPendingReview:
		return next == StatusManuallyMapped || next == StatusNoMatch
	case StatusAutoMapped, StatusManuallyMapped, StatusNoMatch:
		return next == StatusManuallyMapped
	}
	return false
}

type MasterHotel struct {
	ID             int64
	Name           string
	NameNormalized string
	AddressLine1   *string
	City           *string
	CountryCode    *string
	PostalCode     *string
	Lat, Lon       *float64
	Phone          *string
	ChainCode      *string
	Status         HotelStatus
}

type SupplierHotel struct {
	ID              int64
	SupplierCode    string
	SupplierHotelID string
	Name            string
	NameNormalized  string
	AddressLine1    *string
	City            *string
	CountryCode     *string
	PostalCode      *string
	Lat, Lon        *float64
	Phone           *string
	ChainCode       *string

	// Mapping state. MasterHotelID is owned exclusively by this record and
	// only mutated through the transactional repository transitions.
	MasterHotelID *int64
	MappingStatus MappingStatus
	Confidence    *float64
	MappingMethod *string
	MappedAt      *time.Time
}
