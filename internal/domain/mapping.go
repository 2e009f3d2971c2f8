package domain

import "time"

// MatchStatus is the adjudication state of one persisted candidate.
type MatchStatus string

const (
	MatchPending  MatchStatus = "pending"
	MatchAccepted MatchStatus = "accepted"
	MatchRejected MatchStatus = "rejected"
)

// HistoryAction labels an audit entry.
type HistoryAction string

const (
	ActionMapped   HistoryAction = "mapped"
	ActionRemapped HistoryAction = "remapped"
	ActionUnmapped HistoryAction = "unmapped"
)

// PotentialMatch is a persisted reviewer-facing candidate. Rows are owned by
// their supplier hotel; accepting one rejects its siblings.
type PotentialMatch struct {
	ID              int64
	SupplierHotelID int64
	SupplierCode    string
	MasterHotelID   int64
	Score           float64
	CriteriaJSON    []byte
	Status          MatchStatus
}

// MappingHistoryEntry is append-only and never mutated.
type MappingHistoryEntry struct {
	ID               int64
	SupplierHotelID  int64
	SupplierCode     string
	OldMasterHotelID *int64
	NewMasterHotelID *int64
	Action           HistoryAction
	Confidence       *float64
	MappingMethod    string
	PerformedBy      string
	CreatedAt        time.Time
}

// CandidateScore is what the import pipeline hands to the store when a record
// is queued for review.
type CandidateScore struct {
	MasterHotelID int64
	Score         float64
	Method        string
	CriteriaJSON  []byte
}

// AutoMapping commits the top candidate without review.
type AutoMapping struct {
	SupplierHotelID int64
	MasterHotelID   int64
	Score           float64
	Method          string
	Actor           string
}

// Confirmation is a reviewer accepting one candidate.
type Confirmation struct {
	SupplierHotelID int64
	MasterHotelID   int64
	Actor           string
}

// Read models.

type PendingReview struct {
	SupplierHotelID int64
	SupplierCode    string
	Name            string
	City            *string
	CountryCode     *string
	CandidateCount  int
}

// PotentialMatchDetail joins a candidate row with its master hotel fields for
// reviewer display.
type PotentialMatchDetail struct {
	PotentialMatch
	MasterName        string
	MasterAddress     *string
	MasterCity        *string
	MasterPostalCode  *string
	MasterLat         *float64
	MasterLon         *float64
	MasterPhone       *string
	MasterCountryCode *string
}

type ReviewBundle struct {
	SupplierHotel SupplierHotel
	Candidates    []PotentialMatchDetail
}

type SupplierStats struct {
	SupplierCode      string
	TotalHotels       int
	MappedHotels      int
	MappingPercentage float64
}

type MappingStats struct {
	TotalSuppliers int
	ByStatus       map[MappingStatus]int
	BySupplier     []SupplierStats
	PendingReviews int
}

type ExportQuery struct {
	Status       *MappingStatus
	SupplierCode *string
	Limit        int
}

type MappingExportRow struct {
	SupplierCode    string
	SupplierHotelID string
	SupplierName    string
	MasterHotelID   int64
	MasterName      string
	Status          MappingStatus
	Confidence      *float64
	MappingMethod   *string
	MappedAt        *time.Time
}
