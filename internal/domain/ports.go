package domain

import "context"

// CandidateQuery bounds the master-registry scan before scoring.
type CandidateQuery struct {
	CountryCode *string
	Lat, Lon    *float64
	BBoxDegrees float64 // 0 disables the bounding-box pre-filter
	Limit       int
}

// MappingRepository is the abstract transactional store. Every method that
// mutates both the supplier record and a sibling row set (candidates, history,
// masters) must be atomic, and mapping mutations are serialized per supplier
// hotel: a lost race surfaces ErrConflict.
type MappingRepository interface {
	// Write paths
	UpsertSupplierHotel(ctx context.Context, h SupplierHotel) (int64, error)
	InsertMasterHotel(ctx context.Context, m MasterHotel) (int64, error)
	CommitAutoMapping(ctx context.Context, am AutoMapping) error
	QueueForReview(ctx context.Context, supplierHotelID int64, supplierCode string, cs []CandidateScore) error
	ConfirmMapping(ctx context.Context, c Confirmation) error
	RejectCandidate(ctx context.Context, supplierHotelID, masterHotelID int64) (remaining int, err error)
	MarkNoMatch(ctx context.Context, supplierHotelID int64, actor string) error
	CreateMasterAndMap(ctx context.Context, supplierHotelID int64, m MasterHotel, actor string) (int64, error)

	// Read paths
	GetSupplierHotel(ctx context.Context, id int64) (SupplierHotel, error)
	GetMasterHotel(ctx context.Context, id int64) (MasterHotel, error)
	ListCandidates(ctx context.Context, q CandidateQuery) ([]MasterHotel, error)
	ListMasterHotels(ctx context.Context, limit int) ([]MasterHotel, error)
	ListPendingReviews(ctx context.Context, limit int) ([]PendingReview, error)
	ListPotentialMatches(ctx context.Context, supplierHotelID int64) ([]PotentialMatchDetail, error)
	ListMappingHistory(ctx context.Context, supplierHotelID int64) ([]MappingHistoryEntry, error)
	MappingStats(ctx context.Context) (MappingStats, error)
	ExportMappings(ctx context.Context, q ExportQuery) ([]MappingExportRow, error)
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
}
