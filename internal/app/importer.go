package app

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"hotelmap/internal/adapters/observability"
	"hotelmap/internal/domain"
	"hotelmap/internal/matching"
)

// SystemActor stamps history rows written by the automatic pipeline.
const SystemActor = "system"

// ImportAction extends the matcher's three-way recommendation with "none",
// returned when a re-import finds an existing mapping and skips matching.
type ImportAction string

const (
	ImportAutoMapped   ImportAction = ImportAction(matching.ActionAutoMap)
	ImportQueuedReview ImportAction = ImportAction(matching.ActionManualReview)
	ImportCreateNew    ImportAction = ImportAction(matching.ActionCreateNew)
	ImportNone         ImportAction = "none"
)

type ImportInput struct {
	SupplierCode    string   `json:"supplier_code"`
	SupplierHotelID string   `json:"supplier_hotel_id"`
	Name            string   `json:"hotel_name"`
	AddressLine1    *string  `json:"address_line1,omitempty"`
	City            *string  `json:"city,omitempty"`
	CountryCode     *string  `json:"country_code,omitempty"`
	PostalCode      *string  `json:"postal_code,omitempty"`
	Lat             *float64 `json:"latitude,omitempty"`
	Lon             *float64 `json:"longitude,omitempty"`
	Phone           *string  `json:"phone_number,omitempty"`
	ChainCode       *string  `json:"chain_code,omitempty"`
}

type ImportResult struct {
	SupplierHotelID int64                `json:"supplier_hotel_id"`
	Action          ImportAction         `json:"recommended_action"`
	Status          domain.MappingStatus `json:"mapping_status"`
	BestMasterID    *int64               `json:"best_master_hotel_id,omitempty"`
	BestScore       *float64             `json:"best_score,omitempty"`
}

type ImportOptions struct {
	CandidateLimit int
	BBoxDegrees    float64 // 0 disables the bounding-box pre-filter
	ReviewTopN     int
	Workers        int64
}

type ImportService struct {
	repo    domain.MappingRepository
	cache   domain.Cache
	matcher *matching.Matcher
	opts    ImportOptions
}

func NewImportService(r domain.MappingRepository, c domain.Cache, m *matching.Matcher, opts ImportOptions) *ImportService {
	if opts.CandidateLimit <= 0 {
		opts.CandidateLimit = 1000
	}
	if opts.ReviewTopN <= 0 {
		opts.ReviewTopN = 5
	}
	if opts.Workers <= 0 {
		opts.Workers = 8
	}
	return &ImportService{repo: r, cache: c, matcher: m, opts: opts}
}

// Import upserts one supplier record and runs the automatic matching
// pipeline. Matching failures are logged and leave the record unmapped; the
// import itself still succeeds. A record that already carries a mapping (or
// sits in review) gets its descriptive fields refreshed and nothing else.
func (s *ImportService) Import(ctx context.Context, in ImportInput, actor string) (ImportResult, error) {
	if err := validateImport(in); err != nil {
		return ImportResult{}, err
	}
	if actor == "" {
		actor = SystemActor
	}

	rec := domain.SupplierHotel{
		SupplierCode:    strings.TrimSpace(in.SupplierCode),
		SupplierHotelID: strings.TrimSpace(in.SupplierHotelID),
		Name:            in.Name,
		NameNormalized:  matching.Normalize(in.Name),
		AddressLine1:    in.AddressLine1,
		City:            in.City,
		CountryCode:     in.CountryCode,
		PostalCode:      in.PostalCode,
		Lat:             in.Lat,
		Lon:             in.Lon,
		Phone:           in.Phone,
		ChainCode:       in.ChainCode,
		MappingStatus:   domain.StatusUnmapped,
	}

	id, err := s.repo.UpsertSupplierHotel(ctx, rec)
	if err != nil {
		return ImportResult{}, err
	}

	current, err := s.repo.GetSupplierHotel(ctx, id)
	if err != nil {
		return ImportResult{}, err
	}
	if current.MappingStatus != domain.StatusUnmapped {
		// Never overwrite an existing mapping decision on re-import.
		return ImportResult{SupplierHotelID: id, Action: ImportNone, Status: current.MappingStatus}, nil
	}

	res, err := s.match(ctx, current, actor)
	if err != nil {
		log.Warn().Err(err).
			Int64("supplier_hotel_id", id).
			Str("supplier_code", current.SupplierCode).
			Msg("automatic matching failed, record left unmapped")
		observability.ObserveImport(string(ImportNone))
		return ImportResult{SupplierHotelID: id, Action: ImportNone, Status: domain.StatusUnmapped}, nil
	}
	observability.ObserveImport(string(res.Action))
	s.invalidateStats(ctx)
	return res, nil
}

func (s *ImportService) match(ctx context.Context, sh domain.SupplierHotel, actor string) (ImportResult, error) {
	candidates, err := s.repo.ListCandidates(ctx, domain.CandidateQuery{
		CountryCode: sh.CountryCode,
		Lat:         sh.Lat,
		Lon:         sh.Lon,
		BBoxDegrees: s.opts.BBoxDegrees,
		Limit:       s.opts.CandidateLimit,
	})
	if err != nil {
		return ImportResult{}, err
	}

	records := make([]matching.Record, len(candidates))
	for i, c := range candidates {
		records[i] = masterToRecord(c)
	}
	ranked := s.matcher.Rank(supplierToRecord(sh), records)
	rec := s.matcher.Recommend(ranked)

	out := ImportResult{SupplierHotelID: sh.ID, Action: ImportAction(rec.Action), Status: domain.StatusUnmapped}
	if rec.Best != nil {
		out.BestMasterID = &rec.Best.MasterHotelID
		out.BestScore = &rec.Best.Score
		observability.ObserveMatchScore(rec.Best.Score)
	}

	switch rec.Action {
	case matching.ActionAutoMap:
		err = s.repo.CommitAutoMapping(ctx, domain.AutoMapping{
			SupplierHotelID: sh.ID,
			MasterHotelID:   rec.Best.MasterHotelID,
			Score:           rec.Best.Score,
			Method:          rec.Best.Method,
			Actor:           actor,
		})
		if err != nil {
			return ImportResult{}, err
		}
		out.Status = domain.StatusAutoMapped
		log.Info().
			Int64("supplier_hotel_id", sh.ID).
			Int64("master_hotel_id", rec.Best.MasterHotelID).
			Float64("score", rec.Best.Score).
			Str("method", rec.Best.Method).
			Msg("auto mapped")

	case matching.ActionManualReview:
		top := ranked
		if len(top) > s.opts.ReviewTopN {
			top = top[:s.opts.ReviewTopN]
		}
		cs := make([]domain.CandidateScore, len(top))
		for i, r := range top {
			crit, _ := json.Marshal(r.Criteria)
			cs[i] = domain.CandidateScore{
				MasterHotelID: r.MasterHotelID,
				Score:         r.Score,
				Method:        r.Method,
				CriteriaJSON:  crit,
			}
		}
		if err := s.repo.QueueForReview(ctx, sh.ID, sh.SupplierCode, cs); err != nil {
			return ImportResult{}, err
		}
		out.Status = domain.StatusPendingReview
		log.Info().
			Int64("supplier_hotel_id", sh.ID).
			Int("candidates", len(cs)).
			Msg("queued for review")
	}

	return out, nil
}

type BatchItemResult struct {
	Index  int           `json:"index"`
	Result *ImportResult `json:"result,omitempty"`
	Err    string        `json:"error,omitempty"`
}

// ImportBatch fans records out across a bounded worker pool. Failures are
// accumulated per record; one bad record never aborts the batch.
func (s *ImportService) ImportBatch(ctx context.Context, items []ImportInput, actor string) []BatchItemResult {
	results := make([]BatchItemResult, len(items))
	sem := semaphore.NewWeighted(s.opts.Workers)
	var wg sync.WaitGroup

	for i, in := range items {
		if err := sem.Acquire(ctx, 1); err != nil {
			results[i] = BatchItemResult{Index: i, Err: err.Error()}
			continue
		}
		wg.Add(1)
		go func(i int, in ImportInput) {
			defer wg.Done()
			defer sem.Release(1)

			res, err := s.Import(ctx, in, actor)
			if err != nil {
				results[i] = BatchItemResult{Index: i, Err: err.Error()}
				return
			}
			results[i] = BatchItemResult{Index: i, Result: &res}
		}(i, in)
	}
	wg.Wait()
	return results
}

func (s *ImportService) invalidateStats(ctx context.Context) {
	if s.cache != nil {
		_ = s.cache.Del(ctx, statsCacheKey)
	}
}

func validateImport(in ImportInput) error {
	if strings.TrimSpace(in.Name) == "" {
		return domain.Invalid("hotel_name", "required")
	}
	if strings.TrimSpace(in.SupplierCode) == "" {
		return domain.Invalid("supplier_code", "required")
	}
	if strings.TrimSpace(in.SupplierHotelID) == "" {
		return domain.Invalid("supplier_hotel_id", "required")
	}
	return nil
}

func supplierToRecord(h domain.SupplierHotel) matching.Record {
	return matching.Record{
		ID:          h.ID,
		Name:        h.Name,
		Address:     h.AddressLine1,
		City:        h.City,
		CountryCode: h.CountryCode,
		PostalCode:  h.PostalCode,
		Lat:         h.Lat,
		Lon:         h.Lon,
		Phone:       h.Phone,
		ChainCode:   h.ChainCode,
	}
}

func masterToRecord(m domain.MasterHotel) matching.Record {
	return matching.Record{
		ID:          m.ID,
		Name:        m.Name,
		Address:     m.AddressLine1,
		City:        m.City,
		CountryCode: m.CountryCode,
		PostalCode:  m.PostalCode,
		Lat:         m.Lat,
		Lon:         m.Lon,
		Phone:       m.Phone,
		ChainCode:   m.ChainCode,
	}
}
