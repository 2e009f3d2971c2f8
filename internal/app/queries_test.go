package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"hotelmap/internal/domain"
	"hotelmap/internal/matching"
)

func TestStatsUsesCache(t *testing.T) {
	ctx := context.Background()
	repo := newMemRepo()
	cache := newMemCache()
	svc := NewQueryService(repo, cache, 5*time.Minute)

	if _, err := repo.UpsertSupplierHotel(ctx, domain.SupplierHotel{
		SupplierCode: "EXP", SupplierHotelID: "exp-1", Name: "A",
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	st, err := svc.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if st.TotalSuppliers != 1 {
		t.Fatalf("total = %d, want 1", st.TotalSuppliers)
	}
	if cache.sets != 1 {
		t.Fatalf("cache sets = %d, want 1", cache.sets)
	}

	// A second read must come from the cache, not the repo.
	if _, err := repo.UpsertSupplierHotel(ctx, domain.SupplierHotel{
		SupplierCode: "EXP", SupplierHotelID: "exp-2", Name: "B",
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	st, err = svc.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if st.TotalSuppliers != 1 {
		t.Fatalf("total = %d, want cached 1", st.TotalSuppliers)
	}
}

func TestStatsWithoutCache(t *testing.T) {
	svc := NewQueryService(newMemRepo(), nil, time.Minute)
	if _, err := svc.Stats(context.Background()); err != nil {
		t.Fatalf("Stats without cache: %v", err)
	}
}

func TestPendingReviewsOrderedByCandidateCount(t *testing.T) {
	ctx := context.Background()
	repo := newMemRepo()
	masters := seedMasters(t, repo, 3)

	firstID, _ := repo.UpsertSupplierHotel(ctx, domain.SupplierHotel{
		SupplierCode: "EXP", SupplierHotelID: "exp-1", Name: "One",
		NameNormalized: matching.Normalize("One"),
	})
	_ = repo.QueueForReview(ctx, firstID, "EXP", []domain.CandidateScore{
		{MasterHotelID: masters[0], Score: 0.7},
	})
	secondID, _ := repo.UpsertSupplierHotel(ctx, domain.SupplierHotel{
		SupplierCode: "EXP", SupplierHotelID: "exp-2", Name: "Two",
		NameNormalized: matching.Normalize("Two"),
	})
	_ = repo.QueueForReview(ctx, secondID, "EXP", []domain.CandidateScore{
		{MasterHotelID: masters[0], Score: 0.7},
		{MasterHotelID: masters[1], Score: 0.65},
		{MasterHotelID: masters[2], Score: 0.62},
	})

	svc := NewQueryService(repo, nil, time.Minute)
	rows, err := svc.PendingReviews(ctx, 0)
	if err != nil {
		t.Fatalf("PendingReviews: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
	if rows[0].SupplierHotelID != secondID || rows[0].CandidateCount != 3 {
		t.Fatalf("busiest record not first: %+v", rows[0])
	}
}

func TestPotentialMatchesUnknownSupplier(t *testing.T) {
	svc := NewQueryService(newMemRepo(), nil, time.Minute)
	_, err := svc.PotentialMatches(context.Background(), 42)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestHistoryUnknownSupplier(t *testing.T) {
	svc := NewQueryService(newMemRepo(), nil, time.Minute)
	_, err := svc.History(context.Background(), 42)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestExportOnlyMappedRecords(t *testing.T) {
	ctx := context.Background()
	repo := newMemRepo()
	masterID := seedMaster(t, repo, domain.MasterHotel{
		Name: "Grand Plaza", CountryCode: strp("US"),
		PostalCode: strp("10001"), Lat: f64p(40.75055), Lon: f64p(-73.99345),
	})
	importer := newTestImporter(repo, newMemCache())
	if _, err := importer.Import(ctx, grandPlazaInput(), ""); err != nil {
		t.Fatalf("Import: %v", err)
	}
	// An unmapped sibling must not appear in the export.
	if _, err := repo.UpsertSupplierHotel(ctx, domain.SupplierHotel{
		SupplierCode: "EXP", SupplierHotelID: "exp-9", Name: "Lonely Lodge",
		NameNormalized: matching.Normalize("Lonely Lodge"),
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	svc := NewQueryService(repo, nil, time.Minute)
	rows, err := svc.Export(ctx, domain.ExportQuery{})
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("rows = %d, want 1", len(rows))
	}
	if rows[0].MasterHotelID != masterID || rows[0].Status != domain.StatusAutoMapped {
		t.Fatalf("row = %+v", rows[0])
	}

	code := "NOPE"
	rows, _ = svc.Export(ctx, domain.ExportQuery{SupplierCode: &code})
	if len(rows) != 0 {
		t.Fatalf("filtered rows = %d, want 0", len(rows))
	}
}
