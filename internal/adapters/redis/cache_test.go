package redisad_test

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"

	redisad "hotelmap/internal/adapters/redis"
	"hotelmap/internal/domain"
)

func TestCacheRoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	c := redisad.New(mr.Addr(), "", 0)
	ctx := context.Background()

	in := domain.MappingStats{
		TotalSuppliers: 3,
		ByStatus: map[domain.MappingStatus]int{
			domain.StatusAutoMapped:    10,
			domain.StatusPendingReview: 4,
		},
		PendingReviews: 4,
	}
	if err := c.Set(ctx, "stats:mappings", in, 60); err != nil {
		t.Fatalf("set: %v", err)
	}

	var out domain.MappingStats
	ok, err := c.Get(ctx, "stats:mappings", &out)
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if out.TotalSuppliers != 3 || out.ByStatus[domain.StatusAutoMapped] != 10 {
		t.Fatalf("round trip mismatch: %+v", out)
	}

	if err := c.Del(ctx, "stats:mappings"); err != nil {
		t.Fatalf("del: %v", err)
	}
	ok, err = c.Get(ctx, "stats:mappings", &out)
	if err != nil {
		t.Fatalf("get after del: %v", err)
	}
	if ok {
		t.Fatal("expected miss after del")
	}
}

func TestCacheMiss(t *testing.T) {
	mr := miniredis.RunT(t)
	c := redisad.New(mr.Addr(), "", 0)

	var out domain.MappingStats
	ok, err := c.Get(context.Background(), "nope", &out)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if ok {
		t.Fatal("expected miss")
	}
}
