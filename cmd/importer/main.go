package main

import (
	"context"
	"database/sql"
	"encoding/csv"
	"flag"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	_ "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"hotelmap/internal/adapters/observability"
	redisad "hotelmap/internal/adapters/redis"
	"hotelmap/internal/app"
	"hotelmap/internal/matching"
	"hotelmap/internal/shared"
	mysqlrepo "hotelmap/internal/storage/mysql"
)

// CSV columns, in order:
// supplier_code, supplier_hotel_id, name, address, city, country, postal, lat, lon, phone, chain
func main() {
	file := flag.String("file", "", "CSV file of supplier hotel records")
	flag.Parse()
	if *file == "" {
		log.Fatal().Msg("-file is required")
	}

	ctx := context.Background()
	cfg := shared.Load()
	log.Logger = observability.NewLogger(cfg.AppEnv)
	observability.Serve()

	batchID := uuid.NewString()
	log.Info().
		Str("file", *file).
		Str("batch_id", batchID).
		Int("workers", cfg.Workers).
		Int("rate", cfg.ImportRate).
		Msg("importer starting")

	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	if err := db.Ping(); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}

	repo := mysqlrepo.New(db)
	cache := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	importer := app.NewImportService(repo, cache, matching.New(cfg.Matcher), app.ImportOptions{
		CandidateLimit: cfg.CandidateLimit,
		BBoxDegrees:    cfg.CandidateBBox,
		ReviewTopN:     cfg.ReviewTopN,
		Workers:        int64(cfg.Workers),
	})

	f, err := os.Open(*file)
	if err != nil {
		log.Fatal().Err(err).Msg("open CSV failed")
	}
	defer f.Close()

	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.ImportRate > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.ImportRate), cfg.ImportRate)
	}
	sem := semaphore.NewWeighted(int64(cfg.Workers))
	actor := "importer:" + batchID

	var wg sync.WaitGroup
	var mu sync.Mutex
	counts := map[app.ImportAction]int{}
	failed := 0

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	line := 0
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			log.Warn().Err(err).Int("line", line).Msg("bad CSV row")
			failed++
			continue
		}
		if line == 1 && strings.EqualFold(rec[0], "supplier_code") {
			continue // header
		}
		in, perr := parseRow(rec)
		if perr != nil {
			log.Warn().Err(perr).Int("line", line).Msg("bad record")
			failed++
			continue
		}

		if err := limiter.Wait(ctx); err != nil {
			log.Fatal().Err(err).Msg("rate limiter interrupted")
		}
		if err := sem.Acquire(ctx, 1); err != nil {
			log.Fatal().Err(err).Msg("semaphore acquire failed")
		}
		wg.Add(1)
		go func(line int, in app.ImportInput) {
			defer wg.Done()
			defer sem.Release(1)

			res, err := importer.Import(ctx, in, actor)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				log.Warn().Err(err).Int("line", line).
					Str("supplier_code", in.SupplierCode).
					Str("supplier_hotel_id", in.SupplierHotelID).
					Msg("import failed")
				failed++
				return
			}
			counts[res.Action]++
		}(line, in)
	}
	wg.Wait()

	log.Info().
		Str("batch_id", batchID).
		Int("auto_mapped", counts[app.ImportAutoMapped]).
		Int("queued_review", counts[app.ImportQueuedReview]).
		Int("unmapped", counts[app.ImportCreateNew]).
		Int("skipped", counts[app.ImportNone]).
		Int("failed", failed).
		Msg("import completed")
}

func parseRow(rec []string) (app.ImportInput, error) {
	get := func(i int) string {
		if i < len(rec) {
			return strings.TrimSpace(rec[i])
		}
		return ""
	}
	in := app.ImportInput{
		SupplierCode:    get(0),
		SupplierHotelID: get(1),
		Name:            get(2),
		AddressLine1:    optStr(get(3)),
		City:            optStr(get(4)),
		CountryCode:     optStr(get(5)),
		PostalCode:      optStr(get(6)),
		Phone:           optStr(get(9)),
		ChainCode:       optStr(get(10)),
	}
	if s := get(7); s != "" {
		lat, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return in, err
		}
		in.Lat = &lat
	}
	if s := get(8); s != "" {
		lon, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return in, err
		}
		in.Lon = &lon
	}
	return in, nil
}

func optStr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
