package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"strings"

	"github.com/brianvoe/gofakeit/v6"
	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"

	"hotelmap/internal/adapters/observability"
	"hotelmap/internal/domain"
	"hotelmap/internal/matching"
	"hotelmap/internal/shared"
	mysqlrepo "hotelmap/internal/storage/mysql"
)

var chains = []string{"HIL", "MAR", "IHG", "ACC", "HYA", "WYN", "BWH", ""}

// Seeds the master registry with fake hotels for local development.
func main() {
	n := flag.Int("n", 500, "number of master hotels to insert")
	seed := flag.Int64("seed", 0, "deterministic seed, 0 = random")
	flag.Parse()

	ctx := context.Background()
	cfg := shared.Load()
	log.Logger = observability.NewLogger(cfg.AppEnv)

	if *seed != 0 {
		gofakeit.Seed(*seed)
	}

	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	if err := db.Ping(); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}
	repo := mysqlrepo.New(db)

	inserted := 0
	for i := 0; i < *n; i++ {
		m := fakeMaster()
		if _, err := repo.InsertMasterHotel(ctx, m); err != nil {
			log.Warn().Err(err).Str("name", m.Name).Msg("insert failed")
			continue
		}
		inserted++
	}
	log.Info().Int("inserted", inserted).Int("requested", *n).Msg("seeding done")
}

func fakeMaster() domain.MasterHotel {
	name := fmt.Sprintf("%s %s %s",
		gofakeit.LastName(),
		gofakeit.RandomString([]string{"Grand", "Plaza", "Park", "Royal", "Central", "Harbour"}),
		gofakeit.RandomString([]string{"Hotel", "Inn", "Resort", "Suites"}),
	)
	addr := gofakeit.Address()
	phone := gofakeit.Phone()
	country := strings.ToUpper(gofakeit.CountryAbr())
	postal := addr.Zip
	street := addr.Street
	city := addr.City
	chain := gofakeit.RandomString(chains)

	m := domain.MasterHotel{
		Name:           name,
		NameNormalized: matching.Normalize(name),
		AddressLine1:   &street,
		City:           &city,
		CountryCode:    &country,
		PostalCode:     &postal,
		Lat:            ptr(addr.Latitude),
		Lon:            ptr(addr.Longitude),
		Phone:          &phone,
		Status:         domain.HotelActive,
	}
	if chain != "" {
		m.ChainCode = &chain
	}
	return m
}

func ptr[T any](v T) *T { return &v }
