package service

import (
	"context"
	"errors"
	"os"
	"testing"

	"listing-service/internal/model"
	"listing-service/pkg/config"
	"listing-service/pkg/database"
	"listing-service/pkg/geocode"
	"listing-service/prometheus"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func TestMain(m *testing.M) {
	cfg, _ := config.Load()
	prometheus.InitMetrics(cfg)
	os.Exit(m.Run())
}

// setupTestDB creates an in-memory SQLite database for testing
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return db
}

// stubGeocoder is a Geocoder double recording calls
type stubGeocoder struct {
	result *geocode.Result
	err    error
	calls  int
}

func (s *stubGeocoder) Geocode(ctx context.Context, address string) (*geocode.Result, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	if s.result != nil {
		return s.result, nil
	}
	return &geocode.Result{
		Latitude:         39.7817,
		Longitude:        -89.6501,
		FormattedAddress: address + ", Springfield, IL 62701, USA",
		City:             "Springfield",
		State:            "IL",
		ZipCode:          "62701",
		Country:          "United States",
	}, nil
}

var errGeocodeDown = errors.New("provider unavailable")

func newTestService(t *testing.T, geocoder Geocoder) (*ListingService, *gorm.DB) {
	t.Helper()
	db := setupTestDB(t)
	return NewListingService(db, geocoder, 0, 0), db
}

func createTestUser(t *testing.T, db *gorm.DB, identityKey string) *model.User {
	t.Helper()
	user, err := GetOrCreateUser(context.Background(), db, identityKey)
	require.NoError(t, err)
	return user
}

func validForm() *ListingForm {
	return &ListingForm{
		Title:        "Modern Family Home",
		ForRent:      false,
		Price:        450000.50,
		BrokerFee:    2.5,
		MLSNumber:    "BH291023",
		Address:      "123 Main St, Springfield",
		Bedrooms:     4,
		Bathrooms:    2.5,
		SquareFeet:   2800,
		PropertyType: "HOUSE",
		Description:  "A lovely home near downtown",
		Images: []ImageInput{
			{URL: "https://cdn.example.com/img/front.jpg"},
			{URL: "https://cdn.example.com/img/kitchen.jpg"},
		},
	}
}
