package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"listing-service/internal/model"
	"listing-service/pkg/geocode"
	"listing-service/prometheus"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	defaultTxAcquireWait = 5 * time.Second
	defaultTxTimeout     = 10 * time.Second

	// Bounded retry budget for transactions aborted with a serialization
	// failure before surfacing ErrConflict.
	serializationRetries = 3

	msgGeocodeFailed = "Failed to validate address. Please check the address and try again."
)

// Geocoder resolves a free-text address to structured components
type Geocoder interface {
	Geocode(ctx context.Context, address string) (*geocode.Result, error)
}

// ListingService implements create, update, delete and search over listings
type ListingService struct {
	db            *gorm.DB
	geocoder      Geocoder
	txAcquireWait time.Duration
	txTimeout     time.Duration
}

// NewListingService creates a listing service. Zero durations fall back to
// the 5s acquisition wait / 10s timeout budget.
func NewListingService(db *gorm.DB, geocoder Geocoder, txAcquireWait, txTimeout time.Duration) *ListingService {
	if txAcquireWait <= 0 {
		txAcquireWait = defaultTxAcquireWait
	}
	if txTimeout <= 0 {
		txTimeout = defaultTxTimeout
	}
	return &ListingService{
		db:            db,
		geocoder:      geocoder,
		txAcquireWait: txAcquireWait,
		txTimeout:     txTimeout,
	}
}

// CreateListing validates the form, geocodes the address and atomically
// inserts the listing with its images. Returns the new listing id.
func (s *ListingService) CreateListing(ctx context.Context, userID string, form *ListingForm) (string, error) {
	if err := form.Validate(); err != nil {
		return "", err
	}

	prometheus.GeocodeRequestsCounter.Inc()
	geo, err := s.geocoder.Geocode(ctx, form.Address)
	if err != nil {
		prometheus.GeocodeErrorsCounter.Inc()
		return "", &ValidationError{Field: "address", Message: msgGeocodeFailed}
	}

	listing := form.toModel(userID, geo)

	err = s.runSerializable(ctx, func(tx *gorm.DB) error {
		if err := tx.Create(&listing).Error; err != nil {
			return err
		}
		return s.setLocation(tx, listing.ID, geo)
	})
	if err != nil {
		return "", mapPersistenceError(err)
	}

	return listing.ID, nil
}

// UpdateListing applies the form to an existing listing owned by the caller.
// The address is re-geocoded only when its text changed. Image rows no longer
// referenced by the form are deleted and new entries inserted, all inside one
// serializable transaction.
func (s *ListingService) UpdateListing(ctx context.Context, userID, id string, form *ListingForm) error {
	if err := form.Validate(); err != nil {
		return err
	}

	var existing model.Listing
	err := s.db.WithContext(ctx).First(&existing, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return mapPersistenceError(err)
	}
	if existing.UserID != userID {
		return ErrNotOwner
	}

	var geo *geocode.Result
	if form.Address != existing.Address {
		prometheus.GeocodeRequestsCounter.Inc()
		geo, err = s.geocoder.Geocode(ctx, form.Address)
		if err != nil {
			prometheus.GeocodeErrorsCounter.Inc()
			return &ValidationError{Field: "address", Message: msgGeocodeFailed}
		}
	}

	err = s.runSerializable(ctx, func(tx *gorm.DB) error {
		updates := map[string]interface{}{
			"title":         form.Title,
			"price":         decimal.NewFromFloat(form.Price),
			"broker_fee":    decimal.NewFromFloat(form.BrokerFee),
			"mls_number":    form.mlsNumber(),
			"address":       form.Address,
			"for_rent":      form.ForRent,
			"bedrooms":      form.Bedrooms,
			"bathrooms":     form.Bathrooms,
			"square_feet":   form.SquareFeet,
			"property_type": form.PropertyType,
			"description":   form.Description,
		}
		if geo != nil {
			updates["formatted_address"] = geo.FormattedAddress
			updates["city"] = geo.City
			updates["state"] = geo.State
			updates["zip_code"] = geo.ZipCode
			updates["latitude"] = geo.Latitude
			updates["longitude"] = geo.Longitude
		}

		result := tx.Model(&model.Listing{}).
			Where("id = ? AND user_id = ?", id, userID).
			Updates(updates)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}

		if geo != nil {
			if err := s.setLocation(tx, id, geo); err != nil {
				return err
			}
		}

		// Read the stored image set inside the transaction so a retried
		// attempt diffs against current state, not a pre-transaction snapshot.
		var current []model.Image
		if err := tx.Where("listing_id = ?", id).Find(&current).Error; err != nil {
			return err
		}
		return syncImages(tx, id, current, form.Images)
	})
	return mapPersistenceError(err)
}

// DeleteListing removes a listing owned by the caller along with its images
func (s *ListingService) DeleteListing(ctx context.Context, userID, id string) error {
	var listing model.Listing
	err := s.db.WithContext(ctx).First(&listing, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return mapPersistenceError(err)
	}
	if listing.UserID != userID {
		return ErrNotOwner
	}

	err = s.runSerializable(ctx, func(tx *gorm.DB) error {
		if err := tx.Where("listing_id = ?", id).Delete(&model.Image{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Listing{}, "id = ?", id).Error
	})
	return mapPersistenceError(err)
}

// GetListing returns a listing with its images
func (s *ListingService) GetListing(ctx context.Context, id string) (*model.Listing, error) {
	var listing model.Listing
	err := s.db.WithContext(ctx).Preload("Images").First(&listing, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, mapPersistenceError(err)
	}
	return &listing, nil
}

// ListByOwner returns the caller's listings, most recent first
func (s *ListingService) ListByOwner(ctx context.Context, userID string) ([]model.Listing, error) {
	var listings []model.Listing
	err := s.db.WithContext(ctx).
		Preload("Images").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&listings).Error
	if err != nil {
		return nil, mapPersistenceError(err)
	}
	return listings, nil
}

// setLocation maintains the geography column backing the spatial search.
// The column only exists on postgres.
func (s *ListingService) setLocation(tx *gorm.DB, id string, geo *geocode.Result) error {
	if tx.Dialector.Name() != "postgres" {
		return nil
	}
	return tx.Exec(
		`UPDATE listings SET location = ST_SetSRID(ST_MakePoint(?, ?), 4326)::geography WHERE id = ?`,
		geo.Longitude, geo.Latitude, id,
	).Error
}

// syncImages diffs the stored image set against the form: rows the form no
// longer references are deleted, entries without an id are inserted
func syncImages(tx *gorm.DB, listingID string, current []model.Image, inputs []ImageInput) error {
	keep := make(map[string]bool, len(inputs))
	for _, img := range inputs {
		if img.ID != "" {
			keep[img.ID] = true
		}
	}

	var toDelete []string
	for _, img := range current {
		if !keep[img.ID] {
			toDelete = append(toDelete, img.ID)
		}
	}
	if len(toDelete) > 0 {
		if err := tx.Where("id IN ?", toDelete).Delete(&model.Image{}).Error; err != nil {
			return err
		}
	}

	var added []model.Image
	for _, img := range inputs {
		if img.ID == "" {
			added = append(added, model.Image{URL: img.URL, ListingID: listingID})
		}
	}
	if len(added) > 0 {
		if err := tx.Create(&added).Error; err != nil {
			return err
		}
	}

	return nil
}

// runSerializable executes fn inside a SERIALIZABLE transaction bounded by the
// acquisition-wait and timeout budget, retrying a bounded number of times when
// the database aborts it with a serialization failure.
func (s *ListingService) runSerializable(ctx context.Context, fn func(tx *gorm.DB) error) error {
	ctx, cancel := context.WithTimeout(ctx, s.txTimeout)
	defer cancel()

	opts := &sql.TxOptions{}
	if s.db.Dialector.Name() == "postgres" {
		// SQLite transactions are serializable by construction; the driver
		// rejects an explicit isolation request.
		opts.Isolation = sql.LevelSerializable
	}

	var err error
	for attempt := 0; attempt < serializationRetries; attempt++ {
		err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if tx.Dialector.Name() == "postgres" {
				wait := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", s.txAcquireWait.Milliseconds())
				if err := tx.Exec(wait).Error; err != nil {
					return err
				}
			}
			return fn(tx)
		}, opts)
		if err == nil || !isSerializationFailure(err) {
			return err
		}
	}
	return fmt.Errorf("%w: %v", ErrConflict, err)
}
