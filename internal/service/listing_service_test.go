package service

import (
	"context"
	"testing"

	"listing-service/internal/model"
	"listing-service/prometheus"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateListingRoundTrip(t *testing.T) {
	svc, db := newTestService(t, &stubGeocoder{})
	user := createTestUser(t, db, "clerk_abc123")

	form := validForm()
	id, err := svc.CreateListing(context.Background(), user.ID, form)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	listing, err := svc.GetListing(context.Background(), id)
	require.NoError(t, err)

	assert.Equal(t, "Modern Family Home", listing.Title)
	assert.True(t, listing.Price.Equal(decimal.NewFromFloat(450000.50)), "price = %s", listing.Price)
	assert.True(t, listing.BrokerFee.Equal(decimal.NewFromFloat(2.5)), "broker fee = %s", listing.BrokerFee)
	require.NotNil(t, listing.MLSNumber)
	assert.Equal(t, "BH291023", *listing.MLSNumber)
	assert.Equal(t, "123 Main St, Springfield", listing.Address)
	assert.Equal(t, "Springfield", listing.City)
	assert.Equal(t, "IL", listing.State)
	assert.Equal(t, "62701", listing.ZipCode)
	assert.Equal(t, 4, listing.Bedrooms)
	assert.Equal(t, 2.5, listing.Bathrooms)
	assert.Equal(t, 2800, listing.SquareFeet)
	assert.Equal(t, model.PropertyTypeHouse, listing.PropertyType)
	assert.Equal(t, model.ListingStatusActive, listing.Status)
	assert.False(t, listing.ForRent)
	assert.Equal(t, user.ID, listing.UserID)
	assert.Len(t, listing.Images, 2)
}

func TestCreateListingValidation(t *testing.T) {
	cases := []struct {
		name      string
		mutate    func(f *ListingForm)
		wantField string
	}{
		{"short address", func(f *ListingForm) { f.Address = "1 St" }, "address"},
		{"negative price", func(f *ListingForm) { f.Price = -1 }, "price"},
		{"broker fee above 100", func(f *ListingForm) { f.BrokerFee = 150 }, "broker_fee"},
		{"no images", func(f *ListingForm) { f.Images = nil }, "images"},
		{"bad image url", func(f *ListingForm) { f.Images = []ImageInput{{URL: "not-a-url"}} }, "url"},
		{"empty description", func(f *ListingForm) { f.Description = "" }, "description"},
		{"unknown property type", func(f *ListingForm) { f.PropertyType = "CASTLE" }, "property_type"},
		{"negative bedrooms", func(f *ListingForm) { f.Bedrooms = -1 }, "bedrooms"},
	}

	svc, db := newTestService(t, &stubGeocoder{})
	user := createTestUser(t, db, "clerk_abc123")

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			form := validForm()
			tc.mutate(form)

			_, err := svc.CreateListing(context.Background(), user.ID, form)
			var validationErr *ValidationError
			require.ErrorAs(t, err, &validationErr)
			assert.Equal(t, tc.wantField, validationErr.Field)
		})
	}
}

func TestCreateListingGeocodeFailure(t *testing.T) {
	svc, db := newTestService(t, &stubGeocoder{err: errGeocodeDown})
	user := createTestUser(t, db, "clerk_abc123")

	_, err := svc.CreateListing(context.Background(), user.ID, validForm())

	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "address", validationErr.Field)

	// Nothing persisted
	var count int64
	db.Model(&model.Listing{}).Count(&count)
	assert.Zero(t, count)
}

func TestCreateListingRecordsGeocodeMetrics(t *testing.T) {
	svc, db := newTestService(t, &stubGeocoder{err: errGeocodeDown})
	user := createTestUser(t, db, "clerk_abc123")

	requestsBefore := testutil.ToFloat64(prometheus.GeocodeRequestsCounter)
	errorsBefore := testutil.ToFloat64(prometheus.GeocodeErrorsCounter)

	_, err := svc.CreateListing(context.Background(), user.ID, validForm())
	require.Error(t, err)

	assert.Equal(t, requestsBefore+1, testutil.ToFloat64(prometheus.GeocodeRequestsCounter))
	assert.Equal(t, errorsBefore+1, testutil.ToFloat64(prometheus.GeocodeErrorsCounter))
}

func TestCreateListingDuplicateMLSNumber(t *testing.T) {
	svc, db := newTestService(t, &stubGeocoder{})
	user := createTestUser(t, db, "clerk_abc123")

	_, err := svc.CreateListing(context.Background(), user.ID, validForm())
	require.NoError(t, err)

	_, err = svc.CreateListing(context.Background(), user.ID, validForm())
	var persistenceErr *PersistenceError
	require.ErrorAs(t, err, &persistenceErr)
}

func TestUpdateListingNotOwnerLeavesRowUnchanged(t *testing.T) {
	svc, db := newTestService(t, &stubGeocoder{})
	owner := createTestUser(t, db, "clerk_owner")
	other := createTestUser(t, db, "clerk_other")

	id, err := svc.CreateListing(context.Background(), owner.ID, validForm())
	require.NoError(t, err)

	form := validForm()
	form.Title = "Hijacked"
	err = svc.UpdateListing(context.Background(), other.ID, id, form)
	require.ErrorIs(t, err, ErrNotOwner)

	listing, err := svc.GetListing(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "Modern Family Home", listing.Title)
}

func TestUpdateListingNotFound(t *testing.T) {
	svc, db := newTestService(t, &stubGeocoder{})
	user := createTestUser(t, db, "clerk_abc123")

	err := svc.UpdateListing(context.Background(), user.ID, "00000000-0000-0000-0000-000000000000", validForm())
	require.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateListingSkipsGeocodeWhenAddressUnchanged(t *testing.T) {
	geocoder := &stubGeocoder{}
	svc, db := newTestService(t, geocoder)
	user := createTestUser(t, db, "clerk_abc123")

	id, err := svc.CreateListing(context.Background(), user.ID, validForm())
	require.NoError(t, err)
	require.Equal(t, 1, geocoder.calls)

	form := validForm()
	form.Price = 475000
	require.NoError(t, svc.UpdateListing(context.Background(), user.ID, id, form))
	assert.Equal(t, 1, geocoder.calls, "unchanged address must not be re-geocoded")

	form.Address = "456 Park Ave, Springfield"
	require.NoError(t, svc.UpdateListing(context.Background(), user.ID, id, form))
	assert.Equal(t, 2, geocoder.calls, "changed address must be re-geocoded")
}

func TestUpdateListingSyncsImageSet(t *testing.T) {
	svc, db := newTestService(t, &stubGeocoder{})
	user := createTestUser(t, db, "clerk_abc123")

	id, err := svc.CreateListing(context.Background(), user.ID, validForm())
	require.NoError(t, err)

	listing, err := svc.GetListing(context.Background(), id)
	require.NoError(t, err)
	require.Len(t, listing.Images, 2)
	kept := listing.Images[0]
	removed := listing.Images[1]

	form := validForm()
	form.Images = []ImageInput{
		{ID: kept.ID, URL: kept.URL},
		{URL: "https://cdn.example.com/img/garden.jpg"},
	}
	require.NoError(t, svc.UpdateListing(context.Background(), user.ID, id, form))

	listing, err = svc.GetListing(context.Background(), id)
	require.NoError(t, err)
	require.Len(t, listing.Images, 2)

	urls := []string{listing.Images[0].URL, listing.Images[1].URL}
	assert.Contains(t, urls, kept.URL)
	assert.Contains(t, urls, "https://cdn.example.com/img/garden.jpg")

	var gone int64
	db.Model(&model.Image{}).Where("id = ?", removed.ID).Count(&gone)
	assert.Zero(t, gone, "image dropped from the form must be deleted")
}

func TestSyncImagesDiffsStoredState(t *testing.T) {
	db := setupTestDB(t)
	user := createTestUser(t, db, "clerk_abc123")

	listing := seedListing(t, db, user.ID, func(l *model.Listing) {
		l.Images = []model.Image{
			{URL: "https://cdn.example.com/img/front.jpg"},
			{URL: "https://cdn.example.com/img/kitchen.jpg"},
		}
	})

	var stored []model.Image
	require.NoError(t, db.Where("listing_id = ?", listing.ID).Order("url").Find(&stored).Error)
	require.Len(t, stored, 2)
	kept, dropped := stored[0], stored[1]

	inputs := []ImageInput{
		{ID: kept.ID, URL: kept.URL},
		{URL: "https://cdn.example.com/img/garden.jpg"},
	}
	require.NoError(t, syncImages(db, listing.ID, stored, inputs))

	var after []model.Image
	require.NoError(t, db.Where("listing_id = ?", listing.ID).Find(&after).Error)
	require.Len(t, after, 2)

	urls := []string{after[0].URL, after[1].URL}
	assert.Contains(t, urls, kept.URL)
	assert.Contains(t, urls, "https://cdn.example.com/img/garden.jpg")
	assert.NotContains(t, urls, dropped.URL)
}

func TestDeleteListingCascadesImages(t *testing.T) {
	svc, db := newTestService(t, &stubGeocoder{})
	user := createTestUser(t, db, "clerk_abc123")

	id, err := svc.CreateListing(context.Background(), user.ID, validForm())
	require.NoError(t, err)

	require.NoError(t, svc.DeleteListing(context.Background(), user.ID, id))

	_, err = svc.GetListing(context.Background(), id)
	require.ErrorIs(t, err, ErrNotFound)

	var images int64
	db.Model(&model.Image{}).Where("listing_id = ?", id).Count(&images)
	assert.Zero(t, images)
}

func TestDeleteListingNotOwner(t *testing.T) {
	svc, db := newTestService(t, &stubGeocoder{})
	owner := createTestUser(t, db, "clerk_owner")
	other := createTestUser(t, db, "clerk_other")

	id, err := svc.CreateListing(context.Background(), owner.ID, validForm())
	require.NoError(t, err)

	err = svc.DeleteListing(context.Background(), other.ID, id)
	require.ErrorIs(t, err, ErrNotOwner)

	_, err = svc.GetListing(context.Background(), id)
	require.NoError(t, err, "listing must survive a non-owner delete")
}
