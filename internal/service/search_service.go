package service

import (
	"context"
	"errors"
	"strings"

	"listing-service/internal/model"
	"listing-service/prometheus"

	"gorm.io/gorm"
)

const (
	searchResultLimit  = 20
	searchRadiusMeters = 50000

	// Resolver paths, reported so the handler can label metrics. "none" means
	// the query was empty and no resolution ran.
	SearchPathMLS      = "mls"
	SearchPathSpatial  = "spatial"
	SearchPathFallback = "fallback"
	SearchPathNone     = "none"
)

// SearchResult is the outcome of the resolver chain. A non-empty RedirectID
// means the query matched an MLS number exactly and the caller should go
// straight to that listing.
type SearchResult struct {
	RedirectID string          `json:"redirect_id,omitempty"`
	Listings   []model.Listing `json:"listings"`
	Path       string          `json:"-"`
}

// Search runs the ordered fallback chain on a free-text query:
// exact MLS match, then geocode + spatial radius, then substring fallback.
func (s *ListingService) Search(ctx context.Context, query string) (*SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return &SearchResult{Listings: []model.Listing{}, Path: SearchPathNone}, nil
	}

	// 1. Exact MLS match short-circuits the chain.
	var match model.Listing
	err := s.db.WithContext(ctx).Where("mls_number = ?", query).First(&match).Error
	if err == nil {
		return &SearchResult{RedirectID: match.ID, Path: SearchPathMLS}, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, mapPersistenceError(err)
	}

	// 2. Geocode the query and search around the resolved point.
	prometheus.GeocodeRequestsCounter.Inc()
	if geo, err := s.geocoder.Geocode(ctx, query); err == nil {
		listings, err := s.searchNear(ctx, geo.City, geo.State, geo.Latitude, geo.Longitude)
		if err != nil {
			return nil, mapPersistenceError(err)
		}
		return &SearchResult{Listings: listings, Path: SearchPathSpatial}, nil
	}
	prometheus.GeocodeErrorsCounter.Inc()

	// 3. Substring fallback across the address fields.
	listings, err := s.searchFallback(ctx, query)
	if err != nil {
		return nil, mapPersistenceError(err)
	}
	return &SearchResult{Listings: listings, Path: SearchPathFallback}, nil
}

// searchNear selects active listings matching the geocoded city or state, or
// lying within the radius of the point, ordered by geodesic distance. The
// radius clause requires the postgres geography column; other dialects match
// on city/state only.
func (s *ListingService) searchNear(ctx context.Context, city, state string, lat, lng float64) ([]model.Listing, error) {
	var listings []model.Listing

	if s.db.Dialector.Name() == "postgres" {
		err := s.db.WithContext(ctx).Raw(`
			SELECT l.*,
			       ST_Distance(l.location, ST_SetSRID(ST_MakePoint(?, ?), 4326)::geography) AS distance
			FROM listings l
			WHERE l.status = ?
			  AND (LOWER(l.city) = LOWER(?)
			       OR l.state = ?
			       OR ST_DWithin(l.location, ST_SetSRID(ST_MakePoint(?, ?), 4326)::geography, ?))
			ORDER BY distance ASC
			LIMIT ?`,
			lng, lat,
			model.ListingStatusActive,
			city, state,
			lng, lat, searchRadiusMeters,
			searchResultLimit,
		).Scan(&listings).Error
		if err != nil {
			return nil, err
		}
		if err := s.attachImages(ctx, listings); err != nil {
			return nil, err
		}
		return listings, nil
	}

	err := s.db.WithContext(ctx).
		Preload("Images").
		Where("status = ?", model.ListingStatusActive).
		Where("LOWER(city) = LOWER(?) OR state = ?", city, state).
		Order("created_at DESC").
		Limit(searchResultLimit).
		Find(&listings).Error
	return listings, err
}

// searchFallback runs a case-insensitive substring match across the address
// fields. Ordered newest first so results are deterministic.
func (s *ListingService) searchFallback(ctx context.Context, query string) ([]model.Listing, error) {
	pattern := "%" + strings.ToLower(query) + "%"

	var listings []model.Listing
	err := s.db.WithContext(ctx).
		Preload("Images").
		Where(
			"LOWER(city) LIKE ? OR LOWER(state) LIKE ? OR LOWER(address) LIKE ? OR LOWER(formatted_address) LIKE ?",
			pattern, pattern, pattern, pattern,
		).
		Order("created_at DESC").
		Limit(searchResultLimit).
		Find(&listings).Error
	return listings, err
}

// attachImages loads image rows for listings produced by a raw query, where
// Preload is not available
func (s *ListingService) attachImages(ctx context.Context, listings []model.Listing) error {
	if len(listings) == 0 {
		return nil
	}

	ids := make([]string, 0, len(listings))
	for _, l := range listings {
		ids = append(ids, l.ID)
	}

	var images []model.Image
	if err := s.db.WithContext(ctx).Where("listing_id IN ?", ids).Find(&images).Error; err != nil {
		return err
	}

	byListing := make(map[string][]model.Image, len(listings))
	for _, img := range images {
		byListing[img.ListingID] = append(byListing[img.ListingID], img)
	}
	for i := range listings {
		listings[i].Images = byListing[listings[i].ID]
	}
	return nil
}
