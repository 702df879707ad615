package handler

import (
	"errors"
	"net/http"
	"time"

	"listing-service/internal/middleware"
	"listing-service/internal/model"
	"listing-service/internal/service"
	"listing-service/pkg/logger"
	"listing-service/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ListingHandler serves the listing CRUD and search endpoints
type ListingHandler struct {
	db       *gorm.DB
	listings *service.ListingService
}

// NewListingHandler creates a listing handler
func NewListingHandler(db *gorm.DB, listings *service.ListingService) *ListingHandler {
	return &ListingHandler{db: db, listings: listings}
}

// currentUser provisions (or fetches) the user row for the authenticated caller
func (h *ListingHandler) currentUser(c echo.Context) (*model.User, error) {
	identityKey, ok := middleware.GetIdentityFromContext(c)
	if !ok {
		return nil, errors.New("request is not authenticated")
	}
	return service.GetOrCreateUser(c.Request().Context(), h.db, identityKey)
}

// GetListing handles retrieving a single listing with its images
func (h *ListingHandler) GetListing(c echo.Context) error {
	log := logger.FromContext(c)
	id := c.Param("id")

	defer prometheus.TrackDBOperation("query")(time.Now())
	listing, err := h.listings.GetListing(c.Request().Context(), id)
	if err != nil {
		log.Warn("Listing not found", zap.String("listing_id", id), zap.Error(err))
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, listing)
}

// MyListings handles retrieving the authenticated caller's listings
func (h *ListingHandler) MyListings(c echo.Context) error {
	log := logger.FromContext(c)

	user, err := h.currentUser(c)
	if err != nil {
		log.Error("Failed to provision user", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to resolve user"})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	listings, err := h.listings.ListByOwner(c.Request().Context(), user.ID)
	if err != nil {
		log.Error("Failed to list listings", zap.String("user_id", user.ID), zap.Error(err))
		return respondError(c, err)
	}

	log.Info("Listings retrieved", zap.String("user_id", user.ID), zap.Int("count", len(listings)))
	return c.JSON(http.StatusOK, listings)
}

// CreateListing handles creating a new listing with its images
func (h *ListingHandler) CreateListing(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordListingOperation("create")

	var form service.ListingForm
	if err := c.Bind(&form); err != nil {
		log.Error("Invalid request data", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request data"})
	}

	user, err := h.currentUser(c)
	if err != nil {
		log.Error("Failed to provision user", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to resolve user"})
	}

	log.Info("Listing creation request",
		zap.String("user_id", user.ID),
		zap.String("address", form.Address),
		zap.String("property_type", form.PropertyType))

	defer prometheus.TrackDBOperation("insert")(time.Now())
	listingID, err := h.listings.CreateListing(c.Request().Context(), user.ID, &form)
	if err != nil {
		log.Error("Failed to create listing",
			zap.String("user_id", user.ID),
			zap.Error(err))
		return respondError(c, err)
	}

	log.Info("Listing created",
		zap.String("listing_id", listingID),
		zap.String("user_id", user.ID))
	return c.JSON(http.StatusCreated, echo.Map{"listing_id": listingID})
}

// UpdateListing handles updating a listing owned by the caller
func (h *ListingHandler) UpdateListing(c echo.Context) error {
	log := logger.FromContext(c)
	id := c.Param("id")
	prometheus.RecordListingOperation("update")

	var form service.ListingForm
	if err := c.Bind(&form); err != nil {
		log.Error("Invalid request data", zap.String("listing_id", id), zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request data"})
	}

	user, err := h.currentUser(c)
	if err != nil {
		log.Error("Failed to provision user", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to resolve user"})
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	if err := h.listings.UpdateListing(c.Request().Context(), user.ID, id, &form); err != nil {
		log.Error("Failed to update listing",
			zap.String("listing_id", id),
			zap.String("user_id", user.ID),
			zap.Error(err))
		return respondError(c, err)
	}

	log.Info("Listing updated",
		zap.String("listing_id", id),
		zap.String("user_id", user.ID))
	return c.JSON(http.StatusOK, echo.Map{"listing_id": id})
}

// DeleteListing handles deleting a listing owned by the caller
func (h *ListingHandler) DeleteListing(c echo.Context) error {
	log := logger.FromContext(c)
	id := c.Param("id")
	prometheus.RecordListingOperation("delete")

	user, err := h.currentUser(c)
	if err != nil {
		log.Error("Failed to provision user", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to resolve user"})
	}

	defer prometheus.TrackDBOperation("delete")(time.Now())
	if err := h.listings.DeleteListing(c.Request().Context(), user.ID, id); err != nil {
		log.Error("Failed to delete listing",
			zap.String("listing_id", id),
			zap.String("user_id", user.ID),
			zap.Error(err))
		return respondError(c, err)
	}

	log.Info("Listing deleted",
		zap.String("listing_id", id),
		zap.String("user_id", user.ID))
	return c.JSON(http.StatusOK, echo.Map{"message": "Listing deleted successfully"})
}

// respondError maps service errors onto HTTP responses: field-scoped
// validation errors carry the field name, everything else collapses to the
// user-facing message for its class
func respondError(c echo.Context, err error) error {
	var validationErr *service.ValidationError
	if errors.As(err, &validationErr) {
		body := echo.Map{"error": validationErr.Message}
		if validationErr.Field != "" {
			body["field"] = validationErr.Field
		}
		return c.JSON(http.StatusBadRequest, body)
	}

	switch {
	case errors.Is(err, service.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "Listing not found"})
	case errors.Is(err, service.ErrNotOwner):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "Unauthorized to modify this listing"})
	case errors.Is(err, service.ErrConflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": "The listing was modified concurrently. Please try again."})
	}

	var persistenceErr *service.PersistenceError
	if errors.As(err, &persistenceErr) {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": persistenceErr.Message})
	}

	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Something went wrong. Please try again later."})
}
