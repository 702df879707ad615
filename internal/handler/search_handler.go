package handler

import (
	"net/http"

	"listing-service/pkg/logger"
	"listing-service/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// Search handles the free-text search over listings. An exact MLS-number
// match answers with a redirect target instead of a result list.
func (h *ListingHandler) Search(c echo.Context) error {
	log := logger.FromContext(c)
	query := c.QueryParam("q")

	result, err := h.listings.Search(c.Request().Context(), query)
	if err != nil {
		log.Error("Search failed", zap.String("query", query), zap.Error(err))
		return respondError(c, err)
	}

	prometheus.RecordSearchPath(result.Path)
	log.Info("Search completed",
		zap.String("query", query),
		zap.String("path", result.Path),
		zap.Int("count", len(result.Listings)))

	if result.RedirectID != "" {
		return c.JSON(http.StatusOK, echo.Map{"redirect": "/listing/" + result.RedirectID})
	}

	return c.JSON(http.StatusOK, echo.Map{"listings": result.Listings})
}
