package handler

import (
	"net/http"

	"listing-service/pkg/database"

	"github.com/labstack/echo/v4"
)

// Health reports liveness and database connectivity
func Health(c echo.Context) error {
	if err := database.Ping(); err != nil {
		return c.JSON(http.StatusServiceUnavailable, echo.Map{
			"status":   "degraded",
			"database": "unreachable",
		})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"status":   "ok",
		"database": "ok",
	})
}
