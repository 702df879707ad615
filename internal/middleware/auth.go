package middleware

import (
	"net/http"
	"strings"

	"listing-service/pkg/jwtutil"
	"listing-service/pkg/logger"
	"listing-service/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// SignInURL is where unauthenticated callers are pointed instead of erroring.
// Set once at startup from config.
var SignInURL = "/sign-in"

// AuthMiddleware validates the bearer JWT and extracts the caller's identity
// key issued by the external auth provider
func AuthMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		log := logger.FromContext(c)
		prometheus.AuthAttemptsCounter.Inc()

		// Get the Authorization header
		authHeader := c.Request().Header.Get("Authorization")
		if authHeader == "" {
			log.Warn("Missing Authorization header")
			return signInResponse(c, "missing authorization token")
		}

		// Check if it's a Bearer token
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			log.Warn("Invalid Authorization header format")
			return signInResponse(c, "invalid authorization format, expected Bearer token")
		}

		// Validate the token
		claims, err := jwtutil.ValidateToken(parts[1])
		if err != nil {
			log.Error("Invalid JWT token", zap.Error(err))
			prometheus.AuthErrorsCounter.Inc()
			return signInResponse(c, "invalid or expired token")
		}

		if claims.Subject == "" {
			log.Warn("JWT token does not carry an identity key")
			prometheus.AuthErrorsCounter.Inc()
			return signInResponse(c, "token does not identify a user")
		}

		// Store the identity for handlers; the user row itself is provisioned
		// lazily by the handler that needs it.
		c.Set("identity_key", claims.Subject)

		return next(c)
	}
}

// signInResponse answers an unauthenticated request with a pointer at the
// sign-in flow rather than a bare error
func signInResponse(c echo.Context, message string) error {
	return c.JSON(http.StatusUnauthorized, echo.Map{
		"error":       message,
		"sign_in_url": SignInURL,
	})
}

// GetIdentityFromContext retrieves the caller's identity key from the context.
// Returns "", false if the request was not authenticated.
func GetIdentityFromContext(c echo.Context) (string, bool) {
	identityKey, ok := c.Get("identity_key").(string)
	return identityKey, ok && identityKey != ""
}
