package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"school-service/internal/model"
	"school-service/internal/store"
	"school-service/pkg/jwtutil"
	"school-service/pkg/logger"
	"school-service/prometheus"
)

// Context keys set for authenticated requests.
const (
	UserKey   = "auth_user"
	UserIDKey = "user_id"
	RoleKey   = "user_role"
	SchoolKey = "school_id"
)

// SessionMiddleware validates the short-lived session token and re-loads the
// account on every request. Role and school scope always come from the fresh
// record, never from the token, so deactivation and role changes take effect
// immediately. Every rejection path returns the same opaque body: a probing
// client learns nothing about which check failed, whether the account exists,
// was deactivated or rotated its session key. The per-cause detail goes to
// the logs and metrics only.
func SessionMiddleware(st store.Store) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			log := logger.FromEcho(c)

			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				log.Error("Missing Authorization header")
				prometheus.RecordAuthError("missing_token")
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
				log.Error("Invalid Authorization header format")
				prometheus.RecordAuthError("invalid_auth_format")
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
			}

			claims, err := jwtutil.ValidateShortToken(parts[1])
			if err != nil {
				log.Error("Invalid session token", zap.Error(err))
				prometheus.RecordAuthError("invalid_token")
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
			}

			user, err := st.Users().GetByID(c.Request().Context(), claims.UserID)
			if err != nil {
				log.Warn("Session token for unknown account", zap.Uint("user_id", claims.UserID))
				prometheus.RecordAuthError("unknown_account")
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
			}
			if !user.Active {
				log.Warn("Session token for deactivated account", zap.Uint("user_id", user.ID))
				prometheus.RecordAuthError("inactive_account")
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
			}
			if user.SessionKey != claims.SessionKey {
				log.Warn("Session token with stale session key", zap.Uint("user_id", user.ID))
				prometheus.RecordAuthError("stale_session_key")
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
			}

			c.Set(UserKey, user)
			c.Set(UserIDKey, user.ID)
			c.Set(RoleKey, user.Role)
			if user.SchoolID != nil {
				c.Set(SchoolKey, *user.SchoolID)
			}

			return next(c)
		}
	}
}

// CurrentUser returns the authenticated account set by SessionMiddleware.
func CurrentUser(c echo.Context) *model.User {
	user, _ := c.Get(UserKey).(*model.User)
	return user
}
