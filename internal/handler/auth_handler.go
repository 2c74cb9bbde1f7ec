package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"school-service/internal/engine"
	"school-service/internal/model"
	"school-service/pkg/jwtutil"
	"school-service/pkg/logger"
	"school-service/prometheus"
)

// Register creates an admin account: a school_admin when a school id is
// supplied, a superadmin otherwise. Open by design; staff accounts go through
// the authenticated staff endpoints instead.
func Register(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.RegisterCounter.Inc()

	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
		SchoolID *uint  `json:"school_id,omitempty"`
	}
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse register request", zap.Error(err))
		prometheus.RecordAuthError("invalid_request")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if req.Username == "" || req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "username, email and password are required"})
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		log.Error("Failed to hash password", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal server error"})
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	user, err := eng.Register(c.Request().Context(), engine.RegisterInput{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: string(hash),
		SchoolID:     req.SchoolID,
	})
	if err != nil {
		return writeError(c, log, err)
	}

	token, err := jwtutil.GenerateLongToken(user.ID, user.SessionKey)
	if err != nil {
		log.Error("Failed to generate token", zap.Error(err))
		prometheus.RecordAuthError("token_generation_failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "token error"})
	}

	log.Info("User registered",
		zap.String("email", user.Email),
		zap.String("role", string(user.Role)))
	return c.JSON(http.StatusCreated, echo.Map{
		"long_token": token,
		"user":       userResponse(user),
	})
}

// Login verifies credentials and issues the long-lived credential token. The
// long token cannot be used on API routes; it is exchanged for a short one.
func Login(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.LoginCounter.Inc()

	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse login request", zap.Error(err))
		prometheus.RecordAuthError("invalid_request")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	user, err := eng.Store().Users().GetByEmail(c.Request().Context(), req.Email)
	if err != nil {
		log.Error("User not found", zap.String("email", req.Email))
		prometheus.RecordAuthError("user_not_found")
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}
	if !user.Active {
		log.Warn("Login attempt on deactivated account", zap.String("email", req.Email))
		prometheus.RecordAuthError("inactive_account")
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		log.Error("Invalid password", zap.String("email", req.Email))
		prometheus.RecordAuthError("invalid_password")
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}

	token, err := jwtutil.GenerateLongToken(user.ID, user.SessionKey)
	if err != nil {
		log.Error("Failed to generate token", zap.Error(err))
		prometheus.RecordAuthError("token_generation_failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "token error"})
	}

	log.Info("User logged in",
		zap.String("email", user.Email),
		zap.String("role", string(user.Role)))
	return c.JSON(http.StatusOK, echo.Map{
		"long_token": token,
		"user":       userResponse(user),
	})
}

// CreateShortToken exchanges a valid long token for a short-lived session
// token. This is a pure re-signing: no account lookup happens here, because
// the session middleware re-checks the account on every API request anyway.
// A deactivated or key-rotated account can still mint a short token from an
// old long token, but that token fails the very first request it makes.
func CreateShortToken(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.TokenExchangeCounter.Inc()

	authHeader := c.Request().Header.Get("Authorization")
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		prometheus.RecordAuthError("invalid_auth_format")
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	claims, err := jwtutil.ValidateLongToken(parts[1])
	if err != nil {
		log.Error("Invalid long token", zap.Error(err))
		prometheus.RecordAuthError("invalid_token")
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	token, err := jwtutil.GenerateShortToken(claims.UserID, claims.SessionKey)
	if err != nil {
		log.Error("Failed to generate short token", zap.Error(err))
		prometheus.RecordAuthError("token_generation_failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "token error"})
	}

	return c.JSON(http.StatusOK, echo.Map{"short_token": token})
}

// userResponse serializes an account without its secrets.
func userResponse(u *model.User) echo.Map {
	return echo.Map{
		"id":        u.ID,
		"username":  u.Username,
		"email":     u.Email,
		"role":      u.Role,
		"school_id": u.SchoolID,
		"active":    u.Active,
	}
}
