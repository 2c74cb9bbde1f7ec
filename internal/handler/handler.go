// Package handler exposes the HTTP surface. Every handler follows the same
// shape: bind, validate, resolve the target school, authorize against the
// fresh account, then call the engine and map its error to a status code.
package handler

import (
	"math"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"school-service/internal/apperr"
	"school-service/internal/authz"
	"school-service/internal/engine"
	"school-service/internal/middleware"
	"school-service/pkg/logger"
	"school-service/prometheus"
)

var eng *engine.Engine

// Init wires the handler package to the domain engine. Must be called before
// any route is served.
func Init(e *engine.Engine) {
	eng = e
}

// writeError maps a domain error to an HTTP response. Internal faults are
// logged in full and returned as an opaque 500; everything else surfaces its
// message.
func writeError(c echo.Context, log *zap.Logger, err error) error {
	switch apperr.KindOf(err) {
	case apperr.KindValidation, apperr.KindNotFound:
		// Missing entities report as a plain client error, matching the
		// rest of the API's failure shape.
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case apperr.KindAuthentication:
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	case apperr.KindAuthorization:
		return c.JSON(http.StatusForbidden, echo.Map{"error": err.Error()})
	case apperr.KindConflict:
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	default:
		log.Error("Internal error", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal server error"})
	}
}

// authorize checks the session account against the policy for one operation.
// On denial it writes the rejection response itself and returns false; the
// handler must stop without writing anything further. Denials go through the
// same error taxonomy as engine failures so the status mapping lives in one
// place.
func authorize(c echo.Context, resource authz.Resource, action authz.Action, targetSchoolID *uint) bool {
	user := middleware.CurrentUser(c)
	if user == nil {
		prometheus.RecordAuthError("missing_session")
		_ = writeError(c, logger.FromEcho(c), apperr.Authentication())
		return false
	}
	decision := authz.Authorize(user.Role, user.SchoolID, resource, action, targetSchoolID)
	if !decision.Allowed {
		prometheus.RecordAuthError("forbidden")
		_ = writeError(c, logger.FromEcho(c), apperr.Authorization(decision.Reason))
		return false
	}
	return true
}

// pathID parses a numeric id path parameter.
func pathID(c echo.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// pagination holds the normalized page window of a list request.
type pagination struct {
	Page   int
	Limit  int
	Offset int
}

// parsePagination reads page/limit query parameters with the usual defaults.
func parsePagination(c echo.Context) pagination {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if limit < 1 {
		limit = 10
	}
	return pagination{Page: page, Limit: limit, Offset: (page - 1) * limit}
}

// listSchoolID resolves the school a list request targets: the school_id
// query parameter, or the session's own school when the parameter is absent.
func listSchoolID(c echo.Context) (uint, bool) {
	if raw := c.QueryParam("school_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil || id == 0 {
			return 0, false
		}
		return uint(id), true
	}
	user := middleware.CurrentUser(c)
	if user != nil && user.SchoolID != nil {
		return *user.SchoolID, true
	}
	return 0, false
}

// pageMeta builds the pagination envelope returned by list endpoints.
func pageMeta(p pagination, total int64) echo.Map {
	pages := 0
	if total > 0 {
		pages = int(math.Ceil(float64(total) / float64(p.Limit)))
	}
	return echo.Map{
		"page":  p.Page,
		"limit": p.Limit,
		"total": total,
		"pages": pages,
	}
}
