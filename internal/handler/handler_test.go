package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"school-service/internal/apperr"
	"school-service/internal/authz"
	"school-service/internal/middleware"
	"school-service/internal/model"
)

func newTestContext(t *testing.T, user *model.User) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/students", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if user != nil {
		c.Set(middleware.UserKey, user)
	}
	return c, rec
}

func TestAuthorize_DeniedOtherSchool(t *testing.T) {
	own := uint(1)
	other := uint(2)
	user := &model.User{ID: 7, Role: model.RoleSchoolAdmin, SchoolID: &own, Active: true}
	c, rec := newTestContext(t, user)

	if authorize(c, authz.ResourceStudent, authz.ActionCreate, &other) {
		t.Fatal("authorize() = true for another school, want denial")
	}
	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", rec.Code)
	}
}

func TestAuthorize_NoSession(t *testing.T) {
	c, rec := newTestContext(t, nil)

	if authorize(c, authz.ResourceStudent, authz.ActionRead, nil) {
		t.Fatal("authorize() = true without a session, want denial")
	}
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
	if body := strings.TrimSpace(rec.Body.String()); body != `{"error":"unauthorized"}` {
		t.Errorf("body = %s, want opaque unauthorized", body)
	}
}

func TestWriteError_KindMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantBody   string
	}{
		{"validation", apperr.Validation("name is required"), http.StatusBadRequest, `{"error":"name is required"}`},
		{"not found", apperr.NotFound("School not found"), http.StatusBadRequest, `{"error":"School not found"}`},
		{"authentication", apperr.Authentication(), http.StatusUnauthorized, `{"error":"unauthorized"}`},
		{"authorization", apperr.Authorization("operation not permitted for this school"), http.StatusForbidden, `{"error":"operation not permitted for this school"}`},
		{"conflict", apperr.Conflict("Classroom is at full capacity"), http.StatusConflict, `{"error":"Classroom is at full capacity"}`},
		{"allocation", apperr.Allocation("failed to allocate a unique card id"), http.StatusInternalServerError, `{"error":"internal server error"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, rec := newTestContext(t, nil)
			if err := writeError(c, zap.NewNop(), tt.err); err != nil {
				t.Fatalf("writeError() error = %v", err)
			}
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if body := strings.TrimSpace(rec.Body.String()); body != tt.wantBody {
				t.Errorf("body = %s, want %s", body, tt.wantBody)
			}
		})
	}
}
