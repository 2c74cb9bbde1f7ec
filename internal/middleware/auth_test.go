package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"school-service/internal/model"
	"school-service/internal/store"
	"school-service/pkg/jwtutil"
)

func seedUser(t *testing.T, st store.Store, active bool) *model.User {
	t.Helper()
	user := &model.User{
		Username:   "admin",
		Email:      "admin@example.com",
		Password:   "hash",
		Role:       model.RoleSuperadmin,
		SessionKey: "session-key-1",
		Active:     active,
	}
	if err := st.Users().Create(context.Background(), user); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user
}

func runRequest(t *testing.T, st store.Store, authHeader string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/schools", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	h := SessionMiddleware(st)(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	if err := h(c); err != nil {
		t.Fatalf("middleware returned error: %v", err)
	}
	return rec
}

func TestSessionMiddleware_ValidToken(t *testing.T) {
	jwtutil.Initialize("test-key", 1, 1)
	st := store.NewMemory()
	user := seedUser(t, st, true)

	token, err := jwtutil.GenerateShortToken(user.ID, user.SessionKey)
	if err != nil {
		t.Fatalf("GenerateShortToken() error = %v", err)
	}

	rec := runRequest(t, st, "Bearer "+token)
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 (%s)", rec.Code, rec.Body.String())
	}
}

// wantOpaque401 asserts a rejection that reveals nothing about which check
// failed: a 401 whose body is exactly the uniform unauthorized message.
func wantOpaque401(t *testing.T, rec *httptest.ResponseRecorder) {
	t.Helper()
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
	if body := strings.TrimSpace(rec.Body.String()); body != `{"error":"unauthorized"}` {
		t.Errorf("body = %s, want opaque unauthorized", body)
	}
}

func TestSessionMiddleware_MissingHeader(t *testing.T) {
	jwtutil.Initialize("test-key", 1, 1)
	st := store.NewMemory()

	wantOpaque401(t, runRequest(t, st, ""))
}

func TestSessionMiddleware_MalformedHeader(t *testing.T) {
	jwtutil.Initialize("test-key", 1, 1)
	st := store.NewMemory()

	// Wrong scheme, bare scheme, garbage token: all must be indistinguishable
	// from any other rejection.
	for _, header := range []string{"Token abc", "Bearer", "Bearer not-a-jwt"} {
		wantOpaque401(t, runRequest(t, st, header))
	}
}

func TestSessionMiddleware_LongTokenRejected(t *testing.T) {
	jwtutil.Initialize("test-key", 1, 1)
	st := store.NewMemory()
	user := seedUser(t, st, true)

	token, err := jwtutil.GenerateLongToken(user.ID, user.SessionKey)
	if err != nil {
		t.Fatalf("GenerateLongToken() error = %v", err)
	}

	rec := runRequest(t, st, "Bearer "+token)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401 for long token on API route", rec.Code)
	}
}

func TestSessionMiddleware_DeactivatedAccount(t *testing.T) {
	jwtutil.Initialize("test-key", 1, 1)
	st := store.NewMemory()
	user := seedUser(t, st, true)

	token, err := jwtutil.GenerateShortToken(user.ID, user.SessionKey)
	if err != nil {
		t.Fatalf("GenerateShortToken() error = %v", err)
	}

	// Deactivate after the token was minted; the next request must fail.
	user.Active = false
	if err := st.Users().Update(context.Background(), user); err != nil {
		t.Fatalf("deactivate user: %v", err)
	}

	wantOpaque401(t, runRequest(t, st, "Bearer "+token))
}

func TestSessionMiddleware_RotatedSessionKey(t *testing.T) {
	jwtutil.Initialize("test-key", 1, 1)
	st := store.NewMemory()
	user := seedUser(t, st, true)

	token, err := jwtutil.GenerateShortToken(user.ID, user.SessionKey)
	if err != nil {
		t.Fatalf("GenerateShortToken() error = %v", err)
	}

	user.SessionKey = "session-key-2"
	if err := st.Users().Update(context.Background(), user); err != nil {
		t.Fatalf("rotate session key: %v", err)
	}

	wantOpaque401(t, runRequest(t, st, "Bearer "+token))
}
