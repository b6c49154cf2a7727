package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

var testKey = []byte("test-signing-key")

func signToken(t *testing.T, subject string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	signed, err := token.SignedString(testKey)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func newAuthServer(captured *uuid.UUID) *echo.Echo {
	e := echo.New()
	e.Use(JWTMiddleware(JWTConfig{SigningKey: testKey}))
	e.GET("/", func(c echo.Context) error {
		*captured = UserIDFromContext(c.Request().Context())
		return c.NoContent(http.StatusOK)
	})
	return e
}

func TestJWTMiddleware_ValidToken(t *testing.T) {
	owner := uuid.New()
	var captured uuid.UUID
	e := newAuthServer(&captured)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, owner.String()))
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if captured != owner {
		t.Errorf("user id = %s, want %s", captured, owner)
	}
}

func TestJWTMiddleware_MissingHeader(t *testing.T) {
	var captured uuid.UUID
	e := newAuthServer(&captured)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestJWTMiddleware_BadSubject(t *testing.T) {
	var captured uuid.UUID
	e := newAuthServer(&captured)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, "not-a-uuid"))
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestJWTMiddleware_GarbageToken(t *testing.T) {
	var captured uuid.UUID
	e := newAuthServer(&captured)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer nonsense")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestUserIDFromContext_Empty(t *testing.T) {
	if uid := UserIDFromContext(context.Background()); uid != uuid.Nil {
		t.Errorf("expected uuid.Nil, got %s", uid)
	}
}

func TestDevAuthMiddleware(t *testing.T) {
	e := echo.New()
	e.Use(DevAuthMiddleware())
	var captured uuid.UUID
	e.GET("/", func(c echo.Context) error {
		captured = UserIDFromContext(c.Request().Context())
		return c.NoContent(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if captured == uuid.Nil {
		t.Error("expected dev user id to be set")
	}
}
