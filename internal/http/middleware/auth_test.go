package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"todo_webapp/internal/domain"

	"github.com/gin-gonic/gin"
)

type tokenAuth map[string]int64

func (a tokenAuth) Authenticate(_ context.Context, token string) (domain.Session, error) {
	if id, ok := a[token]; ok {
		return domain.NewSession(id), nil
	}
	return domain.Anonymous(), errors.New("invalid token")
}

func serve(h gin.HandlerFunc, header string) (int, string) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/", h, func(c *gin.Context) {
		id, ok := c.Get("user_id")
		if !ok {
			c.String(http.StatusOK, "anonymous")
			return
		}
		c.String(http.StatusOK, "user:%d", id.(int64))
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w.Code, w.Body.String()
}

func TestJWTRequiresToken(t *testing.T) {
	auth := tokenAuth{"good": 7}

	if code, _ := serve(JWT(auth), ""); code != http.StatusUnauthorized {
		t.Fatalf("missing token: expected 401, got %d", code)
	}
	if code, _ := serve(JWT(auth), "Bearer bad"); code != http.StatusUnauthorized {
		t.Fatalf("bad token: expected 401, got %d", code)
	}
	code, body := serve(JWT(auth), "Bearer good")
	if code != http.StatusOK || body != "user:7" {
		t.Fatalf("good token: got %d %q", code, body)
	}
}

func TestOptionalJWTLetsAnonymousThrough(t *testing.T) {
	auth := tokenAuth{"good": 7}

	if _, body := serve(OptionalJWT(auth), ""); body != "anonymous" {
		t.Fatalf("expected anonymous, got %q", body)
	}
	if _, body := serve(OptionalJWT(auth), "Bearer bad"); body != "anonymous" {
		t.Fatalf("expected anonymous, got %q", body)
	}
	if _, body := serve(OptionalJWT(auth), "bearer good"); body != "user:7" {
		t.Fatalf("expected user:7, got %q", body)
	}
}
