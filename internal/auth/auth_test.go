package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"quizmaster-service/internal/domain"
)

func TestIssueAndParse(t *testing.T) {
	svc := NewService("secret", time.Hour)
	tok, err := svc.IssueToken(domain.User{ID: "u1", DisplayName: "Alice"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	user, err := svc.Parse(tok)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if user.ID != "u1" || user.DisplayName != "Alice" {
		t.Fatalf("unexpected user %+v", user)
	}

	if _, err := NewService("other", time.Hour).Parse(tok); err == nil {
		t.Fatalf("expected signature failure")
	}
}

func TestParseRejectsUnsignedTokens(t *testing.T) {
	tok, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{Subject: "u1", Issuer: issuer}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := NewService("secret", time.Hour).Parse(tok); err == nil {
		t.Fatalf("expected alg none to be rejected")
	}
}

func TestMiddleware(t *testing.T) {
	svc := NewService("secret", time.Hour)
	handler := svc.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := UserFromContext(r.Context())
		if !ok {
			t.Errorf("user missing from context")
		}
		w.Write([]byte(user.ID))
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for bad token, got %d", rec.Code)
	}

	tok, _ := svc.IssueToken(domain.User{ID: "u7"})
	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || rec.Body.String() != "u7" {
		t.Fatalf("expected u7, got %d %q", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/?access_token="+tok, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected query token accepted, got %d", rec.Code)
	}
}
