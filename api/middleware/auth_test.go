package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/Dickson-Hardy/cmda-backend-sub000/pkg/auth"
	"github.com/Dickson-Hardy/cmda-backend-sub000/pkg/config"
	"github.com/Dickson-Hardy/cmda-backend-sub000/pkg/enums"
)

var testJWT = config.JWTConfig{Secret: "secret", Issuer: "cmda-membership"}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthRejectsMissingToken(t *testing.T) {
	resp := httptest.NewRecorder()
	Auth(testJWT, nil)(okHandler()).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/", nil))
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAuthRejectsInvalidToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer invalid")
	resp := httptest.NewRecorder()
	Auth(testJWT, nil)(okHandler()).ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAuthSeedsIdentity(t *testing.T) {
	userID := uuid.New()
	token, err := auth.MintAccessToken(testJWT, time.Now(), time.Hour, auth.AccessTokenPayload{
		UserID: userID,
		Email:  "Member@CMDA.test",
		Role:   enums.MemberRoleAdmin,
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}

	var captured Identity
	handler := Auth(testJWT, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured, _ = IdentityFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "bearer "+token)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if captured.UserID != userID {
		t.Fatalf("expected user %s got %s", userID, captured.UserID)
	}
	if captured.Email != "member@cmda.test" {
		t.Fatalf("unexpected email %q", captured.Email)
	}
	if !captured.IsAdmin() {
		t.Fatal("expected admin identity")
	}
}

func TestInternalToken(t *testing.T) {
	handler := InternalToken("svc-token", nil)(okHandler())

	cases := map[string]int{
		"":          http.StatusUnauthorized,
		"wrong":     http.StatusUnauthorized,
		"svc-token": http.StatusOK,
	}
	for header, want := range cases {
		req := httptest.NewRequest(http.MethodPost, "/payment-intents", nil)
		if header != "" {
			req.Header.Set(internalTokenHeader, header)
		}
		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, req)
		if resp.Code != want {
			t.Fatalf("header %q: expected %d got %d", header, want, resp.Code)
		}
	}
}

func TestInternalTokenRejectsWhenUnconfigured(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/payment-intents", nil)
	req.Header.Set(internalTokenHeader, "")
	resp := httptest.NewRecorder()
	InternalToken("", nil)(okHandler()).ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}
