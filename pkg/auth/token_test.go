package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/Dickson-Hardy/cmda-backend-sub000/pkg/config"
	"github.com/Dickson-Hardy/cmda-backend-sub000/pkg/enums"
)

var testJWT = config.JWTConfig{Secret: "secret", Issuer: "cmda-membership"}

func TestMintAndParseAccessToken(t *testing.T) {
	now := time.Now().UTC()
	userID := uuid.New()

	token, err := MintAccessToken(testJWT, now, 30*time.Minute, AccessTokenPayload{
		UserID: userID,
		Email:  " Member@CMDA.test",
		Role:   enums.MemberRoleMember,
	})
	if err != nil {
		t.Fatalf("mint access token: %v", err)
	}

	claims, err := ParseAccessToken(testJWT, token)
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}
	if claims.UserID != userID {
		t.Fatalf("expected user_id %s, got %s", userID, claims.UserID)
	}
	if claims.Email != "member@cmda.test" {
		t.Fatalf("unexpected email %q", claims.Email)
	}
	if claims.Role != enums.MemberRoleMember {
		t.Fatalf("unexpected role %s", claims.Role)
	}
	if claims.Issuer != testJWT.Issuer {
		t.Fatalf("unexpected issuer %s", claims.Issuer)
	}
	if claims.ID == "" {
		t.Fatal("expected jti to be set")
	}
}

func TestParseAccessTokenInvalidSignature(t *testing.T) {
	token, err := MintAccessToken(testJWT, time.Now(), time.Minute, AccessTokenPayload{UserID: uuid.New(), Role: enums.MemberRoleAdmin})
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	other := testJWT
	other.Secret = "different"
	if _, err := ParseAccessToken(other, token); err == nil {
		t.Fatal("expected signature error")
	}
}

func TestParseAccessTokenExpired(t *testing.T) {
	token, err := MintAccessToken(testJWT, time.Now().Add(-2*time.Hour), time.Minute, AccessTokenPayload{UserID: uuid.New(), Role: enums.MemberRoleMember})
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	_, err = ParseAccessToken(testJWT, token)
	if err == nil || !strings.Contains(err.Error(), "expired") {
		t.Fatalf("expected expired error, got %v", err)
	}
}

func TestParseAccessTokenRejectsMissingExpiry(t *testing.T) {
	claims := AccessTokenClaims{
		UserID:           uuid.New(),
		Role:             enums.MemberRoleMember,
		RegisteredClaims: jwt.RegisteredClaims{Issuer: testJWT.Issuer},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testJWT.Secret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := ParseAccessToken(testJWT, token); err == nil {
		t.Fatal("expected error for token without exp")
	}
}

func TestMintAccessTokenInvalidRole(t *testing.T) {
	_, err := MintAccessToken(testJWT, time.Now(), time.Minute, AccessTokenPayload{UserID: uuid.New(), Role: "owner"})
	if err == nil {
		t.Fatal("expected invalid role error")
	}
}
