package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestHS256RoundTrip(t *testing.T) {
	claims := NewClaims("user-1", RoleCustomer, time.Hour)
	secret := "test-secret"

	token, err := SignHS256(claims, secret)
	if err != nil {
		t.Fatalf("SignHS256 failed: %v", err)
	}
	parsed, err := ParseAndVerifyHS256(token, secret)
	if err != nil {
		t.Fatalf("ParseAndVerifyHS256 failed: %v", err)
	}
	if parsed.Subject != "user-1" || parsed.Role != string(RoleCustomer) {
		t.Fatalf("claims mismatch: got %+v", parsed)
	}
	if _, err := ParseAndVerifyHS256(token, "wrong-secret"); err == nil {
		t.Fatal("expected verification error with wrong secret")
	}
}

func TestRejectsExpiredAndMissingExpiry(t *testing.T) {
	expired := NewClaims("user-1", RoleAdmin, -time.Hour)
	token, _ := SignHS256(expired, "s")
	if _, err := ParseAndVerifyHS256(token, "s"); err == nil {
		t.Fatal("expected expired token to be rejected")
	}

	noExp := Claims{Role: string(RoleAdmin), RegisteredClaims: jwt.RegisteredClaims{Subject: "user-1"}}
	token, _ = SignHS256(noExp, "s")
	if _, err := ParseAndVerifyHS256(token, "s"); err == nil {
		t.Fatal("expected token without exp to be rejected")
	}
}

func TestRejectsUnknownRoleAndAlgorithm(t *testing.T) {
	c := NewClaims("user-1", Role("OWNER"), time.Hour)
	token, _ := SignHS256(c, "s")
	if _, err := ParseAndVerifyHS256(token, "s"); err == nil {
		t.Fatal("expected unknown role to be rejected")
	}

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, NewClaims("user-1", RoleAdmin, time.Hour)).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none: %v", err)
	}
	if _, err := ParseAndVerifyHS256(none, "s"); err == nil {
		t.Fatal("expected alg=none to be rejected")
	}
}
