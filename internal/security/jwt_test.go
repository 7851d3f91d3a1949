package security

import (
	"strings"
	"testing"
	"time"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	mgr := NewJWTManager("devfolio", "round-trip-secret")

	raw, err := mgr.MintAccessToken(42, "sunday", "local", 30*time.Minute)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}

	claims, err := mgr.VerifyAccessToken(raw)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	id, err := claims.UserID()
	if err != nil {
		t.Fatalf("parse subject: %v", err)
	}
	if id != 42 {
		t.Fatalf("expected user id 42, got %d", id)
	}
	if claims.LoginID != "sunday" {
		t.Fatalf("unexpected login id %q", claims.LoginID)
	}
	if claims.AuthProvider != "local" {
		t.Fatalf("unexpected auth provider %q", claims.AuthProvider)
	}
}

func TestAccessTokenExpires(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	mintClock := func() time.Time { return base }
	mgr := NewJWTManager("devfolio", "expiry-secret").WithClock(mintClock)

	raw, err := mgr.MintAccessToken(7, "writer", "local", 10*time.Minute)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}

	if _, err := mgr.WithClock(func() time.Time { return base.Add(9 * time.Minute) }).VerifyAccessToken(raw); err != nil {
		t.Fatalf("token should still be valid before expiry: %v", err)
	}
	if _, err := mgr.WithClock(func() time.Time { return base.Add(11 * time.Minute) }).VerifyAccessToken(raw); err == nil {
		t.Fatal("expected verification failure after expiry")
	}
}

func TestAccessTokenTamperDetection(t *testing.T) {
	mgr := NewJWTManager("devfolio", "tamper-secret")
	raw, err := mgr.MintAccessToken(1, "victim", "local", time.Hour)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}

	// Flip one byte at every position; each mutation must invalidate the token.
	for i := 0; i < len(raw); i++ {
		mutated := []byte(raw)
		mutated[i] ^= 0x01
		if string(mutated) == raw {
			continue
		}
		if _, err := mgr.VerifyAccessToken(string(mutated)); err == nil {
			t.Fatalf("tampered token accepted (byte %d flipped)", i)
		}
	}
}

func TestAccessTokenRejectsWrongKeyAndIssuer(t *testing.T) {
	mgr := NewJWTManager("devfolio", "the-real-secret")
	raw, err := mgr.MintAccessToken(5, "writer", "google", time.Hour)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}

	if _, err := NewJWTManager("devfolio", "another-secret").VerifyAccessToken(raw); err == nil {
		t.Fatal("token signed with a different key must not verify")
	}
	if _, err := NewJWTManager("someone-else", "the-real-secret").VerifyAccessToken(raw); err == nil {
		t.Fatal("token with a different issuer must not verify")
	}
	if _, err := mgr.VerifyAccessToken("not.a.token"); err == nil {
		t.Fatal("malformed token must not verify")
	}
}

func TestClaimsUserIDRejectsNonNumericSubject(t *testing.T) {
	c := &Claims{}
	c.Subject = "admin"
	if _, err := c.UserID(); err == nil || !strings.Contains(err.Error(), "parse token subject") {
		t.Fatalf("expected subject parse error, got %v", err)
	}
}
