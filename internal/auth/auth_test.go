package auth

import (
	"errors"
	"testing"
	"time"
)

func TestStaticTokenWins(t *testing.T) {
	s := NewTokenSource("static-token", "secret", "stationstats")
	token, err := s.Token()
	if err != nil || token != "static-token" {
		t.Errorf("Token = %q, %v", token, err)
	}
}

func TestNoCredentials(t *testing.T) {
	s := NewTokenSource("", "", "stationstats")
	if s.Enabled() {
		t.Error("Enabled with no credentials")
	}
	if _, err := s.Token(); !errors.Is(err, ErrNoCredentials) {
		t.Errorf("err = %v, want ErrNoCredentials", err)
	}

	var nilSource *TokenSource
	if nilSource.Enabled() {
		t.Error("nil source reported enabled")
	}
}

func TestMintedTokenValidates(t *testing.T) {
	s := NewTokenSource("", "secret", "stationstats")
	token, err := s.Token()
	if err != nil {
		t.Fatalf("Token: %v", err)
	}

	claims, err := ValidateToken(token, "secret")
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if claims.Issuer != "stationstats" {
		t.Errorf("issuer = %q", claims.Issuer)
	}
	if _, err := ValidateToken(token, "other-secret"); err == nil {
		t.Error("token validated with the wrong secret")
	}
}

func TestMintedTokenIsReusedUntilRenewal(t *testing.T) {
	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	s := NewTokenSource("", "secret", "stationstats")
	s.now = func() time.Time { return now }

	first, _ := s.Token()

	now = now.Add(2 * time.Minute)
	second, _ := s.Token()
	if second != first {
		t.Error("token was re-minted before the renewal window")
	}

	now = now.Add(2*time.Minute + time.Second)
	third, _ := s.Token()
	if third == first {
		t.Error("token was not re-minted inside the renewal window")
	}
}
