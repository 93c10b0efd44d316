package auth

import (
	"testing"
	"time"
)

func TestSignParseRoundTrip(t *testing.T) {
	token, err := Sign("secret", "alice", "Alice", time.Hour)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	claims, err := Parse("secret", token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.UserID != "alice" || claims.DisplayName != "Alice" {
		t.Errorf("claims = %+v", claims)
	}
}

func TestParseRejectsWrongSecret(t *testing.T) {
	token, err := Sign("secret", "alice", "Alice", time.Hour)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := Parse("other-secret", token); err == nil {
		t.Errorf("token signed with a different secret should not parse")
	}
}

func TestParseRejectsExpiredToken(t *testing.T) {
	token, err := Sign("secret", "alice", "Alice", -time.Minute)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := Parse("secret", token); err == nil {
		t.Errorf("expired token should not parse")
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	if _, err := Parse("secret", "not-a-token"); err == nil {
		t.Errorf("garbage should not parse")
	}
	if _, err := Parse("secret", ""); err == nil {
		t.Errorf("empty string should not parse")
	}
}
