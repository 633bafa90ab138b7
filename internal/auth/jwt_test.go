package auth

import (
	"testing"
	"time"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	m := NewManager("secret", time.Hour)

	token, err := m.GenerateAccessToken("u1", "u1@example.com", "manager")
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	claims, err := m.VerifyAccessToken(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}

	if claims.UserID != "u1" || claims.Email != "u1@example.com" || claims.Role != "manager" {
		t.Fatalf("claims = %+v", claims)
	}
	if claims.JTI == "" {
		t.Fatal("token has no jti")
	}
}

func TestExpiredToken(t *testing.T) {
	m := NewManager("secret", -time.Minute)

	token, err := m.GenerateAccessToken("u1", "u1@example.com", "employee")
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	if _, err := m.VerifyAccessToken(token); err == nil {
		t.Fatal("expired token verified")
	}
}

func TestWrongSecret(t *testing.T) {
	token, err := NewManager("secret-a", time.Hour).GenerateAccessToken("u1", "e", "employee")
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	if _, err := NewManager("secret-b", time.Hour).VerifyAccessToken(token); err == nil {
		t.Fatal("token verified under the wrong secret")
	}
}
