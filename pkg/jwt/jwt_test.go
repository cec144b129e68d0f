package jwt

import (
	"errors"
	"testing"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"

	"github.com/MTES-MCT/mobilic-api-sub000/config"
)

func newTestManager() *Manager {
	return NewManager(&config.AuthConfig{
		JWTSecret:      "test-secret-key-for-unit-testing-2026",
		AccessTokenTTL: 15 * time.Minute,
		Issuer:         "mobilic",
	})
}

func TestGenerateAndParseAccessToken(t *testing.T) {
	m := newTestManager()

	token, err := m.GenerateAccessToken("42", "admin")
	if err != nil {
		t.Fatalf("GenerateAccessToken failed: %v", err)
	}

	claims, err := m.ParseToken(token)
	if err != nil {
		t.Fatalf("ParseToken failed: %v", err)
	}

	if claims.UserID != "42" {
		t.Errorf("expected UserID=42, got %s", claims.UserID)
	}
	if claims.Role != "admin" {
		t.Errorf("expected Role=admin, got %s", claims.Role)
	}
	if claims.TokenType != "access" {
		t.Errorf("expected TokenType=access, got %s", claims.TokenType)
	}
	if claims.Issuer != "mobilic" {
		t.Errorf("expected Issuer=mobilic, got %s", claims.Issuer)
	}
	if claims.ID == "" {
		t.Error("JTI must not be empty")
	}
}

func TestParseToken_Expired(t *testing.T) {
	m := NewManager(&config.AuthConfig{
		JWTSecret:      "test-secret-key-for-unit-testing-2026",
		AccessTokenTTL: -time.Minute,
	})

	token, err := m.GenerateAccessToken("42", "admin")
	if err != nil {
		t.Fatalf("GenerateAccessToken failed: %v", err)
	}

	_, err = m.ParseToken(token)
	if !errors.Is(err, ErrTokenExpired) {
		t.Errorf("expected ErrTokenExpired, got %v", err)
	}
}

func TestParseToken_WrongSecret(t *testing.T) {
	m := newTestManager()
	other := NewManager(&config.AuthConfig{
		JWTSecret:      "another-secret-key-for-unit-testing",
		AccessTokenTTL: 15 * time.Minute,
	})

	token, _ := other.GenerateAccessToken("42", "admin")

	_, err := m.ParseToken(token)
	if !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("expected ErrTokenInvalid, got %v", err)
	}
}

func TestParseToken_WrongIssuer(t *testing.T) {
	m := newTestManager()
	other := NewManager(&config.AuthConfig{
		JWTSecret:      "test-secret-key-for-unit-testing-2026",
		AccessTokenTTL: 15 * time.Minute,
		Issuer:         "someone-else",
	})

	token, _ := other.GenerateAccessToken("42", "admin")

	_, err := m.ParseToken(token)
	if !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("expected ErrTokenInvalid, got %v", err)
	}
}

func TestParseToken_NoneAlgorithm(t *testing.T) {
	m := newTestManager()

	claims := Claims{UserID: "42", Role: "admin", TokenType: "access"}
	claims.Issuer = "mobilic"
	token := jwtv5.NewWithClaims(jwtv5.SigningMethodNone, claims)
	signed, err := token.SignedString(jwtv5.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none token: %v", err)
	}

	if _, err := m.ParseToken(signed); !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("expected ErrTokenInvalid, got %v", err)
	}
}

func TestParseToken_Garbage(t *testing.T) {
	m := newTestManager()

	if _, err := m.ParseToken("not-a-token"); !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("expected ErrTokenInvalid, got %v", err)
	}
}
