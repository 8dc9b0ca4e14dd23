package auth

import (
	"errors"
	"testing"
	"time"
)

func TestGenerateAndValidateToken(t *testing.T) {
	m := NewJWTManager("test-secret", time.Hour)

	token, err := m.GenerateToken("ops")
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}

	claims, err := m.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken failed: %v", err)
	}
	if claims.Operator != "ops" {
		t.Errorf("Operator = %s, want ops", claims.Operator)
	}
	if claims.Issuer != "smc-analyst" {
		t.Errorf("Issuer = %s", claims.Issuer)
	}
}

func TestValidateTokenWrongSecret(t *testing.T) {
	token, err := NewJWTManager("secret-a", time.Hour).GenerateToken("ops")
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}

	if _, err := NewJWTManager("secret-b", time.Hour).ValidateToken(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Wrong secret error = %v, want ErrInvalidToken", err)
	}
}

func TestValidateExpiredToken(t *testing.T) {
	m := NewJWTManager("test-secret", -time.Hour)
	// Negative duration falls back to the default, so build an already
	// expired manager explicitly
	m.tokenDuration = -time.Minute

	token, err := m.GenerateToken("ops")
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}

	if _, err := m.ValidateToken(token); !errors.Is(err, ErrTokenExpired) {
		t.Errorf("Expired token error = %v, want ErrTokenExpired", err)
	}
}

func TestValidateGarbageToken(t *testing.T) {
	m := NewJWTManager("test-secret", time.Hour)

	if _, err := m.ValidateToken("not.a.token"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Garbage token error = %v, want ErrInvalidToken", err)
	}
}

func TestTokenDurationSeconds(t *testing.T) {
	m := NewJWTManager("test-secret", 2*time.Hour)

	if m.TokenDuration() != 7200 {
		t.Errorf("TokenDuration = %d, want 7200", m.TokenDuration())
	}
}

func TestPasswordHashRoundTrip(t *testing.T) {
	hash, err := HashPassword("operator-secret")
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}

	if !VerifyPassword("operator-secret", hash) {
		t.Error("Correct password must verify")
	}
	if VerifyPassword("wrong", hash) {
		t.Error("Wrong password must not verify")
	}
}
