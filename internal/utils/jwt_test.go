package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	id := Identity{UserID: 42, Role: "admin", Email: "a@example.com", FullName: "Ada Lovelace"}
	at, err := NewAccessToken("secret", id, 1)
	if err != nil {
		t.Fatalf("NewAccessToken: %v", err)
	}
	if at.Token == "" {
		t.Fatal("empty token string")
	}
	got, err := VerifyAccessToken("secret", at.Token)
	if err != nil {
		t.Fatalf("VerifyAccessToken: %v", err)
	}
	if got != id {
		t.Fatalf("identity mismatch: got %+v, want %+v", got, id)
	}
}

func TestVerifyAccessTokenWrongSecret(t *testing.T) {
	at, err := NewAccessToken("secret", Identity{UserID: 1, Role: "user"}, 1)
	if err != nil {
		t.Fatalf("NewAccessToken: %v", err)
	}
	if _, err := VerifyAccessToken("other", at.Token); err != ErrInvalidToken {
		t.Fatalf("wrong secret: got %v, want ErrInvalidToken", err)
	}
}

func TestVerifyAccessTokenGarbage(t *testing.T) {
	if _, err := VerifyAccessToken("secret", "not.a.jwt"); err != ErrInvalidToken {
		t.Fatalf("garbage token: got %v, want ErrInvalidToken", err)
	}
}

func TestVerifyAccessTokenExpired(t *testing.T) {
	claims := jwt.MapClaims{
		"sub": 1,
		"exp": time.Now().UTC().Add(-time.Hour).Unix(),
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := VerifyAccessToken("secret", raw); err != ErrInvalidToken {
		t.Fatalf("expired token: got %v, want ErrInvalidToken", err)
	}
}

func TestVerifyAccessTokenRejectsNone(t *testing.T) {
	raw, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": 1}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := VerifyAccessToken("secret", raw); err != ErrInvalidToken {
		t.Fatalf("alg=none token: got %v, want ErrInvalidToken", err)
	}
}

func TestNewRefreshToken(t *testing.T) {
	rt, err := NewRefreshToken(30)
	if err != nil {
		t.Fatalf("NewRefreshToken: %v", err)
	}
	if len(rt.Raw) != 96 {
		t.Fatalf("raw length: got %d, want 96", len(rt.Raw))
	}
	if !rt.Exp.After(time.Now().Add(29 * 24 * time.Hour)) {
		t.Fatal("expiry too soon")
	}
	other, err := NewRefreshToken(30)
	if err != nil {
		t.Fatalf("NewRefreshToken: %v", err)
	}
	if rt.Raw == other.Raw {
		t.Fatal("two tokens must not collide")
	}
}

func TestHashRefreshRaw(t *testing.T) {
	h := HashRefreshRaw("token-a")
	if len(h) != 64 {
		t.Fatalf("digest length: got %d, want 64", len(h))
	}
	if h != HashRefreshRaw("token-a") {
		t.Fatal("hash must be deterministic")
	}
	if h == HashRefreshRaw("token-b") {
		t.Fatal("distinct inputs must hash differently")
	}
}

func TestPasswordHashAndVerify(t *testing.T) {
	hash, err := HashPassword("s3cret-password", 4)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if !VerifyPassword(hash, "s3cret-password") {
		t.Fatal("correct password rejected")
	}
	if VerifyPassword(hash, "wrong-password") {
		t.Fatal("wrong password accepted")
	}
}
