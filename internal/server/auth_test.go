package server

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/gravitas-games/craftgrid/internal/config"
)

const testIssuer = "login.test"

func newKey(t *testing.T) *ecdsa.PrivateKey {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	return key
}

func publicPEM(t *testing.T, key *ecdsa.PrivateKey) []byte {
	t.Helper()
	der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		t.Fatalf("marshal key: %v", err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})
}

func sign(t *testing.T, key *ecdsa.PrivateKey, claims Claims) string {
	t.Helper()
	if claims.Issuer == "" {
		claims.Issuer = testIssuer
	}
	if claims.ExpiresAt == nil {
		claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(time.Hour))
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodES256, claims).SignedString(key)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return token
}

func testValidator(key *ecdsa.PrivateKey) *JWTValidator {
	v := &JWTValidator{issuer: testIssuer, ctx: context.Background()}
	v.setKey(&key.PublicKey)
	return v
}

func TestValidateToken(t *testing.T) {
	key := newKey(t)
	v := testValidator(key)

	player, err := v.ValidateToken(sign(t, key, Claims{
		UserID:      42,
		Username:    "smith",
		Email:       "smith@example.com",
		AuthMethod:  "password",
		Permissions: 3,
		Activated:   1700000000,
	}))
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if player.ID != "42" || player.Username != "smith" || player.Permissions != 3 {
		t.Fatalf("unexpected player %+v", player)
	}
}

func TestValidateTokenRejects(t *testing.T) {
	key := newKey(t)
	v := testValidator(key)

	if _, err := v.ValidateToken(sign(t, key, Claims{UserID: 1})); !errors.Is(err, ErrUserNotActivated) {
		t.Fatalf("expected ErrUserNotActivated, got %v", err)
	}
	if _, err := v.ValidateToken(sign(t, key, Claims{UserID: 1, Activated: -1})); !errors.Is(err, ErrUserBanned) {
		t.Fatalf("expected ErrUserBanned, got %v", err)
	}

	wrongIssuer := Claims{UserID: 1, Activated: 1}
	wrongIssuer.Issuer = "elsewhere"
	if _, err := v.ValidateToken(sign(t, key, wrongIssuer)); err == nil {
		t.Fatalf("expected issuer mismatch error")
	}

	expired := Claims{UserID: 1, Activated: 1}
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Hour))
	if _, err := v.ValidateToken(sign(t, key, expired)); err == nil {
		t.Fatalf("expected expired token error")
	}

	if _, err := v.ValidateToken(sign(t, newKey(t), Claims{UserID: 1, Activated: 1})); err == nil {
		t.Fatalf("expected signature error for foreign key")
	}

	hmac, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{UserID: 1, Activated: 1}).SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("sign hmac: %v", err)
	}
	if _, err := v.ValidateToken(hmac); err == nil {
		t.Fatalf("expected signing method error")
	}
}

func TestNewJWTValidatorFetchesKey(t *testing.T) {
	key := newKey(t)
	body := publicPEM(t, key)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(body)
	}))
	defer srv.Close()

	cfg := &config.Config{}
	cfg.JWT.Issuer = testIssuer
	cfg.JWT.PublicKeyURL = srv.URL
	cfg.ApplyDefaults()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	v, err := NewJWTValidator(ctx, cfg, nil)
	if err != nil {
		t.Fatalf("new validator: %v", err)
	}
	if _, err := v.ValidateToken(sign(t, key, Claims{UserID: 5, Activated: 1})); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestNewJWTValidatorBadEndpoint(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer srv.Close()

	cfg := &config.Config{}
	cfg.JWT.PublicKeyURL = srv.URL
	cfg.ApplyDefaults()
	if _, err := NewJWTValidator(context.Background(), cfg, nil); err == nil {
		t.Fatalf("expected error for failing key endpoint")
	}
}

func TestParseECDSAPublicKey(t *testing.T) {
	key := newKey(t)
	parsed, err := parseECDSAPublicKey(publicPEM(t, key))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !parsed.Equal(&key.PublicKey) {
		t.Fatalf("parsed key differs")
	}
	if _, err := parseECDSAPublicKey([]byte("not pem")); err == nil {
		t.Fatalf("expected PEM error")
	}
}

func TestExtractToken(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/ws?token=query", nil)
	if got := extractTokenFromHeader(r); got != "query" {
		t.Fatalf("expected query token, got %q", got)
	}

	r.Header.Set("Authorization", "Bearer header")
	if got := extractTokenFromHeader(r); got != "header" {
		t.Fatalf("expected bearer token, got %q", got)
	}

	r.Header.Set("Sec-WebSocket-Protocol", "access_token, proto")
	if got := extractTokenFromHeader(r); got != "proto" {
		t.Fatalf("expected protocol token, got %q", got)
	}

	if got := parseProtocols(" a, ,b "); len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("unexpected protocols %v", got)
	}
}
