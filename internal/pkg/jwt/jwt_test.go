package jwt

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeKeyPair(t *testing.T) (string, string) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	dir := t.TempDir()

	privPath := filepath.Join(dir, "jwt_private.pem")
	privPEM := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})
	if err := os.WriteFile(privPath, privPEM, 0o600); err != nil {
		t.Fatalf("write private key: %v", err)
	}

	pubDER, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		t.Fatalf("marshal public key: %v", err)
	}
	pubPath := filepath.Join(dir, "jwt_public.pem")
	pubPEM := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER})
	if err := os.WriteFile(pubPath, pubPEM, 0o600); err != nil {
		t.Fatalf("write public key: %v", err)
	}
	return privPath, pubPath
}

func TestAccessTokenRoundTrip(t *testing.T) {
	privPath, pubPath := writeKeyPair(t)
	m, err := LoadAndBuild(Config{
		PrivPath: privPath,
		PubPath:  pubPath,
		Issuer:   "fleetcare",
		Audience: "fleetcare-users",
		TTL:      time.Hour,
		KID:      "test",
	})
	if err != nil {
		t.Fatalf("LoadAndBuild: %v", err)
	}

	issued, err := m.Generator.GenerateAccessToken("user-1", "a@example.com", "web")
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}
	if issued.JTI == "" {
		t.Fatal("expected a jti")
	}
	if got := issued.ExpiresAt.Sub(issued.IssuedAt); got != time.Hour {
		t.Fatalf("token lifetime = %v, want 1h", got)
	}

	claims, err := m.Verifier.VerifyAccessToken(issued.Token)
	if err != nil {
		t.Fatalf("VerifyAccessToken: %v", err)
	}
	if claims.UserID != "user-1" || claims.Email != "a@example.com" || claims.ID != issued.JTI {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestVerifyRejectsForeignAudienceAndPurpose(t *testing.T) {
	privPath, pubPath := writeKeyPair(t)
	priv, err := LoadRSAPrivateKeyFromPEM(privPath)
	if err != nil {
		t.Fatalf("load private key: %v", err)
	}
	pub, err := LoadRSAPublicKeyFromPEM(pubPath)
	if err != nil {
		t.Fatalf("load public key: %v", err)
	}

	other := NewGenerator(priv, "fleetcare", "someone-else", "", time.Hour)
	issued, err := other.GenerateAccessToken("user-1", "a@example.com", "")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	v := NewVerifier(pub, "fleetcare", "fleetcare-users")
	if _, err := v.VerifyAccessToken(issued.Token); err == nil {
		t.Fatal("expected audience mismatch error")
	}

	g := NewGenerator(priv, "fleetcare", "fleetcare-users", "", time.Hour)
	reset, err := g.Generate("user-1", "a@example.com", "", "password_reset")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := v.VerifyAccessToken(reset.Token); err == nil {
		t.Fatal("expected purpose mismatch error")
	}
	if _, err := v.VerifyAccessToken(reset.Token + "x"); err == nil {
		t.Fatal("expected signature error")
	}
}
