package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/funnel-crm-api/internal/models"
	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-secret-0123456789"

func TestTokenIssuer_SessionRoundTrip(t *testing.T) {
	ti := NewTokenIssuer(testSecret, "crm-test", time.Hour, 24*time.Hour)

	token, issued, err := ti.IssueSession("user-1", models.RoleManager)
	if err != nil {
		t.Fatalf("IssueSession failed: %v", err)
	}

	claims, err := ti.Parse(token)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if claims.UserID() != "user-1" {
		t.Errorf("Expected subject user-1, got %s", claims.UserID())
	}
	if claims.UserRole != models.RoleManager {
		t.Errorf("Expected role gestor, got %s", claims.UserRole)
	}
	if claims.Role != "authenticated" {
		t.Errorf("Expected role claim 'authenticated', got %s", claims.Role)
	}
	if claims.Kind != KindSession {
		t.Errorf("Expected session kind, got %s", claims.Kind)
	}
	if claims.ID != issued.ID || claims.ID == "" {
		t.Errorf("Expected jti %s, got %s", issued.ID, claims.ID)
	}
}

func TestTokenIssuer_APIKeyLifetime(t *testing.T) {
	ti := NewTokenIssuer(testSecret, "crm-test", time.Hour, 8760*time.Hour)

	_, claims, err := ti.IssueAPIKey("user-1", models.RoleAdmin)
	if err != nil {
		t.Fatalf("IssueAPIKey failed: %v", err)
	}
	life := claims.ExpiresAt.Sub(claims.IssuedAt.Time)
	if life != 8760*time.Hour {
		t.Errorf("Expected one-year key, got %s", life)
	}
	if claims.Kind != KindAPIKey {
		t.Errorf("Expected api_key kind, got %s", claims.Kind)
	}
}

func TestTokenIssuer_RejectsExpired(t *testing.T) {
	ti := NewTokenIssuer(testSecret, "crm-test", time.Minute, time.Hour)
	issuedAt := time.Now().Add(-2 * time.Hour)
	ti.now = func() time.Time { return issuedAt }

	token, _, err := ti.IssueSession("user-1", models.RoleUser)
	if err != nil {
		t.Fatalf("IssueSession failed: %v", err)
	}

	ti.now = time.Now
	if _, err := ti.Parse(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Expected ErrInvalidToken, got %v", err)
	}
}

func TestTokenIssuer_RejectsForeignTokens(t *testing.T) {
	ti := NewTokenIssuer(testSecret, "crm-test", time.Hour, time.Hour)

	other := NewTokenIssuer("another-secret-abcdefgh", "crm-test", time.Hour, time.Hour)
	token, _, _ := other.IssueSession("user-1", models.RoleAdmin)
	if _, err := ti.Parse(token); err == nil {
		t.Error("Expected error for token signed with another secret")
	}

	wrongIssuer := NewTokenIssuer(testSecret, "someone-else", time.Hour, time.Hour)
	token, _, _ = wrongIssuer.IssueSession("user-1", models.RoleAdmin)
	if _, err := ti.Parse(token); err == nil {
		t.Error("Expected error for token from another issuer")
	}

	// alg=none must never validate
	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{
		Kind:             KindSession,
		RegisteredClaims: jwt.RegisteredClaims{Subject: "user-1", ID: "x", Issuer: "crm-test"},
	})
	raw, _ := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if _, err := ti.Parse(raw); err == nil {
		t.Error("Expected error for unsigned token")
	}

	if _, err := ti.Parse("not-a-token"); err == nil {
		t.Error("Expected error for garbage")
	}
}

func TestPassword(t *testing.T) {
	hash, err := HashPassword("s3cret-pass")
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}
	if hash == "s3cret-pass" {
		t.Fatal("Password stored in plain text")
	}
	if !CheckPassword(hash, "s3cret-pass") {
		t.Error("Expected matching password to pass")
	}
	if CheckPassword(hash, "wrong") {
		t.Error("Expected wrong password to fail")
	}
}

func TestMemoryRevocationStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryRevocationStore()
	now := time.Now()
	store.now = func() time.Time { return now }

	if err := store.Revoke(ctx, "jti-1", now.Add(time.Hour)); err != nil {
		t.Fatalf("Revoke failed: %v", err)
	}
	store.Revoke(ctx, "jti-old", now.Add(-time.Minute))

	if ok, _ := store.IsRevoked(ctx, "jti-1"); !ok {
		t.Error("Expected jti-1 to be revoked")
	}
	if ok, _ := store.IsRevoked(ctx, "jti-old"); ok {
		t.Error("Already expired token should not be tracked")
	}
	if ok, _ := store.IsRevoked(ctx, "jti-2"); ok {
		t.Error("Unknown token should not be revoked")
	}

	// after expiry the entry no longer matters
	now = now.Add(2 * time.Hour)
	if ok, _ := store.IsRevoked(ctx, "jti-1"); ok {
		t.Error("Revocation should lapse after token expiry")
	}
}
