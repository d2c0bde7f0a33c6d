package auth

import (
	"testing"
	"time"

	"github.com/dmitrijs2005/hiringhub/internal/common"
	"github.com/dmitrijs2005/hiringhub/internal/server/models"
	"github.com/golang-jwt/jwt/v5"
)

func testIdentity() *Identity {
	return &Identity{Subject: "user-123", Name: "ann", Email: "ann@example.com", Roles: []models.Role{models.RoleCandidate}}
}

func TestGenerateAndParse_Success(t *testing.T) {
	t.Parallel()

	secret := []byte("super-secret")

	tok, err := GenerateToken(testIdentity(), secret, time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken error: %v", err)
	}

	got, exp, err := ParseToken(tok, secret)
	if err != nil {
		t.Fatalf("ParseToken error: %v", err)
	}
	if got.Subject != "user-123" || got.Email != "ann@example.com" || !got.HasRole(models.RoleCandidate) {
		t.Fatalf("identity mismatch: %+v", got)
	}
	if time.Until(exp) <= 59*time.Minute {
		t.Fatalf("unexpected expiry %v", exp)
	}
}

func TestParseToken_Expired(t *testing.T) {
	t.Parallel()

	secret := []byte("secret")

	tok, err := GenerateToken(testIdentity(), secret, -1*time.Second)
	if err != nil {
		t.Fatalf("GenerateToken error: %v", err)
	}

	_, _, err = ParseToken(tok, secret)
	if err != common.ErrTokenExpired {
		t.Fatalf("expected common.ErrTokenExpired, got %v", err)
	}
}

func TestParseToken_WrongSecret(t *testing.T) {
	t.Parallel()

	tok, err := GenerateToken(testIdentity(), []byte("right-secret"), time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken error: %v", err)
	}

	if _, _, err := ParseToken(tok, []byte("wrong-secret")); err == nil {
		t.Fatalf("expected error for invalid signature, got nil")
	}
}

func TestParseToken_RejectsOtherAlgorithms(t *testing.T) {
	t.Parallel()

	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS512, Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "x", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	}).SignedString([]byte("k"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	if _, _, err := ParseToken(tok, []byte("k")); err == nil {
		t.Fatalf("expected HS512 token to be rejected")
	}
}

func TestParseToken_MalformedString(t *testing.T) {
	t.Parallel()

	if _, _, err := ParseToken("not.a.jwt", []byte("k")); err == nil {
		t.Fatalf("expected error for malformed token, got nil")
	}
}

func TestNeedsRenewal(t *testing.T) {
	t.Parallel()

	now := time.Now()
	ttl := 15 * 24 * time.Hour

	if NeedsRenewal(now.Add(10*24*time.Hour), ttl, now) {
		t.Fatalf("token with 10 of 15 days left must not be renewed")
	}
	if !NeedsRenewal(now.Add(3*24*time.Hour), ttl, now) {
		t.Fatalf("token with 3 of 15 days left must be renewed")
	}
}
