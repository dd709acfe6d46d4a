package auth

import (
	"context"
	"strings"
	"testing"

	"societyhub.org/internal/identity"
)

func setSecret(t *testing.T) {
	t.Helper()
	t.Setenv(secretEnvVariable, "unit-test-secret")
	ResetSecretForTests()
	t.Cleanup(ResetSecretForTests)
}

func testUser() *identity.User {
	return &identity.User{
		ID:        "01USER",
		Phone:     "9001001001",
		Role:      identity.RoleSubAdmin,
		SocietyID: "soc-1",
		Active:    true,
		Approved:  true,
	}
}

func TestTokenPairRoundTrip(t *testing.T) {
	setSecret(t)

	pair, err := GenerateTokenPair(testUser())
	if err != nil {
		t.Fatalf("GenerateTokenPair: %v", err)
	}
	if pair.TokenType != "Bearer" || pair.ExpiresIn <= 0 {
		t.Fatalf("unexpected pair metadata: %+v", pair)
	}

	claims, err := ParseToken(pair.AccessToken, TokenTypeAccess)
	if err != nil {
		t.Fatalf("ParseToken(access): %v", err)
	}
	if claims.Subject != "01USER" || claims.Role != "SUB_ADMIN" || claims.SocietyID != "soc-1" {
		t.Fatalf("unexpected claims: %+v", claims)
	}

	if _, err := ParseToken(pair.RefreshToken, TokenTypeRefresh); err != nil {
		t.Fatalf("ParseToken(refresh): %v", err)
	}
}

func TestTokenTypeConfusionRejected(t *testing.T) {
	setSecret(t)

	pair, err := GenerateTokenPair(testUser())
	if err != nil {
		t.Fatalf("GenerateTokenPair: %v", err)
	}
	if _, err := ParseToken(pair.RefreshToken, TokenTypeAccess); err != ErrInvalidToken {
		t.Fatalf("refresh token accepted as access token: %v", err)
	}
	if _, err := ParseToken(pair.AccessToken, TokenTypeRefresh); err != ErrInvalidToken {
		t.Fatalf("access token accepted as refresh token: %v", err)
	}
}

func TestTamperedTokenRejected(t *testing.T) {
	setSecret(t)

	pair, err := GenerateTokenPair(testUser())
	if err != nil {
		t.Fatalf("GenerateTokenPair: %v", err)
	}
	parts := strings.Split(pair.AccessToken, ".")
	if len(parts) != 3 {
		t.Fatalf("unexpected token shape: %q", pair.AccessToken)
	}
	tampered := parts[0] + "." + parts[1] + "." + strings.Repeat("A", len(parts[2]))
	if _, err := ParseToken(tampered, TokenTypeAccess); err != ErrInvalidToken {
		t.Fatalf("tampered token accepted: %v", err)
	}
	if _, err := ParseToken("", TokenTypeAccess); err != ErrInvalidToken {
		t.Fatalf("empty token accepted: %v", err)
	}
}

func TestMissingSecretFailsClosed(t *testing.T) {
	t.Setenv(secretEnvVariable, "")
	ResetSecretForTests()
	t.Cleanup(ResetSecretForTests)

	if _, err := GenerateTokenPair(testUser()); err == nil {
		t.Fatal("signing without a secret must fail")
	}
}

func TestPrincipalContextRoundTrip(t *testing.T) {
	p := Principal{UserID: "01USER", Role: identity.RoleAdmin}
	ctx := ContextWithPrincipal(context.Background(), p)

	got, ok := PrincipalFromContext(ctx)
	if !ok || got.UserID != "01USER" {
		t.Fatalf("principal not recovered: %+v ok=%v", got, ok)
	}
	if id, ok := UserIDFromContext(ctx); !ok || id != "01USER" {
		t.Fatalf("user id not recovered: %q ok=%v", id, ok)
	}
	if _, ok := PrincipalFromContext(context.Background()); ok {
		t.Fatal("empty context must not yield a principal")
	}
	if !p.Is(identity.RoleAdmin, identity.RoleSubAdmin) || p.Is(identity.RoleStaff) {
		t.Fatal("role membership check broken")
	}
}
