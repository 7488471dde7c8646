package auth

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"testing"
	"time"
)

const (
	testIssuer = "https://id.example.org"
	testClient = "risk-dashboard"
	testSecret = "local-dev-signing-secret"
)

func testAuthenticator(t *testing.T) *OIDCAuthenticator {
	t.Helper()
	a, err := NewOIDCAuthenticator(testIssuer, testClient, testSecret)
	if err != nil {
		t.Fatalf("failed to build authenticator: %v", err)
	}
	a.nowFunc = func() time.Time { return time.Unix(1700000000, 0) }
	return a
}

func forgeToken(t *testing.T, secret string, claims map[string]interface{}) string {
	t.Helper()
	headerJSON, err := json.Marshal(map[string]string{"alg": "HS256", "typ": "JWT"})
	if err != nil {
		t.Fatalf("failed to marshal header: %v", err)
	}
	payloadJSON, err := json.Marshal(claims)
	if err != nil {
		t.Fatalf("failed to marshal claims: %v", err)
	}
	header := base64.RawURLEncoding.EncodeToString(headerJSON)
	payload := base64.RawURLEncoding.EncodeToString(payloadJSON)
	return header + "." + payload + "." + signSegments([]byte(secret), header, payload)
}

func validClaims() map[string]interface{} {
	return map[string]interface{}{
		"iss": testIssuer,
		"aud": testClient,
		"sub": "clinician-7",
		"nbf": int64(1700000000 - 60),
		"exp": int64(1700000000 + 3600),
	}
}

func TestValidateTokenAccepted(t *testing.T) {
	a := testAuthenticator(t)

	claims, err := a.ValidateToken(context.Background(), forgeToken(t, testSecret, validClaims()))
	if err != nil {
		t.Fatalf("expected valid token accepted, got %v", err)
	}
	if claims["sub"] != "clinician-7" {
		t.Fatalf("expected subject claim returned, got %v", claims["sub"])
	}
}

func TestValidateTokenRejectsOpaqueString(t *testing.T) {
	a := testAuthenticator(t)

	if _, err := a.ValidateToken(context.Background(), "any-non-empty-string"); err == nil {
		t.Fatal("expected a non-JWT bearer value to be rejected")
	}
}

func TestValidateTokenRejectsBadSignature(t *testing.T) {
	a := testAuthenticator(t)

	if _, err := a.ValidateToken(context.Background(), forgeToken(t, "some-other-secret", validClaims())); err == nil {
		t.Fatal("expected token signed with a different key to be rejected")
	}
}

func TestValidateTokenRejectsExpired(t *testing.T) {
	a := testAuthenticator(t)

	claims := validClaims()
	claims["exp"] = int64(1700000000 - 1)
	if _, err := a.ValidateToken(context.Background(), forgeToken(t, testSecret, claims)); err == nil {
		t.Fatal("expected expired token to be rejected")
	}
}

func TestValidateTokenRejectsNotYetValid(t *testing.T) {
	a := testAuthenticator(t)

	claims := validClaims()
	claims["nbf"] = int64(1700000000 + 300)
	if _, err := a.ValidateToken(context.Background(), forgeToken(t, testSecret, claims)); err == nil {
		t.Fatal("expected token used before nbf to be rejected")
	}
}

func TestValidateTokenRejectsWrongIssuer(t *testing.T) {
	a := testAuthenticator(t)

	claims := validClaims()
	claims["iss"] = "https://evil.example.org"
	if _, err := a.ValidateToken(context.Background(), forgeToken(t, testSecret, claims)); err == nil {
		t.Fatal("expected token from another issuer to be rejected")
	}
}

func TestValidateTokenRejectsWrongAudience(t *testing.T) {
	a := testAuthenticator(t)

	claims := validClaims()
	claims["aud"] = "other-app"
	if _, err := a.ValidateToken(context.Background(), forgeToken(t, testSecret, claims)); err == nil {
		t.Fatal("expected token for another audience to be rejected")
	}
}

func TestNewOIDCAuthenticatorRequiresSecret(t *testing.T) {
	if _, err := NewOIDCAuthenticator(testIssuer, testClient, ""); err == nil {
		t.Fatal("expected missing client secret to be rejected")
	}
}
