package jwt

import (
	"testing"
	"time"
)

func TestGenerateAndParse(t *testing.T) {
	token, err := GenerateToken("ops", []string{"site-a"}, "secret", time.Minute)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	claims, err := Parse(token, "secret")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.Subject != "ops" {
		t.Fatalf("expected subject ops, got %q", claims.Subject)
	}
	if !claims.CanAccess("site-a") || claims.CanAccess("site-b") {
		t.Fatalf("unexpected site scope: %v", claims.Sites)
	}
}

func TestParseRejectsWrongSecretAndExpiry(t *testing.T) {
	token, err := GenerateToken("ops", nil, "secret", time.Minute)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := Parse(token, "other"); err == nil {
		t.Fatal("expected signature error")
	}
	expired, err := GenerateToken("ops", nil, "secret", -time.Minute)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := Parse(expired, "secret"); err == nil {
		t.Fatal("expected expiry error")
	}
}

func TestUnscopedClaimsCoverEverySite(t *testing.T) {
	c := &Claims{}
	if !c.CanAccess("anything") {
		t.Fatal("expected unscoped claims to allow all sites")
	}
	var nilClaims *Claims
	if nilClaims.CanAccess("anything") {
		t.Fatal("expected nil claims to deny")
	}
}
