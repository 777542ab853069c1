package security

import (
	"errors"
	"testing"
	"time"
)

const (
	testSecret = "test-signing-secret"
	testIssuer = "devnotes"
)

func TestSessionTokenRoundTrip(t *testing.T) {
	token, err := IssueSessionToken(testSecret, testIssuer, "u1", "alice@example.com", 7*24*time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	claims, err := ParseSessionToken(token, testSecret, testIssuer)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.UserID != "u1" {
		t.Errorf("UserID = %q, want u1", claims.UserID)
	}
	if claims.Email != "alice@example.com" {
		t.Errorf("Email = %q, want alice@example.com", claims.Email)
	}
	if claims.Issuer != testIssuer {
		t.Errorf("Issuer = %q, want %q", claims.Issuer, testIssuer)
	}
}

func TestSessionTokenExpired(t *testing.T) {
	token, err := IssueSessionToken(testSecret, testIssuer, "u1", "alice@example.com", -time.Minute)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	if _, err := ParseSessionToken(token, testSecret, testIssuer); !errors.Is(err, ErrTokenExpired) {
		t.Errorf("parse expired token: err = %v, want ErrTokenExpired", err)
	}
}

func TestSessionTokenWrongSecret(t *testing.T) {
	token, err := IssueSessionToken(testSecret, testIssuer, "u1", "alice@example.com", time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	if _, err := ParseSessionToken(token, "other-secret", testIssuer); !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("parse with wrong secret: err = %v, want ErrTokenInvalid", err)
	}
}

func TestSessionTokenWrongIssuer(t *testing.T) {
	token, err := IssueSessionToken(testSecret, "someone-else", "u1", "alice@example.com", time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	if _, err := ParseSessionToken(token, testSecret, testIssuer); !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("parse with wrong issuer: err = %v, want ErrTokenInvalid", err)
	}
}

func TestSessionTokenMalformed(t *testing.T) {
	for _, raw := range []string{"", "garbage", "a.b", "a.b.c.d"} {
		if _, err := ParseSessionToken(raw, testSecret, testIssuer); !errors.Is(err, ErrTokenMalformed) {
			t.Errorf("parse %q: err = %v, want ErrTokenMalformed", raw, err)
		}
	}
}
