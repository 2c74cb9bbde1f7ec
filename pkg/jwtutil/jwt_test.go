package jwtutil

import (
	"errors"
	"testing"
)

func TestTokenRoundTrip(t *testing.T) {
	Initialize("test-signing-key", 1, 1)

	long, err := GenerateLongToken(42, "key-abc")
	if err != nil {
		t.Fatalf("GenerateLongToken() error = %v", err)
	}
	claims, err := ValidateLongToken(long)
	if err != nil {
		t.Fatalf("ValidateLongToken() error = %v", err)
	}
	if claims.UserID != 42 || claims.SessionKey != "key-abc" {
		t.Errorf("claims = {%d %q}, want {42 %q}", claims.UserID, claims.SessionKey, "key-abc")
	}

	short, err := GenerateShortToken(42, "key-abc")
	if err != nil {
		t.Fatalf("GenerateShortToken() error = %v", err)
	}
	if _, err := ValidateShortToken(short); err != nil {
		t.Fatalf("ValidateShortToken() error = %v", err)
	}
}

func TestTokenKindConfusionRejected(t *testing.T) {
	Initialize("test-signing-key", 1, 1)

	long, err := GenerateLongToken(1, "k")
	if err != nil {
		t.Fatalf("GenerateLongToken() error = %v", err)
	}
	// A long token must never pass as a session proof.
	if _, err := ValidateShortToken(long); !errors.Is(err, ErrWrongTokenKind) {
		t.Errorf("ValidateShortToken(long) error = %v, want ErrWrongTokenKind", err)
	}

	short, err := GenerateShortToken(1, "k")
	if err != nil {
		t.Fatalf("GenerateShortToken() error = %v", err)
	}
	// And a short token must not restart the exchange.
	if _, err := ValidateLongToken(short); !errors.Is(err, ErrWrongTokenKind) {
		t.Errorf("ValidateLongToken(short) error = %v, want ErrWrongTokenKind", err)
	}
}

func TestTokenWrongKeyRejected(t *testing.T) {
	Initialize("first-key", 1, 1)
	token, err := GenerateShortToken(1, "k")
	if err != nil {
		t.Fatalf("GenerateShortToken() error = %v", err)
	}

	Initialize("second-key", 1, 1)
	if _, err := ValidateShortToken(token); err == nil {
		t.Error("ValidateShortToken() accepted a token signed with another key")
	}
}

func TestTokenGarbageRejected(t *testing.T) {
	Initialize("test-signing-key", 1, 1)
	if _, err := ValidateShortToken("not.a.token"); err == nil {
		t.Error("ValidateShortToken() accepted garbage")
	}
}
