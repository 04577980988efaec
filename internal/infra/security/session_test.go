package security

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-secret-test-secret-test-seed"

func signToken(t *testing.T, claims jwt.RegisteredClaims, secret string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func TestSubjectFromToken(t *testing.T) {
	verifier, err := NewSessionVerifier(testSecret, "credential-identity")
	if err != nil {
		t.Fatalf("NewSessionVerifier: %v", err)
	}

	token := signToken(t, jwt.RegisteredClaims{
		Subject:   "subject-1",
		Issuer:    "credential-identity",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}, testSecret)

	subject, err := verifier.SubjectFromToken(context.Background(), token)
	if err != nil {
		t.Fatalf("SubjectFromToken returned error: %v", err)
	}
	if subject != "subject-1" {
		t.Fatalf("subject = %q", subject)
	}
}

func TestSubjectFromTokenRejectsWrongSecret(t *testing.T) {
	verifier, _ := NewSessionVerifier(testSecret, "")

	token := signToken(t, jwt.RegisteredClaims{
		Subject:   "subject-1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}, "some-other-secret-entirely-here!")

	if _, err := verifier.SubjectFromToken(context.Background(), token); !errors.Is(err, ErrInvalidSession) {
		t.Fatalf("expected ErrInvalidSession, got %v", err)
	}
}

func TestSubjectFromTokenRejectsExpired(t *testing.T) {
	verifier, _ := NewSessionVerifier(testSecret, "")

	token := signToken(t, jwt.RegisteredClaims{
		Subject:   "subject-1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
	}, testSecret)

	if _, err := verifier.SubjectFromToken(context.Background(), token); !errors.Is(err, ErrExpiredSession) {
		t.Fatalf("expected ErrExpiredSession, got %v", err)
	}
}

func TestSubjectFromTokenRejectsMissingSubject(t *testing.T) {
	verifier, _ := NewSessionVerifier(testSecret, "")

	token := signToken(t, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}, testSecret)

	if _, err := verifier.SubjectFromToken(context.Background(), token); !errors.Is(err, ErrInvalidSession) {
		t.Fatalf("expected ErrInvalidSession, got %v", err)
	}
}

func TestSubjectFromTokenRejectsWrongIssuer(t *testing.T) {
	verifier, _ := NewSessionVerifier(testSecret, "credential-identity")

	token := signToken(t, jwt.RegisteredClaims{
		Subject:   "subject-1",
		Issuer:    "someone-else",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}, testSecret)

	if _, err := verifier.SubjectFromToken(context.Background(), token); err == nil {
		t.Fatal("expected issuer mismatch to fail verification")
	}
}

func TestNewSessionVerifierRequiresSecret(t *testing.T) {
	if _, err := NewSessionVerifier("  ", ""); err == nil {
		t.Fatal("expected missing secret to fail construction")
	}
}
