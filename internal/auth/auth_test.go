package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/kailas-cloud/seshat/internal/domain"
)

func newTestTokens(t *testing.T, now *time.Time) *Tokens {
	t.Helper()
	tok, err := NewTokens("test-secret", time.Hour, 10*time.Minute)
	if err != nil {
		t.Fatalf("NewTokens: %v", err)
	}
	tok.now = func() time.Time { return *now }
	return tok
}

func TestNewTokens_RequiresSecret(t *testing.T) {
	if _, err := NewTokens("", 0, 0); err == nil {
		t.Fatal("expected error for empty secret")
	}
}

func TestSession_RoundTrip(t *testing.T) {
	now := time.Now()
	tok := newTestTokens(t, &now)

	s, err := tok.IssueSession(42)
	if err != nil {
		t.Fatalf("IssueSession: %v", err)
	}
	id, err := tok.ParseSession(s)
	if err != nil {
		t.Fatalf("ParseSession: %v", err)
	}
	if id != 42 {
		t.Errorf("expected 42, got %d", id)
	}
}

func TestSession_Expired(t *testing.T) {
	now := time.Now()
	tok := newTestTokens(t, &now)
	s, _ := tok.IssueSession(42)

	now = now.Add(2 * time.Hour)
	if _, err := tok.ParseSession(s); !errors.Is(err, domain.ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized, got %v", err)
	}
}

func TestReset_ExpiresAfterTenMinutes(t *testing.T) {
	now := time.Now()
	tok := newTestTokens(t, &now)
	s, err := tok.IssueReset(7)
	if err != nil {
		t.Fatalf("IssueReset: %v", err)
	}

	now = now.Add(9 * time.Minute)
	if id, err := tok.ParseReset(s); err != nil || id != 7 {
		t.Fatalf("expected 7 before expiry, got %d err=%v", id, err)
	}

	now = now.Add(2 * time.Minute)
	if _, err := tok.ParseReset(s); !errors.Is(err, domain.ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken after expiry, got %v", err)
	}
}

func TestTokens_PurposeIsolation(t *testing.T) {
	now := time.Now()
	tok := newTestTokens(t, &now)

	session, _ := tok.IssueSession(1)
	reset, _ := tok.IssueReset(1)

	if _, err := tok.ParseReset(session); !errors.Is(err, domain.ErrInvalidToken) {
		t.Errorf("session token accepted as reset token: %v", err)
	}
	if _, err := tok.ParseSession(reset); !errors.Is(err, domain.ErrUnauthorized) {
		t.Errorf("reset token accepted as session token: %v", err)
	}
}

func TestTokens_WrongKeyAndGarbage(t *testing.T) {
	now := time.Now()
	tok := newTestTokens(t, &now)
	other, _ := NewTokens("other-secret", 0, 0)
	s, _ := other.IssueReset(1)

	if _, err := tok.ParseReset(s); !errors.Is(err, domain.ErrInvalidToken) {
		t.Errorf("foreign signature accepted: %v", err)
	}
	if _, err := tok.ParseReset("not-a-token"); !errors.Is(err, domain.ErrInvalidToken) {
		t.Errorf("garbage accepted: %v", err)
	}
}

func TestPassword_HashAndCheck(t *testing.T) {
	hash, err := HashPassword("hunter22")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if hash == "hunter22" {
		t.Fatal("password stored in clear")
	}

	ok, err := CheckPassword(hash, "hunter22")
	if err != nil || !ok {
		t.Errorf("expected match, got ok=%v err=%v", ok, err)
	}
	ok, err = CheckPassword(hash, "hunter23")
	if err != nil || ok {
		t.Errorf("expected mismatch, got ok=%v err=%v", ok, err)
	}
	if _, err := CheckPassword("garbage", "x"); err == nil {
		t.Error("expected error for malformed hash")
	}
}
