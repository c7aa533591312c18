package domain

import (
	"testing"
	"time"
)

func TestAccount_Validate(t *testing.T) {
	a := &Account{ID: "id", Email: "a@b.co", Username: "ada"}
	if err := a.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if a.Role != RoleUser {
		t.Errorf("Role = %q, want default %q", a.Role, RoleUser)
	}

	bad := []*Account{
		{Email: "a@b.co", Username: "ada"},
		{ID: "id", Username: "ada"},
		{ID: "id", Email: "a@b.co"},
		{ID: "id", Email: "a@b.co", Username: "ada", Role: "root"},
	}
	for i, acc := range bad {
		if err := acc.Validate(); err == nil {
			t.Errorf("case %d: want error", i)
		}
	}
}

func TestPendingRegistration_Validate(t *testing.T) {
	p := &PendingRegistration{ID: "id", Email: "a@b.co", Username: "ada", PasswordHash: "$2a$"}
	if err := p.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	p.PasswordHash = ""
	if err := p.Validate(); err == nil {
		t.Error("empty password hash must be rejected")
	}
}

func TestExpired(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	v := &VerificationRecord{ExpiresAt: now.Add(time.Minute)}
	if v.Expired(now) {
		t.Error("record expiring in 1m reported expired")
	}
	if !v.Expired(now.Add(time.Minute)) {
		t.Error("record at its expiry instant should be expired")
	}
	r := &PasswordResetRecord{ExpiresAt: now}
	if !r.Expired(now.Add(time.Second)) {
		t.Error("past reset record should be expired")
	}
}

func TestNormalize(t *testing.T) {
	if got := NormalizeEmail("  Ada@Example.COM "); got != "ada@example.com" {
		t.Errorf("NormalizeEmail = %q", got)
	}
	if got := NormalizeUsername("  AdaL "); got != "AdaL" {
		t.Errorf("NormalizeUsername = %q", got)
	}
}
