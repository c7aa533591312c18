package security

import (
	"errors"
	"strings"
	"testing"
)

func TestHasher_HashAndCompare(t *testing.T) {
	h := NewHasher(4)
	hash, err := h.Hash("secret123")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if hash == "" || hash == "secret123" {
		t.Fatalf("Hash returned %q", hash)
	}
	if err := h.Compare(hash, "secret123"); err != nil {
		t.Fatalf("Compare: %v", err)
	}
}

func TestHasher_SaltedHashesDiffer(t *testing.T) {
	h := NewHasher(4)
	a, _ := h.Hash("secret123")
	b, _ := h.Hash("secret123")
	if a == b {
		t.Error("two hashes of the same password should differ")
	}
}

func TestHasher_CompareWrongPassword(t *testing.T) {
	h := NewHasher(4)
	hash, _ := h.Hash("secret123")
	if err := h.Compare(hash, "wrong"); !errors.Is(err, ErrPasswordMismatch) {
		t.Fatalf("Compare wrong password: want ErrPasswordMismatch, got %v", err)
	}
}

func TestHasher_CompareEmptyHash(t *testing.T) {
	h := NewHasher(4)
	if err := h.Compare("", "anything"); !errors.Is(err, ErrPasswordMismatch) {
		t.Fatalf("Compare empty hash: want ErrPasswordMismatch, got %v", err)
	}
}

func TestHasher_TooLong(t *testing.T) {
	h := NewHasher(4)
	if _, err := h.Hash(strings.Repeat("a", MaxPasswordBytes+1)); !errors.Is(err, ErrPasswordTooLong) {
		t.Fatalf("Hash: want ErrPasswordTooLong, got %v", err)
	}
	if _, err := h.Hash(strings.Repeat("a", MaxPasswordBytes)); err != nil {
		t.Fatalf("Hash at limit: %v", err)
	}
}

func TestHasher_Cost(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{12, 12},
		{0, 10},
		{-1, 10},
		{2, 4},
		{40, 31},
	}
	for _, tt := range tests {
		if got := NewHasher(tt.in).Cost; got != tt.want {
			t.Errorf("NewHasher(%d).Cost = %d, want %d", tt.in, got, tt.want)
		}
	}
}
