package security

import (
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestHasher_HashAndCompare(t *testing.T) {
	h := NewHasher(bcrypt.MinCost) // min cost keeps the test fast
	hash, err := h.Hash([]byte("password1"))
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if hash == "" || hash == "password1" {
		t.Fatalf("unexpected hash %q", hash)
	}
	if err := h.Compare(hash, []byte("password1")); err != nil {
		t.Errorf("Compare with correct password: %v", err)
	}
	if err := h.Compare(hash, []byte("password2")); err == nil {
		t.Error("Compare with wrong password should fail")
	}
}

func TestHasher_DistinctSalts(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)
	h1, err := h.Hash([]byte("same-password"))
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	h2, err := h.Hash([]byte("same-password"))
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if h1 == h2 {
		t.Error("two hashes of the same password should differ (random salt)")
	}
}

func TestHasher_PasswordTooLong(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)
	long := strings.Repeat("a", 73)
	if _, err := h.Hash([]byte(long)); err != ErrPasswordTooLong {
		t.Errorf("73-byte password: want ErrPasswordTooLong, got %v", err)
	}
	// 72 bytes is still within the limit.
	if _, err := h.Hash([]byte(strings.Repeat("a", 72))); err != nil {
		t.Errorf("72-byte password should hash: %v", err)
	}
}

func TestHasher_MalformedHash(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)
	if err := h.Compare("not-a-bcrypt-hash", []byte("password1")); err == nil {
		t.Error("Compare with malformed hash should fail, not panic")
	}
}

func TestNewHasher_CostClamping(t *testing.T) {
	if got := NewHasher(0).Cost; got != bcrypt.DefaultCost {
		t.Errorf("cost 0: got %d, want default %d", got, bcrypt.DefaultCost)
	}
	if got := NewHasher(1).Cost; got != bcrypt.MinCost {
		t.Errorf("cost 1: got %d, want min %d", got, bcrypt.MinCost)
	}
	if got := NewHasher(99).Cost; got != bcrypt.MaxCost {
		t.Errorf("cost 99: got %d, want max %d", got, bcrypt.MaxCost)
	}
}
