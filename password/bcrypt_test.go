package password

import "testing"

func TestHashAndVerify(t *testing.T) {
	h := NewHasher(4)

	hash, err := h.Hash("secret1")
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	if hash == "secret1" {
		t.Fatal("hash equals plain text")
	}

	ok, err := h.Verify("secret1", hash)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if !ok {
		t.Fatal("correct password rejected")
	}

	ok, err = h.Verify("wrong", hash)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if ok {
		t.Fatal("wrong password accepted")
	}
}

func TestVerifyCorruptHash(t *testing.T) {
	h := NewHasher(4)
	if _, err := h.Verify("secret1", "not-a-bcrypt-hash"); err == nil {
		t.Fatal("expected error for corrupt hash")
	}
}

func TestHashRejectsEmpty(t *testing.T) {
	h := NewHasher(4)
	if _, err := h.Hash(""); err == nil {
		t.Fatal("expected error for empty password")
	}
}

func TestOutOfRangeCostFallsBack(t *testing.T) {
	h := NewHasher(99)
	if _, err := h.Hash("secret1"); err != nil {
		t.Fatalf("Hash with clamped cost failed: %v", err)
	}
}
