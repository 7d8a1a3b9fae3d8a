package backup

import (
	"bytes"
	"errors"
	"testing"
)

func TestGenerateSalt(t *testing.T) {
	salt1, err := GenerateSalt()
	if err != nil {
		t.Fatalf("generate salt: %v", err)
	}
	if len(salt1) != saltSize {
		t.Errorf("salt length = %d, want %d", len(salt1), saltSize)
	}

	salt2, err := GenerateSalt()
	if err != nil {
		t.Fatalf("generate salt 2: %v", err)
	}
	if bytes.Equal(salt1, salt2) {
		t.Error("two salts should not be equal")
	}
}

func TestDeriveKey(t *testing.T) {
	salt := []byte("1234567890abcdef")

	key1 := DeriveKey("mypassphrase", salt)
	key2 := DeriveKey("mypassphrase", salt)
	if !bytes.Equal(key1, key2) {
		t.Error("same passphrase+salt should produce same key")
	}
	if len(key1) != keySize {
		t.Errorf("key length = %d, want %d", len(key1), keySize)
	}
	if bytes.Equal(key1, DeriveKey("other", salt)) {
		t.Error("different passphrases should produce different keys")
	}
}

func TestSealOpen(t *testing.T) {
	plaintext := []byte("SQLite format 3\x00 pretend database pages")

	sealed, err := Seal(plaintext, "correct horse")
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	if bytes.Contains(sealed, plaintext) {
		t.Error("sealed output should not contain the plaintext")
	}

	again, err := Seal(plaintext, "correct horse")
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	if bytes.Equal(sealed[:saltSize], again[:saltSize]) {
		t.Error("each seal should use a fresh salt")
	}

	got, err := Open(sealed, "correct horse")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if !bytes.Equal(got, plaintext) {
		t.Error("opened content should match original")
	}
}

func TestOpenFailures(t *testing.T) {
	sealed, err := Seal([]byte("secret data"), "password")
	if err != nil {
		t.Fatalf("seal: %v", err)
	}

	if _, err := Open(sealed, "wrong-password"); err == nil {
		t.Error("expected error with wrong passphrase")
	}

	tampered := bytes.Clone(sealed)
	tampered[saltSize+nonceSize+1] ^= 0xFF
	if _, err := Open(tampered, "password"); err == nil {
		t.Error("expected error with tampered ciphertext")
	}

	if _, err := Open([]byte("too short"), "password"); !errors.Is(err, ErrCiphertextTooShort) {
		t.Errorf("expected ErrCiphertextTooShort, got %v", err)
	}
}

func TestSealEmpty(t *testing.T) {
	sealed, err := Seal(nil, "password")
	if err != nil {
		t.Fatalf("seal empty: %v", err)
	}
	got, err := Open(sealed, "password")
	if err != nil {
		t.Fatalf("open empty: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected empty plaintext, got %d bytes", len(got))
	}
}
