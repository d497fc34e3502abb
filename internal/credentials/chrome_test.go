package credentials

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"errors"
	"testing"
)

// encryptCookie mirrors what Chromium writes into encrypted_value.
func encryptCookie(t *testing.T, version string, key []byte, plain []byte) []byte {
	t.Helper()
	n := aes.BlockSize - len(plain)%aes.BlockSize
	padded := append(append([]byte{}, plain...), make([]byte, n)...)
	for i := len(plain); i < len(padded); i++ {
		padded[i] = byte(n)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		t.Fatal(err)
	}
	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, chromeIV).CryptBlocks(out, padded)
	return append([]byte(version), out...)
}

func peanuts(string) ([]byte, error) { return deriveChromeKey("peanuts", 1), nil }

func TestDecryptCookieV10(t *testing.T) {
	enc := encryptCookie(t, "v10", deriveChromeKey("peanuts", 1), []byte("sk-ant-sid01-secret"))
	got, err := decryptCookie(enc, ".claude.ai", peanuts)
	if err != nil {
		t.Fatalf("decryptCookie: %v", err)
	}
	if got != "sk-ant-sid01-secret" {
		t.Errorf("got %q", got)
	}
}

func TestDecryptCookieStripsHostDigest(t *testing.T) {
	sum := sha256.Sum256([]byte(".claude.ai"))
	plain := append(sum[:], []byte("sk-ant-sid01-new")...)
	enc := encryptCookie(t, "v11", deriveChromeKey("keyring-pw", 1), plain)

	var asked string
	got, err := decryptCookie(enc, ".claude.ai", func(v string) ([]byte, error) {
		asked = v
		return deriveChromeKey("keyring-pw", 1), nil
	})
	if err != nil {
		t.Fatalf("decryptCookie: %v", err)
	}
	if asked != "v11" {
		t.Errorf("key requested for %q", asked)
	}
	if got != "sk-ant-sid01-new" {
		t.Errorf("got %q", got)
	}
}

func TestDecryptCookieWrongKey(t *testing.T) {
	enc := encryptCookie(t, "v10", deriveChromeKey("other", 1), []byte("sk-ant-sid01-secret-value"))
	if _, err := decryptCookie(enc, ".claude.ai", peanuts); err == nil {
		t.Fatal("expected error with wrong key")
	}
}

func TestDecryptCookieUnsupported(t *testing.T) {
	_, err := decryptCookie([]byte("\x01\x00\x00\x00DPAPI"), "claude.ai", peanuts)
	if !errors.Is(err, errUnsupportedCookie) {
		t.Fatalf("err = %v, want errUnsupportedCookie", err)
	}
	if _, err := decryptCookie([]byte("v10abc"), "claude.ai", peanuts); err == nil {
		t.Fatal("expected error for truncated ciphertext")
	}
}

func TestDecryptCookieKeyError(t *testing.T) {
	enc := encryptCookie(t, "v11", deriveChromeKey("x", 1), []byte("value"))
	_, err := decryptCookie(enc, "claude.ai", func(string) ([]byte, error) {
		return nil, errors.New("keyring is locked")
	})
	if err == nil {
		t.Fatal("expected key error")
	}
}
