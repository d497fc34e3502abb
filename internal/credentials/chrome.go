package credentials

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha1"
	"crypto/sha256"
	"errors"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

const (
	chromeSalt    = "saltysalt"
	chromeKeyLen  = 16
	chromeVersion = 3 // len("v10")
)

var errUnsupportedCookie = errors.New("unsupported cookie encryption")

var chromeIV = bytes.Repeat([]byte{' '}, aes.BlockSize)

func deriveChromeKey(password string, iterations int) []byte {
	return pbkdf2.Key([]byte(password), []byte(chromeSalt), iterations, chromeKeyLen, sha1.New)
}

// decryptCookie decodes a Chromium encrypted_value. keyFor receives the
// version prefix ("v10" or "v11").
func decryptCookie(enc []byte, hostKey string, keyFor func(version string) ([]byte, error)) (string, error) {
	if len(enc) <= chromeVersion {
		return "", errUnsupportedCookie
	}
	version := string(enc[:chromeVersion])
	if version != "v10" && version != "v11" {
		return "", fmt.Errorf("%w: prefix %q", errUnsupportedCookie, version)
	}
	key, err := keyFor(version)
	if err != nil {
		return "", fmt.Errorf("%s key: %w", version, err)
	}

	data := enc[chromeVersion:]
	if len(data) == 0 || len(data)%aes.BlockSize != 0 {
		return "", fmt.Errorf("ciphertext length %d is not a multiple of the block size", len(data))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}
	plain := make([]byte, len(data))
	cipher.NewCBCDecrypter(block, chromeIV).CryptBlocks(plain, data)

	plain, err = unpad(plain)
	if err != nil {
		return "", err
	}

	// Cookie DB version 24+ prefixes the value with SHA-256 of the host.
	if sum := sha256.Sum256([]byte(hostKey)); len(plain) >= len(sum) && bytes.Equal(plain[:len(sum)], sum[:]) {
		plain = plain[len(sum):]
	}
	return string(plain), nil
}

func unpad(b []byte) ([]byte, error) {
	if len(b) == 0 {
		return nil, errors.New("empty plaintext")
	}
	n := int(b[len(b)-1])
	if n == 0 || n > aes.BlockSize || n > len(b) {
		return nil, errors.New("bad padding, wrong key?")
	}
	for _, c := range b[len(b)-n:] {
		if int(c) != n {
			return nil, errors.New("bad padding, wrong key?")
		}
	}
	return b[:len(b)-n], nil
}
