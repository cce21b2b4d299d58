// Package cryptobox seals JSON-serializable values with AES-256-GCM before
// they reach persistent storage. This is obscurity of data at rest under a
// shared secret, not a security boundary against a privileged attacker.
package cryptobox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
)

// Box derives a 32-byte key from the shared secret once at construction.
type Box struct {
	aead cipher.AEAD
}

// New returns a Box keyed by SHA-256 of the shared secret.
func New(secret string) (*Box, error) {
	if secret == "" {
		return nil, errors.New("cryptobox: empty secret")
	}
	key := sha256.Sum256([]byte(secret))
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, fmt.Errorf("cryptobox: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("cryptobox: %w", err)
	}
	return &Box{aead: aead}, nil
}

// Seal serializes v to JSON and encrypts it. The nonce is prepended to the
// ciphertext and the whole blob is base64-encoded.
func (b *Box) Seal(v any) (string, error) {
	plain, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("cryptobox seal: %w", err)
	}
	nonce := make([]byte, b.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("cryptobox seal: %w", err)
	}
	out := b.aead.Seal(nonce, nonce, plain, nil)
	return base64.StdEncoding.EncodeToString(out), nil
}

// Open decrypts a sealed string into v. Any failure (wrong key, corrupted
// input, non-JSON plaintext) returns false: callers must treat that as "no
// data available", never as a fatal error.
func (b *Box) Open(ciphertext string, v any) bool {
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return false
	}
	ns := b.aead.NonceSize()
	if len(raw) < ns {
		return false
	}
	plain, err := b.aead.Open(nil, raw[:ns], raw[ns:], nil)
	if err != nil {
		return false
	}
	return json.Unmarshal(plain, v) == nil
}
