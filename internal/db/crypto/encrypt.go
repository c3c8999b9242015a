// Package crypto seals stored bearer tokens with AES-256-GCM.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
)

// DevelopmentKey is the all-zero key used when none is configured outside
// production.
const DevelopmentKey = "0000000000000000000000000000000000000000000000000000000000000000"

// ErrCiphertextTooShort is returned when a stored value cannot hold a nonce.
var ErrCiphertextTooShort = errors.New("ciphertext too short")

// Encryptor seals and opens values bound to a label, so a ciphertext stored
// under one credential kind cannot be replayed under another.
type Encryptor struct {
	gcm cipher.AEAD
}

// NewEncryptor creates an Encryptor from a hex-encoded 32-byte key.
func NewEncryptor(hexKey string) (*Encryptor, error) {
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("decode encryption key: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("encryption key must be 32 bytes, got %d", len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create GCM: %w", err)
	}
	return &Encryptor{gcm: gcm}, nil
}

// Seal encrypts plaintext bound to label and returns hex(nonce || ciphertext).
func (e *Encryptor) Seal(plaintext, label string) (string, error) {
	nonce := make([]byte, e.gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}
	out := e.gcm.Seal(nonce, nonce, []byte(plaintext), []byte(label))
	return hex.EncodeToString(out), nil
}

// Open reverses Seal. It fails if the value was sealed under a different
// label or key.
func (e *Encryptor) Open(sealed, label string) (string, error) {
	data, err := hex.DecodeString(sealed)
	if err != nil {
		return "", fmt.Errorf("decode ciphertext: %w", err)
	}
	n := e.gcm.NonceSize()
	if len(data) < n {
		return "", ErrCiphertextTooShort
	}
	plaintext, err := e.gcm.Open(nil, data[:n], data[n:], []byte(label))
	if err != nil {
		return "", fmt.Errorf("decrypt: %w", err)
	}
	return string(plaintext), nil
}
