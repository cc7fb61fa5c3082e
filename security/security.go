// Package security provides at-rest encryption for cached content and
// metadata bytes, keyed off a user passphrase.
package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"

	"golang.org/x/crypto/scrypt"
)

const (
	scryptN   = 32768
	scryptR   = 8
	scryptP   = 1
	keyLength = 32
	nonceSize = 12
)

// Sealer encrypts and decrypts cache payloads with AES-256-GCM, using a key
// derived from a passphrase via scrypt.
type Sealer struct {
	gcm cipher.AEAD
}

// NewSealer derives an AES-256 key from passphrase and returns a Sealer
// ready to encrypt or decrypt. passphrase must be non-empty.
func NewSealer(passphrase string) (*Sealer, error) {
	if passphrase == "" {
		return nil, fmt.Errorf("security: passphrase cannot be empty")
	}

	salt := sha256.Sum256([]byte("polarcache-security-salt-v1"))
	key, err := scrypt.Key([]byte(passphrase), salt[:], scryptN, scryptR, scryptP, keyLength)
	if err != nil {
		return nil, fmt.Errorf("security: derive key: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("security: new cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("security: new gcm: %w", err)
	}

	return &Sealer{gcm: gcm}, nil
}

// Encrypt returns data sealed with a freshly generated nonce prepended.
func (s *Sealer) Encrypt(data []byte) ([]byte, error) {
	if s == nil {
		return data, nil
	}
	nonce := make([]byte, s.gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("security: generate nonce: %w", err)
	}
	return s.gcm.Seal(nonce, nonce, data, nil), nil
}

// Decrypt reverses Encrypt, extracting the prepended nonce.
func (s *Sealer) Decrypt(data []byte) ([]byte, error) {
	if s == nil {
		return data, nil
	}
	if len(data) < nonceSize {
		return nil, fmt.Errorf("security: ciphertext too short")
	}
	nonce, ciphertext := data[:nonceSize], data[nonceSize:]
	plaintext, err := s.gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("security: decrypt: %w", err)
	}
	return plaintext, nil
}

// HashKey converts a cache key to its SHA-256 hash representation, applied
// before keys reach a backing store so raw URIs never appear as storage keys.
func HashKey(key string) string {
	hash := sha256.Sum256([]byte(key))
	return hex.EncodeToString(hash[:])
}
