// Package crypto seals store documents with AES-256-GCM.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

const (
	// NonceSize is the size of the AES-GCM nonce (12 bytes).
	NonceSize = 12
	// KeySize is the size of the AES-256 key (32 bytes).
	KeySize = 32
)

var (
	// ErrInvalidKey is returned when the key is not 64 hex characters.
	ErrInvalidKey = errors.New("invalid store key: must be 32 bytes (64 hex characters)")
	// ErrOpenFailed is returned when a sealed document fails authentication.
	ErrOpenFailed = errors.New("cannot open sealed document: wrong key or corrupt data")
	// ErrSealedTooShort is returned when the input is shorter than a nonce.
	ErrSealedTooShort = errors.New("sealed document too short")
)

// Sealer encrypts and decrypts document blobs.
//
// The nonce is derived from an HMAC of the plaintext, so sealing the same
// document twice yields the same blob and unchanged documents keep their
// git object across snapshots. Only equality of documents is revealed.
type Sealer struct {
	gcm    cipher.AEAD
	macKey []byte
}

// NewSealer creates a Sealer from a hex-encoded 32-byte key.
func NewSealer(hexKey string) (*Sealer, error) {
	key, err := hex.DecodeString(strings.TrimSpace(hexKey))
	if err != nil || len(key) != KeySize {
		return nil, ErrInvalidKey
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create GCM: %w", err)
	}

	// Separate subkey for nonce derivation.
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte("dorae nonce"))
	return &Sealer{gcm: gcm, macKey: mac.Sum(nil)}, nil
}

// GenerateKey returns a new random key in the hex form NewSealer accepts.
func GenerateKey() (string, error) {
	key := make([]byte, KeySize)
	if _, err := rand.Read(key); err != nil {
		return "", fmt.Errorf("generate key: %w", err)
	}
	return hex.EncodeToString(key), nil
}

// Seal returns nonce + ciphertext + tag.
func (s *Sealer) Seal(plaintext []byte) []byte {
	mac := hmac.New(sha256.New, s.macKey)
	mac.Write(plaintext)
	nonce := mac.Sum(nil)[:NonceSize]
	out := make([]byte, NonceSize, NonceSize+len(plaintext)+s.gcm.Overhead())
	copy(out, nonce)
	return s.gcm.Seal(out, nonce, plaintext, nil)
}

// Open reverses Seal.
func (s *Sealer) Open(sealed []byte) ([]byte, error) {
	if len(sealed) < NonceSize {
		return nil, ErrSealedTooShort
	}
	plaintext, err := s.gcm.Open(nil, sealed[:NonceSize], sealed[NonceSize:], nil)
	if err != nil {
		return nil, ErrOpenFailed
	}
	return plaintext, nil
}
