// Package vault seals and opens long-lived access credentials with
// AES-256-GCM. The key is process-wide configuration loaded once at
// startup; tokens are stored as three colon-separated hex fields
// (iv:ciphertext:tag) so they survive any text column or JSON field.
package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"github.com/pulsiveblog/pulsive/internal/apperr"
)

const (
	keyBytes   = 32
	nonceBytes = 12
	tagBytes   = 16
)

// Vault encrypts and decrypts credential tokens. The zero value is
// unusable; construct with New.
type Vault struct {
	aead cipher.AEAD
}

// New builds a Vault from a 64-character hex key (32 bytes). A missing
// or wrong-length key is a startup error, not a per-request one.
func New(keyHex string) (*Vault, error) {
	key, err := hex.DecodeString(keyHex)
	if err != nil {
		return nil, fmt.Errorf("encryption key is not valid hex: %w", err)
	}
	if len(key) != keyBytes {
		return nil, fmt.Errorf("encryption key must be %d bytes (%d hex characters), got %d bytes", keyBytes, keyBytes*2, len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("initializing cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("initializing GCM: %w", err)
	}

	return &Vault{aead: aead}, nil
}

// Encrypt seals plaintext under a fresh random nonce and returns the
// iv:ciphertext:tag token.
func (v *Vault) Encrypt(plaintext string) (string, error) {
	iv := make([]byte, nonceBytes)
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return "", fmt.Errorf("generating nonce: %w", err)
	}

	sealed := v.aead.Seal(nil, iv, []byte(plaintext), nil)

	// Seal appends the auth tag to the ciphertext; split it back out to
	// match the persisted token format.
	ciphertext := sealed[:len(sealed)-tagBytes]
	tag := sealed[len(sealed)-tagBytes:]

	return fmt.Sprintf("%s:%s:%s",
		hex.EncodeToString(iv),
		hex.EncodeToString(ciphertext),
		hex.EncodeToString(tag),
	), nil
}

// Decrypt opens a token produced by Encrypt. A malformed token or a
// failed tag verification yields an InvalidCiphertext error; there is
// no fallback that returns unauthenticated plaintext.
func (v *Vault) Decrypt(token string) (string, error) {
	parts := strings.Split(token, ":")
	if len(parts) != 3 {
		return "", apperr.New(apperr.KindInvalidCiphertext, "invalid encrypted token format")
	}

	iv, err := hex.DecodeString(parts[0])
	if err != nil {
		return "", apperr.Wrap(apperr.KindInvalidCiphertext, "invalid iv encoding", err)
	}
	ciphertext, err := hex.DecodeString(parts[1])
	if err != nil {
		return "", apperr.Wrap(apperr.KindInvalidCiphertext, "invalid ciphertext encoding", err)
	}
	tag, err := hex.DecodeString(parts[2])
	if err != nil {
		return "", apperr.Wrap(apperr.KindInvalidCiphertext, "invalid auth tag encoding", err)
	}

	if len(iv) != nonceBytes || len(tag) != tagBytes {
		return "", apperr.New(apperr.KindInvalidCiphertext, "invalid encrypted token format")
	}

	plaintext, err := v.aead.Open(nil, iv, append(ciphertext, tag...), nil)
	if err != nil {
		return "", apperr.Wrap(apperr.KindInvalidCiphertext, "credential decryption failed", err)
	}
	return string(plaintext), nil
}
