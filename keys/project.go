package keys

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

// ProjectKeySize is the size of a project master key in bytes.
const ProjectKeySize = chacha20poly1305.KeySize

// ErrSealedTooShort is returned when sealed bytes cannot contain a nonce.
var ErrSealedTooShort = errors.New("keys: sealed data too short to contain nonce")

// ProjectKey is the symmetric master key of a single project.
//
// Sealed payloads are framed as nonce || ciphertext || tag using
// XChaCha20-Poly1305 with a random 24-byte nonce per message.
type ProjectKey struct {
	key [ProjectKeySize]byte
}

// GenerateProjectKey returns a fresh random project master key.
func GenerateProjectKey() (*ProjectKey, error) {
	var k ProjectKey
	if _, err := rand.Read(k.key[:]); err != nil {
		return nil, fmt.Errorf("keys: generate project key: %w", err)
	}
	return &k, nil
}

// ProjectKeyFromBytes reconstructs a project key from raw bytes.
func ProjectKeyFromBytes(b []byte) (*ProjectKey, error) {
	if len(b) != ProjectKeySize {
		return nil, fmt.Errorf("keys: project key must be %d bytes, got %d", ProjectKeySize, len(b))
	}
	var k ProjectKey
	copy(k.key[:], b)
	return &k, nil
}

// ProjectKeyFromHex reconstructs a project key from its hex export.
func ProjectKeyFromHex(s string) (*ProjectKey, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("keys: invalid project key hex: %w", err)
	}
	return ProjectKeyFromBytes(b)
}

// ProjectKeyFromBase64 reconstructs a project key from its base64 export,
// the encoding used inside persisted project metadata.
func ProjectKeyFromBase64(s string) (*ProjectKey, error) {
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("keys: invalid project key base64: %w", err)
	}
	return ProjectKeyFromBytes(b)
}

// Bytes returns a copy of the raw key material.
func (k *ProjectKey) Bytes() []byte {
	out := make([]byte, ProjectKeySize)
	copy(out, k.key[:])
	return out
}

// Hex returns the hex export of the key.
func (k *ProjectKey) Hex() string {
	return hex.EncodeToString(k.key[:])
}

// Base64 returns the base64 export of the key.
func (k *ProjectKey) Base64() string {
	return base64.StdEncoding.EncodeToString(k.key[:])
}

// Seal encrypts plaintext and returns nonce || ciphertext || tag.
func (k *ProjectKey) Seal(plaintext []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(k.key[:])
	if err != nil {
		return nil, fmt.Errorf("keys: seal: %w", err)
	}
	nonce := make([]byte, chacha20poly1305.NonceSizeX)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("keys: seal nonce: %w", err)
	}
	return aead.Seal(nonce, nonce, plaintext, nil), nil
}

// Open decrypts data framed as nonce || ciphertext || tag.
func (k *ProjectKey) Open(sealed []byte) ([]byte, error) {
	if len(sealed) < chacha20poly1305.NonceSizeX {
		return nil, ErrSealedTooShort
	}
	aead, err := chacha20poly1305.NewX(k.key[:])
	if err != nil {
		return nil, fmt.Errorf("keys: open: %w", err)
	}
	nonce := sealed[:chacha20poly1305.NonceSizeX]
	plaintext, err := aead.Open(nil, nonce, sealed[chacha20poly1305.NonceSizeX:], nil)
	if err != nil {
		return nil, fmt.Errorf("keys: open: %w", err)
	}
	return plaintext, nil
}
