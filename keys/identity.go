package keys

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
)

// UserIDPrefix marks identifiers derived from identity public keys.
const UserIDPrefix = "u_"

// userIDHexLen is the number of public-key hex characters kept in a user id.
const userIDHexLen = 16

// IdentityKey is an Ed25519 identity keypair.
//
// Only the 32-byte seed is retained; the signing key is reconstructed on
// demand so the value stays trivially serializable.
type IdentityKey struct {
	seed []byte
}

// GenerateIdentityKey returns a fresh random identity keypair.
func GenerateIdentityKey() (*IdentityKey, error) {
	seed := make([]byte, ed25519.SeedSize)
	if _, err := rand.Read(seed); err != nil {
		return nil, fmt.Errorf("keys: generate identity seed: %w", err)
	}
	return &IdentityKey{seed: seed}, nil
}

// IdentityKeyFromSeed reconstructs an identity keypair from a 32-byte seed.
func IdentityKeyFromSeed(seed []byte) (*IdentityKey, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("keys: identity seed must be %d bytes, got %d", ed25519.SeedSize, len(seed))
	}
	out := make([]byte, ed25519.SeedSize)
	copy(out, seed)
	return &IdentityKey{seed: out}, nil
}

// Seed returns a copy of the private seed.
func (k *IdentityKey) Seed() []byte {
	out := make([]byte, len(k.seed))
	copy(out, k.seed)
	return out
}

// Private returns the full Ed25519 private key.
func (k *IdentityKey) Private() ed25519.PrivateKey {
	return ed25519.NewKeyFromSeed(k.seed)
}

// Public returns the Ed25519 public key.
func (k *IdentityKey) Public() ed25519.PublicKey {
	return k.Private().Public().(ed25519.PublicKey)
}

// UserID derives the stable user id for this keypair.
//
// The id is UserIDPrefix plus the first 16 hex characters of the public key.
// Derivation is deterministic: re-deriving from the same keypair always
// reproduces the same id. There is no collision check against other known
// identities.
func (k *IdentityKey) UserID() string {
	return UserIDFromPublicKey(k.Public())
}

// UserIDFromPublicKey derives the user id for an Ed25519 public key.
func UserIDFromPublicKey(pub ed25519.PublicKey) string {
	return UserIDPrefix + hex.EncodeToString(pub)[:userIDHexLen]
}

// Sign returns an Ed25519 signature over message.
func (k *IdentityKey) Sign(message []byte) []byte {
	return ed25519.Sign(k.Private(), message)
}

// Verify reports whether signature is a valid signature over message by the
// holder of pub. Malformed keys or signatures simply verify false.
func Verify(pub ed25519.PublicKey, message, signature []byte) bool {
	if len(pub) != ed25519.PublicKeySize || len(signature) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(pub, message, signature)
}

// ParseSeedHex decodes a 32-byte identity or project seed from hex.
// A leading "0x" and surrounding whitespace are tolerated.
func ParseSeedHex(seedHex string) ([]byte, error) {
	seedHex = strings.TrimSpace(seedHex)
	seedHex = strings.TrimPrefix(seedHex, "0x")
	data, err := hex.DecodeString(seedHex)
	if err != nil {
		return nil, err
	}
	if len(data) != ed25519.SeedSize {
		return nil, fmt.Errorf("keys: expected seed length of %d bytes, got %d", ed25519.SeedSize, len(data))
	}
	return data, nil
}
