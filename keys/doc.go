// Package keys provides the cryptographic primitives behind holi vaults.
//
// It covers three concerns:
//
//   - Identity keypairs: Ed25519 signing keys with a deterministic user id
//     derived from the public key. The same keypair always yields the same id.
//   - Project master keys: 32-byte symmetric keys sealing project payloads
//     with XChaCha20-Poly1305 (nonce-prefixed ciphertext).
//   - Pairing: an ephemeral X25519 agreement that both sides expand into a
//     domain-separated 32-byte session key, used during invitation flows.
//
// All primitives here are pure and deterministic given their inputs; nothing
// in this package touches storage or the network.
package keys
