package keys

import (
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"github.com/cloudflare/circl/dh/x25519"
	"golang.org/x/crypto/hkdf"
)

// Domain-separation strings for pairing session keys. Changing these breaks
// compatibility with previously paired peers.
var (
	pairingSalt       = []byte("holi.pake.salt.v1")
	pairingSessionKey = []byte("holi.pake.info.session_key.v1")
)

// SessionKeySize is the size of a derived pairing session key.
const SessionKeySize = 32

// ErrStateConsumed is returned when a one-shot pairing state is reused.
var ErrStateConsumed = errors.New("keys: pairing state already consumed")

// ErrLowOrderPoint is returned when the peer's pairing message is degenerate.
var ErrLowOrderPoint = errors.New("keys: invalid pairing message")

// Pairing is one side of an ephemeral X25519 agreement used during
// invitation flows. Both sides run the same steps:
//
//	p, _ := keys.NewPairing()
//	send(p.Message())
//	session, _ := p.Finish(received)
//
// Finish consumes the state; a Pairing cannot be reused. The raw shared
// secret is expanded with domain-separated HKDF-SHA256 into a 32-byte
// session key, so the agreement output never leaves this package directly.
type Pairing struct {
	secret *x25519.Key
	public x25519.Key
}

// NewPairing starts a pairing exchange with a fresh ephemeral keypair.
func NewPairing() (*Pairing, error) {
	var secret, public x25519.Key
	if _, err := rand.Read(secret[:]); err != nil {
		return nil, fmt.Errorf("keys: pairing keygen: %w", err)
	}
	x25519.KeyGen(&public, &secret)
	return &Pairing{secret: &secret, public: public}, nil
}

// Message returns the public pairing message to send to the peer.
func (p *Pairing) Message() []byte {
	out := make([]byte, x25519.Size)
	copy(out, p.public[:])
	return out
}

// Finish combines the peer's message with the local ephemeral key and
// derives the session key. The state is consumed even on failure.
func (p *Pairing) Finish(peerMessage []byte) ([]byte, error) {
	if p.secret == nil {
		return nil, ErrStateConsumed
	}
	secret := p.secret
	p.secret = nil

	if len(peerMessage) != x25519.Size {
		return nil, fmt.Errorf("keys: pairing message must be %d bytes, got %d", x25519.Size, len(peerMessage))
	}
	var peer, shared x25519.Key
	copy(peer[:], peerMessage)
	if !x25519.Shared(&shared, secret, &peer) {
		return nil, ErrLowOrderPoint
	}
	return SessionKeyFromShared(shared[:])
}

// SessionKeyFromShared expands raw shared-key material into the 32-byte
// pairing session key.
func SessionKeyFromShared(shared []byte) ([]byte, error) {
	r := hkdf.New(sha256.New, shared, pairingSalt, pairingSessionKey)
	key := make([]byte, SessionKeySize)
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, fmt.Errorf("keys: session key expand: %w", err)
	}
	return key, nil
}

// GenerateChallenge returns a random 32-byte handshake challenge.
func GenerateChallenge() ([]byte, error) {
	challenge := make([]byte, 32)
	if _, err := rand.Read(challenge); err != nil {
		return nil, fmt.Errorf("keys: generate challenge: %w", err)
	}
	return challenge, nil
}
