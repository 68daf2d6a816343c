package keys

import (
	"encoding/hex"
	"strings"
	"testing"
)

func TestUserIDRoundTrip(t *testing.T) {
	k, err := GenerateIdentityKey()
	if err != nil {
		t.Fatalf("GenerateIdentityKey failed: %v", err)
	}

	restored, err := IdentityKeyFromSeed(k.Seed())
	if err != nil {
		t.Fatalf("IdentityKeyFromSeed failed: %v", err)
	}
	if got, want := restored.UserID(), k.UserID(); got != want {
		t.Fatalf("restored user id mismatch: got %s want %s", got, want)
	}
	if !strings.HasPrefix(k.UserID(), UserIDPrefix) {
		t.Fatalf("user id %q missing prefix %q", k.UserID(), UserIDPrefix)
	}
	if got, want := len(k.UserID()), len(UserIDPrefix)+userIDHexLen; got != want {
		t.Fatalf("user id length: got %d want %d", got, want)
	}
}

func TestUserIDsDistinct(t *testing.T) {
	a, err := GenerateIdentityKey()
	if err != nil {
		t.Fatalf("GenerateIdentityKey failed: %v", err)
	}
	b, err := GenerateIdentityKey()
	if err != nil {
		t.Fatalf("GenerateIdentityKey failed: %v", err)
	}
	if a.UserID() == b.UserID() {
		t.Fatalf("independently generated keys yielded the same id %s", a.UserID())
	}
}

func TestSignAndVerify(t *testing.T) {
	k, err := GenerateIdentityKey()
	if err != nil {
		t.Fatalf("GenerateIdentityKey failed: %v", err)
	}
	message := []byte("hello p2p world")
	sig := k.Sign(message)

	if !Verify(k.Public(), message, sig) {
		t.Fatal("valid signature did not verify")
	}
	if Verify(k.Public(), []byte("tampered message"), sig) {
		t.Fatal("signature verified against a different message")
	}

	sig[0] ^= 0xff
	if Verify(k.Public(), message, sig) {
		t.Fatal("bit-flipped signature verified")
	}
}

func TestParseSeedHex(t *testing.T) {
	k, err := GenerateIdentityKey()
	if err != nil {
		t.Fatalf("GenerateIdentityKey failed: %v", err)
	}
	seedHex := "0x" + hex.EncodeToString(k.Seed())

	seed, err := ParseSeedHex("  " + seedHex + "\n")
	if err != nil {
		t.Fatalf("ParseSeedHex failed: %v", err)
	}
	restored, err := IdentityKeyFromSeed(seed)
	if err != nil {
		t.Fatalf("IdentityKeyFromSeed failed: %v", err)
	}
	if restored.UserID() != k.UserID() {
		t.Fatal("hex round trip changed the identity")
	}

	for _, bad := range []string{"", "zz", "abcd"} {
		if _, err := ParseSeedHex(bad); err == nil {
			t.Fatalf("ParseSeedHex(%q) succeeded, want error", bad)
		}
	}
}
