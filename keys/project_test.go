package keys

import (
	"bytes"
	"errors"
	"testing"
)

func TestProjectKeySealOpen(t *testing.T) {
	k, err := GenerateProjectKey()
	if err != nil {
		t.Fatalf("GenerateProjectKey failed: %v", err)
	}
	plaintext := []byte("secret project data")

	sealed, err := k.Seal(plaintext)
	if err != nil {
		t.Fatalf("Seal failed: %v", err)
	}
	if bytes.Contains(sealed, plaintext) {
		t.Fatal("sealed output contains the plaintext")
	}

	opened, err := k.Open(sealed)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if !bytes.Equal(opened, plaintext) {
		t.Fatalf("round trip mismatch: got %q want %q", opened, plaintext)
	}
}

func TestProjectKeyOpenWrongKey(t *testing.T) {
	k1, err := GenerateProjectKey()
	if err != nil {
		t.Fatalf("GenerateProjectKey failed: %v", err)
	}
	k2, err := GenerateProjectKey()
	if err != nil {
		t.Fatalf("GenerateProjectKey failed: %v", err)
	}

	sealed, err := k1.Seal([]byte("top secret"))
	if err != nil {
		t.Fatalf("Seal failed: %v", err)
	}
	if _, err := k2.Open(sealed); err == nil {
		t.Fatal("Open with the wrong key succeeded")
	}
}

func TestProjectKeyOpenTooShort(t *testing.T) {
	k, err := GenerateProjectKey()
	if err != nil {
		t.Fatalf("GenerateProjectKey failed: %v", err)
	}
	if _, err := k.Open([]byte("short")); !errors.Is(err, ErrSealedTooShort) {
		t.Fatalf("Open short input: got %v want %v", err, ErrSealedTooShort)
	}
}

func TestProjectKeyExports(t *testing.T) {
	k, err := GenerateProjectKey()
	if err != nil {
		t.Fatalf("GenerateProjectKey failed: %v", err)
	}

	fromHex, err := ProjectKeyFromHex(k.Hex())
	if err != nil {
		t.Fatalf("ProjectKeyFromHex failed: %v", err)
	}
	fromB64, err := ProjectKeyFromBase64(k.Base64())
	if err != nil {
		t.Fatalf("ProjectKeyFromBase64 failed: %v", err)
	}
	if !bytes.Equal(fromHex.Bytes(), k.Bytes()) || !bytes.Equal(fromB64.Bytes(), k.Bytes()) {
		t.Fatal("export round trip changed key material")
	}

	sealed, err := k.Seal([]byte("shared"))
	if err != nil {
		t.Fatalf("Seal failed: %v", err)
	}
	opened, err := fromB64.Open(sealed)
	if err != nil {
		t.Fatalf("Open with imported key failed: %v", err)
	}
	if string(opened) != "shared" {
		t.Fatalf("unexpected plaintext: %q", opened)
	}
}
