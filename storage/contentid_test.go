package storage

import "testing"

func TestContentIDStable(t *testing.T) {
	data := []byte("hello, vault storage")
	a := ContentID(data)
	b := ContentID(data)
	if a == "" {
		t.Fatal("ContentID returned empty id")
	}
	if a != b {
		t.Fatalf("ContentID not deterministic: %s vs %s", a, b)
	}
	if ContentID([]byte("different")) == a {
		t.Fatal("distinct payloads produced the same content id")
	}
}

func TestVerifyContentID(t *testing.T) {
	data := []byte("payload")
	id := ContentID(data)

	if !VerifyContentID(id, data) {
		t.Fatal("VerifyContentID rejected matching data")
	}
	if VerifyContentID(id, []byte("tampered")) {
		t.Fatal("VerifyContentID accepted tampered data")
	}
	if VerifyContentID("not-a-cid", data) {
		t.Fatal("VerifyContentID accepted a malformed id")
	}
}
