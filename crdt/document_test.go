package crdt

import (
	"bytes"
	"encoding/json"
	"math/rand"
	"testing"
)

func mustDoc(t *testing.T, actor string) *Document {
	t.Helper()
	d, err := NewDocument(actor)
	if err != nil {
		t.Fatalf("NewDocument(%q): %v", actor, err)
	}
	return d
}

func TestNewDocumentRequiresActor(t *testing.T) {
	if _, err := NewDocument(""); err == nil {
		t.Fatal("expected error for empty actor")
	}
}

func TestSetGetDelete(t *testing.T) {
	d := mustDoc(t, "u_aaaa")

	if err := d.Set("assets", "logo.png", "cid-1"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	raw, ok := d.Get("assets", "logo.png")
	if !ok {
		t.Fatal("Get: key missing after Set")
	}
	var got string
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got != "cid-1" {
		t.Fatalf("value = %q, want %q", got, "cid-1")
	}

	if err := d.Delete("assets", "logo.png"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok := d.Get("assets", "logo.png"); ok {
		t.Fatal("key still live after Delete")
	}
	if keys := d.Keys("assets"); len(keys) != 0 {
		t.Fatalf("Keys = %v, want none", keys)
	}
}

func TestLocalWriteValidation(t *testing.T) {
	d := mustDoc(t, "u_aaaa")
	if err := d.Set("", "k", 1); err == nil {
		t.Fatal("expected error for empty section")
	}
	if err := d.Set("s", "", 1); err == nil {
		t.Fatal("expected error for empty key")
	}
}

func TestObserversSeeOrigins(t *testing.T) {
	a := mustDoc(t, "u_aaaa")
	b := mustDoc(t, "u_bbbb")

	var fromA [][]byte
	a.Observe(func(update []byte, origin Origin) {
		if !origin.ShouldBroadcast() {
			t.Errorf("local edit tagged remote")
		}
		fromA = append(fromA, update)
	})

	var remoteSeen int
	b.Observe(func(update []byte, origin Origin) {
		if !origin.IsRemote() {
			t.Errorf("ingested update tagged local")
		}
		if origin.Peer() != "u_aaaa" {
			t.Errorf("peer = %q, want u_aaaa", origin.Peer())
		}
		if origin.ShouldBroadcast() {
			t.Errorf("remote update marked for broadcast")
		}
		remoteSeen++
	})

	if err := a.Set("notes", "title", "hello"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if len(fromA) != 1 {
		t.Fatalf("observer saw %d updates, want 1", len(fromA))
	}
	if err := b.ApplyUpdate(fromA[0], Remote("u_aaaa")); err != nil {
		t.Fatalf("ApplyUpdate: %v", err)
	}
	if remoteSeen != 1 {
		t.Fatalf("remote observer fired %d times, want 1", remoteSeen)
	}
}

func TestApplyUpdateIdempotent(t *testing.T) {
	a := mustDoc(t, "u_aaaa")
	b := mustDoc(t, "u_bbbb")

	var updates [][]byte
	a.Observe(func(update []byte, _ Origin) {
		updates = append(updates, update)
	})
	if err := a.Set("assets", "a", 1); err != nil {
		t.Fatalf("Set: %v", err)
	}

	var fired int
	b.Observe(func([]byte, Origin) { fired++ })

	for i := 0; i < 3; i++ {
		if err := b.ApplyUpdate(updates[0], Remote("u_aaaa")); err != nil {
			t.Fatalf("ApplyUpdate #%d: %v", i, err)
		}
	}
	if fired != 1 {
		t.Fatalf("redundant updates re-notified: fired %d times, want 1", fired)
	}
}

func TestApplyUpdateRejectsMalformed(t *testing.T) {
	d := mustDoc(t, "u_aaaa")
	for _, data := range [][]byte{
		nil,
		[]byte("not json"),
		[]byte(`{"v":99,"entries":[]}`),
		[]byte(`{"v":1,"entries":[{"section":"s","key":"","clock":1,"actor":"a"}]}`),
		[]byte(`{"v":1,"entries":[{"section":"s","key":"k","clock":0,"actor":"a"}]}`),
	} {
		err := d.ApplyUpdate(data, Remote(""))
		if err == nil {
			t.Fatalf("ApplyUpdate(%q): expected error", data)
		}
	}
}

func TestConcurrentWritesConvergeDeterministically(t *testing.T) {
	a := mustDoc(t, "u_aaaa")
	b := mustDoc(t, "u_bbbb")

	var ua, ub []byte
	a.Observe(func(update []byte, _ Origin) { ua = update })
	b.Observe(func(update []byte, _ Origin) { ub = update })

	// Same clock on both sides; the higher actor id must win everywhere.
	if err := a.Set("notes", "title", "from-a"); err != nil {
		t.Fatal(err)
	}
	if err := b.Set("notes", "title", "from-b"); err != nil {
		t.Fatal(err)
	}

	if err := a.ApplyUpdate(ub, Remote("u_bbbb")); err != nil {
		t.Fatal(err)
	}
	if err := b.ApplyUpdate(ua, Remote("u_aaaa")); err != nil {
		t.Fatal(err)
	}

	ra, _ := a.Get("notes", "title")
	rb, _ := b.Get("notes", "title")
	if !bytes.Equal(ra, rb) {
		t.Fatalf("replicas diverged: %s vs %s", ra, rb)
	}
	if string(ra) != `"from-b"` {
		t.Fatalf("winner = %s, want \"from-b\"", ra)
	}
}

func TestConvergenceUnderShuffledDuplicatedDelivery(t *testing.T) {
	a := mustDoc(t, "u_aaaa")
	b := mustDoc(t, "u_bbbb")

	var ua, ub [][]byte
	a.Observe(func(update []byte, origin Origin) {
		if origin.ShouldBroadcast() {
			ua = append(ua, update)
		}
	})
	b.Observe(func(update []byte, origin Origin) {
		if origin.ShouldBroadcast() {
			ub = append(ub, update)
		}
	})

	rng := rand.New(rand.NewSource(7))
	keys := []string{"k0", "k1", "k2", "k3", "k4"}
	for i := 0; i < 40; i++ {
		k := keys[rng.Intn(len(keys))]
		switch rng.Intn(3) {
		case 0:
			if err := a.Set("assets", k, i); err != nil {
				t.Fatal(err)
			}
		case 1:
			if err := b.Set("assets", k, -i); err != nil {
				t.Fatal(err)
			}
		default:
			if err := a.Delete("assets", k); err != nil {
				t.Fatal(err)
			}
		}
	}

	// Deliver each side's updates to the other shuffled and duplicated.
	deliver := func(dst *Document, peer string, updates [][]byte) {
		t.Helper()
		dup := append(append([][]byte{}, updates...), updates...)
		rng.Shuffle(len(dup), func(i, j int) { dup[i], dup[j] = dup[j], dup[i] })
		for _, u := range dup {
			if err := dst.ApplyUpdate(u, Remote(peer)); err != nil {
				t.Fatalf("ApplyUpdate: %v", err)
			}
		}
	}
	deliver(b, "u_aaaa", ua)
	deliver(a, "u_bbbb", ub)

	sa, err := a.EncodeState()
	if err != nil {
		t.Fatal(err)
	}
	sb, err := b.EncodeState()
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(sa, sb) {
		t.Fatalf("replicas diverged:\n a: %s\n b: %s", sa, sb)
	}
}

func TestEncodeStateRestores(t *testing.T) {
	a := mustDoc(t, "u_aaaa")
	if err := a.Set("assets", "logo.png", "cid-1"); err != nil {
		t.Fatal(err)
	}
	if err := a.Set("notes", "title", "hello"); err != nil {
		t.Fatal(err)
	}
	if err := a.Set("assets", "tmp", 1); err != nil {
		t.Fatal(err)
	}
	if err := a.Delete("assets", "tmp"); err != nil {
		t.Fatal(err)
	}

	state, err := a.EncodeState()
	if err != nil {
		t.Fatalf("EncodeState: %v", err)
	}

	fresh := mustDoc(t, "u_cccc")
	if err := fresh.ApplyUpdate(state, Remote("")); err != nil {
		t.Fatalf("apply snapshot: %v", err)
	}

	restored, err := fresh.EncodeState()
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(state, restored) {
		t.Fatalf("snapshot not stable:\n want %s\n got  %s", state, restored)
	}
	// The tombstone must survive the snapshot so a stale write cannot
	// resurrect the key.
	if _, ok := fresh.Get("assets", "tmp"); ok {
		t.Fatal("tombstoned key live after snapshot load")
	}
}

func TestObserveCancel(t *testing.T) {
	d := mustDoc(t, "u_aaaa")
	var fired int
	cancel := d.Observe(func([]byte, Origin) { fired++ })
	if err := d.Set("s", "k", 1); err != nil {
		t.Fatal(err)
	}
	cancel()
	cancel() // idempotent
	if err := d.Set("s", "k", 2); err != nil {
		t.Fatal(err)
	}
	if fired != 1 {
		t.Fatalf("fired = %d, want 1", fired)
	}
}

func TestSectionsIncludeTombstoneOnly(t *testing.T) {
	d := mustDoc(t, "u_aaaa")
	if err := d.Set("awareness", "u_bbbb", "online"); err != nil {
		t.Fatal(err)
	}
	if err := d.Delete("awareness", "u_bbbb"); err != nil {
		t.Fatal(err)
	}
	sections := d.Sections()
	if len(sections) != 1 || sections[0] != "awareness" {
		t.Fatalf("Sections = %v, want [awareness]", sections)
	}
}
