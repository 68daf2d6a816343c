package crdt

import "testing"

func TestMapViews(t *testing.T) {
	d := mustDoc(t, "u_aaaa")

	assets := d.Assets()
	if assets.Name() != SectionAssets {
		t.Fatalf("Name = %q, want %q", assets.Name(), SectionAssets)
	}
	if err := assets.Set("logo.png", map[string]string{"cid": "cid-1"}); err != nil {
		t.Fatalf("Set: %v", err)
	}

	var meta map[string]string
	ok, err := assets.Get("logo.png", &meta)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok || meta["cid"] != "cid-1" {
		t.Fatalf("Get = %v %v, want cid-1", ok, meta)
	}

	// A view is just a handle; the document sees the same state.
	if _, ok := d.Get(SectionAssets, "logo.png"); !ok {
		t.Fatal("document missing key written through view")
	}

	if got := assets.Len(); got != 1 {
		t.Fatalf("Len = %d, want 1", got)
	}
	if keys := assets.Keys(); len(keys) != 1 || keys[0] != "logo.png" {
		t.Fatalf("Keys = %v", keys)
	}

	if err := assets.Delete("logo.png"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if ok, _ := assets.Get("logo.png", nil); ok {
		t.Fatal("key live after Delete")
	}

	awareness := d.Awareness()
	if err := awareness.Set("u_bbbb", "online"); err != nil {
		t.Fatal(err)
	}
	raw, ok := awareness.Raw("u_bbbb")
	if !ok || string(raw) != `"online"` {
		t.Fatalf("Raw = %s %v", raw, ok)
	}

	custom := d.Section("notes")
	if err := custom.Set("title", "hi"); err != nil {
		t.Fatal(err)
	}
	var title string
	if ok, err := custom.Get("title", &title); err != nil || !ok || title != "hi" {
		t.Fatalf("custom section Get = %q %v %v", title, ok, err)
	}
}

func TestMapGetMissing(t *testing.T) {
	d := mustDoc(t, "u_aaaa")
	var out string
	ok, err := d.Assets().Get("nope", &out)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if ok {
		t.Fatal("Get reported missing key as present")
	}
}
