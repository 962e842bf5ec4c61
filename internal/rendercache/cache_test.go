package rendercache

import (
	"os"
	"path/filepath"
	"testing"
)

func testFingerprint() Fingerprint {
	return Fingerprint{
		SourcePath:   "/media/beach.mp4",
		Start:        1.5,
		End:          4,
		Style:        "pad",
		Width:        1280,
		Height:       720,
		PanDirection: "up",
		PixelFormat:  "yuv420p",
	}
}

func TestFingerprintKey(t *testing.T) {
	fp := testFingerprint()
	key := fp.Key()
	if len(key) != 32 {
		t.Errorf("expected 32-char md5 hex, got %q", key)
	}
	if key != fp.Key() {
		t.Error("fingerprint keys must be deterministic")
	}

	other := fp
	other.Width = 640
	if other.Key() == key {
		t.Error("differing parameters must yield differing keys")
	}
	audio := fp
	audio.IncludeAudio = true
	if audio.Key() == key {
		t.Error("audio inclusion must change the key")
	}
}

func TestLookupStoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	c := New(dir, nil)
	fp := testFingerprint()

	if _, ok, err := c.Lookup(fp); err != nil || ok {
		t.Fatalf("expected clean miss, got ok=%v err=%v", ok, err)
	}

	rendered := filepath.Join(dir, "clip.mp4")
	if err := os.WriteFile(rendered, []byte("video"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := c.Store(fp, rendered); err != nil {
		t.Fatalf("Store failed: %v", err)
	}

	path, ok, err := c.Lookup(fp)
	if err != nil || !ok || path != rendered {
		t.Fatalf("expected hit for %s, got path=%q ok=%v err=%v", rendered, path, ok, err)
	}
}

func TestPersistenceAcrossInstances(t *testing.T) {
	dir := t.TempDir()
	fp := testFingerprint()
	rendered := filepath.Join(dir, "clip.mp4")
	if err := os.WriteFile(rendered, []byte("video"), 0644); err != nil {
		t.Fatal(err)
	}

	if err := New(dir, nil).Store(fp, rendered); err != nil {
		t.Fatal(err)
	}

	// A fresh instance simulates a new process run.
	path, ok, err := New(dir, nil).Lookup(fp)
	if err != nil || !ok || path != rendered {
		t.Fatalf("expected persisted hit, got path=%q ok=%v err=%v", path, ok, err)
	}
}

func TestLookupDropsVanishedFiles(t *testing.T) {
	dir := t.TempDir()
	c := New(dir, nil)
	fp := testFingerprint()

	rendered := filepath.Join(dir, "clip.mp4")
	if err := os.WriteFile(rendered, []byte("video"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := c.Store(fp, rendered); err != nil {
		t.Fatal(err)
	}
	if err := os.Remove(rendered); err != nil {
		t.Fatal(err)
	}

	if _, ok, err := c.Lookup(fp); err != nil || ok {
		t.Fatalf("vanished file should miss, got ok=%v err=%v", ok, err)
	}

	// The drop must reach the table on disk, not just this instance's map.
	// Recreating the file exposes a stale persisted entry.
	if err := os.WriteFile(rendered, []byte("video"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, ok, err := New(dir, nil).Lookup(fp); err != nil || ok {
		t.Fatalf("stale entry survived on disk, got ok=%v err=%v", ok, err)
	}
}

func TestClear(t *testing.T) {
	dir := t.TempDir()
	c := New(dir, nil)
	fp := testFingerprint()

	rendered := filepath.Join(dir, "clip.mp4")
	if err := os.WriteFile(rendered, []byte("video"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := c.Store(fp, rendered); err != nil {
		t.Fatal(err)
	}

	if err := c.Clear(); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if n, err := c.Len(); err != nil || n != 0 {
		t.Errorf("expected empty cache, got n=%d err=%v", n, err)
	}
	if _, err := os.Stat(rendered); !os.IsNotExist(err) {
		t.Error("Clear should purge scratch files")
	}
}

func TestCorruptTableStartsEmpty(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, tableFile), []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}

	c := New(dir, nil)
	if n, err := c.Len(); err != nil || n != 0 {
		t.Errorf("corrupt table should load empty, got n=%d err=%v", n, err)
	}
}
