package cache

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ppiankov/experia/internal/model"
)

func TestPredictionKey(t *testing.T) {
	a := PredictionKey("gliner", "small", "It hit my chest.")
	b := PredictionKey("gliner", "small", "It hit my chest.")
	c := PredictionKey("gliner", "small", "It hit my chest!")

	if a != b {
		t.Error("expected identical parts to produce identical keys")
	}
	if a == c {
		t.Error("expected different text to produce different keys")
	}
	// Part boundaries matter
	if PredictionKey("ab", "c") == PredictionKey("a", "bc") {
		t.Error("expected part boundaries to be part of the key")
	}
}

func TestMemoryCache(t *testing.T) {
	c := NewMemoryCache(time.Minute, time.Minute)

	if err := c.Set("k", []byte("v"), 0); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	if v, ok := c.Get("k"); !ok || string(v) != "v" {
		t.Errorf("expected v, got %q (%v)", v, ok)
	}
	_ = c.Delete("k")
	if _, ok := c.Get("k"); ok {
		t.Error("expected key to be deleted")
	}
}

func TestDiskCache_RoundTripAndExpiry(t *testing.T) {
	dir := t.TempDir()
	c := NewDiskCache(dir, time.Hour)

	if err := c.Set("experia:v1:abc", []byte(`[1,2]`), 0); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	if v, ok := c.Get("experia:v1:abc"); !ok || string(v) != `[1,2]` {
		t.Errorf("unexpected value %q (%v)", v, ok)
	}
	if _, err := os.Stat(filepath.Join(dir, "ab", "abc.json")); err != nil {
		t.Errorf("expected sharded entry file, got %v", err)
	}

	if err := c.Set("experia:v1:short", []byte("x"), time.Nanosecond); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	time.Sleep(2 * time.Millisecond)
	if _, ok := c.Get("experia:v1:short"); ok {
		t.Error("expected expired entry to be evicted")
	}
	if _, err := os.Stat(filepath.Join(dir, "sh", "short.json")); !os.IsNotExist(err) {
		t.Errorf("expected expired file to be removed, got %v", err)
	}

	entries, err := os.ReadDir(filepath.Join(dir, "ab"))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("expected no temp files left behind, got %d entries", len(entries))
	}
}

func TestDiskCache_ForeignEntryIsMiss(t *testing.T) {
	c := NewDiskCache(t.TempDir(), time.Hour)

	// Both keys map to the same file name
	if err := c.Set("experia:v1:abc", []byte("v1"), 0); err != nil {
		t.Fatal(err)
	}
	if _, ok := c.Get("experia:v2:abc"); ok {
		t.Error("expected entry stored under another key to be a miss")
	}
}

func TestMemoryCache_CopiesValues(t *testing.T) {
	c := NewMemoryCache(time.Minute, time.Minute)

	value := []byte("abc")
	_ = c.Set("k", value, 0)
	value[0] = 'x'

	got, _ := c.Get("k")
	if string(got) != "abc" {
		t.Errorf("expected stored copy to be unaffected, got %q", got)
	}
	got[1] = 'y'
	again, _ := c.Get("k")
	if string(again) != "abc" {
		t.Errorf("expected returned copy to be independent, got %q", again)
	}
}

func TestLayeredCache_PromotesFromDisk(t *testing.T) {
	dir := t.TempDir()
	disk := NewDiskCache(dir, time.Hour)
	if err := disk.Set("k", []byte("v"), 0); err != nil {
		t.Fatal(err)
	}

	c := NewLayeredCache(time.Minute, dir, time.Hour)
	if v, ok := c.Get("k"); !ok || string(v) != "v" {
		t.Fatalf("expected disk hit, got %q (%v)", v, ok)
	}
	if _, ok := c.memory.Get("k"); !ok {
		t.Error("expected value to be promoted to memory")
	}

	if err := c.Delete("missing"); err != nil {
		t.Errorf("expected deleting a missing key to succeed, got %v", err)
	}
}

func TestNew(t *testing.T) {
	if New(model.CacheConfig{Enabled: false}) != nil {
		t.Error("expected nil cache when disabled")
	}
	if _, ok := New(model.CacheConfig{Enabled: true}).(*MemoryCache); !ok {
		t.Error("expected memory cache without a directory")
	}
	if _, ok := New(model.CacheConfig{Enabled: true, Dir: t.TempDir()}).(*LayeredCache); !ok {
		t.Error("expected layered cache with a directory")
	}
}
