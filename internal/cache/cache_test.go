package cache

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestKey(t *testing.T) {
	a := Key("shepard", "smith-v-jones", "true", "false")
	b := Key("shepard", "smith-v-jones", "true", "false")
	c := Key("shepard", "smith-v-jones", "false", "true")

	if a != b {
		t.Errorf("equal parts produced different keys: %s, %s", a, b)
	}
	if a == c {
		t.Errorf("different parts produced the same key")
	}
	if !strings.HasPrefix(a, "shepard:v1:shepard:") {
		t.Errorf("unexpected key prefix: %s", a)
	}
	// Separator keeps ("ab","c") distinct from ("a","bc")
	if Key("n", "ab", "c") == Key("n", "a", "bc") {
		t.Error("part boundaries are ambiguous")
	}
}

type payload struct {
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

func TestJSONHelpers(t *testing.T) {
	c := NewMemoryCache(time.Minute, time.Minute)

	if err := SetJSON(c, "k", payload{Name: "Smith", Score: 0.9}, 0); err != nil {
		t.Fatalf("SetJSON failed: %v", err)
	}

	var got payload
	if !GetJSON(c, "k", &got) {
		t.Fatal("expected hit")
	}
	if got.Name != "Smith" || got.Score != 0.9 {
		t.Errorf("unexpected value: %+v", got)
	}

	// Corrupt entries are dropped
	_ = c.Set("bad", []byte("{not json"), 0)
	if GetJSON(c, "bad", &got) {
		t.Error("expected miss for corrupt entry")
	}
	if _, ok := c.Get("bad"); ok {
		t.Error("expected corrupt entry to be deleted")
	}

	if err := SetJSON(c, "chan", make(chan int), 0); err == nil {
		t.Error("expected marshal error")
	}
}

func TestMemoryCache(t *testing.T) {
	c := NewMemoryCache(time.Minute, time.Minute)

	value := []byte("analysis")
	if err := c.Set("k", value, 0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	value[0] = 'X'

	got, ok := c.Get("k")
	if !ok || string(got) != "analysis" {
		t.Fatalf("expected stored copy, got %q, %v", got, ok)
	}
	got[0] = 'Y'
	if again, _ := c.Get("k"); string(again) != "analysis" {
		t.Errorf("caller mutation leaked into cache: %q", again)
	}

	_ = c.Delete("k")
	if _, ok := c.Get("k"); ok {
		t.Error("expected miss after Delete")
	}

	_ = c.Set("a", []byte("1"), 0)
	_ = c.Set("b", []byte("2"), 0)
	if c.Len() != 2 {
		t.Errorf("expected 2 entries, got %d", c.Len())
	}
	_ = c.Clear()
	if c.Len() != 0 {
		t.Errorf("expected empty cache after Clear, got %d", c.Len())
	}
}

func TestMemoryCache_TTL(t *testing.T) {
	c := NewMemoryCache(time.Minute, time.Minute)
	_ = c.Set("short", []byte("v"), 20*time.Millisecond)

	if _, ok := c.Get("short"); !ok {
		t.Fatal("expected hit before expiry")
	}
	time.Sleep(40 * time.Millisecond)
	if _, ok := c.Get("short"); ok {
		t.Error("expected miss after expiry")
	}
}

func TestDiskCache(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "cache")
	c := NewDiskCache(dir, time.Hour)

	if _, ok := c.Get("missing"); ok {
		t.Error("expected miss on empty cache")
	}

	key := Key("shepard", "smith-v-jones")
	if err := c.Set(key, []byte(`{"status":"good_law"}`), 0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	got, ok := c.Get(key)
	if !ok || string(got) != `{"status":"good_law"}` {
		t.Fatalf("unexpected value %q, %v", got, ok)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || !strings.HasSuffix(entries[0].Name(), ".cache") {
		t.Errorf("expected one .cache file, got %v", entries)
	}

	if err := c.Delete(key); err != nil {
		t.Errorf("Delete failed: %v", err)
	}
	if err := c.Delete(key); err != nil {
		t.Errorf("Delete of missing key should succeed, got %v", err)
	}
}

func TestDiskCache_Expiry(t *testing.T) {
	c := NewDiskCache(t.TempDir(), time.Hour)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	_ = c.Set("k", []byte("v"), time.Minute)
	now = now.Add(2 * time.Minute)

	if _, ok := c.Get("k"); ok {
		t.Error("expected miss after expiry")
	}
	if _, err := os.Stat(c.path("k")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected expired file to be removed, got %v", err)
	}
}

func TestLayeredCache(t *testing.T) {
	memory := NewMemoryCache(time.Minute, time.Minute)
	disk := NewDiskCache(t.TempDir(), time.Hour)
	c := NewLayeredCache(memory, disk)

	if err := c.Set("k", []byte("v"), 0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if _, ok := disk.Get("k"); !ok {
		t.Error("expected value written through to disk")
	}

	// Disk hits are promoted to memory
	_ = memory.Clear()
	if got, ok := c.Get("k"); !ok || string(got) != "v" {
		t.Fatalf("expected disk hit, got %q, %v", got, ok)
	}
	if _, ok := memory.Get("k"); !ok {
		t.Error("expected promotion to memory")
	}

	if err := c.Delete("k"); err != nil {
		t.Errorf("Delete failed: %v", err)
	}
	if _, ok := c.Get("k"); ok {
		t.Error("expected miss after Delete")
	}
}

func TestLayeredCache_PromotionKeepsDiskExpiry(t *testing.T) {
	memory := NewMemoryCache(time.Hour, time.Minute)
	disk := NewDiskCache(t.TempDir(), time.Hour)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	disk.now = func() time.Time { return now }
	c := NewLayeredCache(memory, disk)

	_ = disk.Set("k", []byte("v"), 2*time.Minute)
	if _, ok := c.Get("k"); !ok {
		t.Fatal("expected disk hit")
	}
	_, expires, ok := memory.cache.GetWithExpiration("k")
	if !ok {
		t.Fatal("expected promotion to memory")
	}
	if left := time.Until(expires); left > 2*time.Minute || left < time.Minute {
		t.Errorf("promoted entry should expire with its disk copy, has %v left", left)
	}

	// Entries about to expire are served but not promoted
	_ = disk.Set("soon", []byte("v"), 500*time.Millisecond)
	if _, ok := c.Get("soon"); !ok {
		t.Fatal("expected disk hit")
	}
	if _, ok := memory.Get("soon"); ok {
		t.Error("expected near-expiry entry to stay out of memory")
	}
}

func TestNewMemoryDiskCache_PromotionCappedByMemoryTTL(t *testing.T) {
	c := NewMemoryDiskCache(time.Minute, t.TempDir(), time.Hour)
	_ = c.disk.Set("k", []byte("v"), 0)

	if _, ok := c.Get("k"); !ok {
		t.Fatal("expected disk hit")
	}
	_, expires, ok := c.memory.(*MemoryCache).cache.GetWithExpiration("k")
	if !ok {
		t.Fatal("expected promotion to memory")
	}
	if left := time.Until(expires); left > time.Minute {
		t.Errorf("promoted entry should not outlive the memory TTL, has %v left", left)
	}
}

func TestNewMemoryDiskCache(t *testing.T) {
	c := NewMemoryDiskCache(time.Minute, t.TempDir(), time.Hour)
	_ = c.Set("k", []byte("v"), 0)
	if _, ok := c.Get("k"); !ok {
		t.Error("expected hit")
	}
	if err := c.Clear(); err != nil {
		t.Errorf("Clear failed: %v", err)
	}
}

func TestNopCache(t *testing.T) {
	var c Cache = NopCache{}
	_ = c.Set("k", []byte("v"), time.Hour)
	if _, ok := c.Get("k"); ok {
		t.Error("NopCache should never hit")
	}
}
