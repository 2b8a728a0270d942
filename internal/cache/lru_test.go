package cache

import (
	"testing"
	"time"
)

func TestLRUCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c := NewLRUCache[int](2, time.Minute)
	c.Set("2024", 1)
	c.Set("2025", 2)
	if _, ok := c.Get("2024"); !ok {
		t.Fatal("expected 2024 to be cached")
	}
	c.Set("2026", 3)

	if _, ok := c.Get("2025"); ok {
		t.Fatal("2025 should have been evicted")
	}
	if v, ok := c.Get("2024"); !ok || v != 1 {
		t.Fatalf("2024 should survive, got %v %v", v, ok)
	}
	if c.Size() != 2 {
		t.Fatalf("expected size 2, got %d", c.Size())
	}
}

func TestLRUCache_TTL(t *testing.T) {
	c := NewLRUCache[string](4, time.Minute)
	now := time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	c.Set("a", "x")
	c.Set("b", "y")
	now = now.Add(30 * time.Second)
	c.Set("b", "z") // refreshes b

	now = now.Add(45 * time.Second)
	if _, ok := c.Get("a"); ok {
		t.Fatal("a should have expired")
	}
	if v, ok := c.Get("b"); !ok || v != "z" {
		t.Fatalf("b should be fresh, got %q %v", v, ok)
	}

	now = now.Add(time.Hour)
	if removed := c.CleanExpired(); removed != 1 {
		t.Fatalf("expected 1 expired entry, got %d", removed)
	}
}

func TestLRUCache_Purge(t *testing.T) {
	c := NewLRUCache[int](4, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Purge()
	if c.Size() != 0 {
		t.Fatalf("expected empty cache, got %d", c.Size())
	}
	if _, ok := c.Get("a"); ok {
		t.Fatal("a should be gone")
	}
	c.Set("c", 3)
	if v, ok := c.Get("c"); !ok || v != 3 {
		t.Fatal("cache should be usable after purge")
	}
}
