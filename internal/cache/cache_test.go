package cache

import (
	"fmt"
	"testing"
	"time"
)

func TestTTLCacheBasics(t *testing.T) {
	c := NewTTL[string](10, time.Minute)

	if _, ok := c.Get("missing"); ok {
		t.Fatal("expected miss for unknown key")
	}

	c.Set("golang tutorial", "research-a")
	got, ok := c.Get("golang tutorial")
	if !ok || got != "research-a" {
		t.Fatalf("Get = %q, %v", got, ok)
	}

	c.Delete("golang tutorial")
	if _, ok := c.Get("golang tutorial"); ok {
		t.Fatal("expected miss after Delete")
	}
}

func TestTTLCacheExpiry(t *testing.T) {
	c := NewTTL[int](10, 20*time.Millisecond)
	c.Set("k", 1)
	if _, ok := c.Get("k"); !ok {
		t.Fatal("expected hit before expiry")
	}

	time.Sleep(40 * time.Millisecond)
	if _, ok := c.Get("k"); ok {
		t.Fatal("expected miss after expiry")
	}
	if c.Len() != 0 {
		t.Fatalf("Len = %d, want 0", c.Len())
	}
}

func TestTTLCacheEviction(t *testing.T) {
	c := NewTTL[int](3, time.Minute)
	for i := 0; i < 3; i++ {
		c.Set(fmt.Sprintf("k%d", i), i)
		time.Sleep(time.Millisecond)
	}
	c.Set("k3", 3)

	if c.Len() != 3 {
		t.Fatalf("Len = %d, want 3", c.Len())
	}
	if _, ok := c.Get("k0"); ok {
		t.Fatal("expected oldest entry k0 to be evicted")
	}
	if _, ok := c.Get("k3"); !ok {
		t.Fatal("expected newest entry k3 to survive")
	}
}

func TestTTLCacheModify(t *testing.T) {
	c := NewTTL[int](10, time.Minute)

	for i := 1; i <= 3; i++ {
		got, ok := c.Modify("counter", func(current int, _ bool) int { return current + 1 })
		if !ok || got != i {
			t.Fatalf("Modify #%d = %d, %v", i, got, ok)
		}
	}

	got, _ := c.Get("counter")
	if got != 3 {
		t.Fatalf("counter = %d, want 3", got)
	}
}

func TestKeyNormalization(t *testing.T) {
	if Key("  Go Tutorial ") != "go tutorial" {
		t.Fatalf("Key = %q", Key("  Go Tutorial "))
	}
}
