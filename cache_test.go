package qrvision

import (
	"fmt"
	"testing"
	"time"
)

func TestSymbolCacheExpires(t *testing.T) {
	clock := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c := NewSymbolCache(time.Minute)
	c.now = func() time.Time { return clock }

	c.Set("k", []byte("png"))
	if got, ok := c.Get("k"); !ok || string(got) != "png" {
		t.Fatalf("expected cached value, got %q %v", got, ok)
	}

	clock = clock.Add(time.Minute)
	if _, ok := c.Get("k"); ok {
		t.Fatalf("expected entry to expire after ttl")
	}
}

func TestSymbolCacheBounded(t *testing.T) {
	c := NewSymbolCache(time.Hour)
	for i := 0; i < maxCachedSymbols+10; i++ {
		c.Set(fmt.Sprint(i), []byte{1})
	}
	if c.Len() > maxCachedSymbols {
		t.Fatalf("expected at most %d entries, got %d", maxCachedSymbols, c.Len())
	}

	c.Invalidate()
	if c.Len() != 0 {
		t.Fatalf("expected empty cache after invalidate, got %d", c.Len())
	}
}
