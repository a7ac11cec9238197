package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestSetGet(t *testing.T) {
	c := New()
	c.Set("quote:sh600519", 1800.5, time.Minute)

	v, ok := c.Get("quote:sh600519")
	if !ok {
		t.Fatal("expected cache hit")
	}
	if v.(float64) != 1800.5 {
		t.Errorf("got %v, want 1800.5", v)
	}

	if _, ok := c.Get("quote:sh600036"); ok {
		t.Error("expected miss for unknown key")
	}
}

func TestTTLExpiry(t *testing.T) {
	c := New()
	c.Set("k", "v", 100*time.Millisecond)

	if _, ok := c.Get("k"); !ok {
		t.Fatal("expected hit before expiry")
	}

	time.Sleep(150 * time.Millisecond)
	if _, ok := c.Get("k"); ok {
		t.Error("expected miss after TTL elapsed")
	}
	if c.Len() != 0 {
		t.Errorf("expired entry should be lazily removed, len=%d", c.Len())
	}
}

func TestOverwriteLastWriteWins(t *testing.T) {
	c := New()
	c.Set("k", 1, time.Minute)
	c.Set("k", 2, time.Minute)

	v, ok := c.Get("k")
	if !ok || v.(int) != 2 {
		t.Errorf("got %v, want 2", v)
	}
}

func TestZeroTTLImmediatelyExpired(t *testing.T) {
	c := New()
	c.Set("k", "v", 0)
	if _, ok := c.Get("k"); ok {
		t.Error("zero ttl entry should not be readable")
	}
}

func TestDeleteAndFlush(t *testing.T) {
	c := New()
	c.Set("a", 1, time.Minute)
	c.Set("b", 2, time.Minute)

	c.Delete("a")
	if _, ok := c.Get("a"); ok {
		t.Error("deleted key still readable")
	}

	c.Flush()
	if c.Len() != 0 {
		t.Errorf("flush left %d entries", c.Len())
	}
}

func TestConcurrentAccess(t *testing.T) {
	c := New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("k%d", i%10)
			c.Set(key, i, time.Minute)
			c.Get(key)
		}(i)
	}
	wg.Wait()

	hits, misses := c.Stats()
	if hits+misses != 50 {
		t.Errorf("stats accounted %d reads, want 50", hits+misses)
	}
}
