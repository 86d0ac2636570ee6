package cache

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestTTLCacheExpiresEntries(t *testing.T) {
	c := NewTTLCache[string, int](Config{DefaultTTL: 10 * time.Millisecond})

	c.Set("k", 42)
	if v, ok := c.Get("k"); !ok || v != 42 {
		t.Fatalf("expected hit with 42, got %v %v", v, ok)
	}

	time.Sleep(20 * time.Millisecond)
	if _, ok := c.Get("k"); ok {
		t.Fatal("expected entry to have expired")
	}
}

func TestAsyncTTLCacheCollapsesConcurrentLoads(t *testing.T) {
	c := NewAsyncTTLCache[string, int](Config{DefaultTTL: time.Minute})

	var loadCount atomic.Int32
	loader := func(string) (int, error) {
		loadCount.Add(1)
		time.Sleep(10 * time.Millisecond)
		return 7, nil
	}

	results := make(chan int, 5)
	for i := 0; i < 5; i++ {
		go func() {
			v, err := c.GetWithTTL("shared-key", time.Minute, loader)
			if err != nil {
				t.Error(err)
			}
			results <- v
		}()
	}

	for i := 0; i < 5; i++ {
		if v := <-results; v != 7 {
			t.Fatalf("expected 7, got %d", v)
		}
	}

	if loadCount.Load() != 1 {
		t.Fatalf("expected exactly 1 loader call, got %d", loadCount.Load())
	}
}
