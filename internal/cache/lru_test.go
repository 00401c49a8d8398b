// Retrainer - Continuous Model Retraining Controller
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/retrainer

package cache

import (
	"sync"
	"testing"
	"time"
)

func TestLRU_GetAdd(t *testing.T) {
	t.Parallel()
	c := NewLRU[string, int](2, time.Minute)

	c.Add("a", 1)
	c.Add("b", 2)
	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Fatalf("Get(a) = %d, %v", v, ok)
	}

	// b is now least recently used.
	c.Add("c", 3)
	if _, ok := c.Get("b"); ok {
		t.Error("b should have been evicted")
	}
	if _, ok := c.Get("a"); !ok {
		t.Error("a should still be cached")
	}
	if c.Len() != 2 {
		t.Errorf("Len() = %d, want 2", c.Len())
	}

	c.Add("a", 10)
	if v, _ := c.Get("a"); v != 10 {
		t.Errorf("Get(a) after refresh = %d, want 10", v)
	}
	if !c.Remove("a") || c.Remove("a") {
		t.Error("Remove should succeed exactly once")
	}
}

func TestLRU_Expiry(t *testing.T) {
	t.Parallel()
	c := NewLRU[string, struct{}](10, time.Second)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	if c.Seen("evt-1") {
		t.Fatal("first Seen should be false")
	}
	if !c.Seen("evt-1") {
		t.Fatal("second Seen should be true")
	}

	now = now.Add(2 * time.Second)
	if c.Seen("evt-1") {
		t.Error("expired key should be seen as new")
	}
	hits, misses := c.Stats()
	if hits != 1 || misses != 2 {
		t.Errorf("Stats() = %d hits, %d misses; want 1, 2", hits, misses)
	}
}

func TestLRU_Defaults(t *testing.T) {
	t.Parallel()
	c := NewLRU[int, int](0, 0)
	if c.capacity != 1024 || c.ttl != 5*time.Minute {
		t.Errorf("defaults = %d, %v", c.capacity, c.ttl)
	}
}

func TestLRU_SeenConcurrent(t *testing.T) {
	t.Parallel()
	c := NewLRU[string, struct{}](100, time.Minute)

	var wg sync.WaitGroup
	var mu sync.Mutex
	fresh := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if !c.Seen("same") {
				mu.Lock()
				fresh++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if fresh != 1 {
		t.Errorf("%d goroutines saw the key as new, want 1", fresh)
	}
}
