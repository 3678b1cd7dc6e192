package clock

import (
	"sync"
	"testing"
)

func TestSystemStrictlyIncreasing(t *testing.T) {
	c := NewSystem()
	prev := c.Now()
	for i := 0; i < 1000; i++ {
		now := c.Now()
		if now <= prev {
			t.Fatalf("reading %d: %d <= %d", i, now, prev)
		}
		prev = now
	}
}

func TestSystemConcurrentUnique(t *testing.T) {
	c := NewSystem()
	const n = 8
	const per = 200

	var mu sync.Mutex
	seen := make(map[uint64]struct{}, n*per)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			local := make([]uint64, 0, per)
			for j := 0; j < per; j++ {
				local = append(local, c.Now())
			}
			mu.Lock()
			defer mu.Unlock()
			for _, v := range local {
				seen[v] = struct{}{}
			}
		}()
	}
	wg.Wait()
	if len(seen) != n*per {
		t.Errorf("unique readings = %d, want %d", len(seen), n*per)
	}
}

func TestManual(t *testing.T) {
	m := NewManual(100, 10)
	if got := m.Now(); got != 100 {
		t.Errorf("first = %d, want 100", got)
	}
	if got := m.Now(); got != 110 {
		t.Errorf("second = %d, want 110", got)
	}
}
