package exectask

import (
	"sync"
	"testing"
)

func TestIDGeneratorStartsAtOne(t *testing.T) {
	g := NewIDGenerator()
	if id := g.Next(); id != 1 {
		t.Errorf("first Next() = %d, want 1", id)
	}
	if id := g.Next(); id != 2 {
		t.Errorf("second Next() = %d, want 2", id)
	}
}

func TestIDGeneratorConcurrentUnique(t *testing.T) {
	g := NewIDGenerator()
	const n = 1000
	ids := make([]uint64, n)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ids[i] = g.Next()
		}(i)
	}
	wg.Wait()

	seen := make(map[uint64]bool, n)
	for _, id := range ids {
		if seen[id] {
			t.Fatalf("duplicate id %d generated under concurrency", id)
		}
		seen[id] = true
	}
}
