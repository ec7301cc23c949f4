package wavelength

import (
	"sync"
	"testing"
)

func TestCellConsumeResets(t *testing.T) {
	c := NewCell()
	if got := c.Consume(); got != 0 {
		t.Fatalf("fresh cell got=%v", got)
	}
	c.Set(3.14)
	if got := c.Peek(); got != 3.14 {
		t.Fatalf("peek got=%v", got)
	}
	if got := c.Peek(); got != 3.14 {
		t.Fatalf("peek must not reset, got=%v", got)
	}
	if got := c.Consume(); got != 3.14 {
		t.Fatalf("consume got=%v", got)
	}
	if got := c.Consume(); got != 0 {
		t.Fatalf("second consume got=%v", got)
	}
}

func TestCellAcceptsNonPositive(t *testing.T) {
	c := NewCell()
	c.Set(-12.5)
	if got := c.Consume(); got != -12.5 {
		t.Fatalf("negative value got=%v", got)
	}
}

func TestCellConcurrentConsumeSeesEachSetOnce(t *testing.T) {
	c := NewCell()
	c.Set(1)

	const readers = 32
	var wg sync.WaitGroup
	var mu sync.Mutex
	hits := 0
	for i := 0; i < readers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = c.Peek()
			if c.Consume() == 1 {
				mu.Lock()
				hits++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if hits != 1 {
		t.Fatalf("expected exactly one consumer to observe the value, got %d", hits)
	}
}
