package gate

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestNewValidatesCapacity(t *testing.T) {
	for _, capacity := range []int{0, -1, -100} {
		if _, err := New(capacity); !errors.Is(err, ErrInvalidCapacity) {
			t.Errorf("New(%d) error = %v, want ErrInvalidCapacity", capacity, err)
		}
	}

	g, err := New(3)
	if err != nil {
		t.Fatalf("New(3) error = %v", err)
	}
	if got := g.Capacity(); got != 3 {
		t.Errorf("Capacity() = %d, want 3", got)
	}
	if got := g.ActiveCount(); got != 0 {
		t.Errorf("ActiveCount() = %d, want 0", got)
	}
}

func TestCounterBalance(t *testing.T) {
	g, err := New(4)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 7; i++ {
		g.Admit()
	}
	for i := 0; i < 5; i++ {
		g.Release()
	}
	if got := g.ActiveCount(); got != 2 {
		t.Fatalf("ActiveCount() = %d, want 2", got)
	}
}

func TestAdmitHint(t *testing.T) {
	g, err := New(2)
	if err != nil {
		t.Fatal(err)
	}

	g.Admit()
	g.Admit()
	if got := g.ActiveCount(); got != 2 {
		t.Fatalf("ActiveCount() = %d, want 2", got)
	}
	if g.CanAdmit() {
		t.Fatal("CanAdmit() = true at capacity, want false")
	}

	g.Release()
	if got := g.ActiveCount(); got != 1 {
		t.Fatalf("ActiveCount() = %d, want 1", got)
	}
	if !g.CanAdmit() {
		t.Fatal("CanAdmit() = false below capacity, want true")
	}
	g.Release()
}

// TestCheckThenActRace pins down the known defect of the advisory pair: two
// callers that both observe a free slot before either admits will jointly
// exceed the capacity. TryAdmit exists because of this; the advisory
// behavior itself must not change silently.
func TestCheckThenActRace(t *testing.T) {
	g, err := New(1)
	if err != nil {
		t.Fatal(err)
	}

	firstSawRoom := g.CanAdmit()
	secondSawRoom := g.CanAdmit()
	if !firstSawRoom || !secondSawRoom {
		t.Fatalf("CanAdmit() = %v, %v before any Admit, want true, true", firstSawRoom, secondSawRoom)
	}

	g.Admit()
	g.Admit()
	if got := g.ActiveCount(); got != 2 {
		t.Fatalf("ActiveCount() = %d after racing admits, want 2 (over capacity 1)", got)
	}
	g.Release()
	g.Release()
}

func TestTryAdmitEnforcesCapacity(t *testing.T) {
	g, err := New(2)
	if err != nil {
		t.Fatal(err)
	}
	if !g.TryAdmit() || !g.TryAdmit() {
		t.Fatal("TryAdmit() = false with free slots, want true")
	}
	if g.TryAdmit() {
		t.Fatal("TryAdmit() = true at capacity, want false")
	}
	g.Release()
	if !g.TryAdmit() {
		t.Fatal("TryAdmit() = false after Release, want true")
	}
	g.Release()
	g.Release()
}

func TestTryAdmitConcurrent(t *testing.T) {
	const capacity = 8
	g, err := New(capacity)
	if err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 500; j++ {
				if !g.TryAdmit() {
					continue
				}
				if got := g.ActiveCount(); got > capacity {
					t.Errorf("ActiveCount() = %d, want <= %d", got, capacity)
				}
				g.Release()
			}
		}()
	}
	wg.Wait()

	if got := g.ActiveCount(); got != 0 {
		t.Fatalf("ActiveCount() = %d after all workers finished, want 0", got)
	}
}

func TestAcquireBlocksUntilRelease(t *testing.T) {
	g, err := New(1)
	if err != nil {
		t.Fatal(err)
	}
	if !g.TryAdmit() {
		t.Fatal("TryAdmit() = false on fresh gate")
	}

	acquired := make(chan error, 1)
	go func() {
		acquired <- g.Acquire(context.Background())
	}()

	select {
	case err := <-acquired:
		t.Fatalf("Acquire returned %v before Release", err)
	case <-time.After(50 * time.Millisecond):
	}

	g.Release()
	select {
	case err := <-acquired:
		if err != nil {
			t.Fatalf("Acquire() error = %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Acquire did not return after Release")
	}
	g.Release()
}

func TestAcquireHonorsContext(t *testing.T) {
	g, err := New(1)
	if err != nil {
		t.Fatal(err)
	}
	g.Admit()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := g.Acquire(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Acquire() error = %v, want DeadlineExceeded", err)
	}
	g.Release()
}

func TestAwaitDrain(t *testing.T) {
	g, err := New(2)
	if err != nil {
		t.Fatal(err)
	}

	// Drained gate: returns immediately.
	if err := g.AwaitDrain(context.Background()); err != nil {
		t.Fatalf("AwaitDrain() on idle gate error = %v", err)
	}

	g.Admit()
	g.Admit()

	done := make(chan error, 1)
	go func() {
		done <- g.AwaitDrain(context.Background())
	}()

	g.Release()
	select {
	case err := <-done:
		t.Fatalf("AwaitDrain returned %v with one slot still active", err)
	case <-time.After(50 * time.Millisecond):
	}

	g.Release()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("AwaitDrain() error = %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("AwaitDrain did not return after full drain")
	}
	if got := g.ActiveCount(); got != 0 {
		t.Fatalf("ActiveCount() = %d after drain, want 0", got)
	}
}

func TestAwaitDrainLeakedSlot(t *testing.T) {
	g, err := New(1)
	if err != nil {
		t.Fatal(err)
	}
	g.Admit() // never released

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	if err := g.AwaitDrain(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("AwaitDrain() error = %v, want DeadlineExceeded", err)
	}
}

func TestReleaseWithoutAdmitPanics(t *testing.T) {
	g, err := New(1)
	if err != nil {
		t.Fatal(err)
	}
	defer func() {
		if recover() == nil {
			t.Fatal("Release without Admit did not panic")
		}
	}()
	g.Release()
}

func TestDoReleasesOnPanic(t *testing.T) {
	g, err := New(1)
	if err != nil {
		t.Fatal(err)
	}

	func() {
		defer func() { recover() }()
		g.Do(context.Background(), func() { panic("boom") })
	}()

	if got := g.ActiveCount(); got != 0 {
		t.Fatalf("ActiveCount() = %d after panicking task, want 0", got)
	}
	if err := g.Do(context.Background(), func() {}); err != nil {
		t.Fatalf("Do() error = %v", err)
	}
}

func TestConcurrentWorkload(t *testing.T) {
	const capacity = 10
	g, err := New(capacity)
	if err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				if err := g.Acquire(context.Background()); err != nil {
					t.Errorf("Acquire() error = %v", err)
					return
				}
				if got := g.ActiveCount(); got > capacity {
					t.Errorf("ActiveCount() = %d, want <= %d", got, capacity)
				}
				g.Release()
			}
		}()
	}
	wg.Wait()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := g.AwaitDrain(ctx); err != nil {
		t.Fatalf("AwaitDrain() after workload error = %v", err)
	}
}
