package device

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestLocalGuard_SerializesSameDevice(t *testing.T) {
	g := NewLocalGuard()

	var inside, maxInside int32
	var wg sync.WaitGroup

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			release, err := g.Acquire(context.Background(), "R58M123ABC")
			if err != nil {
				t.Errorf("Acquire returned error: %v", err)
				return
			}
			defer release()

			n := atomic.AddInt32(&inside, 1)
			for {
				m := atomic.LoadInt32(&maxInside)
				if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
					break
				}
			}
			time.Sleep(2 * time.Millisecond)
			atomic.AddInt32(&inside, -1)
		}()
	}
	wg.Wait()

	if maxInside != 1 {
		t.Fatalf("expected at most one holder at a time, saw %d", maxInside)
	}
}

func TestLocalGuard_DifferentDevicesDoNotBlock(t *testing.T) {
	g := NewLocalGuard()

	releaseA, err := g.Acquire(context.Background(), "A")
	if err != nil {
		t.Fatalf("Acquire A returned error: %v", err)
	}
	defer releaseA()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	releaseB, err := g.Acquire(ctx, "B")
	if err != nil {
		t.Fatalf("Acquire B should not block on A: %v", err)
	}
	releaseB()
}

func TestLocalGuard_AcquireHonoursCancellation(t *testing.T) {
	g := NewLocalGuard()

	release, err := g.Acquire(context.Background(), "A")
	if err != nil {
		t.Fatalf("Acquire returned error: %v", err)
	}
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if _, err := g.Acquire(ctx, "A"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

type recordingGuard struct {
	name   string
	events *[]string
	err    error
}

func (g recordingGuard) Acquire(ctx context.Context, deviceID string) (func(), error) {
	if g.err != nil {
		return nil, g.err
	}
	*g.events = append(*g.events, "acquire "+g.name)
	return func() { *g.events = append(*g.events, "release "+g.name) }, nil
}

func TestChainGuard_ReleasesInReverseOrder(t *testing.T) {
	var events []string
	chain := ChainGuard{
		recordingGuard{name: "local", events: &events},
		recordingGuard{name: "remote", events: &events},
	}

	release, err := chain.Acquire(context.Background(), "A")
	if err != nil {
		t.Fatalf("Acquire returned error: %v", err)
	}
	release()

	want := []string{"acquire local", "acquire remote", "release remote", "release local"}
	if len(events) != len(want) {
		t.Fatalf("unexpected events %v", events)
	}
	for i := range want {
		if events[i] != want[i] {
			t.Fatalf("unexpected events %v", events)
		}
	}
}

func TestChainGuard_FailureReleasesAcquired(t *testing.T) {
	var events []string
	chain := ChainGuard{
		recordingGuard{name: "local", events: &events},
		recordingGuard{name: "remote", events: &events, err: errors.New("lock busy")},
	}

	if _, err := chain.Acquire(context.Background(), "A"); err == nil {
		t.Fatalf("expected error from failing guard")
	}
	if len(events) != 2 || events[1] != "release local" {
		t.Fatalf("expected local guard released, got %v", events)
	}
}
