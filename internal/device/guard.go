package device

import (
	"context"
	"sync"
)

// Guard serializes access to one device. The returned release func must be
// called exactly once.
type Guard interface {
	Acquire(ctx context.Context, deviceID string) (func(), error)
}

// LocalGuard is an in-process per-device mutex that honours cancellation.
type LocalGuard struct {
	mu    sync.Mutex
	slots map[string]chan struct{}
}

func NewLocalGuard() *LocalGuard {
	return &LocalGuard{slots: make(map[string]chan struct{})}
}

func (g *LocalGuard) Acquire(ctx context.Context, deviceID string) (func(), error) {
	slot := g.slot(deviceID)

	select {
	case slot <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() { <-slot })
	}, nil
}

func (g *LocalGuard) slot(deviceID string) chan struct{} {
	g.mu.Lock()
	defer g.mu.Unlock()

	s, ok := g.slots[deviceID]
	if !ok {
		s = make(chan struct{}, 1)
		g.slots[deviceID] = s
	}
	return s
}

// ChainGuard acquires each guard in order and releases in reverse.
type ChainGuard []Guard

func (c ChainGuard) Acquire(ctx context.Context, deviceID string) (func(), error) {
	releases := make([]func(), 0, len(c))
	releaseAll := func() {
		for i := len(releases) - 1; i >= 0; i-- {
			releases[i]()
		}
	}

	for _, g := range c {
		release, err := g.Acquire(ctx, deviceID)
		if err != nil {
			releaseAll()
			return nil, err
		}
		releases = append(releases, release)
	}

	return releaseAll, nil
}
