package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeLock struct {
	held    bool
	failErr error
}

func (f *fakeLock) TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if f.failErr != nil {
		return false, f.failErr
	}
	if f.held {
		return false, nil
	}
	f.held = true
	return true, nil
}

func (f *fakeLock) Unlock(ctx context.Context, key string) error {
	f.held = false
	return nil
}

func TestRunGateLocalOnlyRejectsConcurrentAcquire(t *testing.T) {
	g := newRunGate(nil)

	release1, ok1, err := g.tryAcquire(context.Background())
	if err != nil || !ok1 {
		t.Fatalf("first tryAcquire: ok=%v err=%v", ok1, err)
	}

	_, ok2, err := g.tryAcquire(context.Background())
	if err != nil {
		t.Fatalf("second tryAcquire error: %v", err)
	}
	if ok2 {
		t.Fatal("expected second tryAcquire to be rejected while first is held")
	}

	release1()

	_, ok3, err := g.tryAcquire(context.Background())
	if err != nil || !ok3 {
		t.Fatalf("tryAcquire after release: ok=%v err=%v", ok3, err)
	}
}

func TestRunGateWithDistributedLockRejectsWhenRedisHeld(t *testing.T) {
	lock := &fakeLock{held: true}
	g := newRunGate(lock)

	_, ok, err := g.tryAcquire(context.Background())
	if err != nil {
		t.Fatalf("tryAcquire error: %v", err)
	}
	if ok {
		t.Fatal("expected acquire to fail when the distributed lock is already held")
	}
}

func TestRunGatePropagatesDistributedLockError(t *testing.T) {
	wantErr := errors.New("redis unavailable")
	lock := &fakeLock{failErr: wantErr}
	g := newRunGate(lock)

	_, ok, err := g.tryAcquire(context.Background())
	if ok {
		t.Fatal("expected acquire to fail when the distributed lock errors")
	}
	if !errors.Is(err, wantErr) {
		t.Errorf("error = %v, want %v", err, wantErr)
	}

	// The local half must also be released so a subsequent attempt,
	// once Redis recovers, isn't blocked by our own stale local hold.
	lock.failErr = nil
	_, ok2, err2 := g.tryAcquire(context.Background())
	if err2 != nil || !ok2 {
		t.Fatalf("retry after recovery: ok=%v err=%v", ok2, err2)
	}
}

func TestCadenceSpecsAreFour(t *testing.T) {
	if len(cadenceSpecs) != 4 {
		t.Fatalf("len(cadenceSpecs) = %d, want 4", len(cadenceSpecs))
	}
}
