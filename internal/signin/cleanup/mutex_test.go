package cleanup

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met before deadline")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestMutex_QueuedRunInSubmissionOrder(t *testing.T) {
	m := NewMutex(nil)
	ctx := context.Background()

	var mu sync.Mutex
	var order []int
	record := func(i int) {
		mu.Lock()
		order = append(order, i)
		mu.Unlock()
	}

	started := make(chan struct{})
	release := make(chan struct{})
	firstErr := errors.New("first failed")
	thirdErr := errors.New("third failed")

	res1 := make(chan error, 1)
	go func() {
		res1 <- m.Run(ctx, func(ctx context.Context) error {
			close(started)
			<-release
			record(1)
			return firstErr
		})
	}()
	<-started

	res2 := make(chan error, 1)
	go func() {
		res2 <- m.Run(ctx, func(ctx context.Context) error {
			record(2)
			return nil
		})
	}()
	waitFor(t, func() bool { return m.Queued() == 1 })

	res3 := make(chan error, 1)
	go func() {
		res3 <- m.Run(ctx, func(ctx context.Context) error {
			record(3)
			return thirdErr
		})
	}()
	waitFor(t, func() bool { return m.Queued() == 2 })

	mu.Lock()
	if len(order) != 0 {
		t.Fatalf("queued operations ran before the first completed: %v", order)
	}
	mu.Unlock()

	close(release)

	if err := <-res1; !errors.Is(err, firstErr) {
		t.Errorf("initiator should get its own error, got %v", err)
	}
	if err := <-res2; err != nil {
		t.Errorf("second operation should succeed, got %v", err)
	}
	if err := <-res3; !errors.Is(err, thirdErr) {
		t.Errorf("third operation should get its own error, got %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(order) != 3 || order[0] != 1 || order[1] != 2 || order[2] != 3 {
		t.Errorf("expected order [1 2 3], got %v", order)
	}
	if m.InProgress() {
		t.Error("lock should be released after drain")
	}
}

func TestMutex_NeverOverlaps(t *testing.T) {
	m := NewMutex(nil)
	ctx := context.Background()

	var active, maxActive int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = m.Run(ctx, func(ctx context.Context) error {
				n := atomic.AddInt32(&active, 1)
				for {
					cur := atomic.LoadInt32(&maxActive)
					if n <= cur || atomic.CompareAndSwapInt32(&maxActive, cur, n) {
						break
					}
				}
				time.Sleep(100 * time.Microsecond)
				atomic.AddInt32(&active, -1)
				return nil
			})
		}()
	}
	wg.Wait()

	if maxActive != 1 {
		t.Errorf("expected at most 1 concurrent operation, saw %d", maxActive)
	}
	if m.InProgress() || m.Queued() != 0 {
		t.Error("mutex should be idle after all operations")
	}
}

func TestMutex_ReleasesAfterPanic(t *testing.T) {
	m := NewMutex(nil)
	ctx := context.Background()

	err := m.Run(ctx, func(ctx context.Context) error {
		panic("boom")
	})
	if !errors.Is(err, ErrOperationPanicked) {
		t.Fatalf("expected ErrOperationPanicked, got %v", err)
	}
	if m.InProgress() {
		t.Fatal("lock should be released after panic")
	}

	ran := false
	if err := m.Run(ctx, func(ctx context.Context) error { ran = true; return nil }); err != nil {
		t.Fatalf("follow-up run failed: %v", err)
	}
	if !ran {
		t.Error("follow-up operation did not run")
	}
}
