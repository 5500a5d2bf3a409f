package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/vietddude/authguard/internal/core/clock"
)

type mockSweeper struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (m *mockSweeper) Preventive(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	return 1, m.err
}

func (m *mockSweeper) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func TestJanitor_SweepsEveryInterval(t *testing.T) {
	clk := clock.NewFake()
	sweeper := &mockSweeper{}
	j := NewJanitor(sweeper, time.Minute, clk, nil)

	j.Start(context.Background())
	j.Start(context.Background()) // no-op

	clk.Advance(59 * time.Second)
	if sweeper.count() != 0 {
		t.Fatalf("expected no sweep before the interval, got %d", sweeper.count())
	}

	clk.Advance(time.Second)
	if sweeper.count() != 1 {
		t.Fatalf("expected 1 sweep, got %d", sweeper.count())
	}

	clk.Advance(2 * time.Minute)
	if sweeper.count() != 3 {
		t.Errorf("expected 3 sweeps, got %d", sweeper.count())
	}
}

func TestJanitor_KeepsRunningAfterFailure(t *testing.T) {
	clk := clock.NewFake()
	sweeper := &mockSweeper{err: errors.New("storage down")}
	j := NewJanitor(sweeper, time.Minute, clk, nil)
	j.Start(context.Background())

	clk.Advance(2 * time.Minute)
	if sweeper.count() != 2 {
		t.Errorf("expected 2 sweeps, got %d", sweeper.count())
	}
}

func TestJanitor_Stop(t *testing.T) {
	clk := clock.NewFake()
	sweeper := &mockSweeper{}
	j := NewJanitor(sweeper, time.Minute, clk, nil)
	j.Start(context.Background())

	clk.Advance(time.Minute)
	j.Stop()
	clk.Advance(time.Hour)

	if sweeper.count() != 1 {
		t.Errorf("expected no sweeps after Stop, got %d", sweeper.count())
	}
	if clk.Pending() != 0 {
		t.Errorf("expected no pending timers, got %d", clk.Pending())
	}
}

func TestJanitor_StopsWithContext(t *testing.T) {
	clk := clock.NewFake()
	sweeper := &mockSweeper{}
	j := NewJanitor(sweeper, time.Minute, clk, nil)

	ctx, cancel := context.WithCancel(context.Background())
	j.Start(ctx)
	cancel()
	clk.Advance(time.Hour)

	if sweeper.count() != 0 {
		t.Errorf("expected no sweeps after cancel, got %d", sweeper.count())
	}
}

func TestJanitor_Disabled(t *testing.T) {
	clk := clock.NewFake()
	j := NewJanitor(&mockSweeper{}, 0, clk, nil)
	j.Start(context.Background())

	if clk.Pending() != 0 {
		t.Error("disabled janitor must not schedule sweeps")
	}
}

type blockingSweeper struct {
	entered chan struct{}
	release chan struct{}
}

func (b *blockingSweeper) Preventive(ctx context.Context) (int, error) {
	close(b.entered)
	<-b.release
	return 0, nil
}

func TestJanitor_StopWaitsForSweep(t *testing.T) {
	clk := clock.NewFake()
	sweeper := &blockingSweeper{entered: make(chan struct{}), release: make(chan struct{})}
	j := NewJanitor(sweeper, time.Minute, clk, nil)
	j.Start(context.Background())

	go clk.Advance(time.Minute)
	<-sweeper.entered

	stopped := make(chan struct{})
	go func() {
		j.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
		t.Fatal("Stop returned while a sweep was still running")
	case <-time.After(50 * time.Millisecond):
	}

	close(sweeper.release)
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("Stop did not return after the sweep finished")
	}

	if clk.Pending() != 0 {
		t.Errorf("expected no sweep scheduled after Stop, got %d", clk.Pending())
	}
}
