package interpreter

import (
	"context"
	"errors"
	"runtime"
	"sync/atomic"
	"testing"
	"time"
)

func TestWorkerPool_RunsEveryTask(t *testing.T) {
	pool := NewWorkerPool(4)

	var sum atomic.Int64
	tasks := make([]func(context.Context) error, 100)
	for i := range tasks {
		tasks[i] = func(context.Context) error {
			sum.Add(int64(i))
			return nil
		}
	}
	if err := pool.Execute(context.Background(), tasks); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if got := sum.Load(); got != 4950 {
		t.Errorf("Expected sum 4950, got %d", got)
	}
}

func TestWorkerPool_ErrorHandling(t *testing.T) {
	pool := NewWorkerPool(4)
	boom := errors.New("intentional error")

	tasks := make([]func(context.Context) error, 10)
	for i := range tasks {
		tasks[i] = func(context.Context) error {
			if i == 5 {
				return boom
			}
			return nil
		}
	}
	err := pool.Execute(context.Background(), tasks)
	if !errors.Is(err, boom) {
		t.Fatalf("Expected wrapped intentional error, got %v", err)
	}
	if want := "parallel execution failed at index 5: intentional error"; err.Error() != want {
		t.Errorf("Expected %q, got %q", want, err.Error())
	}
}

func TestWorkerPool_BoundsConcurrency(t *testing.T) {
	pool := NewWorkerPool(2)

	var running, peak atomic.Int32
	tasks := make([]func(context.Context) error, 20)
	for i := range tasks {
		tasks[i] = func(context.Context) error {
			n := running.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			running.Add(-1)
			return nil
		}
	}
	if err := pool.Execute(context.Background(), tasks); err != nil {
		t.Fatal(err)
	}
	if p := peak.Load(); p > 2 {
		t.Errorf("Expected at most 2 concurrent tasks, saw %d", p)
	}
}

func TestWorkerPool_CancelledContext(t *testing.T) {
	pool := NewWorkerPool(2)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var ran atomic.Int32
	tasks := []func(context.Context) error{
		func(context.Context) error { ran.Add(1); return nil },
		func(context.Context) error { ran.Add(1); return nil },
	}
	if err := pool.Execute(ctx, tasks); !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}
	if ran.Load() != 0 {
		t.Errorf("Expected no task to run, %d ran", ran.Load())
	}
}

func TestWorkerPool_DefaultWorkers(t *testing.T) {
	if got := NewWorkerPool(0).Workers(); got != runtime.NumCPU() {
		t.Errorf("Expected %d workers, got %d", runtime.NumCPU(), got)
	}
}
