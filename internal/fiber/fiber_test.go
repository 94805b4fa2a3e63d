package fiber

import (
	"sync"
	"sync/atomic"
	"testing"
)

func TestParallelExecuteVisitsEveryIndexExactlyOnce(t *testing.T) {
	const n = 200
	var seen [n]int32
	p := NewPool(8)
	p.ParallelExecute(nil, n, func(_ any, i int) {
		atomic.AddInt32(&seen[i], 1)
	})
	for i, v := range seen {
		if v != 1 {
			t.Fatalf("index %d visited %d times, want 1", i, v)
		}
	}
}

func TestParallelExecuteWithZeroOrNegativeNIsANoOp(t *testing.T) {
	p := NewPool(4)
	called := false
	p.ParallelExecute(nil, 0, func(_ any, _ int) { called = true })
	p.ParallelExecute(nil, -5, func(_ any, _ int) { called = true })
	if called {
		t.Fatal("ParallelExecute should not invoke fn when n <= 0")
	}
}

func TestParallelExecuteRespectsWorkerLimit(t *testing.T) {
	const workers = 3
	p := NewPool(workers)
	var cur, max int32
	var mu sync.Mutex
	p.ParallelExecute(nil, 50, func(_ any, _ int) {
		n := atomic.AddInt32(&cur, 1)
		mu.Lock()
		if n > max {
			max = n
		}
		mu.Unlock()
		atomic.AddInt32(&cur, -1)
	})
	if max > workers {
		t.Fatalf("observed %d concurrent workers, want <= %d", max, workers)
	}
}

func TestNewPoolWithNonPositiveWorkersRunsUnbounded(t *testing.T) {
	const n = 100
	p := NewPool(0)
	var count int32
	p.ParallelExecute(nil, n, func(_ any, _ int) {
		atomic.AddInt32(&count, 1)
	})
	if count != n {
		t.Fatalf("count = %d, want %d", count, n)
	}
}

func TestParallelExecutePassesSharedContextToEveryCall(t *testing.T) {
	type sharedCtx struct{ tag string }
	ctx := &sharedCtx{tag: "frame-7"}
	p := NewPool(4)
	var mismatches int32
	p.ParallelExecute(ctx, 16, func(c any, _ int) {
		if c.(*sharedCtx).tag != "frame-7" {
			atomic.AddInt32(&mismatches, 1)
		}
	})
	if mismatches != 0 {
		t.Fatalf("%d calls received an unexpected ctx value", mismatches)
	}
}

func TestBarrierWaitDoesNotPanic(t *testing.T) {
	BarrierWait()
}
