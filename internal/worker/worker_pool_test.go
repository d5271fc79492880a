package worker

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestPoolRunsAllTasks(t *testing.T) {
	p := NewPool(4, zerolog.Nop())
	p.Start()

	var count int32
	for i := 0; i < 50; i++ {
		p.Submit(func() {
			atomic.AddInt32(&count, 1)
		})
	}
	p.Stop()

	if count != 50 {
		t.Errorf("ran %d tasks, want 50", count)
	}
}

func TestPoolBoundsConcurrency(t *testing.T) {
	p := NewPool(3, zerolog.Nop())
	p.Start()

	var mu sync.Mutex
	var active, peak int

	for i := 0; i < 30; i++ {
		p.Submit(func() {
			mu.Lock()
			active++
			if active > peak {
				peak = active
			}
			mu.Unlock()

			time.Sleep(2 * time.Millisecond)

			mu.Lock()
			active--
			mu.Unlock()
		})
	}
	p.Stop()

	if peak > 3 {
		t.Errorf("peak concurrency = %d, want at most 3", peak)
	}
}

func TestPoolSurvivesPanic(t *testing.T) {
	p := NewPool(2, zerolog.Nop())
	p.Start()

	var count int32
	p.Submit(func() { panic("task blew up") })
	for i := 0; i < 10; i++ {
		p.Submit(func() { atomic.AddInt32(&count, 1) })
	}
	p.Stop()

	if count != 10 {
		t.Errorf("ran %d tasks after panic, want 10", count)
	}
}

func TestPoolMinimumOneWorker(t *testing.T) {
	p := NewPool(0, zerolog.Nop())
	p.Start()

	done := false
	p.Submit(func() { done = true })
	p.Stop()

	if !done {
		t.Error("task never ran with clamped pool size")
	}
}
