package uithread

import (
	"errors"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func newRunning(t *testing.T) *Dispatcher {
	t.Helper()
	d := New(slog.New(slog.NewTextHandler(os.Stderr, nil)))
	done := make(chan struct{})
	go func() {
		d.Run()
		close(done)
	}()
	t.Cleanup(func() {
		d.Close()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Error("Run did not exit after Close")
		}
	})
	return d
}

func TestInvokeSerializesConcurrentCallers(t *testing.T) {
	d := newRunning(t)

	// Tasks from competing goroutines must never overlap: the inFlight
	// counter would exceed 1 if two ran at once.
	var inFlight, maxSeen int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = d.Invoke(func() error {
				cur := atomic.AddInt32(&inFlight, 1)
				for {
					prev := atomic.LoadInt32(&maxSeen)
					if cur <= prev || atomic.CompareAndSwapInt32(&maxSeen, prev, cur) {
						break
					}
				}
				time.Sleep(time.Millisecond)
				atomic.AddInt32(&inFlight, -1)
				return nil
			})
		}()
	}
	wg.Wait()
	if got := atomic.LoadInt32(&maxSeen); got != 1 {
		t.Errorf("max concurrent tasks = %d, want 1", got)
	}
}

func TestInvokeReturnsFnError(t *testing.T) {
	d := newRunning(t)
	want := errors.New("boom")
	if err := d.Invoke(func() error { return want }); !errors.Is(err, want) {
		t.Errorf("got %v, want %v", err, want)
	}
}

func TestInvokeRecoversPanic(t *testing.T) {
	d := newRunning(t)
	err := d.Invoke(func() error { panic("kaboom") })
	if err == nil {
		t.Fatal("expected error from panicking task")
	}
	if got := err.Error(); got != "ui task panic: kaboom" {
		t.Errorf("error = %q", got)
	}
	// The dispatcher must still be usable after a panic.
	if err := d.Invoke(func() error { return nil }); err != nil {
		t.Errorf("dispatcher unusable after panic: %v", err)
	}
}

func TestPostIsFireAndForget(t *testing.T) {
	d := newRunning(t)
	ran := make(chan struct{})
	if err := d.Post(func() { close(ran) }); err != nil {
		t.Fatalf("post: %v", err)
	}
	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Error("posted task never ran")
	}
}

func TestCloseDrainsPendingPosts(t *testing.T) {
	d := New(nil)
	var mu sync.Mutex
	count := 0
	for i := 0; i < 5; i++ {
		if err := d.Post(func() {
			mu.Lock()
			count++
			mu.Unlock()
		}); err != nil {
			t.Fatalf("post %d: %v", i, err)
		}
	}
	d.Close()
	d.Run() // drains and returns immediately
	mu.Lock()
	defer mu.Unlock()
	if count != 5 {
		t.Errorf("drained %d tasks, want 5", count)
	}
}

func TestCallsAfterCloseReturnErrClosed(t *testing.T) {
	d := New(nil)
	d.Close()
	if err := d.Invoke(func() error { return nil }); !errors.Is(err, ErrClosed) {
		t.Errorf("Invoke after Close = %v, want ErrClosed", err)
	}
	if err := d.Post(func() {}); !errors.Is(err, ErrClosed) {
		t.Errorf("Post after Close = %v, want ErrClosed", err)
	}
	d.Close() // idempotent
}
