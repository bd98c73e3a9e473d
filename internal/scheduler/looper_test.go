package scheduler

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLooperRunsInOrder(t *testing.T) {
	l := NewLooper()
	defer l.Stop()

	var (
		mu  sync.Mutex
		got []int
	)
	done := make(chan struct{})
	for i := 0; i < 5; i++ {
		i := i
		l.Post(func() {
			mu.Lock()
			got = append(got, i)
			mu.Unlock()
			if i == 4 {
				close(done)
			}
		})
	}

	<-done
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{0, 1, 2, 3, 4}, got)
}

func TestLooperPostDelayedCancel(t *testing.T) {
	l := NewLooper()
	defer l.Stop()

	ran := make(chan string, 2)
	cancel := l.PostDelayed(func() { ran <- "cancelled" }, 20*time.Millisecond)
	l.PostDelayed(func() { ran <- "kept" }, 40*time.Millisecond)
	cancel()

	select {
	case name := <-ran:
		assert.Equal(t, "kept", name)
	case <-time.After(time.Second):
		t.Fatal("delayed task did not run")
	}

	select {
	case name := <-ran:
		t.Fatalf("unexpected task %q ran", name)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestLooperSurvivesPanic(t *testing.T) {
	l := NewLooper()
	defer l.Stop()

	done := make(chan struct{})
	l.Post(func() { panic("boom") })
	l.Post(func() { close(done) })

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("looper stopped after a panicking task")
	}
}

func TestLooperStop(t *testing.T) {
	l := NewLooper()
	l.Stop()
	l.Stop()

	require.False(t, l.Post(func() {}))
}
