package scheduler

import (
	"log"
	"sync"
	"sync/atomic"
	"time"
)

// Looper runs posted functions one at a time on a single goroutine, in the
// order they were posted. Delayed functions join the same queue when their
// timer fires.
type Looper struct {
	mu      sync.Mutex
	queue   []func()
	stopped bool

	wake chan struct{}
	quit chan struct{}
	done chan struct{}
}

// NewLooper starts the looper goroutine.
func NewLooper() *Looper {
	l := &Looper{
		wake: make(chan struct{}, 1),
		quit: make(chan struct{}),
		done: make(chan struct{}),
	}
	go l.loop()
	return l
}

// Post queues fn. It returns false once the looper is stopped.
func (l *Looper) Post(fn func()) bool {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return false
	}
	l.queue = append(l.queue, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
	return true
}

// PostDelayed queues fn after delay. The returned cancel prevents fn from
// running if it has not started yet, even when it is already queued.
func (l *Looper) PostDelayed(fn func(), delay time.Duration) (cancel func()) {
	var cancelled atomic.Bool
	timer := time.AfterFunc(delay, func() {
		l.Post(func() {
			if !cancelled.Load() {
				fn()
			}
		})
	})
	return func() {
		cancelled.Store(true)
		timer.Stop()
	}
}

// Stop discards queued functions and waits for the running one to return.
// It must not be called from the looper goroutine.
func (l *Looper) Stop() {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		<-l.done
		return
	}
	l.stopped = true
	l.queue = nil
	l.mu.Unlock()

	close(l.quit)
	<-l.done
}

func (l *Looper) loop() {
	defer close(l.done)

	for {
		select {
		case <-l.quit:
			return
		case <-l.wake:
		}

		for {
			fn, ok := l.next()
			if !ok {
				break
			}
			l.run(fn)
		}
	}
}

func (l *Looper) next() (func(), bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.stopped || len(l.queue) == 0 {
		return nil, false
	}
	fn := l.queue[0]
	l.queue[0] = nil
	l.queue = l.queue[1:]
	return fn, true
}

func (l *Looper) run(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Looper task panicked: %v", r)
		}
	}()
	fn()
}
