package traverse

import (
	"context"
	"fmt"
	"sync"
)

// Scheduler is a bounded-concurrency FIFO work queue. Workers may enqueue
// new items while processing, which is how directory traversal schedules
// discovered subdirectories without recursing on the call stack.
//
// Run returns once the queue is empty and every in-flight item has
// finished. Cancellation is non-preemptive: when the context fires, queued
// items are dropped and no new items are dequeued, but items already being
// processed run to completion before Run returns. That guarantee is what
// lets callers read their accumulators after Run without racing late
// writes.
type Scheduler[T any] struct {
	mu          sync.Mutex
	cond        *sync.Cond
	queue       []T
	outstanding int
	cancelled   bool
	panics      []error
}

// Run processes seeds with up to concurrency parallel workers. The worker
// callback receives the item and an enqueue function valid for the duration
// of the call. A panic inside one worker callback is recovered and recorded;
// the remaining items still drain. The recorded panics are returned joined
// with ctx.Err() (if any) after completion.
func Run[T any](ctx context.Context, seeds []T, concurrency int, worker func(item T, enqueue func(T))) error {
	if concurrency < 1 {
		concurrency = 1
	}

	s := &Scheduler[T]{}
	s.cond = sync.NewCond(&s.mu)

	s.mu.Lock()
	s.queue = append(s.queue, seeds...)
	s.outstanding = len(seeds)
	s.mu.Unlock()

	// Watch for cancellation: drop queued work, wake sleeping workers.
	watchDone := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			s.mu.Lock()
			s.cancelled = true
			s.outstanding -= len(s.queue)
			s.queue = nil
			s.cond.Broadcast()
			s.mu.Unlock()
		case <-watchDone:
		}
	}()

	var wg sync.WaitGroup
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.loop(worker)
		}()
	}
	wg.Wait()
	close(watchDone)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancelled {
		return ctx.Err()
	}
	if len(s.panics) > 0 {
		return s.panics[0]
	}
	return nil
}

func (s *Scheduler[T]) loop(worker func(item T, enqueue func(T))) {
	for {
		s.mu.Lock()
		for len(s.queue) == 0 && s.outstanding > 0 && !s.cancelled {
			s.cond.Wait()
		}
		if len(s.queue) == 0 {
			// Either everything drained or cancellation dropped the queue;
			// outstanding in-flight items belong to other workers.
			s.mu.Unlock()
			return
		}
		item := s.queue[0]
		s.queue = s.queue[1:]
		s.mu.Unlock()

		s.process(item, worker)

		s.mu.Lock()
		s.outstanding--
		if s.outstanding == 0 {
			s.cond.Broadcast()
		}
		s.mu.Unlock()
	}
}

func (s *Scheduler[T]) process(item T, worker func(item T, enqueue func(T))) {
	defer func() {
		if r := recover(); r != nil {
			s.mu.Lock()
			s.panics = append(s.panics, fmt.Errorf("traversal worker panic: %v", r))
			s.mu.Unlock()
		}
	}()
	worker(item, s.enqueue)
}

func (s *Scheduler[T]) enqueue(item T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancelled {
		return
	}
	s.queue = append(s.queue, item)
	s.outstanding++
	s.cond.Signal()
}
