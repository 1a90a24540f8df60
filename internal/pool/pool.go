// Package pool runs file-scan tasks on a fixed set of long-lived workers.
//
// Each worker owns a slot with its own task channel and pending map. A panic
// inside a task kills that worker; its pending tasks are rejected with
// ErrWorkerFailed and the slot is respawned lazily on its next selection,
// up to MaxRespawns, after which the slot is permanently disabled.
package pool

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"
)

var (
	// ErrWorkerFailed rejects tasks that were pending on a crashed worker.
	ErrWorkerFailed = errors.New("worker failed")

	// ErrPoolClosed rejects submissions after Close.
	ErrPoolClosed = errors.New("worker pool closed")

	// ErrNoWorkers is returned when every slot has been disabled.
	ErrNoWorkers = errors.New("no usable workers")

	// ErrTaskCancelled resolves tasks cancelled before a worker ran them.
	ErrTaskCancelled = errors.New("task cancelled")
)

// MaxRespawns bounds how often a crashed slot is brought back.
const MaxRespawns = 3

// taskBuffer is the per-slot queue depth. Submissions beyond it block until
// the worker drains; the orchestrator caps in-flight tasks well below this.
const taskBuffer = 256

type slotState int

const (
	stateUnspawned slotState = iota
	stateRunning
	stateFailed
	stateDisabled
)

// Func is the work a pool executes. A panic inside Func is treated as a
// worker crash, not an error return.
type Func[Req, Res any] func(ctx context.Context, req Req) (Res, error)

// Task is a handle to one submitted request.
type Task[Res any] struct {
	id     uint64
	ctx    context.Context
	cancel context.CancelFunc
	detach func()

	mu        sync.Mutex
	done      chan struct{}
	res       Res
	err       error
	finished  bool
	cancelled bool
}

// Wait blocks until the task resolves or ctx fires.
func (t *Task[Res]) Wait(ctx context.Context) (Res, error) {
	select {
	case <-t.done:
		return t.res, t.err
	case <-ctx.Done():
		var zero Res
		return zero, ctx.Err()
	}
}

// Cancel resolves the task as cancelled if it has not finished. The worker
// is notified through the task context; cancellation is cooperative and
// Cancel does not wait for acknowledgment.
func (t *Task[Res]) Cancel() {
	t.cancel()
	t.mu.Lock()
	if !t.finished {
		t.cancelled = true
	}
	t.mu.Unlock()
	if t.detach != nil {
		t.detach()
	}
	t.resolve(*new(Res), ErrTaskCancelled)
}

func (t *Task[Res]) resolve(res Res, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.finished {
		return
	}
	t.finished = true
	t.res = res
	t.err = err
	close(t.done)
}

func (t *Task[Res]) isCancelled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cancelled
}

func (t *Task[Res]) isResolved() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.finished
}

type submission[Req, Res any] struct {
	req  Req
	task *Task[Res]
}

type slot[Req, Res any] struct {
	mu       sync.Mutex
	state    slotState
	respawns int
	tasks    chan submission[Req, Res]
	pending  map[uint64]*Task[Res]
	done     chan struct{}
}

// Pool distributes requests across worker slots.
type Pool[Req, Res any] struct {
	fn    Func[Req, Res]
	slots []*slot[Req, Res]

	mu     sync.Mutex
	closed bool
	nextID uint64
	rr     int
}

// New creates a pool of workers slots running fn. Workers spawn lazily on
// first selection. workers must be at least 1.
func New[Req, Res any](workers int, fn Func[Req, Res]) *Pool[Req, Res] {
	if workers < 1 {
		workers = 1
	}
	p := &Pool[Req, Res]{fn: fn}
	for i := 0; i < workers; i++ {
		p.slots = append(p.slots, &slot[Req, Res]{
			pending: make(map[uint64]*Task[Res]),
		})
	}
	return p
}

// Submit routes req to the least-loaded usable slot and returns its task
// handle. The task context derives from ctx; cancelling either cancels the
// task cooperatively.
func (p *Pool[Req, Res]) Submit(ctx context.Context, req Req) (*Task[Res], error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrPoolClosed
	}
	p.nextID++
	id := p.nextID
	s := p.selectSlot()
	p.mu.Unlock()

	if s == nil {
		return nil, ErrNoWorkers
	}

	taskCtx, cancel := context.WithCancel(ctx)
	t := &Task[Res]{id: id, ctx: taskCtx, cancel: cancel, done: make(chan struct{})}
	t.detach = func() { s.removePending(id) }

	s.mu.Lock()
	if s.state != stateRunning {
		// The slot crashed between selection and enqueue; reject like any
		// other pending task of the dead worker.
		s.mu.Unlock()
		cancel()
		return nil, ErrWorkerFailed
	}
	s.pending[id] = t
	ch := s.tasks
	s.mu.Unlock()

	ch <- submission[Req, Res]{req: req, task: t}
	return t, nil
}

// selectSlot picks the non-disabled slot with the fewest pending tasks,
// breaking ties round-robin. Called with p.mu held. Unspawned and failed
// slots are (re)spawned here; failed slots past the respawn cap flip to
// disabled.
func (p *Pool[Req, Res]) selectSlot() *slot[Req, Res] {
	n := len(p.slots)
	var best *slot[Req, Res]
	bestPending := 0

	for i := 0; i < n; i++ {
		s := p.slots[(p.rr+i)%n]
		s.mu.Lock()
		switch s.state {
		case stateDisabled:
			s.mu.Unlock()
			continue
		case stateFailed:
			if s.respawns >= MaxRespawns {
				s.state = stateDisabled
				s.mu.Unlock()
				continue
			}
			s.respawns++
			p.spawnLocked(s)
		case stateUnspawned:
			p.spawnLocked(s)
		}
		pending := len(s.pending)
		s.mu.Unlock()

		if best == nil || pending < bestPending {
			best = s
			bestPending = pending
		}
	}
	p.rr = (p.rr + 1) % n
	return best
}

// spawnLocked starts a fresh worker goroutine for s. Caller holds s.mu.
func (p *Pool[Req, Res]) spawnLocked(s *slot[Req, Res]) {
	s.state = stateRunning
	s.tasks = make(chan submission[Req, Res], taskBuffer)
	s.done = make(chan struct{})
	go p.runWorker(s, s.tasks, s.done)
}

// runWorker is one worker's lifetime. It drains the slot's channel until the
// channel closes; a panic in fn ends the lifetime early and rejects
// everything still pending on the slot.
func (p *Pool[Req, Res]) runWorker(s *slot[Req, Res], tasks chan submission[Req, Res], done chan struct{}) {
	defer close(done)
	defer func() {
		if r := recover(); r != nil {
			p.failSlot(s, fmt.Errorf("%w: %v", ErrWorkerFailed, r))
		}
	}()

	for sub := range tasks {
		t := sub.task
		if t.isResolved() {
			s.removePending(t.id)
			continue
		}
		if t.isCancelled() || t.ctx.Err() != nil {
			s.removePending(t.id)
			t.resolve(*new(Res), ErrTaskCancelled)
			continue
		}
		res, err := p.fn(t.ctx, sub.req)
		s.removePending(t.id)
		t.resolve(res, err)
		t.cancel()
	}
}

// failSlot marks s failed and rejects its pending tasks.
func (p *Pool[Req, Res]) failSlot(s *slot[Req, Res], cause error) {
	s.mu.Lock()
	s.state = stateFailed
	rejected := s.pending
	s.pending = make(map[uint64]*Task[Res])
	s.tasks = nil
	s.mu.Unlock()

	for _, t := range rejected {
		t.resolve(*new(Res), cause)
		t.cancel()
	}
}

func (s *slot[Req, Res]) removePending(id uint64) {
	s.mu.Lock()
	delete(s.pending, id)
	s.mu.Unlock()
}

// Close rejects future submissions, rejects all pending tasks, tells every
// live worker to stop, and waits for the terminations in parallel.
func (p *Pool[Req, Res]) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()

	var g errgroup.Group
	for _, s := range p.slots {
		s.mu.Lock()
		rejected := s.pending
		s.pending = make(map[uint64]*Task[Res])
		running := s.state == stateRunning
		tasks, done := s.tasks, s.done
		if running {
			s.state = stateDisabled
			s.tasks = nil
		} else {
			s.state = stateDisabled
		}
		s.mu.Unlock()

		for _, t := range rejected {
			t.resolve(*new(Res), ErrPoolClosed)
			t.cancel()
		}
		if running {
			g.Go(func() error {
				close(tasks)
				<-done
				return nil
			})
		}
	}
	return g.Wait()
}

// Usable reports whether at least min slots can still accept work.
func (p *Pool[Req, Res]) Usable(min int) bool {
	n := 0
	for _, s := range p.slots {
		s.mu.Lock()
		ok := s.state != stateDisabled && !(s.state == stateFailed && s.respawns >= MaxRespawns)
		s.mu.Unlock()
		if ok {
			n++
		}
	}
	return n >= min
}
