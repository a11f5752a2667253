package jsbridge

import (
	"sync"

	"go.uber.org/zap"
)

// Job is a unit of deferred work delivered to the runtime-owning thread.
type Job func()

// Invoker delivers jobs to the runtime-owning thread. Jobs submitted
// through one Invoker run in submission order. It is the only sanctioned
// path from a background goroutine back into the engine; nothing else may
// touch runtime values off the owning thread.
//
// An Invoker is typically supplied by the hosting application. Loop is
// the default implementation.
type Invoker interface {
	// Schedule enqueues a job. It is safe to call from any goroutine.
	// After the hosting runtime is torn down the job is silently
	// dropped; the caller must not assume the job ran.
	Schedule(j Job)
}

// Loop is a FIFO job queue drained on the runtime-owning thread.
// Schedule may be called from any goroutine; Run and Drain must only be
// called by the owner.
type Loop struct {
	mu      sync.Mutex
	jobs    []Job
	wake    chan struct{}
	stopped bool
}

func NewLoop() *Loop {
	return &Loop{wake: make(chan struct{}, 1)}
}

// Schedule adds a job to the loop. Jobs scheduled after Stop are
// dropped.
func (l *Loop) Schedule(j Job) {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		Logger().Debug("job scheduled after loop stop, dropping")
		return
	}
	l.jobs = append(l.jobs, j)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Pending reports whether any jobs are queued.
func (l *Loop) Pending() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.jobs) > 0
}

// Drain runs queued jobs until the queue is empty, including jobs that
// were scheduled by the jobs themselves. It returns the number of jobs
// executed. Tests use Drain to make async delivery deterministic.
func (l *Loop) Drain() int {
	n := 0
	for {
		l.mu.Lock()
		if len(l.jobs) == 0 {
			l.mu.Unlock()
			return n
		}
		j := l.jobs[0]
		l.jobs = l.jobs[1:]
		l.mu.Unlock()

		j()
		n++
	}
}

// Run executes jobs until Stop is called, blocking while the queue is
// empty. It is the long-running form of Drain for hosts that dedicate a
// goroutine to the runtime.
func (l *Loop) Run() {
	for {
		l.Drain()

		l.mu.Lock()
		stopped, pending := l.stopped, len(l.jobs) > 0
		l.mu.Unlock()
		if stopped {
			return
		}
		if pending {
			continue
		}
		<-l.wake
	}
}

// Stop stops the loop and discards queued jobs. Further Schedule calls
// are dropped.
func (l *Loop) Stop() {
	l.mu.Lock()
	dropped := len(l.jobs)
	l.jobs = nil
	l.stopped = true
	l.mu.Unlock()

	if dropped > 0 {
		Logger().Debug("loop stopped with jobs pending", zap.Int("dropped", dropped))
	}

	select {
	case l.wake <- struct{}{}:
	default:
	}
}
