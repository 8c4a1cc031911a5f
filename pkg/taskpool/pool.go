// Package taskpool runs units of work on a fixed set of worker goroutines
// with a bounded FIFO backlog, per-task-type deadlines and a configurable
// overload policy.
//
// Cancellation is cooperative. Every task receives a context that the pool
// cancels when the task's deadline elapses; the work is expected to poll it
// (see IsCancelled) at safe points and return early. The pool never
// abandons a running task: whatever the work returns, even after its
// deadline, is delivered through the Handle.
package taskpool

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	apperrors "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/metrics"
)

// Task types with a dedicated deadline.
const (
	TaskBuildIndex   = "build_index"
	TaskPersistIndex = "persist_index"
	TaskSearch       = "search"
	TaskAutocomplete = "autocomplete"
)

// DefaultTimeout applies to task types missing from the timeout table.
const DefaultTimeout = time.Second

var defaultTimeouts = map[string]time.Duration{
	TaskBuildIndex:   120 * time.Second,
	TaskPersistIndex: 4 * time.Hour,
	TaskSearch:       time.Second,
	TaskAutocomplete: time.Second,
}

var (
	ErrQueueFull    = apperrors.ErrQueueFull
	ErrPoolStopping = apperrors.ErrPoolStopping
	// ErrTaskTimeout is the cancellation cause of a task whose deadline
	// elapsed. Work can tell it apart from caller cancellation with
	// context.Cause.
	ErrTaskTimeout = fmt.Errorf("%w: task deadline exceeded", apperrors.ErrTimeout)
)

// Policy decides what Submit does when the queue is at capacity.
type Policy int

const (
	// PolicyBlock waits for space, for shutdown, or for the submitter's
	// context, whichever comes first.
	PolicyBlock Policy = iota
	// PolicyDiscard drops the submission with ErrQueueFull.
	PolicyDiscard
	// PolicyThrow fails the submission with ErrQueueFull.
	PolicyThrow
)

func (p Policy) String() string {
	switch p {
	case PolicyBlock:
		return "block"
	case PolicyDiscard:
		return "discard"
	case PolicyThrow:
		return "throw"
	default:
		return "unknown"
	}
}

// ParsePolicy converts a config string into a Policy.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "block", "":
		return PolicyBlock, nil
	case "discard":
		return PolicyDiscard, nil
	case "throw":
		return PolicyThrow, nil
	default:
		return 0, fmt.Errorf("unknown overload policy %q", s)
	}
}

// Options configures a Pool. Timeouts entries override the built-in table
// per task type. Metrics may be nil.
type Options struct {
	Workers       int
	MaxQueueDepth int
	Policy        Policy
	Timeouts      map[string]time.Duration
	Metrics       *metrics.Metrics
}

// Stats is a point-in-time view of pool occupancy.
type Stats struct {
	Workers int `json:"workers"`
	Queued  int `json:"queued"`
	Running int `json:"running"`
}

// Pool is a fixed-size worker pool. It is safe for concurrent use.
type Pool struct {
	workerCount int
	policy      Policy
	timeouts    map[string]time.Duration
	queue       chan *job
	stopping    chan struct{}
	stopped     chan struct{}

	mu         sync.RWMutex
	closing    bool
	submitters sync.WaitGroup
	workers    sync.WaitGroup
	running    atomic.Int64

	metrics *metrics.Metrics
	logger  *slog.Logger
}

// job is the type-erased queue entry behind a Handle.
type job struct {
	taskType string
	execute  func()
	abandon  func(error)
}

// New starts opts.Workers goroutines. A MaxQueueDepth of zero means tasks
// are handed directly to an idle worker.
func New(opts Options) (*Pool, error) {
	if opts.Workers < 1 {
		return nil, fmt.Errorf("%w: worker count must be >= 1, got %d", apperrors.ErrInvalidInput, opts.Workers)
	}
	if opts.MaxQueueDepth < 0 {
		return nil, fmt.Errorf("%w: max queue depth must be >= 0, got %d", apperrors.ErrInvalidInput, opts.MaxQueueDepth)
	}
	timeouts := make(map[string]time.Duration, len(defaultTimeouts)+len(opts.Timeouts))
	for k, v := range defaultTimeouts {
		timeouts[k] = v
	}
	for k, v := range opts.Timeouts {
		if v > 0 {
			timeouts[k] = v
		}
	}
	p := &Pool{
		workerCount: opts.Workers,
		policy:      opts.Policy,
		timeouts:    timeouts,
		queue:       make(chan *job, opts.MaxQueueDepth),
		stopping:    make(chan struct{}),
		stopped:     make(chan struct{}),
		metrics:     opts.Metrics,
		logger:      logger.WithComponent("taskpool"),
	}
	p.workers.Add(opts.Workers)
	for i := 0; i < opts.Workers; i++ {
		go p.worker()
	}
	p.logger.Info("task pool started",
		"workers", opts.Workers,
		"max_queue_depth", opts.MaxQueueDepth,
		"policy", opts.Policy.String(),
	)
	return p, nil
}

// Timeout returns the deadline applied to tasks of the given type.
func (p *Pool) Timeout(taskType string) time.Duration {
	if d, ok := p.timeouts[taskType]; ok {
		return d
	}
	return DefaultTimeout
}

// TimeoutFor returns the built-in deadline for a task type.
func TimeoutFor(taskType string) time.Duration {
	if d, ok := defaultTimeouts[taskType]; ok {
		return d
	}
	return DefaultTimeout
}

// IsCancelled reports whether the task owning ctx should stop.
func IsCancelled(ctx context.Context) bool {
	return ctx.Err() != nil
}

// Capacity is the number of tasks the pool holds at once without blocking
// or rejecting a submission: one per worker plus the queue.
func (p *Pool) Capacity() int {
	return p.workerCount + cap(p.queue)
}

// Stats returns current occupancy.
func (p *Pool) Stats() Stats {
	return Stats{
		Workers: p.workerCount,
		Queued:  len(p.queue),
		Running: int(p.running.Load()),
	}
}

// Submit enqueues work as a task of the given type. The context passed to
// work is derived from ctx and is additionally cancelled with
// ErrTaskTimeout once the type's deadline elapses.
func Submit[T any](ctx context.Context, p *Pool, taskType string, work func(ctx context.Context) (T, error)) (*Handle[T], error) {
	if work == nil {
		return nil, fmt.Errorf("%w: nil work for task type %q", apperrors.ErrInvalidInput, taskType)
	}
	taskCtx, cancel := context.WithCancelCause(ctx)
	h := &Handle[T]{
		taskType: taskType,
		done:     make(chan struct{}),
		cancel:   cancel,
	}
	j := &job{
		taskType: taskType,
		execute: func() {
			v, err := runWork(taskCtx, taskType, work, p.logger)
			h.resolve(v, err)
		},
		abandon: func(err error) {
			var zero T
			h.resolve(zero, err)
		},
	}

	if err := p.enqueue(ctx, j); err != nil {
		cancel(err)
		return nil, err
	}

	timeout := p.Timeout(taskType)
	h.arm(timeout, func() {
		if !h.expire() {
			return
		}
		p.logger.Warn("task exceeded time limit, cancellation requested",
			"task_type", taskType,
			"timeout", timeout,
		)
		if p.metrics != nil {
			p.metrics.TaskTimeouts.WithLabelValues(taskType).Inc()
		}
	})
	return h, nil
}

func (p *Pool) enqueue(ctx context.Context, j *job) error {
	p.mu.RLock()
	if p.closing {
		p.mu.RUnlock()
		p.reject(j.taskType, "stopping")
		return fmt.Errorf("submitting %s task: %w", j.taskType, ErrPoolStopping)
	}
	p.submitters.Add(1)
	p.mu.RUnlock()
	defer p.submitters.Done()

	switch p.policy {
	case PolicyBlock:
		select {
		case p.queue <- j:
		case <-p.stopping:
			p.reject(j.taskType, "stopping")
			return fmt.Errorf("submitting %s task: %w", j.taskType, ErrPoolStopping)
		case <-ctx.Done():
			p.reject(j.taskType, "canceled")
			return fmt.Errorf("waiting for queue capacity: %w", ctx.Err())
		}
	default:
		select {
		case p.queue <- j:
		default:
			p.reject(j.taskType, "queue_full")
			return fmt.Errorf("submitting %s task (policy %s, depth %d): %w", j.taskType, p.policy, cap(p.queue), ErrQueueFull)
		}
	}

	if p.metrics != nil {
		p.metrics.TasksSubmitted.WithLabelValues(j.taskType).Inc()
		p.metrics.QueueDepth.Set(float64(len(p.queue)))
	}
	return nil
}

func (p *Pool) reject(taskType, reason string) {
	if p.metrics != nil {
		p.metrics.TasksRejected.WithLabelValues(taskType, reason).Inc()
	}
	p.logger.Debug("task rejected", "task_type", taskType, "reason", reason)
}

func (p *Pool) worker() {
	defer p.workers.Done()
	for {
		select {
		case <-p.stopping:
			return
		case j := <-p.queue:
			if p.metrics != nil {
				p.metrics.QueueDepth.Set(float64(len(p.queue)))
			}
			select {
			case <-p.stopping:
				j.abandon(ErrPoolStopping)
				return
			default:
			}
			p.running.Add(1)
			start := time.Now()
			j.execute()
			p.running.Add(-1)
			if p.metrics != nil {
				p.metrics.TaskDuration.WithLabelValues(j.taskType).Observe(time.Since(start).Seconds())
			}
		}
	}
}

func runWork[T any](ctx context.Context, taskType string, work func(context.Context) (T, error), log *slog.Logger) (v T, err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("task panicked", "task_type", taskType, "panic", r)
			err = fmt.Errorf("%s task panicked: %v", taskType, r)
		}
	}()
	return work(ctx)
}

// Shutdown stops accepting tasks, discards queued tasks that have not
// started (their handles resolve with ErrPoolStopping) and waits for
// running tasks to return. Running tasks are not interrupted. If ctx ends
// first the wait is abandoned but shutdown still completes in the
// background.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	first := !p.closing
	if first {
		p.closing = true
		close(p.stopping)
	}
	p.mu.Unlock()

	if first {
		go func() {
			p.submitters.Wait()
			discarded := p.drain()
			p.workers.Wait()
			discarded += p.drain()
			p.logger.Info("task pool stopped", "discarded", discarded)
			close(p.stopped)
		}()
	}

	select {
	case <-p.stopped:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for in-flight tasks: %w", ctx.Err())
	}
}

func (p *Pool) drain() int {
	n := 0
	for {
		select {
		case j := <-p.queue:
			j.abandon(ErrPoolStopping)
			n++
		default:
			if p.metrics != nil {
				p.metrics.QueueDepth.Set(0)
			}
			return n
		}
	}
}
