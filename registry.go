package fsmrt

import (
	"context"
	"log/slog"
	"sync"
)

// WorkerInfo is a diagnostic snapshot of one registered Worker, the data
// half of the source's show_workers() dump (formatting is a front-end
// concern, out of scope here).
type WorkerInfo struct {
	ID         WorkerID
	Name       string
	QueueLen   int
	HasFSM     bool
	FSMCurrent StateID
}

// Registry is the process-wide ordered collection of Workers. Mutation
// (Spawn) is only valid during startup, before the first Broadcast; after
// that the registry is read-only until JoinAll returns. The zero value is
// not usable; construct with NewRegistry.
type Registry struct {
	mu       sync.Mutex
	workers  []*Worker
	byName   map[string][]*Worker
	nextID   WorkerID
	wg       sync.WaitGroup
	shutdown bool
	logger   *slog.Logger
}

// RegistryOption configures a Registry at construction time.
type RegistryOption func(*Registry)

// WithRegistryLogger sets the logger used for registry diagnostics.
func WithRegistryLogger(logger *slog.Logger) RegistryOption {
	return func(r *Registry) {
		r.logger = logger
	}
}

// NewRegistry initializes an empty, process-wide worker collection.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		byName: make(map[string][]*Worker),
		logger: Logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Spawn allocates a Worker and its Queue, assigns the optional fsm before
// starting the worker's goroutine (so entry observes it, per spec), adds
// it to the registry, and runs entry(ctx, worker) in a new goroutine. A
// goroutine is the idiomatic Go translation of "one worker, one OS
// thread": the spec's concurrency model only requires an independent,
// preemptible execution context per worker, which a goroutine provides
// without the ceremony of a raw OS thread.
func (r *Registry) Spawn(ctx context.Context, name string, fsm *Machine, entry func(context.Context, *Worker)) *Worker {
	r.mu.Lock()
	r.nextID++
	w := &Worker{
		id:    r.nextID,
		name:  name,
		queue: NewQueue(),
		fsm:   fsm,
	}
	r.workers = append(r.workers, w)
	r.byName[name] = append(r.byName[name], w)
	r.mu.Unlock()

	r.wg.Add(1)
	workerCtx := context.WithValue(ctx, workerCtxKey{}, w)
	go func() {
		defer r.wg.Done()
		entry(workerCtx, w)
	}()

	return w
}

// FindByID returns the Worker with the given handle, if any.
func (r *Registry) FindByID(id WorkerID) (*Worker, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, w := range r.workers {
		if w.id == id {
			return w, true
		}
	}
	return nil, false
}

// FindByName returns the first-registered Worker with the given name.
// Names are not required to be unique; this returns the earliest match.
func (r *Registry) FindByName(name string) (*Worker, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ws := r.byName[name]
	if len(ws) == 0 {
		return nil, false
	}
	return ws[0], true
}

// Self returns the Worker associated with ctx, as installed by Spawn.
// Returns nil if ctx carries no Worker (e.g. the producer's own context).
func Self(ctx context.Context) *Worker {
	return selfFromContext(ctx)
}

// Broadcast enqueues id into every registered worker's queue, in registry
// order. Two Broadcast calls made by the same goroutine are delivered to
// every worker in that same relative order, since both enqueue
// sequentially into each queue; broadcasts from different goroutines have
// no cross-queue ordering guarantee relative to each other.
func (r *Registry) Broadcast(id EventID) {
	r.mu.Lock()
	workers := make([]*Worker, len(r.workers))
	copy(workers, r.workers)
	shutdown := r.shutdown
	r.mu.Unlock()

	if id == EventDone && shutdown {
		r.logger.Debug("duplicate DONE broadcast after join began, tolerated as a leak", "event", id)
	}

	for _, w := range workers {
		w.queue.Enqueue(id)
	}
}

// JoinAll joins every worker goroutine, returning once all have exited.
// It is safe to call even if EventDone was already broadcast earlier;
// a worker that already exited is simply not waited on twice.
func (r *Registry) JoinAll() {
	r.mu.Lock()
	r.shutdown = true
	r.mu.Unlock()

	r.wg.Wait()
}

// DestroyQueues releases every worker's queue after JoinAll has returned.
// Calling it before all workers have exited is undefined, matching the
// source's evtq_destroy contract.
func (r *Registry) DestroyQueues() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, w := range r.workers {
		w.queue.Close()
	}
}

// Snapshot returns diagnostic info for every registered worker, the data
// backing show_workers().
func (r *Registry) Snapshot() []WorkerInfo {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]WorkerInfo, 0, len(r.workers))
	for _, w := range r.workers {
		info := WorkerInfo{
			ID:       w.id,
			Name:     w.name,
			QueueLen: w.queue.Length(),
			HasFSM:   w.fsm != nil,
		}
		if w.fsm != nil {
			info.FSMCurrent = w.fsm.CurrentState()
		}
		out = append(out, info)
	}
	return out
}
