package fsmrt

import "context"

// Worker owns one event Queue and, optionally, one FSM. Workers are
// created by a Registry, which remains their sole owner; callers address
// a Worker by its WorkerID rather than holding a pointer across
// goroutines, mirroring the Design Notes' "registry as sole owner"
// guidance.
type Worker struct {
	id    WorkerID
	name  string
	queue *Queue
	fsm   *Machine
}

// ID returns the Worker's stable handle.
func (w *Worker) ID() WorkerID { return w.id }

// Name returns the Worker's (possibly non-unique) display name.
func (w *Worker) Name() string { return w.name }

// Queue returns the Worker's owned event queue.
func (w *Worker) Queue() *Queue { return w.queue }

// FSM returns the Worker's FSM context, or nil for a pure I/O worker.
func (w *Worker) FSM() *Machine { return w.fsm }

type workerCtxKey struct{}

// selfFromContext returns the Worker installed into ctx by Registry.Spawn,
// the idiomatic Go substitute for a pthread_self()-based registry lookup:
// Go exposes no stable, queryable goroutine identifier, so the Worker a
// goroutine belongs to is threaded through as a context value instead.
func selfFromContext(ctx context.Context) *Worker {
	w, _ := ctx.Value(workerCtxKey{}).(*Worker)
	return w
}
