package fsmrt

import "log/slog"

// Runtime bundles the process-wide singletons every FSM action needs:
// the Worker Registry (for broadcast/lookup) and the Timer Service (for
// arming/disarming timers). Design Notes §9 calls for exactly this: a
// single value constructed at startup and threaded explicitly through the
// API, replacing the source's file-scope globals.
type Runtime struct {
	Registry *Registry
	Timers   *TimerService
	Logger   *slog.Logger
}

// NewRuntime wires a Registry and TimerService together. The TimerService
// broadcasts through reg on every expiry.
func NewRuntime(reg *Registry, logger *slog.Logger) *Runtime {
	if logger == nil {
		logger = Logger
	}
	return &Runtime{
		Registry: reg,
		Timers:   NewTimerService(reg, logger),
		Logger:   logger,
	}
}

// TimerInfo is a diagnostic snapshot of one timer, the data half of
// show_timers().
type TimerInfo struct {
	ID             TimerID
	Event          EventID
	CurrentPeriod  int64 // milliseconds; 0 means disarmed
	PreviousPeriod int64 // milliseconds
}

// ShowWorkers returns a diagnostic snapshot of every registered worker.
func (rt *Runtime) ShowWorkers() []WorkerInfo {
	return rt.Registry.Snapshot()
}

// ShowTimers returns a diagnostic snapshot of every known timer.
func (rt *Runtime) ShowTimers() []TimerInfo {
	return rt.Timers.Snapshot()
}

// Shutdown broadcasts EventDone and joins every worker, the canonical
// shutdown sequence from spec §4.2. It also closes the Timer Service and
// releases worker queues. Close races safely against a still-running
// Timers.Run goroutine; callers should still cancel that goroutine's
// context once Shutdown returns so it is not left polling a closed fd.
func (rt *Runtime) Shutdown() {
	rt.Registry.Broadcast(EventDone)
	rt.Registry.JoinAll()
	rt.Registry.DestroyQueues()
	if err := rt.Timers.Close(); err != nil {
		rt.Logger.Warn("timer service close failed", "error", err)
	}
}
