package fsmrt

import (
	"log/slog"
	"time"
)

// Context is passed to every state action (entry/exit). It is the
// "opaque pointer to state metadata for introspection" spec §4.3 grants
// actions, plus the handle actions need to call back into the runtime:
// arming timers, broadcasting further events, or reading current state.
type Context struct {
	Runtime   *Runtime
	Event     EventID // the event that triggered this step; zero value during Init
	FromState StateID
	ToState   StateID
	State     *State // metadata for the state this action belongs to
	Logger    *slog.Logger
	Data      any // application data attached via WithData, or nil
}

// Broadcast enqueues id into every registered worker's queue. Actions are
// free to call this; it is the same operation a producer would call.
func (c *Context) Broadcast(id EventID) {
	c.Runtime.Registry.Broadcast(id)
}

// StartTimer arms (creating if necessary) a named periodic timer that
// broadcasts event on every expiry.
func (c *Context) StartTimer(id TimerID, period time.Duration, event EventID) error {
	if err := c.Runtime.Timers.Create(id, event); err != nil && err != ErrDuplicateTimer {
		return err
	}
	return c.Runtime.Timers.Set(id, period)
}

// StopTimer disarms a timer, equivalent to Set(id, 0).
func (c *Context) StopTimer(id TimerID) error {
	return c.Runtime.Timers.Stop(id)
}
