package fsmrt

// Transition is a 4-tuple (From, Event, Guard, To). The transition table
// is an ordered sequence; the first entry matching (current state, event)
// wins — there is no fallthrough to a second match if the first match's
// guard rejects it (spec §4.3 step 2: a rejected guard returns
// GuardFailed immediately, current state unchanged).
type Transition struct {
	From  StateID
	Event EventID
	Guard func(ctx *Context) bool
	To    StateID
}

// TransitionOption configures a Transition at definition time.
type TransitionOption func(*Transition)

// WithGuard sets a side-effect-free guard predicate for the transition.
// A guard returning false blocks the transition without mutating state
// or invoking any action.
func WithGuard(fn func(ctx *Context) bool) TransitionOption {
	return func(t *Transition) { t.Guard = fn }
}
