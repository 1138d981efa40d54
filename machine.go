package fsmrt

import (
	"log/slog"
	"sync"
)

// Machine is the runtime instance of an FSM: a reference to the current
// state plus a reference to the (immutable) transition table it was built
// from. The current-state field is the only mutable part of a Machine and
// is intended to be mutated only by the owning worker's goroutine, though
// CurrentState is safe to call from any goroutine for diagnostics.
type Machine struct {
	definition *Definition
	current    StateID
	mu         sync.Mutex
	logger     *slog.Logger
	data       any
	onChange   func(from, to StateID)
}

// MachineOption configures a Machine at Build time.
type MachineOption func(*Machine)

// WithLogger sets the logger used for FSM-step diagnostics.
func WithLogger(logger *slog.Logger) MachineOption {
	return func(m *Machine) { m.logger = logger }
}

// WithData attaches application data retrievable via Context.Data.
func WithData(data any) MachineOption {
	return func(m *Machine) { m.data = data }
}

// WithStateChangeCallback sets a callback invoked after every successful
// transition, with the state it left and the state it entered.
func WithStateChangeCallback(fn func(from, to StateID)) MachineOption {
	return func(m *Machine) { m.onChange = fn }
}

// CurrentState returns the machine's current state.
func (m *Machine) CurrentState() StateID {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Init runs the initial state's entry action exactly once. It must be
// called once per worker before that worker's dequeue loop begins.
func (m *Machine) Init(rt *Runtime) {
	m.mu.Lock()
	defer m.mu.Unlock()

	state := m.definition.states[m.current]
	m.logger.Debug("fsm init", "state", m.current)
	if state != nil && state.OnEnter != nil {
		state.OnEnter(&Context{
			Runtime: rt,
			ToState: m.current,
			State:   state,
			Logger:  m.logger,
			Data:    m.data,
		})
	}
}

// Run performs a single FSM step per spec §4.3:
//  1. scan the table in order for the first (current, event) match;
//  2. if the match has a guard, evaluate it — false means GuardFailed,
//     state unchanged, no actions invoked;
//  3. invoke the current state's exit action, if any;
//  4. assign the new current state;
//  5. invoke the new state's entry action, if any;
//  6. return Transitioned.
// No match at all returns NoMatch. Neither failure outcome is fatal; the
// caller decides whether to log or broadcast further events.
func (m *Machine) Run(rt *Runtime, event EventID) Outcome {
	m.mu.Lock()
	defer m.mu.Unlock()

	var matched *Transition
	for i := range m.definition.transitions {
		t := &m.definition.transitions[i]
		if t.From == m.current && t.Event == event {
			matched = t
			break
		}
	}
	if matched == nil {
		m.logger.Debug("no matching transition", "state", m.current, "event", event)
		return NoMatch
	}

	ctx := &Context{
		Runtime:   rt,
		Event:     event,
		FromState: m.current,
		ToState:   matched.To,
		State:     m.definition.states[m.current],
		Logger:    m.logger,
		Data:      m.data,
	}

	if matched.Guard != nil && !matched.Guard(ctx) {
		m.logger.Debug("guard rejected transition", "state", m.current, "event", event, "to", matched.To)
		return GuardFailed
	}

	fromState := m.definition.states[m.current]
	if fromState != nil && fromState.OnExit != nil {
		fromState.OnExit(ctx)
	}

	from := m.current
	m.current = matched.To

	toState := m.definition.states[m.current]
	ctx.State = toState
	if toState != nil && toState.OnEnter != nil {
		toState.OnEnter(ctx)
	}

	m.logger.Debug("transitioned", "from", from, "to", m.current, "event", event)
	if m.onChange != nil {
		m.onChange(from, m.current)
	}

	return Transitioned
}
