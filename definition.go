package fsmrt

import "fmt"

// Definition builds an ordered transition table before it is handed to a
// Machine. It is immutable once Build succeeds; mutate a Definition only
// before calling Build.
type Definition struct {
	states      map[StateID]*State
	transitions []Transition
}

// NewDefinition returns an empty FSM definition builder.
func NewDefinition() *Definition {
	return &Definition{
		states: make(map[StateID]*State),
	}
}

// State registers a state with the definition.
func (d *Definition) State(id StateID, opts ...StateOption) *Definition {
	s := &State{ID: id}
	for _, opt := range opts {
		opt(s)
	}
	d.states[id] = s
	return d
}

// Transition appends a transition row. Table order is the authoritative
// tie-breaker when more than one row matches (from, event); the first
// match wins.
func (d *Definition) Transition(from StateID, event EventID, to StateID, opts ...TransitionOption) *Definition {
	t := Transition{From: from, Event: event, To: to}
	for _, opt := range opts {
		opt(&t)
	}
	d.transitions = append(d.transitions, t)
	return d
}

// Validate checks the definition for structural errors: at least one
// transition, and every transition endpoint refers to a registered state.
func (d *Definition) Validate() error {
	if len(d.transitions) == 0 {
		return fmt.Errorf("fsmrt: definition has no transitions")
	}
	for i, t := range d.transitions {
		if _, ok := d.states[t.From]; !ok {
			return fmt.Errorf("fsmrt: transition %d: undefined from-state %q", i, t.From)
		}
		if _, ok := d.states[t.To]; !ok {
			return fmt.Errorf("fsmrt: transition %d: undefined to-state %q", i, t.To)
		}
	}
	return nil
}

// Build creates a Machine from the definition. The initial state is the
// From state of the first transition in table order, per spec convention
// ("fsm_init" in the original sets currst_p to fsm_p[0].currst_p).
func (d *Definition) Build(opts ...MachineOption) (*Machine, error) {
	if err := d.Validate(); err != nil {
		return nil, fmt.Errorf("fsmrt: invalid definition: %w", err)
	}

	m := &Machine{
		definition: d,
		current:    d.transitions[0].From,
		logger:     Logger,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}
