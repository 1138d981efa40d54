package fsmrt

// State is a name plus two optional action functions, invoked on entry
// and exit. States are immutable static data once a Definition is built.
type State struct {
	ID      StateID
	OnEnter func(*Context)
	OnExit  func(*Context)
}

// StateOption configures a State at definition time.
type StateOption func(*State)

// WithOnEnter sets the state's entry action.
func WithOnEnter(fn func(*Context)) StateOption {
	return func(s *State) { s.OnEnter = fn }
}

// WithOnExit sets the state's exit action.
func WithOnExit(fn func(*Context)) StateOption {
	return func(s *State) { s.OnExit = fn }
}
