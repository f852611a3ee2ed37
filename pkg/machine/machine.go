package machine

import "errors"

// ErrInvalidTransition is returned when a state change is not allowed by the
// machine's transition table.
var ErrInvalidTransition = errors.New("invalid state transition")

type State interface {
	~string
}

// Rule describes the states reachable from a single origin state.
type Rule[S State] struct {
	from S
	to   []S
}

// StateMachine validates state changes against a fixed transition table.
type StateMachine[S State] struct {
	current S
	rules   []Rule[S]
}

// New builds a machine positioned at current with the given transition rules.
func New[S State](current S, rules ...Rule[S]) *StateMachine[S] {
	return &StateMachine[S]{current: current, rules: rules}
}

// RuleBuilder accumulates a from-to relationship for a transition rule.
type RuleBuilder[S State] struct {
	rule Rule[S]
}

// From starts a rule originating at from.
func From[S State](from S) *RuleBuilder[S] {
	return &RuleBuilder[S]{rule: Rule[S]{from: from}}
}

// To sets the reachable destination states and returns the finished rule.
func (b *RuleBuilder[S]) To(to ...S) Rule[S] {
	b.rule.to = to
	return b.rule
}

// ToState reports whether the machine may move from its current state to s.
func (m *StateMachine[S]) ToState(s S) error {
	for _, rule := range m.rules {
		if rule.from != m.current {
			continue
		}

		for _, dest := range rule.to {
			if dest == s {
				return nil
			}
		}
	}

	return ErrInvalidTransition
}
