package actions

import "encoding/json"

// Set is an unordered collection of actions that lists in a fixed order.
type Set map[Action]struct{}

// NewSet builds a set from the given actions.
func NewSet(actions ...Action) Set {
	set := make(Set, len(actions))
	for _, a := range actions {
		set[a] = struct{}{}
	}
	return set
}

// Has reports whether action is in the set.
func (s Set) Has(action Action) bool {
	_, ok := s[action]
	return ok
}

// List returns the actions in canonical order.
func (s Set) List() []Action {
	out := make([]Action, 0, len(s))
	for _, a := range ordered {
		if s.Has(a) {
			out = append(out, a)
		}
	}
	return out
}

// Strings returns the action names in canonical order.
func (s Set) Strings() []string {
	list := s.List()
	out := make([]string, len(list))
	for i, a := range list {
		out[i] = string(a)
	}
	return out
}

// MarshalJSON renders the set as an ordered array.
func (s Set) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Strings())
}
