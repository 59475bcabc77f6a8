package model

import (
	"maps"
	"slices"
)

// FailureRecord maps a failure group (usually a module) to the failing tests
// of that group. Test ids have the "class:method" form, values are failure types.
type FailureRecord map[string]map[string]string

// TestIdentifierSet is a set of failing test class names.
type TestIdentifierSet struct {
	m map[string]struct{}
}

func NewTestIdentifierSet(names ...string) TestIdentifierSet {
	s := TestIdentifierSet{m: make(map[string]struct{}, len(names))}
	for _, n := range names {
		s.Add(n)
	}
	return s
}

func (s *TestIdentifierSet) Add(name string) {
	if s.m == nil {
		s.m = make(map[string]struct{})
	}
	s.m[name] = struct{}{}
}

func (s TestIdentifierSet) Has(name string) bool {
	_, ok := s.m[name]
	return ok
}

func (s TestIdentifierSet) Len() int {
	return len(s.m)
}

// Sorted returns the class names in lexical order, so engine arguments are stable.
func (s TestIdentifierSet) Sorted() []string {
	return slices.Sorted(maps.Keys(s.m))
}
