package records

import (
	"slices"
)

// StoreOption is a functional option applied to a Store during construction via NewStore.
type StoreOption func(*store)

// WithBranches replaces the initial branch records. An empty slice starts with no branches.
//
// Parameters:
//   - recs: the branch records
//
// Returns:
//   - StoreOption: a function that sets the branch records
func WithBranches(recs []BranchRecord) StoreOption {
	return func(s *store) {
		s.branches = slices.Clone(recs)
	}
}

// WithAreas replaces the initial area records. An empty slice starts with no areas.
//
// Parameters:
//   - recs: the area records
//
// Returns:
//   - StoreOption: a function that sets the area records
func WithAreas(recs []AreaRecord) StoreOption {
	return func(s *store) {
		s.areas = slices.Clone(recs)
	}
}
