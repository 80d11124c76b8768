package records

import (
	"fmt"
	"slices"

	"github.com/Carmen-Shannon/oxy-ivy/common"
)

// NoSelection is the selected index when no record of a kind is selected.
const NoSelection = -1

// store is the implementation of the Store interface.
type store struct {
	branches []BranchRecord
	areas    []AreaRecord

	selectedBranch int
	selectedArea   int
	refreshUI      bool
}

// Store holds the branch and area record arrays handed to every dispatch and the editor selection.
// It is not safe for concurrent use; the owner serializes access with the same lock that guards the
// dispatch path.
type Store interface {
	// Branches returns a copy of the branch records.
	Branches() []BranchRecord

	// Areas returns a copy of the area records.
	Areas() []AreaRecord

	// BranchCount returns the number of branch records.
	BranchCount() int

	// AreaCount returns the number of area records.
	AreaCount() int

	// BranchBytes returns the branch records packed at BranchRecordStride, nil when there are none.
	BranchBytes() []byte

	// AreaBytes returns the area records packed at AreaRecordStride, nil when there are none.
	AreaBytes() []byte

	// SelectBranch selects branch i and clears the area selection. NoSelection clears the branch
	// selection. Any change requests a settings UI refresh.
	//
	// Parameters:
	//   - i: the branch index or NoSelection
	//
	// Returns:
	//   - error: ErrIndexOutOfRange if i addresses no branch
	SelectBranch(i int) error

	// SelectArea selects area i and clears the branch selection. NoSelection clears the area
	// selection. Any change requests a settings UI refresh.
	//
	// Parameters:
	//   - i: the area index or NoSelection
	//
	// Returns:
	//   - error: ErrIndexOutOfRange if i addresses no area
	SelectArea(i int) error

	// Selection returns the selected branch and area indices, NoSelection when unset.
	Selection() (branch, area int)

	// TakeUIRefresh reports whether the settings UI must be rebuilt and clears the request.
	TakeUIRefresh() bool

	// SettingsSection describes the settings panel of the selected record.
	//
	// Returns:
	//   - UISection: the panel
	//   - bool: false when nothing is selected
	SettingsSection() (UISection, bool)

	// Apply performs one editor change. Seeds must lie in [0, MaxSeed] and densities in
	// [MinDensity, MaxDensity]; an edit that violates a bound changes nothing.
	//
	// Parameters:
	//   - e: the edit
	//
	// Returns:
	//   - error: ErrUnknownKind, ErrUnknownOp, ErrIndexOutOfRange or ErrValueOutOfRange, wrapped
	Apply(e Edit) error
}

var _ Store = &store{}

// NewStore creates a Store seeded with DefaultBranches and DefaultAreas unless options replace them.
//
// Parameters:
//   - options: StoreOption values
//
// Returns:
//   - Store: the record store
func NewStore(options ...StoreOption) Store {
	s := &store{
		branches:       DefaultBranches(),
		areas:          DefaultAreas(),
		selectedBranch: NoSelection,
		selectedArea:   NoSelection,
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

func (s *store) Branches() []BranchRecord {
	return slices.Clone(s.branches)
}

func (s *store) Areas() []AreaRecord {
	return slices.Clone(s.areas)
}

func (s *store) BranchCount() int {
	return len(s.branches)
}

func (s *store) AreaCount() int {
	return len(s.areas)
}

func (s *store) BranchBytes() []byte {
	return MarshalBranches(s.branches)
}

func (s *store) AreaBytes() []byte {
	return MarshalAreas(s.areas)
}

func (s *store) SelectBranch(i int) error {
	if i != NoSelection && (i < 0 || i >= len(s.branches)) {
		return fmt.Errorf("%w: branch %d of %d", ErrIndexOutOfRange, i, len(s.branches))
	}
	if s.selectedBranch == i && (i == NoSelection || s.selectedArea == NoSelection) {
		return nil
	}
	s.selectedBranch = i
	if i != NoSelection {
		s.selectedArea = NoSelection
	}
	s.refreshUI = true
	return nil
}

func (s *store) SelectArea(i int) error {
	if i != NoSelection && (i < 0 || i >= len(s.areas)) {
		return fmt.Errorf("%w: area %d of %d", ErrIndexOutOfRange, i, len(s.areas))
	}
	if s.selectedArea == i && (i == NoSelection || s.selectedBranch == NoSelection) {
		return nil
	}
	s.selectedArea = i
	if i != NoSelection {
		s.selectedBranch = NoSelection
	}
	s.refreshUI = true
	return nil
}

func (s *store) Selection() (int, int) {
	return s.selectedBranch, s.selectedArea
}

func (s *store) TakeUIRefresh() bool {
	r := s.refreshUI
	s.refreshUI = false
	return r
}

func (s *store) SettingsSection() (UISection, bool) {
	switch {
	case s.selectedBranch != NoSelection:
		return branchSection(s.selectedBranch, s.branches[s.selectedBranch]), true
	case s.selectedArea != NoSelection:
		return areaSection(s.selectedArea, s.areas[s.selectedArea]), true
	default:
		return UISection{}, false
	}
}

func (s *store) Apply(e Edit) error {
	if err := e.validate(); err != nil {
		return err
	}
	switch e.Op {
	case EditSet:
		return s.set(e)
	case EditAdd:
		s.add(e)
		return nil
	case EditRemove:
		return s.remove(e)
	case EditSelect:
		if e.Kind == KindBranch {
			return s.SelectBranch(e.Index)
		}
		return s.SelectArea(e.Index)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownOp, e.Op)
	}
}

func (s *store) set(e Edit) error {
	if e.Kind == KindBranch {
		if e.Index < 0 || e.Index >= len(s.branches) {
			return fmt.Errorf("%w: branch %d of %d", ErrIndexOutOfRange, e.Index, len(s.branches))
		}
		e.applyBranch(&s.branches[e.Index])
		if e.Index == s.selectedBranch {
			s.refreshUI = true
		}
		return nil
	}
	if e.Index < 0 || e.Index >= len(s.areas) {
		return fmt.Errorf("%w: area %d of %d", ErrIndexOutOfRange, e.Index, len(s.areas))
	}
	e.applyArea(&s.areas[e.Index])
	if e.Index == s.selectedArea {
		s.refreshUI = true
	}
	return nil
}

func (s *store) add(e Edit) {
	if e.Kind == KindBranch {
		r := BranchRecord{Transform: common.Identity()}
		e.applyBranch(&r)
		s.branches = append(s.branches, r)
		return
	}
	r := AreaRecord{Transform: common.Identity()}
	e.applyArea(&r)
	s.areas = append(s.areas, r)
}

func (s *store) remove(e Edit) error {
	if e.Kind == KindBranch {
		if e.Index < 0 || e.Index >= len(s.branches) {
			return fmt.Errorf("%w: branch %d of %d", ErrIndexOutOfRange, e.Index, len(s.branches))
		}
		s.branches = slices.Delete(s.branches, e.Index, e.Index+1)
		s.selectedBranch = shiftSelection(s.selectedBranch, e.Index, &s.refreshUI)
		return nil
	}
	if e.Index < 0 || e.Index >= len(s.areas) {
		return fmt.Errorf("%w: area %d of %d", ErrIndexOutOfRange, e.Index, len(s.areas))
	}
	s.areas = slices.Delete(s.areas, e.Index, e.Index+1)
	s.selectedArea = shiftSelection(s.selectedArea, e.Index, &s.refreshUI)
	return nil
}

// shiftSelection keeps a selection pointing at the same record after index removed was deleted.
func shiftSelection(selected, removed int, refresh *bool) int {
	switch {
	case selected == removed:
		*refresh = true
		return NoSelection
	case selected > removed:
		*refresh = true
		return selected - 1
	default:
		return selected
	}
}
