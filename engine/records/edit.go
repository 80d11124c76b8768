package records

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-ivy/common"
	"github.com/chewxy/math32"
)

var (
	// ErrIndexOutOfRange is returned when an edit addresses a record that does not exist.
	ErrIndexOutOfRange = errors.New("records: index out of range")
	// ErrValueOutOfRange is returned when an edit carries a seed or density outside the editor bounds.
	ErrValueOutOfRange = errors.New("records: value out of range")
	// ErrUnknownKind is returned for an edit whose Kind is neither branch nor area.
	ErrUnknownKind = errors.New("records: unknown record kind")
	// ErrUnknownOp is returned for an edit whose Op is not recognised.
	ErrUnknownOp = errors.New("records: unknown edit op")
)

// Kind names one of the two record arrays.
type Kind string

const (
	KindBranch Kind = "branch"
	KindArea   Kind = "area"
)

// EditOp is the operation an Edit performs.
type EditOp string

const (
	// EditSet overwrites the fields present in the edit on an existing record.
	EditSet EditOp = "set"
	// EditAdd appends a record built from the fields present in the edit.
	EditAdd EditOp = "add"
	// EditRemove deletes the record at Index.
	EditRemove EditOp = "remove"
	// EditSelect selects the record at Index, or clears the selection of that kind when Index is -1.
	EditSelect EditOp = "select"
)

// Edit is one change coming from the interactive editor. Optional fields left nil are not touched.
type Edit struct {
	Op        EditOp       `json:"op"`
	Kind      Kind         `json:"kind"`
	Index     int          `json:"index"`
	Seed      *uint32      `json:"seed,omitempty"`
	Density   *float32     `json:"density,omitempty"`
	Transform *common.Mat4 `json:"transform,omitempty"`
}

// validate checks the value fields against the editor bounds.
func (e Edit) validate() error {
	switch e.Kind {
	case KindBranch, KindArea:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownKind, e.Kind)
	}
	if e.Seed != nil && *e.Seed > MaxSeed {
		return fmt.Errorf("%w: seed %d exceeds %d", ErrValueOutOfRange, *e.Seed, MaxSeed)
	}
	if e.Density != nil {
		d := *e.Density
		if math32.IsNaN(d) || d < MinDensity || d > MaxDensity {
			return fmt.Errorf("%w: density %v outside [%v, %v]", ErrValueOutOfRange, d, MinDensity, MaxDensity)
		}
		if e.Kind == KindBranch {
			return fmt.Errorf("%w: branch records have no density", ErrValueOutOfRange)
		}
	}
	return nil
}

func (e Edit) applyBranch(r *BranchRecord) {
	if e.Seed != nil {
		r.Seed = *e.Seed
	}
	if e.Transform != nil {
		r.Transform = *e.Transform
	}
}

func (e Edit) applyArea(r *AreaRecord) {
	if e.Seed != nil {
		r.Seed = *e.Seed
	}
	if e.Density != nil {
		r.Density = *e.Density
	}
	if e.Transform != nil {
		r.Transform = *e.Transform
	}
}
