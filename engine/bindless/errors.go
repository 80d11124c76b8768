package bindless

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
)

// CapacityError reports a table that would grow past its binding capacity. The block that caused
// it was rolled back and can be retried after other content is unloaded.
type CapacityError struct {
	Table string
	Count int
	Limit int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("bindless: %s table needs %d entries, capacity is %d", e.Table, e.Count, e.Limit)
}

// IndexFormatError reports a surface whose index format the generation stages cannot read. The
// surface stays loaded with IndexTypeInvalid.
type IndexFormatError struct {
	Mesh    string
	Surface int
	Format  wgpu.IndexFormat
}

func (e *IndexFormatError) Error() string {
	return fmt.Sprintf("bindless: mesh %s surface %d: unsupported index format %d", e.Mesh, e.Surface, e.Format)
}
