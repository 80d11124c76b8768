package workgraph

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-ivy/engine/renderer"
	"github.com/Carmen-Shannon/oxy-ivy/engine/renderer/shader"
)

// CapabilityError reports a device that cannot run the graph. It is not transient: the
// host should present an unsupported hardware message rather than retry.
type CapabilityError struct {
	Required renderer.WorkGraphsTier
	Reported renderer.WorkGraphsTier
	// Err is the feature query failure, if the query itself failed.
	Err error
}

func (e *CapabilityError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("workgraph: querying execution graph support: %v", e.Err)
	}
	return fmt.Sprintf("workgraph: execution graphs %s required, device reports %s", e.Required, e.Reported)
}

func (e *CapabilityError) Unwrap() error {
	return e.Err
}

// CompileError reports a shader module that failed to compile.
type CompileError struct {
	Module string
	Stage  shader.Stage
	Err    error
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("workgraph: compiling %s module %s: %v", e.Stage, e.Module, e.Err)
}

func (e *CompileError) Unwrap() error {
	return e.Err
}

// ProgramError reports a failure while assembling or finalizing the program. Step names the
// build step that failed.
type ProgramError struct {
	Step string
	Err  error
}

func (e *ProgramError) Error() string {
	return fmt.Sprintf("workgraph: %s: %v", e.Step, e.Err)
}

func (e *ProgramError) Unwrap() error {
	return e.Err
}
