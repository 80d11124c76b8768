// Package dispatch issues the per-frame execution graph dispatch that grows the ivy: it derives the
// frame constants, binds the parameter set, supplies the branch and area records and wraps the
// dispatch in the raster scope its mesh nodes draw into.
package dispatch

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/Carmen-Shannon/oxy-ivy/common"
	"github.com/Carmen-Shannon/oxy-ivy/engine/bindless"
	"github.com/Carmen-Shannon/oxy-ivy/engine/profiler"
	"github.com/Carmen-Shannon/oxy-ivy/engine/records"
	"github.com/Carmen-Shannon/oxy-ivy/engine/renderer"
	"github.com/Carmen-Shannon/oxy-ivy/engine/renderer/parameter_set"
	"github.com/Carmen-Shannon/oxy-ivy/engine/workgraph"
)

const (
	// DefaultBranchEntryPoint is the entry point branch records are supplied to.
	DefaultBranchEntryPoint = "IvyBranch"
	// DefaultAreaEntryPoint is the entry point area records are supplied to.
	DefaultAreaEntryPoint = "IvyArea"
	// DefaultMarker is the profiling marker wrapped around the pass.
	DefaultMarker = "Ivy Generation"
)

// ErrIncompleteFrame is returned when a Frame lacks a command list, camera or target.
var ErrIncompleteFrame = errors.New("dispatch: frame is missing a command list, camera or render target")

// FatalError reports that the command list cannot issue execution graph commands. The frame
// recorded nothing and the host should stop calling Execute.
type FatalError struct {
	Err error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("dispatch: execution graph commands unavailable: %v", e.Err)
}

func (e *FatalError) Unwrap() error {
	return e.Err
}

// ArchetypeSource provides the archetype surface indices written into the frame constants.
type ArchetypeSource interface {
	ArchetypeIndices() (stem, leaf int32)
}

// orchestrator is the implementation of the Orchestrator interface.
type orchestrator struct {
	device     renderer.Device
	program    *workgraph.Program
	params     parameter_set.ParameterSet
	store      records.Store
	archetypes ArchetypeSource
	profiler   *profiler.Profiler

	branchEntry string
	areaEntry   string
	marker      string
}

// Orchestrator records the ivy generation pass into a frame's command list.
//
// Orchestrator is not safe for concurrent use. The owner holds the same lock it uses for content
// notifications for the whole Execute call.
type Orchestrator interface {
	// Execute records one dispatch of the graph.
	//
	// The sequence is: marker, barriers to writable states, raster scope with the G-buffer,
	// viewport and scissor, parameter set, SetProgram, DispatchGraph, end of the raster scope,
	// barriers back to shader resource states. SetProgram carries the initialize flag only on the
	// first dispatch of the program's backing memory.
	//
	// Parameters:
	//   - frame: the host's per-frame inputs
	//
	// Returns:
	//   - error: a *FatalError if the command list has no execution graph interface,
	//     ErrIncompleteFrame, or a constant upload or binding error; nothing is recorded on error
	Execute(frame Frame) error
}

var _ Orchestrator = &orchestrator{}

// NewOrchestrator creates an Orchestrator.
//
// Parameters:
//   - device: allocates the per-frame constant buffer
//   - program: the built graph
//   - params: the parameter set holding the bindless tables
//   - store: the entry records
//   - archetypes: the archetype surface indices
//   - options: OrchestratorOption values
//
// Returns:
//   - Orchestrator: the orchestrator
func NewOrchestrator(device renderer.Device, program *workgraph.Program, params parameter_set.ParameterSet, store records.Store, archetypes ArchetypeSource, options ...OrchestratorOption) Orchestrator {
	if device == nil || program == nil || params == nil || store == nil || archetypes == nil {
		panic("dispatch: orchestrator dependencies cannot be nil")
	}
	o := &orchestrator{
		device:      device,
		program:     program,
		params:      params,
		store:       store,
		archetypes:  archetypes,
		branchEntry: DefaultBranchEntryPoint,
		areaEntry:   DefaultAreaEntryPoint,
		marker:      DefaultMarker,
	}
	for _, opt := range options {
		opt(o)
	}
	return o
}

func (o *orchestrator) Execute(frame Frame) error {
	if frame.Commands == nil || frame.Camera == nil || !frame.Targets.complete() {
		return ErrIncompleteFrame
	}
	wg, err := frame.Commands.WorkGraphCommands()
	if err != nil {
		return &FatalError{Err: err}
	}

	graph, err := o.graphDesc()
	if err != nil {
		return err
	}

	stem, leaf := o.archetypes.ArchetypeIndices()
	constants := NewFrameConstants(frame.Camera, stem, leaf)
	addr, err := o.device.AllocConstantBuffer(constants.Marshal())
	if err != nil {
		return fmt.Errorf("dispatch: uploading frame constants: %w", err)
	}
	if err := o.params.SetRootConstantBuffer(bindless.ConstantsSlot, addr); err != nil {
		return fmt.Errorf("dispatch: binding frame constants: %w", err)
	}
	if err := o.params.SetAccelerationStructure(bindless.SceneSlot, frame.Scene); err != nil {
		return fmt.Errorf("dispatch: binding scene: %w", err)
	}

	cmd := frame.Commands
	toWritable, toReadable := o.barriers(frame.Targets)

	cmd.BeginMarker(o.marker)
	cmd.ResourceBarrier(toWritable...)
	cmd.BeginRaster(frame.Targets.Colors(), frame.Targets.Depth)
	cmd.SetViewportScissor(frame.Resolution.Viewport(frame.Upscaler))

	o.params.Bind(cmd)
	wg.SetProgram(o.program.Desc())
	wg.DispatchGraph(graph)
	first := o.program.BackingMemory().MarkDispatched()

	cmd.EndRaster()
	cmd.ResourceBarrier(toReadable...)
	cmd.EndMarker()

	total := 0
	for _, in := range graph.Inputs {
		total += int(in.NumRecords)
	}
	if first {
		common.ComponentLogger("dispatch").Info("backing memory initialized", slog.String("program", o.program.Name()))
	}
	if o.profiler != nil {
		o.profiler.Tick(total)
	}
	return nil
}

// graphDesc builds the two-entry dispatch description in the program's entry point order.
func (o *orchestrator) graphDesc() (renderer.DispatchGraphDesc, error) {
	table := o.program.EntryPoints()
	branch, ok := table.Index(o.branchEntry)
	if !ok {
		return renderer.DispatchGraphDesc{}, fmt.Errorf("dispatch: program has no entry point %q", o.branchEntry)
	}
	area, ok := table.Index(o.areaEntry)
	if !ok {
		return renderer.DispatchGraphDesc{}, fmt.Errorf("dispatch: program has no entry point %q", o.areaEntry)
	}
	return renderer.DispatchGraphDesc{
		Mode: renderer.DispatchModeMultiNodeCPUInput,
		Inputs: []renderer.NodeCPUInput{
			{
				EntrypointIndex: branch,
				NumRecords:      uint32(o.store.BranchCount()),
				Records:         o.store.BranchBytes(),
				RecordStride:    records.BranchRecordStride,
			},
			{
				EntrypointIndex: area,
				NumRecords:      uint32(o.store.AreaCount()),
				Records:         o.store.AreaBytes(),
				RecordStride:    records.AreaRecordStride,
			},
		},
	}, nil
}

// barriers returns the transitions into and out of the raster scope.
func (o *orchestrator) barriers(g GBuffer) (toWritable, toReadable []renderer.Barrier) {
	for _, t := range g.Colors() {
		toWritable = append(toWritable, renderer.Barrier{Resource: t, Before: renderer.ResourceStateShaderResource, After: renderer.ResourceStateRenderTarget})
		toReadable = append(toReadable, renderer.Barrier{Resource: t, Before: renderer.ResourceStateRenderTarget, After: renderer.ResourceStateShaderResource})
	}
	toWritable = append(toWritable, renderer.Barrier{Resource: g.Depth, Before: renderer.ResourceStateShaderResource, After: renderer.ResourceStateDepthWrite})
	toReadable = append(toReadable, renderer.Barrier{Resource: g.Depth, Before: renderer.ResourceStateDepthWrite, After: renderer.ResourceStateShaderResource})
	return toWritable, toReadable
}
