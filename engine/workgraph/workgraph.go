// Package workgraph builds the execution graph program that generates ivy geometry: it compiles
// the shader modules, assembles one graphics node per declared mesh node, finalizes the state
// object, sizes and allocates backing memory and resolves the entry point indices the dispatch
// path uses every frame.
package workgraph

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-ivy/engine/renderer"
)

// BackingMemoryState is the initialization state of one backing memory allocation.
type BackingMemoryState int

const (
	// BackingMemoryNeedsInit means the next dispatch must initialize the backing memory.
	BackingMemoryNeedsInit BackingMemoryState = iota
	// BackingMemorySteady means the backing memory has been initialized by a dispatch.
	BackingMemorySteady
)

// String returns the state name used in logs.
func (s BackingMemoryState) String() string {
	switch s {
	case BackingMemoryNeedsInit:
		return "needs-init"
	case BackingMemorySteady:
		return "steady"
	default:
		return "unknown"
	}
}

// BackingMemory owns the scratch allocation of one built graph and its one-shot initialization
// state. The state moves from NeedsInit to Steady exactly once and never back; a rebuild creates
// a new BackingMemory.
type BackingMemory struct {
	mu     *sync.Mutex
	buffer renderer.Buffer
	size   uint64
	state  BackingMemoryState
}

// newBackingMemory wraps an allocation. buffer is nil when the graph needs no backing memory.
func newBackingMemory(buffer renderer.Buffer, size uint64) *BackingMemory {
	return &BackingMemory{mu: &sync.Mutex{}, buffer: buffer, size: size, state: BackingMemoryNeedsInit}
}

// State returns the current initialization state.
func (m *BackingMemory) State() BackingMemoryState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Size returns the allocation size in bytes, 0 when the graph needs none.
func (m *BackingMemory) Size() uint64 {
	return m.size
}

// Buffer returns the allocation, or nil when the graph needs none.
func (m *BackingMemory) Buffer() renderer.Buffer {
	return m.buffer
}

// Address returns the range bound with the program.
func (m *BackingMemory) Address() renderer.BufferAddress {
	if m.buffer == nil {
		return renderer.BufferAddress{}
	}
	return renderer.BufferAddress{Buffer: m.buffer, Size: m.size}
}

// ProgramFlags returns the flags the next SetProgram must use: SetProgramFlagsInitialize while
// the memory needs initialization, SetProgramFlagsNone afterwards.
//
// Returns:
//   - renderer.SetProgramFlags: the flags
func (m *BackingMemory) ProgramFlags() renderer.SetProgramFlags {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == BackingMemoryNeedsInit {
		return renderer.SetProgramFlagsInitialize
	}
	return renderer.SetProgramFlagsNone
}

// MarkDispatched records that a dispatch using this memory was issued. The first call moves the
// state to Steady; later calls do nothing.
//
// Returns:
//   - bool: true if this call performed the transition
func (m *BackingMemory) MarkDispatched() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == BackingMemorySteady {
		return false
	}
	m.state = BackingMemorySteady
	return true
}

// release frees the allocation.
func (m *BackingMemory) release() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.buffer != nil {
		m.buffer.Release()
		m.buffer = nil
	}
}

// EntryPointTable maps entry point names to their indices in a built graph. It is immutable.
type EntryPointTable struct {
	names   []string
	indices map[string]uint32
}

// newEntryPointTable builds a table from names and indices in declaration order.
func newEntryPointTable(names []string, indices []uint32) EntryPointTable {
	t := EntryPointTable{
		names:   append([]string(nil), names...),
		indices: make(map[string]uint32, len(names)),
	}
	for i, n := range names {
		t.indices[n] = indices[i]
	}
	return t
}

// Index returns the graph index of a named entry point.
//
// Parameters:
//   - name: the entry point name
//
// Returns:
//   - uint32: the index
//   - bool: false if the graph has no such entry point
func (t EntryPointTable) Index(name string) (uint32, bool) {
	i, ok := t.indices[name]
	return i, ok
}

// Names returns the entry point names in declaration order.
func (t EntryPointTable) Names() []string {
	return append([]string(nil), t.names...)
}

// Len returns the number of entry points.
func (t EntryPointTable) Len() int {
	return len(t.names)
}

// Program is a built, dispatchable execution graph.
type Program struct {
	name         string
	stateObject  renderer.StateObject
	identifier   renderer.ProgramIdentifier
	requirements renderer.MemoryRequirements
	memory       *BackingMemory
	entryPoints  EntryPointTable
}

// Name returns the program name.
func (p *Program) Name() string {
	return p.name
}

// Identifier returns the identifier SetProgram binds the program by.
func (p *Program) Identifier() renderer.ProgramIdentifier {
	return p.identifier
}

// MemoryRequirements returns the backing memory range the graph reported.
func (p *Program) MemoryRequirements() renderer.MemoryRequirements {
	return p.requirements
}

// BackingMemory returns the program's backing memory and its initialization state.
func (p *Program) BackingMemory() *BackingMemory {
	return p.memory
}

// EntryPoints returns the resolved entry point table.
func (p *Program) EntryPoints() EntryPointTable {
	return p.entryPoints
}

// Desc returns the SetProgram description for the next dispatch, with the initialization flag set
// only while the backing memory needs it.
//
// Returns:
//   - renderer.ProgramDesc: the program description
func (p *Program) Desc() renderer.ProgramDesc {
	return renderer.ProgramDesc{
		Identifier:    p.identifier,
		Flags:         p.memory.ProgramFlags(),
		BackingMemory: p.memory.Address(),
	}
}

// Release frees the state object and the backing memory.
func (p *Program) Release() {
	if p.stateObject != nil {
		p.stateObject.Release()
		p.stateObject = nil
	}
	p.memory.release()
}
