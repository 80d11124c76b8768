package shader

import (
	"fmt"
	"io/fs"
	"path"
	"slices"
	"sync"

	"github.com/gogpu/naga"
)

// Stage identifies the execution stage a shader module is compiled for.
type Stage int

const (
	// StageLibrary is a library of generation node entry points.
	StageLibrary Stage = iota

	// StagePixel is a pixel stage paired with a generation node.
	StagePixel
)

// String returns the stage name used in logs and errors.
func (s Stage) String() string {
	switch s {
	case StageLibrary:
		return "library"
	case StagePixel:
		return "pixel"
	default:
		return "unknown"
	}
}

// Module names one shader source to compile.
type Module struct {
	// Name is the source path inside the compiler's file system. A missing extension defaults to .wgsl.
	Name string
	// Stage is the execution stage of the module.
	Stage Stage
	// EntryPoint is the function compiled for a pixel stage. Libraries export every entry point.
	EntryPoint string
	// ExportName is the symbolic name graph nodes reference a pixel stage by.
	ExportName string
}

// Blob is compiled shader code. Release frees it once the program that consumed it is finalized.
type Blob interface {
	// Code returns the compiled code.
	Code() []byte
	// EntryPoints returns the entry point names the code exports.
	EntryPoints() []string
	// Release frees the blob. Code returns nil afterwards.
	Release()
}

// Compiler turns a shader module into executable code.
type Compiler interface {
	// Compile compiles one module. It is safe for concurrent use.
	//
	// Parameters:
	//   - m: the module to compile
	//
	// Returns:
	//   - Blob: the compiled code
	//   - error: an error if the source is missing or fails to compile
	Compile(m Module) (Blob, error)
}

// nagaCompiler is the naga implementation of the Compiler interface.
type nagaCompiler struct {
	fsys      fs.FS
	includes  map[string]string
	extension string
}

var _ Compiler = &nagaCompiler{}

// blob is the implementation of the Blob interface.
type blob struct {
	mu          *sync.Mutex
	code        []byte
	entryPoints []string
}

var _ Blob = &blob{}

// NewNagaCompiler creates a Compiler that reads WGSL from fsys, expands @ivy: annotations and
// compiles the result to SPIR-V with naga.
//
// Parameters:
//   - fsys: the file system holding shader sources
//   - options: compiler options such as WithInclude
//
// Returns:
//   - Compiler: the compiler
func NewNagaCompiler(fsys fs.FS, options ...CompilerOption) Compiler {
	if fsys == nil {
		panic("shader: file system cannot be nil")
	}
	c := &nagaCompiler{
		fsys:      fsys,
		includes:  make(map[string]string),
		extension: ".wgsl",
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

// NewBlob wraps already compiled code.
//
// Parameters:
//   - code: the compiled code
//   - entryPoints: the entry points the code exports
//
// Returns:
//   - Blob: the blob
func NewBlob(code []byte, entryPoints ...string) Blob {
	return &blob{mu: &sync.Mutex{}, code: code, entryPoints: entryPoints}
}

func (c *nagaCompiler) Compile(m Module) (Blob, error) {
	name := m.Name
	if path.Ext(name) == "" {
		name += c.extension
	}
	raw, err := fs.ReadFile(c.fsys, name)
	if err != nil {
		return nil, fmt.Errorf("shader: reading %s: %w", name, err)
	}

	// a pre-processor instance is not safe to share between concurrent compiles
	source, err := NewPreProcessor(c.includes).Process(string(raw))
	if err != nil {
		return nil, fmt.Errorf("shader: pre-processing %s: %w", name, err)
	}

	entries := parseEntryPoints(source)
	var exported []string
	switch m.Stage {
	case StageLibrary:
		for e, attr := range entries {
			if attr == "compute" {
				exported = append(exported, e)
			}
		}
		if len(exported) == 0 {
			return nil, fmt.Errorf("shader: library %s declares no node entry points", name)
		}
	case StagePixel:
		if entries[m.EntryPoint] != "fragment" {
			return nil, fmt.Errorf("shader: %s has no fragment entry point %q", name, m.EntryPoint)
		}
		exported = []string{m.EntryPoint}
	default:
		return nil, fmt.Errorf("shader: unknown stage %d for %s", m.Stage, name)
	}

	code, err := naga.Compile(source)
	if err != nil {
		return nil, fmt.Errorf("shader: compiling %s: %w", name, err)
	}
	slices.Sort(exported)
	return NewBlob(code, exported...), nil
}

func (b *blob) Code() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.code
}

func (b *blob) EntryPoints() []string {
	return b.entryPoints
}

func (b *blob) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.code = nil
}
