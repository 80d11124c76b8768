// Package loader imports glTF 2.0 scenes as content blocks for the bindless resource tables.
//
// Every load becomes one content.Block. Materials, buffers and meshes receive fresh identities;
// textures are identified by their image, so two blocks referencing the same image file share one
// texture identity and one table slot.
package loader

import (
	"fmt"
	"io"
	"log/slog"
	"maps"
	"path/filepath"
	"strings"
	"sync"

	"github.com/Carmen-Shannon/oxy-ivy/common"
	"github.com/Carmen-Shannon/oxy-ivy/engine/content"
)

// identities hands out the content identities of every import made by one loader.
type identities struct {
	files    fileSource
	nextID   uint64
	nextMesh uint32
	textures map[string]uint64
}

func (ids *identities) next() uint64 {
	ids.nextID++
	return ids.nextID
}

func (ids *identities) mesh() uint32 {
	m := ids.nextMesh
	ids.nextMesh++
	return m
}

// texture returns the identity of the image at key, allocating it on first use.
func (ids *identities) texture(key string) uint64 {
	if id, ok := ids.textures[key]; ok {
		return id
	}
	id := ids.next()
	ids.textures[key] = id
	return id
}

func logger() *slog.Logger {
	return common.ComponentLogger("loader")
}

// loader is the implementation of the Loader interface.
type loader struct {
	mu sync.RWMutex

	ids        identities
	blockCache map[string]content.Block
}

// Loader imports and caches glTF/GLB content blocks.
// Every method is safe for concurrent use.
type Loader interface {
	// Load imports a .gltf or .glb file and caches the block by path.
	// If the path is already cached, the cached block is returned.
	//
	// Parameters:
	//   - path: the file path, relative to the loader's file system when one is set
	//
	// Returns:
	//   - content.Block: the loaded block
	//   - error: error if the extension is unsupported or the document is malformed
	Load(path string) (content.Block, error)

	// LoadReader imports a document from a reader and caches the block by name.
	// External buffer and image URIs resolve relative to name.
	//
	// Parameters:
	//   - name: the cache key and document path
	//   - r: the reader providing the document
	//   - isGLB: true if the reader provides GLB binary data
	//
	// Returns:
	//   - content.Block: the loaded block
	//   - error: error if the document is malformed
	LoadReader(name string, r io.Reader, isGLB bool) (content.Block, error)

	// Get retrieves a cached block by name.
	//
	// Parameters:
	//   - name: the cache key to look up
	//
	// Returns:
	//   - content.Block: the cached block or nil
	Get(name string) content.Block

	// Blocks returns a copy of the block cache.
	//
	// Returns:
	//   - map[string]content.Block: all cached blocks keyed by name
	Blocks() map[string]content.Block

	// Unload removes a block from the cache. The caller passes the returned block to the resource
	// tables' unload notification.
	//
	// Parameters:
	//   - name: the cache key
	//
	// Returns:
	//   - content.Block: the removed block
	//   - bool: false if nothing was cached under name
	Unload(name string) (content.Block, bool)
}

var _ Loader = &loader{}

// NewLoader creates a Loader reading from the operating system's file system unless WithFS is given.
//
// Parameters:
//   - options: a variadic list of LoaderBuilderOption functions to configure the Loader
//
// Returns:
//   - Loader: a new Loader
func NewLoader(options ...LoaderBuilderOption) Loader {
	l := &loader{
		ids: identities{
			files:    osFiles{},
			textures: make(map[string]uint64),
		},
		blockCache: make(map[string]content.Block),
	}
	for _, option := range options {
		option(l)
	}
	return l
}

func (l *loader) Load(path string) (content.Block, error) {
	if b := l.Get(path); b != nil {
		return b, nil
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".gltf", ".glb":
	default:
		return nil, fmt.Errorf("loader: unsupported file type %q", filepath.Ext(path))
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if b, ok := l.blockCache[path]; ok {
		return b, nil
	}

	parser := newGLTFParser(l.ids.files)
	if err := parser.Parse(path); err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}
	return l.importLocked(path, parser)
}

func (l *loader) LoadReader(name string, r io.Reader, isGLB bool) (content.Block, error) {
	if b := l.Get(name); b != nil {
		return b, nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if b, ok := l.blockCache[name]; ok {
		return b, nil
	}

	parser := newGLTFParser(l.ids.files)
	if err := parser.ParseReader(name, r, isGLB); err != nil {
		return nil, fmt.Errorf("failed to load from reader %q: %w", name, err)
	}
	return l.importLocked(name, parser)
}

// importLocked converts a parsed document into a block and caches it. Identities are only
// committed when the whole import succeeds.
func (l *loader) importLocked(name string, parser gltfParser) (content.Block, error) {
	ids := l.ids
	ids.textures = maps.Clone(l.ids.textures)

	materials := newGLTFMaterialExtractor(parser, &ids)
	resolved, err := materials.ExtractAllMaterials()
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", name, err)
	}

	meshes := newGLTFMeshExtractor(parser, &ids, materials, resolved)
	instances, err := meshInstances(parser.Document(), meshes)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", name, err)
	}

	l.ids = ids
	b := content.NewBlock(ids.next(), meshes.Materials(), instances)
	l.blockCache[name] = b

	logger().Debug("content block imported",
		slog.String("name", name),
		slog.Uint64("block", b.ID()),
		slog.Int("materials", len(b.Materials())),
		slog.Int("mesh_instances", len(instances)),
	)
	return b, nil
}

// meshInstances walks the default scene depth first and returns the mesh of every node that has
// one, in node order. A document without scenes instances every mesh once.
func meshInstances(doc *gltfDocument, meshes gltfMeshExtractor) ([]content.Mesh, error) {
	if len(doc.Scenes) == 0 {
		out := make([]content.Mesh, 0, len(doc.Meshes))
		for i := range doc.Meshes {
			m, err := meshes.ExtractMesh(i)
			if err != nil {
				return nil, err
			}
			out = append(out, m)
		}
		return out, nil
	}

	scene := 0
	if doc.Scene != nil {
		scene = *doc.Scene
	}
	if scene < 0 || scene >= len(doc.Scenes) {
		return nil, fmt.Errorf("scene index %d out of range", scene)
	}

	var out []content.Mesh
	visited := make(map[int]bool)
	var walk func(node int) error
	walk = func(node int) error {
		if node < 0 || node >= len(doc.Nodes) {
			return fmt.Errorf("node index %d out of range", node)
		}
		if visited[node] {
			return fmt.Errorf("node %d is reachable twice", node)
		}
		visited[node] = true

		n := &doc.Nodes[node]
		if n.Mesh != nil {
			m, err := meshes.ExtractMesh(*n.Mesh)
			if err != nil {
				return err
			}
			out = append(out, m)
		}
		for _, c := range n.Children {
			if err := walk(c); err != nil {
				return err
			}
		}
		return nil
	}
	for _, root := range doc.Scenes[scene].Nodes {
		if err := walk(root); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (l *loader) Get(name string) content.Block {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.blockCache[name]
}

func (l *loader) Blocks() map[string]content.Block {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return maps.Clone(l.blockCache)
}

func (l *loader) Unload(name string) (content.Block, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	b, ok := l.blockCache[name]
	if ok {
		delete(l.blockCache, name)
	}
	return b, ok
}
