package loader

import (
	"io/fs"

	"github.com/Carmen-Shannon/oxy-ivy/engine/content"
)

// LoaderBuilderOption is a functional option for configuring a Loader via NewLoader.
type LoaderBuilderOption func(*loader)

// WithFS is an option builder that reads documents and their external buffers from fsys.
//
// Parameters:
//   - fsys: the file system; paths passed to Load are slash separated names within it
//
// Returns:
//   - LoaderBuilderOption: a function that applies the file system option to a loader
func WithFS(fsys fs.FS) LoaderBuilderOption {
	return func(l *loader) {
		l.ids.files = fsFiles{fsys: fsys}
	}
}

// WithFirstMeshIndex is an option builder that starts scene-wide mesh indices at first, leaving
// the lower indices to meshes the host creates itself.
//
// Parameters:
//   - first: the first mesh index handed out
//
// Returns:
//   - LoaderBuilderOption: a function that applies the option to a loader
func WithFirstMeshIndex(first uint32) LoaderBuilderOption {
	return func(l *loader) {
		l.ids.nextMesh = first
	}
}

// WithIDBase is an option builder that starts content identities above base.
//
// Parameters:
//   - base: identities are allocated from base+1
//
// Returns:
//   - LoaderBuilderOption: a function that applies the option to a loader
func WithIDBase(base uint64) LoaderBuilderOption {
	return func(l *loader) {
		l.ids.nextID = base
	}
}

// WithBlock is an option builder that pre-populates the block cache.
//
// Parameters:
//   - key: the cache key for the block
//   - block: the block to cache
//
// Returns:
//   - LoaderBuilderOption: a function that applies the block option to a loader
func WithBlock(key string, block content.Block) LoaderBuilderOption {
	return func(l *loader) {
		l.blockCache[key] = block
	}
}
