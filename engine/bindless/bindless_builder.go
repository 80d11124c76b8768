package bindless

import (
	"math"
	"path"
	"strings"
)

const (
	// DefaultStemMesh is the mesh path suffix of the stem archetype.
	DefaultStemMesh = "media/Ivy/Stem"
	// DefaultLeafMesh is the mesh path suffix of the leaf archetype.
	DefaultLeafMesh = "media/Ivy/Leaf"
)

// ManagerOption is a functional option applied to a Manager during construction via NewManager.
type ManagerOption func(*manager)

// WithArchetypeMeshes sets the mesh path suffixes whose first surface becomes the stem and leaf
// archetype indices. Empty values keep the defaults.
//
// Parameters:
//   - stem: the stem mesh path suffix
//   - leaf: the leaf mesh path suffix
//
// Returns:
//   - ManagerOption: a function that sets the archetype meshes
func WithArchetypeMeshes(stem, leaf string) ManagerOption {
	return func(m *manager) {
		if stem != "" {
			m.stemMesh = stem
		}
		if leaf != "" {
			m.leafMesh = leaf
		}
	}
}

// WithMaxInstances sets the largest instance array the manager grows to. A mesh whose index does
// not fit fails its block with a *CapacityError.
//
// Parameters:
//   - n: the instance capacity, clamped to [1, math.MaxInt32]
//
// Returns:
//   - ManagerOption: a function that sets the instance capacity
func WithMaxInstances(n int) ManagerOption {
	return func(m *manager) {
		m.maxInstances = min(max(n, 1), math.MaxInt32)
	}
}

// normalizeMeshPath converts separators to '/' and drops leading relative segments.
func normalizeMeshPath(p string) string {
	p = path.Clean(strings.ReplaceAll(p, `\`, "/"))
	for strings.HasPrefix(p, "../") {
		p = p[3:]
	}
	return strings.TrimPrefix(p, "./")
}

// matchesMesh reports whether name ends with the path suffix on a segment boundary.
func matchesMesh(name, suffix string) bool {
	n, s := normalizeMeshPath(name), normalizeMeshPath(suffix)
	return n == s || strings.HasSuffix(n, "/"+s)
}
