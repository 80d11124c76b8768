// annotations.go defines the annotation types and parser for the Ivy WGSL pre-processor.
// Annotations are WGSL line comments beginning with @ivy: that pull shared declarations
// (binding slot constants, record layouts) into a shader so the generation stages and the
// Go table builders read the same numbers.
package shader

import (
	"fmt"
	"strings"
)

// annotationPrefix is the marker that identifies an Ivy annotation within a WGSL comment line.
const annotationPrefix = "@ivy:"

// AnnotationType identifies the kind of an annotation.
type AnnotationType string

const (
	// AnnotationTypeInclude injects a registered WGSL source fragment in place of the annotation.
	//
	// Syntax: //@ivy:include <name>
	//
	// Example: //@ivy:include bindings
	AnnotationTypeInclude AnnotationType = "include"
)

// Annotation is a single parsed @ivy: annotation.
type Annotation struct {
	// Type is the annotation kind.
	Type AnnotationType
	// Args are the whitespace separated arguments after the type.
	Args []string
	// Line is the 1-based source line of the annotation.
	Line int
}

// parseAnnotation attempts to parse a single line of WGSL source as an @ivy: annotation.
// Lines that are not comments, or comments without the prefix, return nil and no error.
//
// Parameters:
//   - line: the raw WGSL source line
//   - lineNum: the 1-based line number used in error messages
//
// Returns:
//   - *Annotation: the parsed annotation, or nil if the line is not an annotation
//   - error: an error if the line is a malformed annotation
func parseAnnotation(line string, lineNum int) (*Annotation, error) {
	trimmed := strings.TrimSpace(line)
	comment, ok := strings.CutPrefix(trimmed, "//")
	if !ok {
		return nil, nil
	}
	_, after, ok := strings.Cut(comment, annotationPrefix)
	if !ok {
		return nil, nil
	}
	fields := strings.Fields(after)
	if len(fields) == 0 {
		return nil, fmt.Errorf("line %d: empty @ivy annotation", lineNum)
	}

	a := &Annotation{Type: AnnotationType(fields[0]), Args: fields[1:], Line: lineNum}
	switch a.Type {
	case AnnotationTypeInclude:
		if len(a.Args) != 1 {
			return nil, fmt.Errorf("line %d: @ivy include annotation requires exactly one argument", lineNum)
		}
	default:
		return nil, fmt.Errorf("line %d: unknown @ivy annotation type %q", lineNum, fields[0])
	}
	return a, nil
}
