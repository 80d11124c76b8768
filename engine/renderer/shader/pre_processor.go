package shader

import (
	"fmt"
	"maps"
	"strings"
)

// preProcessor is the implementation of the PreProcessor interface.
type preProcessor struct {
	// includes maps @ivy:include names to the WGSL source injected in their place.
	includes map[string]string

	// declarations accumulates the annotations seen during a Process call.
	declarations []Annotation
}

// PreProcessor expands @ivy: annotations in WGSL source.
type PreProcessor interface {
	// Process replaces every @ivy:include annotation with its registered source. Each name is
	// injected at most once per call; repeated includes are dropped.
	//
	// Parameters:
	//   - source: the raw WGSL source
	//
	// Returns:
	//   - string: the processed source
	//   - error: an error if an annotation is malformed or names an unregistered include
	Process(source string) (string, error)

	// Declarations returns the annotations collected during the most recent Process call, in
	// source order.
	//
	// Returns:
	//   - []Annotation: the annotations
	Declarations() []Annotation
}

var _ PreProcessor = &preProcessor{}

// NewPreProcessor creates a PreProcessor that resolves includes from the given registry.
//
// Parameters:
//   - includes: include name to WGSL source
//
// Returns:
//   - PreProcessor: a ready-to-use pre-processor instance
func NewPreProcessor(includes map[string]string) PreProcessor {
	return &preProcessor{includes: maps.Clone(includes)}
}

func (p *preProcessor) Process(source string) (string, error) {
	p.declarations = p.declarations[:0]

	lines := strings.Split(source, "\n")
	out := make([]string, 0, len(lines))
	seen := make(map[string]bool)

	for i, line := range lines {
		a, err := parseAnnotation(line, i+1)
		if err != nil {
			return "", err
		}
		if a == nil {
			out = append(out, line)
			continue
		}
		p.declarations = append(p.declarations, *a)

		switch a.Type {
		case AnnotationTypeInclude:
			name := a.Args[0]
			src, ok := p.includes[name]
			if !ok {
				return "", fmt.Errorf("line %d: unknown @ivy:include argument %q", i+1, name)
			}
			if seen[name] {
				continue
			}
			seen[name] = true
			out = append(out, src)
		default:
			return "", fmt.Errorf("line %d: unknown annotation type %q", i+1, a.Type)
		}
	}
	return strings.Join(out, "\n"), nil
}

func (p *preProcessor) Declarations() []Annotation {
	return p.declarations
}
