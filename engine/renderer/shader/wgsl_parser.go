package shader

import (
	"regexp"
	"strings"
)

var (
	// entryRegex matches a shader stage attribute and captures the stage and the function name.
	entryRegex = regexp.MustCompile(`(?s)@(compute|fragment|vertex)\b[^{;]*?\bfn\s+(\w+)`)
)

// parseEntryPoints extracts every entry point of WGSL source, keyed by function name, with the
// stage attribute it was declared with ("compute", "fragment" or "vertex").
//
// Parameters:
//   - source: the WGSL source
//
// Returns:
//   - map[string]string: entry point name to stage attribute
func parseEntryPoints(source string) map[string]string {
	cleaned := stripComments(source)
	entries := make(map[string]string)
	for _, m := range entryRegex.FindAllStringSubmatch(cleaned, -1) {
		entries[m[2]] = m[1]
	}
	return entries
}

// stripComments removes all line and block comments from WGSL source.
//
// Parameters:
//   - source: raw WGSL source string
//
// Returns:
//   - string: source with all comments removed
func stripComments(source string) string {
	return stripLineComments(stripBlockComments(source))
}

// stripLineComments removes single-line // comments from WGSL source.
func stripLineComments(source string) string {
	var sb strings.Builder
	for line := range strings.SplitSeq(source, "\n") {
		if idx := strings.Index(line, "//"); idx >= 0 {
			line = line[:idx]
		}
		sb.WriteString(line)
		sb.WriteByte('\n')
	}
	return sb.String()
}

// stripBlockComments removes block comments (/* ... */) from WGSL source, handling nested
// block comments per the WGSL specification.
func stripBlockComments(source string) string {
	var sb strings.Builder
	sb.Grow(len(source))
	depth := 0
	i := 0
	for i < len(source) {
		if i+1 < len(source) {
			if source[i] == '/' && source[i+1] == '*' {
				depth++
				i += 2
				continue
			}
			if source[i] == '*' && source[i+1] == '/' {
				if depth > 0 {
					depth--
				}
				i += 2
				continue
			}
		}
		if depth == 0 {
			sb.WriteByte(source[i])
		}
		i++
	}
	return sb.String()
}
