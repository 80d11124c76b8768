package shader

// CompilerOption is a functional option applied to a naga compiler during construction via NewNagaCompiler.
type CompilerOption func(*nagaCompiler)

// WithInclude registers WGSL source injected wherever a shader declares //@ivy:include <name>.
//
// Parameters:
//   - name: the include name
//   - source: the WGSL source
//
// Returns:
//   - CompilerOption: a function that registers the include on a compiler
func WithInclude(name, source string) CompilerOption {
	return func(c *nagaCompiler) {
		c.includes[name] = source
	}
}

// WithSourceExtension sets the extension appended to module names that have none. The default is ".wgsl".
//
// Parameters:
//   - ext: the extension including the leading dot
//
// Returns:
//   - CompilerOption: a function that sets the extension on a compiler
func WithSourceExtension(ext string) CompilerOption {
	return func(c *nagaCompiler) {
		c.extension = ext
	}
}
