package config

// SchemaFileName is the conventional name of a type descriptor document.
const SchemaFileName = "bindexpr.yaml"

// SchemaFileExtensions are all recognized schema document extensions
var SchemaFileExtensions = []string{".yaml", ".yml"}

// SchemaEnvVar names the environment variable holding the default schema path.
const SchemaEnvVar = "BINDEXPR_SCHEMA"

// DefaultServeAddr is the listen address of the inspection service.
const DefaultServeAddr = "127.0.0.1:7070"

// Bounds of the canonical integer constant cache (inclusive).
const (
	MinCachedInt = -16
	MaxCachedInt = 128
)

// Built-in macro names expanded by the rewrite pipeline
const (
	SelfMacro    = "$self"
	ContextMacro = "$context"
	ArgsMacro    = "$args"
)

// Member names the macros expand to
const (
	SelfMemberName    = "Self"
	ContextMemberName = "Context"
	ArgsMemberName    = "Args"
)

// Metadata keys attached to expression nodes by the rewrite pipeline
const (
	MacroMetadataKey  = "macro"
	FoldedMetadataKey = "folded"
)

// HasSchemaExt checks if a path has a recognized schema extension
func HasSchemaExt(path string) bool {
	for _, ext := range SchemaFileExtensions {
		if len(path) > len(ext) && path[len(path)-len(ext):] == ext {
			return true
		}
	}
	return false
}

// Version is the bindexpr release reported by the CLI.
const Version = "0.1.0"
