package utils

import (
	"os"
	"path/filepath"

	"github.com/funvibe/bindexpr/internal/config"
)

// FindSchema returns the schema document to use: the explicit path when given,
// otherwise $BINDEXPR_SCHEMA, otherwise bindexpr.yaml in dir if it exists.
func FindSchema(dir, explicit string) string {
	if explicit != "" {
		return explicit
	}
	if env := os.Getenv(config.SchemaEnvVar); env != "" {
		return env
	}
	candidate := filepath.Join(dir, config.SchemaFileName)
	if _, err := os.Stat(candidate); err == nil {
		return candidate
	}
	return ""
}
