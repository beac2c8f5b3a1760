package cli

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/funvibe/bindexpr/internal/catalog"
	"github.com/funvibe/bindexpr/internal/protodesc"
	"github.com/funvibe/bindexpr/internal/registry"
	"github.com/funvibe/bindexpr/internal/schema"
	"github.com/funvibe/bindexpr/internal/utils"
)

// sources are the flags naming where binding types come from.
type sources struct {
	schemas listFlag
	protos  listFlag
	imports listFlag
	db      string
}

func (s *sources) register(fs *flag.FlagSet) {
	fs.Var(&s.schemas, "schema", "schema document (repeatable, comma separated)")
	fs.Var(&s.protos, "proto", "proto file to register as binding types (repeatable)")
	fs.Var(&s.imports, "I", "proto import path (repeatable)")
	fs.StringVar(&s.db, "db", "", "SQLite catalog to load documents from")
}

// load builds a registry from the catalog, the schema documents and the proto
// files, in that order. Without any source the default schema is tried.
func (s *sources) load(ctx context.Context) (*registry.Registry, error) {
	reg := registry.New()

	if s.db != "" {
		c, err := catalog.Open(s.db)
		if err != nil {
			return nil, err
		}
		defer c.Close()
		if _, err := c.Load(ctx, reg, nil); err != nil {
			return nil, fmt.Errorf("loading catalog %s: %w", s.db, err)
		}
	}

	paths := s.schemas
	if len(paths) == 0 && len(s.protos) == 0 && s.db == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("cannot determine working directory: %w", err)
		}
		if found := utils.FindSchema(cwd, ""); found != "" {
			paths = listFlag{found}
		}
	}
	if len(paths) > 0 {
		var doc *schema.Document
		for _, p := range paths {
			d, err := schema.LoadFile(p)
			if err != nil {
				return nil, err
			}
			if doc == nil {
				doc = d
				continue
			}
			doc.Merge(d)
		}
		if _, err := schema.Load(reg, doc, nil); err != nil {
			return nil, fmt.Errorf("loading %s: %w", strings.Join(paths, ", "), err)
		}
	}

	if len(s.protos) > 0 {
		imports := s.imports
		if len(imports) == 0 {
			imports = protoImportDirs(s.protos)
		}
		files := make([]string, len(s.protos))
		for i, p := range s.protos {
			files[i] = relativeTo(imports, p)
		}
		fds, err := protodesc.ParseFiles(imports, files...)
		if err != nil {
			return nil, err
		}
		if _, err := protodesc.Register(reg, fds...); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

// protoImportDirs uses the directories of the proto files as import paths.
func protoImportDirs(files []string) []string {
	seen := map[string]bool{}
	var dirs []string
	for _, f := range files {
		d := filepath.Dir(f)
		if !seen[d] {
			seen[d] = true
			dirs = append(dirs, d)
		}
	}
	return dirs
}

func relativeTo(dirs []string, file string) string {
	for _, d := range dirs {
		if rel, err := filepath.Rel(d, file); err == nil && !strings.HasPrefix(rel, "..") {
			return rel
		}
	}
	return file
}

// listFlag collects repeated and comma separated flag values.
type listFlag []string

func (l *listFlag) String() string { return strings.Join(*l, ",") }

func (l *listFlag) Set(v string) error {
	*l = append(*l, splitTopLevel(v)...)
	return nil
}

// splitTopLevel splits s on commas that are not nested in <> or ().
func splitTopLevel(s string) []string {
	var (
		parts []string
		depth int
		start int
	)
	for i, r := range s {
		switch r {
		case '<', '(':
			depth++
		case '>', ')':
			depth--
		case ',':
			if depth == 0 {
				if p := strings.TrimSpace(s[start:i]); p != "" {
					parts = append(parts, p)
				}
				start = i + 1
			}
		}
	}
	if p := strings.TrimSpace(s[start:]); p != "" {
		parts = append(parts, p)
	}
	return parts
}
