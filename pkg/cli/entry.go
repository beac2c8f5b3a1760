// Package cli implements the bindexpr command line.
package cli

import (
	"fmt"
	"io"
	"os"
	"runtime/debug"

	"github.com/funvibe/bindexpr/internal/config"
)

const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

// command is one sub-command. It returns an exit code.
type command struct {
	name    string
	summary string
	run     func(e *env, args []string) int
}

var commands = []command{
	{"resolve", "resolve a member, indexer or method call on a type", runResolve},
	{"describe", "list the members visible on a type", runDescribe},
	{"gen", "describe exported Go types as a schema document", runGen},
	{"catalog", "store, list and search schema documents in a SQLite catalog", runCatalog},
	{"serve", "serve the Inspector gRPC service", runServe},
}

// env carries the output streams of one invocation.
type env struct {
	stdout io.Writer
	stderr io.Writer
	color  palette
}

func (e *env) errorf(format string, args ...any) int {
	fmt.Fprintf(e.stderr, "Error: "+format+"\n", args...)
	return exitError
}

// Run executes the command line in args (without the program name) and
// returns the process exit code.
func Run(args []string, stdout, stderr io.Writer) (code int) {
	e := &env{stdout: stdout, stderr: stderr, color: paletteFor(stdout)}

	defer func() {
		if r := recover(); r != nil {
			if os.Getenv("DEBUG") == "1" {
				fmt.Fprintf(stderr, "%v\n%s", r, debug.Stack())
			}
			fmt.Fprintf(stderr, "Internal error: %v\n", r)
			code = exitError
		}
	}()

	if len(args) == 0 {
		printUsage(e.stderr)
		return exitUsage
	}
	switch args[0] {
	case "-h", "-help", "--help", "help":
		printUsage(e.stdout)
		return exitOK
	case "-v", "-version", "--version", "version":
		fmt.Fprintln(e.stdout, "bindexpr "+config.Version)
		return exitOK
	}
	for _, c := range commands {
		if c.name == args[0] {
			return c.run(e, args[1:])
		}
	}
	fmt.Fprintf(e.stderr, "Unknown command %q\n\n", args[0])
	printUsage(e.stderr)
	return exitUsage
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: bindexpr <command> [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	for _, c := range commands {
		fmt.Fprintf(w, "  %-9s %s\n", c.name, c.summary)
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Types come from -schema (default $%s or ./%s), -proto and -db.\n", config.SchemaEnvVar, config.SchemaFileName)
	fmt.Fprintln(w, "Run 'bindexpr <command> -h' for the flags of a command.")
}
