package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"github.com/funvibe/bindexpr/internal/rpc"
)

const (
	ansiReset = "\033[0m"
	ansiBold  = "\033[1m"
	ansiDim   = "\033[2m"
	ansiCyan  = "\033[36m"
	ansiGreen = "\033[32m"
	ansiYell  = "\033[33m"
)

// palette wraps text in ANSI colors when enabled.
type palette struct{ enabled bool }

// paletteFor enables color for terminals unless NO_COLOR is set or TERM is
// dumb.
func paletteFor(w io.Writer) palette {
	if _, ok := os.LookupEnv("NO_COLOR"); ok || os.Getenv("TERM") == "dumb" {
		return palette{}
	}
	f, ok := w.(*os.File)
	if !ok {
		return palette{}
	}
	return palette{enabled: isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())}
}

func (p palette) wrap(code, s string) string {
	if !p.enabled || s == "" {
		return s
	}
	return code + s + ansiReset
}

func (p palette) name(s string) string  { return p.wrap(ansiBold, s) }
func (p palette) kind(s string) string  { return p.wrap(ansiCyan, s) }
func (p palette) sig(s string) string   { return p.wrap(ansiGreen, s) }
func (p palette) note(s string) string  { return p.wrap(ansiDim, s) }
func (p palette) state(s string) string { return p.wrap(ansiYell, s) }

func printResolution(e *env, r *rpc.Resolution) {
	fmt.Fprintf(e.stdout, "%-9s %s\n", e.color.kind(r.Kind), e.color.sig(r.Signature))
	if r.Extension {
		fmt.Fprintf(e.stdout, "          %s\n", e.color.note("extension method"))
	}
	if r.State != "resolved" {
		fmt.Fprintf(e.stdout, "          %s: open %s\n", e.color.state(r.State), strings.Join(r.Open, ", "))
	}
	if r.ResultType != "" {
		fmt.Fprintf(e.stdout, "          %s %s\n", e.color.note("type"), r.ResultType)
	}
}

func printDescription(e *env, d *rpc.Description) {
	header := e.color.name(d.Type)
	if d.Kind != "" {
		header = d.Kind + " " + header
	}
	if d.Base != "" {
		header += " : " + d.Base
	}
	if len(d.Interfaces) > 0 {
		header += " implements " + strings.Join(d.Interfaces, ", ")
	}
	fmt.Fprintln(e.stdout, header)
	for _, m := range d.Members {
		kind := m.Kind
		if m.Static {
			kind = "static " + kind
		}
		fmt.Fprintf(e.stdout, "  %-16s %s\n", e.color.kind(kind), e.color.sig(m.Signature))
	}
}
