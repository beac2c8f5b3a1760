package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/funvibe/bindexpr/internal/catalog"
	"github.com/funvibe/bindexpr/internal/config"
	"github.com/funvibe/bindexpr/internal/inspect"
	"github.com/funvibe/bindexpr/internal/rpc"
	"github.com/funvibe/bindexpr/internal/schema"
)

func newFlagSet(e *env, name, usage string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(e.stderr)
	fs.Usage = func() {
		fmt.Fprintf(e.stderr, "Usage: bindexpr %s %s\n\nFlags:\n", name, usage)
		fs.PrintDefaults()
	}
	return fs
}

// parse returns an exit code when parsing ends the command.
func parse(fs *flag.FlagSet, args []string) (int, bool) {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK, false
		}
		return exitUsage, false
	}
	return 0, true
}

// querier answers resolve and describe locally or against a remote service.
type querier interface {
	Resolve(ctx context.Context, req rpc.ResolveRequest) (*rpc.Resolution, error)
	Describe(ctx context.Context, typeName string) (*rpc.Description, error)
}

func openQuerier(ctx context.Context, src *sources, remote string) (querier, func(), error) {
	if remote != "" {
		c, err := rpc.Dial(remote)
		if err != nil {
			return nil, nil, err
		}
		return c, func() { c.Close() }, nil
	}
	reg, err := src.load(ctx)
	if err != nil {
		return nil, nil, err
	}
	return rpc.NewService(reg, log.New(io.Discard, "", 0)), func() {}, nil
}

func runResolve(e *env, args []string) int {
	var (
		src      sources
		callArgs listFlag
		typeArgs listFlag
		req      rpc.ResolveRequest
		remote   string
	)
	fs := newFlagSet(e, "resolve", "-type T -member M [-call] [-args int,null,lambda/1]")
	src.register(fs)
	fs.StringVar(&req.Type, "type", "", "type to resolve on, e.g. List<int>")
	fs.StringVar(&req.Name, "member", "", `member name, or "[]" for an indexer`)
	fs.Var(&callArgs, "args", "argument types: a type, null, lambda/N or lambda:func(T) R")
	fs.Var(&typeArgs, "typeargs", "explicit method type arguments")
	fs.BoolVar(&req.Call, "call", false, "resolve a method call (implied by -args or -typeargs)")
	fs.BoolVar(&req.Static, "static", false, "resolve a static member")
	fs.StringVar(&remote, "remote", "", "resolve against an Inspector service at this address")
	if code, ok := parse(fs, args); !ok {
		return code
	}
	if req.Type == "" || req.Name == "" {
		fs.Usage()
		return exitUsage
	}

	specs, err := argumentSpecs(callArgs)
	if err != nil {
		return e.errorf("%v", err)
	}
	req.Args = specs
	req.TypeArgs = typeArgs
	if req.Name != "[]" && (len(specs) > 0 || len(typeArgs) > 0) {
		req.Call = true
	}

	ctx := context.Background()
	q, done, err := openQuerier(ctx, &src, remote)
	if err != nil {
		return e.errorf("%v", err)
	}
	defer done()

	res, err := q.Resolve(ctx, req)
	if err != nil {
		return e.errorf("%v", err)
	}
	printResolution(e, res)
	return exitOK
}

// argumentSpecs parses -args entries.
func argumentSpecs(values []string) ([]rpc.ArgumentSpec, error) {
	specs := make([]rpc.ArgumentSpec, 0, len(values))
	for _, v := range values {
		switch {
		case v == "null":
			specs = append(specs, rpc.ArgumentSpec{Null: true})
		case strings.HasPrefix(v, "lambda/"):
			n, err := strconv.Atoi(strings.TrimPrefix(v, "lambda/"))
			if err != nil || n < 0 {
				return nil, fmt.Errorf("bad lambda argument %q", v)
			}
			specs = append(specs, rpc.ArgumentSpec{Lambda: true, Arity: n})
		case strings.HasPrefix(v, "lambda:"):
			specs = append(specs, rpc.ArgumentSpec{Lambda: true, Type: strings.TrimPrefix(v, "lambda:")})
		default:
			specs = append(specs, rpc.ArgumentSpec{Type: v})
		}
	}
	return specs, nil
}

func runDescribe(e *env, args []string) int {
	var (
		src    sources
		typ    string
		remote string
	)
	fs := newFlagSet(e, "describe", "-type T")
	src.register(fs)
	fs.StringVar(&typ, "type", "", "type to describe")
	fs.StringVar(&remote, "remote", "", "describe using an Inspector service at this address")
	if code, ok := parse(fs, args); !ok {
		return code
	}
	if typ == "" {
		if fs.NArg() != 1 {
			fs.Usage()
			return exitUsage
		}
		typ = fs.Arg(0)
	}

	ctx := context.Background()
	q, done, err := openQuerier(ctx, &src, remote)
	if err != nil {
		return e.errorf("%v", err)
	}
	defer done()

	d, err := q.Describe(ctx, typ)
	if err != nil {
		return e.errorf("%v", err)
	}
	printDescription(e, d)
	return exitOK
}

func runGen(e *env, args []string) int {
	var (
		cfg   inspect.Config
		types listFlag
		out   string
	)
	fs := newFlagSet(e, "gen", "[-types A,B] [-functions] [-o file] <package patterns>")
	fs.Var(&types, "types", "only describe these types")
	fs.BoolVar(&cfg.Functions, "functions", false, "describe package functions as extension methods")
	fs.StringVar(&cfg.Dir, "C", "", "directory to resolve patterns in")
	fs.StringVar(&out, "o", "", "write the document to this file instead of stdout")
	if code, ok := parse(fs, args); !ok {
		return code
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return exitUsage
	}
	cfg.Types = types

	doc, err := inspect.Load(cfg, fs.Args()...)
	if err != nil {
		return e.errorf("%v", err)
	}
	data, err := schema.Encode(doc)
	if err != nil {
		return e.errorf("%v", err)
	}
	if out == "" {
		e.stdout.Write(data)
		return exitOK
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return e.errorf("writing %s: %v", out, err)
	}
	fmt.Fprintf(e.stderr, "Wrote %d types to %s\n", len(doc.Types), out)
	return exitOK
}

func runCatalog(e *env, args []string) int {
	var db string
	fs := newFlagSet(e, "catalog", "-db file <add NAME FILE | list | find MEMBER | show NAME | rm NAME>")
	fs.StringVar(&db, "db", "", "SQLite catalog file")
	if code, ok := parse(fs, args); !ok {
		return code
	}
	rest := fs.Args()
	if db == "" || len(rest) == 0 {
		fs.Usage()
		return exitUsage
	}

	want := map[string]int{"add": 3, "list": 1, "find": 2, "show": 2, "rm": 2}
	n, known := want[rest[0]]
	if !known || len(rest) != n {
		fs.Usage()
		return exitUsage
	}

	c, err := catalog.Open(db)
	if err != nil {
		return e.errorf("%v", err)
	}
	defer c.Close()
	ctx := context.Background()

	switch rest[0] {
	case "add":
		doc, err := schema.LoadFile(rest[2])
		if err != nil {
			return e.errorf("%v", err)
		}
		changed, err := c.Store(ctx, rest[1], doc)
		if err != nil {
			return e.errorf("%v", err)
		}
		if changed {
			fmt.Fprintf(e.stdout, "stored %s (%d types)\n", rest[1], len(doc.Types))
		} else {
			fmt.Fprintf(e.stdout, "%s unchanged\n", rest[1])
		}
	case "list":
		entries, err := c.Documents(ctx)
		if err != nil {
			return e.errorf("%v", err)
		}
		for _, en := range entries {
			fmt.Fprintf(e.stdout, "%s  %s\n", en.Fingerprint, e.color.name(en.Name))
		}
	case "find":
		members, err := c.FindMembers(ctx, rest[1])
		if err != nil {
			return e.errorf("%v", err)
		}
		if len(members) == 0 {
			return e.errorf("no member named %s", rest[1])
		}
		tw := tabwriter.NewWriter(e.stdout, 0, 4, 2, ' ', 0)
		for _, m := range members {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", m.Document, m.Type, m.Kind, m.Signature)
		}
		tw.Flush()
	case "show":
		doc, err := c.Document(ctx, rest[1])
		if err != nil {
			return e.errorf("%v", err)
		}
		data, err := schema.Encode(doc)
		if err != nil {
			return e.errorf("%v", err)
		}
		e.stdout.Write(data)
	case "rm":
		if err := c.Remove(ctx, rest[1]); err != nil {
			return e.errorf("%v", err)
		}
		fmt.Fprintf(e.stdout, "removed %s\n", rest[1])
	}
	return exitOK
}

func runServe(e *env, args []string) int {
	var (
		src  sources
		addr string
	)
	fs := newFlagSet(e, "serve", "[-addr host:port]")
	src.register(fs)
	fs.StringVar(&addr, "addr", config.DefaultServeAddr, "listen address")
	if code, ok := parse(fs, args); !ok {
		return code
	}

	reg, err := src.load(context.Background())
	if err != nil {
		return e.errorf("%v", err)
	}
	logger := log.New(e.stderr, "bindexpr: ", log.LstdFlags)
	srv, err := rpc.NewServer(rpc.NewService(reg, logger))
	if err != nil {
		return e.errorf("%v", err)
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(stop)
	go func() {
		<-stop
		logger.Printf("shutting down")
		srv.GracefulStop()
	}()

	logger.Printf("serving %s on %s (%d types)", rpc.ServiceName, addr, len(reg.Names()))
	if err := srv.ListenAndServe(addr); err != nil {
		return e.errorf("%v", err)
	}
	return exitOK
}
