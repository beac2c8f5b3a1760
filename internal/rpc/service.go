// Package rpc exposes member resolution over gRPC. Service holds the logic;
// Server and Client carry it over the wire using dynamic messages built from
// the embedded inspector.proto.
package rpc

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/funvibe/bindexpr/internal/registry"
	"github.com/funvibe/bindexpr/internal/resolver"
	"github.com/funvibe/bindexpr/internal/typesystem"
)

// ArgumentSpec is the textual form of a resolver.Argument.
type ArgumentSpec struct {
	Type   string
	Lambda bool
	Arity  int
	Null   bool
}

type ResolveRequest struct {
	Type     string
	Name     string
	TypeArgs []string
	Args     []ArgumentSpec
	Static   bool
	// Call resolves a method. Otherwise Name is a property, or "[]" for an
	// indexer taking Args.
	Call bool
}

// Resolution is the answer to a ResolveRequest.
type Resolution struct {
	RequestID  string
	Kind       string // property, indexer or method
	Signature  string
	State      string
	Extension  bool
	Open       []string
	ResultType string
}

type Member struct {
	Name      string
	Kind      string
	Signature string
	Static    bool
}

// Description lists the members visible on a type.
type Description struct {
	RequestID  string
	Type       string
	Kind       string
	Base       string
	Interfaces []string
	Members    []Member
}

// Service answers resolve and describe queries against a registry.
type Service struct {
	reg *registry.Registry
	res *resolver.Resolver
	log *log.Logger
}

// NewService creates a service. A nil logger uses log.Default().
func NewService(reg *registry.Registry, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.Default()
	}
	return &Service{reg: reg, res: resolver.ForRegistry(reg), log: logger}
}

func (s *Service) Registry() *registry.Registry { return s.reg }

type requestIDKey struct{}

// WithRequestID attaches a request id to ctx.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestID returns the request id carried by ctx, or a new one.
func RequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok && id != "" {
		return id
	}
	return uuid.NewString()
}

// Resolve resolves a member, indexer or method call.
func (s *Service) Resolve(ctx context.Context, req ResolveRequest) (*Resolution, error) {
	id := RequestID(ctx)
	start := time.Now()
	out, err := s.resolve(req)
	if err != nil {
		s.log.Printf("[%s] resolve %s.%s: %v", id, req.Type, req.Name, err)
		return nil, err
	}
	out.RequestID = id
	s.log.Printf("[%s] resolve %s.%s -> %s (%s)", id, req.Type, req.Name, out.Signature, time.Since(start))
	return out, nil
}

func (s *Service) resolve(req ResolveRequest) (*Resolution, error) {
	t, err := s.reg.ParseType(req.Type)
	if err != nil {
		return nil, err
	}
	args, err := s.arguments(req.Args)
	if err != nil {
		return nil, err
	}

	switch {
	case req.Call:
		call := resolver.Call{Type: t, Name: req.Name, Args: args, Static: req.Static}
		for _, src := range req.TypeArgs {
			ta, err := s.reg.ParseType(src)
			if err != nil {
				return nil, err
			}
			call.TypeArgs = append(call.TypeArgs, ta)
		}
		m, err := s.res.ResolveMethod(call)
		if err != nil {
			return nil, err
		}
		out := &Resolution{
			Kind:      "method",
			Signature: m.Method.Signature(),
			State:     m.State.String(),
			Extension: m.Extension,
		}
		for _, v := range m.Open {
			out.Open = append(out.Open, v.Name)
		}
		if m.Method.Result != nil {
			out.ResultType = m.Method.Result.String()
		}
		return out, nil

	case req.Name == "[]":
		ix, err := s.res.ResolveIndexer(t, args, req.Static)
		if err != nil {
			return nil, err
		}
		return &Resolution{
			Kind:       "indexer",
			Signature:  indexerSignature(ix),
			State:      resolver.Resolved.String(),
			ResultType: ix.Type.String(),
		}, nil
	}

	p, err := s.res.ResolveMember(t, req.Name, req.Static)
	if err != nil {
		return nil, err
	}
	return &Resolution{
		Kind:       "property",
		Signature:  propertySignature(p),
		State:      resolver.Resolved.String(),
		ResultType: p.Type.String(),
	}, nil
}

func (s *Service) arguments(specs []ArgumentSpec) ([]resolver.Argument, error) {
	args := make([]resolver.Argument, len(specs))
	for i, a := range specs {
		switch {
		case a.Null:
			args[i] = resolver.Null()
		case a.Lambda && a.Type == "":
			args[i] = resolver.Lambda(a.Arity)
		default:
			t, err := s.reg.ParseType(a.Type)
			if err != nil {
				return nil, fmt.Errorf("argument %d: %w", i, err)
			}
			if !a.Lambda {
				args[i] = resolver.Arg(t)
				continue
			}
			fn, ok := typesystem.DelegateOf(t)
			if !ok {
				return nil, fmt.Errorf("argument %d: lambda type %s is not a delegate", i, t)
			}
			args[i] = resolver.TypedLambda(fn)
		}
	}
	return args, nil
}

// Describe lists the properties, methods, indexers and applicable extension
// methods of a type.
func (s *Service) Describe(ctx context.Context, typeName string) (*Description, error) {
	id := RequestID(ctx)
	t, err := s.reg.ParseType(typeName)
	if err != nil {
		s.log.Printf("[%s] describe %s: %v", id, typeName, err)
		return nil, err
	}
	out := &Description{RequestID: id, Type: t.String()}
	switch n := t.(type) {
	case *typesystem.TNamed:
		out.Kind = n.Kind.String()
	case typesystem.TApp:
		out.Kind = n.Constructor.Kind.String()
	case typesystem.TArray:
		out.Kind = "array"
	}
	if base := typesystem.BaseOf(t); base != nil && base != typesystem.Type(typesystem.Object) {
		out.Base = base.String()
	}
	for _, i := range typesystem.InterfacesOf(t) {
		out.Interfaces = append(out.Interfaces, i.String())
	}

	for _, static := range []bool{false, true} {
		for _, p := range s.reg.Properties(t, static) {
			out.Members = append(out.Members, Member{Name: p.Name, Kind: "property", Signature: propertySignature(p), Static: static})
		}
		seen := map[string]bool{}
		for _, name := range s.reg.MemberNames(t, static) {
			// Interface declarations repeat the implementing overloads.
			for _, m := range s.reg.Methods(t, name, static) {
				if sig := m.Signature(); !seen[sig] {
					seen[sig] = true
					out.Members = append(out.Members, Member{Name: m.Name, Kind: "method", Signature: sig, Static: static})
				}
			}
		}
		for _, ix := range s.reg.Indexers(t, static) {
			out.Members = append(out.Members, Member{Name: "[]", Kind: "indexer", Signature: indexerSignature(ix), Static: static})
		}
	}
	var ext []Member
	for _, m := range s.reg.Extensions().Methods(t) {
		ext = append(ext, Member{Name: m.Name, Kind: "extension", Signature: m.Signature(), Static: false})
	}
	sort.SliceStable(ext, func(i, j int) bool { return ext[i].Name < ext[j].Name })
	out.Members = append(out.Members, ext...)

	s.log.Printf("[%s] describe %s: %d members", id, typeName, len(out.Members))
	return out, nil
}

func propertySignature(p *registry.Property) string {
	sig := p.Name + " " + p.Type.String()
	if !p.CanWrite() {
		sig += " readonly"
	}
	return sig
}

func indexerSignature(ix *registry.Indexer) string {
	params := ""
	for i, p := range ix.Params {
		if i > 0 {
			params += ", "
		}
		params += p.String()
	}
	sig := "[" + params + "] " + ix.Type.String()
	if !ix.CanWrite() {
		sig += " readonly"
	}
	return sig
}
