package rpc

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/google/uuid"
	"github.com/jhump/protoreflect/desc"
	"github.com/jhump/protoreflect/dynamic"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/funvibe/bindexpr/internal/resolver"
	"github.com/funvibe/bindexpr/internal/typesystem"
)

// RequestIDHeader carries the request id in gRPC metadata.
const RequestIDHeader = "x-request-id"

// Server serves a Service as bindexpr.v1.Inspector.
type Server struct {
	svc  *Service
	grpc *grpc.Server
}

type unaryHandler func(ctx context.Context, in *dynamic.Message) (*dynamic.Message, error)

// NewServer registers svc on a new gRPC server.
func NewServer(svc *Service, opts ...grpc.ServerOption) (*Server, error) {
	sd, err := ServiceDescriptor()
	if err != nil {
		return nil, err
	}
	s := &Server{svc: svc}
	opts = append([]grpc.ServerOption{grpc.ChainUnaryInterceptor(s.requestID, s.logCalls)}, opts...)
	s.grpc = grpc.NewServer(opts...)

	handlers := map[string]unaryHandler{
		"Resolve":  s.resolve,
		"Describe": s.describe,
	}
	gd := &grpc.ServiceDesc{
		ServiceName: ServiceName,
		HandlerType: (*any)(nil),
		Metadata:    sd.GetFile().GetName(),
	}
	for _, method := range sd.GetMethods() {
		md := method
		h, ok := handlers[md.GetName()]
		if !ok {
			continue
		}
		gd.Methods = append(gd.Methods, grpc.MethodDesc{
			MethodName: md.GetName(),
			Handler:    unary(md, h),
		})
	}
	s.grpc.RegisterService(gd, s)
	return s, nil
}

func unary(md *desc.MethodDescriptor, h unaryHandler) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	fullMethod := "/" + ServiceName + "/" + md.GetName()
	return func(_ any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := dynamic.NewMessage(md.GetInputType())
		if err := dec(in); err != nil {
			return nil, err
		}
		call := func(ctx context.Context, req any) (any, error) {
			return h(ctx, req.(*dynamic.Message))
		}
		if interceptor == nil {
			return call(ctx, in)
		}
		return interceptor(ctx, in, &grpc.UnaryServerInfo{FullMethod: fullMethod}, call)
	}
}

// Serve accepts connections on lis until Stop or GracefulStop.
func (s *Server) Serve(lis net.Listener) error { return s.grpc.Serve(lis) }

// ListenAndServe listens on addr and serves.
func (s *Server) ListenAndServe(addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(lis)
}

func (s *Server) GracefulStop() { s.grpc.GracefulStop() }
func (s *Server) Stop()         { s.grpc.Stop() }

func (s *Server) resolve(ctx context.Context, in *dynamic.Message) (*dynamic.Message, error) {
	md, err := methodDescriptor("Resolve")
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	out, err := s.svc.Resolve(ctx, decodeResolveRequest(in))
	if err != nil {
		return nil, toStatus(err)
	}
	return encodeResolution(md.GetOutputType(), out)
}

func (s *Server) describe(ctx context.Context, in *dynamic.Message) (*dynamic.Message, error) {
	md, err := methodDescriptor("Describe")
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	out, err := s.svc.Describe(ctx, getString(in, "type"))
	if err != nil {
		return nil, toStatus(err)
	}
	return encodeDescription(md.GetOutputType(), out)
}

// requestID takes the request id from incoming metadata or assigns one.
func (s *Server) requestID(ctx context.Context, req any, info *grpc.UnaryServerInfo, next grpc.UnaryHandler) (any, error) {
	id := ""
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if values := md.Get(RequestIDHeader); len(values) > 0 {
			id = values[0]
		}
	}
	if id == "" {
		id = uuid.NewString()
	}
	if err := grpc.SetHeader(ctx, metadata.Pairs(RequestIDHeader, id)); err != nil {
		s.svc.log.Printf("[%s] %s: set header: %v", id, info.FullMethod, err)
	}
	return next(WithRequestID(ctx, id), req)
}

func (s *Server) logCalls(ctx context.Context, req any, info *grpc.UnaryServerInfo, next grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := next(ctx, req)
	s.svc.log.Printf("[%s] %s %s code=%s", RequestID(ctx), info.FullMethod, time.Since(start), status.Code(err))
	return resp, err
}

// toStatus maps resolution failures to gRPC codes.
func toStatus(err error) error {
	var (
		missing  *resolver.MissingMemberError
		overload *resolver.AmbiguousOverloadError
		notFound *typesystem.TypeNotFoundError
	)
	switch {
	case errors.As(err, &missing), errors.As(err, &notFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.As(err, &overload):
		return status.Error(codes.FailedPrecondition, err.Error())
	}
	return status.Error(codes.InvalidArgument, err.Error())
}
