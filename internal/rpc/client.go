package rpc

import (
	"context"

	"github.com/google/uuid"
	"github.com/jhump/protoreflect/dynamic"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
)

// Client calls a remote Inspector service.
type Client struct {
	conn *grpc.ClientConn
}

// Dial connects to target without transport security.
func Dial(target string, opts ...grpc.DialOption) (*Client, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(target, opts...)
	if err != nil {
		return nil, err
	}
	return &Client{conn: conn}, nil
}

func (c *Client) Close() error { return c.conn.Close() }

func (c *Client) Resolve(ctx context.Context, req ResolveRequest) (*Resolution, error) {
	md, err := methodDescriptor("Resolve")
	if err != nil {
		return nil, err
	}
	in, err := encodeResolveRequest(md.GetInputType(), req)
	if err != nil {
		return nil, err
	}
	out := dynamic.NewMessage(md.GetOutputType())
	if err := c.invoke(ctx, "Resolve", in, out); err != nil {
		return nil, err
	}
	return decodeResolution(out), nil
}

func (c *Client) Describe(ctx context.Context, typeName string) (*Description, error) {
	md, err := methodDescriptor("Describe")
	if err != nil {
		return nil, err
	}
	w := &writer{msg: dynamic.NewMessage(md.GetInputType())}
	w.set("type", typeName)
	if w.err != nil {
		return nil, w.err
	}
	out := dynamic.NewMessage(md.GetOutputType())
	if err := c.invoke(ctx, "Describe", w.msg, out); err != nil {
		return nil, err
	}
	return decodeDescription(out), nil
}

// invoke sends the request id of ctx, or a fresh one, as metadata.
func (c *Client) invoke(ctx context.Context, method string, in, out *dynamic.Message) error {
	id, ok := ctx.Value(requestIDKey{}).(string)
	if !ok || id == "" {
		id = uuid.NewString()
	}
	ctx = metadata.AppendToOutgoingContext(ctx, RequestIDHeader, id)
	return c.conn.Invoke(ctx, "/"+ServiceName+"/"+method, in, out)
}
