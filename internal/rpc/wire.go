package rpc

import (
	_ "embed"
	"fmt"
	"sync"

	"github.com/jhump/protoreflect/desc"
	"github.com/jhump/protoreflect/dynamic"

	"github.com/funvibe/bindexpr/internal/protodesc"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "bindexpr.v1.Inspector"

//go:embed inspector.proto
var inspectorProto string

var (
	loadOnce sync.Once
	service  *desc.ServiceDescriptor
	loadErr  error
)

// ServiceDescriptor returns the parsed Inspector service.
func ServiceDescriptor() (*desc.ServiceDescriptor, error) {
	loadOnce.Do(func() {
		fd, err := protodesc.ParseSource("bindexpr/v1/inspector.proto", inspectorProto)
		if err != nil {
			loadErr = err
			return
		}
		service = fd.FindService(ServiceName)
		if service == nil {
			loadErr = fmt.Errorf("service %s not found in inspector.proto", ServiceName)
		}
	})
	return service, loadErr
}

func methodDescriptor(name string) (*desc.MethodDescriptor, error) {
	sd, err := ServiceDescriptor()
	if err != nil {
		return nil, err
	}
	md := sd.FindMethodByName(name)
	if md == nil {
		return nil, fmt.Errorf("method %s not found in %s", name, ServiceName)
	}
	return md, nil
}

// writer sets fields on a dynamic message and keeps the first error.
type writer struct {
	msg *dynamic.Message
	err error
}

func (w *writer) set(name string, v any) {
	if w.err == nil {
		w.err = w.msg.TrySetFieldByName(name, v)
	}
}

func (w *writer) add(name string, v any) {
	if w.err == nil {
		w.err = w.msg.TryAddRepeatedFieldByName(name, v)
	}
}

func (w *writer) strings(name string, values []string) {
	for _, v := range values {
		w.add(name, v)
	}
}

func getString(msg *dynamic.Message, name string) string {
	v, _ := msg.TryGetFieldByName(name)
	s, _ := v.(string)
	return s
}

func getBool(msg *dynamic.Message, name string) bool {
	v, _ := msg.TryGetFieldByName(name)
	b, _ := v.(bool)
	return b
}

func getInt(msg *dynamic.Message, name string) int {
	v, _ := msg.TryGetFieldByName(name)
	n, _ := v.(int32)
	return int(n)
}

func getStrings(msg *dynamic.Message, name string) []string {
	v, _ := msg.TryGetFieldByName(name)
	items, _ := v.([]any)
	var out []string
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func getMessages(msg *dynamic.Message, name string) []*dynamic.Message {
	v, _ := msg.TryGetFieldByName(name)
	items, _ := v.([]any)
	var out []*dynamic.Message
	for _, item := range items {
		if m, ok := item.(*dynamic.Message); ok {
			out = append(out, m)
		}
	}
	return out
}

func encodeResolveRequest(md *desc.MessageDescriptor, req ResolveRequest) (*dynamic.Message, error) {
	w := &writer{msg: dynamic.NewMessage(md)}
	w.set("type", req.Type)
	w.set("name", req.Name)
	w.strings("type_args", req.TypeArgs)
	w.set("static", req.Static)
	w.set("call", req.Call)
	argType := md.FindFieldByName("args").GetMessageType()
	for _, a := range req.Args {
		arg := &writer{msg: dynamic.NewMessage(argType)}
		arg.set("type", a.Type)
		arg.set("lambda", a.Lambda)
		arg.set("arity", int32(a.Arity))
		arg.set("null", a.Null)
		if arg.err != nil {
			return nil, arg.err
		}
		w.add("args", arg.msg)
	}
	return w.msg, w.err
}

func decodeResolveRequest(msg *dynamic.Message) ResolveRequest {
	req := ResolveRequest{
		Type:     getString(msg, "type"),
		Name:     getString(msg, "name"),
		TypeArgs: getStrings(msg, "type_args"),
		Static:   getBool(msg, "static"),
		Call:     getBool(msg, "call"),
	}
	for _, a := range getMessages(msg, "args") {
		req.Args = append(req.Args, ArgumentSpec{
			Type:   getString(a, "type"),
			Lambda: getBool(a, "lambda"),
			Arity:  getInt(a, "arity"),
			Null:   getBool(a, "null"),
		})
	}
	return req
}

func encodeResolution(md *desc.MessageDescriptor, r *Resolution) (*dynamic.Message, error) {
	w := &writer{msg: dynamic.NewMessage(md)}
	w.set("request_id", r.RequestID)
	w.set("kind", r.Kind)
	w.set("signature", r.Signature)
	w.set("state", r.State)
	w.set("extension", r.Extension)
	w.strings("open", r.Open)
	w.set("result_type", r.ResultType)
	return w.msg, w.err
}

func decodeResolution(msg *dynamic.Message) *Resolution {
	return &Resolution{
		RequestID:  getString(msg, "request_id"),
		Kind:       getString(msg, "kind"),
		Signature:  getString(msg, "signature"),
		State:      getString(msg, "state"),
		Extension:  getBool(msg, "extension"),
		Open:       getStrings(msg, "open"),
		ResultType: getString(msg, "result_type"),
	}
}

func encodeDescription(md *desc.MessageDescriptor, d *Description) (*dynamic.Message, error) {
	w := &writer{msg: dynamic.NewMessage(md)}
	w.set("request_id", d.RequestID)
	w.set("type", d.Type)
	w.set("kind", d.Kind)
	w.set("base", d.Base)
	w.strings("interfaces", d.Interfaces)
	memberType := md.FindFieldByName("members").GetMessageType()
	for _, m := range d.Members {
		mw := &writer{msg: dynamic.NewMessage(memberType)}
		mw.set("name", m.Name)
		mw.set("kind", m.Kind)
		mw.set("signature", m.Signature)
		mw.set("static", m.Static)
		if mw.err != nil {
			return nil, mw.err
		}
		w.add("members", mw.msg)
	}
	return w.msg, w.err
}

func decodeDescription(msg *dynamic.Message) *Description {
	d := &Description{
		RequestID:  getString(msg, "request_id"),
		Type:       getString(msg, "type"),
		Kind:       getString(msg, "kind"),
		Base:       getString(msg, "base"),
		Interfaces: getStrings(msg, "interfaces"),
	}
	for _, m := range getMessages(msg, "members") {
		d.Members = append(d.Members, Member{
			Name:      getString(m, "name"),
			Kind:      getString(m, "kind"),
			Signature: getString(m, "signature"),
			Static:    getBool(m, "static"),
		})
	}
	return d
}
