// Package rpc builds gRPC services whose request and response messages are
// google.protobuf.Struct. Service descriptors are assembled at runtime and
// registered in the global proto registry, so server reflection (and grpcurl)
// can describe and call them like any compiled service.
package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"unicode"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/reflect/protoregistry"
	"google.golang.org/protobuf/types/descriptorpb"
	"google.golang.org/protobuf/types/known/structpb"
)

// Handler serves a single unary method.
type Handler func(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)

// Method binds a method name to its handler.
type Method struct {
	Name    string
	Handler Handler
}

// Service is a Struct-typed gRPC service.
type Service struct {
	Package string
	Name    string
	Methods []Method
}

// FullName returns the fully-qualified service name, e.g. pkg.v1.Service.
func (s Service) FullName() string {
	return s.Package + "." + s.Name
}

func (s Service) fileName() string {
	return strings.ReplaceAll(s.Package, ".", "/") + "/" + toSnake(s.Name) + ".proto"
}

var describeMu sync.Mutex

// Describe registers the service descriptor in protoregistry.GlobalFiles.
// Describing an already registered service returns the existing descriptor.
func Describe(svc Service) (protoreflect.ServiceDescriptor, error) {
	describeMu.Lock()
	defer describeMu.Unlock()

	full := protoreflect.FullName(svc.FullName())
	if !full.IsValid() {
		return nil, fmt.Errorf("invalid service name %q", full)
	}
	if existing, err := protoregistry.GlobalFiles.FindDescriptorByName(full); err == nil {
		sd, ok := existing.(protoreflect.ServiceDescriptor)
		if !ok {
			return nil, fmt.Errorf("%s is registered but is not a service", full)
		}
		return sd, nil
	}

	structDesc := (&structpb.Struct{}).ProtoReflect().Descriptor()
	messageType := "." + string(structDesc.FullName())

	methods := make([]*descriptorpb.MethodDescriptorProto, 0, len(svc.Methods))
	for _, m := range svc.Methods {
		methods = append(methods, &descriptorpb.MethodDescriptorProto{
			Name:       proto.String(m.Name),
			InputType:  proto.String(messageType),
			OutputType: proto.String(messageType),
		})
	}

	fdp := &descriptorpb.FileDescriptorProto{
		Name:       proto.String(svc.fileName()),
		Package:    proto.String(svc.Package),
		Dependency: []string{structDesc.ParentFile().Path()},
		Syntax:     proto.String("proto3"),
		Service: []*descriptorpb.ServiceDescriptorProto{{
			Name:   proto.String(svc.Name),
			Method: methods,
		}},
	}

	fd, err := protodesc.NewFile(fdp, protoregistry.GlobalFiles)
	if err != nil {
		return nil, fmt.Errorf("build descriptor for %s: %w", full, err)
	}
	if err := protoregistry.GlobalFiles.RegisterFile(fd); err != nil {
		return nil, fmt.Errorf("register descriptor for %s: %w", full, err)
	}
	return fd.Services().Get(0), nil
}

// Register describes the service and registers its handlers on the server.
func Register(server grpc.ServiceRegistrar, svc Service) error {
	if _, err := Describe(svc); err != nil {
		return err
	}

	desc := &grpc.ServiceDesc{
		ServiceName: svc.FullName(),
		HandlerType: (*any)(nil),
		Metadata:    svc.fileName(),
	}
	for _, m := range svc.Methods {
		desc.Methods = append(desc.Methods, grpc.MethodDesc{
			MethodName: m.Name,
			Handler:    unaryHandler(svc.FullName(), m),
		})
	}

	server.RegisterService(desc, svc)
	return nil
}

func unaryHandler(service string, m Method) grpc.MethodHandler {
	fullMethod := "/" + service + "/" + m.Name
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return m.Handler(ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
			return m.Handler(ctx, req.(*structpb.Struct))
		})
	}
}

// Invoke calls service/method on conn, encoding req and decoding the reply
// into out via JSON. Either may be nil.
func Invoke(ctx context.Context, conn grpc.ClientConnInterface, service, method string, req, out any) error {
	in := &structpb.Struct{}
	if req != nil {
		var err error
		if in, err = Encode(req); err != nil {
			return err
		}
	}

	reply := new(structpb.Struct)
	if err := conn.Invoke(ctx, "/"+service+"/"+method, in, reply); err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	return Decode(reply, out)
}

// Encode converts any JSON-marshalable object into a Struct.
func Encode(v any) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode struct: %w", err)
	}
	out := &structpb.Struct{}
	if err := protojson.Unmarshal(data, out); err != nil {
		return nil, fmt.Errorf("encode struct: %w", err)
	}
	return out, nil
}

// Decode unmarshals a Struct into v through its JSON form.
func Decode(s *structpb.Struct, v any) error {
	if s == nil {
		s = &structpb.Struct{}
	}
	data, err := protojson.Marshal(s)
	if err != nil {
		return fmt.Errorf("decode struct: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode struct: %w", err)
	}
	return nil
}

// StringField returns a string field from req, or "" when absent.
func StringField(req *structpb.Struct, key string) string {
	if req == nil {
		return ""
	}
	value, ok := req.GetFields()[key]
	if !ok {
		return ""
	}
	return value.GetStringValue()
}

func toSnake(name string) string {
	var b strings.Builder
	for i, r := range name {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('_')
			}
			r = unicode.ToLower(r)
		}
		b.WriteRune(r)
	}
	return b.String()
}
