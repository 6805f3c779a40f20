package rpc

import (
	"context"
	"net"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/reflect/protoregistry"
	"google.golang.org/protobuf/types/known/structpb"
)

func echoService() Service {
	return Service{
		Package: "thinqhome.test.v1",
		Name:    "EchoService",
		Methods: []Method{
			{
				Name: "Echo",
				Handler: func(_ context.Context, req *structpb.Struct) (*structpb.Struct, error) {
					return Encode(map[string]any{"echo": StringField(req, "message")})
				},
			},
			{
				Name: "Fail",
				Handler: func(_ context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
					return nil, status.Error(codes.NotFound, "nothing here")
				},
			},
		},
	}
}

func dialBuffered(t *testing.T, svc Service) *grpc.ClientConn {
	t.Helper()

	lis := bufconn.Listen(1 << 20)
	server := grpc.NewServer()
	if err := Register(server, svc); err != nil {
		t.Fatalf("register: %v", err)
	}
	go func() { _ = server.Serve(lis) }()
	t.Cleanup(server.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestInvokeRoundTrip(t *testing.T) {
	conn := dialBuffered(t, echoService())

	var out struct {
		Echo string `json:"echo"`
	}
	err := Invoke(context.Background(), conn, "thinqhome.test.v1.EchoService", "Echo", map[string]any{"message": "hello"}, &out)
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if out.Echo != "hello" {
		t.Fatalf("unexpected echo: %q", out.Echo)
	}
}

func TestInvokePropagatesStatus(t *testing.T) {
	conn := dialBuffered(t, echoService())

	err := Invoke(context.Background(), conn, "thinqhome.test.v1.EchoService", "Fail", nil, nil)
	if status.Code(err) != codes.NotFound {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

func TestDescribeRegistersGlobally(t *testing.T) {
	svc := echoService()
	first, err := Describe(svc)
	if err != nil {
		t.Fatalf("Describe: %v", err)
	}
	second, err := Describe(svc)
	if err != nil {
		t.Fatalf("Describe again: %v", err)
	}
	if first.FullName() != second.FullName() {
		t.Fatalf("descriptor changed between calls: %s vs %s", first.FullName(), second.FullName())
	}

	desc, err := protoregistry.GlobalFiles.FindDescriptorByName(protoreflect.FullName(svc.FullName()))
	if err != nil {
		t.Fatalf("service not in global registry: %v", err)
	}
	sd := desc.(protoreflect.ServiceDescriptor)
	if sd.Methods().ByName("Echo") == nil {
		t.Fatalf("expected Echo method in descriptor")
	}
	if got := sd.Methods().ByName("Echo").Input().FullName(); got != "google.protobuf.Struct" {
		t.Fatalf("unexpected input type: %s", got)
	}
	if sd.ParentFile().Path() != "thinqhome/test/v1/echo_service.proto" {
		t.Fatalf("unexpected file path: %s", sd.ParentFile().Path())
	}
}

func TestDescribeRejectsInvalidName(t *testing.T) {
	if _, err := Describe(Service{Package: "bad package", Name: "X"}); err == nil {
		t.Fatalf("expected error for invalid service name")
	}
}
