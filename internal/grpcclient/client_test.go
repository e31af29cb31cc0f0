package grpcclient

import (
	"context"
	"errors"
	"net"
	"testing"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/example/krishak/internal/classifier"
	"github.com/example/krishak/internal/diagnosis"
	"github.com/example/krishak/internal/logging"
)

type predictFunc func(ctx context.Context, tensor []float32) (*structpb.ListValue, error)

func startServer(t *testing.T, fn predictFunc) *grpc.ClientConn {
	t.Helper()

	listener := bufconn.Listen(1 << 20)
	server := grpc.NewServer()
	server.RegisterService(&grpc.ServiceDesc{
		ServiceName: ServiceName,
		HandlerType: (*interface{})(nil),
		Methods: []grpc.MethodDesc{{
			MethodName: "Predict",
			Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, _ grpc.UnaryServerInterceptor) (interface{}, error) {
				in := &wrapperspb.BytesValue{}
				if err := dec(in); err != nil {
					return nil, err
				}
				data, err := DecodeTensor(in.GetValue())
				if err != nil {
					return nil, status.Error(codes.InvalidArgument, err.Error())
				}
				return fn(ctx, data)
			},
		}},
	}, struct{}{})

	go func() { _ = server.Serve(listener) }()
	t.Cleanup(server.Stop)

	_, conn, err := DialClassifier(context.Background(), "bufnet", zap.NewNop(),
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return listener.DialContext(ctx)
		}))
	if err != nil {
		t.Fatalf("failed to dial bufconn: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func testTensor() *classifier.Tensor {
	return &classifier.Tensor{Shape: []int64{1, 2}, Data: []float32{0.25, 1}}
}

func TestPredictReturnsScores(t *testing.T) {
	var received []float32
	conn := startServer(t, func(ctx context.Context, tensor []float32) (*structpb.ListValue, error) {
		received = tensor
		return structpb.NewList([]interface{}{0.75, 0.25})
	})

	c := NewClassifier(conn, zap.NewNop())
	scores, err := c.Predict(context.Background(), testTensor())
	if err != nil {
		t.Fatalf("expected success, got error: %v", err)
	}
	if len(scores) != 2 || scores[0] != 0.75 || scores[1] != 0.25 {
		t.Fatalf("unexpected scores: %v", scores)
	}
	if len(received) != 2 || received[0] != 0.25 || received[1] != 1 {
		t.Fatalf("server received unexpected tensor: %v", received)
	}
}

func TestPredictKeepsServerPrecisionAtThresholds(t *testing.T) {
	conn := startServer(t, func(ctx context.Context, tensor []float32) (*structpb.ListValue, error) {
		return structpb.NewList([]interface{}{0.60, 0.05})
	})

	scores, err := NewClassifier(conn, zap.NewNop()).Predict(context.Background(), testTensor())
	if err != nil {
		t.Fatalf("expected success, got error: %v", err)
	}
	if scores[0] != 0.60 {
		t.Fatalf("expected score 0.60 unchanged, got %.17g", scores[0])
	}

	labels := diagnosis.LabelList{"Tomato___Late_blight", "Tomato___healthy"}
	res, err := diagnosis.Classify(scores, labels, nil)
	if err != nil {
		t.Fatalf("unexpected classify error: %v", err)
	}
	if res.Rule != diagnosis.RuleConsistentCrop {
		t.Fatalf("expected a score of exactly 0.60 to miss the high-confidence rule, got %s", res.Rule)
	}
}

func TestPredictWrapsServerErrors(t *testing.T) {
	conn := startServer(t, func(ctx context.Context, tensor []float32) (*structpb.ListValue, error) {
		return nil, status.Error(codes.Unavailable, "model warming up")
	})

	_, err := NewClassifier(conn, zap.NewNop()).Predict(context.Background(), testTensor())
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	var opErr *logging.OperationError
	if !errors.As(err, &opErr) || opErr.Operation != "grpcclient.predict" {
		t.Fatalf("expected OperationError, got %T", err)
	}
	if status.Code(opErr.Err) != codes.Unavailable {
		t.Fatalf("expected Unavailable code, got %v", status.Code(opErr.Err))
	}
}

func TestPredictRejectsNonNumericScores(t *testing.T) {
	conn := startServer(t, func(ctx context.Context, tensor []float32) (*structpb.ListValue, error) {
		return structpb.NewList([]interface{}{0.5, "high"})
	})

	if _, err := NewClassifier(conn, zap.NewNop()).Predict(context.Background(), testTensor()); err == nil {
		t.Fatal("expected error for non-numeric score")
	}
}

func TestPredictRejectsReleasedTensor(t *testing.T) {
	tensor := &classifier.Tensor{Data: []float32{1}}
	tensor.Release()
	c := &grpcClassifier{logger: zap.NewNop()}
	if _, err := c.Predict(context.Background(), tensor); !errors.Is(err, classifier.ErrTensorReleased) {
		t.Fatalf("expected ErrTensorReleased, got %v", err)
	}
}

func TestTensorCodecRoundTrip(t *testing.T) {
	in := []float32{0, 0.5, 1, 0.123}
	out, err := DecodeTensor(EncodeTensor(in))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := range in {
		if in[i] != out[i] {
			t.Fatalf("index %d: want %v got %v", i, in[i], out[i])
		}
	}
	if _, err := DecodeTensor([]byte{1, 2, 3}); err == nil {
		t.Fatal("expected error for truncated payload")
	}
}
