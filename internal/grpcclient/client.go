package grpcclient

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/example/krishak/internal/classifier"
	"github.com/example/krishak/internal/logging"
)

const (
	// ServiceName is the fully qualified gRPC service exposed by the inference server.
	ServiceName = "krishak.classifier.v1.LeafClassifier"
	// PredictMethod is the unary method that scores one tensor.
	PredictMethod = "/" + ServiceName + "/Predict"
)

var errEmptyScores = errors.New("inference server returned no scores")

// DialClassifier returns a ready-to-use classifier backed by a remote inference server.
func DialClassifier(ctx context.Context, addr string, logger *zap.Logger, opts ...grpc.DialOption) (classifier.Classifier, *grpc.ClientConn, error) {
	dialCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	dialOpts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithBlock(),
	}, opts...)

	conn, err := grpc.DialContext(dialCtx, addr, dialOpts...)
	if err != nil {
		wrapped := logging.NewOperationError("grpcclient.dial_classifier", "", err)
		logger.Error("failed to dial classifier", zap.Error(wrapped), zap.String("addr", addr))
		return nil, nil, wrapped
	}
	return NewClassifier(conn, logger), conn, nil
}

// NewClassifier wraps an existing connection.
func NewClassifier(conn *grpc.ClientConn, logger *zap.Logger) classifier.Classifier {
	return &grpcClassifier{conn: conn, logger: logger.Named("grpc_classifier")}
}

type grpcClassifier struct {
	conn   *grpc.ClientConn
	logger *zap.Logger
}

func (g *grpcClassifier) Predict(ctx context.Context, tensor *classifier.Tensor) ([]float64, error) {
	if tensor.Released() {
		return nil, classifier.ErrTensorReleased
	}

	req := wrapperspb.Bytes(EncodeTensor(tensor.Data))
	resp := &structpb.ListValue{}
	if err := g.conn.Invoke(ctx, PredictMethod, req, resp); err != nil {
		wrapped := logging.NewOperationError("grpcclient.predict", "", err)
		g.logger.Error("classifier call failed", zap.Error(wrapped))
		return nil, wrapped
	}

	values := resp.GetValues()
	if len(values) == 0 {
		return nil, logging.NewOperationError("grpcclient.predict", "", errEmptyScores)
	}
	scores := make([]float64, len(values))
	for i, v := range values {
		n, ok := v.GetKind().(*structpb.Value_NumberValue)
		if !ok {
			return nil, logging.NewOperationError("grpcclient.predict", "", fmt.Errorf("score %d is not a number", i))
		}
		scores[i] = n.NumberValue
	}
	return scores, nil
}

// Close is a no-op; the connection is owned by the caller of DialClassifier.
func (g *grpcClassifier) Close() error {
	return nil
}

// EncodeTensor packs float32 values little-endian.
func EncodeTensor(data []float32) []byte {
	buf := make([]byte, 4*len(data))
	for i, v := range data {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

// DecodeTensor is the inverse of EncodeTensor.
func DecodeTensor(buf []byte) ([]float32, error) {
	if len(buf)%4 != 0 {
		return nil, fmt.Errorf("tensor payload length %d is not a multiple of 4", len(buf))
	}
	out := make([]float32, len(buf)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return out, nil
}
