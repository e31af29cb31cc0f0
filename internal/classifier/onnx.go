package classifier

import (
	"context"
	"errors"
	"fmt"

	ort "github.com/yalue/onnxruntime_go"
	"go.uber.org/zap"
)

// OnnxConfig locates the ONNX Runtime library and the exported leaf model.
type OnnxConfig struct {
	LibraryPath string
	ModelPath   string
	InputName   string
	OutputName  string
	NumClasses  int
}

// OnnxClassifier runs the leaf model in-process through ONNX Runtime.
type OnnxClassifier struct {
	session    *ort.DynamicAdvancedSession
	numClasses int
	logger     *zap.Logger
}

// NewOnnxClassifier initializes the runtime environment and opens a session on the model.
func NewOnnxClassifier(cfg OnnxConfig, logger *zap.Logger) (*OnnxClassifier, error) {
	if cfg.ModelPath == "" {
		return nil, errors.New("onnx: model path is required")
	}
	if cfg.NumClasses < 2 {
		return nil, fmt.Errorf("onnx: need at least two classes, got %d", cfg.NumClasses)
	}
	if cfg.LibraryPath != "" {
		ort.SetSharedLibraryPath(cfg.LibraryPath)
	}
	if !ort.IsInitialized() {
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("onnx: initialize runtime: %w", err)
		}
	}

	session, err := ort.NewDynamicAdvancedSession(cfg.ModelPath, []string{cfg.InputName}, []string{cfg.OutputName}, nil)
	if err != nil {
		return nil, fmt.Errorf("onnx: open session %s: %w", cfg.ModelPath, err)
	}

	logger.Named("onnx_classifier").Info("onnx session ready",
		zap.String("model", cfg.ModelPath),
		zap.Int("classes", cfg.NumClasses))

	return &OnnxClassifier{session: session, numClasses: cfg.NumClasses, logger: logger.Named("onnx_classifier")}, nil
}

// Predict runs one inference. Runtime tensors are destroyed before returning.
func (o *OnnxClassifier) Predict(ctx context.Context, tensor *Tensor) ([]float64, error) {
	if tensor.Released() {
		return nil, ErrTensorReleased
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	input, err := ort.NewTensor(ort.NewShape(tensor.Shape...), tensor.Data)
	if err != nil {
		return nil, fmt.Errorf("onnx: input tensor: %w", err)
	}
	defer destroy(o.logger, "input", input)

	output, err := ort.NewEmptyTensor[float32](ort.NewShape(1, int64(o.numClasses)))
	if err != nil {
		return nil, fmt.Errorf("onnx: output tensor: %w", err)
	}
	defer destroy(o.logger, "output", output)

	if err := o.session.Run([]ort.Value{input}, []ort.Value{output}); err != nil {
		return nil, fmt.Errorf("onnx: run: %w", err)
	}

	return Widen(output.GetData()), nil
}

// Close destroys the session and tears down the runtime environment.
func (o *OnnxClassifier) Close() error {
	if o == nil || o.session == nil {
		return nil
	}
	err := o.session.Destroy()
	o.session = nil
	if envErr := ort.DestroyEnvironment(); envErr != nil && err == nil {
		err = envErr
	}
	return err
}

func destroy(logger *zap.Logger, name string, v ort.Value) {
	if err := v.Destroy(); err != nil {
		logger.Warn("failed to destroy onnx tensor", zap.String("tensor", name), zap.Error(err))
	}
}
