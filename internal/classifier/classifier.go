// Package classifier wraps the pre-trained leaf model behind a small interface and owns
// the image preprocessing that feeds it.
package classifier

import (
	"context"
	"errors"
)

var (
	// ErrModelUnavailable marks the diagnosis feature as degraded: the model or its labels did not load.
	ErrModelUnavailable = errors.New("classifier: model unavailable")
	// ErrInvalidImage is returned when uploaded bytes cannot be decoded as an image.
	ErrInvalidImage = errors.New("classifier: invalid image")
	// ErrTensorReleased is returned when a released tensor is passed to a classifier.
	ErrTensorReleased = errors.New("classifier: tensor already released")
)

// Classifier turns a preprocessed image tensor into one score per label.
// Scores are returned at the backend's native precision; float32 backends widen exactly.
type Classifier interface {
	Predict(ctx context.Context, tensor *Tensor) ([]float64, error)
	Close() error
}

// Func adapts a plain function to the Classifier interface.
type Func func(ctx context.Context, tensor *Tensor) ([]float64, error)

// Predict calls f.
func (f Func) Predict(ctx context.Context, tensor *Tensor) ([]float64, error) {
	return f(ctx, tensor)
}

// Close is a no-op.
func (Func) Close() error { return nil }

// Widen converts float32 model output to float64 without loss.
func Widen(scores []float32) []float64 {
	out := make([]float64, len(scores))
	for i, s := range scores {
		out[i] = float64(s)
	}
	return out
}
