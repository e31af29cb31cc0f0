package classifier

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/example/krishak/internal/diagnosis"
)

// Model pairs a ready classifier with the label dictionary its output is aligned to.
type Model struct {
	Classifier Classifier
	Labels     diagnosis.LabelList
}

// Status describes whether diagnosis is available.
type Status struct {
	Ready   bool   `json:"ready"`
	Backend string `json:"backend"`
	Labels  int    `json:"labels"`
	Reason  string `json:"reason,omitempty"`
}

// LabelSource loads the label dictionary.
type LabelSource func() (diagnosis.LabelList, error)

// Factory opens a classifier for the given labels.
type Factory func(ctx context.Context, labels diagnosis.LabelList) (Classifier, error)

// Handle is the process-wide model slot. It is written once by Load and read-only afterwards.
type Handle struct {
	backend string
	model   *Model
	err     error
}

// Load loads labels and opens the classifier. Failures do not abort the process: they are
// kept on the handle and reported as ErrModelUnavailable.
func Load(ctx context.Context, backend string, labels LabelSource, factory Factory, logger *zap.Logger) *Handle {
	logger = logger.Named("model_loader")
	h := &Handle{backend: backend}

	list, err := labels()
	if err != nil {
		h.err = fmt.Errorf("load labels: %w", err)
		logger.Error("label dictionary unavailable", zap.Error(err))
		return h
	}
	if len(list) < 2 {
		h.err = fmt.Errorf("load labels: %w", diagnosis.ErrInsufficientClasses)
		logger.Error("label dictionary too small", zap.Int("labels", len(list)))
		return h
	}

	c, err := factory(ctx, list)
	if err != nil {
		h.err = fmt.Errorf("open %s classifier: %w", backend, err)
		logger.Error("classifier unavailable", zap.String("backend", backend), zap.Error(err))
		return h
	}

	h.model = &Model{Classifier: c, Labels: list}
	logger.Info("model ready", zap.String("backend", backend), zap.Int("labels", len(list)))
	return h
}

// Ready wraps an already constructed model, mostly for tests and embedding.
func Ready(backend string, model *Model) *Handle {
	return &Handle{backend: backend, model: model}
}

// Unavailable builds a handle that reports err for every request.
func Unavailable(backend string, err error) *Handle {
	return &Handle{backend: backend, err: err}
}

// Model returns the loaded model or an error wrapping ErrModelUnavailable.
func (h *Handle) Model() (*Model, error) {
	if h == nil {
		return nil, ErrModelUnavailable
	}
	if h.model == nil {
		if h.err != nil {
			return nil, fmt.Errorf("%w: %v", ErrModelUnavailable, h.err)
		}
		return nil, ErrModelUnavailable
	}
	return h.model, nil
}

// Status reports the handle's availability.
func (h *Handle) Status() Status {
	if h == nil {
		return Status{Reason: ErrModelUnavailable.Error()}
	}
	st := Status{Backend: h.backend}
	if h.model != nil {
		st.Ready = true
		st.Labels = len(h.model.Labels)
		return st
	}
	st.Reason = ErrModelUnavailable.Error()
	if h.err != nil {
		st.Reason = h.err.Error()
	}
	return st
}

// Close releases the classifier, if one was loaded.
func (h *Handle) Close() error {
	if h == nil || h.model == nil || h.model.Classifier == nil {
		return nil
	}
	return h.model.Classifier.Close()
}
