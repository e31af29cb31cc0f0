package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/example/krishak/internal/classifier"
	"github.com/example/krishak/internal/diagnosis"
	"github.com/example/krishak/internal/logging"
)

// ErrResultNotFound is returned when a request ID has no cached diagnosis.
var ErrResultNotFound = errors.New("diagnosis result not found")

// ModelProvider exposes the loaded model and its availability.
type ModelProvider interface {
	Model() (*classifier.Model, error)
	Status() classifier.Status
}

// Diagnosis is the caller-facing view of one classification.
type Diagnosis struct {
	RequestID  string    `json:"request_id"`
	Accepted   bool      `json:"accepted"`
	Title      string    `json:"title"`
	Label      string    `json:"label,omitempty"`
	Crop       string    `json:"crop,omitempty"`
	Status     string    `json:"status"`
	Cure       string    `json:"cure"`
	Precaution string    `json:"precaution"`
	Healthy    bool      `json:"healthy"`
	Message    string    `json:"message,omitempty"`
	Rule       string    `json:"rule"`
	TopScore   float64   `json:"top_score"`
	CreatedAt  time.Time `json:"created_at"`
}

// NewDiagnosis flattens an engine result.
func NewDiagnosis(requestID string, res diagnosis.Result, now time.Time) *Diagnosis {
	d := &Diagnosis{
		RequestID: requestID,
		Rule:      string(res.Rule),
		TopScore:  res.Top.Score,
		CreatedAt: now,
	}
	if res.IsAccepted() {
		a := res.Accepted
		d.Accepted = true
		d.Title = a.CropName
		d.Label = a.CropLabel
		d.Crop = a.Crop
		d.Status = a.Status
		d.Cure = a.Cure
		d.Precaution = a.Precaution
		d.Healthy = a.IsHealthy()
		return d
	}
	d.Status = "Unknown"
	if res.Rejected != nil {
		d.Title = res.Rejected.Title
		d.Message = res.Rejected.Message
	}
	return d
}

// DiagnosisUseCase runs preprocessing, inference and the decision engine for one image.
type DiagnosisUseCase struct {
	models         ModelProvider
	engine         *diagnosis.Engine
	cache          Cache
	logger         *zap.Logger
	resultTTL      time.Duration
	retryAttempts  int
	initialBackoff time.Duration
	maxBackoff     time.Duration
	now            func() time.Time
	counters       counters
}

// NewDiagnosisUseCase constructs a new use case instance. A nil cache disables result lookup.
func NewDiagnosisUseCase(models ModelProvider, engine *diagnosis.Engine, cache Cache, logger *zap.Logger) *DiagnosisUseCase {
	if cache == nil {
		cache = NopCache{}
	}
	return &DiagnosisUseCase{
		models:         models,
		engine:         engine,
		cache:          cache,
		logger:         logger.Named("diagnosis_usecase"),
		resultTTL:      5 * time.Minute,
		retryAttempts:  3,
		initialBackoff: 50 * time.Millisecond,
		maxBackoff:     time.Second,
		now:            func() time.Time { return time.Now().UTC() },
	}
}

// WithResultTTL overrides how long results stay retrievable by request ID.
func (uc *DiagnosisUseCase) WithResultTTL(ttl time.Duration) *DiagnosisUseCase {
	if ttl > 0 {
		uc.resultTTL = ttl
	}
	return uc
}

// ModelStatus reports whether diagnosis is currently available.
func (uc *DiagnosisUseCase) ModelStatus() classifier.Status {
	return uc.models.Status()
}

// Diagnose classifies one uploaded leaf photo.
func (uc *DiagnosisUseCase) Diagnose(ctx context.Context, imageBytes []byte) (*Diagnosis, error) {
	requestID := uuid.NewString()
	opLogger := logging.WithOperation(uc.logger, "usecase.diagnose", requestID)
	uc.counters.total.Add(1)

	model, err := uc.models.Model()
	if err != nil {
		uc.counters.unavailable.Add(1)
		opLogger.Warn("diagnosis requested while model unavailable", zap.Error(err))
		return nil, logging.NewOperationError("usecase.model", requestID, err)
	}

	tensor, err := classifier.Preprocess(imageBytes)
	if err != nil {
		uc.counters.failures.Add(1)
		opLogger.Info("rejected undecodable upload", zap.Error(err), zap.Int("bytes", len(imageBytes)))
		return nil, logging.NewOperationError("usecase.preprocess", requestID, err)
	}
	defer tensor.Release()

	scores, err := model.Classifier.Predict(ctx, tensor)
	if err != nil {
		uc.counters.failures.Add(1)
		wrapped := logging.NewOperationError("usecase.predict", requestID, err)
		opLogger.Error("inference failed", zap.Error(wrapped))
		return nil, wrapped
	}

	if len(scores) != len(model.Labels) {
		uc.counters.unavailable.Add(1)
		err := fmt.Errorf("%w: model returned %d scores for %d labels", classifier.ErrModelUnavailable, len(scores), len(model.Labels))
		opLogger.Error("model output does not match label dictionary", zap.Error(err))
		return nil, logging.NewOperationError("usecase.predict", requestID, err)
	}

	return uc.decide(ctx, requestID, scores, model.Labels, opLogger)
}

// ClassifyScores runs the decision engine on an externally computed score vector.
func (uc *DiagnosisUseCase) ClassifyScores(ctx context.Context, scores []float64) (*Diagnosis, error) {
	requestID := uuid.NewString()
	opLogger := logging.WithOperation(uc.logger, "usecase.classify_scores", requestID)
	uc.counters.total.Add(1)

	model, err := uc.models.Model()
	if err != nil {
		uc.counters.unavailable.Add(1)
		return nil, logging.NewOperationError("usecase.model", requestID, err)
	}
	return uc.decide(ctx, requestID, scores, model.Labels, opLogger)
}

func (uc *DiagnosisUseCase) decide(ctx context.Context, requestID string, scores []float64, labels diagnosis.LabelList, opLogger *zap.Logger) (*Diagnosis, error) {
	res, err := uc.engine.Classify(scores, labels)
	if err != nil {
		uc.counters.failures.Add(1)
		opLogger.Error("decision engine refused input", zap.Error(err), zap.Int("scores", len(scores)), zap.Int("labels", len(labels)))
		return nil, logging.NewOperationError("usecase.classify", requestID, err)
	}

	if res.IsAccepted() {
		uc.counters.accepted.Add(1)
	} else {
		uc.counters.rejected.Add(1)
	}
	opLogger.Info("diagnosis complete",
		zap.String("verdict", string(res.Verdict)),
		zap.String("rule", string(res.Rule)),
		zap.String("top_label", res.Top.Label),
		zap.Float64("top_score", res.Top.Score),
		zap.Float64("second_score", res.Second.Score))

	d := NewDiagnosis(requestID, res, uc.now())
	uc.store(ctx, d, opLogger)
	return d, nil
}

func (uc *DiagnosisUseCase) store(ctx context.Context, d *Diagnosis, opLogger *zap.Logger) {
	serialized, err := json.Marshal(d)
	if err != nil {
		opLogger.Error("failed to serialize diagnosis", zap.Error(err))
		return
	}
	if err := uc.withRedisRetry(ctx, d.RequestID, "cache.set.result", func() error {
		return uc.cache.Set(ctx, resultKey(d.RequestID), string(serialized), uc.resultTTL)
	}); err != nil {
		opLogger.Warn("diagnosis not cached", zap.Error(err))
	}
}

// GetResult returns a recently computed diagnosis.
func (uc *DiagnosisUseCase) GetResult(ctx context.Context, requestID string) (*Diagnosis, error) {
	cached, err := uc.withRedisGet(ctx, requestID, "cache.get.result", resultKey(requestID))
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrResultNotFound
		}
		return nil, err
	}

	var d Diagnosis
	if err := json.Unmarshal([]byte(cached), &d); err != nil {
		logging.WithOperation(uc.logger, "usecase.get_result", requestID).Warn("failed to decode cached result", zap.Error(err))
		return nil, ErrResultNotFound
	}
	return &d, nil
}

func resultKey(requestID string) string {
	return fmt.Sprintf("diagnosis:%s", requestID)
}

func (uc *DiagnosisUseCase) withRedisRetry(ctx context.Context, requestID, operation string, fn func() error) error {
	if uc.retryAttempts <= 1 {
		err := fn()
		return logging.NewOperationError(operation, requestID, err)
	}

	backoff := uc.initialBackoff
	opLogger := logging.WithOperation(uc.logger, operation, requestID)
	var err error
	for attempt := 0; attempt < uc.retryAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return logging.NewOperationError(operation, requestID, ctx.Err())
			case <-time.After(backoff):
			}
			if next := backoff * 2; next <= uc.maxBackoff {
				backoff = next
			}
		}

		err = fn()
		if err == nil {
			if attempt > 0 {
				opLogger.Info("redis operation succeeded after retry", zap.Int("attempt", attempt+1))
			}
			return nil
		}

		if errors.Is(err, redis.Nil) {
			return logging.NewOperationError(operation, requestID, err)
		}

		if !isTransientError(err) || attempt == uc.retryAttempts-1 {
			opLogger.Error("redis operation failed", zap.Error(err), zap.Int("attempt", attempt+1))
			return logging.NewOperationError(operation, requestID, err)
		}

		opLogger.Warn("transient redis error", zap.Error(err), zap.Int("attempt", attempt+1))
	}
	return logging.NewOperationError(operation, requestID, err)
}

func (uc *DiagnosisUseCase) withRedisGet(ctx context.Context, requestID, operation, cacheKey string) (string, error) {
	var result string
	err := uc.withRedisRetry(ctx, requestID, operation, func() error {
		value, err := uc.cache.Get(ctx, cacheKey)
		if err != nil {
			return err
		}
		result = value
		return nil
	})
	if err != nil {
		return "", err
	}
	return result, nil
}

func isTransientError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var temporary interface{ Temporary() bool }
	if errors.As(err, &temporary) && temporary.Temporary() {
		return true
	}

	return false
}
