package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/krishak/internal/diagnosis"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, BackendONNX, cfg.ClassifierBackend)
	assert.Equal(t, diagnosis.DefaultThresholds(), cfg.Diagnosis)
	assert.Equal(t, 5*time.Minute, cfg.ResultTTL)
	assert.Equal(t, 15*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "gemini-2.5-flash", cfg.GeminiModel)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("CLASSIFIER_BACKEND", "grpc")
	t.Setenv("CLASSIFIER_ADDR", "localhost:6000")
	t.Setenv("DIAGNOSIS_MARGIN", "0.2")
	t.Setenv("RESULT_TTL", "90s")
	t.Setenv("REDIS_ADDR", "localhost:6379")

	cfg, err := load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, BackendGRPC, cfg.ClassifierBackend)
	assert.Equal(t, "localhost:6000", cfg.ClassifierAddr)
	assert.Equal(t, 0.2, cfg.Diagnosis.Margin)
	assert.Equal(t, 0.60, cfg.Diagnosis.HighConfidence)
	assert.Equal(t, 90*time.Second, cfg.ResultTTL)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "krishak.yaml")
	doc := "labels_path: /srv/model/dict.txt\ndiagnosis:\n  high_confidence: 0.7\n"
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))
	t.Setenv("CONFIG_FILE", path)

	cfg, err := load(viper.New())
	require.NoError(t, err)
	assert.Equal(t, "/srv/model/dict.txt", cfg.LabelsPath)
	assert.Equal(t, 0.7, cfg.Diagnosis.HighConfidence)
	assert.Equal(t, 0.30, cfg.Diagnosis.MinConfidence)
}

func TestLoadRejectsInvalidSettings(t *testing.T) {
	t.Setenv("CLASSIFIER_BACKEND", "tfjs")
	_, err := load(viper.New())
	assert.Error(t, err)
}

func TestLoadRejectsInvertedThresholds(t *testing.T) {
	t.Setenv("DIAGNOSIS_MIN_CONFIDENCE", "0.9")
	_, err := load(viper.New())
	assert.Error(t, err)
}

func TestLoadRejectsNaNThreshold(t *testing.T) {
	t.Setenv("DIAGNOSIS_MIN_CONFIDENCE", "NaN")
	_, err := load(viper.New())
	assert.Error(t, err)
}
