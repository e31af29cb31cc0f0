// Package config reads service settings from the environment and an optional config file.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/example/krishak/internal/diagnosis"
)

const (
	BackendONNX = "onnx"
	BackendGRPC = "grpc"
)

// Config aggregates runtime settings.
type Config struct {
	HTTPAddr        string        `mapstructure:"http_addr"`
	LogLevel        string        `mapstructure:"log_level"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`

	ClassifierBackend string `mapstructure:"classifier_backend"`
	ClassifierAddr    string `mapstructure:"classifier_addr"`
	OnnxLibraryPath   string `mapstructure:"onnx_library_path"`
	ModelPath         string `mapstructure:"model_path"`
	ModelInputName    string `mapstructure:"model_input_name"`
	ModelOutputName   string `mapstructure:"model_output_name"`
	LabelsPath        string `mapstructure:"labels_path"`
	RemedyCatalogPath string `mapstructure:"remedy_catalog_path"`

	Diagnosis diagnosis.Thresholds `mapstructure:"diagnosis"`

	RedisAddr string        `mapstructure:"redis_addr"`
	ResultTTL time.Duration `mapstructure:"result_ttl"`

	JWTSecret   string `mapstructure:"jwt_secret"`
	JWTAudience string `mapstructure:"jwt_audience"`

	GeminiAPIKey      string `mapstructure:"gemini_api_key"`
	GeminiModel       string `mapstructure:"gemini_model"`
	OpenWeatherAPIKey string `mapstructure:"openweather_api_key"`
	DataGovAPIKey     string `mapstructure:"data_gov_api_key"`
}

// Load reads defaults, then CONFIG_FILE (if set), then environment variables.
// Nested keys map to upper-case env names with dots replaced by underscores,
// e.g. diagnosis.margin -> DIAGNOSIS_MARGIN.
func Load() (Config, error) {
	return load(viper.New())
}

func load(v *viper.Viper) (Config, error) {
	setDefaults(v)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.BindEnv("config_file", "CONFIG_FILE"); err != nil {
		return Config{}, err
	}
	if path := v.GetString("config_file"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http_addr", ":8080")
	v.SetDefault("log_level", "info")
	v.SetDefault("shutdown_timeout", 15*time.Second)

	v.SetDefault("classifier_backend", BackendONNX)
	v.SetDefault("classifier_addr", "classifier:50051")
	v.SetDefault("onnx_library_path", "")
	v.SetDefault("model_path", "model/model.onnx")
	v.SetDefault("model_input_name", "input")
	v.SetDefault("model_output_name", "output")
	v.SetDefault("labels_path", "model/dict.txt")
	v.SetDefault("remedy_catalog_path", "")

	th := diagnosis.DefaultThresholds()
	v.SetDefault("diagnosis.high_confidence", th.HighConfidence)
	v.SetDefault("diagnosis.min_confidence", th.MinConfidence)
	v.SetDefault("diagnosis.margin", th.Margin)

	v.SetDefault("redis_addr", "")
	v.SetDefault("result_ttl", 5*time.Minute)

	v.SetDefault("jwt_secret", "")
	v.SetDefault("jwt_audience", "")

	v.SetDefault("gemini_api_key", "")
	v.SetDefault("gemini_model", "gemini-2.5-flash")
	v.SetDefault("openweather_api_key", "")
	v.SetDefault("data_gov_api_key", "")
}

// Validate rejects settings the service cannot start with.
func (c Config) Validate() error {
	switch c.ClassifierBackend {
	case BackendONNX, BackendGRPC:
	default:
		return fmt.Errorf("config: unknown classifier backend %q", c.ClassifierBackend)
	}
	if c.HTTPAddr == "" {
		return fmt.Errorf("config: http_addr is required")
	}
	if err := c.Diagnosis.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}
