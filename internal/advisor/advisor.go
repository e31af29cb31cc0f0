// Package advisor answers farmer questions and reads soil health cards through Gemini,
// grounding each prompt in live weather and mandi prices.
package advisor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/example/krishak/internal/geo"
	"github.com/example/krishak/internal/mandi"
	"github.com/example/krishak/internal/weather"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gemini-2.5-flash"

// Generator is the subset of the genai models service the advisor needs.
type Generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// PriceSource supplies the mandi record quoted in prompts.
type PriceSource interface {
	LatestPrice(ctx context.Context, market, commodity string) (*mandi.Record, error)
}

// Config selects the Gemini credentials and model.
type Config struct {
	APIKey string
	Model  string
}

// Image is an inline photo sent alongside a prompt.
type Image struct {
	Data     []byte
	MIMEType string
}

// ChatRequest is one farmer question with its context.
type ChatRequest struct {
	Question string
	Weather  *weather.Summary
	Place    *geo.Place
	Image    *Image
}

// SoilReport is the crop recommendation extracted from a soil health card.
type SoilReport struct {
	CropName            string `json:"cropName"`
	YieldForecast       string `json:"yieldForecast"`
	ProfitMargin        string `json:"profitMargin"`
	SustainabilityScore string `json:"sustainabilityScore"`
	Reason              string `json:"reason"`
}

// Advisor wraps a Gemini model.
type Advisor struct {
	gen    Generator
	model  string
	prices PriceSource
	logger *zap.Logger
}

// New connects to the Gemini API. It returns ErrNotConfigured when cfg has no key.
func New(ctx context.Context, cfg Config, prices PriceSource, logger *zap.Logger) (*Advisor, error) {
	if cfg.APIKey == "" {
		return nil, ErrNotConfigured
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return NewWithGenerator(client.Models, cfg.Model, prices, logger), nil
}

// NewWithGenerator builds an advisor over an existing generator.
func NewWithGenerator(gen Generator, model string, prices PriceSource, logger *zap.Logger) *Advisor {
	if model == "" {
		model = DefaultModel
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Advisor{gen: gen, model: model, prices: prices, logger: logger.Named("advisor")}
}

// Model reports the Gemini model in use.
func (a *Advisor) Model() string {
	return a.model
}

// Chat answers a question, in the farmer's language, with optional photo.
func (a *Advisor) Chat(ctx context.Context, req ChatRequest) (string, error) {
	market := mandi.DefaultMarket
	if req.Place != nil && req.Place.City != "" {
		market = req.Place.City
	}
	prompt := marketBlock(a.price(ctx, market)) + chatPrompt(req.Question, weatherJSON(req.Weather))

	text, err := a.generate(ctx, prompt, req.Image)
	if err != nil {
		return "", err
	}
	return text, nil
}

// AnalyzeSoilCard recommends a crop from a photographed soil health card.
func (a *Advisor) AnalyzeSoilCard(ctx context.Context, card Image, forecast *weather.Summary) (*SoilReport, error) {
	prompt := marketBlock(a.price(ctx, mandi.DefaultMarket)) + soilPrompt(weatherJSON(forecast))

	text, err := a.generate(ctx, prompt, &card)
	if err != nil {
		return nil, err
	}
	return parseSoilReport(text)
}

func (a *Advisor) generate(ctx context.Context, prompt string, img *Image) (string, error) {
	parts := make([]*genai.Part, 0, 2)
	if img != nil && len(img.Data) > 0 {
		parts = append(parts, &genai.Part{InlineData: &genai.Blob{Data: img.Data, MIMEType: img.MIMEType}})
	}
	parts = append(parts, &genai.Part{Text: prompt})

	contents := []*genai.Content{{Role: "user", Parts: parts}}
	result, err := a.gen.GenerateContent(ctx, a.model, contents, nil)
	if err != nil {
		mapped := mapGeminiError(err)
		a.logger.Error("gemini request failed", zap.String("model", a.model), zap.Error(mapped))
		return "", mapped
	}
	return result.Text(), nil
}

// price returns nil when the mandi feed is not reachable; prompts then say "N/A".
func (a *Advisor) price(ctx context.Context, market string) *mandi.Record {
	if a.prices == nil {
		return nil
	}
	rec, err := a.prices.LatestPrice(ctx, market, mandi.DefaultCommodity)
	if err != nil {
		a.logger.Warn("mandi price unavailable for prompt", zap.String("market", market), zap.Error(err))
		return nil
	}
	return rec
}

func parseSoilReport(text string) (*SoilReport, error) {
	clean := strings.ReplaceAll(text, "```json", "")
	clean = strings.ReplaceAll(clean, "```", "")
	clean = strings.TrimSpace(clean)

	var report SoilReport
	if err := json.Unmarshal([]byte(clean), &report); err != nil {
		return nil, &ErrInvalidResponse{Content: text, Err: err}
	}
	return &report, nil
}

func mapGeminiError(err error) error {
	var apiErr *genai.APIError
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusTooManyRequests {
		return &ErrRateLimit{Err: err}
	}
	return &ErrProviderUnavailable{Err: err}
}
