package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/pageza/foodscan/backend/internal/types"
)

// DefaultModel is the Gemini model used when none is configured.
const DefaultModel = "gemini-2.5-flash"

// generator is the part of the genai client the oracle calls.
type generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Gemini is the Oracle backed by the Gemini API.
type Gemini struct {
	gen    generator
	model  string
	logger *zap.Logger
}

// NewGemini creates a Gemini oracle authenticated with apiKey.
func NewGemini(ctx context.Context, apiKey, model string, logger *zap.Logger) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return newGemini(client.Models, model, logger), nil
}

func newGemini(gen generator, model string, logger *zap.Logger) *Gemini {
	if model == "" {
		model = DefaultModel
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gemini{gen: gen, model: model, logger: logger}
}

func (g *Gemini) generate(ctx context.Context, prompt string, img *types.FoodImage, jsonOut bool) (string, error) {
	parts := []*genai.Part{genai.NewPartFromText(prompt)}
	if img != nil && len(img.Data) > 0 {
		mime := img.MIMEType
		if mime == "" {
			mime = "image/jpeg"
		}
		parts = append(parts, genai.NewPartFromBytes(img.Data, mime))
	}

	cfg := &genai.GenerateContentConfig{Temperature: genai.Ptr[float32](0.2)}
	if jsonOut {
		cfg.ResponseMIMEType = "application/json"
	}

	resp, err := g.gen.GenerateContent(ctx, g.model, []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}, cfg)
	if err != nil {
		return "", types.NewAnalysisError(types.FailureOracleUnavailable, "Failed to analyze food image", err)
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", types.NewAnalysisError(types.FailureOracleUnavailable, "Failed to analyze food image", fmt.Errorf("empty response from %s", g.model))
	}
	return text, nil
}

// Identify asks for the bare name of the dish.
func (g *Gemini) Identify(ctx context.Context, img types.FoodImage) (string, error) {
	text, err := g.generate(ctx, identifyPrompt(), &img, false)
	if err != nil {
		return "", err
	}
	name := strings.Trim(strings.TrimSpace(strings.SplitN(text, "\n", 2)[0]), `"'.`)
	g.logger.Debug("oracle identified food", zap.String("food", name))
	return name, nil
}

// Verify asks a yes/no question. YES or TRUE anywhere in the answer confirms.
func (g *Gemini) Verify(ctx context.Context, img types.FoodImage, label string) (bool, error) {
	text, err := g.generate(ctx, verifyPrompt(label), &img, false)
	if err != nil {
		return false, err
	}
	answer := strings.ToUpper(text)
	return strings.Contains(answer, "YES") || strings.Contains(answer, "TRUE"), nil
}

// Analyze runs the detailed or full analysis prompt and validates the result.
func (g *Gemini) Analyze(ctx context.Context, img types.FoodImage, req AnalysisRequest) (*types.FoodRecord, error) {
	prompt := fullPrompt()
	if !req.Full() {
		prompt = detailedPrompt(req.FoodName, req.Confidence)
	}

	text, err := g.generate(ctx, prompt, &img, true)
	if err != nil {
		return nil, err
	}

	record, err := parseRecord(text, req.Full())
	if err != nil {
		g.logger.Warn("oracle response rejected",
			zap.Bool("full", req.Full()),
			zap.Error(err),
			zap.String("response", truncate(text, 500)))
		return nil, err
	}

	record.ModelUsed = req.ModelUsed
	if record.ModelUsed == "" {
		record.ModelUsed = AttributionOracle
	}
	g.logger.Info("oracle analysis complete",
		zap.String("food", record.FoodName),
		zap.String("model_used", record.ModelUsed))
	return record, nil
}

// Recommend asks for free-form advice. On failure it returns a single
// generic tip together with the error.
func (g *Gemini) Recommend(ctx context.Context, record *types.FoodRecord, conditions []string) ([]string, error) {
	fallback := []string{"Consult with a healthcare professional for personalized advice"}

	data, err := json.Marshal(record)
	if err != nil {
		return fallback, err
	}
	text, err := g.generate(ctx, recommendPrompt(string(data), conditions), nil, true)
	if err != nil {
		return fallback, err
	}
	advice, err := parseAdvice(text)
	if err != nil {
		return fallback, err
	}
	return advice, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
