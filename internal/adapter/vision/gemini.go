package vision

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"google.golang.org/genai"

	"github.com/couchcryptid/storefront-estimator/internal/domain"
	"github.com/couchcryptid/storefront-estimator/internal/observability"
)

// DefaultGeminiModel is used when no model is configured.
const DefaultGeminiModel = "gemini-2.5-flash"

// contentGenerator is the subset of *genai.Models the analyzer uses.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Gemini implements domain.VisionAnalyzer with the Google Gemini API.
type Gemini struct {
	models  contentGenerator
	model   string
	timeout time.Duration
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewGemini creates a Gemini analyzer.
func NewGemini(ctx context.Context, apiKey, model string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) (*Gemini, error) {
	if apiKey == "" {
		return nil, errors.New("gemini API key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	if model == "" {
		model = DefaultGeminiModel
	}
	return &Gemini{
		models:  client.Models,
		model:   model,
		timeout: timeout,
		metrics: metrics,
		logger:  logger,
	}, nil
}

// Name implements domain.VisionAnalyzer.
func (g *Gemini) Name() string { return "gemini" }

// AnalyzeArea implements domain.VisionAnalyzer.
func (g *Gemini) AnalyzeArea(ctx context.Context, req domain.VisionRequest) (domain.AreaDistribution, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	contents := []*genai.Content{{
		Role: genai.RoleUser,
		Parts: []*genai.Part{
			genai.NewPartFromText(Prompt(req)),
			genai.NewPartFromBytes(req.Image, mimeType(req)),
		},
	}}
	config := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr[float32](0.1),
		MaxOutputTokens: 1024,
	}

	start := time.Now()
	resp, err := g.models.GenerateContent(ctx, g.model, contents, config)
	g.metrics.CollaboratorDuration.WithLabelValues(observability.CollaboratorVision).Observe(time.Since(start).Seconds())
	if err != nil {
		g.metrics.CollaboratorRequests.WithLabelValues(observability.CollaboratorVision, observability.OutcomeError).Inc()
		return domain.AreaDistribution{}, fmt.Errorf("gemini generate content: %w", err)
	}

	area, err := ParseReply(resp.Text())
	if err != nil {
		g.metrics.CollaboratorRequests.WithLabelValues(observability.CollaboratorVision, observability.OutcomeEmpty).Inc()
		return domain.AreaDistribution{}, fmt.Errorf("gemini reply: %w", err)
	}
	g.metrics.CollaboratorRequests.WithLabelValues(observability.CollaboratorVision, observability.OutcomeSuccess).Inc()
	g.logger.Debug("gemini area analysis complete",
		"model", g.model,
		"residential", area.Residential,
		"road", area.Road,
		"open_space", area.OpenSpace,
	)
	return area, nil
}
