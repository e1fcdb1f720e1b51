package vision

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/couchcryptid/storefront-estimator/internal/domain"
	"github.com/couchcryptid/storefront-estimator/internal/observability"
)

// DefaultClaudeModel is used when no model is configured.
const DefaultClaudeModel = "claude-sonnet-4-20250514"

const claudeMaxTokens = 1024

// messageCreator is the subset of anthropic.MessageService the analyzer uses.
type messageCreator interface {
	New(ctx context.Context, body anthropic.MessageNewParams, opts ...option.RequestOption) (*anthropic.Message, error)
}

// Claude implements domain.VisionAnalyzer with the Anthropic Messages API.
type Claude struct {
	messages messageCreator
	model    string
	timeout  time.Duration
	metrics  *observability.Metrics
	logger   *slog.Logger
}

// NewClaude creates a Claude analyzer.
func NewClaude(apiKey, model string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) (*Claude, error) {
	if apiKey == "" {
		return nil, errors.New("anthropic API key is required")
	}
	client := anthropic.NewClient(option.WithAPIKey(apiKey))
	if model == "" {
		model = DefaultClaudeModel
	}
	return &Claude{
		messages: &client.Messages,
		model:    model,
		timeout:  timeout,
		metrics:  metrics,
		logger:   logger,
	}, nil
}

// Name implements domain.VisionAnalyzer.
func (c *Claude) Name() string { return "claude" }

// AnalyzeArea implements domain.VisionAnalyzer.
func (c *Claude) AnalyzeArea(ctx context.Context, req domain.VisionRequest) (domain.AreaDistribution, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(c.model),
		MaxTokens:   claudeMaxTokens,
		Temperature: anthropic.Float(0.1),
		System: []anthropic.TextBlockParam{
			{Text: "You estimate land use from aerial imagery and answer with JSON only."},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(
				anthropic.NewImageBlockBase64(mimeType(req), base64.StdEncoding.EncodeToString(req.Image)),
				anthropic.NewTextBlock(Prompt(req)),
			),
		},
	}

	start := time.Now()
	resp, err := c.messages.New(ctx, params)
	c.metrics.CollaboratorDuration.WithLabelValues(observability.CollaboratorVision).Observe(time.Since(start).Seconds())
	if err != nil {
		c.metrics.CollaboratorRequests.WithLabelValues(observability.CollaboratorVision, observability.OutcomeError).Inc()
		return domain.AreaDistribution{}, fmt.Errorf("claude messages: %w", err)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	area, err := ParseReply(text.String())
	if err != nil {
		c.metrics.CollaboratorRequests.WithLabelValues(observability.CollaboratorVision, observability.OutcomeEmpty).Inc()
		return domain.AreaDistribution{}, fmt.Errorf("claude reply: %w", err)
	}
	c.metrics.CollaboratorRequests.WithLabelValues(observability.CollaboratorVision, observability.OutcomeSuccess).Inc()
	c.logger.Debug("claude area analysis complete",
		"model", c.model,
		"residential", area.Residential,
		"road", area.Road,
		"open_space", area.OpenSpace,
	)
	return area, nil
}
