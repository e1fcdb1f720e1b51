package vision

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/couchcryptid/storefront-estimator/internal/domain"
	"github.com/couchcryptid/storefront-estimator/internal/observability"
)

const fencedReply = "```json\n" + `{
  "residential_percentage": 55,
  "road_percentage": "22%",
  "open_space_percentage": 23.5,
  "estimated_population_density": 14500,
  "competitor_density_estimate": "High",
  "reasoning": "Dense kampung housing along a main road."
}` + "\n```"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestParseReply_JSON(t *testing.T) {
	area, err := ParseReply(fencedReply)
	require.NoError(t, err)

	assert.Equal(t, 55.0, area.Residential)
	assert.Equal(t, 22.0, area.Road)
	assert.Equal(t, 23.5, area.OpenSpace)
	require.NotNil(t, area.EstimatedPopulationDensity)
	assert.Equal(t, 14500.0, *area.EstimatedPopulationDensity)
	assert.Equal(t, domain.CompetitorHigh, area.CompetitorDensity)
	assert.Equal(t, "Dense kampung housing along a main road.", area.Reasoning)
}

func TestParseReply_MissingDensity(t *testing.T) {
	area, err := ParseReply(`Here you go: {"residential_percentage": 40, "road_percentage": 30, "open_space_percentage": 30}`)
	require.NoError(t, err)
	assert.Nil(t, area.EstimatedPopulationDensity)
	assert.Empty(t, area.CompetitorDensity)
}

func TestParseReply_FreeText(t *testing.T) {
	area, err := ParseReply("Residential: 60%, Road: 25%, Open space: 15%")
	require.NoError(t, err)
	assert.Equal(t, 60.0, area.Residential)
	assert.Equal(t, 25.0, area.Road)
	assert.Equal(t, 15.0, area.OpenSpace)
}

func TestParseReply_Errors(t *testing.T) {
	_, err := ParseReply("I cannot analyze this image.")
	assert.ErrorIs(t, err, ErrNoDistribution)

	_, err = ParseReply(`{"residential_percentage": 0, "road_percentage": 0}`)
	assert.ErrorIs(t, err, ErrNoDistribution)

	_, err = ParseReply(`{"residential_percentage": "lots"}`)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoDistribution)
}

func TestPrompt(t *testing.T) {
	p := Prompt(domain.VisionRequest{
		PlaceName:  "Jalan Thamrin, Jakarta",
		Screenshot: domain.ScreenshotMetadata{Width: 800, Height: 600, Scale: 1},
	})
	assert.Contains(t, p, "Jalan Thamrin, Jakarta")
	assert.Contains(t, p, "1044 m by 783 m")
	assert.Contains(t, p, "residential_percentage")

	assert.Contains(t, Prompt(domain.VisionRequest{}), "an unnamed location")
}

// --- Gemini ---

type fakeGenerator struct {
	reply    string
	err      error
	model    string
	contents []*genai.Content
}

func (f *fakeGenerator) GenerateContent(_ context.Context, model string, contents []*genai.Content, _ *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.model = model
	f.contents = contents
	if f.err != nil {
		return nil, f.err
	}
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Role: genai.RoleModel, Parts: []*genai.Part{{Text: f.reply}}},
		}},
	}, nil
}

func testGemini(gen contentGenerator) *Gemini {
	return &Gemini{
		models:  gen,
		model:   DefaultGeminiModel,
		metrics: observability.NewMetricsForTesting(),
		logger:  discardLogger(),
	}
}

func TestGemini_AnalyzeArea(t *testing.T) {
	gen := &fakeGenerator{reply: fencedReply}
	g := testGemini(gen)

	area, err := g.AnalyzeArea(context.Background(), domain.VisionRequest{Image: []byte{0x89, 'P', 'N', 'G'}, PlaceName: "Menteng"})
	require.NoError(t, err)

	assert.Equal(t, "gemini", g.Name())
	assert.Equal(t, 55.0, area.Residential)
	assert.Equal(t, DefaultGeminiModel, gen.model)
	require.Len(t, gen.contents, 1)
	require.Len(t, gen.contents[0].Parts, 2)
	assert.Contains(t, gen.contents[0].Parts[0].Text, "Menteng")
	require.NotNil(t, gen.contents[0].Parts[1].InlineData)
	assert.Equal(t, "image/png", gen.contents[0].Parts[1].InlineData.MIMEType)
}

func TestGemini_Errors(t *testing.T) {
	_, err := testGemini(&fakeGenerator{err: errors.New("429 RESOURCE_EXHAUSTED")}).AnalyzeArea(context.Background(), domain.VisionRequest{Image: []byte("x")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RESOURCE_EXHAUSTED")

	_, err = testGemini(&fakeGenerator{reply: "no idea"}).AnalyzeArea(context.Background(), domain.VisionRequest{Image: []byte("x")})
	assert.ErrorIs(t, err, ErrNoDistribution)
}

func TestNewGemini_RequiresKey(t *testing.T) {
	_, err := NewGemini(context.Background(), "", "", 0, observability.NewMetricsForTesting(), discardLogger())
	require.Error(t, err)
}

// --- Claude ---

type fakeMessages struct {
	reply  string
	err    error
	params anthropic.MessageNewParams
}

func (f *fakeMessages) New(_ context.Context, body anthropic.MessageNewParams, _ ...option.RequestOption) (*anthropic.Message, error) {
	f.params = body
	if f.err != nil {
		return nil, f.err
	}
	return &anthropic.Message{
		Content: []anthropic.ContentBlockUnion{{Type: "text", Text: f.reply}},
	}, nil
}

func testClaude(m messageCreator) *Claude {
	return &Claude{
		messages: m,
		model:    DefaultClaudeModel,
		metrics:  observability.NewMetricsForTesting(),
		logger:   discardLogger(),
	}
}

func TestClaude_AnalyzeArea(t *testing.T) {
	msgs := &fakeMessages{reply: fencedReply}
	c := testClaude(msgs)

	area, err := c.AnalyzeArea(context.Background(), domain.VisionRequest{Image: []byte("jpeg"), MIMEType: "image/jpeg"})
	require.NoError(t, err)

	assert.Equal(t, "claude", c.Name())
	assert.Equal(t, 22.0, area.Road)
	assert.Equal(t, anthropic.Model(DefaultClaudeModel), msgs.params.Model)
	require.Len(t, msgs.params.Messages, 1)
	assert.Len(t, msgs.params.Messages[0].Content, 2)
}

func TestClaude_Errors(t *testing.T) {
	_, err := testClaude(&fakeMessages{err: errors.New("overloaded")}).AnalyzeArea(context.Background(), domain.VisionRequest{Image: []byte("x")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "overloaded")

	_, err = testClaude(&fakeMessages{reply: ""}).AnalyzeArea(context.Background(), domain.VisionRequest{Image: []byte("x")})
	assert.ErrorIs(t, err, ErrNoDistribution)
}

func TestNewClaude_RequiresKey(t *testing.T) {
	_, err := NewClaude("", "", 0, observability.NewMetricsForTesting(), discardLogger())
	require.Error(t, err)
}
