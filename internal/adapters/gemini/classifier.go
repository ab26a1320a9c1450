package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/mikey/llm-scam-scanner/internal/adapters/verdict"
	"github.com/mikey/llm-scam-scanner/internal/core"
	"github.com/mikey/llm-scam-scanner/internal/utils"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

type contentGenerator interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

// Classifier labels conversations with a Google Gemini model
type Classifier struct {
	client        *genai.Client
	model         contentGenerator
	modelName     string
	threshold     float64
	maxInputSize  int
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// NewClassifier creates a Gemini classifier with its own API client. Close
// releases the client.
func NewClassifier(
	ctx context.Context,
	apiKey string,
	modelName string,
	maxTokens int,
	temperature float32,
	topP float32,
	threshold float64,
	maxInputSize int,
	logger *zap.Logger,
	textProcessor *utils.TextProcessor,
) (*Classifier, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := client.GenerativeModel(modelName)
	model.SetTemperature(temperature)
	model.SetTopP(topP)
	model.SetMaxOutputTokens(int32(maxTokens))
	model.ResponseMIMEType = "application/json"
	model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(verdict.SystemPrompt)}}

	c := newClassifier(model, modelName, threshold, maxInputSize, logger, textProcessor)
	c.client = client
	return c, nil
}

func newClassifier(
	model contentGenerator,
	modelName string,
	threshold float64,
	maxInputSize int,
	logger *zap.Logger,
	textProcessor *utils.TextProcessor,
) *Classifier {
	return &Classifier{
		model:         model,
		modelName:     modelName,
		threshold:     threshold,
		maxInputSize:  maxInputSize,
		logger:        logger,
		textProcessor: textProcessor,
	}
}

// Close closes the Gemini client
func (c *Classifier) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// Classify sends the aggregated conversation to the model
func (c *Classifier) Classify(ctx context.Context, text string) (core.Label, error) {
	prompt := verdict.Prompt(c.textProcessor.ProcessText(text, c.maxInputSize))

	resp, err := c.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("failed to generate content with Gemini: %w", err)
	}

	reply := responseText(resp)
	if reply == "" {
		return "", errors.New("empty response from Gemini")
	}

	analysis, err := verdict.Parse(reply)
	if err != nil {
		return "", err
	}

	label := analysis.Label(c.threshold)
	c.logger.Debug("Gemini verdict",
		zap.String("model", c.modelName),
		zap.Float64("score", analysis.Score),
		zap.Float64("confidence", analysis.Confidence),
		zap.String("label", string(label)),
		zap.String("explanation", analysis.Explanation))
	return label, nil
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	return b.String()
}
