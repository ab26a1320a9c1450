package openai

import (
	"context"
	"errors"
	"fmt"

	"github.com/mikey/llm-scam-scanner/internal/adapters/verdict"
	"github.com/mikey/llm-scam-scanner/internal/core"
	"github.com/mikey/llm-scam-scanner/internal/utils"
	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

type chatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Classifier labels conversations with an OpenAI chat model
type Classifier struct {
	client        chatCompleter
	modelName     string
	maxTokens     int
	temperature   float32
	topP          float32
	threshold     float64
	maxInputSize  int
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// NewClassifier creates a new OpenAI classifier
func NewClassifier(
	client chatCompleter,
	modelName string,
	maxTokens int,
	temperature float32,
	topP float32,
	threshold float64,
	maxInputSize int,
	logger *zap.Logger,
	textProcessor *utils.TextProcessor,
) *Classifier {
	return &Classifier{
		client:        client,
		modelName:     modelName,
		maxTokens:     maxTokens,
		temperature:   temperature,
		topP:          topP,
		threshold:     threshold,
		maxInputSize:  maxInputSize,
		logger:        logger,
		textProcessor: textProcessor,
	}
}

// Classify sends the aggregated conversation to the model
func (c *Classifier) Classify(ctx context.Context, text string) (core.Label, error) {
	prompt := verdict.Prompt(c.textProcessor.ProcessText(text, c.maxInputSize))

	req := openai.ChatCompletionRequest{
		Model: c.modelName,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: verdict.SystemPrompt,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
		TopP:        c.topP,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("failed to create chat completion with OpenAI: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("empty response from OpenAI")
	}

	analysis, err := verdict.Parse(resp.Choices[0].Message.Content)
	if err != nil {
		return "", err
	}

	label := analysis.Label(c.threshold)
	c.logger.Debug("OpenAI verdict",
		zap.String("model", c.modelName),
		zap.String("request_id", resp.ID),
		zap.Float64("score", analysis.Score),
		zap.Float64("confidence", analysis.Confidence),
		zap.String("label", string(label)),
		zap.String("explanation", analysis.Explanation))
	return label, nil
}
