package openai

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/mikey/llm-scam-scanner/internal/core"
	"github.com/mikey/llm-scam-scanner/internal/utils"
	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeCompleter struct {
	reply string
	err   error
	req   openai.ChatCompletionRequest
}

func (f *fakeCompleter) CreateChatCompletion(_ context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	f.req = req
	if f.err != nil {
		return openai.ChatCompletionResponse{}, f.err
	}
	if f.reply == "" {
		return openai.ChatCompletionResponse{ID: "req-1"}, nil
	}
	return openai.ChatCompletionResponse{
		ID: "req-1",
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: f.reply}},
		},
	}, nil
}

func newTestClassifier(client chatCompleter, maxInput int) *Classifier {
	logger := zap.NewNop()
	return NewClassifier(client, "gpt-4o-mini", 500, 0.1, 0.9, 0.7, maxInput, logger, utils.NewTextProcessor(logger))
}

func TestClassify(t *testing.T) {
	fake := &fakeCompleter{reply: `{"is_scam":true,"score":0.95,"confidence":0.9,"explanation":"requests crypto"}`}
	c := newTestClassifier(fake, 0)

	label, err := c.Classify(context.Background(), "i love you [SEP] buy bitcoin for me")
	require.NoError(t, err)
	require.Equal(t, core.LabelScam, label)

	require.Equal(t, "gpt-4o-mini", fake.req.Model)
	require.Len(t, fake.req.Messages, 2)
	require.Contains(t, fake.req.Messages[1].Content, "buy bitcoin for me")
	require.Equal(t, openai.ChatCompletionResponseFormatTypeJSONObject, fake.req.ResponseFormat.Type)
}

func TestClassify_BelowThreshold(t *testing.T) {
	fake := &fakeCompleter{reply: `{"is_scam":true,"score":0.5}`}
	label, err := newTestClassifier(fake, 0).Classify(context.Background(), "hello")
	require.NoError(t, err)
	require.Equal(t, core.LabelNormal, label)
}

func TestClassify_TruncatesInput(t *testing.T) {
	fake := &fakeCompleter{reply: `{"score":0.1}`}
	_, err := newTestClassifier(fake, 8).Classify(context.Background(), strings.Repeat("x", 100))
	require.NoError(t, err)
	require.NotContains(t, fake.req.Messages[1].Content, strings.Repeat("x", 9))
}

func TestClassify_Errors(t *testing.T) {
	_, err := newTestClassifier(&fakeCompleter{err: errors.New("rate limited")}, 0).Classify(context.Background(), "x")
	require.ErrorContains(t, err, "rate limited")

	_, err = newTestClassifier(&fakeCompleter{}, 0).Classify(context.Background(), "x")
	require.ErrorContains(t, err, "empty response")

	_, err = newTestClassifier(&fakeCompleter{reply: "no idea"}, 0).Classify(context.Background(), "x")
	require.Error(t, err)
}
