package bedrock

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/mikey/llm-scam-scanner/internal/core"
	"github.com/mikey/llm-scam-scanner/internal/utils"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeInvoker struct {
	body  string
	err   error
	input *bedrockruntime.InvokeModelInput
}

func (f *fakeInvoker) InvokeModel(_ context.Context, params *bedrockruntime.InvokeModelInput, _ ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error) {
	f.input = params
	if f.err != nil {
		return nil, f.err
	}
	return &bedrockruntime.InvokeModelOutput{Body: []byte(f.body)}, nil
}

func testClassifier(client modelInvoker, modelID string) *Classifier {
	logger := zap.NewNop()
	return NewClassifier(client, modelID, 500, 0.1, 0.9, 0.7, 0, logger, utils.NewTextProcessor(logger))
}

func TestClassify_Anthropic(t *testing.T) {
	fake := &fakeInvoker{body: `{"content":[{"type":"text","text":"{\"is_scam\":true,\"score\":0.9}"}]}`}
	c := testClassifier(fake, "anthropic.claude-3-haiku-20240307-v1:0")

	label, err := c.Classify(context.Background(), "my darling [SEP] customs fee")
	require.NoError(t, err)
	require.Equal(t, core.LabelScam, label)

	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(fake.input.Body, &payload))
	require.Equal(t, anthropicVersion, payload["anthropic_version"])
	require.Contains(t, payload, "messages")
	require.Equal(t, "anthropic.claude-3-haiku-20240307-v1:0", *fake.input.ModelId)
}

func TestClassify_Titan(t *testing.T) {
	fake := &fakeInvoker{body: `{"results":[{"outputText":"{\"is_scam\":false,\"score\":0.2}"}]}`}
	c := testClassifier(fake, "amazon.titan-text-express-v1")

	label, err := c.Classify(context.Background(), "hello")
	require.NoError(t, err)
	require.Equal(t, core.LabelNormal, label)

	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(fake.input.Body, &payload))
	require.Contains(t, payload, "inputText")
}

func TestClassify_Generic(t *testing.T) {
	fake := &fakeInvoker{body: `{"generation":"{\"is_scam\":true,\"score\":0.75}"}`}
	label, err := testClassifier(fake, "meta.llama3-8b-instruct-v1:0").Classify(context.Background(), "hi")
	require.NoError(t, err)
	require.Equal(t, core.LabelScam, label)
}

func TestClassify_Errors(t *testing.T) {
	_, err := testClassifier(&fakeInvoker{err: errors.New("throttled")}, "anthropic.claude-v2").Classify(context.Background(), "x")
	require.ErrorContains(t, err, "throttled")

	_, err = testClassifier(&fakeInvoker{body: `{"content":[]}`}, "anthropic.claude-v2").Classify(context.Background(), "x")
	require.ErrorContains(t, err, "empty response")

	_, err = testClassifier(&fakeInvoker{body: `{"results":[]}`}, "amazon.titan-text-lite-v1").Classify(context.Background(), "x")
	require.ErrorContains(t, err, "empty response")
}
