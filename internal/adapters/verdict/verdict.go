// Package verdict holds the prompt and response handling shared by the LLM
// classifiers.
package verdict

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mikey/llm-scam-scanner/internal/core"
)

// SystemPrompt is sent as the system role where the provider supports one
const SystemPrompt = "You are a romance scam detection system. Respond only with JSON."

const promptFormat = `You are a romance scam detection system. Analyze the following excerpt of a
one-on-one chat and determine whether the other party is running a romance scam.
Messages are newest first and separated by "[SEP]". They may be written in Korean or English.
Typical signs include fast declarations of love, refusal to meet or video call,
stories about deployments, oil rigs or inheritances, and any request for money,
gift cards, cryptocurrency or investment.

Respond with a JSON object containing:
- is_scam: boolean (true if the conversation looks like a romance scam)
- score: number between 0 and 1 (higher means more likely to be a scam)
- confidence: number between 0 and 1 (how confident you are in your assessment)
- explanation: string (brief explanation of your assessment)

Conversation:
%s

Respond only with the JSON object and nothing else.`

// ErrNoJSON is returned when a model reply contains no JSON object
var ErrNoJSON = errors.New("no JSON object in model response")

// Response is the structured reply expected from the model
type Response struct {
	IsScam      bool    `json:"is_scam"`
	Score       float64 `json:"score"`
	Confidence  float64 `json:"confidence"`
	Explanation string  `json:"explanation"`
}

// Prompt renders the classification prompt for an aggregated conversation
func Prompt(conversation string) string {
	return fmt.Sprintf(promptFormat, conversation)
}

// Parse decodes a model reply. Replies wrapping the object in prose or code
// fences are accepted as long as they contain one brace-delimited object.
func Parse(text string) (Response, error) {
	var resp Response
	if err := json.Unmarshal([]byte(text), &resp); err == nil {
		return resp, nil
	}

	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start < 0 || end <= start {
		return Response{}, ErrNoJSON
	}
	if err := json.Unmarshal([]byte(text[start:end+1]), &resp); err != nil {
		return Response{}, fmt.Errorf("failed to parse model response as JSON: %w", err)
	}
	return resp, nil
}

// Label maps the response to a label. A score at or above threshold is a
// scam; a zero score falls back to the boolean verdict.
func (r Response) Label(threshold float64) core.Label {
	if r.Score == 0 {
		if r.IsScam {
			return core.LabelScam
		}
		return core.LabelNormal
	}
	if r.Score >= threshold {
		return core.LabelScam
	}
	return core.LabelNormal
}
