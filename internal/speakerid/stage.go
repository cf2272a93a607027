package speakerid

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/kieronlawson/diatribe/internal/diarize"
	"github.com/kieronlawson/diatribe/pkg/llm"
)

// submitIdentificationsTool is the single tool offered to the model: a
// forced structured-output channel for its speaker-to-participant mapping.
var submitIdentificationsTool = llm.ToolDefinition{
	Name:        "submit_speaker_identifications",
	Description: "Submit the identification result for each speaker in the transcript.",
	Parameters: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"identifications": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"speaker_id":    map[string]any{"type": "integer"},
						"identified_as": map[string]any{"type": []string{"string", "null"}},
						"confidence":    map[string]any{"type": "number", "minimum": 0.0, "maximum": 1.0},
						"evidence":      map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
					},
					"required": []string{"speaker_id", "confidence", "evidence"},
				},
			},
		},
		"required": []string{"identifications"},
	},
}

// Client wraps an llm.Provider to submit the speaker-identification prompt
// and parse the submit_speaker_identifications tool call.
type Client struct {
	Provider llm.Provider
}

// NewClient returns a Client backed by provider.
func NewClient(provider llm.Provider) *Client {
	return &Client{Provider: provider}
}

type identificationsArgs struct {
	Identifications []diarize.SpeakerIdentification `json:"identifications"`
}

// SendRequest submits systemPrompt+userPrompt with the
// submit_speaker_identifications tool offered and parses the response.
func (c *Client) SendRequest(ctx context.Context, systemPrompt, userPrompt string) ([]diarize.SpeakerIdentification, llm.Usage, error) {
	req := llm.CompletionRequest{
		SystemPrompt: systemPrompt,
		Messages:     []llm.Message{{Role: "user", Content: userPrompt}},
		Tools:        []llm.ToolDefinition{submitIdentificationsTool},
		Temperature:  0,
	}

	resp, err := c.Provider.Complete(ctx, req)
	if err != nil {
		return nil, llm.Usage{}, fmt.Errorf("speakerid: complete: %w", err)
	}

	for _, call := range resp.ToolCalls {
		if call.Name != submitIdentificationsTool.Name {
			continue
		}
		var args identificationsArgs
		if err := json.Unmarshal([]byte(call.Arguments), &args); err != nil {
			return nil, resp.Usage, fmt.Errorf("speakerid: parse submit_speaker_identifications arguments: %w", err)
		}
		return args.Identifications, resp.Usage, nil
	}

	return nil, resp.Usage, fmt.Errorf("speakerid: model did not call %s", submitIdentificationsTool.Name)
}

// Execute runs the speaker-identification stage: it selects excerpts per
// speaker, asks the model to match them to participants, and returns a
// SpeakerIdResult with confidence-filtered display names.
func Execute(ctx context.Context, client *Client, t *diarize.Transcript, participants []diarize.Participant, cfg diarize.SpeakerIdConfig) (diarize.SpeakerIdResult, error) {
	excerpts := buildSpeakerContext(t, cfg)
	userPrompt := buildUserPrompt(participants, excerpts, t.Speakers())

	identifications, usage, err := client.SendRequest(ctx, SystemPrompt(), userPrompt)
	if err != nil {
		return diarize.SpeakerIdResult{}, fmt.Errorf("speakerid: execute: %w", err)
	}

	result := diarize.FromIdentifications(identifications, cfg.ConfidenceThreshold)
	result.Usage = diarize.Usage{
		PromptTokens:     usage.PromptTokens,
		CompletionTokens: usage.CompletionTokens,
		TotalTokens:      usage.TotalTokens,
	}
	return result, nil
}
