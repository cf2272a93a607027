package llmedit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/kieronlawson/diatribe/internal/diarize"
	"github.com/kieronlawson/diatribe/pkg/llm"
)

// ErrTransport wraps a failure to reach or parse a response from the LM
// provider backing stage 1 — network errors, malformed tool-call
// arguments, or a model that ignores the forced tool.
var ErrTransport = errors.New("llmedit: transport error")

// submitPatchTool is the single tool offered to the model for stage 1: a
// forced structured-output channel so the response is a WindowPatch rather
// than free text that would need brittle parsing.
var submitPatchTool = llm.ToolDefinition{
	Name:        "submit_patch",
	Description: "Submit the proposed token relabels and turn edits for this window.",
	Parameters: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"window_id": map[string]any{"type": "string"},
			"token_relabels": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"token_id":    map[string]any{"type": "string"},
						"new_speaker": map[string]any{"type": "integer"},
						"reason":      map[string]any{"type": "string"},
					},
					"required": []string{"token_id", "new_speaker", "reason"},
				},
			},
			"turn_edits": map[string]any{"type": "array"},
			"violations": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "string"},
			},
			"notes": map[string]any{"type": "object"},
		},
		"required": []string{"window_id"},
	},
}

// CallLogger records every stage 1 LM call, independent of the provider's
// own logging (pkg/llm/anyllm.CallLogger). NewClient leaves Client.Logger
// nil, and no caller in this repository sets it.
type CallLogger interface {
	LogPatchCall(windowID string, attempt int, patch diarize.WindowPatch, usage llm.Usage, err error)
}

// Client wraps an llm.Provider to submit a window prompt and parse the
// resulting submit_patch tool call into a diarize.WindowPatch.
type Client struct {
	Provider llm.Provider
	Logger   CallLogger
}

// NewClient returns a Client backed by provider, with no logger.
func NewClient(provider llm.Provider) *Client {
	return &Client{Provider: provider}
}

// SendWithTool sends systemPrompt+userPrompt to the model with the
// submit_patch tool offered, and parses the first matching tool call's
// arguments into a WindowPatch.
func (c *Client) SendWithTool(ctx context.Context, systemPrompt, userPrompt string) (diarize.WindowPatch, llm.Usage, error) {
	req := llm.CompletionRequest{
		SystemPrompt: systemPrompt,
		Messages:     []llm.Message{{Role: "user", Content: userPrompt}},
		Tools:        []llm.ToolDefinition{submitPatchTool},
		Temperature:  0,
	}

	resp, err := c.Provider.Complete(ctx, req)
	if err != nil {
		return diarize.WindowPatch{}, llm.Usage{}, fmt.Errorf("%w: complete: %v", ErrTransport, err)
	}

	for _, call := range resp.ToolCalls {
		if call.Name != submitPatchTool.Name {
			continue
		}
		var patch diarize.WindowPatch
		if err := json.Unmarshal([]byte(call.Arguments), &patch); err != nil {
			return diarize.WindowPatch{}, resp.Usage, fmt.Errorf("%w: parse submit_patch arguments: %v", ErrTransport, err)
		}
		return patch, resp.Usage, nil
	}

	return diarize.WindowPatch{}, resp.Usage, fmt.Errorf("%w: model did not call %s", ErrTransport, submitPatchTool.Name)
}
