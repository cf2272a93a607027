package openai

import (
	"testing"

	"github.com/kieronlawson/diatribe/pkg/llm"
)

func TestNew_RequiresAPIKeyAndModel(t *testing.T) {
	if _, err := New("", "gpt-4o"); err == nil {
		t.Error("expected error for empty apiKey")
	}
	if _, err := New("sk-test", ""); err == nil {
		t.Error("expected error for empty model")
	}
	p, err := New("sk-test", "gpt-4o")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.model != "gpt-4o" {
		t.Errorf("expected model gpt-4o, got %q", p.model)
	}
}

func TestConvertMessage_RoundTrip(t *testing.T) {
	cases := []llm.Message{
		{Role: "system", Content: "be terse"},
		{Role: "user", Content: "hello"},
		{Role: "assistant", Content: "hi"},
		{Role: "tool", Content: "{}", ToolCallID: "call_1"},
	}
	for _, m := range cases {
		if _, err := convertMessage(m); err != nil {
			t.Errorf("convertMessage(%+v): %v", m, err)
		}
	}
}

func TestConvertMessage_UnknownRole(t *testing.T) {
	if _, err := convertMessage(llm.Message{Role: "narrator"}); err == nil {
		t.Error("expected error for unknown role")
	}
}

func TestModelCapabilities_GPT4o(t *testing.T) {
	caps := modelCapabilities("gpt-4o-mini")
	if caps.MaxOutputTokens != 16_384 {
		t.Errorf("expected max output tokens 16384, got %d", caps.MaxOutputTokens)
	}
	if !caps.SupportsVision {
		t.Error("expected vision support for gpt-4o-mini")
	}
}
