package llmedit

import (
	"context"
	"errors"
	"testing"

	"github.com/kieronlawson/diatribe/internal/diarize"
	"github.com/kieronlawson/diatribe/pkg/llm"
	"github.com/kieronlawson/diatribe/pkg/llm/mock"
)

func buildTranscript() *diarize.Transcript {
	t := &diarize.Transcript{Tokens: []diarize.Token{
		{TokenID: "t0", Word: "hello", StartMs: 0, EndMs: 500, Speaker: 0, SpeakerConf: 0.9},
		{TokenID: "t1", Word: "there", StartMs: 500, EndMs: 1000, Speaker: 0, SpeakerConf: 0.9},
		{TokenID: "t2", Word: "yeah", StartMs: 1000, EndMs: 1200, Speaker: 1, SpeakerConf: 0.5},
		{TokenID: "t3", Word: "ok", StartMs: 1200, EndMs: 1500, Speaker: 0, SpeakerConf: 0.9},
	}}
	t.RebuildTurns()
	return t
}

func testWindow(t *diarize.Transcript) diarize.Window {
	return diarize.Window{
		WindowID:             "w_0",
		StartMs:              0,
		EndMs:                1500,
		TokenIndices:         []int{0, 1, 2, 3},
		EditableTokenIndices: []int{0, 1, 2, 3},
	}
}

func TestBuildWindowPromptIncludesEditableTokensAndHints(t *testing.T) {
	tr := buildTranscript()
	w := testWindow(tr)
	prompt := BuildWindowPrompt(tr, w, 3.0)

	if !contains(prompt, "Window: w_0") {
		t.Fatalf("expected window id in prompt, got %q", prompt)
	}
	if !contains(prompt, "Speaker Hints") {
		t.Fatalf("expected speaker hints section")
	}
	if !contains(prompt, `"token_id": "t2"`) {
		t.Fatalf("expected editable token t2 rendered")
	}
}

func TestValidatePatchRejectsNonEditableToken(t *testing.T) {
	tr := buildTranscript()
	w := diarize.Window{WindowID: "w_0", StartMs: 0, EndMs: 1000, TokenIndices: []int{0, 1}, EditableTokenIndices: []int{0, 1}}

	patch := diarize.WindowPatch{
		WindowID: "w_0",
		TokenRelabels: []diarize.TokenRelabel{
			{TokenID: "t2", NewSpeaker: 0, Reason: diarize.ReasonLexicalContinuity},
		},
	}
	v := ValidatePatch(patch, tr, w, DefaultValidationConfig())
	if v.IsValid {
		t.Fatalf("expected invalid: t2 is outside the editable window")
	}
}

func TestValidatePatchRejectsEditBudgetOverrun(t *testing.T) {
	tr := buildTranscript()
	w := testWindow(tr)
	patch := diarize.WindowPatch{
		WindowID: "w_0",
		TokenRelabels: []diarize.TokenRelabel{
			{TokenID: "t0", NewSpeaker: 1, Reason: diarize.ReasonLexicalContinuity},
			{TokenID: "t1", NewSpeaker: 1, Reason: diarize.ReasonLexicalContinuity},
			{TokenID: "t2", NewSpeaker: 1, Reason: diarize.ReasonLexicalContinuity},
		},
	}
	v := ValidatePatch(patch, tr, w, DefaultValidationConfig())
	if v.IsValid {
		t.Fatalf("expected edit budget of ceil(4*3%%)=1 to reject 3 relabels")
	}
}

func TestValidatePatchAcceptsWithinBudget(t *testing.T) {
	tr := buildTranscript()
	w := testWindow(tr)
	patch := diarize.WindowPatch{
		WindowID: "w_0",
		TokenRelabels: []diarize.TokenRelabel{
			{TokenID: "t2", NewSpeaker: 0, Reason: diarize.ReasonBackchannelAttribution},
		},
	}
	v := ValidatePatch(patch, tr, w, DefaultValidationConfig())
	if !v.IsValid {
		t.Fatalf("expected valid patch, got errors: %v", v.Errors)
	}
}

func TestValidatePatchRejectsSelfReportedViolations(t *testing.T) {
	tr := buildTranscript()
	w := testWindow(tr)
	patch := diarize.WindowPatch{WindowID: "w_0", Violations: []string{"I changed a word"}}
	v := ValidatePatch(patch, tr, w, DefaultValidationConfig())
	if v.IsValid {
		t.Fatalf("expected invalid on self-reported violation")
	}
}

func TestExecuteStage1SkipsNonProblemWindows(t *testing.T) {
	tr := buildTranscript()
	ws := diarize.WindowSet{Windows: []diarize.Window{testWindow(tr)}}

	provider := &mock.Provider{CompleteResponse: &llm.CompletionResponse{}}
	client := NewClient(provider)

	res, err := ExecuteStage1(context.Background(), client, tr, ws, DefaultStage1Config())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.WindowsProcessed != 0 || res.WindowsSkipped != 1 {
		t.Fatalf("expected 0 processed / 1 skipped, got %+v", res)
	}
}

func TestExecuteStage1ReturnsValidPatch(t *testing.T) {
	tr := buildTranscript()
	w := testWindow(tr)
	ws := diarize.WindowSet{Windows: []diarize.Window{w}, ProblemWindowIndices: []int{0}}

	provider := &mock.Provider{CompleteResponse: &llm.CompletionResponse{
		ToolCalls: []llm.ToolCall{{
			Name:      "submit_patch",
			Arguments: `{"window_id":"w_0","token_relabels":[{"token_id":"t2","new_speaker":0,"reason":"backchannel_attribution"}]}`,
		}},
	}}
	client := NewClient(provider)

	res, err := ExecuteStage1(context.Background(), client, tr, ws, DefaultStage1Config())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Patches) != 1 {
		t.Fatalf("expected 1 patch, got %d (failures=%d)", len(res.Patches), res.ValidationFailures)
	}
}

func TestSendWithTool_ProviderErrorWrapsErrTransport(t *testing.T) {
	provider := &mock.Provider{CompleteErr: errors.New("boom")}
	client := NewClient(provider)

	_, _, err := client.SendWithTool(context.Background(), "system", "user")
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, ErrTransport) {
		t.Errorf("expected ErrTransport, got: %v", err)
	}
}

func TestSendWithTool_NoToolCallWrapsErrTransport(t *testing.T) {
	provider := &mock.Provider{CompleteResponse: &llm.CompletionResponse{}}
	client := NewClient(provider)

	_, _, err := client.SendWithTool(context.Background(), "system", "user")
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, ErrTransport) {
		t.Errorf("expected ErrTransport, got: %v", err)
	}
}

func TestProcessWindow_ExhaustedRetriesWrapsErrPatchInvalid(t *testing.T) {
	tr := buildTranscript()
	w := testWindow(tr)

	provider := &mock.Provider{CompleteResponse: &llm.CompletionResponse{
		ToolCalls: []llm.ToolCall{{
			Name:      "submit_patch",
			Arguments: `{"window_id":"w_0","violations":["self-reported problem"]}`,
		}},
	}}
	client := NewClient(provider)

	cfg := DefaultStage1Config()
	cfg.MaxRetries = 0
	_, _, err := processWindow(context.Background(), client, tr, w, cfg)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, ErrPatchInvalid) {
		t.Errorf("expected ErrPatchInvalid, got: %v", err)
	}
}

func contains(s, substr string) bool {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}
