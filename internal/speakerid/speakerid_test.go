package speakerid

import (
	"context"
	"strings"
	"testing"

	"github.com/kieronlawson/diatribe/internal/diarize"
	"github.com/kieronlawson/diatribe/pkg/llm"
	"github.com/kieronlawson/diatribe/pkg/llm/mock"
)

func TestParseParticipantsStringTrimsAndFiltersEmpty(t *testing.T) {
	got := ParseParticipantsString("  Alice  ,  Bob  ,, Carol")
	if len(got) != 3 {
		t.Fatalf("expected 3 participants, got %d: %+v", len(got), got)
	}
	if got[0].Name != "Alice" || got[1].Name != "Bob" || got[2].Name != "Carol" {
		t.Fatalf("unexpected parsed names: %+v", got)
	}
}

func TestParseParticipantsStringEmpty(t *testing.T) {
	got := ParseParticipantsString("")
	if len(got) != 0 {
		t.Fatalf("expected 0 participants, got %d", len(got))
	}
}

func buildSpeakerTranscript() *diarize.Transcript {
	tr := &diarize.Transcript{Tokens: []diarize.Token{
		{TokenID: "t0", Word: "hi", PunctuatedWord: "Hi,", StartMs: 0, EndMs: 200, Speaker: 0},
		{TokenID: "t1", Word: "everyone", PunctuatedWord: "everyone.", StartMs: 200, EndMs: 600, Speaker: 0},
		{TokenID: "t2", Word: "thanks", PunctuatedWord: "Thanks", StartMs: 700, EndMs: 900, Speaker: 1},
		{TokenID: "t3", Word: "alice", PunctuatedWord: "Alice.", StartMs: 900, EndMs: 1200, Speaker: 1},
	}}
	tr.RebuildTurns()
	return tr
}

func TestBuildUserPromptIncludesParticipantsAndExcerpts(t *testing.T) {
	tr := buildSpeakerTranscript()
	cfg := diarize.DefaultSpeakerIdConfig()
	excerpts := buildSpeakerContext(tr, cfg)

	participants := []diarize.Participant{
		diarize.NewParticipant("Alice"),
		diarize.NewParticipant("Bob").WithHints([]string{"Technical lead"}),
	}
	prompt := buildUserPrompt(participants, excerpts, tr.Speakers())

	for _, want := range []string{"Alice", "Bob", "Technical lead", "Speaker 0", "Speaker 1"} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("expected prompt to contain %q, got:\n%s", want, prompt)
		}
	}
}

func TestExecuteFiltersByConfidenceThreshold(t *testing.T) {
	tr := buildSpeakerTranscript()
	provider := &mock.Provider{CompleteResponse: &llm.CompletionResponse{
		ToolCalls: []llm.ToolCall{{
			Name: "submit_speaker_identifications",
			Arguments: `{"identifications":[
				{"speaker_id":0,"identified_as":"Alice","confidence":0.95,"evidence":["Hi, everyone"]},
				{"speaker_id":1,"identified_as":"Maybe Bob","confidence":0.4,"evidence":["unclear"]}
			]}`,
		}},
	}}
	client := NewClient(provider)

	result, err := Execute(context.Background(), client, tr, nil, diarize.DefaultSpeakerIdConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.DisplayNames[0] != "Alice" {
		t.Fatalf("expected speaker 0 identified as Alice, got %q", result.DisplayNames[0])
	}
	if _, ok := result.DisplayNames[1]; ok {
		t.Fatalf("expected low-confidence speaker 1 filtered out")
	}
}
