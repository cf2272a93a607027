package pipeline

import (
	"context"
	"testing"

	"github.com/kieronlawson/diatribe/internal/diarize"
	"github.com/kieronlawson/diatribe/internal/llmedit"
	"github.com/kieronlawson/diatribe/pkg/llm/mock"
)

func buildTranscript() *diarize.Transcript {
	tr := &diarize.Transcript{Tokens: []diarize.Token{
		{TokenID: "t0", Word: "hello", StartMs: 0, EndMs: 300, Speaker: 0, SpeakerConf: 0.9},
		{TokenID: "t1", Word: "world", StartMs: 300, EndMs: 600, Speaker: 0, SpeakerConf: 0.9},
		{TokenID: "t2", Word: "yeah", StartMs: 600, EndMs: 800, Speaker: 1, SpeakerConf: 0.9},
		{TokenID: "t3", Word: "okay", StartMs: 800, EndMs: 1100, Speaker: 0, SpeakerConf: 0.9},
	}}
	tr.RebuildTurns()
	return tr
}

func TestRunWithoutLLMClientsOnlyRunsHeuristics(t *testing.T) {
	tr := buildTranscript()
	p := New()

	result, err := p.Run(context.Background(), tr)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Stage1Result.Patches != nil {
		t.Fatalf("expected no stage 1 patches without an LLM client")
	}
	if result.Machine.Metadata.TotalTokens != 4 {
		t.Fatalf("expected 4 tokens in metadata, got %d", result.Machine.Metadata.TotalTokens)
	}
	if len(result.Human) == 0 {
		t.Fatalf("expected non-empty human rendering")
	}
}

func TestRunHeuristicsOnlySkipsStage1EvenWithClient(t *testing.T) {
	tr := buildTranscript()
	p := New(WithHeuristicsOnly(true), WithLLMEditClient(llmedit.NewClient(&mock.Provider{})))

	result, err := p.Run(context.Background(), tr)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Stage1Result.WindowsProcessed != 0 {
		t.Fatalf("expected stage 1 to be skipped in heuristics-only mode")
	}
}
