package reconcile

import (
	"testing"

	"github.com/kieronlawson/diatribe/internal/diarize"
)

func tok(id string, start, end int64, speaker int, conf float64) diarize.Token {
	return diarize.Token{TokenID: id, Word: id, StartMs: start, EndMs: end, Speaker: speaker, SpeakerConf: conf}
}

func TestWeightedVoteBreaksTiesByLowerSpeakerID(t *testing.T) {
	candidates := []labelCandidate{
		{speaker: 1, weight: 0.5},
		{speaker: 0, weight: 0.5},
	}
	if got := weightedVote(candidates); got != 0 {
		t.Fatalf("expected tie broken toward speaker 0, got %d", got)
	}
}

func TestWeightedVoteHighestWeightWins(t *testing.T) {
	candidates := []labelCandidate{
		{speaker: 0, weight: 0.8},
		{speaker: 1, weight: 0.3},
		{speaker: 0, weight: 0.5},
	}
	if got := weightedVote(candidates); got != 0 {
		t.Fatalf("expected speaker 0 (total weight 1.3), got %d", got)
	}
}

func TestExecuteRelabelsFromPatch(t *testing.T) {
	tr := diarize.Transcript{Tokens: []diarize.Token{
		tok("t0", 0, 1000, 0, 0.5),
		tok("t1", 1000, 2000, 0, 0.5),
		tok("t2", 2000, 3000, 1, 0.5),
	}}
	tr.RebuildTurns()

	windows := diarize.WindowSet{Windows: []diarize.Window{
		{WindowID: "w_0", StartMs: 0, EndMs: 3000, TokenIndices: []int{0, 1, 2}, EditableTokenIndices: []int{0, 1, 2}},
	}}
	patches := []diarize.WindowPatch{
		{WindowID: "w_0", TokenRelabels: []diarize.TokenRelabel{
			{TokenID: "t1", NewSpeaker: 1, Reason: diarize.ReasonLexicalContinuity},
		}},
	}

	res := Execute(&tr, windows, patches, DefaultConfig())
	if res.TokensRelabeled != 1 {
		t.Fatalf("expected 1 relabel, got %d", res.TokensRelabeled)
	}
	if tr.Tokens[1].Speaker != 1 {
		t.Fatalf("expected token 1 relabeled to speaker 1, got %d", tr.Tokens[1].Speaker)
	}
}

func TestExecuteProtectsStableSpanWithoutQuorum(t *testing.T) {
	tr := diarize.Transcript{Tokens: []diarize.Token{
		tok("t0", 0, 1000, 0, 0.95),
		tok("t1", 1000, 2000, 0, 0.95),
	}}
	tr.RebuildTurns()

	windows := diarize.WindowSet{Windows: []diarize.Window{
		{WindowID: "w_0", StartMs: 0, EndMs: 2000, TokenIndices: []int{0, 1}, EditableTokenIndices: []int{0, 1}},
	}}
	patches := []diarize.WindowPatch{
		{WindowID: "w_0", TokenRelabels: []diarize.TokenRelabel{
			{TokenID: "t0", NewSpeaker: 1, Reason: diarize.ReasonLexicalContinuity},
		}},
	}

	res := Execute(&tr, windows, patches, DefaultConfig())
	if res.TokensRelabeled != 0 {
		t.Fatalf("expected stable span protected from a single disagreeing window, got %d relabels", res.TokensRelabeled)
	}
	if tr.Tokens[0].Speaker != 0 {
		t.Fatalf("expected token 0 unchanged, got speaker %d", tr.Tokens[0].Speaker)
	}
}

func TestApplyConstraintsAbsorbsShortTurn(t *testing.T) {
	tr := diarize.Transcript{Tokens: []diarize.Token{
		tok("t0", 0, 1000, 0, 0.9),
		tok("t1", 1000, 1200, 1, 0.9),
		tok("t2", 1200, 2200, 0, 0.9),
	}}
	tr.RebuildTurns()

	applyConstraints(&tr, DefaultConfig())
	if tr.Tokens[1].Speaker != 0 {
		t.Fatalf("expected short middle turn absorbed into speaker 0, got %d", tr.Tokens[1].Speaker)
	}
}
