package heuristics

import (
	"testing"

	"github.com/kieronlawson/diatribe/internal/diarize"
)

func word(w string, start, end int64, speaker int) diarize.Token {
	return diarize.Token{TokenID: w, Word: w, StartMs: start, EndMs: end, Speaker: speaker, Confidence: 0.95, SpeakerConf: 0.95}
}

func TestCollapseMicroTurnsRelabelsSandwichedTurn(t *testing.T) {
	tr := diarize.Transcript{Tokens: []diarize.Token{
		word("hello", 0, 500, 0),
		word("there", 600, 1000, 0),
		word("yes", 1100, 1200, 1),
		word("how", 1300, 1600, 0),
		word("are", 1700, 2000, 0),
	}}
	tr.RebuildTurns()

	res := CollapseMicroTurns(&tr, 300)
	if res.TokensRelabeled() != 1 {
		t.Fatalf("expected 1 relabel, got %d", res.TokensRelabeled())
	}
	if tr.Tokens[2].Speaker != 0 {
		t.Fatalf("expected token 2 relabeled to speaker 0, got %d", tr.Tokens[2].Speaker)
	}
}

func TestCollapseMicroTurnsNeedsLLMOnDisagreement(t *testing.T) {
	tr := diarize.Transcript{Tokens: []diarize.Token{
		word("a", 0, 500, 0),
		word("b", 600, 700, 1),
		word("c", 800, 1300, 2),
	}}
	tr.RebuildTurns()

	res := CollapseMicroTurns(&tr, 300)
	if !res.NeedsLLM {
		t.Fatalf("expected NeedsLLM when surrounding speakers disagree")
	}
	if res.TokensRelabeled() != 0 {
		t.Fatalf("expected no relabels, got %d", res.TokensRelabeled())
	}
}

func TestFindFloorHolderPartialOverlapCounted(t *testing.T) {
	tr := diarize.Transcript{Tokens: []diarize.Token{
		word("before", 4400, 4600, 1),
		word("target", 5000, 5100, 0),
		word("after", 5500, 5700, 1),
	}}
	tr.RebuildTurns()

	holder, ok := findFloorHolder(&tr, 1, 500)
	if !ok || holder != 1 {
		t.Fatalf("expected floor holder 1 via partial overlap, got %d ok=%v", holder, ok)
	}
}

func TestApplyBackchannelRulesRelabelsToListener(t *testing.T) {
	tr := diarize.Transcript{Tokens: []diarize.Token{
		word("so", 0, 200, 0),
		word("i", 300, 400, 0),
		word("think", 500, 700, 0),
		word("yeah", 800, 900, 0),
		word("that", 6000, 6200, 1),
	}}
	tr.Tokens[3].IsOverlapRegion = true
	tr.RebuildTurns()

	res := ApplyBackchannelRules(&tr, DefaultConfig().BackchannelWords)
	if res.TokensRelabeled() != 1 {
		t.Fatalf("expected 1 relabel, got %d (needsLLM=%v)", res.TokensRelabeled(), res.NeedsLLM)
	}
	if tr.Tokens[3].Speaker != 1 {
		t.Fatalf("expected backchannel relabeled to listener speaker 1, got %d", tr.Tokens[3].Speaker)
	}
}

func TestFloorStateDecayAndBoost(t *testing.T) {
	fs := NewFloorState()
	fs.Update(0, 2000, 0, 0.2)
	if fs.GetScore(0) <= 0 {
		t.Fatalf("expected positive score after speaking")
	}
	fs.Update(1, 200, 2000, 0.2)
	holder, ok := fs.FloorHolder(0.3)
	if !ok || holder != 0 {
		t.Fatalf("expected speaker 0 to remain floor holder, got %d ok=%v", holder, ok)
	}
}

func TestApplyIsIdempotentOnCleanTranscript(t *testing.T) {
	tr := diarize.Transcript{Tokens: []diarize.Token{
		word("a", 0, 1000, 0),
		word("b", 1000, 2000, 0),
		word("c", 2000, 3000, 1),
		word("d", 3000, 4000, 1),
	}}
	tr.RebuildTurns()
	cfg := DefaultConfig()

	first := Apply(&tr, cfg)
	second := Apply(&tr, cfg)
	if second.TokensRelabeled() != 0 {
		t.Fatalf("expected fixed point after first pass, first changed %d, second changed %d", first.TokensRelabeled(), second.TokensRelabeled())
	}
}
