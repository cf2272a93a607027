package render

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kieronlawson/diatribe/internal/diarize"
)

func TestFormatTimestamp(t *testing.T) {
	cases := map[int64]string{
		0:         "00:00.000",
		1500:      "00:01.500",
		65_000:    "01:05.000",
		3_661_500: "61:01.500",
	}
	for ms, want := range cases {
		if got := formatTimestamp(ms); got != want {
			t.Errorf("formatTimestamp(%d) = %q, want %q", ms, got, want)
		}
	}
}

func TestWrapTextRespectsWidth(t *testing.T) {
	text := "This is a test of the text wrapping function that should wrap at twenty chars"
	wrapped := wrapText(text, 20)
	for _, line := range strings.Split(wrapped, "\n") {
		if len(line) > 25 {
			t.Errorf("line too long (%d chars): %q", len(line), line)
		}
	}
}

func TestFromTranscriptMarksRelabels(t *testing.T) {
	tr := diarize.Transcript{Tokens: []diarize.Token{
		{TokenID: "t0", Word: "hi", StartMs: 0, EndMs: 200, Speaker: 1, SpeakerConf: 0.9},
	}}
	tr.RebuildTurns()

	mt := FromTranscript(&tr, []int{0}, Metadata{TotalTokens: 1})
	if !mt.Tokens[0].WasRelabeled {
		t.Fatalf("expected WasRelabeled true (0 -> 1)")
	}
	if mt.Tokens[0].OriginalSpeaker != 0 || mt.Tokens[0].Speaker != 1 {
		t.Fatalf("unexpected speaker fields: %+v", mt.Tokens[0])
	}
}

func TestFormatHumanUsesDisplayName(t *testing.T) {
	tr := diarize.Transcript{Tokens: []diarize.Token{
		{TokenID: "t0", Word: "hello", StartMs: 0, EndMs: 500, Speaker: 0},
	}}
	tr.RebuildTurns()

	out := FormatHuman(&tr, map[int]string{0: "Alice"})
	if !strings.Contains(out, "Alice:") {
		t.Fatalf("expected speaker name substituted, got:\n%s", out)
	}
}

func TestFormatHumanFallsBackToNumericLabel(t *testing.T) {
	tr := diarize.Transcript{Tokens: []diarize.Token{
		{TokenID: "t0", Word: "hello", StartMs: 0, EndMs: 500, Speaker: 2},
	}}
	tr.RebuildTurns()

	out := FormatHuman(&tr, nil)
	if !strings.Contains(out, "Speaker 2:") {
		t.Fatalf("expected numeric fallback label, got:\n%s", out)
	}
}

func TestWriteJSON_UnwritableDirWrapsErrRender(t *testing.T) {
	mt := MachineTranscript{}
	err := mt.WriteJSON(filepath.Join("/nonexistent-dir", "out.json"))
	if err == nil {
		t.Fatal("expected error for unwritable path")
	}
	if !errors.Is(err, ErrRender) {
		t.Errorf("expected ErrRender, got: %v", err)
	}
}

func TestWriteHumanFile_UnwritableDirWrapsErrRender(t *testing.T) {
	tr := diarize.Transcript{}
	err := WriteHumanFile(&tr, nil, filepath.Join("/nonexistent-dir", "out.txt"))
	if err == nil {
		t.Fatal("expected error for unwritable path")
	}
	if !errors.Is(err, ErrRender) {
		t.Errorf("expected ErrRender, got: %v", err)
	}
}
