// Package render converts a reconciled diarize.Transcript into the
// pipeline's two output formats: a machine-readable JSON document for
// downstream consumption, and an optional human-readable text transcript.
package render

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/kieronlawson/diatribe/internal/diarize"
)

// ErrRender wraps a failure to write one of the pipeline's output
// documents — the destination path is unwritable, or encoding the
// transcript failed.
var ErrRender = errors.New("render: output error")

// Metadata summarizes how much the pipeline changed in one run.
type Metadata struct {
	TotalTokens      int   `json:"total_tokens"`
	TotalTurns       int   `json:"total_turns"`
	TokensRelabeled  int   `json:"tokens_relabeled"`
	DurationMs       int64 `json:"duration_ms"`
	WindowsProcessed int   `json:"windows_processed"`
}

// MachineToken is one token's final and original speaker attribution.
type MachineToken struct {
	TokenID           string  `json:"token_id"`
	Word              string  `json:"word"`
	StartMs           int64   `json:"start_ms"`
	EndMs             int64   `json:"end_ms"`
	Speaker           int     `json:"speaker"`
	OriginalSpeaker   int     `json:"original_speaker"`
	WasRelabeled      bool    `json:"was_relabeled"`
	SpeakerConfidence float64 `json:"speaker_confidence"`
}

// MachineTurn is one turn's speaker, span, and token count.
type MachineTurn struct {
	TurnID    string `json:"turn_id"`
	Speaker   int    `json:"speaker"`
	StartMs   int64  `json:"start_ms"`
	EndMs     int64  `json:"end_ms"`
	WordCount int    `json:"word_count"`
}

// MachineTranscript is the full machine-readable output document.
type MachineTranscript struct {
	Tokens   []MachineToken `json:"tokens"`
	Turns    []MachineTurn  `json:"turns"`
	Speakers []int          `json:"speakers"`
	Metadata Metadata       `json:"metadata"`

	// SpeakerNames carries the speaker-ID stage's accepted display names,
	// when that stage ran. Omitted from the output when nil.
	SpeakerNames map[int]string `json:"speaker_names,omitempty"`
	// SpeakerIdentifications carries every identification the LM proposed
	// (including below-threshold ones) for audit purposes.
	SpeakerIdentifications []diarize.SpeakerIdentification `json:"speaker_identifications,omitempty"`
	// LLMUsage totals token accounting across every LM call made during
	// this run (stage 1 and speaker-ID combined), when any were made.
	LLMUsage *diarize.Usage `json:"llm_usage,omitempty"`
}

// FromTranscript builds a MachineTranscript by zipping t's current state
// against originalSpeakers — the per-token speaker attribution snapshot
// taken immediately after ingest, before any stage mutated it.
func FromTranscript(t *diarize.Transcript, originalSpeakers []int, metadata Metadata) MachineTranscript {
	tokens := make([]MachineToken, len(t.Tokens))
	for i, tok := range t.Tokens {
		orig := tok.Speaker
		if i < len(originalSpeakers) {
			orig = originalSpeakers[i]
		}
		tokens[i] = MachineToken{
			TokenID:           tok.TokenID,
			Word:              tok.Word,
			StartMs:           tok.StartMs,
			EndMs:             tok.EndMs,
			Speaker:           tok.Speaker,
			OriginalSpeaker:   orig,
			WasRelabeled:      tok.Speaker != orig,
			SpeakerConfidence: tok.SpeakerConf,
		}
	}

	turns := make([]MachineTurn, len(t.Turns))
	for i, turn := range t.Turns {
		turns[i] = MachineTurn{
			TurnID:    turn.TurnID,
			Speaker:   turn.Speaker,
			StartMs:   turn.StartMs,
			EndMs:     turn.EndMs,
			WordCount: turn.TokenCount(),
		}
	}

	return MachineTranscript{
		Tokens:   tokens,
		Turns:    turns,
		Speakers: t.Speakers(),
		Metadata: metadata,
	}
}

// WriteJSON writes mt to path as pretty-printed JSON.
func (mt MachineTranscript) WriteJSON(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: create %s: %v", ErrRender, path, err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(mt); err != nil {
		return fmt.Errorf("%w: write json: %v", ErrRender, err)
	}
	return nil
}
