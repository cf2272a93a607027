package ingest

import (
	"errors"
	"fmt"
	"os"

	"github.com/google/uuid"

	"github.com/kieronlawson/diatribe/internal/diarize"
)

// ErrIngest is the sentinel every ingest failure wraps — an unreadable
// source file or a source document that doesn't parse as the expected
// engine output.
var ErrIngest = errors.New("ingest: input error")

// ParseDeepgramFile reads path and tokenizes the Deepgram response it
// contains into a diarize.Transcript.
func ParseDeepgramFile(path string) (diarize.Transcript, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return diarize.Transcript{}, fmt.Errorf("%w: read %s: %v", ErrIngest, path, err)
	}
	return ParseDeepgramJSON(data)
}

// ParseDeepgramJSON tokenizes raw Deepgram JSON into a diarize.Transcript.
func ParseDeepgramJSON(data []byte) (diarize.Transcript, error) {
	resp, err := parseDeepgramJSON(data)
	if err != nil {
		return diarize.Transcript{}, fmt.Errorf("%w: parse deepgram response: %v", ErrIngest, err)
	}
	return tokenizeDeepgramResponse(resp), nil
}

// tokenizeDeepgramResponse converts the flat Deepgram word list into a
// Transcript with tokens and turns.
//
// Turn boundaries are assigned in a single forward pass: a turn closes the
// instant the speaker changes, using the *previous* token's end time as the
// boundary — not a fresh cut at the new token's start. This matches how a
// human transcriber marks turn changes: the prior speaker's turn is deemed
// to end when they stopped talking, not when the next speaker starts.
func tokenizeDeepgramResponse(resp deepgramResponse) diarize.Transcript {
	words := resp.words()
	if len(words) == 0 {
		return diarize.Transcript{}
	}

	tokens := make([]diarize.Token, 0, len(words))
	for i, w := range words {
		speakerConf := 0.5
		if w.SpeakerConfidence != nil {
			speakerConf = *w.SpeakerConfidence
		}
		tokens = append(tokens, diarize.Token{
			TokenID:        uuid.NewString(),
			OriginalIndex:  i,
			Word:           w.Word,
			PunctuatedWord: w.PunctuatedWord,
			StartMs:        int64(w.Start * 1000),
			EndMs:          int64(w.End * 1000),
			Confidence:     w.Confidence,
			Speaker:        w.Speaker,
			SpeakerConf:    speakerConf,
		})
	}

	t := diarize.Transcript{Tokens: tokens}
	t.RebuildTurns()
	return t
}
