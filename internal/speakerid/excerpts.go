// Package speakerid implements the speaker-identification stage: given an
// optional list of participant names/hints, it selects representative
// excerpts per numeric speaker, asks an LM to match speakers to
// participants, and filters the results by a confidence threshold into
// ready-to-use display names.
package speakerid

import (
	"sort"

	"github.com/kieronlawson/diatribe/internal/diarize"
)

// speakerExcerpts is one speaker's selected excerpt text, in chronological
// order.
type speakerExcerpts struct {
	speakerID int
	excerpts  []string
}

// buildSpeakerContext selects representative excerpts per speaker: the
// first min(2, len) turns (likely introductions), plus the longest
// remaining turns up to cfg.MaxExcerptsPerSpeaker, restored to chronological
// order. A running character budget (cfg.MaxContextChars) caps the total
// excerpt text across every speaker.
func buildSpeakerContext(t *diarize.Transcript, cfg diarize.SpeakerIdConfig) []speakerExcerpts {
	var result []speakerExcerpts
	totalChars := 0

	for _, speakerID := range t.Speakers() {
		var speakerTurns []diarize.Turn
		for _, turn := range t.Turns {
			if turn.Speaker == speakerID {
				speakerTurns = append(speakerTurns, turn)
			}
		}

		selected := selectExcerptIndices(speakerTurns, cfg.MaxExcerptsPerSpeaker)

		var excerpts []string
		for _, idx := range selected {
			if len(excerpts) >= cfg.MaxExcerptsPerSpeaker {
				break
			}
			turn := speakerTurns[idx]
			text := turnText(t, turn)
			if totalChars+len(text) > cfg.MaxContextChars {
				break
			}
			totalChars += len(text)
			excerpts = append(excerpts, text)
		}

		if len(excerpts) > 0 {
			result = append(result, speakerExcerpts{speakerID: speakerID, excerpts: excerpts})
		}
	}
	return result
}

// selectExcerptIndices picks the first min(2, len(turns)) turn indices
// (introductions), then the longest remaining turns up to maxExcerpts-2,
// and returns every selected index restored to chronological order.
func selectExcerptIndices(turns []diarize.Turn, maxExcerpts int) []int {
	var selected []int
	introCount := 2
	if introCount > len(turns) {
		introCount = len(turns)
	}
	for i := 0; i < introCount; i++ {
		selected = append(selected, i)
	}

	if len(turns) > 2 {
		type lengthed struct {
			idx    int
			length int
		}
		var byLength []lengthed
		for i := 2; i < len(turns); i++ {
			byLength = append(byLength, lengthed{idx: i, length: turns[i].TokenCount()})
		}
		sort.SliceStable(byLength, func(a, b int) bool {
			return byLength[a].length > byLength[b].length
		})

		remaining := maxExcerpts - 2
		if remaining < 0 {
			remaining = 0
		}
		if remaining > len(byLength) {
			remaining = len(byLength)
		}
		already := map[int]bool{}
		for _, idx := range selected {
			already[idx] = true
		}
		for _, l := range byLength[:remaining] {
			if !already[l.idx] {
				selected = append(selected, l.idx)
			}
		}
	}

	sort.Ints(selected)
	return selected
}

// turnText joins a turn's tokens' display words (punctuated text when
// available, falling back to the raw word) with spaces.
func turnText(t *diarize.Transcript, turn diarize.Turn) string {
	words := make([]string, 0, len(turn.TokenIndices))
	for _, idx := range turn.TokenIndices {
		tok, ok := t.GetTokenByIndex(idx)
		if !ok {
			continue
		}
		words = append(words, tok.DisplayWord())
	}
	out := ""
	for i, w := range words {
		if i > 0 {
			out += " "
		}
		out += w
	}
	return out
}
