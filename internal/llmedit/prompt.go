// Package llmedit implements stage 1: windowed LM review of the problem
// windows stage 0 and the heuristics engine left unresolved. It builds a
// per-window prompt, submits it to an LM via a tool call, validates the
// returned patch, and retries on validation failure before giving up.
package llmedit

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/kieronlawson/diatribe/internal/diarize"
)

// systemPrompt is the LM's non-negotiable editing contract: the token
// schema is immutable except for speaker reassignment, edits are capped by
// an edit budget, and every change must cite one of the closed reason
// codes so an unrecognized justification is itself a validation failure.
const systemPrompt = `You are editing a diarized transcript. You MUST follow these rules:

1. You MUST NOT add, remove, or change any words.
2. You MUST NOT change timestamps.
3. You may only reassign speaker labels for existing tokens and adjust turn boundaries.
4. Output MUST be valid JSON matching the provided schema.
5. If uncertain, do not change anything.

CONSTRAINTS:
- You have an edit budget: you may relabel at most a few percent of tokens in this window. Prefer fewer changes.
- Use only the provided reason codes for changes.
- Tokens marked as "anchor" are READ-ONLY and must not be changed.
- Minimize speaker switches while maintaining conversational coherence.

REASON CODES (use only these):
- jitter_short_turn: Short turn caused by speaker jitter
- overlap_boundary: Token near overlap boundary
- lexical_continuity: Lexical continuity with surrounding tokens
- dialogue_pairing: Question/answer dialogue pairing
- backchannel_attribution: Backchannel attribution (e.g., "yeah", "uh-huh")
- do_not_change: Explicitly keeping unchanged

If you violate any rule, list it in the "violations" array.`

// SystemPrompt returns the stage 1 system prompt.
func SystemPrompt() string {
	return systemPrompt
}

// tokenDisplay is the JSON shape a token takes in the prompt. Anchor is
// omitted entirely for editable tokens, matching the original's
// skip-if-false serialization — it only appears (as true) on anchor rows.
type tokenDisplay struct {
	TokenID     string  `json:"token_id"`
	Word        string  `json:"word"`
	StartMs     int64   `json:"start_ms"`
	EndMs       int64   `json:"end_ms"`
	Speaker     int     `json:"speaker"`
	SpeakerConf float64 `json:"speaker_conf"`
	OverlapFlag bool    `json:"overlap_flag"`
	TurnID      string  `json:"turn_id"`
	Anchor      bool    `json:"anchor,omitempty"`
}

// BuildWindowPrompt renders the user-turn prompt for one window: header,
// per-speaker hints, read-only anchor context, the editable token block,
// and closing instructions.
func BuildWindowPrompt(t *diarize.Transcript, w diarize.Window, editBudgetPercent float64) string {
	var b strings.Builder

	editBudget := int(ceilPercent(float64(w.TokenCount()), editBudgetPercent))
	fmt.Fprintf(&b, "# Window: %s\n", w.WindowID)
	fmt.Fprintf(&b, "Time range: %dms - %dms\n", w.StartMs, w.EndMs)
	fmt.Fprintf(&b, "Edit budget: %d tokens (%g%% of %d)\n\n", editBudget, editBudgetPercent, w.TokenCount())

	stats := computeSpeakerStats(t, w)
	if len(stats) > 0 {
		b.WriteString("## Speaker Hints\n")
		for _, s := range stats {
			fmt.Fprintf(&b, "- Speaker %d: %d words, avg turn %dms, common words: %s\n",
				s.speaker, s.wordCount, s.avgTurnDurationMs, strings.Join(s.commonWords, ", "))
		}
		b.WriteString("\n")
	}

	anchorPrefix, anchorSuffix := anchorIndices(w)

	if len(anchorPrefix) > 0 {
		b.WriteString("## Anchor Prefix (READ-ONLY)\n```json\n")
		b.WriteString(formatTokens(t, anchorPrefix, true))
		b.WriteString("\n```\n\n")
	}

	b.WriteString("## Tokens (EDITABLE)\n```json\n")
	b.WriteString(formatTokens(t, w.EditableTokenIndices, false))
	b.WriteString("\n```\n\n")

	if len(anchorSuffix) > 0 {
		b.WriteString("## Anchor Suffix (READ-ONLY)\n```json\n")
		b.WriteString(formatTokens(t, anchorSuffix, true))
		b.WriteString("\n```\n\n")
	}

	b.WriteString("## Instructions\n")
	b.WriteString("Analyze the tokens and submit a patch using the submit_patch tool.\n")
	b.WriteString("Only relabel tokens where you are confident there is an error.\n")
	b.WriteString("Focus on:\n")
	b.WriteString("- Short turns that may be speaker jitter\n")
	b.WriteString("- Backchannels attributed to the wrong speaker\n")
	b.WriteString("- Overlap boundaries where speaker attribution may be incorrect\n")

	return b.String()
}

// anchorIndices splits w's non-editable TokenIndices into those before the
// editable region (prefix) and after it (suffix).
func anchorIndices(w diarize.Window) (prefix, suffix []int) {
	editable := map[int]bool{}
	for _, i := range w.EditableTokenIndices {
		editable[i] = true
	}
	for _, i := range w.TokenIndices {
		if editable[i] {
			continue
		}
		if i < firstOr(w.EditableTokenIndices, i) {
			prefix = append(prefix, i)
		} else {
			suffix = append(suffix, i)
		}
	}
	return prefix, suffix
}

func firstOr(idx []int, fallback int) int {
	if len(idx) == 0 {
		return fallback
	}
	return idx[0]
}

func formatTokens(t *diarize.Transcript, indices []int, isAnchor bool) string {
	displays := make([]tokenDisplay, 0, len(indices))
	for _, i := range indices {
		tok, ok := t.GetTokenByIndex(i)
		if !ok {
			continue
		}
		displays = append(displays, tokenDisplay{
			TokenID:     tok.TokenID,
			Word:        tok.Word,
			StartMs:     tok.StartMs,
			EndMs:       tok.EndMs,
			Speaker:     tok.Speaker,
			SpeakerConf: tok.SpeakerConf,
			OverlapFlag: tok.IsOverlapRegion,
			TurnID:      tok.TurnID,
			Anchor:      isAnchor,
		})
	}
	out, err := json.MarshalIndent(displays, "", "  ")
	if err != nil {
		return "[]"
	}
	return string(out)
}

type speakerStats struct {
	speaker           int
	wordCount         int
	avgTurnDurationMs int64
	commonWords       []string
}

// computeSpeakerStats tallies word counts, average overlapping-turn
// duration, and the top-5 most common words per speaker active in w's
// editable region, to give the LM lexical grounding without handing it the
// whole transcript.
func computeSpeakerStats(t *diarize.Transcript, w diarize.Window) []speakerStats {
	type builder struct {
		words         []string
		turnDurations []int64
	}
	bySpeaker := map[int]*builder{}
	order := []int{}

	for _, idx := range w.EditableTokenIndices {
		tok, ok := t.GetTokenByIndex(idx)
		if !ok {
			continue
		}
		bl, ok := bySpeaker[tok.Speaker]
		if !ok {
			bl = &builder{}
			bySpeaker[tok.Speaker] = bl
			order = append(order, tok.Speaker)
		}
		bl.words = append(bl.words, strings.ToLower(tok.Word))
	}

	for _, turn := range t.Turns {
		if turn.StartMs < w.EndMs && turn.EndMs > w.StartMs {
			if bl, ok := bySpeaker[turn.Speaker]; ok {
				bl.turnDurations = append(bl.turnDurations, turn.DurationMs())
			}
		}
	}

	sort.Ints(order)
	out := make([]speakerStats, 0, len(order))
	for _, sp := range order {
		bl := bySpeaker[sp]
		var avg int64
		if len(bl.turnDurations) > 0 {
			var sum int64
			for _, d := range bl.turnDurations {
				sum += d
			}
			avg = sum / int64(len(bl.turnDurations))
		}
		out = append(out, speakerStats{
			speaker:           sp,
			wordCount:         len(bl.words),
			avgTurnDurationMs: avg,
			commonWords:       topWords(bl.words, 5),
		})
	}
	return out
}

// topWords returns the n most frequent words in words, ties broken by
// first-seen order, descending by count.
func topWords(words []string, n int) []string {
	counts := map[string]int{}
	var order []string
	for _, w := range words {
		if _, ok := counts[w]; !ok {
			order = append(order, w)
		}
		counts[w]++
	}
	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})
	if len(order) > n {
		order = order[:n]
	}
	return order
}

func ceilPercent(total, percent float64) float64 {
	v := total * percent / 100.0
	if v == float64(int64(v)) {
		return v
	}
	return float64(int64(v) + 1)
}
