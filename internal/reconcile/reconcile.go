// Package reconcile implements stage 2: global reconciliation of the
// (possibly conflicting) patches stage 1 produced across overlapping
// windows. Every token's final speaker is a proximity-weighted vote across
// every window that proposed a relabel for it, with high-confidence spans
// protected unless a quorum of windows disagrees.
package reconcile

import (
	"sort"

	"github.com/kieronlawson/diatribe/internal/diarize"
)

// Config controls stage 2's stability protections and constraints.
type Config struct {
	// MinTurnDurationMs is the post-reconciliation short-turn absorption
	// threshold.
	MinTurnDurationMs int64
	// MaxSwitchesPerSecond is a soft ceiling on the reconciled transcript's
	// turn-switch rate: exceeding it only sets Result.HighSwitchRate.
	MaxSwitchesPerSecond float64
	// StableSpanConfidence is the speaker-confidence level at or above which a
	// token is protected from being overridden by a minority of windows.
	StableSpanConfidence float64
	// MinWindowsForOverride is the minimum number of disagreeing windows
	// required to override a stable-span token.
	MinWindowsForOverride int
}

// DefaultConfig returns the pipeline's default stage 2 thresholds.
func DefaultConfig() Config {
	return Config{
		MinTurnDurationMs:     700,
		MaxSwitchesPerSecond:  2.0,
		StableSpanConfidence:  0.8,
		MinWindowsForOverride: 2,
	}
}

// Result summarizes stage 2's effect on the transcript.
type Result struct {
	TokensRelabeled   int
	ConflictsResolved int
	// HighSwitchRate is set when the reconciled transcript's turn-switch
	// rate exceeds cfg.MaxSwitchesPerSecond. This is never enforced —
	// only surfaced for the caller to log.
	HighSwitchRate    bool
	SwitchesPerSecond float64
}

type labelCandidate struct {
	speaker  int
	windowID string
	weight   float64
}

// Execute reconciles t in place against the patches stage 1 produced over
// windows, then applies the short-turn absorption constraint and rebuilds
// turns. t's tokens are mutated directly; callers should run this under
// exclusive access to the transcript.
func Execute(t *diarize.Transcript, windows diarize.WindowSet, patches []diarize.WindowPatch, cfg Config) Result {
	windowByID := make(map[string]diarize.Window, len(windows.Windows))
	for _, w := range windows.Windows {
		windowByID[w.WindowID] = w
	}

	candidates := map[string][]labelCandidate{}
	for _, patch := range patches {
		w, ok := windowByID[patch.WindowID]
		if !ok {
			continue
		}
		for _, relabel := range patch.TokenRelabels {
			timestamp := w.CenterMs()
			if tok, ok := t.GetToken(relabel.TokenID); ok {
				timestamp = tok.StartMs
			}
			weight := w.ProximityToCenter(timestamp)
			candidates[relabel.TokenID] = append(candidates[relabel.TokenID], labelCandidate{
				speaker:  relabel.NewSpeaker,
				windowID: patch.WindowID,
				weight:   weight,
			})
		}
	}

	var res Result
	for tokenID, cands := range candidates {
		tok, ok := t.GetToken(tokenID)
		if !ok {
			continue
		}

		if tok.SpeakerConf >= cfg.StableSpanConfidence {
			disagreeing := 0
			for _, c := range cands {
				if c.speaker != tok.Speaker {
					disagreeing++
				}
			}
			if disagreeing < cfg.MinWindowsForOverride {
				continue
			}
		}

		unique := map[int]bool{}
		for _, c := range cands {
			unique[c.speaker] = true
		}
		if len(unique) > 1 {
			res.ConflictsResolved++
		}

		final := weightedVote(cands)
		if final != tok.Speaker {
			tok.Speaker = final
			res.TokensRelabeled++
		}
	}

	if res.TokensRelabeled > 0 {
		t.RebuildTurns()
		applyConstraints(t, cfg)
	}

	res.SwitchesPerSecond, res.HighSwitchRate = switchRate(t, cfg)
	return res
}

// weightedVote sums each candidate speaker's weight and returns the
// highest-weighted speaker, breaking ties toward the lower speaker id
// (the original's max_by has no such tiebreak; this is a deliberate
// determinism fix).
func weightedVote(candidates []labelCandidate) int {
	weights := map[int]float64{}
	for _, c := range candidates {
		weights[c.speaker] += c.weight
	}

	speakers := make([]int, 0, len(weights))
	for sp := range weights {
		speakers = append(speakers, sp)
	}
	sort.Ints(speakers)

	best := speakers[0]
	bestWeight := weights[best]
	for _, sp := range speakers[1:] {
		if weights[sp] > bestWeight {
			best = sp
			bestWeight = weights[sp]
		}
	}
	return best
}

// applyConstraints absorbs turns shorter than cfg.MinTurnDurationMs into
// their neighbors when the previous and next turns (computed against the
// turn list as it stood before this constraint ran) agree on a speaker
// different from the short turn's own.
func applyConstraints(t *diarize.Transcript, cfg Config) {
	original := t.Turns

	type absorb struct {
		tokenIdx int
		speaker  int
	}
	var relabels []absorb

	for i := len(original) - 1; i >= 0; i-- {
		turn := original[i]
		if turn.DurationMs() >= cfg.MinTurnDurationMs {
			continue
		}
		if i == 0 || i+1 >= len(original) {
			continue
		}
		prevSpeaker := original[i-1].Speaker
		nextSpeaker := original[i+1].Speaker
		if prevSpeaker != nextSpeaker || turn.Speaker == prevSpeaker {
			continue
		}
		for _, idx := range turn.TokenIndices {
			relabels = append(relabels, absorb{tokenIdx: idx, speaker: prevSpeaker})
		}
	}

	for _, r := range relabels {
		if tok, ok := t.GetTokenByIndex(r.tokenIdx); ok {
			tok.Speaker = r.speaker
		}
	}

	t.RebuildTurns()
}

// switchRate reports the reconciled transcript's turn-switch-per-second
// rate and whether it exceeds cfg.MaxSwitchesPerSecond. This is a soft
// check: the caller may log it, but stage 2 never rejects or re-runs based
// on it.
func switchRate(t *diarize.Transcript, cfg Config) (float64, bool) {
	if len(t.Tokens) == 0 || len(t.Turns) < 2 {
		return 0, false
	}
	totalDurationS := float64(t.Tokens[len(t.Tokens)-1].EndMs-t.Tokens[0].StartMs) / 1000.0
	if totalDurationS <= 0 {
		return 0, false
	}
	rate := float64(len(t.Turns)-1) / totalDurationS
	return rate, rate > cfg.MaxSwitchesPerSecond
}
