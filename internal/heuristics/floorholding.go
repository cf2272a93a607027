package heuristics

import (
	"math"

	"github.com/kieronlawson/diatribe/internal/diarize"
)

// floorStableConfidence is the speaker-confidence level at or above which a
// token is left untouched regardless of floor state: the STT engine is
// already sure, so the floor-holding model should not second-guess it.
const floorStableConfidence = 0.8

// FloorState tracks a short-term "who is holding the floor" score per
// speaker, decaying over time and boosted by speaking duration. It exists
// to penalize flipping attribution for a token or two when one speaker has
// clear floor presence.
type FloorState struct {
	Scores        map[int]float64
	CurrentTimeMs int64
}

// NewFloorState returns an empty FloorState.
func NewFloorState() *FloorState {
	return &FloorState{Scores: make(map[int]float64)}
}

// Update advances the floor state to timestampMs: every score decays by
// exp(-decayPerSecond * elapsedSeconds), then speaker's score is boosted by
// 0.5 points per second of durationMs, then all scores are renormalized
// into [0, 1] if any exceeds 1.0.
func (fs *FloorState) Update(speaker int, durationMs, timestampMs int64, decayPerSecond float64) {
	elapsed := timestampMs - fs.CurrentTimeMs
	if elapsed < 0 {
		elapsed = 0
	}
	elapsedSeconds := float64(elapsed) / 1000.0
	decay := math.Exp(-decayPerSecond * elapsedSeconds)

	for sp := range fs.Scores {
		fs.Scores[sp] *= decay
	}

	boost := (float64(durationMs) / 1000.0) * 0.5
	fs.Scores[speaker] += boost

	max := 0.0
	for _, score := range fs.Scores {
		if score > max {
			max = score
		}
	}
	if max > 1.0 {
		for sp := range fs.Scores {
			fs.Scores[sp] /= max
		}
	}

	fs.CurrentTimeMs = timestampMs
}

// FloorHolder returns the speaker with the highest score at or above
// minScore, breaking ties toward the lower speaker id.
func (fs *FloorState) FloorHolder(minScore float64) (int, bool) {
	eligible := map[int]int{}
	for sp, score := range fs.Scores {
		if score >= minScore {
			eligible[sp] = int(score * 1e9)
		}
	}
	if len(eligible) == 0 {
		return 0, false
	}
	return argmaxSpeaker(eligible)
}

// GetScore returns speaker's current floor score, 0 if never seen.
func (fs *FloorState) GetScore(speaker int) float64 {
	return fs.Scores[speaker]
}

// ApplyFloorHolding walks the transcript chronologically, maintaining a
// FloorState, and relabels rapid (1-2 token) floor flips to the floor
// holder when both of the token's immediate neighbors already agree with
// the floor holder. Ambiguous cases (no consensus from the neighbors) set
// NeedsLLM instead of guessing.
func ApplyFloorHolding(t *diarize.Transcript, cfg Config) Result {
	var res Result
	state := NewFloorState()

	for i := range t.Tokens {
		tok := &t.Tokens[i]
		state.Update(tok.Speaker, tok.DurationMs(), tok.StartMs, cfg.FloorDecayPerSecond)

		if tok.SpeakerConf >= floorStableConfidence {
			continue
		}
		if !isRapidFloorFlip(t, i, state, cfg.MinFloorScore) {
			continue
		}

		holder, ok := state.FloorHolder(cfg.MinFloorScore)
		if !ok || tok.Speaker == holder {
			continue
		}
		if shouldRelabelToFloorHolder(t, i, holder) {
			tok.Speaker = holder
			res.ChangedIndices = append(res.ChangedIndices, i)
		} else {
			res.NeedsLLM = true
		}
	}

	if len(res.ChangedIndices) > 0 {
		t.RebuildTurns()
	}
	return res
}

// isRapidFloorFlip reports whether tokenIdx's speaker differs from the
// floor holder and is part of an isolated run of at most 2 consecutive
// same-speaker tokens.
func isRapidFloorFlip(t *diarize.Transcript, tokenIdx int, state *FloorState, minFloorScore float64) bool {
	holder, ok := state.FloorHolder(minFloorScore)
	if !ok {
		return false
	}
	tok := t.Tokens[tokenIdx]
	if tok.Speaker == holder {
		return false
	}

	consecutive := 1
	for j := tokenIdx - 1; j >= 0; j-- {
		if t.Tokens[j].Speaker == tok.Speaker {
			consecutive++
		} else {
			break
		}
	}
	for j := tokenIdx + 1; j < len(t.Tokens); j++ {
		if t.Tokens[j].Speaker == tok.Speaker {
			consecutive++
		} else {
			break
		}
	}
	return consecutive <= 2
}

// shouldRelabelToFloorHolder reports whether both of tokenIdx's immediate
// neighbors are already attributed to floorHolder.
func shouldRelabelToFloorHolder(t *diarize.Transcript, tokenIdx int, floorHolder int) bool {
	if tokenIdx == 0 || tokenIdx+1 >= len(t.Tokens) {
		return false
	}
	return t.Tokens[tokenIdx-1].Speaker == floorHolder && t.Tokens[tokenIdx+1].Speaker == floorHolder
}
