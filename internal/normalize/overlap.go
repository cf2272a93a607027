// Package normalize implements stage 0: overlap marking, problem-zone
// detection, and window generation over a raw transcript.
package normalize

import "github.com/kieronlawson/diatribe/internal/diarize"

// overlapGapThresholdMs is the gap threshold at or below which two consecutive
// tokens from different speakers are considered overlapping (cross-talk).
// A negative gap (the next token starts before the previous one ends) is
// always an overlap regardless of this threshold.
const overlapGapThresholdMs = 100

// detectOverlapRegions marks IsOverlapRegion on every token that is within
// overlapGapThresholdMs of a speaker change, or that literally overlaps in
// time with the adjacent token from a different speaker. Both tokens on
// either side of the close boundary are marked.
func detectOverlapRegions(t *diarize.Transcript) {
	for i := 0; i < len(t.Tokens)-1; i++ {
		a := &t.Tokens[i]
		b := &t.Tokens[i+1]
		if a.Speaker == b.Speaker {
			continue
		}
		gap := b.StartMs - a.EndMs
		if gap <= overlapGapThresholdMs {
			a.IsOverlapRegion = true
			b.IsOverlapRegion = true
		}
	}
}
