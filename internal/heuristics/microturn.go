package heuristics

import "github.com/kieronlawson/diatribe/internal/diarize"

// CollapseMicroTurns relabels every turn shorter than maxDurationMs to the
// surrounding speaker, when the speaker immediately before and after the
// turn agree. When they disagree, the turn is left untouched and NeedsLLM
// is set — a human (or LM) must decide which of the two speakers is right.
func CollapseMicroTurns(t *diarize.Transcript, maxDurationMs int64) Result {
	var res Result

	type candidate struct {
		turnIdx int
	}
	var micro []candidate
	for i, turn := range t.Turns {
		if turn.DurationMs() < maxDurationMs {
			micro = append(micro, candidate{turnIdx: i})
		}
	}

	for _, c := range micro {
		turn := t.Turns[c.turnIdx]

		var beforeSpeaker, afterSpeaker int
		haveBefore, haveAfter := false, false
		if c.turnIdx > 0 {
			beforeSpeaker = t.Turns[c.turnIdx-1].Speaker
			haveBefore = true
		}
		if c.turnIdx+1 < len(t.Turns) {
			afterSpeaker = t.Turns[c.turnIdx+1].Speaker
			haveAfter = true
		}

		if !haveBefore || !haveAfter {
			continue
		}
		if beforeSpeaker != afterSpeaker {
			res.NeedsLLM = true
			continue
		}
		for _, idx := range turn.TokenIndices {
			if t.Tokens[idx].Speaker != beforeSpeaker {
				t.Tokens[idx].Speaker = beforeSpeaker
				res.ChangedIndices = append(res.ChangedIndices, idx)
			}
		}
	}

	if len(res.ChangedIndices) > 0 {
		t.RebuildTurns()
	}
	return res
}
