package heuristics

import "github.com/kieronlawson/diatribe/internal/diarize"

// Apply runs every deterministic heuristic over t in a fixed order —
// micro-turn collapse, backchannel rules, then floor-holding — each
// operating on the turn/speaker state left by the previous one. The
// combined result reports every distinct token index changed by any
// heuristic and whether any of them deferred a decision to the LM.
func Apply(t *diarize.Transcript, cfg Config) Result {
	var all []int

	micro := CollapseMicroTurns(t, cfg.MicroTurnMaxMs)
	all = append(all, micro.ChangedIndices...)

	backchannel := ApplyBackchannelRules(t, cfg.BackchannelWords)
	all = append(all, backchannel.ChangedIndices...)

	floor := ApplyFloorHolding(t, cfg)
	all = append(all, floor.ChangedIndices...)

	return Result{
		ChangedIndices: dedupSorted(all),
		NeedsLLM:       micro.NeedsLLM || backchannel.NeedsLLM || floor.NeedsLLM,
	}
}

// dedupSorted sorts idx ascending and removes duplicates in place.
func dedupSorted(idx []int) []int {
	if len(idx) == 0 {
		return idx
	}
	for i := 1; i < len(idx); i++ {
		for j := i; j > 0 && idx[j-1] > idx[j]; j-- {
			idx[j-1], idx[j] = idx[j], idx[j-1]
		}
	}
	out := idx[:1]
	for _, v := range idx[1:] {
		if v != out[len(out)-1] {
			out = append(out, v)
		}
	}
	return out
}
