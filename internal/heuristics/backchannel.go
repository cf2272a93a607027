package heuristics

import (
	"strings"

	"github.com/kieronlawson/diatribe/internal/diarize"
)

const (
	backchannelFloorContextMs    = 5_000
	backchannelListenerContextMs = 10_000
	backchannelLowConfThreshold  = 0.7
)

// ApplyBackchannelRules re-attributes single-word acknowledgements (the
// closed backchannelWords vocabulary) away from the floor holder to the
// listener, when the current attribution looks wrong: a backchannel
// ("yeah", "mhm", ...) is normally uttered by whoever is NOT holding the
// floor. Tokens where no alternative listener can be found in the
// surrounding context set NeedsLLM instead of guessing.
func ApplyBackchannelRules(t *diarize.Transcript, backchannelWords []string) Result {
	var res Result

	type candidate struct {
		index   int
		speaker int
	}
	var candidates []candidate
	for i := range t.Tokens {
		tok := &t.Tokens[i]
		if !isBackchannelWord(tok.Word, backchannelWords) {
			continue
		}
		if !tok.IsOverlapRegion && tok.SpeakerConf >= backchannelLowConfThreshold {
			continue
		}
		candidates = append(candidates, candidate{index: i, speaker: tok.Speaker})
	}

	for _, c := range candidates {
		holder, ok := findFloorHolder(t, c.index, backchannelFloorContextMs)
		if !ok || c.speaker != holder {
			continue
		}
		listener, ok := findListener(t, c.index, holder, backchannelListenerContextMs)
		if !ok {
			res.NeedsLLM = true
			continue
		}
		t.Tokens[c.index].Speaker = listener
		res.ChangedIndices = append(res.ChangedIndices, c.index)
	}

	if len(res.ChangedIndices) > 0 {
		t.RebuildTurns()
	}
	return res
}

func isBackchannelWord(word string, vocabulary []string) bool {
	lower := strings.ToLower(word)
	for _, w := range vocabulary {
		if lower == w {
			return true
		}
	}
	return false
}

// findFloorHolder returns the speaker with the most tokens (excluding
// tokenIdx itself) intersecting a ±contextMs window around tokenIdx, using
// "any overlap" interval semantics. Ties break toward the lower speaker id.
func findFloorHolder(t *diarize.Transcript, tokenIdx int, contextMs int64) (int, bool) {
	tok := t.Tokens[tokenIdx]
	startTime := tok.StartMs - contextMs
	if startTime < 0 {
		startTime = 0
	}
	endTime := tok.EndMs + contextMs

	counts := map[int]int{}
	for i := range t.Tokens {
		if i == tokenIdx {
			continue
		}
		o := t.Tokens[i]
		if o.StartMs < endTime && o.EndMs > startTime {
			counts[o.Speaker]++
		}
	}
	return argmaxSpeaker(counts)
}

// findListener returns any speaker other than floorHolder with a token
// intersecting a ±contextMs window around tokenIdx.
func findListener(t *diarize.Transcript, tokenIdx int, floorHolder int, contextMs int64) (int, bool) {
	tok := t.Tokens[tokenIdx]
	startTime := tok.StartMs - contextMs
	if startTime < 0 {
		startTime = 0
	}
	endTime := tok.EndMs + contextMs

	for i := range t.Tokens {
		o := t.Tokens[i]
		if o.Speaker == floorHolder {
			continue
		}
		if o.StartMs < endTime && o.EndMs > startTime {
			return o.Speaker, true
		}
	}
	return 0, false
}

// argmaxSpeaker returns the speaker with the highest count, breaking ties
// toward the lower speaker id by visiting speakers in ascending order and
// only replacing the current best on a strictly higher count.
func argmaxSpeaker(counts map[int]int) (int, bool) {
	if len(counts) == 0 {
		return 0, false
	}
	speakers := make([]int, 0, len(counts))
	for sp := range counts {
		speakers = append(speakers, sp)
	}
	for i := 1; i < len(speakers); i++ {
		for j := i; j > 0 && speakers[j-1] > speakers[j]; j-- {
			speakers[j-1], speakers[j] = speakers[j], speakers[j-1]
		}
	}
	best := speakers[0]
	bestCount := counts[best]
	for _, sp := range speakers[1:] {
		if counts[sp] > bestCount {
			best = sp
			bestCount = counts[sp]
		}
	}
	return best, true
}
