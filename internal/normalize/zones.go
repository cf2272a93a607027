package normalize

import (
	"sort"

	"github.com/kieronlawson/diatribe/internal/diarize"
)

// rawSpan is an unmerged single-detector problem span, before overlapping
// spans (possibly of different types) are coalesced into ProblemZones.
type rawSpan struct {
	startMs int64
	endMs   int64
	kind    diarize.ProblemType
}

// detectProblemZones runs all four problem-zone detectors over t and merges
// their results into a single chronological, non-overlapping ProblemZone
// list. Zones produced by different detectors that overlap in time are
// coalesced into one zone carrying every contributing ProblemType.
func detectProblemZones(t *diarize.Transcript, cfg diarize.ProblemZoneConfig) []diarize.ProblemZone {
	var spans []rawSpan
	spans = append(spans, detectSpeakerJitter(t, cfg)...)
	spans = append(spans, detectShortTurns(t, cfg)...)
	spans = append(spans, detectOverlapAdjacent(t, cfg)...)
	spans = append(spans, detectLowConfidence(t, cfg)...)
	return mergeSpans(spans)
}

// detectSpeakerJitter slides a 10s window across the transcript in 5s
// (50% overlap) steps and flags any window whose tokens cross speaker
// boundaries more than cfg.MaxSwitchesPer10s times.
func detectSpeakerJitter(t *diarize.Transcript, cfg diarize.ProblemZoneConfig) []rawSpan {
	if len(t.Tokens) == 0 {
		return nil
	}
	const jitterWindowMs = 10_000
	stride := int64(jitterWindowMs / 2)

	last := t.Tokens[len(t.Tokens)-1].EndMs
	var spans []rawSpan
	for winStart := t.Tokens[0].StartMs; winStart < last; winStart += stride {
		winEnd := winStart + jitterWindowMs
		switches := 0
		var prevSpeaker int
		havePrev := false
		for i := range t.Tokens {
			tok := &t.Tokens[i]
			if tok.EndMs <= winStart || tok.StartMs >= winEnd {
				continue
			}
			if havePrev && tok.Speaker != prevSpeaker {
				switches++
			}
			prevSpeaker = tok.Speaker
			havePrev = true
		}
		if switches > cfg.MaxSwitchesPer10s {
			spans = append(spans, rawSpan{startMs: winStart, endMs: winEnd, kind: diarize.ProblemSpeakerJitter})
		}
	}
	return spans
}

// detectShortTurns flags every turn shorter than cfg.MinTurnDurationMs.
func detectShortTurns(t *diarize.Transcript, cfg diarize.ProblemZoneConfig) []rawSpan {
	var spans []rawSpan
	for _, turn := range t.Turns {
		if turn.DurationMs() < cfg.MinTurnDurationMs {
			spans = append(spans, rawSpan{startMs: turn.StartMs, endMs: turn.EndMs, kind: diarize.ProblemShortTurn})
		}
	}
	return spans
}

// detectOverlapAdjacent expands a cfg.OverlapProximityMs collar around each
// token already marked IsOverlapRegion, flagging the padded span so nearby
// non-overlap tokens get swept into stage 1 review too. A collar with no
// non-overlap token in it contributes nothing new over the overlap region
// itself, so it is skipped.
func detectOverlapAdjacent(t *diarize.Transcript, cfg diarize.ProblemZoneConfig) []rawSpan {
	var spans []rawSpan
	for i := range t.Tokens {
		tok := &t.Tokens[i]
		if !tok.IsOverlapRegion {
			continue
		}
		collarStart := tok.StartMs - cfg.OverlapProximityMs
		collarEnd := tok.EndMs + cfg.OverlapProximityMs
		if !hasNonOverlapTokenInRange(t, collarStart, collarEnd) {
			continue
		}
		spans = append(spans, rawSpan{
			startMs: collarStart,
			endMs:   collarEnd,
			kind:    diarize.ProblemOverlapAdjacent,
		})
	}
	return spans
}

// hasNonOverlapTokenInRange reports whether any non-overlap token falls
// within [startMs, endMs).
func hasNonOverlapTokenInRange(t *diarize.Transcript, startMs, endMs int64) bool {
	for i := range t.Tokens {
		tok := &t.Tokens[i]
		if tok.IsOverlapRegion {
			continue
		}
		if tok.StartMs < endMs && tok.EndMs > startMs {
			return true
		}
	}
	return false
}

// detectLowConfidence flags maximal runs of consecutive tokens whose
// SpeakerConf is below cfg.MinSpeakerConfidence.
func detectLowConfidence(t *diarize.Transcript, cfg diarize.ProblemZoneConfig) []rawSpan {
	var spans []rawSpan
	runStart := -1
	flush := func(endIdx int) {
		if runStart < 0 {
			return
		}
		spans = append(spans, rawSpan{
			startMs: t.Tokens[runStart].StartMs,
			endMs:   t.Tokens[endIdx].EndMs,
			kind:    diarize.ProblemLowConfidence,
		})
		runStart = -1
	}
	for i := range t.Tokens {
		if t.Tokens[i].SpeakerConf < cfg.MinSpeakerConfidence {
			if runStart < 0 {
				runStart = i
			}
		} else {
			flush(i - 1)
		}
	}
	flush(len(t.Tokens) - 1)
	return spans
}

// mergeSpans sorts raw spans chronologically and coalesces any that overlap
// in time ("any overlap": a.start < b.end && a.end > b.start) into a single
// ProblemZone carrying the union of contributing types.
func mergeSpans(spans []rawSpan) []diarize.ProblemZone {
	if len(spans) == 0 {
		return nil
	}
	sort.Slice(spans, func(i, j int) bool {
		return spans[i].startMs < spans[j].startMs
	})

	var zones []diarize.ProblemZone
	cur := diarize.ProblemZone{StartMs: spans[0].startMs, EndMs: spans[0].endMs, Types: []diarize.ProblemType{spans[0].kind}}
	for _, s := range spans[1:] {
		if s.startMs < cur.EndMs && s.endMs > cur.StartMs {
			if s.endMs > cur.EndMs {
				cur.EndMs = s.endMs
			}
			if s.startMs < cur.StartMs {
				cur.StartMs = s.startMs
			}
			cur.Types = appendType(cur.Types, s.kind)
			continue
		}
		zones = append(zones, cur)
		cur = diarize.ProblemZone{StartMs: s.startMs, EndMs: s.endMs, Types: []diarize.ProblemType{s.kind}}
	}
	zones = append(zones, cur)
	return zones
}

func appendType(types []diarize.ProblemType, t diarize.ProblemType) []diarize.ProblemType {
	for _, existing := range types {
		if existing == t {
			return types
		}
	}
	return append(types, t)
}
