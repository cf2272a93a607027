package normalize

import "github.com/kieronlawson/diatribe/internal/diarize"

// buildWindows slices t into overlapping review windows per cfg, then
// selects the subset that intersect a detected problem zone when
// cfg.FilterProblemZones is set (every window otherwise).
func buildWindows(t *diarize.Transcript, cfg diarize.WindowConfig, zones []diarize.ProblemZone) diarize.WindowSet {
	if len(t.Tokens) == 0 {
		return diarize.WindowSet{}
	}
	last := t.Tokens[len(t.Tokens)-1].EndMs
	first := t.Tokens[0].StartMs

	var windows []diarize.Window
	for startMs := first; startMs < last; startMs += cfg.StrideMs {
		endMs := startMs + cfg.WindowSizeMs
		anchorPrefixStart := startMs - cfg.AnchorSizeMs
		anchorSuffixEnd := endMs + cfg.AnchorSizeMs

		var tokenIndices, editable []int
		for i := range t.Tokens {
			tok := &t.Tokens[i]
			if tok.StartMs >= anchorPrefixStart && tok.StartMs < anchorSuffixEnd {
				tokenIndices = append(tokenIndices, i)
				if tok.StartMs >= startMs && tok.StartMs < endMs {
					editable = append(editable, i)
				}
			}
		}
		if len(tokenIndices) == 0 {
			continue
		}
		windows = append(windows, diarize.Window{
			WindowID:             diarize.WindowIDFor(len(windows)),
			StartMs:              startMs,
			EndMs:                endMs,
			AnchorPrefixStartMs:  anchorPrefixStart,
			AnchorSuffixEndMs:    anchorSuffixEnd,
			TokenIndices:         tokenIndices,
			EditableTokenIndices: editable,
		})
	}

	ws := diarize.WindowSet{Windows: windows}
	if !cfg.FilterProblemZones {
		for i := range windows {
			ws.ProblemWindowIndices = append(ws.ProblemWindowIndices, i)
		}
		return ws
	}
	for i, w := range windows {
		if windowIntersectsAnyZone(w, zones) {
			ws.ProblemWindowIndices = append(ws.ProblemWindowIndices, i)
		}
	}
	return ws
}

// windowIntersectsAnyZone reports whether w's editable region overlaps any
// zone, using "any overlap" interval-intersection semantics:
// zone.start < window.end && zone.end > window.start.
func windowIntersectsAnyZone(w diarize.Window, zones []diarize.ProblemZone) bool {
	for _, z := range zones {
		if z.StartMs < w.EndMs && z.EndMs > w.StartMs {
			return true
		}
	}
	return false
}
