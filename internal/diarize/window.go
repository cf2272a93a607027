package diarize

import "fmt"

// WindowConfig controls how the normalizer slices a transcript into
// overlapping review windows.
type WindowConfig struct {
	// WindowSizeMs is the duration of each window.
	WindowSizeMs int64
	// StrideMs is the distance between consecutive window start times.
	// WindowSizeMs - StrideMs is the overlap between adjacent windows.
	StrideMs int64
	// AnchorSizeMs is the size of the read-only anchor prefix/suffix
	// included in each window's prompt for continuity context.
	AnchorSizeMs int64
	// FilterProblemZones, when true, restricts stage 1 processing to
	// windows that intersect a detected problem zone.
	FilterProblemZones bool
}

// DefaultWindowConfig returns the pipeline's default windowing parameters.
func DefaultWindowConfig() WindowConfig {
	return WindowConfig{
		WindowSizeMs:       45_000,
		StrideMs:           15_000,
		AnchorSizeMs:       5_000,
		FilterProblemZones: true,
	}
}

// ProblemType enumerates the kinds of problem zone the normalizer detects.
type ProblemType int

const (
	ProblemSpeakerJitter ProblemType = iota
	ProblemShortTurn
	ProblemOverlapAdjacent
	ProblemLowConfidence
)

// String returns the problem type's canonical name.
func (p ProblemType) String() string {
	switch p {
	case ProblemSpeakerJitter:
		return "speaker_jitter"
	case ProblemShortTurn:
		return "short_turn"
	case ProblemOverlapAdjacent:
		return "overlap_adjacent"
	case ProblemLowConfidence:
		return "low_confidence"
	default:
		return "unknown"
	}
}

// ProblemZone marks a time span that the normalizer's heuristics flagged as
// likely to contain a diarization error.
type ProblemZone struct {
	StartMs int64
	EndMs   int64
	Types   []ProblemType
}

// ProblemZoneConfig controls the thresholds used by the four problem-zone
// detectors.
type ProblemZoneConfig struct {
	// MaxSwitchesPer10s is the speaker-jitter threshold: a 10s sliding window
	// (50% stride) with more switches than this is flagged.
	MaxSwitchesPer10s int
	// MinTurnDurationMs is the short-turn threshold.
	MinTurnDurationMs int64
	// OverlapProximityMs expands a collar around every overlap-marked token
	// to flag nearby non-overlap tokens too.
	OverlapProximityMs int64
	// MinSpeakerConfidence is the low-confidence run threshold.
	MinSpeakerConfidence float64
}

// DefaultProblemZoneConfig returns the pipeline's default problem-zone
// detection thresholds.
func DefaultProblemZoneConfig() ProblemZoneConfig {
	return ProblemZoneConfig{
		MaxSwitchesPer10s:    3,
		MinTurnDurationMs:    800,
		OverlapProximityMs:   2_000,
		MinSpeakerConfidence: 0.6,
	}
}

// Window is a time-bounded slice of the transcript offered to the LM for
// review in stage 1.
type Window struct {
	// WindowID is of the form "w_N", assigned in chronological order.
	WindowID string
	// StartMs and EndMs bound the editable region of the window.
	StartMs int64
	EndMs   int64
	// AnchorPrefixStartMs and AnchorSuffixEndMs bound the read-only context
	// spans [AnchorPrefixStartMs, StartMs) and [EndMs, AnchorSuffixEndMs).
	AnchorPrefixStartMs int64
	AnchorSuffixEndMs   int64
	// TokenIndices lists every transcript-level token index whose start
	// time falls inside [AnchorPrefixStartMs, AnchorSuffixEndMs).
	TokenIndices []int
	// EditableTokenIndices is the subset of TokenIndices inside
	// [StartMs, EndMs) — the tokens the LM is allowed to relabel.
	EditableTokenIndices []int
}

// DurationMs returns the editable region's length.
func (w Window) DurationMs() int64 {
	return w.EndMs - w.StartMs
}

// TokenCount returns the number of editable tokens in the window, excluding
// anchors. This is the base the edit budget and switch-rate cost are
// computed against.
func (w Window) TokenCount() int {
	return len(w.EditableTokenIndices)
}

// IsEditable reports whether tokenIdx is within the window's editable
// region (as opposed to an anchor).
func (w Window) IsEditable(tokenIdx int) bool {
	for _, idx := range w.EditableTokenIndices {
		if idx == tokenIdx {
			return true
		}
	}
	return false
}

// CenterMs returns the midpoint of the editable region.
func (w Window) CenterMs() int64 {
	return (w.StartMs + w.EndMs) / 2
}

// ProximityToCenter returns a linear-falloff weight in [0, 1] for a
// timestamp relative to the window's center: 1.0 at the center, 0.0 at or
// beyond the window edges. Used by stage 2 as the reconciliation vote
// weight for a candidate relabel proposed by this window.
func (w Window) ProximityToCenter(timestampMs int64) float64 {
	half := float64(w.EndMs-w.StartMs) / 2
	if half == 0 {
		return 1.0
	}
	center := float64(w.CenterMs())
	dist := timestampMs - int64(center)
	if dist < 0 {
		dist = -dist
	}
	weight := 1.0 - float64(dist)/half
	if weight < 0 {
		return 0
	}
	return weight
}

// WindowSet is the full list of windows generated for a transcript, plus
// the indices (into Windows) of those that intersect a detected problem
// zone — or every index, when problem-zone filtering is disabled.
type WindowSet struct {
	Windows              []Window
	ProblemWindowIndices []int
}

// ProblemWindows iterates over the windows selected for stage 1 processing.
func (ws WindowSet) ProblemWindows() []Window {
	out := make([]Window, 0, len(ws.ProblemWindowIndices))
	for _, idx := range ws.ProblemWindowIndices {
		out = append(out, ws.Windows[idx])
	}
	return out
}

// TotalWindows returns the total number of windows generated.
func (ws WindowSet) TotalWindows() int {
	return len(ws.Windows)
}

// ProblemWindowCount returns the number of windows selected for processing.
func (ws WindowSet) ProblemWindowCount() int {
	return len(ws.ProblemWindowIndices)
}

// windowID formats a window's identifier from its sequential index.
func windowID(i int) string {
	return fmt.Sprintf("w_%d", i)
}

// WindowIDFor is exported for use by the normalizer when constructing
// windows outside this package.
func WindowIDFor(i int) string {
	return windowID(i)
}
