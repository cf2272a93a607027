package normalize

import "github.com/kieronlawson/diatribe/internal/diarize"

// Result is stage 0's output: the detected problem zones and the window
// partition derived from them.
type Result struct {
	Zones   []diarize.ProblemZone
	Windows diarize.WindowSet
}

// Normalize marks overlap regions, detects problem zones, and partitions t
// into review windows. t's tokens are mutated in place (IsOverlapRegion
// only); speaker attributions and turn boundaries are left untouched.
func Normalize(t *diarize.Transcript, windowCfg diarize.WindowConfig, zoneCfg diarize.ProblemZoneConfig) Result {
	detectOverlapRegions(t)
	zones := detectProblemZones(t, zoneCfg)
	windows := buildWindows(t, windowCfg, zones)
	return Result{Zones: zones, Windows: windows}
}

// ZoneCounts tallies how many zones contain each ProblemType, for the
// analyze CLI subcommand's summary output. A zone with multiple Types
// contributes to each type's count.
func ZoneCounts(zones []diarize.ProblemZone) map[diarize.ProblemType]int {
	counts := make(map[diarize.ProblemType]int)
	for _, z := range zones {
		for _, k := range z.Types {
			counts[k]++
		}
	}
	return counts
}
