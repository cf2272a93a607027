package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"sort"

	"github.com/kieronlawson/diatribe/internal/diarize"
	"github.com/kieronlawson/diatribe/internal/ingest"
	"github.com/kieronlawson/diatribe/internal/normalize"
)

func runAnalyze(args []string) int {
	fs := flag.NewFlagSet("analyze", flag.ContinueOnError)

	input := fs.String("input", "", "path to the Deepgram JSON transcript (required)")
	configPath := fs.String("config", "", "path to a YAML configuration file (optional)")
	verbose := fs.Bool("verbose", false, "enable debug logging")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *input == "" {
		fmt.Fprintln(os.Stderr, "diatribe analyze: -input is required")
		return 2
	}

	slog.SetDefault(newLogger(*verbose))

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "diatribe: %v\n", err)
		return 1
	}

	transcript, err := ingest.ParseDeepgramFile(*input)
	if err != nil {
		fmt.Fprintf(os.Stderr, "diatribe: %v\n", err)
		return 1
	}

	normResult := normalize.Normalize(&transcript, cfg.Pipeline.Window.ToDiarize(), cfg.Pipeline.ProblemZone.ToDiarize())

	printAnalysis(&transcript, normResult)
	return 0
}

// printAnalysis prints a stats breakdown for the transcript: overall
// counts, per-speaker word/turn/confidence stats (SUPPLEMENTED FEATURE),
// and the problem-zone/window summary normalize produced.
func printAnalysis(t *diarize.Transcript, norm normalize.Result) {
	fmt.Printf("tokens: %d\n", len(t.Tokens))
	fmt.Printf("turns:  %d\n", len(t.Turns))
	fmt.Printf("speakers: %d\n", len(t.Speakers()))
	fmt.Println()

	fmt.Println("per-speaker breakdown:")
	for _, speaker := range t.Speakers() {
		stats := computeSpeakerStats(t, speaker)
		fmt.Printf("  speaker %d: %d words, %d turns, avg turn %.1fs, avg confidence %.2f\n",
			speaker, stats.words, stats.turns, stats.avgTurnSeconds, stats.avgConfidence,
		)
	}
	fmt.Println()

	fmt.Printf("problem zones: %d\n", len(norm.Zones))
	counts := normalize.ZoneCounts(norm.Zones)
	types := make([]diarize.ProblemType, 0, len(counts))
	for pt := range counts {
		types = append(types, pt)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	for _, pt := range types {
		fmt.Printf("  %-17s %d\n", pt.String()+":", counts[pt])
	}
	fmt.Println()

	fmt.Printf("windows: %d total, %d flagged for LM review\n", norm.Windows.TotalWindows(), norm.Windows.ProblemWindowCount())
}

type speakerStats struct {
	words          int
	turns          int
	avgTurnSeconds float64
	avgConfidence  float64
}

// computeSpeakerStats aggregates word count, turn count, mean turn
// duration, and mean diarization confidence for one speaker.
func computeSpeakerStats(t *diarize.Transcript, speaker int) speakerStats {
	var stats speakerStats
	var totalTurnMs int64
	var confSum float64
	var confCount int

	for _, tok := range t.Tokens {
		if tok.Speaker != speaker {
			continue
		}
		stats.words++
		confSum += tok.SpeakerConf
		confCount++
	}

	for _, turn := range t.Turns {
		if turn.Speaker != speaker {
			continue
		}
		stats.turns++
		totalTurnMs += turn.DurationMs()
	}

	if stats.turns > 0 {
		stats.avgTurnSeconds = float64(totalTurnMs) / float64(stats.turns) / 1000.0
	}
	if confCount > 0 {
		stats.avgConfidence = confSum / float64(confCount)
	}
	return stats
}
