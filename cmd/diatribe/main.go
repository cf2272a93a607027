// Command diatribe corrects speaker-diarization errors in a machine
// transcript: deterministic heuristics first, then optional windowed LM
// review and reconciliation, then optional LM-assisted speaker
// identification against a participant roster.
package main

import (
	"fmt"
	"log/slog"
	"os"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 {
		printUsage()
		return 2
	}

	switch args[0] {
	case "process":
		return runProcess(args[1:])
	case "analyze":
		return runAnalyze(args[1:])
	case "-h", "--help", "help":
		printUsage()
		return 0
	default:
		fmt.Fprintf(os.Stderr, "diatribe: unknown command %q\n\n", args[0])
		printUsage()
		return 2
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `diatribe — speaker-diarization correction pipeline

Usage:
  diatribe process  --input <deepgram.json> [flags]
  diatribe analyze  --input <deepgram.json> [flags]

Run "diatribe process -h" or "diatribe analyze -h" for flag details.`)
}

// newLogger returns a slog.Logger at debug level when verbose is set and at
// info level otherwise, writing text-formatted records to stderr.
func newLogger(verbose bool) *slog.Logger {
	lvl := slog.LevelInfo
	if verbose {
		lvl = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
