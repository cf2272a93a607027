package render

import (
	"fmt"
	"os"
	"strings"

	"github.com/kieronlawson/diatribe/internal/diarize"
)

// humanWrapWidth is the approximate line width the human-readable
// transcript wraps at.
const humanWrapWidth = 80

// FormatHuman renders t as a human-readable transcript: one
// "[MM:SS.mmm] Speaker N:" header per turn, followed by its word-wrapped
// text and a blank line separator. Speaker names, when present in names,
// replace the numeric "Speaker N" label.
func FormatHuman(t *diarize.Transcript, names map[int]string) string {
	var b strings.Builder
	for _, turn := range t.Turns {
		label := fmt.Sprintf("Speaker %d", turn.Speaker)
		if name, ok := names[turn.Speaker]; ok && name != "" {
			label = name
		}
		fmt.Fprintf(&b, "[%s] %s:\n", formatTimestamp(turn.StartMs), label)

		words := make([]string, 0, len(turn.TokenIndices))
		for _, idx := range turn.TokenIndices {
			tok, ok := t.GetTokenByIndex(idx)
			if !ok {
				continue
			}
			words = append(words, tok.Word)
		}
		b.WriteString(wrapText(strings.Join(words, " "), humanWrapWidth))
		b.WriteString("\n\n")
	}
	return b.String()
}

// WriteHumanFile writes the human-readable rendering of t to path.
func WriteHumanFile(t *diarize.Transcript, names map[int]string, path string) error {
	if err := os.WriteFile(path, []byte(FormatHuman(t, names)), 0o644); err != nil {
		return fmt.Errorf("%w: write human file %s: %v", ErrRender, path, err)
	}
	return nil
}

// formatTimestamp renders ms as MM:SS.mmm. Minutes are not clamped to 60
// (a 61-minute mark renders as "61:01.500"), matching a plain running
// minutes:seconds.millis display rather than an hours:minutes:seconds one.
func formatTimestamp(ms int64) string {
	seconds := ms / 1000
	millis := ms % 1000
	minutes := seconds / 60
	secs := seconds % 60
	return fmt.Sprintf("%02d:%02d.%03d", minutes, secs, millis)
}

// wrapText greedily wraps text at word boundaries to approximately width
// characters per line.
func wrapText(text string, width int) string {
	var b strings.Builder
	lineLen := 0
	for _, word := range strings.Fields(text) {
		if lineLen+len(word)+1 > width && lineLen > 0 {
			b.WriteString("\n")
			lineLen = 0
		}
		if lineLen > 0 {
			b.WriteString(" ")
			lineLen++
		}
		b.WriteString(word)
		lineLen += len(word)
	}
	return b.String()
}
