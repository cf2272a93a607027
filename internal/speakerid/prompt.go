package speakerid

import (
	"fmt"
	"strings"

	"github.com/kieronlawson/diatribe/internal/diarize"
)

// systemPrompt instructs the model on how to weigh evidence when matching
// numeric speaker IDs to named participants: self-introductions outweigh
// inferred context, and insufficient evidence should leave a speaker
// unidentified rather than guessed.
const systemPrompt = `You are an expert at identifying speakers in conversation transcripts.

Your task is to match numeric speaker IDs (Speaker 0, Speaker 1, etc.) to actual participant names based on evidence in the transcript.

## Guidelines

1. Look for self-introductions: "Hi, I'm Alice" or "This is Bob speaking"
2. Listen for name mentions by others: "Thanks Alice" or "Bob, can you explain?"
3. Consider context clues: job titles, roles, expertise demonstrated
4. Use participant hints, if provided, to match speaking style and content

## Important Rules

- Only identify a speaker if you have CLEAR evidence.
- Do NOT guess or assume based on stereotypes.
- Confidence scores should reflect actual certainty:
  - 0.9-1.0: direct self-introduction or multiple clear mentions
  - 0.7-0.9: strong contextual evidence (role mentioned, addressed by name)
  - 0.5-0.7: some evidence but uncertain
  - Below 0.5: insufficient evidence (leave unidentified)
- Provide specific quotes or observations as evidence.
- It is better to leave a speaker unidentified than to guess incorrectly.

## Output Format

Use the submit_speaker_identifications tool to provide your analysis.`

// SystemPrompt returns the speaker-identification system prompt.
func SystemPrompt() string {
	return systemPrompt
}

// buildUserPrompt renders the participant list, the transcript's speaker
// IDs, and every selected excerpt into the identification request.
func buildUserPrompt(participants []diarize.Participant, excerpts []speakerExcerpts, speakerIDs []int) string {
	var b strings.Builder

	b.WriteString("# Participants to Identify\n\n")
	for i, p := range participants {
		fmt.Fprintf(&b, "%d. **%s**", i+1, p.Name)
		if len(p.Hints) > 0 {
			fmt.Fprintf(&b, " - %s", strings.Join(p.Hints, "; "))
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")

	b.WriteString("# Speakers in Transcript\n\n")
	labels := make([]string, 0, len(speakerIDs))
	for _, id := range speakerIDs {
		labels = append(labels, fmt.Sprintf("Speaker %d", id))
	}
	fmt.Fprintf(&b, "The transcript contains %d speakers: %s\n\n", len(speakerIDs), strings.Join(labels, ", "))

	b.WriteString("# Transcript Excerpts by Speaker\n\n")
	for _, se := range excerpts {
		fmt.Fprintf(&b, "## Speaker %d\n\n", se.speakerID)
		for i, excerpt := range se.excerpts {
			fmt.Fprintf(&b, "**Excerpt %d:**\n%s\n\n", i+1, excerpt)
		}
	}

	b.WriteString("# Task\n\n")
	b.WriteString("Analyze the excerpts above and identify which participant corresponds to each speaker. ")
	b.WriteString("Use the submit_speaker_identifications tool to provide your identifications with confidence scores and evidence.\n")

	return b.String()
}
