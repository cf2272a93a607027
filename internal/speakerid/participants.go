package speakerid

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/kieronlawson/diatribe/internal/diarize"
)

// ParseParticipantsString parses a comma-separated list of participant
// names (the --participants flag) into Participant records with no hints.
func ParseParticipantsString(input string) []diarize.Participant {
	var out []diarize.Participant
	for _, name := range strings.Split(input, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		out = append(out, diarize.NewParticipant(name))
	}
	return out
}

// participantFileEntry is the on-disk JSON shape for --participants-file:
// [{"name": "Alice Chen", "hints": ["Project manager"]}, {"name": "Bob"}].
type participantFileEntry struct {
	Name  string   `json:"name"`
	Hints []string `json:"hints,omitempty"`
}

// ParseParticipantsFile reads a JSON array of participant records from
// path.
func ParseParticipantsFile(path string) ([]diarize.Participant, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("speakerid: read %s: %w", path, err)
	}
	var entries []participantFileEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("speakerid: parse %s: %w", path, err)
	}
	out := make([]diarize.Participant, 0, len(entries))
	for _, e := range entries {
		out = append(out, diarize.NewParticipant(e.Name).WithHints(e.Hints))
	}
	return out, nil
}
