package diarize

// Participant is a known or suspected speaker name supplied by the caller
// (via --participants or --participants-file) to ground the speaker-ID
// stage.
type Participant struct {
	Name  string
	Hints []string
}

// NewParticipant returns a Participant with no hints.
func NewParticipant(name string) Participant {
	return Participant{Name: name}
}

// WithHints returns a copy of p with Hints set.
func (p Participant) WithHints(hints []string) Participant {
	p.Hints = hints
	return p
}

// SpeakerIdentification is the LM's proposed mapping from a numeric speaker
// ID to a participant name.
type SpeakerIdentification struct {
	SpeakerID    int      `json:"speaker_id"`
	IdentifiedAs string   `json:"identified_as"`
	Confidence   float64  `json:"confidence"`
	Evidence     []string `json:"evidence,omitempty"`
}

// SpeakerIdResult is the speaker-ID stage's output: every identification
// the LM proposed, plus the subset that cleared the confidence threshold as
// a ready-to-use display-name map.
type SpeakerIdResult struct {
	Identifications []SpeakerIdentification
	DisplayNames    map[int]string
	Usage           Usage
}

// FromIdentifications builds a SpeakerIdResult, keeping only
// identifications with Confidence >= threshold and a non-empty
// IdentifiedAs in DisplayNames.
func FromIdentifications(ids []SpeakerIdentification, threshold float64) SpeakerIdResult {
	names := make(map[int]string)
	for _, id := range ids {
		if id.Confidence >= threshold && id.IdentifiedAs != "" {
			names[id.SpeakerID] = id.IdentifiedAs
		}
	}
	return SpeakerIdResult{Identifications: ids, DisplayNames: names}
}

// Usage holds token accounting, mirrored here to avoid a dependency from
// this package onto pkg/llm. The pipeline copies pkg/llm.Usage values into
// this type.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Add accumulates other's counts into u.
func (u *Usage) Add(other Usage) {
	u.PromptTokens += other.PromptTokens
	u.CompletionTokens += other.CompletionTokens
	u.TotalTokens += other.TotalTokens
}

// SpeakerIdConfig controls the speaker-ID stage's excerpt-selection and
// acceptance thresholds.
type SpeakerIdConfig struct {
	// MaxExcerptsPerSpeaker bounds how many turns are sampled per speaker
	// when building LM context.
	MaxExcerptsPerSpeaker int
	// MaxContextChars bounds the total excerpt text length across all
	// speakers.
	MaxContextChars int
	// ConfidenceThreshold is the minimum LM-reported confidence for an
	// identification to be accepted into DisplayNames.
	ConfidenceThreshold float64
}

// DefaultSpeakerIdConfig returns the pipeline's default speaker-ID
// thresholds.
func DefaultSpeakerIdConfig() SpeakerIdConfig {
	return SpeakerIdConfig{
		MaxExcerptsPerSpeaker: 5,
		MaxContextChars:       8_000,
		ConfidenceThreshold:   0.7,
	}
}
