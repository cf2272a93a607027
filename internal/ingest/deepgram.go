// Package ingest parses speech-to-text engine output into the pipeline's
// internal diarize.Transcript representation.
package ingest

import "encoding/json"

// deepgramResponse mirrors the subset of the Deepgram prerecorded API
// response the pipeline consumes: results.channels[0].alternatives[0].words.
type deepgramResponse struct {
	Results deepgramResults `json:"results"`
}

type deepgramResults struct {
	Channels []deepgramChannel `json:"channels"`
}

type deepgramChannel struct {
	Alternatives []deepgramAlternative `json:"alternatives"`
}

type deepgramAlternative struct {
	Words []deepgramWord `json:"words"`
}

// deepgramWord is one word-level entry in the Deepgram response.
type deepgramWord struct {
	Word              string   `json:"word"`
	Start             float64  `json:"start"`
	End               float64  `json:"end"`
	Confidence        float64  `json:"confidence"`
	Speaker           int      `json:"speaker"`
	SpeakerConfidence *float64 `json:"speaker_confidence,omitempty"`
	PunctuatedWord    string   `json:"punctuated_word,omitempty"`
}

// words extracts the first channel's first alternative's word list. Returns
// an empty slice (not an error) when no channel/alternative is present.
func (r deepgramResponse) words() []deepgramWord {
	if len(r.Results.Channels) == 0 {
		return nil
	}
	alts := r.Results.Channels[0].Alternatives
	if len(alts) == 0 {
		return nil
	}
	return alts[0].Words
}

// parseDeepgramJSON unmarshals raw Deepgram JSON into a deepgramResponse.
func parseDeepgramJSON(data []byte) (deepgramResponse, error) {
	var r deepgramResponse
	if err := json.Unmarshal(data, &r); err != nil {
		return deepgramResponse{}, err
	}
	return r, nil
}
