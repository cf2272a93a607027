package diarize

// ReasonCode is a closed enum of justifications the LM may cite for a
// relabel or turn edit. Keeping this closed (rather than a free-text
// string) is a hallucination guard: the patch validator rejects any value
// outside this set before the relabel is ever applied.
type ReasonCode string

const (
	ReasonJitterShortTurn        ReasonCode = "jitter_short_turn"
	ReasonOverlapBoundary        ReasonCode = "overlap_boundary"
	ReasonLexicalContinuity      ReasonCode = "lexical_continuity"
	ReasonDialoguePairing        ReasonCode = "dialogue_pairing"
	ReasonBackchannelAttribution ReasonCode = "backchannel_attribution"
	ReasonDoNotChange            ReasonCode = "do_not_change"
)

// ValidReasonCodes lists every ReasonCode the validator accepts.
var ValidReasonCodes = []ReasonCode{
	ReasonJitterShortTurn,
	ReasonOverlapBoundary,
	ReasonLexicalContinuity,
	ReasonDialoguePairing,
	ReasonBackchannelAttribution,
	ReasonDoNotChange,
}

// IsValid reports whether r is one of ValidReasonCodes.
func (r ReasonCode) IsValid() bool {
	for _, v := range ValidReasonCodes {
		if v == r {
			return true
		}
	}
	return false
}

// TokenRelabel is a single proposed speaker reassignment for one token.
type TokenRelabel struct {
	TokenID    string     `json:"token_id"`
	NewSpeaker int        `json:"new_speaker"`
	Reason     ReasonCode `json:"reason"`
}

// TurnEditType enumerates the two advisory turn-structure edits the LM may
// propose. Neither is applied automatically: stage 2 derives turns solely
// from token-level speaker attributions (see RebuildTurns), so TurnEdits
// are carried through only as notes for a human reviewer.
type TurnEditType string

const (
	TurnEditMerge TurnEditType = "merge"
	TurnEditSplit TurnEditType = "split"
)

// TurnEdit is an advisory note describing a turn-structure change the LM
// believes would improve the transcript.
type TurnEdit struct {
	Type           TurnEditType `json:"type"`
	TurnID         string       `json:"turn_id"`
	ToTurnID       string       `json:"to_turn_id,omitempty"`
	SplitAtTokenID string       `json:"split_at_token_id,omitempty"`
	Reason         ReasonCode   `json:"reason"`
}

// PatchNotes carries free-form commentary the LM attaches to a patch.
type PatchNotes struct {
	UncertainTokens []string `json:"uncertain_tokens,omitempty"`
	Summary         string   `json:"summary,omitempty"`
}

// WindowPatch is the structured output the LM returns for one window via
// the submit_patch tool call.
type WindowPatch struct {
	WindowID      string         `json:"window_id"`
	TokenRelabels []TokenRelabel `json:"token_relabels,omitempty"`
	TurnEdits     []TurnEdit     `json:"turn_edits,omitempty"`
	Violations    []string       `json:"violations,omitempty"`
	Notes         PatchNotes     `json:"notes,omitempty"`
}

// HasViolations reports whether the LM itself flagged any violation.
func (p WindowPatch) HasViolations() bool {
	return len(p.Violations) > 0
}

// RelabelCount returns the number of proposed token relabels.
func (p WindowPatch) RelabelCount() int {
	return len(p.TokenRelabels)
}

// IsEmpty reports whether the patch proposes no changes at all.
func (p WindowPatch) IsEmpty() bool {
	return len(p.TokenRelabels) == 0 && len(p.TurnEdits) == 0
}

// PatchValidation is the result of running a WindowPatch through the
// validator.
type PatchValidation struct {
	IsValid        bool
	Errors         []string
	EditBudgetUsed float64
}

// ValidPatchValidation returns a passing PatchValidation result.
func ValidPatchValidation(editBudgetUsed float64) PatchValidation {
	return PatchValidation{IsValid: true, EditBudgetUsed: editBudgetUsed}
}

// InvalidPatchValidation returns a failing PatchValidation result carrying
// errs as the rejection reasons.
func InvalidPatchValidation(errs []string) PatchValidation {
	return PatchValidation{IsValid: false, Errors: errs}
}
