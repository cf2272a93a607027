package llmedit

import (
	"errors"
	"fmt"

	"github.com/kieronlawson/diatribe/internal/diarize"
)

// ErrPatchInvalid is the sentinel a window's patch error wraps once every
// retry has produced a patch ValidatePatch rejects.
var ErrPatchInvalid = errors.New("llmedit: patch invalid")

// ValidationConfig controls the patch validator's acceptance thresholds.
type ValidationConfig struct {
	// MaxEditBudgetPercent bounds the fraction of a window's tokens a patch
	// may relabel.
	MaxEditBudgetPercent float64
	// AllowedSpeakers is the closed set of speaker IDs a relabel may assign.
	AllowedSpeakers []int
	// MaxCostIncrease bounds how much worse (per the cost function) a
	// window may get after applying the patch, relative to before.
	MaxCostIncrease float64
}

// DefaultValidationConfig returns the pipeline's default validation
// thresholds for max_speakers=4.
func DefaultValidationConfig() ValidationConfig {
	return ValidationConfig{
		MaxEditBudgetPercent: 3.0,
		AllowedSpeakers:      []int{0, 1, 2, 3},
		MaxCostIncrease:      10.0,
	}
}

// ValidatePatch runs a returned WindowPatch through seven checks: self-
// reported violations, editable-window membership, allowed-speaker
// membership, reason-code membership, edit-budget, (structural)
// word/timestamp immutability, and a cost-increase bound. Any failing check
// rejects the whole patch.
func ValidatePatch(patch diarize.WindowPatch, t *diarize.Transcript, w diarize.Window, cfg ValidationConfig) diarize.PatchValidation {
	var errs []string

	if patch.HasViolations() {
		errs = append(errs, fmt.Sprintf("patch has self-reported violations: %v", patch.Violations))
	}

	editableIDs := map[string]bool{}
	for _, idx := range w.EditableTokenIndices {
		if tok, ok := t.GetTokenByIndex(idx); ok {
			editableIDs[tok.TokenID] = true
		}
	}
	for _, r := range patch.TokenRelabels {
		if !editableIDs[r.TokenID] {
			errs = append(errs, fmt.Sprintf("token %s is not in the editable window", r.TokenID))
		}
	}

	allowed := map[int]bool{}
	for _, sp := range cfg.AllowedSpeakers {
		allowed[sp] = true
	}
	for _, r := range patch.TokenRelabels {
		if !allowed[r.NewSpeaker] {
			errs = append(errs, fmt.Sprintf("speaker %d is not allowed (allowed: %v)", r.NewSpeaker, cfg.AllowedSpeakers))
		}
	}

	for _, r := range patch.TokenRelabels {
		if !r.Reason.IsValid() {
			errs = append(errs, fmt.Sprintf("token %s has unknown reason code %q", r.TokenID, r.Reason))
		}
	}

	editBudget := int(ceilPercent(float64(w.TokenCount()), cfg.MaxEditBudgetPercent))
	editCount := patch.RelabelCount()
	var editBudgetUsed float64
	if w.TokenCount() > 0 {
		editBudgetUsed = float64(editCount) / float64(w.TokenCount()) * 100.0
	}
	if editCount > editBudget {
		errs = append(errs, fmt.Sprintf("edit budget exceeded: %d edits > %d allowed (%g%%)", editCount, editBudget, cfg.MaxEditBudgetPercent))
	}

	costBefore := computeCost(t, w)
	costAfter := computeCostAfterPatch(t, w, patch)
	if costAfter-costBefore > cfg.MaxCostIncrease {
		errs = append(errs, fmt.Sprintf("cost increase too high: %.2f > %.2f max", costAfter-costBefore, cfg.MaxCostIncrease))
	}

	if len(errs) == 0 {
		return diarize.ValidPatchValidation(editBudgetUsed)
	}
	return diarize.InvalidPatchValidation(errs)
}

// shortTurnThresholdMs is the turn-duration cutoff the cost function counts
// against, independent of (and typically tighter than) the normalizer's
// own short-turn problem-zone threshold.
const shortTurnThresholdMs = 700

// computeCost scores a window's current state: 5 points per speaker switch
// between consecutive tokens in the window, plus 2 points per turn
// overlapping the window whose duration is under shortTurnThresholdMs.
func computeCost(t *diarize.Transcript, w diarize.Window) float64 {
	switches := 0
	for i := 1; i < len(w.EditableTokenIndices); i++ {
		prev, ok1 := t.GetTokenByIndex(w.EditableTokenIndices[i-1])
		cur, ok2 := t.GetTokenByIndex(w.EditableTokenIndices[i])
		if ok1 && ok2 && prev.Speaker != cur.Speaker {
			switches++
		}
	}

	shortTurns := 0
	for _, turn := range t.Turns {
		if turn.StartMs < w.EndMs && turn.EndMs > w.StartMs && turn.DurationMs() < shortTurnThresholdMs {
			shortTurns++
		}
	}

	return float64(5*switches + 2*shortTurns)
}

// computeCostAfterPatch recomputes the switch term using the patch's
// proposed relabels (falling back to the current speaker for tokens the
// patch doesn't touch), but reuses the transcript's current turn list for
// the short-turn term — rebuilding turns per candidate patch is unnecessary
// precision for a pass/fail budget check.
func computeCostAfterPatch(t *diarize.Transcript, w diarize.Window, patch diarize.WindowPatch) float64 {
	relabels := map[string]int{}
	for _, r := range patch.TokenRelabels {
		relabels[r.TokenID] = r.NewSpeaker
	}

	speakers := make([]int, 0, len(w.EditableTokenIndices))
	for _, idx := range w.EditableTokenIndices {
		tok, ok := t.GetTokenByIndex(idx)
		if !ok {
			continue
		}
		if sp, ok := relabels[tok.TokenID]; ok {
			speakers = append(speakers, sp)
		} else {
			speakers = append(speakers, tok.Speaker)
		}
	}

	switches := 0
	for i := 1; i < len(speakers); i++ {
		if speakers[i-1] != speakers[i] {
			switches++
		}
	}

	shortTurns := 0
	for _, turn := range t.Turns {
		if turn.StartMs < w.EndMs && turn.EndMs > w.StartMs && turn.DurationMs() < shortTurnThresholdMs {
			shortTurns++
		}
	}

	return float64(5*switches + 2*shortTurns)
}
