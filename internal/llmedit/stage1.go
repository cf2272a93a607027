package llmedit

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/kieronlawson/diatribe/internal/diarize"
)

// Stage1Config controls stage 1's edit budget, validation thresholds, and
// retry policy.
type Stage1Config struct {
	EditBudgetPercent float64
	Validation        ValidationConfig
	MaxRetries        int
	// Concurrency bounds how many windows are reviewed by the LM at once.
	// Zero means unbounded (one goroutine per problem window).
	Concurrency int
}

// DefaultStage1Config returns the pipeline's default stage 1 parameters.
func DefaultStage1Config() Stage1Config {
	return Stage1Config{
		EditBudgetPercent: 3.0,
		Validation:        DefaultValidationConfig(),
		MaxRetries:        2,
		Concurrency:       8,
	}
}

// Stage1Result summarizes everything stage 1 produced across every problem
// window.
type Stage1Result struct {
	Patches            []diarize.WindowPatch
	WindowsProcessed   int
	WindowsSkipped     int
	ValidationFailures int
	Usage              diarize.Usage
}

// ExecuteStage1 reviews every problem window concurrently (bounded by
// cfg.Concurrency) via the LM client, validating each returned patch and
// retrying up to cfg.MaxRetries times on failure. The transcript is never
// mutated here — only immutable patches are returned; reconciliation (and
// any actual relabeling) happens later, under stage 2's exclusive access.
func ExecuteStage1(ctx context.Context, client *Client, t *diarize.Transcript, windows diarize.WindowSet, cfg Stage1Config) (Stage1Result, error) {
	problemWindows := windows.ProblemWindows()
	result := Stage1Result{
		WindowsProcessed: len(problemWindows),
		WindowsSkipped:   windows.TotalWindows() - len(problemWindows),
	}
	if len(problemWindows) == 0 {
		return result, nil
	}

	patches := make([]*diarize.WindowPatch, len(problemWindows))
	failed := make([]bool, len(problemWindows))

	var usageMu sync.Mutex
	var totalUsage diarize.Usage

	g, gctx := errgroup.WithContext(ctx)
	if cfg.Concurrency > 0 {
		g.SetLimit(cfg.Concurrency)
	}

	for i, w := range problemWindows {
		i, w := i, w
		g.Go(func() error {
			patch, usage, err := processWindow(gctx, client, t, w, cfg)
			usageMu.Lock()
			totalUsage.Add(usage)
			usageMu.Unlock()
			if err != nil {
				failed[i] = true
				return nil
			}
			patches[i] = &patch
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return result, fmt.Errorf("llmedit: stage 1: %w", err)
	}

	result.Usage = totalUsage
	for i, p := range patches {
		if failed[i] {
			result.ValidationFailures++
			continue
		}
		if p != nil && !p.IsEmpty() {
			result.Patches = append(result.Patches, *p)
		}
	}
	return result, nil
}

// processWindow builds the prompt once, then retries the LM call up to
// cfg.MaxRetries times, returning the first patch that passes validation
// and the summed token usage across every attempt made for this window.
func processWindow(ctx context.Context, client *Client, t *diarize.Transcript, w diarize.Window, cfg Stage1Config) (diarize.WindowPatch, diarize.Usage, error) {
	prompt := BuildWindowPrompt(t, w, cfg.EditBudgetPercent)

	var lastErr error
	var total diarize.Usage
	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		patch, usage, err := client.SendWithTool(ctx, systemPrompt, prompt)
		total.Add(diarize.Usage{PromptTokens: usage.PromptTokens, CompletionTokens: usage.CompletionTokens, TotalTokens: usage.TotalTokens})
		if err != nil {
			lastErr = err
			if client.Logger != nil {
				client.Logger.LogPatchCall(w.WindowID, attempt, patch, usage, err)
			}
			continue
		}

		validation := ValidatePatch(patch, t, w, cfg.Validation)
		if client.Logger != nil {
			client.Logger.LogPatchCall(w.WindowID, attempt, patch, usage, nil)
		}
		if validation.IsValid {
			return patch, total, nil
		}
		lastErr = fmt.Errorf("%w: window %s: %v", ErrPatchInvalid, w.WindowID, validation.Errors)
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("window %s: unknown error", w.WindowID)
	}
	return diarize.WindowPatch{}, total, lastErr
}
