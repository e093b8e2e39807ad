// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package synth combines selected research atoms into a streamed
// research proposal and persists the transcript as a report.
package synth

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"

	"github.com/Toyhom/PaperInsight/pkg/types"
)

// AnonymousUserID marks an unauthenticated caller. Anonymous calls are
// neither quota-checked nor persisted.
const AnonymousUserID = "00000000-0000-0000-0000-000000000000"

// Repository is the storage surface the engine needs. The SQLite store
// satisfies it.
type Repository interface {
	AtomsByIDs(ctx context.Context, ids []int64) ([]types.SourcedAtom, error)
	Quota(ctx context.Context, userID string) (types.UsageQuota, error)
	IncrementQuota(ctx context.Context, userID string) error
	InsertReport(ctx context.Context, report *types.SynthesisReport) error
}

// Streamer produces a streamed completion, invoking onFragment for each
// content fragment as it arrives, and returns the accumulated text.
type Streamer interface {
	Stream(ctx context.Context, system, user string, onFragment func(string) error) (string, error)
}

// StreamSink receives the synthesis output. Fragment is called once per
// content fragment in arrival order; Done is called exactly once after
// the stream completes, before any persistence. A sink error means the
// caller could not be reached and aborts the call.
type StreamSink interface {
	Fragment(content string) error
	Done() error
}

// ValidationError reports which atom kinds the selection lacks. The
// synthesis prompt requires at least one atom of every kind.
type ValidationError struct {
	Missing []types.AtomKind
}

func (e *ValidationError) Error() string {
	return "Missing required atoms. Need at least 1 Motivation, 1 Idea, and 1 Method."
}

// QuotaError reports an exhausted synthesis allowance.
type QuotaError struct {
	Count int
	Limit int
}

func (e *QuotaError) Error() string {
	return fmt.Sprintf("Daily limit reached (%d/%d). Please upgrade your plan.", e.Count, e.Limit)
}

// Engine runs one synthesis call end to end: validation, quota check,
// streaming completion, report persistence.
type Engine struct {
	Repo     Repository
	Streamer Streamer

	// Log receives operational warnings (skipped quota checks, failed
	// report persistence). Defaults to discard.
	Log io.Writer
}

// Synthesize streams a proposal for the given atoms. Fragments are
// delivered through sink in arrival order, and sink.Done marks a fully
// delivered stream. For a real (non-anonymous, non-empty) user the full
// transcript is then persisted and the quota counter incremented; the
// returned report is nil otherwise.
//
// Persistence runs only after Done succeeds, and its failures are
// logged rather than returned: once the caller has the complete stream,
// the call is a success.
//
// The quota check and the increment are not atomic. Two concurrent
// calls can both pass the check at count = limit-1; the limit is a soft
// limit and that is acceptable.
func (e *Engine) Synthesize(ctx context.Context, userID string, atomIDs []int64, sink StreamSink) (*types.SynthesisReport, error) {
	if len(atomIDs) == 0 {
		return nil, &ValidationError{Missing: types.AtomKinds}
	}

	atoms, err := e.Repo.AtomsByIDs(ctx, atomIDs)
	if err != nil {
		return nil, fmt.Errorf("fetching atoms: %w", err)
	}

	if missing := missingKinds(atoms); len(missing) > 0 {
		return nil, &ValidationError{Missing: missing}
	}

	real := userID != "" && userID != AnonymousUserID
	if real {
		// A quota read failure fails open: synthesis proceeds.
		quota, err := e.Repo.Quota(ctx, userID)
		if err != nil {
			fmt.Fprintf(e.log(), "quota check skipped for %s: %v\n", userID, err)
		} else if quota.Exceeded() {
			return nil, &QuotaError{Count: quota.Count, Limit: quota.Limit}
		}
	}

	full, err := e.Streamer.Stream(ctx, strings.TrimSpace(synthesisSystemPrompt), buildUserMessage(atoms), sink.Fragment)
	if err != nil {
		return nil, fmt.Errorf("streaming synthesis: %w", err)
	}

	// The stream could not be fully flushed to the caller; skip
	// persistence.
	if err := sink.Done(); err != nil {
		return nil, fmt.Errorf("finishing stream: %w", err)
	}

	if !real {
		return nil, nil
	}

	report := &types.SynthesisReport{
		ID:             uuid.NewString(),
		UserID:         userID,
		AtomIDs:        atomIDs,
		ResultMarkdown: full,
	}
	if err := e.Repo.InsertReport(ctx, report); err != nil {
		fmt.Fprintf(e.log(), "saving report for %s: %v\n", userID, err)
		return report, nil
	}
	if err := e.Repo.IncrementQuota(ctx, userID); err != nil {
		fmt.Fprintf(e.log(), "incrementing quota for %s: %v\n", userID, err)
	}
	return report, nil
}

func (e *Engine) log() io.Writer {
	if e.Log == nil {
		return io.Discard
	}
	return e.Log
}

// missingKinds returns the kinds absent from atoms, in canonical order.
func missingKinds(atoms []types.SourcedAtom) []types.AtomKind {
	present := make(map[types.AtomKind]bool, len(atoms))
	for _, a := range atoms {
		present[a.Kind] = true
	}
	var missing []types.AtomKind
	for _, kind := range types.AtomKinds {
		if !present[kind] {
			missing = append(missing, kind)
		}
	}
	return missing
}
