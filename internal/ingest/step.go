// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ingest

import (
	"context"
	"fmt"
)

// Journal persists completed step results. The SQLite store implements
// this; tests use an in-memory map.
type Journal interface {
	StepResult(ctx context.Context, key string) (string, bool, error)
	RecordStep(ctx context.Context, key, result string) error
}

// StepRunner executes named, independently retryable units of work. A
// step that already completed for a given idempotency key must not be
// redone when the workflow is restarted; its recorded result is
// replayed instead.
type StepRunner interface {
	Step(ctx context.Context, name, idemKey string, work func(context.Context) (string, error)) (string, error)
}

// JournaledRunner is a StepRunner backed by a Journal. Results are
// recorded after the work succeeds, so a crash between work and record
// re-runs the step: steps are at-least-once, not exactly-once.
type JournaledRunner struct {
	Journal Journal
}

// Step runs work unless a journaled result exists for name+idemKey.
func (r *JournaledRunner) Step(ctx context.Context, name, idemKey string, work func(context.Context) (string, error)) (string, error) {
	key := name + "/" + idemKey

	if cached, ok, err := r.Journal.StepResult(ctx, key); err != nil {
		return "", fmt.Errorf("step %s: reading journal: %w", key, err)
	} else if ok {
		return cached, nil
	}

	result, err := work(ctx)
	if err != nil {
		return "", fmt.Errorf("step %s: %w", key, err)
	}

	if err := r.Journal.RecordStep(ctx, key, result); err != nil {
		return "", fmt.Errorf("step %s: recording journal: %w", key, err)
	}
	return result, nil
}
