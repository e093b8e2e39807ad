// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ingest

import (
	"context"
	"errors"
)

// ErrQueueFull is returned by Enqueue when the job buffer is at
// capacity.
var ErrQueueFull = errors.New("ingestion queue full")

// Queue serializes ingestion work on a single consumer. Batches and
// uploads enqueued here run one at a time, which bounds concurrent load
// on the text-extraction service and the LLM endpoint.
type Queue struct {
	jobs chan func(context.Context)
}

// NewQueue creates a queue with the given buffer capacity.
func NewQueue(buffer int) *Queue {
	return &Queue{jobs: make(chan func(context.Context), buffer)}
}

// Enqueue adds a job without blocking. It fails with ErrQueueFull
// rather than stalling an HTTP handler.
func (q *Queue) Enqueue(job func(context.Context)) error {
	select {
	case q.jobs <- job:
		return nil
	default:
		return ErrQueueFull
	}
}

// Run consumes jobs until ctx is canceled. Each job runs to completion
// before the next starts.
func (q *Queue) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case job := <-q.jobs:
			job(ctx)
		}
	}
}
