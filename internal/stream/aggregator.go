// Copyright (c) 2025-2026 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package stream folds an incremental fragment sequence into rate-limited
// snapshots of UI-visible state.
//
// The aggregator consumes content and reasoning deltas in arrival order
// and emits a snapshot at most once per flush interval, plus a final
// snapshot when the source ends for any reason (completion, upstream
// failure, or cancellation). The final snapshot always reflects every
// fragment consumed so the last partial token is never lost.
package stream

import (
	"context"
	"strings"
	"time"

	"github.com/jeranaias/orstudio/internal/openrouter"
)

// FlushInterval is the minimum time between externally observable
// snapshots while the stream is live. The final snapshot ignores it.
const FlushInterval = 40 * time.Millisecond

// ReasoningUnavailable marks a reply whose model emitted no reasoning
// trace at all, distinguishing "no trace produced" from "trace empty".
const ReasoningUnavailable = "*This model does not expose reasoning traces.*"

// ErrorMarker prefixes an upstream failure surfaced as visible answer
// text. A failed turn shows something rather than crashing the session.
const ErrorMarker = "❌ An error occurred: "

// =============================================================================
// FRAGMENTS AND SNAPSHOTS
// =============================================================================

// Fragment is one incremental piece of a streamed response: zero or one
// content delta, zero or one reasoning delta, optionally inline image
// payloads, or a terminal error from the fragment source.
type Fragment struct {
	Content   string
	Reasoning string
	Images    []openrouter.ResponseImage
	Err       error
}

// FragmentFromChunk converts a wire chunk into a fragment.
func FragmentFromChunk(chunk openrouter.StreamChunk) Fragment {
	if chunk.Error != nil {
		return Fragment{Err: chunk.Error}
	}
	return Fragment{
		Content:   chunk.GetContent(),
		Reasoning: chunk.GetReasoning(),
		Images:    chunk.GetImages(),
	}
}

// Snapshot is one externally observable view of the accumulated stream
// state. Snapshots are immutable once emitted.
type Snapshot struct {
	Answer    string
	Reasoning string
	Images    []openrouter.ResponseImage

	// Final is true for the last snapshot of a run.
	Final bool

	// Err is the upstream error that ended the run, if any. Its message
	// is also reflected into Answer behind ErrorMarker.
	Err error
}

// =============================================================================
// AGGREGATOR
// =============================================================================

// Aggregator folds fragment sequences into snapshots. An Aggregator is
// reusable across turns; each Run is independent and not restartable.
type Aggregator struct {
	flushInterval time.Duration
	now           func() time.Time
}

// NewAggregator creates an aggregator with the default flush interval.
func NewAggregator() *Aggregator {
	return &Aggregator{
		flushInterval: FlushInterval,
		now:           time.Now,
	}
}

// WithFlushInterval overrides the snapshot rate limit.
func (a *Aggregator) WithFlushInterval(d time.Duration) *Aggregator {
	if d > 0 {
		a.flushInterval = d
	}
	return a
}

// Run consumes fragments until the channel closes, a fragment carries a
// terminal error, or ctx is cancelled, and emits snapshots on the
// returned channel. The returned channel is closed after the final
// snapshot; callers must drain it. Cancellation is not an error: the
// accumulated partial answer stands as the final value.
func (a *Aggregator) Run(ctx context.Context, fragments <-chan Fragment) <-chan Snapshot {
	out := make(chan Snapshot, 1)

	go func() {
		defer close(out)

		var answer, reasoning strings.Builder
		var images []openrouter.ResponseImage
		sawReasoning := false
		lastFlush := a.now()

		finish := func(err error) {
			out <- a.finalSnapshot(answer.String(), reasoning.String(), images, sawReasoning, err)
		}

		for {
			select {
			case <-ctx.Done():
				finish(nil)
				return

			case frag, ok := <-fragments:
				if !ok {
					finish(nil)
					return
				}
				if frag.Err != nil {
					finish(frag.Err)
					return
				}

				answer.WriteString(frag.Content)
				if frag.Reasoning != "" {
					sawReasoning = true
					reasoning.WriteString(frag.Reasoning)
				}
				images = append(images, frag.Images...)

				now := a.now()
				if now.Sub(lastFlush) < a.flushInterval {
					continue
				}
				lastFlush = now

				snap := Snapshot{
					Answer:    answer.String(),
					Reasoning: reasoningView(reasoning.String(), sawReasoning),
					Images:    images,
				}
				select {
				case out <- snap:
				case <-ctx.Done():
					finish(nil)
					return
				}
			}
		}
	}()

	return out
}

// finalSnapshot builds the terminal snapshot of a run.
func (a *Aggregator) finalSnapshot(answer, reasoning string, images []openrouter.ResponseImage, sawReasoning bool, err error) Snapshot {
	if err != nil {
		if answer != "" {
			answer += "\n\n"
		}
		answer += ErrorMarker + err.Error()
	}
	return Snapshot{
		Answer:    answer,
		Reasoning: reasoningView(reasoning, sawReasoning),
		Images:    images,
		Final:     true,
		Err:       err,
	}
}

// reasoningView substitutes the unavailable sentinel when the model
// never produced a reasoning delta.
func reasoningView(reasoning string, sawReasoning bool) string {
	if !sawReasoning {
		return ReasoningUnavailable
	}
	return reasoning
}
