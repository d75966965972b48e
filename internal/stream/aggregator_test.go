// Copyright (c) 2025-2026 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jeranaias/orstudio/internal/openrouter"
)

// fakeClock advances a fixed step on every reading, so the throttle
// decision is deterministic regardless of scheduler timing.
type fakeClock struct {
	t    time.Time
	step time.Duration
}

func (c *fakeClock) now() time.Time {
	c.t = c.t.Add(c.step)
	return c.t
}

func newTestAggregator(step time.Duration) *Aggregator {
	clock := &fakeClock{t: time.Unix(0, 0), step: step}
	a := NewAggregator()
	a.now = clock.now
	return a
}

func collect(out <-chan Snapshot) []Snapshot {
	var snaps []Snapshot
	for s := range out {
		snaps = append(snaps, s)
	}
	return snaps
}

func feed(frags ...Fragment) <-chan Fragment {
	ch := make(chan Fragment, len(frags))
	for _, f := range frags {
		ch <- f
	}
	close(ch)
	return ch
}

func TestRunFinalSnapshotHasFullAnswer(t *testing.T) {
	a := newTestAggregator(time.Millisecond) // never reaches the interval
	out := a.Run(context.Background(), feed(
		Fragment{Content: "The "},
		Fragment{Content: "quick "},
		Fragment{Content: "fox"},
	))

	snaps := collect(out)
	if len(snaps) != 1 {
		t.Fatalf("expected only the final snapshot, got %d", len(snaps))
	}
	final := snaps[0]
	if !final.Final {
		t.Error("last snapshot not marked final")
	}
	if final.Answer != "The quick fox" {
		t.Errorf("answer = %q, want %q", final.Answer, "The quick fox")
	}
	if final.Err != nil {
		t.Errorf("unexpected error: %v", final.Err)
	}
}

func TestRunPreservesArrivalOrder(t *testing.T) {
	a := newTestAggregator(FlushInterval) // every fragment flushes
	frags := []Fragment{
		{Content: "a"}, {Content: "b"}, {Content: "c"}, {Content: "d"},
	}
	out := a.Run(context.Background(), feed(frags...))

	var prev string
	for _, s := range collect(out) {
		if !strings.HasPrefix(s.Answer, prev) {
			t.Fatalf("snapshot %q is not an extension of previous %q", s.Answer, prev)
		}
		prev = s.Answer
	}
	if prev != "abcd" {
		t.Errorf("final answer = %q, want %q", prev, "abcd")
	}
}

func TestRunThrottlesIntermediateSnapshots(t *testing.T) {
	// Clock advances 10ms per reading: only every fourth fragment
	// crosses the 40ms threshold.
	a := newTestAggregator(10 * time.Millisecond)

	var frags []Fragment
	for i := 0; i < 16; i++ {
		frags = append(frags, Fragment{Content: "x"})
	}
	out := a.Run(context.Background(), feed(frags...))

	snaps := collect(out)
	// 16 fragments at 10ms per reading crosses 40ms four times, plus the
	// final snapshot (which may coincide with the last flush).
	if len(snaps) > 6 {
		t.Errorf("got %d snapshots for 16 fragments, throttle not applied", len(snaps))
	}
	final := snaps[len(snaps)-1]
	if final.Answer != strings.Repeat("x", 16) {
		t.Errorf("final answer lost fragments: %q", final.Answer)
	}
}

func TestRunReasoningAccumulates(t *testing.T) {
	a := newTestAggregator(time.Millisecond)
	out := a.Run(context.Background(), feed(
		Fragment{Reasoning: "First, "},
		Fragment{Reasoning: "consider."},
		Fragment{Content: "Answer."},
	))

	snaps := collect(out)
	final := snaps[len(snaps)-1]
	if final.Reasoning != "First, consider." {
		t.Errorf("reasoning = %q, want %q", final.Reasoning, "First, consider.")
	}
	if final.Answer != "Answer." {
		t.Errorf("answer = %q, want %q", final.Answer, "Answer.")
	}
}

func TestRunReasoningSentinelWhenAbsent(t *testing.T) {
	a := newTestAggregator(time.Millisecond)
	out := a.Run(context.Background(), feed(
		Fragment{Content: "Plain answer."},
	))

	snaps := collect(out)
	final := snaps[len(snaps)-1]
	if final.Reasoning != ReasoningUnavailable {
		t.Errorf("reasoning = %q, want sentinel %q", final.Reasoning, ReasoningUnavailable)
	}
}

func TestRunErrorAppendsMarker(t *testing.T) {
	a := newTestAggregator(time.Millisecond)
	upstream := errors.New("rate limit exceeded")
	out := a.Run(context.Background(), feed(
		Fragment{Content: "Partial"},
		Fragment{Err: upstream},
	))

	snaps := collect(out)
	final := snaps[len(snaps)-1]
	want := "Partial\n\n" + ErrorMarker + "rate limit exceeded"
	if final.Answer != want {
		t.Errorf("answer = %q, want %q", final.Answer, want)
	}
	if !errors.Is(final.Err, upstream) {
		t.Errorf("final error = %v, want %v", final.Err, upstream)
	}
	if !final.Final {
		t.Error("error snapshot not marked final")
	}
}

func TestRunErrorWithNoPriorContent(t *testing.T) {
	a := newTestAggregator(time.Millisecond)
	out := a.Run(context.Background(), feed(
		Fragment{Err: errors.New("model not found")},
	))

	snaps := collect(out)
	final := snaps[len(snaps)-1]
	want := ErrorMarker + "model not found"
	if final.Answer != want {
		t.Errorf("answer = %q, want %q", final.Answer, want)
	}
}

func TestRunCancellationKeepsPartial(t *testing.T) {
	a := newTestAggregator(time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())

	frags := make(chan Fragment)
	out := a.Run(ctx, frags)

	frags <- Fragment{Content: "Partial "}
	frags <- Fragment{Content: "answer"}
	cancel()

	snaps := collect(out)
	final := snaps[len(snaps)-1]
	if !final.Final {
		t.Error("cancellation did not produce a final snapshot")
	}
	if final.Err != nil {
		t.Errorf("cancellation surfaced as error: %v", final.Err)
	}
	if final.Answer != "Partial answer" {
		t.Errorf("answer = %q, want %q", final.Answer, "Partial answer")
	}
}

func TestRunEmptyStream(t *testing.T) {
	a := newTestAggregator(time.Millisecond)
	out := a.Run(context.Background(), feed())

	snaps := collect(out)
	if len(snaps) != 1 {
		t.Fatalf("expected exactly one final snapshot, got %d", len(snaps))
	}
	if snaps[0].Answer != "" {
		t.Errorf("answer = %q, want empty", snaps[0].Answer)
	}
	if snaps[0].Reasoning != ReasoningUnavailable {
		t.Errorf("reasoning = %q, want sentinel", snaps[0].Reasoning)
	}
}

func TestRunCollectsImages(t *testing.T) {
	a := newTestAggregator(time.Millisecond)
	img := openrouter.ResponseImage{
		Type:     "image_url",
		ImageURL: openrouter.ImageURL{URL: "data:image/png;base64,aGk="},
	}
	out := a.Run(context.Background(), feed(
		Fragment{Content: "Here you go."},
		Fragment{Images: []openrouter.ResponseImage{img}},
	))

	snaps := collect(out)
	final := snaps[len(snaps)-1]
	if len(final.Images) != 1 || final.Images[0].ImageURL.URL != img.ImageURL.URL {
		t.Errorf("images = %+v, want one inline image", final.Images)
	}
}

func TestFragmentFromChunk(t *testing.T) {
	raw := `{"choices":[{"delta":{"content":"hello","reasoning":"hmm"}}]}`
	var chunk openrouter.StreamChunk
	if err := json.Unmarshal([]byte(raw), &chunk); err != nil {
		t.Fatalf("unmarshal chunk: %v", err)
	}

	frag := FragmentFromChunk(chunk)
	if frag.Content != "hello" || frag.Reasoning != "hmm" || frag.Err != nil {
		t.Errorf("fragment = %+v", frag)
	}

	errChunk := openrouter.StreamChunk{Error: errors.New("boom")}
	frag = FragmentFromChunk(errChunk)
	if frag.Err == nil || frag.Content != "" {
		t.Errorf("error fragment = %+v", frag)
	}
}
