// Copyright (c) 2025-2026 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package openrouter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// =============================================================================
// SSE READER
// =============================================================================

func TestSSEReaderReadEvent(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{
			"single event",
			"data: hello\n\n",
			[]string{"hello"},
		},
		{
			"two events",
			"data: one\n\ndata: two\n\n",
			[]string{"one", "two"},
		},
		{
			"multi-line data joined",
			"data: line1\ndata: line2\n\n",
			[]string{"line1\nline2"},
		},
		{
			"crlf line endings",
			"data: payload\r\n\r\n",
			[]string{"payload"},
		},
		{
			"comments and other fields skipped",
			": keepalive\nevent: message\nid: 7\ndata: real\n\n",
			[]string{"real"},
		},
		{
			"eof flushes pending data",
			"data: tail",
			[]string{"tail"},
		},
		{
			"leading blank lines ignored",
			"\n\ndata: after\n\n",
			[]string{"after"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewSSEReader(strings.NewReader(tt.input))
			for i, want := range tt.want {
				data, err := r.ReadEvent()
				if err != nil {
					t.Fatalf("event %d: %v", i, err)
				}
				if string(data) != want {
					t.Errorf("event %d = %q, want %q", i, data, want)
				}
			}
			if _, err := r.ReadEvent(); err != io.EOF {
				t.Errorf("after last event: err = %v, want io.EOF", err)
			}
		})
	}
}

func TestSSEReaderEventTooLarge(t *testing.T) {
	big := strings.Repeat("x", MaxEventSize+1)
	r := NewSSEReader(strings.NewReader("data: " + big + "\n\n"))

	_, err := r.ReadEvent()
	if err == nil || !strings.Contains(err.Error(), "too large") {
		t.Errorf("error = %v", err)
	}
}

// =============================================================================
// STREAMING
// =============================================================================

// sseServer serves a fixed SSE body for one streaming request.
func sseServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req ChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		if !req.Stream {
			t.Error("streaming request did not set stream: true")
		}
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, body)
	}))
}

func deltaEvent(content string) string {
	return fmt.Sprintf(`data: {"choices": [{"delta": {"content": %q}}]}`+"\n\n", content)
}

func TestChatStreamDeliversChunks(t *testing.T) {
	server := sseServer(t,
		deltaEvent("Hel")+
			deltaEvent("lo")+
			"data: [DONE]\n\n")
	defer server.Close()

	var got []string
	err := newTestClient(server.URL).ChatStream(context.Background(), chatBody(), func(chunk StreamChunk) {
		got = append(got, chunk.GetContent())
	})
	if err != nil {
		t.Fatalf("ChatStream() error: %v", err)
	}
	if strings.Join(got, "") != "Hello" {
		t.Errorf("chunks = %q", got)
	}
}

func TestChatStreamSkipsMalformedChunks(t *testing.T) {
	server := sseServer(t,
		deltaEvent("ok")+
			"data: {not json at all\n\n"+
			deltaEvent("fine")+
			"data: [DONE]\n\n")
	defer server.Close()

	var got []string
	err := newTestClient(server.URL).ChatStream(context.Background(), chatBody(), func(chunk StreamChunk) {
		got = append(got, chunk.GetContent())
	})
	if err != nil {
		t.Fatalf("ChatStream() error: %v", err)
	}
	if strings.Join(got, "") != "okfine" {
		t.Errorf("chunks = %q", got)
	}
}

func TestChatStreamStopsAtEOFWithoutDone(t *testing.T) {
	// Upstream hanging up without [DONE] ends the stream cleanly.
	server := sseServer(t, deltaEvent("partial"))
	defer server.Close()

	var got []string
	err := newTestClient(server.URL).ChatStream(context.Background(), chatBody(), func(chunk StreamChunk) {
		got = append(got, chunk.GetContent())
	})
	if err != nil {
		t.Fatalf("ChatStream() error: %v", err)
	}
	if len(got) != 1 || got[0] != "partial" {
		t.Errorf("chunks = %q", got)
	}
}

func TestChatStreamReasoningAndImages(t *testing.T) {
	server := sseServer(t,
		`data: {"choices": [{"delta": {"reasoning": "thinking..."}}]}`+"\n\n"+
			`data: {"choices": [{"delta": {"images": [{"type": "image_url", "image_url": {"url": "data:image/png;base64,AAAA"}}]}}]}`+"\n\n"+
			"data: [DONE]\n\n")
	defer server.Close()

	var reasoning string
	var images []ResponseImage
	err := newTestClient(server.URL).ChatStream(context.Background(), chatBody(), func(chunk StreamChunk) {
		reasoning += chunk.GetReasoning()
		images = append(images, chunk.GetImages()...)
	})
	if err != nil {
		t.Fatalf("ChatStream() error: %v", err)
	}
	if reasoning != "thinking..." {
		t.Errorf("reasoning = %q", reasoning)
	}
	if len(images) != 1 || images[0].ImageURL.URL != "data:image/png;base64,AAAA" {
		t.Errorf("images = %+v", images)
	}
}

func TestChatStreamErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error": {"message": "bad key"}}`)
	}))
	defer server.Close()

	err := newTestClient(server.URL).ChatStream(context.Background(), chatBody(), func(StreamChunk) {
		t.Error("callback fired on an error response")
	})
	if !errors.Is(err, ErrAuthFailed) {
		t.Errorf("error = %v, want ErrAuthFailed", err)
	}
}

// =============================================================================
// CHANNEL STREAMING
// =============================================================================

func TestChatStreamChanDeliversAndCloses(t *testing.T) {
	server := sseServer(t,
		deltaEvent("a")+
			deltaEvent("b")+
			"data: [DONE]\n\n")
	defer server.Close()

	var content string
	for chunk := range newTestClient(server.URL).ChatStreamChan(context.Background(), chatBody()) {
		if chunk.HasError() {
			t.Fatalf("unexpected error chunk: %v", chunk.Error)
		}
		content += chunk.GetContent()
	}
	if content != "ab" {
		t.Errorf("content = %q", content)
	}
}

func TestChatStreamChanTerminalErrorChunk(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		fmt.Fprint(w, `{"error": {"message": "out of credits"}}`)
	}))
	defer server.Close()

	var last StreamChunk
	count := 0
	for chunk := range newTestClient(server.URL).ChatStreamChan(context.Background(), chatBody()) {
		last = chunk
		count++
	}
	if count != 1 {
		t.Fatalf("got %d chunks, want the single error chunk", count)
	}
	if !last.HasError() || !errors.Is(last.Error, ErrInsufficientCredits) {
		t.Errorf("terminal chunk error = %v", last.Error)
	}
}

func TestChatStreamChanCancelledContext(t *testing.T) {
	server := sseServer(t, deltaEvent("never read")+"data: [DONE]\n\n")
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// A cancelled context closes the channel without an error chunk.
	for chunk := range newTestClient(server.URL).ChatStreamChan(ctx, chatBody()) {
		if chunk.HasError() {
			t.Errorf("cancellation surfaced as error chunk: %v", chunk.Error)
		}
	}
}
