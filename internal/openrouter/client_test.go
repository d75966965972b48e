// Copyright (c) 2025-2026 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package openrouter

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"golang.org/x/time/rate"
)

// newTestClient builds a client pointed at a test server, with pacing
// disabled so tests run at full speed.
func newTestClient(url string) *Client {
	return NewClient("sk-or-test").
		WithBaseURL(url).
		WithLimiter(rate.NewLimiter(rate.Inf, 1))
}

func chatBody() *ChatRequest {
	return &ChatRequest{
		Model:     "test/model",
		Messages:  []ChatMessage{NewUserMessage("hi")},
		MaxTokens: 1024,
	}
}

func TestChatSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer sk-or-test" {
			t.Errorf("Authorization = %q", got)
		}
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %q", r.URL.Path)
		}
		fmt.Fprint(w, `{
			"id": "gen-1",
			"model": "test/model",
			"choices": [{"message": {"role": "assistant", "content": "hello there"}}],
			"usage": {"prompt_tokens": 5, "completion_tokens": 3, "total_tokens": 8}
		}`)
	}))
	defer server.Close()

	resp, err := newTestClient(server.URL).Chat(context.Background(), chatBody())
	if err != nil {
		t.Fatalf("Chat() error: %v", err)
	}
	if got := resp.GetContent(); got != "hello there" {
		t.Errorf("GetContent() = %q", got)
	}
	if resp.Usage.TotalTokens != 8 {
		t.Errorf("TotalTokens = %d", resp.Usage.TotalTokens)
	}
}

func TestChatNotConfigured(t *testing.T) {
	client := NewClient("")
	_, err := client.Chat(context.Background(), chatBody())
	if !errors.Is(err, ErrNotConfigured) {
		t.Errorf("error = %v, want ErrNotConfigured", err)
	}
}

func TestChatErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   error
	}{
		{"unauthorized", http.StatusUnauthorized, ErrAuthFailed},
		{"payment required", http.StatusPaymentRequired, ErrInsufficientCredits},
		{"model not found", http.StatusNotFound, ErrModelNotFound},
		{"rate limited", http.StatusTooManyRequests, ErrRateLimited},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprintf(w, `{"error": {"code": "%d", "message": "upstream says no"}}`, tt.status)
			}))
			defer server.Close()

			// A single attempt keeps retryable statuses from sleeping
			// through backoff.
			client := newTestClient(server.URL).WithMaxRetries(1)
			_, err := client.Chat(context.Background(), chatBody())
			if !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestChatRetriesServerError(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			fmt.Fprint(w, `{"error": {"code": "500", "message": "transient"}}`)
			return
		}
		fmt.Fprint(w, `{"choices": [{"message": {"role": "assistant", "content": "recovered"}}]}`)
	}))
	defer server.Close()

	resp, err := newTestClient(server.URL).Chat(context.Background(), chatBody())
	if err != nil {
		t.Fatalf("Chat() error: %v", err)
	}
	if resp.GetContent() != "recovered" {
		t.Errorf("GetContent() = %q", resp.GetContent())
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("server saw %d calls, want 2", got)
	}
}

func TestChatDoesNotRetryAuthFailure(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error": {"message": "bad key"}}`)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).Chat(context.Background(), chatBody())
	if !errors.Is(err, ErrAuthFailed) {
		t.Fatalf("error = %v, want ErrAuthFailed", err)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("server saw %d calls, want 1", got)
	}
}

func TestChatContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestClient(server.URL).Chat(ctx, chatBody())
	if err == nil {
		t.Error("expected error for cancelled context")
	}
}

func TestListModels(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models" {
			t.Errorf("path = %q", r.URL.Path)
		}
		fmt.Fprint(w, `{"data": [
			{"id": "a/one", "name": "One", "context_length": 8192},
			{"id": "b/two", "name": "Two", "context_length": 32768}
		]}`)
	}))
	defer server.Close()

	models, err := newTestClient(server.URL).ListModels(context.Background())
	if err != nil {
		t.Fatalf("ListModels() error: %v", err)
	}
	if len(models) != 2 || models[0].ID != "a/one" || models[1].ContextSize != 32768 {
		t.Errorf("models = %+v", models)
	}
}

func TestCalculateBackoffCapped(t *testing.T) {
	c := NewClient("sk-or-test")
	if got := c.calculateBackoff(1); got != 2*retryBaseDelay {
		t.Errorf("backoff(1) = %v", got)
	}
	if got := c.calculateBackoff(20); got != retryMaxDelay {
		t.Errorf("backoff(20) = %v, want cap %v", got, retryMaxDelay)
	}
}
