// internal/providers/gemini/provider_test.go
package gemini

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/chemalabs/chema/internal/appconfig"
	"github.com/chemalabs/chema/internal/providers"
)

func newTestProvider(url string) *Provider {
	cfg := appconfig.Default()
	cfg.APIKey = "test-key"
	cfg.BaseURL = url
	return New(&cfg)
}

func TestStreamDeliversChunksInOrder(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models/gemini-2.5-pro:streamGenerateContent" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if r.URL.Query().Get("alt") != "sse" {
			t.Errorf("expected alt=sse, got %q", r.URL.RawQuery)
		}
		if r.Header.Get("x-goog-api-key") != "test-key" {
			t.Errorf("missing api key header")
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Write([]byte(`data: {"candidates":[{"content":{"parts":[{"text":"Este "}]}}]}` + "\n\n"))
		w.Write([]byte(`data: {"candidates":[{"content":{"parts":[{"text":"là hợp chất."}]},"finishReason":"STOP"}]}` + "\n\n"))
	}))
	defer server.Close()

	var got []providers.StreamChunk
	err := newTestProvider(server.URL).Stream(context.Background(), providers.StreamRequest{
		Model:  "gemini-2.5-pro",
		System: "persona",
		Parts:  []providers.Part{{Text: "este là gì?"}},
	}, providers.StreamCallbacks{OnChunk: func(c providers.StreamChunk) error {
		got = append(got, c)
		return nil
	}})
	if err != nil {
		t.Fatalf("Stream error: %v", err)
	}

	if len(got) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(got))
	}
	if got[0].Text != "Este " || got[1].Text != "là hợp chất." {
		t.Fatalf("unexpected chunk texts: %+v", got)
	}
	if got[1].FinishReason != "STOP" {
		t.Fatalf("expected terminal STOP, got %q", got[1].FinishReason)
	}
}

func TestStreamReportsBlockReason(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`data: {"promptFeedback":{"blockReason":"SAFETY"}}` + "\n\n"))
	}))
	defer server.Close()

	var got []providers.StreamChunk
	err := newTestProvider(server.URL).Stream(context.Background(), providers.StreamRequest{Model: "m"},
		providers.StreamCallbacks{OnChunk: func(c providers.StreamChunk) error {
			got = append(got, c)
			return nil
		}})
	if err != nil {
		t.Fatalf("Stream error: %v", err)
	}
	if len(got) != 1 || got[0].BlockReason != "SAFETY" || got[0].Text != "" {
		t.Fatalf("unexpected chunks: %+v", got)
	}
}

func TestStreamRateLimitWithRetryDelay(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"code":429,"message":"quota exceeded","status":"RESOURCE_EXHAUSTED",` +
			`"details":[{"@type":"type.googleapis.com/google.rpc.RetryInfo","retryDelay":"7s"}]}}`))
	}))
	defer server.Close()

	err := newTestProvider(server.URL).Stream(context.Background(), providers.StreamRequest{Model: "m"}, providers.StreamCallbacks{})

	var rle *providers.RateLimitError
	if !errors.As(err, &rle) {
		t.Fatalf("expected RateLimitError, got %v", err)
	}
	if rle.RetryAfter != 7*time.Second {
		t.Fatalf("expected 7s retry delay, got %s", rle.RetryAfter)
	}
}

func TestStreamRateLimitWithoutDetails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`not json`))
	}))
	defer server.Close()

	err := newTestProvider(server.URL).Stream(context.Background(), providers.StreamRequest{Model: "m"}, providers.StreamCallbacks{})

	var rle *providers.RateLimitError
	if !errors.As(err, &rle) {
		t.Fatalf("expected RateLimitError, got %v", err)
	}
	if rle.RetryAfter != 0 {
		t.Fatalf("expected no retry delay, got %s", rle.RetryAfter)
	}
}

func TestStreamServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"code":400,"message":"invalid argument","status":"INVALID_ARGUMENT"}}`))
	}))
	defer server.Close()

	err := newTestProvider(server.URL).Stream(context.Background(), providers.StreamRequest{Model: "m"}, providers.StreamCallbacks{})
	if err == nil {
		t.Fatal("expected error for 400 response")
	}
	var rle *providers.RateLimitError
	if errors.As(err, &rle) {
		t.Fatalf("400 must not be a rate limit: %v", err)
	}
}

func TestStreamCallbackAbort(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`data: {"candidates":[{"content":{"parts":[{"text":"a"}]}}]}` + "\n\n"))
		w.Write([]byte(`data: {"candidates":[{"content":{"parts":[{"text":"b"}]}}]}` + "\n\n"))
	}))
	defer server.Close()

	abort := errors.New("stop")
	err := newTestProvider(server.URL).Stream(context.Background(), providers.StreamRequest{Model: "m"},
		providers.StreamCallbacks{OnChunk: func(providers.StreamChunk) error { return abort }})
	if !errors.Is(err, abort) {
		t.Fatalf("expected abort error, got %v", err)
	}
}
